package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
	"github.com/noah-isme/site-cms-api/pkg/localized"
)

// ValueType is a type selectable when adding fields, appending items or coercing leaves.
type ValueType string

const (
	TypeString    ValueType = "string"
	TypeNumber    ValueType = "number"
	TypeBoolean   ValueType = "boolean"
	TypeNull      ValueType = "null"
	TypeObject    ValueType = "object"
	TypeArray     ValueType = "array"
	TypeLocalized ValueType = "localized"
)

var (
	ErrEmptyFieldName  = errors.New("field name is required")
	ErrDuplicateField  = errors.New("field already exists")
	ErrFieldNotFound   = errors.New("field not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownType     = errors.New("unknown value type")
	// ErrNotLocalized rejects writing locale text into a non-localized value; type changes
	// go through Coerce.
	ErrNotLocalized = errors.New("value is not localized text")
)

// DefaultValue returns the value a fresh node of type t starts with.
func DefaultValue(t ValueType) (jsonvalue.Value, error) {
	switch t {
	case TypeString:
		return "", nil
	case TypeNumber:
		return json.Number("0"), nil
	case TypeBoolean:
		return false, nil
	case TypeNull:
		return nil, nil
	case TypeObject:
		return jsonvalue.NewObject(), nil
	case TypeArray:
		return jsonvalue.Array{}, nil
	case TypeLocalized:
		return localized.SerializeObject(localized.Ensure(nil), true), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// Coerce switches a primitive to type t. The previous value is discarded.
func Coerce(_ jsonvalue.Value, t ValueType) (jsonvalue.Value, error) {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeNull:
		return DefaultValue(t)
	default:
		return nil, fmt.Errorf("%w: %q is not a primitive type", ErrUnknownType, t)
	}
}

// ReplaceItem returns a copy of arr with index replaced by item.
func ReplaceItem(arr jsonvalue.Array, index int, item jsonvalue.Value) (jsonvalue.Array, error) {
	if index < 0 || index >= len(arr) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	out := make(jsonvalue.Array, len(arr))
	copy(out, arr)
	out[index] = item
	return out, nil
}

// AppendItem returns a copy of arr with a new item of type t. Only string and object items
// can be appended; an empty type appends a string.
func AppendItem(arr jsonvalue.Array, t ValueType) (jsonvalue.Array, error) {
	if t == "" {
		t = TypeString
	}
	if t != TypeString && t != TypeObject {
		return nil, fmt.Errorf("%w: arrays accept string or object items", ErrUnknownType)
	}
	item, _ := DefaultValue(t)
	out := make(jsonvalue.Array, len(arr), len(arr)+1)
	copy(out, arr)
	return append(out, item), nil
}

// RemoveItem returns a copy of arr without index.
func RemoveItem(arr jsonvalue.Array, index int) (jsonvalue.Array, error) {
	if index < 0 || index >= len(arr) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	out := make(jsonvalue.Array, 0, len(arr)-1)
	out = append(out, arr[:index]...)
	return append(out, arr[index+1:]...), nil
}

// AddField returns a copy of obj with a new field of type t.
func AddField(obj *jsonvalue.Object, name string, t ValueType) (*jsonvalue.Object, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyFieldName
	}
	if obj.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateField, name)
	}
	value, err := DefaultValue(t)
	if err != nil {
		return nil, err
	}
	out := cloneObject(obj)
	out.Set(name, value)
	return out, nil
}

// RenameField returns a copy of obj with from renamed to to, keeping its position.
func RenameField(obj *jsonvalue.Object, from, to string) (*jsonvalue.Object, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrEmptyFieldName
	}
	if !obj.Has(from) {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, from)
	}
	if from == to {
		return cloneObject(obj), nil
	}
	if obj.Has(to) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateField, to)
	}
	out := cloneObject(obj)
	out.Rename(from, to)
	return out, nil
}

// RemoveField returns a copy of obj without name.
func RemoveField(obj *jsonvalue.Object, name string) *jsonvalue.Object {
	out := cloneObject(obj)
	out.Delete(name)
	return out
}

// SetField returns a copy of obj with name set to value.
func SetField(obj *jsonvalue.Object, name string, value jsonvalue.Value) *jsonvalue.Object {
	out := cloneObject(obj)
	out.Set(name, value)
	return out
}

// SetLocalizedText returns value as a localized object with locale set to text. value must
// be missing (nil) or already localized. Text is stored verbatim.
func SetLocalizedText(value jsonvalue.Value, locale localized.Locale, text string) (*jsonvalue.Object, error) {
	if !localized.IsSupported(string(locale)) {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	if value != nil {
		obj, ok := value.(*jsonvalue.Object)
		if !ok || !localized.IsLocalizedShape(obj) {
			return nil, ErrNotLocalized
		}
	}
	updated := localized.SetText(localized.Ensure(value), locale, text)
	out := jsonvalue.NewObject()
	for _, l := range localized.Supported {
		out.Set(string(l), updated[l])
	}
	return out, nil
}

func cloneObject(obj *jsonvalue.Object) *jsonvalue.Object {
	if obj == nil {
		return jsonvalue.NewObject()
	}
	return obj.Clone()
}
