package jsonvalue

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned for payloads that are not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrNotObject is returned when an object was required.
	ErrNotObject = errors.New("json value is not an object")
)

// Parse decodes data into a Value, keeping object key order.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseObject decodes data and requires the top-level value to be an object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

func fromResult(res gjson.Result) Value {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(res.Raw)
	case gjson.String:
		return res.Str
	}
	if res.IsArray() {
		items := res.Array()
		out := make(Array, len(items))
		for i, item := range items {
			out[i] = fromResult(item)
		}
		return out
	}
	obj := NewObject()
	res.ForEach(func(key, value gjson.Result) bool {
		obj.Set(key.String(), fromResult(value))
		return true
	})
	return obj
}
