package editor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
	"github.com/noah-isme/site-cms-api/pkg/localized"
)

// OpKind names an edit command.
type OpKind string

const (
	OpSet         OpKind = "set"
	OpSetText     OpKind = "set_text"
	OpCoerce      OpKind = "coerce"
	OpAddField    OpKind = "add_field"
	OpRenameField OpKind = "rename_field"
	OpRemoveField OpKind = "remove_field"
	OpAppendItem  OpKind = "append_item"
	OpReplaceItem OpKind = "replace_item"
	OpRemoveItem  OpKind = "remove_item"
)

// Operation is one serialisable edit. Path addresses the node the command acts on: the
// leaf for set/set_text/coerce, the containing object for field commands and the array
// for item commands.
type Operation struct {
	Op      OpKind          `json:"op" validate:"required,oneof=set set_text coerce add_field rename_field remove_field append_item replace_item remove_item"`
	Path    jsonvalue.Path  `json:"path"`
	Name    string          `json:"name,omitempty"`
	NewName string          `json:"new_name,omitempty"`
	Type    ValueType       `json:"type,omitempty"`
	Index   *int            `json:"index,omitempty"`
	Locale  string          `json:"locale,omitempty"`
	Text    string          `json:"text,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// ErrInvalidOperation wraps every failure caused by a malformed or inapplicable command.
var ErrInvalidOperation = errors.New("invalid edit operation")

// Apply runs op against root and returns the updated document. root is never mutated.
func Apply(root *jsonvalue.Object, op Operation) (*jsonvalue.Object, error) {
	target, ok := jsonvalue.GetPath(root, op.Path)
	if !ok && op.Op != OpSet && op.Op != OpSetText {
		return nil, invalid(op, fmt.Errorf("path %q not found", op.Path.String()))
	}

	var updated jsonvalue.Value
	var err error
	switch op.Op {
	case OpSet:
		updated, err = decodeValue(op.Value)
	case OpSetText:
		updated, err = SetLocalizedText(target, localized.Locale(op.Locale), op.Text)
	case OpCoerce:
		updated, err = Coerce(target, op.Type)
	case OpAddField, OpRenameField, OpRemoveField:
		obj, isObj := target.(*jsonvalue.Object)
		if !isObj {
			return nil, invalid(op, fmt.Errorf("path %q is not an object", op.Path.String()))
		}
		updated, err = applyField(obj, op)
	case OpAppendItem, OpReplaceItem, OpRemoveItem:
		arr, isArr := target.(jsonvalue.Array)
		if !isArr {
			return nil, invalid(op, fmt.Errorf("path %q is not an array", op.Path.String()))
		}
		updated, err = applyItem(arr, op)
	default:
		err = fmt.Errorf("unknown op %q", op.Op)
	}
	if err != nil {
		return nil, invalid(op, err)
	}

	next, err := jsonvalue.SetPath(root, op.Path, updated)
	if err != nil {
		return nil, invalid(op, err)
	}
	obj, isObj := next.(*jsonvalue.Object)
	if !isObj {
		return nil, invalid(op, jsonvalue.ErrNotObject)
	}
	return obj, nil
}

// ApplyAll runs ops in order; it fails as a whole on the first error.
func ApplyAll(root *jsonvalue.Object, ops []Operation) (*jsonvalue.Object, error) {
	current := root
	for i, op := range ops {
		next, err := Apply(current, op)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

func applyField(obj *jsonvalue.Object, op Operation) (*jsonvalue.Object, error) {
	switch op.Op {
	case OpAddField:
		return AddField(obj, op.Name, op.Type)
	case OpRenameField:
		return RenameField(obj, op.Name, op.NewName)
	default:
		if !obj.Has(op.Name) {
			return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, op.Name)
		}
		return RemoveField(obj, op.Name), nil
	}
}

func applyItem(arr jsonvalue.Array, op Operation) (jsonvalue.Array, error) {
	if op.Op == OpAppendItem {
		return AppendItem(arr, op.Type)
	}
	if op.Index == nil {
		return nil, fmt.Errorf("%w: index is required", ErrIndexOutOfRange)
	}
	if op.Op == OpRemoveItem {
		return RemoveItem(arr, *op.Index)
	}
	item, err := decodeValue(op.Value)
	if err != nil {
		return nil, err
	}
	return ReplaceItem(arr, *op.Index, item)
}

func decodeValue(raw json.RawMessage) (jsonvalue.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return jsonvalue.Parse(raw)
}

func invalid(op Operation, err error) error {
	return fmt.Errorf("%w (%s): %w", ErrInvalidOperation, op.Op, err)
}
