// Package jsondiff computes flat, path-keyed differences between two JSON objects.
package jsondiff

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// Op is the kind of change recorded for a path.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpChange Op = "change"
)

// Change is a single difference at a dotted field path. Before is unset for adds and
// After is unset for removes.
type Change struct {
	Op     Op
	Path   string
	Before jsonvalue.Value
	After  jsonvalue.Value
}

// Compute walks prev and next in parallel. Objects recurse; arrays and primitives are
// compared as whole values, so any change inside an array is one change at the array path.
// A nil prev means the record is new and every key of next is an add.
func Compute(prev, next *jsonvalue.Object) []Change {
	changes := make([]Change, 0)
	walk(&changes, jsonvalue.Path{}, prev, next)
	return changes
}

func walk(changes *[]Change, base jsonvalue.Path, prev, next *jsonvalue.Object) {
	for _, key := range prev.Keys() {
		before, _ := prev.Get(key)
		path := base.Child(key)
		after, ok := next.Get(key)
		if !ok {
			*changes = append(*changes, Change{Op: OpRemove, Path: path.String(), Before: jsonvalue.Clone(before)})
			continue
		}
		prevObj, prevIsObj := before.(*jsonvalue.Object)
		nextObj, nextIsObj := after.(*jsonvalue.Object)
		if prevIsObj && nextIsObj {
			walk(changes, path, prevObj, nextObj)
			continue
		}
		if !jsonvalue.Equal(before, after) {
			*changes = append(*changes, Change{
				Op:     OpChange,
				Path:   path.String(),
				Before: jsonvalue.Clone(before),
				After:  jsonvalue.Clone(after),
			})
		}
	}
	for _, key := range next.Keys() {
		if prev.Has(key) {
			continue
		}
		after, _ := next.Get(key)
		*changes = append(*changes, Change{Op: OpAdd, Path: base.Child(key).String(), After: jsonvalue.Clone(after)})
	}
}

// MarshalJSON omits before on adds and after on removes; a JSON null stays explicit.
func (c Change) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString(`{"op":`)
	op, _ := json.Marshal(c.Op)
	buf.Write(op)
	buf.WriteString(`,"path":`)
	path, _ := json.Marshal(c.Path)
	buf.Write(path)
	if c.Op != OpAdd {
		before, err := jsonvalue.Marshal(c.Before)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"before":`)
		buf.Write(before)
	}
	if c.Op != OpRemove {
		after, err := jsonvalue.Marshal(c.After)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"after":`)
		buf.Write(after)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a stored change.
func (c *Change) UnmarshalJSON(data []byte) error {
	obj, err := jsonvalue.ParseObject(data)
	if err != nil {
		return fmt.Errorf("decode diff entry: %w", err)
	}
	op, _ := obj.Get("op")
	path, _ := obj.Get("path")
	opStr, _ := op.(string)
	pathStr, _ := path.(string)
	c.Op = Op(opStr)
	c.Path = pathStr
	c.Before, _ = obj.Get("before")
	c.After, _ = obj.Get("after")
	return nil
}

// Truncate returns at most limit changes and how many were left out.
func Truncate(changes []Change, limit int) ([]Change, int) {
	if limit <= 0 || len(changes) <= limit {
		return changes, 0
	}
	return changes[:limit], len(changes) - limit
}
