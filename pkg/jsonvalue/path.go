package jsonvalue

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a node inside a value. Segments are object keys or array indices.
type Path []string

// ParseDotted splits a dotted field path ("hero.items.0.title") into segments.
func ParseDotted(raw string) Path {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}
	}
	return Path(strings.Split(raw, "."))
}

// String joins the path with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path extended by segment.
func (p Path) Child(segment string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, segment)
}

// Parent splits the path into its parent and last segment.
func (p Path) Parent() (Path, string) {
	if len(p) == 0 {
		return Path{}, ""
	}
	return p[:len(p)-1], p[len(p)-1]
}

// GetPath returns the value at path inside root.
func GetPath(root Value, path Path) (Value, bool) {
	current := root
	for _, segment := range path {
		switch node := current.(type) {
		case *Object:
			next, ok := node.Get(segment)
			if !ok {
				return nil, false
			}
			current = next
		case Array:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetPath returns a copy of root with value stored at path. Only the containers along the
// path are copied; root itself is never mutated. Missing object keys are created, array
// indices must exist.
func SetPath(root Value, path Path, value Value) (Value, error) {
	if len(path) == 0 {
		return value, nil
	}
	segment := path[0]
	switch node := root.(type) {
	case *Object:
		child, _ := node.Get(segment)
		updated, err := SetPath(child, path[1:], value)
		if err != nil {
			return nil, err
		}
		out := node.shallowCopy()
		out.Set(segment, updated)
		return out, nil
	case Array:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, fmt.Errorf("index %q out of range", segment)
		}
		updated, err := SetPath(node[idx], path[1:], value)
		if err != nil {
			return nil, err
		}
		out := make(Array, len(node))
		copy(out, node)
		out[idx] = updated
		return out, nil
	case nil:
		if _, err := strconv.Atoi(segment); err == nil {
			return nil, fmt.Errorf("cannot index missing array at %q", segment)
		}
		updated, err := SetPath(nil, path[1:], value)
		if err != nil {
			return nil, err
		}
		out := NewObject()
		out.Set(segment, updated)
		return out, nil
	default:
		return nil, fmt.Errorf("cannot descend into %s at %q", KindOf(root), segment)
	}
}

func (o *Object) shallowCopy() *Object {
	out := &Object{
		keys:   make([]string, len(o.keys)),
		fields: make(map[string]Value, len(o.fields)),
	}
	copy(out.keys, o.keys)
	for k, v := range o.fields {
		out.fields[k] = v
	}
	return out
}
