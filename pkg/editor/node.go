// Package editor implements the schema-less site config editor: rendering an untyped JSON
// tree into editable nodes, pure edit operations, and an editing session with dirty
// tracking and scoped field drafts.
package editor

import (
	"strconv"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
	"github.com/noah-isme/site-cms-api/pkg/localized"
)

// NodeKind selects which editor a node is rendered with.
type NodeKind string

const (
	NodeObject    NodeKind = "object"
	NodeArray     NodeKind = "array"
	NodeLocalized NodeKind = "localized"
	NodeString    NodeKind = "string"
	NodeNumber    NodeKind = "number"
	NodeBoolean   NodeKind = "boolean"
	NodeNull      NodeKind = "null"
)

// Node is the rendered, editable view of one JSON value.
type Node struct {
	Kind     NodeKind        `json:"kind"`
	Key      string          `json:"key,omitempty"`
	Path     string          `json:"path"`
	Value    jsonvalue.Value `json:"value,omitempty"`
	Children []Node          `json:"children,omitempty"`
}

// Render builds the node tree for value.
func Render(value jsonvalue.Value) Node {
	return render(value, jsonvalue.Path{}, "")
}

func render(value jsonvalue.Value, path jsonvalue.Path, key string) Node {
	node := Node{Key: key, Path: path.String()}
	switch v := value.(type) {
	case jsonvalue.Array:
		node.Kind = NodeArray
		node.Children = make([]Node, 0, len(v))
		for i, item := range v {
			idx := strconv.Itoa(i)
			node.Children = append(node.Children, render(item, path.Child(idx), idx))
		}
	case *jsonvalue.Object:
		if localized.IsLocalizedShape(v) {
			node.Kind = NodeLocalized
			node.Value = localized.SerializeObject(localized.Ensure(v), true)
			return node
		}
		node.Kind = NodeObject
		node.Children = make([]Node, 0, v.Len())
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			node.Children = append(node.Children, render(child, path.Child(k), k))
		}
	default:
		node.Kind = primitiveKind(v)
		node.Value = v
	}
	return node
}

func primitiveKind(v jsonvalue.Value) NodeKind {
	switch jsonvalue.KindOf(v) {
	case jsonvalue.KindString:
		return NodeString
	case jsonvalue.KindNumber:
		return NodeNumber
	case jsonvalue.KindBoolean:
		return NodeBoolean
	default:
		return NodeNull
	}
}
