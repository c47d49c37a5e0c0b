package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is an untyped JSON value. It always holds one of:
// nil, bool, json.Number, string, Array or *Object.
type Value = any

// Array is an ordered list of JSON values.
type Array []Value

// Kind names the JSON type of a value.
type Kind string

const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// KindOf reports the JSON kind of v. Values outside the sum type report KindNull.
func KindOf(v Value) Kind {
	switch v.(type) {
	case bool:
		return KindBoolean
	case json.Number:
		return KindNumber
	case string:
		return KindString
	case Array:
		return KindArray
	case *Object:
		return KindObject
	default:
		return KindNull
	}
}

// Number builds a JSON number from a Go integer or float.
func Number(n float64) json.Number {
	return json.Number(strconv.FormatFloat(n, 'f', -1, 64))
}

// Clone deep-copies v.
func Clone(v Value) Value {
	switch t := v.(type) {
	case Array:
		out := make(Array, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case *Object:
		return t.Clone()
	default:
		return t
	}
}

// Marshal serialises v keeping object key order.
func Marshal(v Value) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encode(buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustString serialises v and panics only on values outside the sum type.
func MustString(v Value) string {
	raw, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// Equal reports whether a and b serialise identically.
func Equal(a, b Value) bool {
	left, err := Marshal(a)
	if err != nil {
		return false
	}
	right, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// Normalize converts Go-native JSON values (as produced by encoding/json or literals in
// code) into the Value sum type. Map keys are sorted since Go maps carry no order.
func Normalize(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, json.Number, string:
		return t, nil
	case int:
		return json.Number(strconv.Itoa(t)), nil
	case int64:
		return json.Number(strconv.FormatInt(t, 10)), nil
	case float64:
		return Number(t), nil
	case Array:
		out := make(Array, len(t))
		for i, item := range t {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []any:
		return Normalize(Array(t))
	case *Object:
		return t.Clone(), nil
	case map[string]any:
		obj := NewObject()
		for _, key := range sortedKeys(t) {
			n, err := Normalize(t[key])
			if err != nil {
				return nil, err
			}
			obj.Set(key, n)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported json value of type %T", v)
	}
}

func encode(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		if t == "" {
			buf.WriteString("0")
			return nil
		}
		buf.WriteString(string(t))
	case string:
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(raw)
	case Array:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Object:
		if t == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		for i, key := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			rawKey, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(rawKey)
			buf.WriteByte(':')
			if err := encode(buf, t.fields[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported json value of type %T", v)
	}
	return nil
}
