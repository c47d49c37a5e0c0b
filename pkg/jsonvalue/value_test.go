package jsonvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsKeyOrder(t *testing.T) {
	obj, err := ParseObject([]byte(`{"z":1,"a":{"y":true,"b":null},"m":["x",2.50]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	raw, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":{"y":true,"b":null},"m":["x",2.50]}`, string(raw))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse([]byte(`{"a":`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ParseObject([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestCloneIsDeep(t *testing.T) {
	obj, err := ParseObject([]byte(`{"hero":{"title":"a"},"items":[{"n":1}]}`))
	require.NoError(t, err)

	clone := obj.Clone()
	hero, _ := clone.Get("hero")
	hero.(*Object).Set("title", "b")
	items, _ := clone.Get("items")
	items.(Array)[0].(*Object).Set("n", json.Number("2"))

	assert.Equal(t, `{"hero":{"title":"a"},"items":[{"n":1}]}`, MustString(obj))
	assert.Equal(t, `{"hero":{"title":"b"},"items":[{"n":2}]}`, MustString(clone))
}

func TestRenameKeepsPosition(t *testing.T) {
	obj := NewObject()
	obj.Set("a", "1")
	obj.Set("b", "2")
	obj.Set("c", "3")

	assert.True(t, obj.Rename("b", "x"))
	assert.Equal(t, []string{"a", "x", "c"}, obj.Keys())
	assert.False(t, obj.Rename("a", "c"))
	assert.False(t, obj.Rename("missing", "y"))
}

func TestDelete(t *testing.T) {
	obj := NewObject()
	obj.Set("a", "1")
	obj.Set("b", "2")
	obj.Delete("a")
	obj.Delete("missing")
	assert.Equal(t, []string{"b"}, obj.Keys())
}

func TestSetPathDoesNotMutateInput(t *testing.T) {
	obj, err := ParseObject([]byte(`{"hero":{"items":[{"title":"a"}]},"other":{"k":1}}`))
	require.NoError(t, err)

	updated, err := SetPath(obj, Path{"hero", "items", "0", "title"}, "b")
	require.NoError(t, err)

	assert.Equal(t, `{"hero":{"items":[{"title":"a"}]},"other":{"k":1}}`, MustString(obj))
	assert.Equal(t, `{"hero":{"items":[{"title":"b"}]},"other":{"k":1}}`, MustString(updated))

	got, ok := GetPath(updated, ParseDotted("hero.items.0.title"))
	require.True(t, ok)
	assert.Equal(t, "b", got)
}

func TestSetPathCreatesMissingKeys(t *testing.T) {
	updated, err := SetPath(NewObject(), Path{"_meta", "schema"}, "home.v1")
	require.NoError(t, err)
	assert.Equal(t, `{"_meta":{"schema":"home.v1"}}`, MustString(updated))

	_, err = SetPath(Array{}, Path{"3"}, "x")
	assert.Error(t, err)
}

func TestNormalizeAndEqual(t *testing.T) {
	v, err := Normalize(map[string]any{"b": 1, "a": []any{true, nil, 1.5}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null,1.5],"b":1}`, MustString(v))

	parsed, err := Parse([]byte(`{"a":[true,null,1.5],"b":1}`))
	require.NoError(t, err)
	assert.True(t, Equal(v, parsed))
	assert.False(t, Equal(v, NewObject()))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNull, KindOf(nil))
	assert.Equal(t, KindBoolean, KindOf(true))
	assert.Equal(t, KindNumber, KindOf(json.Number("3")))
	assert.Equal(t, KindString, KindOf("x"))
	assert.Equal(t, KindArray, KindOf(Array{}))
	assert.Equal(t, KindObject, KindOf(NewObject()))
}

func TestObjectJSONRoundTripThroughEncodingJSON(t *testing.T) {
	type envelope struct {
		Value *Object `json:"value"`
	}
	var payload envelope
	require.NoError(t, json.Unmarshal([]byte(`{"value":{"b":1,"a":"x"}}`), &payload))
	assert.Equal(t, []string{"b", "a"}, payload.Value.Keys())

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":{"b":1,"a":"x"}}`, string(raw))
}
