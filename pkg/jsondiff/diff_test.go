package jsondiff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

func obj(t *testing.T, raw string) *jsonvalue.Object {
	t.Helper()
	o, err := jsonvalue.ParseObject([]byte(raw))
	require.NoError(t, err)
	return o
}

func TestComputeNestedChange(t *testing.T) {
	a := obj(t, `{"x":{"y":{"z":1,"w":"same"}},"k":true}`)
	b := obj(t, `{"x":{"y":{"z":2,"w":"same"}},"k":true}`)

	changes := Compute(a, b)
	require.Len(t, changes, 1)
	assert.Equal(t, OpChange, changes[0].Op)
	assert.Equal(t, "x.y.z", changes[0].Path)
	assert.Equal(t, json.Number("1"), changes[0].Before)
	assert.Equal(t, json.Number("2"), changes[0].After)
}

func TestComputeAddAndRemove(t *testing.T) {
	changes := Compute(obj(t, `{"a":1,"gone":"x"}`), obj(t, `{"a":1,"added":{"n":1}}`))
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Op: OpRemove, Path: "gone", Before: "x"}, changes[0])
	assert.Equal(t, OpAdd, changes[1].Op)
	assert.Equal(t, "added", changes[1].Path)
	assert.Equal(t, `{"n":1}`, jsonvalue.MustString(changes[1].After))
}

func TestComputeFirstWrite(t *testing.T) {
	changes := Compute(nil, obj(t, `{"a":1}`))
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Op: OpAdd, Path: "a", After: json.Number("1")}, changes[0])
}

func TestComputeTreatsArraysAtomically(t *testing.T) {
	changes := Compute(obj(t, `{"list":[{"t":"a"},{"t":"b"}]}`), obj(t, `{"list":[{"t":"a"},{"t":"c"}]}`))
	require.Len(t, changes, 1)
	assert.Equal(t, "list", changes[0].Path)
	assert.Equal(t, OpChange, changes[0].Op)
}

func TestComputeTypeChangeIsOneChange(t *testing.T) {
	changes := Compute(obj(t, `{"hero":{"t":1}}`), obj(t, `{"hero":"text"}`))
	require.Len(t, changes, 1)
	assert.Equal(t, "hero", changes[0].Path)
}

func TestComputeIdenticalIsEmpty(t *testing.T) {
	a := obj(t, `{"a":[1,2],"b":{"c":null}}`)
	assert.Empty(t, Compute(a, a.Clone()))
}

func TestChangeJSON(t *testing.T) {
	raw, err := json.Marshal([]Change{
		{Op: OpAdd, Path: "a", After: json.Number("1")},
		{Op: OpChange, Path: "b", Before: nil, After: "x"},
		{Op: OpRemove, Path: "c", Before: false},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op":"add","path":"a","after":1},{"op":"change","path":"b","before":null,"after":"x"},{"op":"remove","path":"c","before":false}]`, string(raw))

	var decoded []Change
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, OpChange, decoded[1].Op)
	assert.Equal(t, "x", decoded[1].After)
}

func TestTruncate(t *testing.T) {
	changes := make([]Change, 9)
	shown, omitted := Truncate(changes, 6)
	assert.Len(t, shown, 6)
	assert.Equal(t, 3, omitted)

	shown, omitted = Truncate(changes[:2], 6)
	assert.Len(t, shown, 2)
	assert.Zero(t, omitted)
}
