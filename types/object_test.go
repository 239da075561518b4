package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

func TestObject_SetKeepsPosition(t *testing.T) {
	o := NewObject()
	o.Set("id", 1)
	o.Set("name", "a")
	o.Set("id", 9)

	assert.Equal(t, []string{"id", "name"}, o.Keys())
	v, ok := o.Get("id")
	assert.True(t, ok)
	assert.Equal(t, 9, v)
	assert.Equal(t, 2, o.Len())
}

func TestObject_Delete(t *testing.T) {
	o := ObjectOf("a", 1, "b", 2, "c", 3)

	assert.True(t, o.Delete("b"))
	assert.False(t, o.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, o.Keys())

	o.Set("b", 4)
	assert.Equal(t, []string{"a", "c", "b"}, o.Keys())
}

func TestObject_Merge(t *testing.T) {
	o := ObjectOf("id", 1, "name", "a")
	o.Merge(ObjectOf("id", 9, "label", "x"))

	assert.Equal(t, []string{"id", "name", "label"}, o.Keys())
	v, _ := o.Get("id")
	assert.Equal(t, 9, v)
}

func TestObject_NilReceiver(t *testing.T) {
	var o *Object
	assert.Equal(t, 0, o.Len())
	assert.Nil(t, o.Keys())
	assert.Nil(t, o.Map())
	_, ok := o.Get("x")
	assert.False(t, ok)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestObject_Map(t *testing.T) {
	o := ObjectOf("id", 1, "tag", ObjectOf("label", "x"), "items", []any{ObjectOf("n", 1), 2})

	assert.Equal(t, map[string]any{
		"id":    1,
		"tag":   map[string]any{"label": "x"},
		"items": []any{map[string]any{"n": 1}, 2},
	}, o.Map())
}

func TestObject_MarshalJSON(t *testing.T) {
	o := ObjectOf("z", 1, "a", ObjectOf("y", true, "b", nil), "list", []any{"x", 2})

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":{"y":true,"b":null},"list":["x",2]}`, string(data))

	_, err = json.Marshal(ObjectOf("bad", make(chan int)))
	assert.Error(t, err)
}

func TestObject_MarshalYAML(t *testing.T) {
	o := ObjectOf("z", 1, "a", ObjectOf("k", "text"), "list", []any{ObjectOf("n", 2)})

	data, err := yaml.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, "z: 1\na:\n    k: text\nlist:\n    - n: 2\n", string(data))
}

func TestObject_MarshalBSON(t *testing.T) {
	o := ObjectOf("z", int32(1), "a", ObjectOf("y", "text"), "list", []any{int32(2)})

	data, err := bson.Marshal(o)
	require.NoError(t, err)

	var d bson.D
	require.NoError(t, bson.Unmarshal(data, &d))
	require.Len(t, d, 3)
	assert.Equal(t, "z", d[0].Key)
	assert.Equal(t, "a", d[1].Key)
	assert.Equal(t, bson.D{{Key: "y", Value: "text"}}, d[1].Value)
	assert.Equal(t, bson.A{int32(2)}, d[2].Value)
}
