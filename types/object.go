package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

// Object is an insertion-ordered string-keyed mapping. Setting an existing
// key replaces its value in place.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// ObjectOf builds an object from alternating key/value pairs
func ObjectOf(pairs ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return o
}

func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key and reports whether it was present
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, exists := o.values[key]; !exists {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns a copy of the keys in insertion order
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Merge sets every entry of other on o, in other's order
func (o *Object) Merge(other *Object) {
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		o.Set(k, v)
	}
}

// Map converts the object, and every nested object, to plain Go maps.
// Key order is lost.
func (o *Object) Map() map[string]any {
	if o == nil {
		return nil
	}
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = plain(o.values[k])
	}
	return m
}

func plain(v any) any {
	switch val := v.(type) {
	case *Object:
		return val.Map()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON writes the object with its keys in insertion order
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the object as an ordered mapping node
func (o *Object) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if o == nil {
		return node, nil
	}
	for _, k := range o.keys {
		var keyNode, valueNode yaml.Node
		if err := keyNode.Encode(k); err != nil {
			return nil, err
		}
		if err := valueNode.Encode(o.values[k]); err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		node.Content = append(node.Content, &keyNode, &valueNode)
	}
	return node, nil
}

// D returns the object as an ordered BSON document
func (o *Object) D() bson.D {
	if o == nil {
		return nil
	}
	d := make(bson.D, 0, len(o.keys))
	for _, k := range o.keys {
		d = append(d, bson.E{Key: k, Value: bsonValue(o.values[k])})
	}
	return d
}

func bsonValue(v any) any {
	switch val := v.(type) {
	case *Object:
		return val.D()
	case []any:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = bsonValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalBSON encodes the object as a BSON document preserving key order
func (o *Object) MarshalBSON() ([]byte, error) {
	return bson.Marshal(o.D())
}
