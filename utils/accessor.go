package utils

import (
	"reflect"
	"strings"
	"sync"
)

// Attribute describes how a name resolves on a Go struct type: either a
// (possibly promoted) exported field or an exported method.
type Attribute struct {
	Index  []int
	Method string
}

// IsMethod reports whether the attribute is a method
func (a Attribute) IsMethod() bool {
	return a.Method != ""
}

type attributeKey struct {
	typ  reflect.Type
	name string
}

type attributeEntry struct {
	attr  Attribute
	found bool
}

// attributeCache memoizes name lookups per struct type
var attributeCache sync.Map

// LookupAttribute resolves name on t (a struct or pointer to struct).
// Fields are matched first by db tag, then json tag, then case-insensitive Go
// name, then camelCase/snake_case conversion. Methods are matched against the
// pointer method set by PascalCase or case-insensitive name.
func LookupAttribute(t reflect.Type, name string) (Attribute, bool) {
	if t == nil || name == "" {
		return Attribute{}, false
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Attribute{}, false
	}

	key := attributeKey{typ: t, name: name}
	if cached, ok := attributeCache.Load(key); ok {
		entry := cached.(attributeEntry)
		return entry.attr, entry.found
	}

	attr, found := lookupAttribute(t, name)
	attributeCache.Store(key, attributeEntry{attr: attr, found: found})
	return attr, found
}

func lookupAttribute(t reflect.Type, name string) (Attribute, bool) {
	fields := reflect.VisibleFields(t)

	matchers := []func(reflect.StructField) bool{
		func(f reflect.StructField) bool { return tagName(f, "db") == name },
		func(f reflect.StructField) bool { return tagName(f, "json") == name },
		func(f reflect.StructField) bool { return strings.EqualFold(f.Name, name) },
		func(f reflect.StructField) bool {
			return ToPascalCase(name) == f.Name || ToSnakeCase(f.Name) == name
		},
	}

	for _, match := range matchers {
		for _, f := range fields {
			if !f.IsExported() || f.Anonymous || tagName(f, "db") == "-" {
				continue
			}
			if match(f) {
				return Attribute{Index: f.Index}, true
			}
		}
	}

	pt := reflect.PointerTo(t)
	pascal := ToPascalCase(name)
	folded := strings.ReplaceAll(name, "_", "")
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if m.Name == pascal || strings.EqualFold(m.Name, folded) {
			return Attribute{Method: m.Name}, true
		}
	}

	return Attribute{}, false
}

// tagName returns the name part of a struct tag
func tagName(f reflect.StructField, key string) string {
	tag := f.Tag.Get(key)
	if tag == "" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

// GetAttribute reads name from v using LookupAttribute. Methods come back as
// bound method values so the caller decides whether to invoke them.
// The second result is false when v has no such attribute, or when a promoted
// field sits behind a nil embedded pointer.
func GetAttribute(v any, name string) (any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, false
	}

	attr, ok := LookupAttribute(rv.Type(), name)
	if !ok {
		return nil, false
	}

	// Methods with pointer receivers need an addressable value
	if rv.Kind() != reflect.Ptr {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		rv = ptr
	}

	if attr.IsMethod() {
		return rv.MethodByName(attr.Method).Interface(), true
	}

	field, err := rv.Elem().FieldByIndexErr(attr.Index)
	if err != nil {
		return nil, false
	}
	return field.Interface(), true
}
