package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rediwo/redi-shape/utils"
)

type modeler interface {
	ModelName() string
}

var modelerType = reflect.TypeOf((*modeler)(nil)).Elem()

// ModelNameOf returns the model name declared by t's ModelName method, or the
// Go type name when t does not declare one.
func ModelNameOf(t reflect.Type) string {
	if t == nil {
		return ""
	}
	switch {
	case t.Kind() == reflect.Ptr && t.Implements(modelerType):
		return reflect.New(t.Elem()).Interface().(modeler).ModelName()
	case t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface && t.Implements(modelerType):
		return reflect.Zero(t).Interface().(modeler).ModelName()
	case t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(modelerType):
		return reflect.New(t).Interface().(modeler).ModelName()
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func isModel(t reflect.Type) bool {
	return t.Implements(modelerType) || (t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(modelerType))
}

// FromType derives a schema from a struct type's tags.
//
// Each exported field becomes a field or relation named by its db tag, its
// json tag, or the snake_case Go name. Tag options after the name:
// pk, auto, null, unique, reverse and model=<Name>. Fields holding a model
// become manyToOne relations; slices of models become manyToMany relations,
// or oneToMany with the reverse option. A field named id is the primary key
// when no field carries pk.
func FromType(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot derive schema from nil type")
	}
	base := t
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot derive schema from %s: not a struct", t)
	}

	s := New(ModelNameOf(t))
	hasPK := false

	for _, f := range reflect.VisibleFields(base) {
		if !f.IsExported() || f.Anonymous || f.Type.Kind() == reflect.Func {
			continue
		}
		name, opts, skip := parseFieldTag(f)
		if skip {
			continue
		}

		ft := f.Type
		switch {
		case isModel(ft):
			s.AddRelation(name, Relation{
				Type:    RelationManyToOne,
				Model:   ModelNameOf(ft),
				Reverse: opts["reverse"] != "",
			})
			continue
		case (ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array) && isModel(ft.Elem()):
			rel := Relation{Type: RelationManyToMany, Model: ModelNameOf(ft.Elem())}
			if opts["reverse"] != "" {
				rel.Type = RelationOneToMany
			}
			s.AddRelation(name, rel)
			continue
		case opts["reverse"] != "":
			s.AddRelation(name, Relation{Type: RelationOneToMany, Model: opts["model"], Reverse: true})
			continue
		}

		field := Field{
			Name:          name,
			Type:          FieldTypeFromGo(ft),
			PrimaryKey:    opts["pk"] != "",
			AutoIncrement: opts["auto"] != "",
			Nullable:      opts["null"] != "" || ft.Kind() == reflect.Ptr,
			Unique:        opts["unique"] != "",
		}
		hasPK = hasPK || field.PrimaryKey
		s.AddField(field)
	}

	if !hasPK {
		for i := range s.Fields {
			if s.Fields[i].Name == "id" {
				s.Fields[i].PrimaryKey = true
				break
			}
		}
	}

	return s, nil
}

// FromStruct derives a schema from the type of v
func FromStruct(v any) (*Schema, error) {
	return FromType(reflect.TypeOf(v))
}

func parseFieldTag(f reflect.StructField) (string, map[string]string, bool) {
	opts := map[string]string{}

	tag, ok := f.Tag.Lookup("db")
	if !ok {
		tag = f.Tag.Get("json")
	}
	if tag == "-" {
		return "", nil, true
	}

	parts := strings.Split(tag, ",")
	name := parts[0]
	for _, opt := range parts[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(opt), "=")
		if !found {
			value = "true"
		}
		opts[key] = value
	}

	if name == "" {
		name = utils.ToSnakeCase(f.Name)
	}
	return name, opts, false
}
