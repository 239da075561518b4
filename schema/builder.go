package schema

import "fmt"

// FieldBuilder assembles a Field; fields default to strings
type FieldBuilder struct {
	field Field
}

func NewField(name string) *FieldBuilder {
	return &FieldBuilder{field: Field{Name: name, Type: FieldTypeString}}
}

// ParseFieldType accepts the type names used in schema files. An empty name
// is a string field.
func ParseFieldType(name string) (FieldType, error) {
	switch t := FieldType(name); t {
	case "":
		return FieldTypeString, nil
	case FieldTypeString, FieldTypeInt, FieldTypeInt64, FieldTypeFloat,
		FieldTypeBool, FieldTypeDateTime, FieldTypeJSON:
		return t, nil
	default:
		return "", fmt.Errorf("unknown field type %q", name)
	}
}

func (fb *FieldBuilder) Type(t FieldType) *FieldBuilder {
	fb.field.Type = t
	return fb
}

func (fb *FieldBuilder) String() *FieldBuilder   { return fb.Type(FieldTypeString) }
func (fb *FieldBuilder) Int() *FieldBuilder      { return fb.Type(FieldTypeInt) }
func (fb *FieldBuilder) Int64() *FieldBuilder    { return fb.Type(FieldTypeInt64) }
func (fb *FieldBuilder) Float() *FieldBuilder    { return fb.Type(FieldTypeFloat) }
func (fb *FieldBuilder) Bool() *FieldBuilder     { return fb.Type(FieldTypeBool) }
func (fb *FieldBuilder) DateTime() *FieldBuilder { return fb.Type(FieldTypeDateTime) }
func (fb *FieldBuilder) JSON() *FieldBuilder     { return fb.Type(FieldTypeJSON) }

// PrimaryKey marks the identity field; primary keys are never nullable
func (fb *FieldBuilder) PrimaryKey() *FieldBuilder {
	fb.field.PrimaryKey = true
	fb.field.Nullable = false
	return fb
}

func (fb *FieldBuilder) AutoIncrement() *FieldBuilder {
	fb.field.AutoIncrement = true
	return fb
}

func (fb *FieldBuilder) Nullable() *FieldBuilder {
	if !fb.field.PrimaryKey {
		fb.field.Nullable = true
	}
	return fb
}

func (fb *FieldBuilder) Unique() *FieldBuilder {
	fb.field.Unique = true
	return fb
}

func (fb *FieldBuilder) Default(value any) *FieldBuilder {
	fb.field.Default = value
	return fb
}

// Map stores the field under a different column name
func (fb *FieldBuilder) Map(columnName string) *FieldBuilder {
	fb.field.Map = columnName
	return fb
}

func (fb *FieldBuilder) Build() Field {
	return fb.field
}
