package schema

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/rediwo/redi-shape/utils"
)

type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeInt      FieldType = "int"
	FieldTypeInt64    FieldType = "int64"
	FieldTypeFloat    FieldType = "float"
	FieldTypeBool     FieldType = "bool"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeJSON     FieldType = "json"
)

type Field struct {
	Name          string
	Type          FieldType
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	Default       any
	Map           string // Column name mapping
}

// GetColumnName returns the database column name for this field
func (f Field) GetColumnName() string {
	if f.Map != "" {
		return f.Map
	}
	return utils.ToSnakeCase(f.Name)
}

type RelationType string

const (
	RelationOneToOne   RelationType = "oneToOne"
	RelationOneToMany  RelationType = "oneToMany"
	RelationManyToOne  RelationType = "manyToOne"
	RelationManyToMany RelationType = "manyToMany"
)

// Relation describes a named accessor pointing at another model.
//
// For manyToOne and forward oneToOne relations ForeignKey is a field on the
// owning model and References a field on Model. For oneToMany and reverse
// oneToOne relations ForeignKey is a field on Model and References a field on
// the owning model. For manyToMany relations ForeignKey and References are
// junction table columns pointing at the owner and at Model respectively.
type Relation struct {
	Type       RelationType
	Model      string
	ForeignKey string
	References string
	Through    string
	Reverse    bool
	OnDelete   string
	OnUpdate   string
}

// IsToMany reports whether the accessor yields a collection
func (r Relation) IsToMany() bool {
	return r.Type == RelationOneToMany || r.Type == RelationManyToMany
}

type Schema struct {
	Name         string
	TableName    string
	Fields       []Field
	Relations    map[string]Relation
	CompositeKey []string

	relationOrder []string
}

func New(name string) *Schema {
	return &Schema{
		Name:      name,
		TableName: ModelNameToTableName(name),
		Fields:    []Field{},
		Relations: make(map[string]Relation),
	}
}

// ModelNameToTableName converts model name to default table name (pluralized, snake_case)
func ModelNameToTableName(modelName string) string {
	return utils.Pluralize(utils.ToSnakeCase(modelName))
}

func (s *Schema) WithTableName(name string) *Schema {
	s.TableName = name
	return s
}

func (s *Schema) AddField(field Field) *Schema {
	s.Fields = append(s.Fields, field)
	return s
}

// AddRelation registers a relation accessor. Declaration order is kept and
// drives the order of the relation accessors in field categories.
func (s *Schema) AddRelation(name string, relation Relation) *Schema {
	if s.Relations == nil {
		s.Relations = make(map[string]Relation)
	}
	if _, exists := s.Relations[name]; !exists {
		s.relationOrder = append(s.relationOrder, name)
	}
	s.Relations[name] = relation
	return s
}

func (s *Schema) WithCompositeKey(fields []string) *Schema {
	s.CompositeKey = fields
	return s
}

func (s *Schema) GetField(name string) (*Field, error) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("field %s not found", name)
}

func (s *Schema) GetPrimaryKey() (*Field, error) {
	for i := range s.Fields {
		if s.Fields[i].PrimaryKey {
			return &s.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("no primary key found")
}

// PrimaryKeyFields returns the identity field names: the single primary key
// field, or the composite key fields in declaration order.
func (s *Schema) PrimaryKeyFields() []string {
	if pk, err := s.GetPrimaryKey(); err == nil {
		return []string{pk.Name}
	}
	return append([]string(nil), s.CompositeKey...)
}

// FieldNames returns the scalar field names in declaration order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RelationNames returns relation accessors in declaration order. Relations
// written straight into the map come last, sorted by name.
func (s *Schema) RelationNames() []string {
	names := make([]string, 0, len(s.Relations))
	seen := make(map[string]bool, len(s.Relations))
	for _, name := range s.relationOrder {
		if _, ok := s.Relations[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range s.Relations {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(names, rest...)
}

// IsReverseRelation reports whether the named relation sits on the reverse
// side: oneToMany, relations flagged Reverse, and oneToOne relations whose
// foreign key is not a field of this schema.
func (s *Schema) IsReverseRelation(name string) bool {
	rel, ok := s.Relations[name]
	if !ok {
		return false
	}
	switch rel.Type {
	case RelationOneToMany:
		return true
	case RelationOneToOne:
		if rel.Reverse {
			return true
		}
		_, err := s.GetField(rel.ForeignKey)
		return err != nil
	default:
		return rel.Reverse
	}
}

func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	if s.TableName == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema must have at least one field")
	}

	hasSinglePrimaryKey := false
	hasCompositePrimaryKey := len(s.CompositeKey) > 0

	for _, field := range s.Fields {
		if field.PrimaryKey {
			if hasSinglePrimaryKey {
				return fmt.Errorf("schema can only have one single-field primary key")
			}
			if hasCompositePrimaryKey {
				return fmt.Errorf("schema cannot have both single and composite primary keys")
			}
			hasSinglePrimaryKey = true
		}
	}

	if hasCompositePrimaryKey {
		for _, keyField := range s.CompositeKey {
			if _, err := s.GetField(keyField); err != nil {
				return fmt.Errorf("composite key field %s not found", keyField)
			}
		}
	}

	if !hasSinglePrimaryKey && !hasCompositePrimaryKey {
		return fmt.Errorf("schema must have a primary key (single field or composite)")
	}

	for name := range s.Relations {
		if _, err := s.GetField(name); err == nil {
			return fmt.Errorf("relation %s shadows a field of the same name", name)
		}
	}

	return nil
}

// GetColumnNameByFieldName returns the database column name for a given schema field name
func (s *Schema) GetColumnNameByFieldName(fieldName string) (string, error) {
	field, err := s.GetField(fieldName)
	if err != nil {
		return "", err
	}
	return field.GetColumnName(), nil
}

// GetFieldByColumnName returns a field by its database column name
func (s *Schema) GetFieldByColumnName(columnName string) (*Field, error) {
	for i := range s.Fields {
		if s.Fields[i].GetColumnName() == columnName {
			return &s.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("field with column name %s not found", columnName)
}

// MapFieldNamesToColumns converts a slice of schema field names to database column names
func (s *Schema) MapFieldNamesToColumns(fieldNames []string) ([]string, error) {
	columnNames := make([]string, len(fieldNames))
	for i, fieldName := range fieldNames {
		columnName, err := s.GetColumnNameByFieldName(fieldName)
		if err != nil {
			return nil, fmt.Errorf("failed to map field %s: %w", fieldName, err)
		}
		columnNames[i] = columnName
	}
	return columnNames, nil
}

// MapSchemaDataToColumns converts data with schema field names to data with database column names
func (s *Schema) MapSchemaDataToColumns(data map[string]any) (map[string]any, error) {
	mapped := make(map[string]any, len(data))
	for fieldName, value := range data {
		columnName, err := s.GetColumnNameByFieldName(fieldName)
		if err != nil {
			return nil, fmt.Errorf("failed to map field %s: %w", fieldName, err)
		}
		mapped[columnName] = value
	}
	return mapped, nil
}

// MapColumnDataToSchema converts data with database column names to data with
// schema field names. Unknown columns keep their name.
func (s *Schema) MapColumnDataToSchema(data map[string]any) map[string]any {
	mapped := make(map[string]any, len(data))
	for columnName, value := range data {
		if field, err := s.GetFieldByColumnName(columnName); err == nil {
			mapped[field.Name] = value
			continue
		}
		mapped[columnName] = value
	}
	return mapped
}

func (s *Schema) HasRelation(relationName string) bool {
	_, exists := s.Relations[relationName]
	return exists
}

func (s *Schema) GetRelation(relationName string) (Relation, error) {
	relation, exists := s.Relations[relationName]
	if !exists {
		return Relation{}, fmt.Errorf("relation %s not found", relationName)
	}
	return relation, nil
}

func FieldTypeFromGo(t reflect.Type) FieldType {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return FieldTypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return FieldTypeInt
	case reflect.Int64, reflect.Uint64:
		return FieldTypeInt64
	case reflect.Float32, reflect.Float64:
		return FieldTypeFloat
	case reflect.Bool:
		return FieldTypeBool
	case reflect.Struct:
		if t.PkgPath() == "time" && t.Name() == "Time" {
			return FieldTypeDateTime
		}
		return FieldTypeJSON
	case reflect.Map, reflect.Slice:
		return FieldTypeJSON
	default:
		return FieldTypeString
	}
}
