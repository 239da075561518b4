package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/types"
)

// Row is one stored record. Fields are read by name with Get; relation
// accessors yield a loader for to-one relations and a Manager for to-many
// ones, so related rows are only queried when they are read.
type Row struct {
	db     *DB
	schema *schema.Schema
	values map[string]any

	mu      sync.Mutex
	related map[string]*Row
}

func newRow(db *DB, s *schema.Schema, columns map[string]any) *Row {
	values := make(map[string]any, len(columns))
	for column, value := range columns {
		field, err := s.GetFieldByColumnName(column)
		if err != nil {
			values[column] = value
			continue
		}
		values[field.Name] = convertValue(field.Type, value)
	}
	return &Row{db: db, schema: s, values: values, related: make(map[string]*Row)}
}

func convertValue(fieldType schema.FieldType, value any) any {
	switch fieldType {
	case schema.FieldTypeBool:
		switch v := value.(type) {
		case int64:
			return v != 0
		case string:
			return v == "1" || strings.EqualFold(v, "true")
		}
	case schema.FieldTypeJSON:
		if s, ok := value.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	}
	return value
}

func (r *Row) ModelName() string {
	return r.schema.Name
}

type rowIdentity struct {
	model string
	key   string
}

// Identity is the model name and primary key, so a row loaded twice is
// recognised as the same record.
func (r *Row) Identity() any {
	fields := r.schema.PrimaryKeyFields()
	parts := make([]string, len(fields))
	for i, name := range fields {
		parts[i] = fmt.Sprint(r.values[name])
	}
	return rowIdentity{model: r.schema.Name, key: strings.Join(parts, "\x00")}
}

// Values returns a copy of the row's field values
func (r *Row) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Row) Get(name string) (any, bool) {
	if v, ok := r.values[name]; ok {
		return v, true
	}
	if _, err := r.schema.GetField(name); err == nil {
		return nil, true
	}
	if !r.schema.HasRelation(name) {
		return nil, false
	}

	rel, err := r.db.registry.Relation(r.schema.Name, name)
	if err != nil {
		return func(context.Context) (any, error) {
			return nil, fmt.Errorf("relation %s.%s: %w", r.schema.Name, name, err)
		}, true
	}
	if rel.IsToMany() {
		return &Manager{row: r, accessor: name, relation: rel}, true
	}
	return func(ctx context.Context) (*Row, error) {
		return r.loadRelated(ctx, name, rel)
	}, true
}

func (r *Row) cached(accessor string) (*Row, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.related[accessor]
	return row, ok
}

func (r *Row) setRelated(accessor string, row *Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.related[accessor] = row
}

func (r *Row) loadRelated(ctx context.Context, accessor string, rel schema.Relation) (*Row, error) {
	if row, ok := r.cached(accessor); ok {
		return row, nil
	}

	target, err := r.db.registry.GetSchema(rel.Model)
	if err != nil {
		return nil, err
	}
	ownerField, targetField := toOneKeys(r.schema, rel)
	value := r.values[ownerField]
	if value == nil {
		r.setRelated(accessor, nil)
		return nil, nil
	}

	column, err := target.GetColumnNameByFieldName(targetField)
	if err != nil {
		return nil, fmt.Errorf("relation %s.%s: %w", r.schema.Name, accessor, err)
	}
	qs := (&QuerySet{db: r.db, schema: target}).Where(Equals(r.db.dialect.quote(column), value))
	records, err := qs.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("relation %s.%s: %w", r.schema.Name, accessor, err)
	}

	var row *Row
	if len(records) > 0 {
		row = records[0].(*Row)
	}
	r.setRelated(accessor, row)
	return row, nil
}

// toOneKeys returns the owner field and the target field joined by a to-one
// relation. The foreign key sits on the owner unless the owner lacks it.
func toOneKeys(owner *schema.Schema, rel schema.Relation) (ownerField, targetField string) {
	if _, err := owner.GetField(rel.ForeignKey); err == nil {
		return rel.ForeignKey, rel.References
	}
	return rel.References, rel.ForeignKey
}

// Manager reads the rows on the many side of a relation
type Manager struct {
	row      *Row
	accessor string
	relation schema.Relation
}

func (m *Manager) All(ctx context.Context) (types.Collection, error) {
	return m.QuerySet()
}

// QuerySet returns the related rows as a query that can be narrowed further
func (m *Manager) QuerySet() (*QuerySet, error) {
	db := m.row.db
	target, err := db.registry.GetSchema(m.relation.Model)
	if err != nil {
		return nil, err
	}
	qs := &QuerySet{db: db, schema: target}

	switch m.relation.Type {
	case schema.RelationOneToMany:
		value := m.row.values[m.relation.References]
		if value == nil {
			return qs.Where(Raw("1 = 0")), nil
		}
		column, err := target.GetColumnNameByFieldName(m.relation.ForeignKey)
		if err != nil {
			return nil, err
		}
		return qs.Where(Equals(db.dialect.quote(column), value)), nil

	case schema.RelationManyToMany:
		ownerKey, err := m.row.schema.GetPrimaryKey()
		if err != nil {
			return nil, err
		}
		targetKey, err := target.GetPrimaryKey()
		if err != nil {
			return nil, err
		}
		q := db.dialect.quote
		return qs.Where(Raw(
			fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s = ?)",
				q(targetKey.GetColumnName()), q(m.relation.References), q(m.relation.Through), q(m.relation.ForeignKey)),
			m.row.values[ownerKey.Name],
		)), nil

	default:
		return nil, fmt.Errorf("relation %s.%s is not to-many", m.row.schema.Name, m.accessor)
	}
}
