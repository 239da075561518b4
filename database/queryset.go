package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/types"
)

// QuerySet is a lazy query over one model. Narrowing methods return a new
// QuerySet; nothing is read until Records or ValuesList.
type QuerySet struct {
	db      *DB
	schema  *schema.Schema
	where   []Condition
	order   []string
	related []string
}

func (q *QuerySet) clone() *QuerySet {
	c := *q
	c.where = append([]Condition(nil), q.where...)
	c.order = append([]string(nil), q.order...)
	c.related = append([]string(nil), q.related...)
	return &c
}

func (q *QuerySet) Model() string {
	return q.schema.Name
}

// Where narrows the rows by raw conditions
func (q *QuerySet) Where(conditions ...Condition) *QuerySet {
	c := q.clone()
	c.where = append(c.where, conditions...)
	return c
}

// OrderBy sorts by field names; a leading - sorts descending. Without it
// rows come back in primary key order.
func (q *QuerySet) OrderBy(fields ...string) *QuerySet {
	c := q.clone()
	c.order = append(c.order, fields...)
	return c
}

// Filter narrows the rows by equality criteria keyed by field or to-one
// relation name. nil matches NULL and slices match any of their elements.
func (q *QuerySet) Filter(ctx context.Context, criteria map[string]any) (types.Collection, error) {
	keys := make([]string, 0, len(criteria))
	for key := range criteria {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(keys))
	for _, key := range keys {
		column, convert, err := q.criteriaColumn(key)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, q.match(column, criteria[key], convert))
	}
	return q.Where(conditions...), nil
}

// criteriaColumn resolves a criteria key to a quoted column. Keys naming a
// to-one relation compare its foreign key, and rows given as values are
// replaced by their referenced field.
func (q *QuerySet) criteriaColumn(key string) (string, func(any) any, error) {
	identity := func(v any) any { return v }

	if field, err := q.schema.GetField(key); err == nil {
		return q.db.dialect.quote(field.GetColumnName()), identity, nil
	}

	if rel, err := q.db.registry.Relation(q.schema.Name, key); err == nil && !rel.IsToMany() {
		ownerField, targetField := toOneKeys(q.schema, rel)
		if field, err := q.schema.GetField(ownerField); err == nil && ownerField == rel.ForeignKey {
			convert := func(v any) any {
				if row, ok := v.(*Row); ok {
					return row.values[targetField]
				}
				return v
			}
			return q.db.dialect.quote(field.GetColumnName()), convert, nil
		}
	}

	return "", nil, fmt.Errorf("%w: %q on %s", types.ErrFieldNotFound, key, q.schema.Name)
}

func (q *QuerySet) match(column string, value any, convert func(any) any) Condition {
	if value == nil {
		return IsNull(column)
	}
	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = convert(rv.Index(i).Interface())
		}
		return In(column, values)
	}
	return Equals(column, convert(value))
}

// SelectRelated preloads the named to-one relations with one query each
// when the rows are read. To-many accessors are left to load lazily.
func (q *QuerySet) SelectRelated(ctx context.Context, accessors ...string) (types.Collection, error) {
	c := q.clone()
	for _, accessor := range accessors {
		rel, err := q.db.registry.Relation(q.schema.Name, accessor)
		if err != nil {
			return nil, fmt.Errorf("select related %s.%s: %w", q.schema.Name, accessor, err)
		}
		if rel.IsToMany() {
			q.db.logger.Debug("Skipping select related for to-many %s.%s", q.schema.Name, accessor)
			continue
		}
		c.related = append(c.related, accessor)
	}
	return c, nil
}

// ValuesList reads only the columns of the named fields
func (q *QuerySet) ValuesList(ctx context.Context, accessors []string) ([][]any, error) {
	fields := make([]*schema.Field, len(accessors))
	columns := make([]string, 0, len(accessors))
	seen := make(map[string]bool)
	for i, accessor := range accessors {
		field, err := q.schema.GetField(accessor)
		if err != nil {
			return nil, fmt.Errorf("%w: %q on %s", types.ErrFieldNotFound, accessor, q.schema.Name)
		}
		fields[i] = field
		if column := field.GetColumnName(); !seen[column] {
			seen[column] = true
			columns = append(columns, column)
		}
	}

	query, args, err := q.selectSQL(columns)
	if err != nil {
		return nil, err
	}
	raw, err := q.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.schema.Name, err)
	}

	out := make([][]any, len(raw))
	for i, columns := range raw {
		row := make([]any, len(fields))
		for j, field := range fields {
			row[j] = convertValue(field.Type, columns[field.GetColumnName()])
		}
		out[i] = row
	}
	return out, nil
}

func (q *QuerySet) Records(ctx context.Context) ([]types.Record, error) {
	query, args, err := q.selectSQL(nil)
	if err != nil {
		return nil, err
	}
	raw, err := q.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.schema.Name, err)
	}
	records := q.db.rowsFor(q.schema, raw)

	for _, accessor := range q.related {
		if err := q.preload(ctx, records, accessor); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// First returns the first row, or nil when there is none
func (q *QuerySet) First(ctx context.Context) (*Row, error) {
	records, err := q.Records(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0].(*Row), nil
}

func (q *QuerySet) preload(ctx context.Context, records []types.Record, accessor string) error {
	rel, err := q.db.registry.Relation(q.schema.Name, accessor)
	if err != nil {
		return err
	}
	target, err := q.db.registry.GetSchema(rel.Model)
	if err != nil {
		return err
	}
	ownerField, targetField := toOneKeys(q.schema, rel)
	column, err := target.GetColumnNameByFieldName(targetField)
	if err != nil {
		return fmt.Errorf("select related %s.%s: %w", q.schema.Name, accessor, err)
	}

	var values []any
	seen := make(map[string]bool)
	for _, rec := range records {
		value := rec.(*Row).values[ownerField]
		if value == nil || seen[fmt.Sprint(value)] {
			continue
		}
		seen[fmt.Sprint(value)] = true
		values = append(values, value)
	}

	index := make(map[string]*Row)
	if len(values) > 0 {
		related, err := (&QuerySet{db: q.db, schema: target}).Where(In(q.db.dialect.quote(column), values)).Records(ctx)
		if err != nil {
			return fmt.Errorf("select related %s.%s: %w", q.schema.Name, accessor, err)
		}
		for _, rec := range related {
			row := rec.(*Row)
			index[fmt.Sprint(row.values[targetField])] = row
		}
	}

	for _, rec := range records {
		row := rec.(*Row)
		value := row.values[ownerField]
		if value == nil {
			row.setRelated(accessor, nil)
			continue
		}
		row.setRelated(accessor, index[fmt.Sprint(value)])
	}
	return nil
}

func (q *QuerySet) selectSQL(columns []string) (string, []any, error) {
	quote := q.db.dialect.quote

	selected := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, column := range columns {
			quoted[i] = quote(column)
		}
		selected = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selected, quote(q.schema.TableName))

	where, args := And(q.where...).ToSQL()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	order := q.order
	if len(order) == 0 {
		order = q.schema.PrimaryKeyFields()
	}
	if len(order) > 0 {
		terms := make([]string, len(order))
		for i, name := range order {
			direction := "ASC"
			if strings.HasPrefix(name, "-") {
				name, direction = name[1:], "DESC"
			}
			column, err := q.schema.GetColumnNameByFieldName(name)
			if err != nil {
				return "", nil, fmt.Errorf("order by: %w", err)
			}
			terms[i] = quote(column) + " " + direction
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	return sb.String(), args, nil
}
