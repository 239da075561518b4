package database

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/rediwo/redi-shape/schema"
)

// dialect holds the per-driver SQL differences
type dialect string

func (d dialect) quote(name string) string {
	switch d {
	case DriverPostgreSQL:
		return pq.QuoteIdentifier(name)
	case DriverMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

func (d dialect) columnType(field schema.Field) string {
	switch d {
	case DriverPostgreSQL:
		if field.PrimaryKey && field.AutoIncrement {
			if field.Type == schema.FieldTypeInt64 {
				return "BIGSERIAL"
			}
			return "SERIAL"
		}
		switch field.Type {
		case schema.FieldTypeInt:
			return "INTEGER"
		case schema.FieldTypeInt64:
			return "BIGINT"
		case schema.FieldTypeFloat:
			return "DOUBLE PRECISION"
		case schema.FieldTypeBool:
			return "BOOLEAN"
		case schema.FieldTypeDateTime:
			return "TIMESTAMP"
		case schema.FieldTypeJSON:
			return "JSONB"
		default:
			return "TEXT"
		}

	case DriverMySQL:
		switch field.Type {
		case schema.FieldTypeInt:
			return "INT"
		case schema.FieldTypeInt64:
			return "BIGINT"
		case schema.FieldTypeFloat:
			return "DOUBLE"
		case schema.FieldTypeBool:
			return "BOOLEAN"
		case schema.FieldTypeDateTime:
			return "DATETIME"
		case schema.FieldTypeJSON:
			return "JSON"
		default:
			return "VARCHAR(255)"
		}

	default:
		switch field.Type {
		case schema.FieldTypeInt, schema.FieldTypeInt64, schema.FieldTypeBool:
			return "INTEGER"
		case schema.FieldTypeFloat:
			return "REAL"
		case schema.FieldTypeDateTime:
			return "DATETIME"
		default:
			return "TEXT"
		}
	}
}

func (d dialect) columnSQL(field schema.Field) string {
	parts := []string{d.quote(field.GetColumnName()), d.columnType(field)}

	if field.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
		if field.AutoIncrement {
			switch d {
			case DriverSQLite:
				parts = append(parts, "AUTOINCREMENT")
			case DriverMySQL:
				parts = append(parts, "AUTO_INCREMENT")
			}
		}
	}
	if !field.Nullable && !field.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if field.Unique && !field.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	if field.Default != nil {
		parts = append(parts, "DEFAULT "+d.literal(field.Default))
	}
	return strings.Join(parts, " ")
}

func (d dialect) literal(value any) string {
	switch v := value.(type) {
	case string:
		if upper := strings.ToUpper(strings.TrimSpace(v)); upper == "NOW()" || upper == "CURRENT_TIMESTAMP" {
			return "CURRENT_TIMESTAMP"
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if d == DriverPostgreSQL {
			if v {
				return "TRUE"
			}
			return "FALSE"
		}
		if v {
			return "1"
		}
		return "0"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", value)
	}
}

// createTableSQL renders CREATE TABLE for s. Composite keys become a table
// level PRIMARY KEY constraint.
func (d dialect) createTableSQL(s *schema.Schema) string {
	columns := make([]string, 0, len(s.Fields)+1)
	for _, field := range s.Fields {
		columns = append(columns, d.columnSQL(field))
	}
	if len(s.CompositeKey) > 0 {
		keys := make([]string, len(s.CompositeKey))
		for i, name := range s.CompositeKey {
			column, err := s.GetColumnNameByFieldName(name)
			if err != nil {
				column = name
			}
			keys[i] = d.quote(column)
		}
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		d.quote(s.TableName), strings.Join(columns, ",\n  "))
}

// junctionTableSQL renders the table backing a manyToMany relation
func (d dialect) junctionTableSQL(rel schema.Relation, ownerKey, relatedKey schema.Field) string {
	ownerCol := schema.Field{Name: rel.ForeignKey, Type: ownerKey.Type}
	relatedCol := schema.Field{Name: rel.References, Type: relatedKey.Type}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s %s NOT NULL,\n  %s %s NOT NULL,\n  PRIMARY KEY (%s, %s)\n)",
		d.quote(rel.Through),
		d.quote(rel.ForeignKey), d.columnType(ownerCol),
		d.quote(rel.References), d.columnType(relatedCol),
		d.quote(rel.ForeignKey), d.quote(rel.References))
}
