package database

import (
	"fmt"
	"strings"
)

// Condition is a WHERE clause fragment with ? placeholders
type Condition interface {
	ToSQL() (string, []any)
}

// RawCondition is a literal SQL fragment
type RawCondition struct {
	SQL  string
	Args []any
}

func Raw(sql string, args ...any) RawCondition {
	return RawCondition{SQL: sql, Args: args}
}

func (c RawCondition) ToSQL() (string, []any) {
	return c.SQL, c.Args
}

// AndCondition represents AND logic
type AndCondition struct {
	Conditions []Condition
}

func And(conditions ...Condition) *AndCondition {
	return &AndCondition{Conditions: conditions}
}

func (c *AndCondition) ToSQL() (string, []any) {
	return join(c.Conditions, " AND ")
}

// OrCondition represents OR logic
type OrCondition struct {
	Conditions []Condition
}

func Or(conditions ...Condition) *OrCondition {
	return &OrCondition{Conditions: conditions}
}

func (c *OrCondition) ToSQL() (string, []any) {
	return join(c.Conditions, " OR ")
}

// NotCondition represents NOT logic
type NotCondition struct {
	Condition Condition
}

func Not(condition Condition) Condition {
	if not, ok := condition.(*NotCondition); ok {
		return not.Condition
	}
	return &NotCondition{Condition: condition}
}

func (c *NotCondition) ToSQL() (string, []any) {
	sql, args := c.Condition.ToSQL()
	if sql == "" {
		return "", nil
	}
	return fmt.Sprintf("NOT (%s)", sql), args
}

func join(conditions []Condition, sep string) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for _, condition := range conditions {
		if condition == nil {
			continue
		}
		sql, condArgs := condition.ToSQL()
		if sql != "" {
			parts = append(parts, fmt.Sprintf("(%s)", sql))
			args = append(args, condArgs...)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, sep), args
}

// Equals compares a quoted column with a value
func Equals(column string, value any) Condition {
	return Raw(column+" = ?", value)
}

// In matches a quoted column against any of values. No values never matches.
func In(column string, values []any) Condition {
	if len(values) == 0 {
		return Raw("1 = 0")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return Raw(fmt.Sprintf("%s IN (%s)", column, placeholders), values...)
}

func IsNull(column string) Condition {
	return Raw(column + " IS NULL")
}
