package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditions(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		sql  string
		args []any
	}{
		{"equals", Equals(`"name"`, "ann"), `"name" = ?`, []any{"ann"}},
		{"in", In(`"id"`, []any{1, 2}), `"id" IN (?, ?)`, []any{1, 2}},
		{"empty in", In(`"id"`, nil), "1 = 0", nil},
		{"is null", IsNull(`"tag_id"`), `"tag_id" IS NULL`, nil},
		{
			"and",
			And(Equals("a", 1), nil, Raw(""), Equals("b", 2)),
			"(a = ?) AND (b = ?)",
			[]any{1, 2},
		},
		{
			"or inside and",
			And(Or(Equals("a", 1), Equals("a", 2)), IsNull("b")),
			"((a = ?) OR (a = ?)) AND (b IS NULL)",
			[]any{1, 2},
		},
		{"not", Not(Equals("a", 1)), "NOT (a = ?)", []any{1}},
		{"double not", Not(Not(Equals("a", 1))), "a = ?", []any{1}},
		{"empty and", And(), "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.cond.ToSQL()
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}
