package engine

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-shape/flatten"
	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/meta"
	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/types"
)

type person struct {
	ID        int    `db:"id"`
	FirstName string `db:"first_name"`
	Secret    string `db:"-"`
}

func (*person) ModelName() string { return "Person" }

func (p *person) Greeting() string { return "hi " + p.FirstName }

func TestExecute(t *testing.T) {
	e := New()

	result, err := e.Execute("1 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result)

	_, err = e.Execute("var double = function(x) { return x * 2 }")
	require.NoError(t, err)

	result, err = e.Execute("double(21)")
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)

	result, err = e.Execute("({b: 1, a: [1, 'x']})")
	require.NoError(t, err)
	obj, ok := result.(*types.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, obj.Keys())
	a, _ := obj.Get("a")
	assert.Equal(t, []any{int64(1), "x"}, a)

	_, err = e.Execute("throw new Error('nope')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCompileErrors(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"empty", "   ", "empty script"},
		{"syntax", "function(", "prehook"},
		{"not a function", "42", "does not evaluate to a function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Prehook(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPrehook(t *testing.T) {
	e := New()
	p := &person{ID: 1, FirstName: "Ann", Secret: "s"}

	tests := []struct {
		name   string
		src    string
		expect any
	}{
		{"null short-circuits", "function(r) { return null }", nil},
		{"undefined short-circuits", "function(r) {}", nil},
		{"false short-circuits", "function(r) { return r.first_name === 'Bob' }", nil},
		{"true keeps input", "function(r) { return r.first_name === 'Ann' }", p},
		{"returns input", "function(r) { return r }", p},
		{"hidden field", "function(r) { return r.secret === undefined }", p},
		{"method", "function(r) { return r.greeting() === 'hi Ann' }", p},
		{"scalar replacement", "function(r) { return r.id + 1 }", int64(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, err := e.Prehook(tt.src)
			require.NoError(t, err)

			result, err := hook(p)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, result)
		})
	}
}

func TestPrehookReplacesWithMapping(t *testing.T) {
	e := New()
	hook, err := e.Prehook("function(r) { return {name: r.first_name, tags: ['a']} }")
	require.NoError(t, err)

	result, err := hook(&person{FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, types.ObjectOf("name", "Ann", "tags", []any{"a"}), result)
}

func TestPrehookError(t *testing.T) {
	e := New()
	hook, err := e.Prehook("function(r) { throw new Error('bad record') }")
	require.NoError(t, err)

	_, err = hook(&person{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prehook")
	assert.Contains(t, err.Error(), "bad record")
}

func TestPosthook(t *testing.T) {
	e := New()
	p := &person{ID: 7, FirstName: "Ann"}

	t.Run("edits in place", func(t *testing.T) {
		hook, err := e.Posthook("function(r, attrs) { attrs.greeting = r.greeting(); attrs.id = attrs.id * 10 }")
		require.NoError(t, err)

		out, err := hook(p, types.ObjectOf("id", 7, "first_name", "Ann"))
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "first_name", "greeting"}, out.Keys())
		id, _ := out.Get("id")
		assert.Equal(t, int64(70), id)
		greeting, _ := out.Get("greeting")
		assert.Equal(t, "hi Ann", greeting)
	})

	t.Run("returns replacement", func(t *testing.T) {
		hook, err := e.Posthook("function(r, attrs) { return {key: r.id, nested: attrs} }")
		require.NoError(t, err)

		out, err := hook(p, types.ObjectOf("first_name", "Ann"))
		require.NoError(t, err)
		assert.Equal(t, types.ObjectOf("key", int64(7), "nested", types.ObjectOf("first_name", "Ann")), out)
	})

	t.Run("non object result", func(t *testing.T) {
		hook, err := e.Posthook("function(r, attrs) { return 'x' }")
		require.NoError(t, err)

		_, err = hook(p, types.NewObject())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected an object")
	})
}

func TestConsoleUsesLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewDefaultLogger("test")
	l.SetOutput(&buf)

	e := New(WithLogger(l))
	_, err := e.Execute("console.log('hello from js')")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[js] hello from js")
}

func TestExecuteFile(t *testing.T) {
	e := New()
	path := t.TempDir() + "/helpers.js"
	require.NoError(t, os.WriteFile(path, []byte("function shout(s) { return s.toUpperCase() }"), 0o644))
	require.NoError(t, e.ExecuteFile(path))

	hook, err := e.Posthook("function(r, attrs) { attrs.first_name = shout(attrs.first_name) }")
	require.NoError(t, err)
	out, err := hook(nil, types.ObjectOf("first_name", "ann"))
	require.NoError(t, err)
	name, _ := out.Get("first_name")
	assert.Equal(t, "ANN", name)

	err = e.ExecuteFile(path + ".missing")
	require.Error(t, err)
}

func TestHooksInFlatten(t *testing.T) {
	e := New()
	prehook, err := e.Prehook("function(r) { return Array.isArray(r) ? r.filter(function(p) { return p.id % 2 === 1 }) : r }")
	require.NoError(t, err)
	posthook, err := e.Posthook("function(r, attrs) { attrs.first_name = attrs.first_name.toLowerCase() }")
	require.NoError(t, err)

	fl := flatten.New(flatten.WithResolver(meta.NewResolver(schema.NewRegistry())))
	people := []*person{{ID: 1, FirstName: "ANN"}, {ID: 2, FirstName: "BOB"}}

	result, err := fl.Flatten(context.Background(), people, nil, nil,
		options.WithPrehook(prehook),
		options.WithPosthook(posthook),
	)
	require.NoError(t, err)

	items, ok := result.([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, types.ObjectOf("id", int64(1), "first_name", "ann"), items[0])
}

func TestPrehookCollection(t *testing.T) {
	e := New()
	people := types.NewSlice("Person", &person{ID: 1}, &person{ID: 2}, &person{ID: 3})

	hook, err := e.Prehook("function(rs) { return rs.slice(1) }")
	require.NoError(t, err)
	out, err := hook(people)
	require.NoError(t, err)
	coll, ok := out.(types.Collection)
	require.True(t, ok)
	assert.Equal(t, "Person", coll.Model())
	records, err := coll.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].(*person).ID)

	hook, err = e.Prehook("function(rs) { return [1, 2] }")
	require.NoError(t, err)
	_, err = hook(people)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a record")
}

type loadingSlice struct {
	*types.Slice
}

func (s loadingSlice) Records(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Slice.Records(ctx)
}

func TestPrehookContextLoadsWithCallContext(t *testing.T) {
	e := New()
	people := loadingSlice{types.NewSlice("Person", &person{ID: 1}, &person{ID: 2})}

	hook, err := e.PrehookContext("function(rs) { return rs.slice(1) }")
	require.NoError(t, err)

	out, err := hook(context.Background(), people)
	require.NoError(t, err)
	assert.Equal(t, 1, out.(types.Collection).(*types.Slice).Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = hook(ctx, people)
	require.ErrorIs(t, err, context.Canceled)

	f := flatten.New(flatten.WithResolver(meta.NewResolver(schema.NewRegistry())))
	_, err = f.Flatten(ctx, people, nil, nil, options.WithPrehookContext(hook))
	require.ErrorIs(t, err, context.Canceled)
}
