package options

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-shape/types"
)

func TestResolve_Defaults(t *testing.T) {
	o, err := Resolve()
	require.NoError(t, err)

	assert.Empty(t, o.Fields())
	assert.Empty(t, o.Exclude())
	assert.Empty(t, o.Aliases())
	assert.False(t, o.AllowMissing())
	assert.False(t, o.CamelCase())
	assert.Equal(t, "", o.Prefix().String())
	assert.False(t, o.ValuesList())
	assert.True(t, o.Flat())
	assert.False(t, o.Merge())
	assert.Equal(t, 0, o.MaxDepth())
	assert.Nil(t, o.Prehook())
	assert.Nil(t, o.Posthook())
	assert.Nil(t, o.Process())
	assert.Nil(t, o.Related("tag"))
}

func TestResolve_LayerPriority(t *testing.T) {
	settings := Build(
		WithCamelCase(true),
		WithPrefix("s_"),
		WithAliases(map[string]string{"a": "b", "c": "d"}),
	)
	call := Build(
		WithPrefix("c_"),
		WithAliases(map[string]string{"x": "y"}),
	)

	o, err := Resolve(settings, call)
	require.NoError(t, err)

	assert.True(t, o.CamelCase(), "settings value survives when call site leaves it unset")
	assert.Equal(t, "c_", o.Prefix().String())
	assert.Equal(t, map[string]string{"x": "y"}, o.Aliases(), "maps replace, never merge")
}

func TestResolve_NilLayers(t *testing.T) {
	o, err := Resolve(nil, Build(WithFlat(false)), nil)
	require.NoError(t, err)
	assert.False(t, o.Flat())
}

func TestResolve_InvalidPrefix(t *testing.T) {
	for _, prefix := range []string{"{name}_", "{accessor", "a}b", "{}"} {
		t.Run(prefix, func(t *testing.T) {
			_, err := Resolve(Build(WithPrefix(prefix)))
			assert.True(t, errors.Is(err, types.ErrInvalidPrefix))
		})
	}
}

func TestResolve_NegativeDepth(t *testing.T) {
	_, err := Resolve(Build(WithMaxDepth(-1)))
	assert.ErrorContains(t, err, "max_depth")
}

func TestResolve_Immutable(t *testing.T) {
	call := Build(WithFields("a", "b"), WithAlias("a", "x"))
	o, err := Resolve(call)
	require.NoError(t, err)

	call.Fields[0] = "changed"
	call.Aliases["a"] = "changed"
	fields := o.Fields()
	fields[1] = "changed"
	aliases := o.Aliases()
	aliases["a"] = "changed"

	assert.Equal(t, []string{"a", "b"}, o.Fields())
	assert.Equal(t, "x", o.Accessor("a"))
}

func TestOptions_Accessor(t *testing.T) {
	o, err := New(nil, WithAlias("title", "name"))
	require.NoError(t, err)

	assert.Equal(t, "name", o.Accessor("title"))
	assert.Equal(t, "id", o.Accessor("id"))
}

func TestOptions_Key(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		alias    string
		expected string
	}{
		{"plain", nil, "first_name", "first_name"},
		{"prefix", []Option{WithPrefix("user_")}, "name", "user_name"},
		{"camelcase", []Option{WithCamelCase(true)}, "first_name", "firstName"},
		{"camelcase keeps upper segments", []Option{WithCamelCase(true)}, "user_ID", "user_ID"},
		{"camelcase no underscore", []Option{WithCamelCase(true)}, "name", "name"},
		{"prefix then camelcase", []Option{WithPrefix("tag_"), WithCamelCase(true)}, "label", "tagLabel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(nil, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, o.Key(tt.alias))
		})
	}
}

func TestOptions_Child(t *testing.T) {
	settings := SourceFunc(func() *Override { return Build(WithCamelCase(true)) })

	parent, err := New(settings,
		WithFields("id", "tag"),
		WithMerge(true),
		WithPrefix("p_"),
		WithRelated("tag", WithFields("label"), WithPrefix("{accessor}_")),
		WithRelated("other", WithFields("x")),
	)
	require.NoError(t, err)

	child, err := parent.Child("tag", "badge", settings)
	require.NoError(t, err)

	assert.Equal(t, []string{"label"}, child.Fields())
	assert.Equal(t, "badge_", child.Prefix().String())
	assert.True(t, child.CamelCase(), "settings layer applies to relations")
	assert.False(t, child.Merge(), "parent values are not inherited")
	assert.Nil(t, child.Related("other"), "sibling overrides are not inherited")

	bare, err := parent.Child("missing", "missing", nil)
	require.NoError(t, err)
	assert.Empty(t, bare.Fields())
	assert.Equal(t, "", bare.Prefix().String())
}

func TestOptions_ChildInvalidPrefix(t *testing.T) {
	parent, err := New(nil, WithRelated("tag", WithPrefix("{label}")))
	require.NoError(t, err)

	_, err = parent.Child("tag", "tag", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidPrefix))
}

func TestOptions_RelatedIdentity(t *testing.T) {
	parent, err := New(nil, WithRelated("parent", WithFields("id", "parent")))
	require.NoError(t, err)

	rel := parent.Related("parent")
	require.NotNil(t, rel)

	child, err := parent.Child("parent", "parent", nil)
	require.NoError(t, err)
	assert.Nil(t, child.Related("parent"))
}

func TestOptions_WithFields(t *testing.T) {
	o, err := New(nil, WithFields("a"), WithExclude("b"))
	require.NoError(t, err)

	c := o.WithFields([]string{"x", "y"}, nil)
	assert.Equal(t, []string{"x", "y"}, c.Fields())
	assert.Equal(t, []string{"b"}, c.Exclude())
	assert.Equal(t, []string{"a"}, o.Fields())
}

func TestCriteriaAndPrehookVariants(t *testing.T) {
	o, err := New(nil, WithCriteria(map[string]any{"active": true}))
	require.NoError(t, err)
	criteria, ok := o.Prehook().(Criteria)
	require.True(t, ok)
	assert.Equal(t, Criteria{"active": true}, criteria)

	o, err = New(nil, WithPrehook(func(in any) (any, error) { return nil, nil }))
	require.NoError(t, err)
	_, ok = o.Prehook().(PrehookFunc)
	assert.True(t, ok)

	o, err = New(nil, WithPrehookContext(func(ctx context.Context, in any) (any, error) { return in, nil }))
	require.NoError(t, err)
	_, ok = o.Prehook().(PrehookContextFunc)
	assert.True(t, ok)
}

func TestOverride_Apply(t *testing.T) {
	base := Build(WithFields("a"), WithFlat(false), WithRelated("r", WithFields("x")))
	top := Build(WithMerge(true))

	merged := base.Apply(top)
	assert.Equal(t, []string{"a"}, merged.Fields)
	assert.False(t, *merged.Flat)
	assert.True(t, *merged.Merge)
	assert.Same(t, base.Related["r"], merged.Related["r"])

	assert.Nil(t, base.Merge, "apply does not modify the receiver")

	var empty *Override
	assert.NotNil(t, empty.Apply(nil))
}

func TestWithOverride(t *testing.T) {
	parsed := Build(WithFields("id"), WithCamelCase(true))
	o := Build(WithFields("name"), WithPrefix("x_"), WithOverride(parsed))

	assert.Equal(t, []string{"id"}, o.Fields)
	assert.Equal(t, "x_", *o.Prefix)
	assert.True(t, *o.Camelcase)
}
