package flatten

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
)

func TestUnalias(t *testing.T) {
	data := types.ObjectOf("id", 1, "title", "a", "owner", 2)

	out := Unalias(data,
		AliasPair{Alias: "title", Accessor: "name"},
		AliasPair{Alias: "missing", Accessor: "other"},
	)
	assert.Same(t, data, out)
	assert.Equal(t, []string{"id", "owner", "name"}, out.Keys())
	_, ok := out.Get("other")
	assert.False(t, ok)
}

func TestUnaliasMap(t *testing.T) {
	data := map[string]any{"title": "a", "id": 1}

	out := UnaliasMap(data, AliasPair{Alias: "title", Accessor: "name"}, AliasPair{Alias: "gone", Accessor: "x"})
	assert.Equal(t, map[string]any{"name": "a", "id": 1}, out)
}

func TestPairs(t *testing.T) {
	pairs := Pairs(map[string]string{"b": "y", "a": "x"})
	assert.Equal(t, []AliasPair{{Alias: "a", Accessor: "x"}, {Alias: "b", Accessor: "y"}}, pairs)
	assert.Empty(t, Pairs(nil))
}

func TestEngine_Restore(t *testing.T) {
	e := newEngine(t)
	aliases := map[string]string{"x": "name", "tagLabel": "label"}

	out, err := e.Flatten(context.Background(), sampleUser(), []string{"id", "x"}, nil, options.WithAliases(aliases))
	require.NoError(t, err)

	restored, err := e.Restore(out.(*types.Object), options.WithAliases(aliases))
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"a"}`, toJSON(t, restored))
}

func TestDefaultEngine(t *testing.T) {
	ResetDefault()
	defer ResetDefault()

	first := Default()
	require.NotNil(t, first)
	assert.Same(t, first, Default())

	custom := newEngine(t)
	SetDefault(custom)
	assert.Same(t, custom, Default())

	out, err := Flatten(context.Background(), map[string]any{"a": 1}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, toJSON(t, out))

	restored, err := Restore(types.ObjectOf("t", 1), options.WithAlias("t", "title"))
	require.NoError(t, err)
	assert.Equal(t, `{"title":1}`, toJSON(t, restored))

	ResetDefault()
	assert.NotSame(t, custom, Default())
}
