package flatten

import (
	"sort"

	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
)

// AliasPair maps an output alias back to its accessor
type AliasPair struct {
	Alias    string
	Accessor string
}

// Unalias renames alias keys of data to their accessors in place, so
// flattened data can be written back under storage field names. Missing
// alias keys are skipped.
func Unalias(data *types.Object, pairs ...AliasPair) *types.Object {
	for _, p := range pairs {
		value, ok := data.Get(p.Alias)
		if !ok {
			continue
		}
		data.Delete(p.Alias)
		data.Set(p.Accessor, value)
	}
	return data
}

// UnaliasMap is Unalias for plain maps
func UnaliasMap(data map[string]any, pairs ...AliasPair) map[string]any {
	for _, p := range pairs {
		value, ok := data[p.Alias]
		if !ok {
			continue
		}
		delete(data, p.Alias)
		data[p.Accessor] = value
	}
	return data
}

// Pairs returns the alias pairs of an alias map sorted by alias
func Pairs(aliases map[string]string) []AliasPair {
	pairs := make([]AliasPair, 0, len(aliases))
	for alias, accessor := range aliases {
		pairs = append(pairs, AliasPair{Alias: alias, Accessor: accessor})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Alias < pairs[j].Alias })
	return pairs
}

// Restore renames data's keys using the aliases of the options resolved from
// the engine's settings and opts.
func (e *Engine) Restore(data *types.Object, opts ...options.Option) (*types.Object, error) {
	o, err := options.New(e.settings, opts...)
	if err != nil {
		return nil, err
	}
	return Unalias(data, Pairs(o.Aliases())...), nil
}
