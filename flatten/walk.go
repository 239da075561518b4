package flatten

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
)

// frame is one record on the active path. Re-entering an equal frame means
// the same record is being flattened with the same options again, which
// can never terminate.
type frame struct {
	identity any
	accessor string
	override *options.Override
}

// walk is the state of one flatten call. settings is the snapshot taken
// when the call started, so relations resolve against the same layer as
// the top level even if the live settings are swapped meanwhile.
type walk struct {
	ctx      context.Context
	settings options.Source
	maxDepth int
	path     []frame
}

func newWalk(ctx context.Context, settings options.Source, maxDepth int) *walk {
	if ctx == nil {
		ctx = context.Background()
	}
	return &walk{ctx: ctx, settings: settings, maxDepth: maxDepth}
}

// snapshot pins the current settings layer
func snapshot(settings options.Source) options.Source {
	if settings == nil {
		return nil
	}
	layer := settings.Override()
	return options.SourceFunc(func() *options.Override { return layer })
}

// depth is the number of relations entered below the top-level value
func (w *walk) depth() int {
	if len(w.path) == 0 {
		return 0
	}
	return len(w.path) - 1
}

func (w *walk) enter(record any, accessor string, override *options.Override) error {
	f := frame{identity: identity(record), accessor: accessor, override: override}
	if f.identity != nil {
		for _, active := range w.path {
			if active == f {
				return fmt.Errorf("%w: %s re-entered through %q", types.ErrCycle, describe(record), accessor)
			}
		}
	}
	if w.maxDepth > 0 && len(w.path) > w.maxDepth {
		return fmt.Errorf("%w: %d at %q", types.ErrMaxDepth, w.maxDepth, accessor)
	}
	w.path = append(w.path, f)
	return nil
}

func (w *walk) leave() {
	w.path = w.path[:len(w.path)-1]
}

func identity(record any) any {
	if id, ok := record.(types.Identifier); ok {
		key := id.Identity()
		if key != nil && reflect.TypeOf(key).Comparable() {
			return key
		}
		return nil
	}
	if rv := reflect.ValueOf(record); rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return record
	}
	return nil
}

func describe(v any) string {
	if r, ok := v.(types.Record); ok {
		return r.ModelName()
	}
	return fmt.Sprintf("%T", v)
}
