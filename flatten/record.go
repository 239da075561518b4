package flatten

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
)

// edge is the relation a nested value was reached through
type edge struct {
	accessor string
	override *options.Override
}

// runPrehook applies a function prehook to input. ok is false when hook is
// not a function.
func runPrehook(ctx context.Context, hook options.Prehook, input any) (out any, ok bool, err error) {
	switch fn := hook.(type) {
	case options.PrehookFunc:
		out, err = fn(input)
		return out, true, err
	case options.PrehookContextFunc:
		out, err = fn(ctx, input)
		return out, true, err
	}
	return nil, false, nil
}

// flattenRecord assembles the mapping for src over already resolved fields
func (e *Engine) flattenRecord(w *walk, src any, o *options.Options, fields []string, lookup lookupFunc) (*types.Object, error) {
	if out, ok, err := runPrehook(w.ctx, o.Prehook(), src); ok {
		if err != nil {
			return nil, fmt.Errorf("prehook: %w", err)
		}
		if isNil(out) {
			e.logger.Debug("Prehook short-circuited %s", describe(src))
			return types.NewObject(), nil
		}
		src = out
	}

	attrs := types.NewObject()
	for _, alias := range fields {
		accessor := o.Accessor(alias)
		key := o.Key(alias)

		value, err := extract(w.ctx, src, accessor, o.AllowMissing(), lookup)
		if err != nil {
			return nil, err
		}
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr && rv.IsNil() {
			value = nil
		}

		if rec, ok := asRecord(value); ok {
			nested, merged, err := e.nestedRecord(w, rec, accessor, alias, o)
			if err != nil {
				return nil, err
			}
			if merged != nil {
				e.logger.Debug("Merging %s into %s", accessor, describe(src))
				attrs.Merge(merged)
				continue
			}
			attrs.Set(key, nested)
			continue
		}

		if coll, ok, err := asCollection(value); ok || err != nil {
			if err != nil {
				return nil, fmt.Errorf("%s: %w", accessor, err)
			}
			nested, err := e.nestedCollection(w, coll, accessor, alias, o)
			if err != nil {
				return nil, err
			}
			attrs.Set(key, nested)
			continue
		}

		if process := o.Process(); process != nil {
			if value, err = process(value); err != nil {
				return nil, fmt.Errorf("process %s: %w", accessor, err)
			}
		}
		attrs.Set(key, value)
	}

	if hook := o.Posthook(); hook != nil {
		out, err := hook(src, attrs)
		if err != nil {
			return nil, fmt.Errorf("posthook: %w", err)
		}
		attrs = out
	}
	return attrs, nil
}

// nestedRecord flattens a to-one relation. It returns the value to store
// under the relation's key, or the mapping to splice into the parent when
// the relation merges.
func (e *Engine) nestedRecord(w *walk, rec types.Record, accessor, alias string, parent *options.Options) (any, *types.Object, error) {
	child, err := parent.Child(accessor, alias, w.settings)
	if err != nil {
		return nil, nil, err
	}
	fields, err := e.resolveFields(rec.ModelName(), reflect.TypeOf(rec), child)
	if err != nil {
		return nil, nil, err
	}

	override := parent.Related(accessor)
	if err := w.enter(rec, accessor, override); err != nil {
		return nil, nil, err
	}
	defer w.leave()

	attrs, err := e.flattenRecord(w, rec, child, fields, lookupValue)
	if err != nil {
		return nil, nil, err
	}

	if child.Merge() {
		return nil, attrs, nil
	}
	// only an explicit single-field selection collapses, never a model
	// whose default fields happen to be one
	if override != nil && len(override.Fields) > 0 && len(fields) == 1 && child.Flat() {
		return collapse(attrs), nil, nil
	}
	return attrs, nil, nil
}

// collapse reduces a single-entry mapping to its value
func collapse(attrs *types.Object) any {
	switch attrs.Len() {
	case 0:
		return nil
	case 1:
		v, _ := attrs.Get(attrs.Keys()[0])
		return v
	}
	return attrs
}

// nestedCollection flattens a to-many relation into a sequence
func (e *Engine) nestedCollection(w *walk, coll types.Collection, accessor, alias string, parent *options.Options) ([]any, error) {
	child, err := parent.Child(accessor, alias, w.settings)
	if err != nil {
		return nil, err
	}

	var t reflect.Type
	if typed, ok := coll.(types.Typed); ok {
		t = typed.RecordType()
	}
	fields, err := e.resolveFields(coll.Model(), t, child)
	if err != nil {
		return nil, err
	}
	return e.flattenCollection(w, coll, child, fields, edge{accessor: accessor, override: parent.Related(accessor)})
}
