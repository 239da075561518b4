package flatten

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
	"github.com/rediwo/redi-shape/utils"
)

// flattenCollection applies the collection prehook, the select_related hint
// and values_list projection, then flattens every member in order.
func (e *Engine) flattenCollection(w *walk, coll types.Collection, o *options.Options, fields []string, via edge) ([]any, error) {
	if out, ok, err := runPrehook(w.ctx, o.Prehook(), coll); ok {
		if err != nil {
			return nil, fmt.Errorf("prehook: %w", err)
		}
		if isNil(out) {
			e.logger.Debug("Prehook short-circuited %s collection", coll.Model())
			return []any{}, nil
		}
		next, ok, err := asCollection(out)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, unsupported(out)
		}
		coll = next
	} else if criteria, ok := o.Prehook().(options.Criteria); ok {
		filtered, err := filter(w.ctx, coll, criteria)
		if err != nil {
			return nil, err
		}
		coll = filtered
	}

	if related := o.SelectRelated(); len(related) > 0 {
		if selector, ok := coll.(types.RelatedSelector); ok {
			selected, err := selector.SelectRelated(w.ctx, related...)
			if err != nil {
				return nil, fmt.Errorf("select related: %w", err)
			}
			coll = selected
		}
	}

	if o.ValuesList() {
		return e.valuesList(w.ctx, coll, o, fields)
	}

	records, err := coll.Records(w.ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", coll.Model(), err)
	}

	out := make([]any, 0, len(records))
	for _, rec := range records {
		if err := w.enter(rec, via.accessor, via.override); err != nil {
			return nil, err
		}
		attrs, err := e.flattenRecord(w, rec, o, fields, lookupValue)
		w.leave()
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}
	return out, nil
}

// valuesList projects the collection onto fields. A single field with flat
// set yields bare values, anything else yields one []any per member.
func (e *Engine) valuesList(ctx context.Context, coll types.Collection, o *options.Options, fields []string) ([]any, error) {
	accessors := make([]string, len(fields))
	for i, alias := range fields {
		accessors[i] = o.Accessor(alias)
	}

	var rows [][]any
	if projector, ok := coll.(types.Projector); ok {
		projected, err := projector.ValuesList(ctx, accessors)
		switch {
		case err == nil:
			rows = projected
		case errors.Is(err, types.ErrFieldNotFound):
			// the store cannot project some accessor, e.g. a relation
			e.logger.Debug("Projecting %s in memory: %v", coll.Model(), err)
		default:
			return nil, fmt.Errorf("values list: %w", err)
		}
	}
	if rows == nil {
		records, err := coll.Records(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", coll.Model(), err)
		}
		rows = make([][]any, 0, len(records))
		for _, rec := range records {
			row := make([]any, len(accessors))
			for i, accessor := range accessors {
				if row[i], err = extract(ctx, rec, accessor, o.AllowMissing(), lookupValue); err != nil {
					return nil, err
				}
			}
			rows = append(rows, row)
		}
	}

	out := make([]any, len(rows))
	for i, row := range rows {
		if len(fields) == 1 && o.Flat() {
			out[i] = row[0]
		} else {
			out[i] = row
		}
	}
	return out, nil
}

// filter narrows coll by criteria, in storage when the collection supports
// it and in memory otherwise.
func filter(ctx context.Context, coll types.Collection, criteria options.Criteria) (types.Collection, error) {
	if len(criteria) == 0 {
		return coll, nil
	}
	if f, ok := coll.(types.Filterer); ok {
		filtered, err := f.Filter(ctx, criteria)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", coll.Model(), err)
		}
		return filtered, nil
	}

	records, err := coll.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", coll.Model(), err)
	}
	kept := make([]types.Record, 0, len(records))
	for _, rec := range records {
		ok, err := matches(ctx, rec, criteria)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	return types.NewSlice(coll.Model(), kept...), nil
}

func matches(ctx context.Context, rec types.Record, criteria options.Criteria) (bool, error) {
	for key, want := range criteria {
		got, err := extract(ctx, rec, key, false, lookupValue)
		if err != nil {
			return false, err
		}
		if !matchValue(got, want) {
			return false, nil
		}
	}
	return true, nil
}

// matchValue compares got with want. Slices in want match any element.
func matchValue(got, want any) bool {
	rv := reflect.ValueOf(want)
	if isSequence(rv) {
		for i := 0; i < rv.Len(); i++ {
			if utils.ValuesEqual(got, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	}
	return utils.ValuesEqual(got, want)
}
