package flatten

import (
	"fmt"
	"reflect"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rediwo/redi-shape/metrics"
	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
)

var recordType = reflect.TypeOf((*types.Record)(nil)).Elem()

// dispatch converts obj by its shape, most specific first: record,
// collection of records, mapping, sequence, then anything else unchanged.
func (e *Engine) dispatch(w *walk, obj any, o *options.Options) (any, string, error) {
	if isNil(obj) {
		return nil, "", nil
	}

	if rec, ok := asRecord(obj); ok {
		out, err := e.record(w, rec, o)
		return out, metrics.KindRecord, err
	}

	if coll, ok, err := asCollection(obj); ok || err != nil {
		if err != nil {
			return nil, metrics.KindCollection, err
		}
		out, err := e.collection(w, coll, o)
		return out, metrics.KindCollection, err
	}

	if keys, ok := mappingKeys(obj); ok {
		out, err := e.mapping(w, obj, keys, o)
		return out, metrics.KindMapping, err
	}

	if rv := reflect.ValueOf(obj); isSequence(rv) {
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, _, err := e.dispatch(w, rv.Index(i).Interface(), o)
			if err != nil {
				return nil, metrics.KindSequence, err
			}
			out = append(out, item)
		}
		return out, metrics.KindSequence, nil
	}

	return obj, "", nil
}

// record resolves the field selection for rec and flattens it
func (e *Engine) record(w *walk, rec types.Record, o *options.Options) (*types.Object, error) {
	fields, err := e.resolveFields(rec.ModelName(), reflect.TypeOf(rec), o)
	if err != nil {
		return nil, err
	}
	if err := w.enter(rec, "", nil); err != nil {
		return nil, err
	}
	defer w.leave()
	return e.flattenRecord(w, rec, o, fields, lookupValue)
}

// collection resolves the field selection for coll's model and flattens it
func (e *Engine) collection(w *walk, coll types.Collection, o *options.Options) ([]any, error) {
	var t reflect.Type
	if typed, ok := coll.(types.Typed); ok {
		t = typed.RecordType()
	}
	fields, err := e.resolveFields(coll.Model(), t, o)
	if err != nil {
		return nil, err
	}
	return e.flattenCollection(w, coll, o, fields, edge{})
}

// mapping flattens a plain mapping, using its keys as the field universe
func (e *Engine) mapping(w *walk, m any, keys []string, o *options.Options) (*types.Object, error) {
	fields := o.Fields()
	if len(fields) == 0 {
		fields = keys
	}

	excluded := make(map[string]bool)
	for _, name := range o.Exclude() {
		excluded[name] = true
	}
	selected := make([]string, 0, len(fields))
	for _, name := range fields {
		if !excluded[name] {
			selected = append(selected, name)
		}
	}

	if err := w.enter(m, "", nil); err != nil {
		return nil, err
	}
	defer w.leave()
	return e.flattenRecord(w, m, o, selected, lookupKey)
}

func asRecord(v any) (types.Record, bool) {
	rec, ok := v.(types.Record)
	if !ok || isNil(v) {
		return nil, false
	}
	return rec, true
}

// asCollection recognises collections and Go slices of records
func asCollection(v any) (types.Collection, bool, error) {
	if coll, ok := v.(types.Collection); ok {
		return coll, true, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Implements(recordType) {
		coll, err := types.SliceOf(modelOf(rv), v)
		return coll, true, err
	}
	return nil, false, nil
}

// modelOf names the model of a slice of records from its element type
func modelOf(rv reflect.Value) string {
	elem := rv.Type().Elem()
	if elem.Kind() == reflect.Interface {
		return ""
	}
	if elem.Kind() == reflect.Ptr {
		return reflect.New(elem.Elem()).Interface().(types.Record).ModelName()
	}
	return reflect.Zero(elem).Interface().(types.Record).ModelName()
}

// mappingKeys returns the keys of a supported mapping in iteration order.
// Go maps have no order, so their keys are sorted.
func mappingKeys(v any) ([]string, bool) {
	switch m := v.(type) {
	case *types.Object:
		return m.Keys(), true
	case bson.D:
		keys := make([]string, len(m))
		for i, e := range m {
			keys[i] = e.Key
		}
		return keys, true
	case bson.M:
		return sortedKeys(m), true
	case map[string]any:
		return sortedKeys(m), true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func unsupported(v any) error {
	return fmt.Errorf("%w: %T", types.ErrUnsupportedCollection, v)
}
