package flatten

import (
	"context"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rediwo/redi-shape/types"
	"github.com/rediwo/redi-shape/utils"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type lookupFunc func(src any, accessor string) (any, bool)

// lookupValue reads accessor as a struct field or method first, then as a
// key of the record.
func lookupValue(src any, accessor string) (any, bool) {
	if v, ok := utils.GetAttribute(src, accessor); ok {
		return v, true
	}
	return lookupKey(src, accessor)
}

// lookupKey reads accessor as a mapping key
func lookupKey(src any, key string) (any, bool) {
	switch m := src.(type) {
	case types.Getter:
		return m.Get(key)
	case bson.D:
		for _, e := range m {
			if e.Key == key {
				return e.Value, true
			}
		}
		return nil, false
	case map[string]any:
		v, ok := m[key]
		return v, ok
	}

	rv := reflect.ValueOf(src)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	}
	return nil, false
}

// extract reads accessor from src, invoking niladic callables and
// materialising relation managers.
func extract(ctx context.Context, src any, accessor string, allowMissing bool, lookup lookupFunc) (any, error) {
	value, ok := lookup(src, accessor)
	if !ok {
		if allowMissing {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %q on %s", types.ErrAccessorNotFound, accessor, describe(src))
	}

	value, err := call(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", accessor, err)
	}

	if manager, ok := value.(types.Manager); ok && !isNil(value) {
		coll, err := manager.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", accessor, err)
		}
		return coll, nil
	}
	return value, nil
}

// call invokes value when it is a function taking nothing, or only a
// context, and returning one value with an optional error.
func call(ctx context.Context, value any) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Func {
		return value, nil
	}
	if rv.IsNil() {
		return nil, nil
	}

	t := rv.Type()
	var args []reflect.Value
	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && t.In(0) == contextType:
		args = []reflect.Value{reflect.ValueOf(ctx)}
	default:
		return value, nil
	}

	switch {
	case t.NumOut() == 1:
		return rv.Call(args)[0].Interface(), nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		out := rv.Call(args)
		if errv := out[1].Interface(); errv != nil {
			return nil, errv.(error)
		}
		return out[0].Interface(), nil
	}
	return value, nil
}
