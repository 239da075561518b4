package engine

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	js "github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/types"
	"github.com/rediwo/redi-shape/utils"
)

// Engine compiles JavaScript hooks. All scripts share one runtime; calls are
// serialised and each runs the event loop until its jobs drain, so hooks may
// use promises and timers.
type Engine struct {
	loop   *eventloop.EventLoop
	logger logger.Logger
	mu     sync.Mutex
}

type Option func(*Engine)

// WithLogger routes console output and hook diagnostics to l
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{logger: logger.GetGlobalLogger()}
	for _, opt := range opts {
		opt(e)
	}

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(printer{e.logger}))
	e.loop = eventloop.NewEventLoop(eventloop.WithRegistry(registry))

	e.loop.Run(func(vm *js.Runtime) {
		vm.SetFieldNameMapper(fieldNameMapper{})
	})
	return e
}

// Execute runs a script and exports its completion value
func (e *Engine) Execute(script string) (any, error) {
	var (
		result any
		err    error
	)
	e.run(func(vm *js.Runtime) {
		var v js.Value
		v, err = vm.RunString(script)
		if err == nil {
			result = valueFromJS(v)
		}
	})
	return result, err
}

// ExecuteFile runs a script file, typically shared helpers referenced by
// hooks defined later.
func (e *Engine) ExecuteFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", path, err)
	}
	if _, err := e.Execute(string(data)); err != nil {
		return fmt.Errorf("failed to execute script %s: %w", path, err)
	}
	return nil
}

// Prehook compiles a function expression taking the input. Returning null,
// undefined or false short-circuits; true keeps the input; anything else
// replaces it. Collections reach the script as arrays of records, and an
// array of records returned for a collection becomes the new collection.
func (e *Engine) Prehook(src string) (options.PrehookFunc, error) {
	hook, err := e.PrehookContext(src)
	if err != nil {
		return nil, err
	}
	return func(input any) (any, error) {
		return hook(context.Background(), input)
	}, nil
}

// PrehookContext is Prehook loading collections with the flatten call's
// context.
func (e *Engine) PrehookContext(src string) (options.PrehookContextFunc, error) {
	fn, err := e.compile(src)
	if err != nil {
		return nil, fmt.Errorf("prehook: %w", err)
	}

	return func(ctx context.Context, input any) (any, error) {
		arg := input
		coll, isColl := input.(types.Collection)
		if isColl {
			records, err := coll.Records(ctx)
			if err != nil {
				return nil, fmt.Errorf("prehook: %w", err)
			}
			items := make([]any, len(records))
			for i, rec := range records {
				items[i] = rec
			}
			arg = items
		}

		var (
			result any
			err    error
		)
		e.run(func(vm *js.Runtime) {
			var v js.Value
			v, err = fn(js.Undefined(), valueToJS(vm, arg))
			if err != nil {
				return
			}
			if b, ok := v.Export().(bool); ok {
				if b {
					result = input
				}
				return
			}
			result = valueFromJS(v)
		})
		if err != nil {
			return nil, fmt.Errorf("prehook: %w", err)
		}

		if items, ok := result.([]any); ok && isColl {
			return asSlice(coll.Model(), items)
		}
		return result, nil
	}, nil
}

func asSlice(model string, items []any) (any, error) {
	records := make([]types.Record, len(items))
	for i, item := range items {
		rec, ok := item.(types.Record)
		if !ok {
			return nil, fmt.Errorf("prehook: %s collection member %d is %T, not a record", model, i, item)
		}
		records[i] = rec
	}
	return types.NewSlice(model, records...), nil
}

// Posthook compiles a function expression taking (record, attrs). The hook
// either returns a new mapping or edits attrs in place and returns nothing.
func (e *Engine) Posthook(src string) (options.Posthook, error) {
	fn, err := e.compile(src)
	if err != nil {
		return nil, fmt.Errorf("posthook: %w", err)
	}

	return func(record any, attrs *types.Object) (*types.Object, error) {
		var (
			result *types.Object
			err    error
		)
		e.run(func(vm *js.Runtime) {
			jsAttrs := objectToJS(vm, attrs)
			var v js.Value
			v, err = fn(js.Undefined(), vm.ToValue(record), jsAttrs)
			if err != nil {
				return
			}
			if isNullish(v) {
				result = objectFromJS(jsAttrs)
				return
			}
			obj, ok := v.(*js.Object)
			if !ok {
				err = fmt.Errorf("expected an object, got %s", v.String())
				return
			}
			result = objectFromJS(obj)
		})
		if err != nil {
			return nil, fmt.Errorf("posthook: %w", err)
		}
		return result, nil
	}, nil
}

func (e *Engine) compile(src string) (js.Callable, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty script")
	}

	var (
		fn  js.Callable
		err error
	)
	e.run(func(vm *js.Runtime) {
		var v js.Value
		v, err = vm.RunString("(" + src + ")")
		if err != nil {
			return
		}
		var ok bool
		if fn, ok = js.AssertFunction(v); !ok {
			err = fmt.Errorf("script does not evaluate to a function")
		}
	})
	return fn, err
}

func (e *Engine) run(fn func(vm *js.Runtime)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loop.Run(fn)
}

func isNullish(v js.Value) bool {
	return v == nil || js.IsUndefined(v) || js.IsNull(v)
}

func valueToJS(vm *js.Runtime, v any) js.Value {
	switch val := v.(type) {
	case *types.Object:
		return objectToJS(vm, val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = valueToJS(vm, item)
		}
		return vm.NewArray(items...)
	default:
		return vm.ToValue(v)
	}
}

func objectToJS(vm *js.Runtime, obj *types.Object) *js.Object {
	out := vm.NewObject()
	for _, key := range obj.Keys() {
		value, _ := obj.Get(key)
		_ = out.Set(key, valueToJS(vm, value))
	}
	return out
}

func valueFromJS(v js.Value) any {
	if isNullish(v) {
		return nil
	}
	obj, ok := v.(*js.Object)
	if !ok {
		return v.Export()
	}
	if obj.ClassName() == "Array" {
		n := int(obj.Get("length").ToInteger())
		items := make([]any, n)
		for i := 0; i < n; i++ {
			items[i] = valueFromJS(obj.Get(fmt.Sprint(i)))
		}
		return items
	}
	if _, plain := obj.Export().(map[string]any); plain {
		return objectFromJS(obj)
	}
	return obj.Export()
}

// objectFromJS keeps the property order of the JS object
func objectFromJS(obj *js.Object) *types.Object {
	out := types.NewObject()
	for _, key := range obj.Keys() {
		out.Set(key, valueFromJS(obj.Get(key)))
	}
	return out
}

// fieldNameMapper exposes struct fields under their column names and methods
// in lower camel case.
type fieldNameMapper struct{}

func (fieldNameMapper) FieldName(_ reflect.Type, f reflect.StructField) string {
	for _, key := range []string{"db", "json"} {
		if name := strings.Split(f.Tag.Get(key), ",")[0]; name == "-" {
			return ""
		} else if name != "" {
			return name
		}
	}
	return utils.ToSnakeCase(f.Name)
}

func (fieldNameMapper) MethodName(_ reflect.Type, m reflect.Method) string {
	r, size := utf8.DecodeRuneInString(m.Name)
	return string(unicode.ToLower(r)) + m.Name[size:]
}

type printer struct {
	logger logger.Logger
}

func (p printer) Log(s string)   { p.logger.Info("[js] %s", s) }
func (p printer) Warn(s string)  { p.logger.Warn("[js] %s", s) }
func (p printer) Error(s string) { p.logger.Error("[js] %s", s) }
