// Package flatten converts records, collections, mappings and sequences into
// ordered mappings and sequences of plain values.
package flatten

import (
	"context"
	"reflect"
	"time"

	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/meta"
	"github.com/rediwo/redi-shape/metrics"
	"github.com/rediwo/redi-shape/options"
	"github.com/rediwo/redi-shape/selector"
	"github.com/rediwo/redi-shape/types"
)

// Engine flattens object graphs. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	resolver *meta.Resolver
	parser   *selector.Parser
	settings options.Source
	logger   logger.Logger
	metrics  *metrics.Metrics
}

type Option func(*Engine)

// WithResolver sets the field metadata resolver
func WithResolver(r *meta.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithSettings sets the process-wide option layer
func WithSettings(s options.Source) Option {
	return func(e *Engine) { e.settings = s }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine. Without WithResolver it uses meta.Default().
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = meta.Default()
	}
	if e.logger == nil {
		e.logger = logger.GetGlobalLogger()
	}
	e.parser = selector.New(e.resolver)
	return e
}

// Resolver returns the engine's metadata resolver
func (e *Engine) Resolver() *meta.Resolver {
	return e.resolver
}

// Flatten converts obj under the given options.
//
// Records become *types.Object, collections of records become []any of
// objects (or of values under values_list), mappings become *types.Object
// keyed by their own keys, other slices are converted element-wise and
// anything else is returned unchanged. Non-nil fields and exclude take
// precedence over the fields and exclude options.
func (e *Engine) Flatten(ctx context.Context, obj any, fields, exclude []string, opts ...options.Option) (any, error) {
	settings := snapshot(e.settings)
	o, err := options.New(settings, opts...)
	if err != nil {
		return nil, err
	}
	o = o.WithFields(fields, exclude)

	start := time.Now()
	w := newWalk(ctx, settings, o.MaxDepth())
	out, kind, err := e.dispatch(w, obj, o)
	e.observe(kind, start, err)
	return out, err
}

// Record flattens a single record
func (e *Engine) Record(ctx context.Context, record types.Record, opts ...options.Option) (*types.Object, error) {
	settings := snapshot(e.settings)
	o, err := options.New(settings, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	w := newWalk(ctx, settings, o.MaxDepth())
	out, err := e.record(w, record, o)
	e.observe(metrics.KindRecord, start, err)
	return out, err
}

// Collection flattens every member of a collection
func (e *Engine) Collection(ctx context.Context, coll types.Collection, opts ...options.Option) ([]any, error) {
	settings := snapshot(e.settings)
	o, err := options.New(settings, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	w := newWalk(ctx, settings, o.MaxDepth())
	out, err := e.collection(w, coll, o)
	e.observe(metrics.KindCollection, start, err)
	return out, err
}

func (e *Engine) observe(kind string, start time.Time, err error) {
	if kind == "" {
		return
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	e.metrics.RecordOperation(kind, result)
	e.metrics.ObserveDuration(kind, time.Since(start))
}

func (e *Engine) resolveFields(model string, t reflect.Type, o *options.Options) ([]string, error) {
	return e.parser.Resolve(model, t, o.Fields(), o.Exclude(), o.Aliases())
}
