// Package meta resolves the field categories of record types and caches
// them per model.
package meta

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/metrics"
	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/utils"
)

// Pseudo-group tokens
const (
	PK      = ":pk"
	Local   = ":local"
	Related = ":related"
	All     = ":all"
)

// IsPseudoGroup reports whether token names a field category
func IsPseudoGroup(token string) bool {
	switch token {
	case PK, Local, Related, All:
		return true
	}
	return false
}

// Categories holds the accessor names of a model by category
type Categories struct {
	PK      []string
	Local   []string
	Related []string
	All     []string
}

// Group returns the members of a pseudo-group
func (c Categories) Group(token string) ([]string, bool) {
	switch token {
	case PK:
		return c.PK, true
	case Local:
		return c.Local, true
	case Related:
		return c.Related, true
	case All:
		return c.All, true
	}
	return nil, false
}

// Provider supplies schemas by model name
type Provider interface {
	GetSchema(modelName string) (*schema.Schema, error)
}

// Resolver computes and caches Categories per model
type Resolver struct {
	provider Provider
	metrics  *metrics.Metrics
	logger   logger.Logger

	mu    sync.RWMutex
	cache map[string]Categories
}

type Option func(*Resolver)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over provider. A nil provider uses the
// process-wide schema registry.
func NewResolver(provider Provider, opts ...Option) *Resolver {
	if provider == nil {
		provider = schema.DefaultRegistry()
	}
	r := &Resolver{
		provider: provider,
		cache:    make(map[string]Categories),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.GetGlobalLogger()
	}
	return r
}

// Fields returns the categories of model. Unregistered models whose Go type
// is a struct get a schema derived from the struct tags.
func (r *Resolver) Fields(model string, t reflect.Type) (Categories, error) {
	r.mu.RLock()
	cats, ok := r.cache[model]
	r.mu.RUnlock()
	if ok {
		r.metrics.CacheHit()
		return cats, nil
	}
	r.metrics.CacheMiss()

	s, err := r.schemaFor(model, t)
	if err != nil {
		return Categories{}, err
	}
	cats = compute(s)

	r.mu.Lock()
	r.cache[model] = cats
	r.mu.Unlock()

	r.logger.Debug("Resolved field metadata for %s: pk=%v local=%v related=%v", model, cats.PK, cats.Local, cats.Related)
	return cats, nil
}

func (r *Resolver) schemaFor(model string, t reflect.Type) (*schema.Schema, error) {
	s, err := r.provider.GetSchema(model)
	if err == nil {
		return s, nil
	}
	if t == nil {
		return nil, fmt.Errorf("no field metadata for model %s: %w", model, err)
	}
	derived, derr := schema.FromType(t)
	if derr != nil {
		return nil, fmt.Errorf("no field metadata for model %s: %w", model, derr)
	}
	derived.Name = model
	return derived, nil
}

// Resolve expands a pseudo-group token into its members. Any other token is
// returned unchanged without checking that it exists.
func (r *Resolver) Resolve(model string, t reflect.Type, token string) ([]string, error) {
	if !IsPseudoGroup(token) {
		return []string{token}, nil
	}
	cats, err := r.Fields(model, t)
	if err != nil {
		return nil, err
	}
	members, _ := cats.Group(token)
	return members, nil
}

// Has reports whether accessor is a known member of model or an attribute of
// its Go type.
func (r *Resolver) Has(model string, t reflect.Type, accessor string) bool {
	if cats, err := r.Fields(model, t); err == nil {
		for _, name := range cats.All {
			if name == accessor {
				return true
			}
		}
	}
	_, ok := utils.LookupAttribute(t, accessor)
	return ok
}

// Clear drops every cached entry
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[string]Categories)
	r.mu.Unlock()
}

// Len returns the number of cached models
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func compute(s *schema.Schema) Categories {
	var cats Categories
	cats.PK = s.PrimaryKeyFields()
	cats.Local = s.FieldNames()
	for _, name := range s.RelationNames() {
		if s.IsReverseRelation(name) {
			cats.Related = append(cats.Related, name)
		} else {
			cats.Local = append(cats.Local, name)
		}
	}
	cats.All = dedupe(cats.PK, cats.Local, cats.Related)
	return cats
}

func dedupe(groups ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, name := range group {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

var (
	defaultMu       sync.RWMutex
	defaultResolver = NewResolver(nil)
)

// Default returns the process-wide resolver
func Default() *Resolver {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultResolver
}

// SetDefault replaces the process-wide resolver
func SetDefault(r *Resolver) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultResolver = r
}
