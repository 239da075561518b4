package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds schemas keyed by model name
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register validates and stores schemas, replacing any schema with the same name
func (r *Registry) Register(schemas ...*Schema) error {
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid schema %s: %w", s.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemas {
		r.schemas[s.Name] = s
	}
	return nil
}

// GetSchema returns a registered schema
func (r *Registry) GetSchema(modelName string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, exists := r.schemas[modelName]
	if !exists {
		return nil, fmt.Errorf("schema for model '%s' not registered", modelName)
	}
	return s, nil
}

// Names returns the registered model names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Relation returns a relation of modelName with its defaults filled in from
// both sides of the relation.
func (r *Registry) Relation(modelName, accessor string) (Relation, error) {
	owner, err := r.GetSchema(modelName)
	if err != nil {
		return Relation{}, err
	}
	rel, err := owner.GetRelation(accessor)
	if err != nil {
		return Relation{}, err
	}
	related, err := r.GetSchema(rel.Model)
	if err != nil {
		return Relation{}, err
	}
	return rel.Normalize(owner, related)
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds schemas to the process-wide registry
func Register(schemas ...*Schema) error {
	return defaultRegistry.Register(schemas...)
}
