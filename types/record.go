package types

import (
	"context"
	"reflect"
)

// Record is a value with a model identity. Field metadata for the model is
// looked up by the name it returns.
type Record interface {
	ModelName() string
}

// Getter is implemented by records that expose their values by name rather
// than through struct fields.
type Getter interface {
	Get(name string) (any, bool)
}

// Collection is an ordered, possibly lazy, group of records of one model
type Collection interface {
	Model() string
	Records(ctx context.Context) ([]Record, error)
}

// Identifier is implemented by records whose identity is not their pointer,
// such as rows loaded more than once from storage. Identity must return a
// comparable value.
type Identifier interface {
	Identity() any
}

// Typed is implemented by collections that know the Go type of their members
type Typed interface {
	RecordType() reflect.Type
}

// Filterer narrows a collection by equality criteria. Slice values match any
// of their elements.
type Filterer interface {
	Filter(ctx context.Context, criteria map[string]any) (Collection, error)
}

// Projector returns the values of the named accessors for every member, one
// row per member, in collection order.
type Projector interface {
	ValuesList(ctx context.Context, accessors []string) ([][]any, error)
}

// RelatedSelector is a hint that the named to-one relations will be read
// for every member. Implementations may preload them.
type RelatedSelector interface {
	SelectRelated(ctx context.Context, accessors ...string) (Collection, error)
}

// Manager is a relation accessor that yields a collection on demand
type Manager interface {
	All(ctx context.Context) (Collection, error)
}
