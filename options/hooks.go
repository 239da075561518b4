package options

import (
	"context"

	"github.com/rediwo/redi-shape/types"
)

// Prehook runs before a record or collection is flattened. It is either a
// PrehookFunc, a PrehookContextFunc or Criteria.
type Prehook interface {
	prehook()
}

// PrehookFunc maps the input before it is flattened. A nil result
// short-circuits to an empty result.
type PrehookFunc func(input any) (any, error)

func (PrehookFunc) prehook() {}

// PrehookContextFunc is a PrehookFunc that receives the context of the
// flatten call, for hooks that load collections.
type PrehookContextFunc func(ctx context.Context, input any) (any, error)

func (PrehookContextFunc) prehook() {}

// Criteria narrows collections by equality before they are flattened. Slice
// values match any of their elements. Single records ignore criteria.
type Criteria map[string]any

func (Criteria) prehook() {}

// Posthook receives the source record and its assembled mapping and returns
// the mapping to use in its place.
type Posthook func(record any, attrs *types.Object) (*types.Object, error)

// Process maps every scalar value before it is assigned
type Process func(value any) (any, error)
