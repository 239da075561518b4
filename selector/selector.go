// Package selector turns requested field lists into the ordered output
// aliases a record is flattened with.
package selector

import (
	"fmt"
	"reflect"

	"github.com/rediwo/redi-shape/meta"
	"github.com/rediwo/redi-shape/types"
)

// DefaultFields is used when no fields are requested
var DefaultFields = []string{meta.PK, meta.Local}

// Parser resolves field selections against a metadata resolver
type Parser struct {
	resolver *meta.Resolver
}

// New creates a parser. A nil resolver uses meta.Default().
func New(resolver *meta.Resolver) *Parser {
	return &Parser{resolver: resolver}
}

func (p *Parser) meta() *meta.Resolver {
	if p.resolver != nil {
		return p.resolver
	}
	return meta.Default()
}

// Resolve returns the output aliases for model in first-seen order.
//
// Each requested entry is mapped through aliases to its accessor. Pseudo-group
// accessors expand to their members; literal accessors must exist on the
// model. An aliased literal keeps its alias. Entries in exclude are removed
// after expansion.
func (p *Parser) Resolve(model string, t reflect.Type, requested, exclude []string, aliases map[string]string) ([]string, error) {
	if len(requested) == 0 {
		requested = DefaultFields
	}
	resolver := p.meta()

	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, entry := range requested {
		accessor := entry
		if mapped, ok := aliases[entry]; ok && mapped != "" {
			accessor = mapped
		}

		if meta.IsPseudoGroup(accessor) {
			members, err := resolver.Resolve(model, t, accessor)
			if err != nil {
				return nil, err
			}
			for _, member := range members {
				add(member)
			}
			continue
		}

		if !resolver.Has(model, t, accessor) {
			return nil, fmt.Errorf("%w: %q on %s", types.ErrFieldNotFound, accessor, model)
		}
		add(entry)
	}

	if len(exclude) == 0 {
		return out, nil
	}
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}
	filtered := out[:0]
	for _, name := range out {
		if !excluded[name] {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// Resolve resolves fields with the process-wide metadata resolver
func Resolve(model string, t reflect.Type, requested, exclude []string, aliases map[string]string) ([]string, error) {
	return New(nil).Resolve(model, t, requested, exclude, aliases)
}
