package options

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-shape/types"
)

// Placeholder is substituted with the relation's output alias when options
// for a relation are derived.
const Placeholder = "{accessor}"

// Prefix is a validated key prefix template
type Prefix struct {
	raw string
}

// ParsePrefix validates a prefix template. The only placeholder allowed is
// {accessor}.
func ParsePrefix(s string) (Prefix, error) {
	rest := strings.ReplaceAll(s, Placeholder, "")
	if i := strings.IndexAny(rest, "{}"); i >= 0 {
		return Prefix{}, fmt.Errorf("%w: %q has an unexpected %q at %d", types.ErrInvalidPrefix, s, rest[i], i)
	}
	return Prefix{raw: s}, nil
}

// HasPlaceholder reports whether the template is still unbound
func (p Prefix) HasPlaceholder() bool {
	return strings.Contains(p.raw, Placeholder)
}

// Bind substitutes alias into the placeholder
func (p Prefix) Bind(alias string) Prefix {
	return Prefix{raw: strings.ReplaceAll(p.raw, Placeholder, alias)}
}

func (p Prefix) String() string {
	return p.raw
}
