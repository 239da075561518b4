// Package options resolves the layered options that drive flattening.
package options

import (
	"fmt"
	"maps"

	"github.com/rediwo/redi-shape/utils"
)

// Defaults returns the built-in option layer
func Defaults() *Override {
	return &Override{
		Fields:       []string{},
		Exclude:      []string{},
		Aliases:      map[string]string{},
		AllowMissing: ptr(false),
		Camelcase:    ptr(false),
		Prefix:       ptr(""),
		ValuesList:   ptr(false),
		Flat:         ptr(true),
		Merge:        ptr(false),
		MaxDepth:     ptr(0),
		Related:      map[string]*Override{},
	}
}

// Options is a resolved, read-only option set
type Options struct {
	fields        []string
	exclude       []string
	aliases       map[string]string
	allowMissing  bool
	camelcase     bool
	prefix        Prefix
	valuesList    bool
	flat          bool
	merge         bool
	selectRelated []string
	maxDepth      int
	process       Process
	prehook       Prehook
	posthook      Posthook
	related       map[string]*Override
}

// Resolve applies layers over the built-in defaults, lowest priority first.
// Nil layers are skipped.
func Resolve(layers ...*Override) (*Options, error) {
	merged := Defaults()
	for _, layer := range layers {
		merged = merged.Apply(layer)
	}

	prefix, err := ParsePrefix(*merged.Prefix)
	if err != nil {
		return nil, err
	}
	if *merged.MaxDepth < 0 {
		return nil, fmt.Errorf("max_depth must not be negative, got %d", *merged.MaxDepth)
	}

	return &Options{
		fields:        merged.Fields,
		exclude:       merged.Exclude,
		aliases:       merged.Aliases,
		allowMissing:  *merged.AllowMissing,
		camelcase:     *merged.Camelcase,
		prefix:        prefix,
		valuesList:    *merged.ValuesList,
		flat:          *merged.Flat,
		merge:         *merged.Merge,
		selectRelated: merged.SelectRelated,
		maxDepth:      *merged.MaxDepth,
		process:       merged.Process,
		prehook:       merged.Prehook,
		posthook:      merged.Posthook,
		related:       merged.Related,
	}, nil
}

// New resolves call-site options over settings
func New(settings Source, opts ...Option) (*Options, error) {
	return Resolve(sourceOverride(settings), Build(opts...))
}

func sourceOverride(settings Source) *Override {
	if settings == nil {
		return nil
	}
	return settings.Override()
}

// Child resolves the options for recursing into accessor, output as alias.
// The relation's override is layered over the defaults and settings only;
// nothing else is inherited from o.
func (o *Options) Child(accessor, alias string, settings Source) (*Options, error) {
	child, err := Resolve(sourceOverride(settings), o.related[accessor])
	if err != nil {
		return nil, fmt.Errorf("options for %s: %w", accessor, err)
	}
	child.prefix = child.prefix.Bind(alias)
	return child, nil
}

// WithFields returns a copy of o with the given fields and exclusions
func (o *Options) WithFields(fields, exclude []string) *Options {
	c := *o
	if fields != nil {
		c.fields = append([]string{}, fields...)
	}
	if exclude != nil {
		c.exclude = append([]string{}, exclude...)
	}
	return &c
}

func (o *Options) Fields() []string { return append([]string(nil), o.fields...) }
func (o *Options) Exclude() []string { return append([]string(nil), o.exclude...) }
func (o *Options) AllowMissing() bool { return o.allowMissing }
func (o *Options) CamelCase() bool { return o.camelcase }
func (o *Options) Prefix() Prefix { return o.prefix }
func (o *Options) ValuesList() bool { return o.valuesList }
func (o *Options) Flat() bool { return o.flat }
func (o *Options) Merge() bool { return o.merge }
func (o *Options) MaxDepth() int { return o.maxDepth }
func (o *Options) Process() Process { return o.process }
func (o *Options) Prehook() Prehook { return o.prehook }
func (o *Options) Posthook() Posthook { return o.posthook }
func (o *Options) SelectRelated() []string { return append([]string(nil), o.selectRelated...) }

// Aliases returns a copy of the alias map
func (o *Options) Aliases() map[string]string {
	return maps.Clone(o.aliases)
}

// Accessor returns the accessor an output alias reads from
func (o *Options) Accessor(alias string) string {
	if accessor, ok := o.aliases[alias]; ok && accessor != "" {
		return accessor
	}
	return alias
}

// Related returns the override configured for accessor, or nil.
// The returned value identifies the override for cycle detection and must
// not be modified.
func (o *Options) Related(accessor string) *Override {
	return o.related[accessor]
}

// Key returns the output key for alias
func (o *Options) Key(alias string) string {
	key := o.prefix.String() + alias
	if o.camelcase {
		key = utils.ToCamelCase(key)
	}
	return key
}
