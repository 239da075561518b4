package options

import "maps"

// Option sets a value on a call-site override
type Option func(*Override)

// Build collects opts into an override
func Build(opts ...Option) *Override {
	o := &Override{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func WithFields(fields ...string) Option {
	return func(o *Override) { o.Fields = append([]string{}, fields...) }
}

func WithExclude(fields ...string) Option {
	return func(o *Override) { o.Exclude = append([]string{}, fields...) }
}

// WithAliases replaces the alias map. Keys are output aliases, values are
// accessors.
func WithAliases(aliases map[string]string) Option {
	return func(o *Override) { o.Aliases = maps.Clone(aliases) }
}

// WithAlias adds one alias to the call-site alias map
func WithAlias(alias, accessor string) Option {
	return func(o *Override) {
		if o.Aliases == nil {
			o.Aliases = make(map[string]string)
		}
		o.Aliases[alias] = accessor
	}
}

func WithAllowMissing(v bool) Option {
	return func(o *Override) { o.AllowMissing = ptr(v) }
}

func WithCamelCase(v bool) Option {
	return func(o *Override) { o.Camelcase = ptr(v) }
}

func WithPrefix(prefix string) Option {
	return func(o *Override) { o.Prefix = ptr(prefix) }
}

func WithValuesList(v bool) Option {
	return func(o *Override) { o.ValuesList = ptr(v) }
}

func WithFlat(v bool) Option {
	return func(o *Override) { o.Flat = ptr(v) }
}

func WithMerge(v bool) Option {
	return func(o *Override) { o.Merge = ptr(v) }
}

func WithSelectRelated(accessors ...string) Option {
	return func(o *Override) { o.SelectRelated = append([]string{}, accessors...) }
}

// WithMaxDepth bounds relation nesting. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(o *Override) { o.MaxDepth = ptr(depth) }
}

func WithProcess(fn Process) Option {
	return func(o *Override) { o.Process = fn }
}

func WithPrehook(fn PrehookFunc) Option {
	return func(o *Override) { o.Prehook = fn }
}

func WithPrehookContext(fn PrehookContextFunc) Option {
	return func(o *Override) { o.Prehook = fn }
}

func WithCriteria(criteria map[string]any) Option {
	return func(o *Override) { o.Prehook = Criteria(maps.Clone(criteria)) }
}

func WithPosthook(fn Posthook) Option {
	return func(o *Override) { o.Posthook = fn }
}

// WithRelated sets the override used when recursing into accessor
func WithRelated(accessor string, opts ...Option) Option {
	return func(o *Override) {
		if o.Related == nil {
			o.Related = make(map[string]*Override)
		}
		o.Related[accessor] = Build(opts...)
	}
}

// WithOverride applies a prepared override, such as one parsed from a
// selection, on top of the options set so far.
func WithOverride(top *Override) Option {
	return func(o *Override) { *o = *o.Apply(top) }
}
