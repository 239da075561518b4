package options

import "maps"

// Override is one layer of options. Nil fields are unset and leave the
// value from lower layers in place. Set values replace lower values whole,
// maps and lists included.
type Override struct {
	Fields        []string          `yaml:"fields,omitempty" json:"fields,omitempty"`
	Exclude       []string          `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Aliases       map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	AllowMissing  *bool             `yaml:"allow_missing,omitempty" json:"allow_missing,omitempty"`
	Camelcase     *bool             `yaml:"camelcase,omitempty" json:"camelcase,omitempty"`
	Prefix        *string           `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	ValuesList    *bool             `yaml:"values_list,omitempty" json:"values_list,omitempty"`
	Flat          *bool             `yaml:"flat,omitempty" json:"flat,omitempty"`
	Merge         *bool             `yaml:"merge,omitempty" json:"merge,omitempty"`
	SelectRelated []string          `yaml:"select_related,omitempty" json:"select_related,omitempty"`
	MaxDepth      *int              `yaml:"max_depth,omitempty" json:"max_depth,omitempty" validate:"omitempty,gte=0"`

	Process  Process              `yaml:"-" json:"-"`
	Prehook  Prehook              `yaml:"-" json:"-"`
	Posthook Posthook             `yaml:"-" json:"-"`
	Related  map[string]*Override `yaml:"-" json:"-"`
}

// Source supplies the process-wide override layer
type Source interface {
	Override() *Override
}

// SourceFunc adapts a function to Source
type SourceFunc func() *Override

func (f SourceFunc) Override() *Override {
	return f()
}

// Apply returns a copy of o with every value set on top applied over it.
// Either side may be nil.
func (o *Override) Apply(top *Override) *Override {
	out := o.Clone()
	if out == nil {
		out = &Override{}
	}
	if top == nil {
		return out
	}

	if top.Fields != nil {
		out.Fields = append([]string{}, top.Fields...)
	}
	if top.Exclude != nil {
		out.Exclude = append([]string{}, top.Exclude...)
	}
	if top.Aliases != nil {
		out.Aliases = maps.Clone(top.Aliases)
	}
	if top.AllowMissing != nil {
		out.AllowMissing = ptr(*top.AllowMissing)
	}
	if top.Camelcase != nil {
		out.Camelcase = ptr(*top.Camelcase)
	}
	if top.Prefix != nil {
		out.Prefix = ptr(*top.Prefix)
	}
	if top.ValuesList != nil {
		out.ValuesList = ptr(*top.ValuesList)
	}
	if top.Flat != nil {
		out.Flat = ptr(*top.Flat)
	}
	if top.Merge != nil {
		out.Merge = ptr(*top.Merge)
	}
	if top.SelectRelated != nil {
		out.SelectRelated = append([]string{}, top.SelectRelated...)
	}
	if top.MaxDepth != nil {
		out.MaxDepth = ptr(*top.MaxDepth)
	}
	if top.Process != nil {
		out.Process = top.Process
	}
	if top.Prehook != nil {
		out.Prehook = top.Prehook
	}
	if top.Posthook != nil {
		out.Posthook = top.Posthook
	}
	if top.Related != nil {
		out.Related = maps.Clone(top.Related)
	}
	return out
}

// Clone returns a shallow copy with its own slices and maps
func (o *Override) Clone() *Override {
	if o == nil {
		return nil
	}
	c := *o
	if o.Fields != nil {
		c.Fields = append([]string{}, o.Fields...)
	}
	if o.Exclude != nil {
		c.Exclude = append([]string{}, o.Exclude...)
	}
	if o.SelectRelated != nil {
		c.SelectRelated = append([]string{}, o.SelectRelated...)
	}
	c.Aliases = maps.Clone(o.Aliases)
	c.Related = maps.Clone(o.Related)
	return &c
}

func ptr[T any](v T) *T {
	return &v
}
