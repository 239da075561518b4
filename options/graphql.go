package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// pseudo-group spellings that are valid GraphQL names
var graphQLGroups = map[string]string{
	"_pk":      ":pk",
	"_local":   ":local",
	"_related": ":related",
	"_all":     ":all",
}

// FromGraphQL builds an override from a GraphQL selection such as
//
//	{ id title: name _related tag(merge: true) { label } }
//
// Field aliases become aliases, nested selections become relation
// overrides, and _pk, _local, _related and _all select field groups.
// Arguments on a field with a selection set configure that relation:
// merge, flat, valuesList, camelcase, allowMissing, prefix, exclude,
// selectRelated and maxDepth.
func FromGraphQL(query string) (*Override, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return nil, fmt.Errorf("failed to parse selection: %w", err)
	}

	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		return overrideFromSelectionSet(op.SelectionSet)
	}
	return nil, fmt.Errorf("selection has no operation")
}

func overrideFromSelectionSet(set *ast.SelectionSet) (*Override, error) {
	o := &Override{Fields: []string{}}
	if set == nil {
		return o, nil
	}

	for _, sel := range set.Selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("fragments are not supported in selections")
		}

		name := field.Name.Value
		if group, ok := graphQLGroups[name]; ok {
			name = group
		}
		output := name
		if field.Alias != nil && field.Alias.Value != "" {
			output = field.Alias.Value
			if o.Aliases == nil {
				o.Aliases = make(map[string]string)
			}
			o.Aliases[output] = name
		}
		o.Fields = append(o.Fields, output)

		if field.SelectionSet == nil {
			if len(field.Arguments) > 0 {
				return nil, fmt.Errorf("arguments on %s need a nested selection", name)
			}
			continue
		}

		child, err := overrideFromSelectionSet(field.SelectionSet)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, arg := range field.Arguments {
			if err := applyArgument(child, arg); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		if o.Related == nil {
			o.Related = make(map[string]*Override)
		}
		o.Related[name] = child
	}

	return o, nil
}

func applyArgument(o *Override, arg *ast.Argument) error {
	name := arg.Name.Value
	switch name {
	case "merge", "flat", "valuesList", "camelcase", "allowMissing":
		b, ok := arg.Value.(*ast.BooleanValue)
		if !ok {
			return fmt.Errorf("argument %s must be a boolean", name)
		}
		v := ptr(b.Value)
		switch name {
		case "merge":
			o.Merge = v
		case "flat":
			o.Flat = v
		case "valuesList":
			o.ValuesList = v
		case "camelcase":
			o.Camelcase = v
		case "allowMissing":
			o.AllowMissing = v
		}
	case "prefix":
		s, ok := arg.Value.(*ast.StringValue)
		if !ok {
			return fmt.Errorf("argument prefix must be a string")
		}
		o.Prefix = ptr(s.Value)
	case "maxDepth":
		i, ok := arg.Value.(*ast.IntValue)
		if !ok {
			return fmt.Errorf("argument maxDepth must be an integer")
		}
		depth, err := strconv.Atoi(i.Value)
		if err != nil {
			return fmt.Errorf("argument maxDepth: %w", err)
		}
		o.MaxDepth = ptr(depth)
	case "exclude", "selectRelated":
		names, err := stringList(arg.Value)
		if err != nil {
			return fmt.Errorf("argument %s: %w", name, err)
		}
		if name == "exclude" {
			o.Exclude = names
		} else {
			o.SelectRelated = names
		}
	default:
		return fmt.Errorf("unknown argument %s", name)
	}
	return nil
}

func stringList(v ast.Value) ([]string, error) {
	switch val := v.(type) {
	case *ast.StringValue:
		return splitList(val.Value), nil
	case *ast.ListValue:
		out := make([]string, 0, len(val.Values))
		for _, item := range val.Values {
			switch s := item.(type) {
			case *ast.StringValue:
				out = append(out, s.Value)
			case *ast.EnumValue:
				out = append(out, s.Value)
			default:
				return nil, fmt.Errorf("list items must be strings")
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("must be a string or a list of strings")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
