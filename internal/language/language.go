// Package language parses the compact field shorthand into the raw wire
// shape the planner accepts, so `{ id user { name } }` and the equivalent
// JSON list share a single validation path.
package language

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseFields parses a braced selection like
//
//	{ id title user { id name } self(prefix: "x") { id } }
//
// Plain fields become strings, fields with a selection become single-key
// maps to a list, and fields with arguments become {args, fields} objects.
// Fragments, directives, aliases, and variables are rejected: the shorthand
// carries plain selections only.
func ParseFields(src string) ([]any, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: src})
	if err != nil {
		return nil, err
	}
	if len(doc.Fragments) > 0 {
		return nil, fmt.Errorf("fragments are not supported in field shorthand")
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("field shorthand must be a single braced selection")
	}
	op := doc.Operations[0]
	if op.Operation != ast.Query || op.Name != "" {
		return nil, fmt.Errorf("field shorthand must be a single braced selection")
	}
	return convertSelectionSet(op.SelectionSet)
}

func convertSelectionSet(ss ast.SelectionSet) ([]any, error) {
	out := make([]any, 0, len(ss))
	for _, sel := range ss {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("fragments are not supported in field shorthand")
		}
		entry, err := convertField(field)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func convertField(f *ast.Field) (any, error) {
	if f.Alias != "" && f.Alias != f.Name {
		return nil, fmt.Errorf("field %q: aliases are not supported in field shorthand", f.Name)
	}
	if len(f.Directives) > 0 {
		return nil, fmt.Errorf("field %q: directives are not supported in field shorthand", f.Name)
	}

	var children []any
	if len(f.SelectionSet) > 0 {
		cs, err := convertSelectionSet(f.SelectionSet)
		if err != nil {
			return nil, err
		}
		children = cs
	}

	if len(f.Arguments) == 0 {
		if children == nil {
			return f.Name, nil
		}
		return map[string]any{f.Name: children}, nil
	}

	args := make(map[string]any, len(f.Arguments))
	for _, arg := range f.Arguments {
		if err := rejectVariables(arg.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		val, err := arg.Value.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("field %q, argument %q: %w", f.Name, arg.Name, err)
		}
		args[arg.Name] = val
	}
	spec := map[string]any{"args": args}
	if children != nil {
		spec["fields"] = children
	}
	return map[string]any{f.Name: spec}, nil
}

func rejectVariables(v *ast.Value) error {
	if v == nil {
		return nil
	}
	if v.Kind == ast.Variable {
		return fmt.Errorf("variables are not supported in field shorthand")
	}
	for _, child := range v.Children {
		if err := rejectVariables(child.Value); err != nil {
			return err
		}
	}
	return nil
}
