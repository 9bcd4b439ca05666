// Package fieldspec models the client's nested field specification: a list
// whose elements are bare field names, single-key objects mapping a field to
// a child list, or single-key objects mapping a calculation to an
// {args, fields} object.
package fieldspec

import (
	"sort"
	"strings"

	fielderr "github.com/tvarn/fieldplan/internal/fielderr"
)

// Form is the syntactic shape a field was requested in.
type Form int

const (
	// FormBare is a plain field name.
	FormBare Form = iota
	// FormList is a field mapped to a list of child specs.
	FormList
	// FormCalc is a field mapped to an {args, fields} object.
	FormCalc
)

// Entry is one requested field at a single nesting level. Children are kept
// in their raw wire shape and decoded by the caller when it descends, so the
// caller can attach path context to nested failures.
type Entry struct {
	Name string // field name exactly as the client sent it
	Form Form

	List []any // FormList: raw child entries

	Args      map[string]any // FormCalc: argument values, may be nil
	Fields    []any          // FormCalc: raw sub-selection
	HasFields bool           // FormCalc: whether the "fields" key was present
}

// Decode interprets one sibling list of the wire format. It is purely
// structural: names are untranslated and never checked against a schema.
func Decode(raw []any) ([]Entry, *fielderr.Error) {
	entries := make([]Entry, 0, len(raw))
	for _, elem := range raw {
		e, err := decodeEntry(elem)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeEntry(elem any) (Entry, *fielderr.Error) {
	switch v := elem.(type) {
	case string:
		return Entry{Name: v, Form: FormBare}, nil
	case map[string]any:
		if len(v) != 1 {
			return Entry{}, fielderr.InvalidFieldFormat(joinKeys(v), nil)
		}
		for name, spec := range v {
			return decodeNested(name, spec)
		}
	}
	return Entry{}, fielderr.UnsupportedFieldFormat(describe(elem), nil)
}

func decodeNested(name string, spec any) (Entry, *fielderr.Error) {
	switch s := spec.(type) {
	case []any:
		return Entry{Name: name, Form: FormList, List: s}, nil
	case map[string]any:
		return decodeCalc(name, s)
	}
	return Entry{}, fielderr.UnsupportedFieldFormat(name, nil)
}

func decodeCalc(name string, spec map[string]any) (Entry, *fielderr.Error) {
	e := Entry{Name: name, Form: FormCalc}
	known := 0
	if rawArgs, ok := spec["args"]; ok {
		known++
		args, ok := rawArgs.(map[string]any)
		if !ok && rawArgs != nil {
			return Entry{}, fielderr.InvalidCalculationSpec(name, "", nil)
		}
		e.Args = args
	}
	if rawFields, ok := spec["fields"]; ok {
		known++
		fields, ok := rawFields.([]any)
		if !ok && rawFields != nil {
			return Entry{}, fielderr.InvalidCalculationSpec(name, "", nil)
		}
		e.Fields = fields
		e.HasFields = true
	}
	if known == 0 || known != len(spec) {
		return Entry{}, fielderr.InvalidCalculationSpec(name, "", nil)
	}
	return e, nil
}

func joinKeys(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// describe renders a non-conforming entry for error context.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "list"
	default:
		return "value"
	}
}
