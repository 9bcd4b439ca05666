package fielderr

import (
	"fmt"
	"strings"

	format "github.com/tvarn/fieldplan/internal/format"
)

// Code identifies one case of the field processing error taxonomy. The set is
// closed: callers translating errors into user-facing messages switch over it.
type Code string

const (
	CodeUnknownField              Code = "unknown_field"
	CodeUnsupportedFieldFormat    Code = "unsupported_field_format"
	CodeInvalidFieldFormat        Code = "invalid_field_format"
	CodeDuplicateField            Code = "duplicate_field"
	CodeSimpleAttributeWithSpec   Code = "simple_attribute_with_spec"
	CodeSimpleCalculationWithSpec Code = "simple_calculation_with_spec"
	CodeNoNesting                 Code = "field_does_not_support_nesting"
	CodeInvalidCalculationSpec    Code = "invalid_calculation_spec"
	CodeInvalidCalculationArgs    Code = "invalid_calculation_args"
	CodeRequiresFieldSelection    Code = "requires_field_selection"
	CodeRelationshipField         Code = "relationship_field_error"
	CodeEmbeddedResourceField     Code = "embedded_resource_field_error"
	CodeActionNotFound            Code = "action_not_found"
	CodeInvalidFieldSelection     Code = "invalid_field_selection"
)

// Error is a failed field-processing step with enough context to reconstruct
// the dotted path to the failing field. Errors are created at the recursion
// depth where validation fails and propagate unchanged; relationship and
// embedded-resource handlers wrap nested errors with their own context.
type Error struct {
	Code  Code
	Field string   // canonical field name at the point of failure
	Type  string   // owner resource or type name
	Kind  string   // classification kind, for requires_field_selection
	Path  []string // canonical segments from the request root, inclusive
	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Type != "" {
		fmt.Fprintf(&b, " on %s", e.Type)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " at %s", strings.Join(e.Path, "."))
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// RenderPath returns the dotted path in the client's external convention.
func (e *Error) RenderPath(f format.Formatter) string {
	return format.Path(f, e.Path)
}

// Leaf returns the innermost *Error in err's chain, or nil if there is none.
// Relationship and embedded-resource wrappers attach enclosing context; the
// leaf carries the original code and the full path to the failure.
func Leaf(err error) *Error {
	var leaf *Error
	for err != nil {
		fe, ok := err.(*Error)
		if !ok {
			break
		}
		leaf = fe
		err = fe.cause
	}
	return leaf
}

// Message renders a human-readable description for the leaf error.
func (e *Error) Message(f format.Formatter) string {
	field := e.Field
	if f != nil {
		field = f.ToExternal(e.Field)
	}
	switch e.Code {
	case CodeUnknownField:
		return fmt.Sprintf("unknown field %q on %s", field, e.Type)
	case CodeUnsupportedFieldFormat:
		return fmt.Sprintf("field entry %q is neither a field name nor a single-key object", field)
	case CodeInvalidFieldFormat:
		return fmt.Sprintf("field entry object must have exactly one key, got %q", field)
	case CodeDuplicateField:
		return fmt.Sprintf("field %q is requested more than once", field)
	case CodeSimpleAttributeWithSpec:
		return fmt.Sprintf("attribute %q does not accept a nested field specification", field)
	case CodeSimpleCalculationWithSpec:
		return fmt.Sprintf("calculation %q does not accept a nested field specification", field)
	case CodeNoNesting:
		return fmt.Sprintf("field %q does not support nesting", field)
	case CodeInvalidCalculationSpec:
		return fmt.Sprintf("calculation %q expects an object with \"args\" and optional \"fields\"", field)
	case CodeInvalidCalculationArgs:
		return fmt.Sprintf("invalid arguments for calculation %q", field)
	case CodeRequiresFieldSelection:
		return fmt.Sprintf("%s %q requires a non-empty field selection", e.Kind, field)
	case CodeInvalidFieldSelection:
		return fmt.Sprintf("field selection is not allowed on %q: it returns a primitive value", field)
	case CodeActionNotFound:
		return fmt.Sprintf("no resource or action named %q is exposed", field)
	default:
		return e.Error()
	}
}
