package schema

import "fmt"

// Violation is one schema definition problem found during Build.
type Violation struct {
	Message  string `json:"message"`
	Resource string `json:"resource,omitempty"`
	Field    string `json:"field,omitempty"`
}

// ValidationError aggregates all violations found in one Build pass.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "schema violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.Resource != "" {
			line += fmt.Sprintf(" (resource %s", v.Resource)
			if v.Field != "" {
				line += ", field " + v.Field
			}
			line += ")"
		}
		msg += line + "\n"
	}
	return msg
}

// Common reusable violation constructors.
// NOTE: keep messages stable to avoid breaking snapshot tests.

func violationDuplicateField(resource, field string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("duplicate field %q", field),
		Resource: resource,
		Field:    field,
	}
}

func violationUnknownRelationshipTarget(resource, field, target string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("relationship %q targets unknown resource %q", field, target),
		Resource: resource,
		Field:    field,
	}
}

func violationUnknownEmbeddedResource(resource, field, ref string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("field %q embeds unknown resource %q", field, ref),
		Resource: resource,
		Field:    field,
	}
}

func violationDuplicateUnionTag(resource, field, tag string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("union field %q has duplicate member tag %q", field, tag),
		Resource: resource,
		Field:    field,
	}
}

func violationDuplicateNestedField(resource, field, nested string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("field %q has duplicate nested field %q", field, nested),
		Resource: resource,
		Field:    field,
	}
}

func violationDuplicateSlotName(resource, field, slot string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("tuple field %q has duplicate slot name %q", field, slot),
		Resource: resource,
		Field:    field,
	}
}

func violationSlotIndex(resource, field string, got, want int) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("tuple field %q slot index %d out of order, want %d", field, got, want),
		Resource: resource,
		Field:    field,
	}
}

func violationDuplicateArgument(resource, field, arg string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("calculation %q has duplicate argument %q", field, arg),
		Resource: resource,
		Field:    field,
	}
}

func violationDuplicateResource(resource string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("duplicate resource %q", resource),
		Resource: resource,
	}
}

func violationMissingType(resource, field string) *Violation {
	return &Violation{
		Message:  fmt.Sprintf("field %q has no type", field),
		Resource: resource,
		Field:    field,
	}
}
