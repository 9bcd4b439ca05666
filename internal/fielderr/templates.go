package fielderr

// Constructors for each taxonomy case.
// NOTE: keep shapes stable; downstream message translation matches on Code.

func UnknownField(field, typeName string, path []string) *Error {
	return &Error{Code: CodeUnknownField, Field: field, Type: typeName, Path: path}
}

func UnsupportedFieldFormat(field string, path []string) *Error {
	return &Error{Code: CodeUnsupportedFieldFormat, Field: field, Path: path}
}

func InvalidFieldFormat(field string, path []string) *Error {
	return &Error{Code: CodeInvalidFieldFormat, Field: field, Path: path}
}

func DuplicateField(field, typeName string, path []string) *Error {
	return &Error{Code: CodeDuplicateField, Field: field, Type: typeName, Path: path}
}

func SimpleAttributeWithSpec(field, typeName string, path []string) *Error {
	return &Error{Code: CodeSimpleAttributeWithSpec, Field: field, Type: typeName, Path: path}
}

func SimpleCalculationWithSpec(field, typeName string, path []string) *Error {
	return &Error{Code: CodeSimpleCalculationWithSpec, Field: field, Type: typeName, Path: path}
}

func NoNesting(field, typeName string, path []string) *Error {
	return &Error{Code: CodeNoNesting, Field: field, Type: typeName, Path: path}
}

func InvalidCalculationSpec(field, typeName string, path []string) *Error {
	return &Error{Code: CodeInvalidCalculationSpec, Field: field, Type: typeName, Path: path}
}

func InvalidCalculationArgs(field, typeName string, path []string) *Error {
	return &Error{Code: CodeInvalidCalculationArgs, Field: field, Type: typeName, Path: path}
}

func RequiresFieldSelection(kind, field, typeName string, path []string) *Error {
	return &Error{Code: CodeRequiresFieldSelection, Kind: kind, Field: field, Type: typeName, Path: path}
}

func InvalidFieldSelection(field, typeName string, path []string) *Error {
	return &Error{Code: CodeInvalidFieldSelection, Field: field, Type: typeName, Path: path}
}

func ActionNotFound(name string) *Error {
	return &Error{Code: CodeActionNotFound, Field: name}
}

// WrapRelationship attaches the enclosing relationship field's context to a
// nested failure.
func WrapRelationship(field, typeName string, path []string, cause error) *Error {
	return &Error{Code: CodeRelationshipField, Field: field, Type: typeName, Path: path, cause: cause}
}

// WrapEmbedded attaches the enclosing embedded-resource field's context to a
// nested failure.
func WrapEmbedded(field, typeName string, path []string, cause error) *Error {
	return &Error{Code: CodeEmbeddedResourceField, Field: field, Type: typeName, Path: path, cause: cause}
}
