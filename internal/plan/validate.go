package plan

import (
	fielderr "github.com/tvarn/fieldplan/internal/fielderr"
	fieldspec "github.com/tvarn/fieldplan/internal/fieldspec"
)

// validateForm checks that the client's syntactic form is legal for the
// field's classification. Deeper checks (argument schemas, child selections)
// belong to the per-shape handlers.
func validateForm(sh fieldShape, e fieldspec.Entry, typeName string, path []string) *fielderr.Error {
	name := path[len(path)-1]
	switch sh.class {
	case SimpleAttribute:
		if e.Form != fieldspec.FormBare {
			return fielderr.SimpleAttributeWithSpec(name, typeName, path)
		}
	case SimpleCalculation:
		if e.Form != fieldspec.FormBare {
			return fielderr.SimpleCalculationWithSpec(name, typeName, path)
		}
	case Aggregate, CustomScalar:
		if e.Form != fieldspec.FormBare {
			return fielderr.NoNesting(name, typeName, path)
		}
	case ComplexCalculation:
		switch e.Form {
		case fieldspec.FormCalc:
			// ok; handler checks args and sub-selection
		case fieldspec.FormBare:
			if !sh.info.Calculation.Returns.Primitive() {
				return fielderr.RequiresFieldSelection("calculation", name, typeName, path)
			}
			return fielderr.InvalidCalculationArgs(name, typeName, path)
		default:
			return fielderr.InvalidCalculationSpec(name, typeName, path)
		}
	case Relationship, EmbeddedResource, EmbeddedResourceArray,
		UnionField, TypedStruct, ConstrainedMap, TupleField, KeywordList:
		// A syntactically valid empty list still means "select nothing",
		// which is a client error, not a silent no-op.
		if e.Form != fieldspec.FormList || len(e.List) == 0 {
			return fielderr.RequiresFieldSelection(sh.class.String(), name, typeName, path)
		}
	case Unknown:
		return fielderr.UnknownField(name, typeName, path)
	}
	return nil
}
