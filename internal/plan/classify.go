package plan

import (
	schema "github.com/tvarn/fieldplan/internal/schema"
)

// Classification is the closed set of field shapes the processor dispatches
// on. It is a pure function of (field name, owner resource): the client's
// request form never influences it.
type Classification int

const (
	Unknown Classification = iota
	SimpleAttribute
	SimpleCalculation
	ComplexCalculation
	Aggregate
	Relationship
	EmbeddedResource
	EmbeddedResourceArray
	UnionField
	TypedStruct
	ConstrainedMap
	TupleField
	KeywordList
	CustomScalar
)

func (c Classification) String() string {
	switch c {
	case SimpleAttribute:
		return "attribute"
	case SimpleCalculation:
		return "calculation"
	case ComplexCalculation:
		return "calculation"
	case Aggregate:
		return "aggregate"
	case Relationship:
		return "relationship"
	case EmbeddedResource:
		return "embedded resource"
	case EmbeddedResourceArray:
		return "embedded resource"
	case UnionField:
		return "union"
	case TypedStruct:
		return "typed struct"
	case ConstrainedMap:
		return "map"
	case TupleField:
		return "tuple"
	case KeywordList:
		return "keyword list"
	case CustomScalar:
		return "custom scalar"
	}
	return "unknown"
}

// fieldShape bundles a classification with the schema details the handlers
// need, so classification happens exactly once per field.
type fieldShape struct {
	class Classification
	info  schema.FieldInfo
}

func (s fieldShape) attrType() *schema.TypeRef { return s.info.Attribute.Type }

// classify resolves a canonical field name against the owner resource.
// It never fails: names the oracle does not know map to Unknown.
func classify(r *schema.Resource, name string) fieldShape {
	info, ok := r.Field(name)
	if !ok {
		return fieldShape{class: Unknown}
	}
	switch info.Class {
	case schema.ClassAttribute:
		return fieldShape{class: classifyAttribute(info.Attribute.Type), info: info}
	case schema.ClassCalculation:
		if len(info.Calculation.Args) > 0 || !info.Calculation.Returns.Primitive() {
			return fieldShape{class: ComplexCalculation, info: info}
		}
		return fieldShape{class: SimpleCalculation, info: info}
	case schema.ClassAggregate:
		return fieldShape{class: Aggregate, info: info}
	case schema.ClassRelationship:
		return fieldShape{class: Relationship, info: info}
	}
	return fieldShape{class: Unknown}
}

func classifyAttribute(t *schema.TypeRef) Classification {
	switch t.Elem().Kind {
	case schema.KindScalar:
		return SimpleAttribute
	case schema.KindCustom:
		return CustomScalar
	case schema.KindResource:
		if t.IsArray() {
			return EmbeddedResourceArray
		}
		return EmbeddedResource
	case schema.KindUnion:
		return UnionField
	case schema.KindStruct:
		return TypedStruct
	case schema.KindMap:
		return ConstrainedMap
	case schema.KindTuple:
		return TupleField
	case schema.KindKeyword:
		return KeywordList
	}
	return Unknown
}
