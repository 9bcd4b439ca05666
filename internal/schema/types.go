// Package schema is the read-only oracle the planner consults: for a named
// resource it answers which fields exist, what shape each field has, and what
// nested constraints apply. All names are canonical (snake_case).
package schema

// Kind discriminates TypeRef shapes.
type Kind int

const (
	// KindScalar is a plain stored scalar (string, integer, uuid, ...).
	KindScalar Kind = iota
	// KindCustom is an opaque custom scalar; nesting into it is never legal.
	KindCustom
	// KindResource is an embedded resource stored inline on the owner.
	KindResource
	// KindUnion is exactly one of several tagged member shapes at runtime.
	KindUnion
	// KindStruct is a structurally-fixed composite value type.
	KindStruct
	// KindMap is a map constrained to an explicit field list.
	KindMap
	// KindTuple is an ordered composite with named slots.
	KindTuple
	// KindKeyword is a keyword list constrained to an explicit field list.
	KindKeyword
	// KindArray wraps an element type.
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindCustom:
		return "custom scalar"
	case KindResource:
		return "embedded resource"
	case KindUnion:
		return "union"
	case KindStruct:
		return "typed struct"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindKeyword:
		return "keyword list"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// TypeRef describes the shape of an attribute value or calculation return.
type TypeRef struct {
	Kind    Kind
	Name    string        // KindScalar/KindCustom: type name; KindResource: resource name
	Of      *TypeRef      // KindArray: element type
	Members []UnionMember // KindUnion
	Fields  []StructField // KindStruct, KindMap, KindKeyword
	Slots   []TupleSlot   // KindTuple
}

// UnionMember is one possible runtime shape of a union, keyed by tag.
type UnionMember struct {
	Tag  string
	Type *TypeRef
}

// StructField is a named field of a struct, constrained map, or keyword list.
type StructField struct {
	Name string
	Type *TypeRef
}

// TupleSlot is a named positional slot of a tuple.
type TupleSlot struct {
	Index int
	Name  string
	Type  *TypeRef
}

// Constructor helpers.

func Scalar(name string) *TypeRef          { return &TypeRef{Kind: KindScalar, Name: name} }
func Custom(name string) *TypeRef          { return &TypeRef{Kind: KindCustom, Name: name} }
func ResourceRef(name string) *TypeRef     { return &TypeRef{Kind: KindResource, Name: name} }
func Array(of *TypeRef) *TypeRef           { return &TypeRef{Kind: KindArray, Of: of} }
func Union(ms ...UnionMember) *TypeRef     { return &TypeRef{Kind: KindUnion, Members: ms} }
func Struct(fs ...StructField) *TypeRef    { return &TypeRef{Kind: KindStruct, Fields: fs} }
func MapOf(fs ...StructField) *TypeRef     { return &TypeRef{Kind: KindMap, Fields: fs} }
func Keyword(fs ...StructField) *TypeRef   { return &TypeRef{Kind: KindKeyword, Fields: fs} }
func Tuple(slots ...TupleSlot) *TypeRef    { return &TypeRef{Kind: KindTuple, Slots: slots} }

// Elem unwraps array wrappers down to the element type.
func (t *TypeRef) Elem() *TypeRef {
	for t != nil && t.Kind == KindArray {
		t = t.Of
	}
	return t
}

// IsArray reports whether t is wrapped in at least one array.
func (t *TypeRef) IsArray() bool { return t != nil && t.Kind == KindArray }

// Primitive reports whether a value of t carries no selectable sub-fields.
func (t *TypeRef) Primitive() bool {
	e := t.Elem()
	return e == nil || e.Kind == KindScalar || e.Kind == KindCustom
}

// Member returns the union member with the given tag.
func (t *TypeRef) Member(tag string) (UnionMember, bool) {
	for _, m := range t.Members {
		if m.Tag == tag {
			return m, true
		}
	}
	return UnionMember{}, false
}

// Field returns the struct/map/keyword field with the given name.
func (t *TypeRef) Field(name string) (StructField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

// Slot returns the tuple slot with the given name.
func (t *TypeRef) Slot(name string) (TupleSlot, bool) {
	for _, s := range t.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return TupleSlot{}, false
}

// Resource is a schema entity with stored, computed, and related fields.
type Resource struct {
	Name          string
	Attributes    []*Attribute
	Calculations  []*Calculation
	Aggregates    []*Aggregate
	Relationships []*Relationship

	index map[string]FieldInfo // built once by Build
}

// Attribute is a stored field.
type Attribute struct {
	Name string
	Type *TypeRef
}

// Argument is one parameter of a calculation's signature.
type Argument struct {
	Name     string
	Required bool
}

// Calculation is a computed field, optionally parameterized.
type Calculation struct {
	Name    string
	Args    []Argument
	Returns *TypeRef
}

// Aggregate is a computed rollup over related data.
type Aggregate struct {
	Name string
	Kind string // count, sum, exists, ... informational only
}

// Relationship links to another resource.
type Relationship struct {
	Name   string
	Target string
	Many   bool
}

// FieldClass says which field list a name resolved from.
type FieldClass int

const (
	ClassAttribute FieldClass = iota
	ClassCalculation
	ClassAggregate
	ClassRelationship
)

// FieldInfo is the oracle's answer for a single field lookup.
type FieldInfo struct {
	Class        FieldClass
	Attribute    *Attribute
	Calculation  *Calculation
	Aggregate    *Aggregate
	Relationship *Relationship
}

// Field looks up a field by canonical name. O(1): the index is built once
// when the registry is assembled, so classifying N siblings never rescans
// the resource's field lists.
func (r *Resource) Field(name string) (FieldInfo, bool) {
	info, ok := r.index[name]
	return info, ok
}

func (r *Resource) buildIndex() {
	r.index = make(map[string]FieldInfo,
		len(r.Attributes)+len(r.Calculations)+len(r.Aggregates)+len(r.Relationships))
	for _, a := range r.Attributes {
		r.index[a.Name] = FieldInfo{Class: ClassAttribute, Attribute: a}
	}
	for _, c := range r.Calculations {
		r.index[c.Name] = FieldInfo{Class: ClassCalculation, Calculation: c}
	}
	for _, ag := range r.Aggregates {
		r.index[ag.Name] = FieldInfo{Class: ClassAggregate, Aggregate: ag}
	}
	for _, rel := range r.Relationships {
		r.index[rel.Name] = FieldInfo{Class: ClassRelationship, Relationship: rel}
	}
}
