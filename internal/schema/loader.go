package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML schema definition file and builds a validated registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	resources, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(resources...)
}

// Parse decodes YAML resource definitions without building the registry.
func Parse(data []byte) ([]*Resource, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	resources := make([]*Resource, 0, len(doc.Resources))
	for _, rd := range doc.Resources {
		r, err := rd.build()
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

type schemaDoc struct {
	Resources []resourceDef `yaml:"resources"`
}

type resourceDef struct {
	Name          string            `yaml:"name"`
	Attributes    []attributeDef    `yaml:"attributes"`
	Calculations  []calculationDef  `yaml:"calculations"`
	Aggregates    []aggregateDef    `yaml:"aggregates"`
	Relationships []relationshipDef `yaml:"relationships"`
}

type attributeDef struct {
	Name string   `yaml:"name"`
	Type *typeDef `yaml:"type"`
}

type calculationDef struct {
	Name    string        `yaml:"name"`
	Returns *typeDef      `yaml:"returns"`
	Args    []argumentDef `yaml:"args"`
}

type argumentDef struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

type aggregateDef struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type relationshipDef struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
	Many   bool   `yaml:"many"`
}

func (rd resourceDef) build() (*Resource, error) {
	r := &Resource{Name: rd.Name}
	for _, a := range rd.Attributes {
		t, err := a.Type.typeRef()
		if err != nil {
			return nil, fmt.Errorf("resource %s, attribute %s: %w", rd.Name, a.Name, err)
		}
		r.Attributes = append(r.Attributes, &Attribute{Name: a.Name, Type: t})
	}
	for _, c := range rd.Calculations {
		t, err := c.Returns.typeRef()
		if err != nil {
			return nil, fmt.Errorf("resource %s, calculation %s: %w", rd.Name, c.Name, err)
		}
		calc := &Calculation{Name: c.Name, Returns: t}
		for _, arg := range c.Args {
			calc.Args = append(calc.Args, Argument{Name: arg.Name, Required: arg.Required})
		}
		r.Calculations = append(r.Calculations, calc)
	}
	for _, ag := range rd.Aggregates {
		r.Aggregates = append(r.Aggregates, &Aggregate{Name: ag.Name, Kind: ag.Kind})
	}
	for _, rel := range rd.Relationships {
		r.Relationships = append(r.Relationships, &Relationship{Name: rel.Name, Target: rel.Target, Many: rel.Many})
	}
	return r, nil
}

// typeDef accepts either a bare scalar name or a mapping with exactly one of
// the shape keys: array, resource, custom, union, struct, map, keyword, tuple.
type typeDef struct {
	scalar string

	Array    *typeDef       `yaml:"array"`
	Resource string         `yaml:"resource"`
	Custom   string         `yaml:"custom"`
	Union    []memberDef    `yaml:"union"`
	Struct   []nestedDef    `yaml:"struct"`
	Map      []nestedDef    `yaml:"map"`
	Keyword  []nestedDef    `yaml:"keyword"`
	Tuple    []tupleSlotDef `yaml:"tuple"`
}

type memberDef struct {
	Tag  string   `yaml:"tag"`
	Type *typeDef `yaml:"type"`
}

type nestedDef struct {
	Name string   `yaml:"name"`
	Type *typeDef `yaml:"type"`
}

// tupleSlotDef accepts either a bare slot name or {name, type}.
type tupleSlotDef struct {
	Name string   `yaml:"name"`
	Type *typeDef `yaml:"type"`
}

func (s *tupleSlotDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Name = node.Value
		return nil
	}
	type plain tupleSlotDef
	return node.Decode((*plain)(s))
}

func (t *typeDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.scalar = node.Value
		return nil
	}
	type plain typeDef
	return node.Decode((*plain)(t))
}

func (t *typeDef) typeRef() (*TypeRef, error) {
	if t == nil {
		return nil, fmt.Errorf("missing type")
	}
	if t.scalar != "" {
		return Scalar(t.scalar), nil
	}
	switch {
	case t.Array != nil:
		of, err := t.Array.typeRef()
		if err != nil {
			return nil, err
		}
		return Array(of), nil
	case t.Resource != "":
		return ResourceRef(t.Resource), nil
	case t.Custom != "":
		return Custom(t.Custom), nil
	case len(t.Union) > 0:
		members := make([]UnionMember, 0, len(t.Union))
		for _, m := range t.Union {
			mt, err := m.Type.typeRef()
			if err != nil {
				return nil, fmt.Errorf("union member %s: %w", m.Tag, err)
			}
			members = append(members, UnionMember{Tag: m.Tag, Type: mt})
		}
		return Union(members...), nil
	case len(t.Struct) > 0:
		fs, err := nestedFields(t.Struct)
		if err != nil {
			return nil, err
		}
		return Struct(fs...), nil
	case len(t.Map) > 0:
		fs, err := nestedFields(t.Map)
		if err != nil {
			return nil, err
		}
		return MapOf(fs...), nil
	case len(t.Keyword) > 0:
		fs, err := nestedFields(t.Keyword)
		if err != nil {
			return nil, err
		}
		return Keyword(fs...), nil
	case len(t.Tuple) > 0:
		slots := make([]TupleSlot, 0, len(t.Tuple))
		for i, s := range t.Tuple {
			var st *TypeRef
			if s.Type != nil {
				ref, err := s.Type.typeRef()
				if err != nil {
					return nil, fmt.Errorf("tuple slot %s: %w", s.Name, err)
				}
				st = ref
			}
			slots = append(slots, TupleSlot{Index: i, Name: s.Name, Type: st})
		}
		return Tuple(slots...), nil
	}
	return nil, fmt.Errorf("empty type definition")
}

func nestedFields(defs []nestedDef) ([]StructField, error) {
	fs := make([]StructField, 0, len(defs))
	for _, d := range defs {
		ft, err := d.Type.typeRef()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", d.Name, err)
		}
		fs = append(fs, StructField{Name: d.Name, Type: ft})
	}
	return fs, nil
}
