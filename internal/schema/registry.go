package schema

// Registry holds all known resources and answers lookups by name. It is
// immutable after Build; concurrent readers need no locking.
type Registry struct {
	resources map[string]*Resource
}

// Resource returns the resource with the given canonical name, or nil.
func (g *Registry) Resource(name string) *Resource {
	if g == nil {
		return nil
	}
	return g.resources[name]
}

// Resources returns the number of registered resources.
func (g *Registry) Resources() int { return len(g.resources) }

// Build assembles a registry from resource definitions, validating the whole
// graph in one pass. It returns a ValidationError listing every violation
// rather than stopping at the first, so schema authors can fix a file in one
// round trip.
func Build(resources ...*Resource) (*Registry, error) {
	g := &Registry{resources: make(map[string]*Resource, len(resources))}
	var violations ValidationError

	for _, r := range resources {
		if _, exists := g.resources[r.Name]; exists {
			violations = append(violations, violationDuplicateResource(r.Name))
			continue
		}
		g.resources[r.Name] = r
	}

	for _, r := range resources {
		violations = append(violations, validateResource(g, r)...)
		r.buildIndex()
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return g, nil
}

func validateResource(g *Registry, r *Resource) ValidationError {
	var vs ValidationError
	seen := make(map[string]struct{})
	note := func(name string) {
		if _, dup := seen[name]; dup {
			vs = append(vs, violationDuplicateField(r.Name, name))
		}
		seen[name] = struct{}{}
	}

	for _, a := range r.Attributes {
		note(a.Name)
		if a.Type == nil {
			vs = append(vs, violationMissingType(r.Name, a.Name))
			continue
		}
		vs = append(vs, validateTypeRef(g, r.Name, a.Name, a.Type)...)
	}
	for _, c := range r.Calculations {
		note(c.Name)
		if c.Returns == nil {
			vs = append(vs, violationMissingType(r.Name, c.Name))
		} else {
			vs = append(vs, validateTypeRef(g, r.Name, c.Name, c.Returns)...)
		}
		argSeen := make(map[string]struct{}, len(c.Args))
		for _, arg := range c.Args {
			if _, dup := argSeen[arg.Name]; dup {
				vs = append(vs, violationDuplicateArgument(r.Name, c.Name, arg.Name))
			}
			argSeen[arg.Name] = struct{}{}
		}
	}
	for _, ag := range r.Aggregates {
		note(ag.Name)
	}
	for _, rel := range r.Relationships {
		note(rel.Name)
		if g.Resource(rel.Target) == nil {
			vs = append(vs, violationUnknownRelationshipTarget(r.Name, rel.Name, rel.Target))
		}
	}
	return vs
}

// validateTypeRef walks a type shape recursively. Depth is bounded by the
// definition itself; embedded resource references are resolved by name, so a
// resource embedding its own type does not recurse here.
func validateTypeRef(g *Registry, resource, field string, t *TypeRef) ValidationError {
	var vs ValidationError
	switch t.Kind {
	case KindArray:
		if t.Of == nil {
			vs = append(vs, violationMissingType(resource, field))
			return vs
		}
		vs = append(vs, validateTypeRef(g, resource, field, t.Of)...)
	case KindResource:
		if g.Resource(t.Name) == nil {
			vs = append(vs, violationUnknownEmbeddedResource(resource, field, t.Name))
		}
	case KindUnion:
		tags := make(map[string]struct{}, len(t.Members))
		for _, m := range t.Members {
			if _, dup := tags[m.Tag]; dup {
				vs = append(vs, violationDuplicateUnionTag(resource, field, m.Tag))
			}
			tags[m.Tag] = struct{}{}
			if m.Type == nil {
				vs = append(vs, violationMissingType(resource, field))
				continue
			}
			vs = append(vs, validateTypeRef(g, resource, field, m.Type)...)
		}
	case KindStruct, KindMap, KindKeyword:
		names := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if _, dup := names[f.Name]; dup {
				vs = append(vs, violationDuplicateNestedField(resource, field, f.Name))
			}
			names[f.Name] = struct{}{}
			if f.Type == nil {
				vs = append(vs, violationMissingType(resource, field))
				continue
			}
			vs = append(vs, validateTypeRef(g, resource, field, f.Type)...)
		}
	case KindTuple:
		names := make(map[string]struct{}, len(t.Slots))
		for i, s := range t.Slots {
			if s.Index != i {
				vs = append(vs, violationSlotIndex(resource, field, s.Index, i))
			}
			if _, dup := names[s.Name]; dup {
				vs = append(vs, violationDuplicateSlotName(resource, field, s.Name))
			}
			names[s.Name] = struct{}{}
		}
	}
	return vs
}
