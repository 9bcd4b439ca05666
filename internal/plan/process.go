// Package plan turns a client field specification into the (select, load,
// template) triple consumed by the fetch and extraction layers. Processing is
// a single synchronous recursive descent: classify each sibling, validate the
// requested form, dispatch to the shape's handler, and stop at the first
// error. Each call builds only local state, so concurrent plans over one
// registry are safe without locking.
package plan

import (
	fielderr "github.com/tvarn/fieldplan/internal/fielderr"
	fieldspec "github.com/tvarn/fieldplan/internal/fieldspec"
	format "github.com/tvarn/fieldplan/internal/format"
	schema "github.com/tvarn/fieldplan/internal/schema"
)

// Planner processes requests against one registry with one name convention.
// Both are read-only snapshots; a Planner is safe for concurrent use.
type Planner struct {
	reg  *schema.Registry
	fmtr format.Formatter
}

func New(reg *schema.Registry, fmtr format.Formatter) *Planner {
	return &Planner{reg: reg, fmtr: fmtr}
}

func (p *Planner) Formatter() format.Formatter { return p.fmtr }

// Plan processes raw client input (the decoded JSON wire shape) against the
// named resource. The first validation failure anywhere in the descent is
// returned immediately; there are no partial results.
func (p *Planner) Plan(resource string, raw []any) (*Result, error) {
	r := p.reg.Resource(p.fmtr.ToCanonical(resource))
	if r == nil {
		return nil, fielderr.ActionNotFound(resource)
	}
	res, err := p.processResource(r, raw, nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Planner) processResource(r *schema.Resource, raw []any, path []string) (*Result, *fielderr.Error) {
	entries, derr := p.decode(raw, r.Name, path)
	if derr != nil {
		return nil, derr
	}

	res := &Result{}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := p.fmtr.ToCanonical(e.Name)
		fpath := appendPath(path, name)

		// The second occurrence fails regardless of form: once bare and once
		// nested is still a duplicate.
		if _, dup := seen[name]; dup {
			return nil, fielderr.DuplicateField(name, r.Name, fpath)
		}
		seen[name] = struct{}{}

		sh := classify(r, name)
		if err := validateForm(sh, e, r.Name, fpath); err != nil {
			return nil, err
		}

		var err *fielderr.Error
		switch sh.class {
		case SimpleAttribute, CustomScalar:
			res.Select = append(res.Select, name)
			res.Template = append(res.Template, TemplateEntry{Field: name})
		case SimpleCalculation, Aggregate:
			res.Load = append(res.Load, LoadEntry{Field: name})
			res.Template = append(res.Template, TemplateEntry{Field: name})
		case ComplexCalculation:
			err = p.handleCalculation(res, sh.info.Calculation, e, r.Name, fpath)
		case Relationship:
			err = p.handleRelationship(res, sh.info.Relationship, e, r.Name, fpath)
		case EmbeddedResource, EmbeddedResourceArray:
			err = p.handleEmbedded(res, sh.attrType(), e, r.Name, fpath)
		case UnionField:
			err = p.handleUnion(res, sh.attrType().Elem(), e, r.Name, fpath)
		case TypedStruct, ConstrainedMap, KeywordList:
			err = p.handleConstrained(res, sh.attrType().Elem(), e, r.Name, fpath)
		case TupleField:
			err = p.handleTuple(res, sh.attrType().Elem(), e, r.Name, fpath)
		}
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// decode interprets one sibling list, attaching owner and path context to
// structural failures.
func (p *Planner) decode(raw []any, typeName string, path []string) ([]fieldspec.Entry, *fielderr.Error) {
	entries, derr := fieldspec.Decode(raw)
	if derr != nil {
		derr.Type = typeName
		derr.Path = path
		return nil, derr
	}
	return entries, nil
}

func (p *Planner) handleCalculation(res *Result, calc *schema.Calculation, e fieldspec.Entry, owner string, path []string) *fielderr.Error {
	name := path[len(path)-1]

	args, err := p.coerceArgs(calc, e.Args, owner, path)
	if err != nil {
		return err
	}

	ret := calc.Returns.Elem()
	switch {
	case ret.Kind == schema.KindResource:
		if len(e.Fields) == 0 {
			return fielderr.RequiresFieldSelection("calculation", name, owner, path)
		}
		sub, serr := p.processResource(p.reg.Resource(ret.Name), e.Fields, path)
		if serr != nil {
			return serr
		}
		res.Load = append(res.Load, LoadEntry{Field: name, Args: args, Select: sub.Select, Load: sub.Load})
		res.Template = append(res.Template, TemplateEntry{Field: name, Children: sub.Template})
	case !ret.Primitive():
		if len(e.Fields) == 0 {
			return fielderr.RequiresFieldSelection("calculation", name, owner, path)
		}
		entry, loads, serr := p.processValue(name, ret, e.Fields, owner, path)
		if serr != nil {
			return serr
		}
		res.Load = append(res.Load, LoadEntry{Field: name, Args: args, Load: loads})
		res.Template = append(res.Template, *entry)
	default:
		// Primitive return: a sub-selection has nothing to select.
		if len(e.Fields) > 0 {
			return fielderr.InvalidFieldSelection(name, owner, path)
		}
		res.Load = append(res.Load, LoadEntry{Field: name, Args: args})
		res.Template = append(res.Template, TemplateEntry{Field: name})
	}
	return nil
}

// coerceArgs checks supplied argument names and requiredness against the
// calculation's signature and canonicalizes the keys. Value coercion is the
// fetch layer's concern.
func (p *Planner) coerceArgs(calc *schema.Calculation, given map[string]any, owner string, path []string) (map[string]any, *fielderr.Error) {
	name := path[len(path)-1]
	args := make(map[string]any, len(given))
	for key, val := range given {
		canonical := p.fmtr.ToCanonical(key)
		known := false
		for _, a := range calc.Args {
			if a.Name == canonical {
				known = true
				break
			}
		}
		if !known {
			return nil, fielderr.InvalidCalculationArgs(name, owner, path)
		}
		args[canonical] = val
	}
	for _, a := range calc.Args {
		if !a.Required {
			continue
		}
		if _, ok := args[a.Name]; !ok {
			return nil, fielderr.InvalidCalculationArgs(name, owner, path)
		}
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}

func (p *Planner) handleRelationship(res *Result, rel *schema.Relationship, e fieldspec.Entry, owner string, path []string) *fielderr.Error {
	name := path[len(path)-1]
	sub, err := p.processResource(p.reg.Resource(rel.Target), e.List, path)
	if err != nil {
		return fielderr.WrapRelationship(name, owner, path, err)
	}
	// Relationship fields never appear in select: materializing them is
	// always a fetch.
	res.Load = append(res.Load, LoadEntry{Field: name, Select: sub.Select, Load: sub.Load})
	res.Template = append(res.Template, TemplateEntry{Field: name, Children: sub.Template})
	return nil
}

func (p *Planner) handleEmbedded(res *Result, t *schema.TypeRef, e fieldspec.Entry, owner string, path []string) *fielderr.Error {
	name := path[len(path)-1]
	sub, err := p.processResource(p.reg.Resource(t.Elem().Name), e.List, path)
	if err != nil {
		return fielderr.WrapEmbedded(name, owner, path, err)
	}
	// Embedded values are stored inline: the field itself is selected, and
	// only calculations on the embedded type need a scoped load.
	res.Select = append(res.Select, name)
	if len(sub.Load) > 0 {
		res.Load = append(res.Load, LoadEntry{Field: name, Load: sub.Load})
	}
	res.Template = append(res.Template, TemplateEntry{Field: name, Children: sub.Template})
	return nil
}

func (p *Planner) handleUnion(res *Result, u *schema.TypeRef, e fieldspec.Entry, owner string, path []string) *fielderr.Error {
	name := path[len(path)-1]
	branches, loads, err := p.processUnion(u, e.List, owner, path)
	if err != nil {
		return err
	}
	res.Select = append(res.Select, name)
	if len(loads) > 0 {
		res.Load = append(res.Load, LoadEntry{Field: name, Load: loads})
	}
	res.Template = append(res.Template, TemplateEntry{Field: name, Union: branches})
	return nil
}

// processUnion validates per-member selections. Tags the client lists but the
// runtime value will not match are carried anyway: a union resolves to
// exactly one member, and extraction picks the branch that matches.
func (p *Planner) processUnion(u *schema.TypeRef, raw []any, owner string, path []string) ([]UnionBranch, []LoadEntry, *fielderr.Error) {
	entries, derr := p.decode(raw, owner, path)
	if derr != nil {
		return nil, nil, derr
	}

	var branches []UnionBranch
	var loads []LoadEntry
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		tag := p.fmtr.ToCanonical(e.Name)
		tpath := appendPath(path, tag)
		if _, dup := seen[tag]; dup {
			return nil, nil, fielderr.DuplicateField(tag, owner, tpath)
		}
		seen[tag] = struct{}{}

		member, ok := u.Member(tag)
		if !ok {
			return nil, nil, fielderr.UnknownField(tag, owner, tpath)
		}

		mt := member.Type.Elem()
		if mt.Kind == schema.KindScalar || mt.Kind == schema.KindCustom {
			if e.Form != fieldspec.FormBare {
				return nil, nil, fielderr.NoNesting(tag, owner, tpath)
			}
			branches = append(branches, UnionBranch{Tag: tag, Leaf: true})
			continue
		}

		if e.Form != fieldspec.FormList || len(e.List) == 0 {
			return nil, nil, fielderr.RequiresFieldSelection("union member", tag, owner, tpath)
		}
		if mt.Kind == schema.KindResource {
			sub, serr := p.processResource(p.reg.Resource(mt.Name), e.List, tpath)
			if serr != nil {
				return nil, nil, serr
			}
			branches = append(branches, UnionBranch{Tag: tag, Children: sub.Template})
			if len(sub.Load) > 0 {
				loads = append(loads, LoadEntry{Field: tag, Load: sub.Load})
			}
			continue
		}
		entry, subloads, serr := p.processValue(tag, mt, e.List, owner, tpath)
		if serr != nil {
			return nil, nil, serr
		}
		branches = append(branches, UnionBranch{Tag: tag, Children: entry.Children})
		if len(subloads) > 0 {
			loads = append(loads, LoadEntry{Field: tag, Load: subloads})
		}
	}
	return branches, loads, nil
}

func (p *Planner) handleConstrained(res *Result, t *schema.TypeRef, e fieldspec.Entry, owner string, path []string) *fielderr.Error {
	name := path[len(path)-1]
	children, loads, err := p.processComposite(t, e.List, owner, path)
	if err != nil {
		return err
	}
	res.Select = append(res.Select, name)
	if len(loads) > 0 {
		res.Load = append(res.Load, LoadEntry{Field: name, Load: loads})
	}
	res.Template = append(res.Template, TemplateEntry{Field: name, Children: children})
	return nil
}

// processComposite descends through an explicit field-constraint list
// (typed struct, constrained map, keyword list) rather than through the
// resource schema graph. Children may themselves be composite, so the
// descent is unbounded; it terminates because the request is finite.
func (p *Planner) processComposite(t *schema.TypeRef, raw []any, owner string, path []string) ([]TemplateEntry, []LoadEntry, *fielderr.Error) {
	entries, derr := p.decode(raw, owner, path)
	if derr != nil {
		return nil, nil, derr
	}

	var children []TemplateEntry
	var loads []LoadEntry
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := p.fmtr.ToCanonical(e.Name)
		fpath := appendPath(path, name)
		if _, dup := seen[name]; dup {
			return nil, nil, fielderr.DuplicateField(name, owner, fpath)
		}
		seen[name] = struct{}{}

		f, ok := t.Field(name)
		if !ok {
			return nil, nil, fielderr.UnknownField(name, owner, fpath)
		}

		ft := f.Type.Elem()
		if ft.Kind == schema.KindScalar || ft.Kind == schema.KindCustom {
			if e.Form != fieldspec.FormBare {
				return nil, nil, fielderr.SimpleAttributeWithSpec(name, owner, fpath)
			}
			children = append(children, TemplateEntry{Field: name})
			continue
		}

		if e.Form != fieldspec.FormList || len(e.List) == 0 {
			return nil, nil, fielderr.RequiresFieldSelection(classifyAttribute(f.Type).String(), name, owner, fpath)
		}
		if ft.Kind == schema.KindResource {
			sub, serr := p.processResource(p.reg.Resource(ft.Name), e.List, fpath)
			if serr != nil {
				return nil, nil, fielderr.WrapEmbedded(name, owner, fpath, serr)
			}
			children = append(children, TemplateEntry{Field: name, Children: sub.Template})
			if len(sub.Load) > 0 {
				loads = append(loads, LoadEntry{Field: name, Load: sub.Load})
			}
			continue
		}
		entry, subloads, serr := p.processValue(name, ft, e.List, owner, fpath)
		if serr != nil {
			return nil, nil, serr
		}
		children = append(children, *entry)
		if len(subloads) > 0 {
			loads = append(loads, LoadEntry{Field: name, Load: subloads})
		}
	}
	return children, loads, nil
}

// processValue dispatches a non-resource composite value shape.
func (p *Planner) processValue(name string, t *schema.TypeRef, raw []any, owner string, path []string) (*TemplateEntry, []LoadEntry, *fielderr.Error) {
	switch t.Kind {
	case schema.KindUnion:
		branches, loads, err := p.processUnion(t, raw, owner, path)
		if err != nil {
			return nil, nil, err
		}
		return &TemplateEntry{Field: name, Union: branches}, loads, nil
	case schema.KindTuple:
		refs, err := p.processTupleSlots(t, raw, owner, path)
		if err != nil {
			return nil, nil, err
		}
		return &TemplateEntry{Field: name, Tuple: refs}, nil, nil
	default:
		children, loads, err := p.processComposite(t, raw, owner, path)
		if err != nil {
			return nil, nil, err
		}
		return &TemplateEntry{Field: name, Children: children}, loads, nil
	}
}

func (p *Planner) handleTuple(res *Result, t *schema.TypeRef, e fieldspec.Entry, owner string, path []string) *fielderr.Error {
	name := path[len(path)-1]
	refs, err := p.processTupleSlots(t, e.List, owner, path)
	if err != nil {
		return err
	}
	res.Select = append(res.Select, name)
	res.Template = append(res.Template, TemplateEntry{Field: name, Tuple: refs})
	return nil
}

// processTupleSlots resolves named slot references so extraction can project
// positional data by name. Positional indices are never accepted.
func (p *Planner) processTupleSlots(t *schema.TypeRef, raw []any, owner string, path []string) ([]TupleSlotRef, *fielderr.Error) {
	entries, derr := p.decode(raw, owner, path)
	if derr != nil {
		return nil, derr
	}

	refs := make([]TupleSlotRef, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := p.fmtr.ToCanonical(e.Name)
		spath := appendPath(path, name)
		if e.Form != fieldspec.FormBare {
			return nil, fielderr.NoNesting(name, owner, spath)
		}
		if _, dup := seen[name]; dup {
			return nil, fielderr.DuplicateField(name, owner, spath)
		}
		seen[name] = struct{}{}

		slot, ok := t.Slot(name)
		if !ok {
			return nil, fielderr.UnknownField(name, owner, spath)
		}
		refs = append(refs, TupleSlotRef{Index: slot.Index, Field: name})
	}
	return refs, nil
}

func appendPath(path []string, elem string) []string {
	next := make([]string, len(path)+1)
	copy(next, path)
	next[len(path)] = elem
	return next
}
