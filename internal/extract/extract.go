// Package extract applies a plan template to fetched data, projecting it
// into exactly the field structure the client requested. Keys in fetched
// data are canonical; keys in the projected output use the client's external
// convention.
package extract

import (
	format "github.com/tvarn/fieldplan/internal/format"
	plan "github.com/tvarn/fieldplan/internal/plan"
)

// Apply walks value following the template. Lists project element-wise,
// nested templates recurse, tuple refs turn positional slots into named
// fields, and union branches project the member matching the runtime tag.
// Fields missing from value are absent from the output, not null.
func Apply(value any, template []plan.TemplateEntry, f format.Formatter) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Apply(item, template, f)
		}
		return out
	case map[string]any:
		return applyObject(v, template, f)
	default:
		return value
	}
}

func applyObject(obj map[string]any, template []plan.TemplateEntry, f format.Formatter) map[string]any {
	out := make(map[string]any, len(template))
	for _, entry := range template {
		raw, ok := obj[entry.Field]
		if !ok {
			continue
		}
		key := f.ToExternal(entry.Field)
		switch {
		case entry.Bare():
			out[key] = raw
		case len(entry.Tuple) > 0:
			out[key] = applyTuple(raw, entry.Tuple, f)
		case len(entry.Union) > 0:
			out[key] = applyUnion(raw, entry.Union, f)
		default:
			out[key] = Apply(raw, entry.Children, f)
		}
	}
	return out
}

func applyTuple(raw any, refs []plan.TupleSlotRef, f format.Formatter) any {
	slots, ok := raw.([]any)
	if !ok {
		return raw
	}
	// A list whose elements are themselves lists is a collection of tuples.
	if len(slots) > 0 {
		if _, nested := slots[0].([]any); nested {
			out := make([]any, len(slots))
			for i, item := range slots {
				out[i] = applyTuple(item, refs, f)
			}
			return out
		}
	}
	out := make(map[string]any, len(refs))
	for _, ref := range refs {
		if ref.Index < 0 || ref.Index >= len(slots) {
			continue
		}
		out[f.ToExternal(ref.Field)] = slots[ref.Index]
	}
	return out
}

// applyUnion projects the branch whose tag matches the runtime value.
// Accepted value shapes: a single-key map {tag: member} or an envelope
// {tag: ..., value: ...}. A value whose tag was not requested projects to
// nil: the client asked for other members only.
func applyUnion(raw any, branches []plan.UnionBranch, f format.Formatter) any {
	if items, ok := raw.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = applyUnion(item, branches, f)
		}
		return out
	}

	tag, member, ok := splitUnion(raw)
	if !ok {
		return raw
	}
	for _, b := range branches {
		if b.Tag != tag {
			continue
		}
		if b.Leaf {
			return map[string]any{f.ToExternal(tag): member}
		}
		return map[string]any{f.ToExternal(tag): Apply(member, b.Children, f)}
	}
	return nil
}

func splitUnion(raw any) (tag string, member any, ok bool) {
	obj, isMap := raw.(map[string]any)
	if !isMap {
		return "", nil, false
	}
	if t, has := obj["tag"]; has {
		if name, isStr := t.(string); isStr {
			return name, obj["value"], true
		}
	}
	if len(obj) == 1 {
		for k, v := range obj {
			return k, v, true
		}
	}
	return "", nil, false
}
