package plan

import (
	"encoding/json"
)

// Result is the triple handed to the downstream fetch and extraction layers.
// Select and Load orderings are internal; Template mirrors the client's
// request order exactly and is the contract the extraction step walks.
type Result struct {
	Select   []string        `json:"select"`
	Load     []LoadEntry     `json:"load"`
	Template []TemplateEntry `json:"template"`
}

// LoadEntry is one field requiring computation or a fetch: a calculation with
// optional arguments, an aggregate, a relationship with its nested plan, or a
// load substructure scoped to an embedded value.
type LoadEntry struct {
	Field  string         `json:"field"`
	Args   map[string]any `json:"args,omitempty"`
	Select []string       `json:"select,omitempty"`
	Load   []LoadEntry    `json:"load,omitempty"`
}

// MarshalJSON renders bare loads (no args, no nested plan) as the plain
// field name.
func (l LoadEntry) MarshalJSON() ([]byte, error) {
	if l.Args == nil && l.Select == nil && l.Load == nil {
		return json.Marshal(l.Field)
	}
	type plain LoadEntry
	return json.Marshal(plain(l))
}

// TemplateEntry is one projection step. A bare marker (no children, tuple
// refs, or union branches) copies the field as-is; anything else describes
// how to re-shape the fetched value.
type TemplateEntry struct {
	Field    string          `json:"field"`
	Children []TemplateEntry `json:"children,omitempty"`
	Tuple    []TupleSlotRef  `json:"tuple,omitempty"`
	Union    []UnionBranch   `json:"union,omitempty"`
}

// Bare reports whether the entry is a plain copy marker.
func (t TemplateEntry) Bare() bool {
	return len(t.Children) == 0 && len(t.Tuple) == 0 && len(t.Union) == 0
}

func (t TemplateEntry) MarshalJSON() ([]byte, error) {
	if t.Bare() {
		return json.Marshal(t.Field)
	}
	switch {
	case len(t.Tuple) > 0:
		return json.Marshal(map[string][]TupleSlotRef{t.Field: t.Tuple})
	case len(t.Union) > 0:
		branches := make(map[string]any, len(t.Union))
		for _, b := range t.Union {
			if b.Leaf {
				branches[b.Tag] = true
			} else {
				branches[b.Tag] = b.Children
			}
		}
		return json.Marshal(map[string]any{t.Field: branches})
	default:
		return json.Marshal(map[string][]TemplateEntry{t.Field: t.Children})
	}
}

// TupleSlotRef names one positional tuple slot so extraction can project
// positional data by name.
type TupleSlotRef struct {
	Index int    `json:"index"`
	Field string `json:"field"`
}

// UnionBranch carries the selection for one union member tag. Extraction
// applies the branch whose tag matches the runtime value; the rest are
// simply unused.
type UnionBranch struct {
	Tag      string          `json:"tag"`
	Leaf     bool            `json:"leaf,omitempty"`
	Children []TemplateEntry `json:"children,omitempty"`
}
