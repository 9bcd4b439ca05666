package plan

import (
	"testing"
)

// The broad request used for the structural property checks below.
func broadRequest() []any {
	return []any{
		"id",
		"title",
		"isOverdue",
		"commentCount",
		"location",
		map[string]any{"coordinates": []any{"latitude"}},
		map[string]any{"metadata": []any{"category"}},
		map[string]any{"user": []any{"id", "name"}},
		map[string]any{"content": []any{"text"}},
		map[string]any{"settings": []any{"theme"}},
		map[string]any{"options": []any{"priority"}},
		map[string]any{"self": map[string]any{"args": map[string]any{"prefix": "p"}, "fields": []any{"id"}}},
	}
}

func TestTemplateMirrorsRequestOrder(t *testing.T) {
	p := newTestPlanner(t)
	raw := broadRequest()

	got, err := p.Plan("todo", raw)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(got.Template) != len(raw) {
		t.Fatalf("len(template) = %d, want %d", len(got.Template), len(raw))
	}
	want := []string{
		"id", "title", "is_overdue", "comment_count", "location",
		"coordinates", "metadata", "user", "content", "settings", "options", "self",
	}
	for i, entry := range got.Template {
		if entry.Field != want[i] {
			t.Errorf("template[%d] = %q, want %q", i, entry.Field, want[i])
		}
	}
}

func TestSelectLoadPartition(t *testing.T) {
	p := newTestPlanner(t)

	got, err := p.Plan("todo", broadRequest())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	selected := make(map[string]struct{}, len(got.Select))
	for _, s := range got.Select {
		selected[s] = struct{}{}
	}
	for _, l := range got.Load {
		// Embedded and union fields appear in select with a scoped load
		// substructure; everything else must be in exactly one of the two.
		if _, both := selected[l.Field]; both {
			if l.Field != "metadata" && l.Field != "content" {
				t.Errorf("field %q in both select and load", l.Field)
			}
		}
	}

	// Attributes in select, computed fields in load.
	for _, s := range []string{"id", "title", "location", "coordinates", "metadata"} {
		if _, ok := selected[s]; !ok {
			t.Errorf("attribute %q missing from select", s)
		}
	}
	loaded := make(map[string]struct{}, len(got.Load))
	for _, l := range got.Load {
		loaded[l.Field] = struct{}{}
	}
	for _, l := range []string{"is_overdue", "comment_count", "user", "self"} {
		if _, ok := loaded[l]; !ok {
			t.Errorf("computed field %q missing from load", l)
		}
	}
	if _, ok := selected["user"]; ok {
		t.Error("relationship must never appear in select")
	}
}

func TestEveryTemplateEntryHasSelectOrLoadCounterpart(t *testing.T) {
	p := newTestPlanner(t)

	got, err := p.Plan("todo", broadRequest())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	covered := make(map[string]struct{})
	for _, s := range got.Select {
		covered[s] = struct{}{}
	}
	for _, l := range got.Load {
		covered[l.Field] = struct{}{}
	}
	for _, entry := range got.Template {
		if _, ok := covered[entry.Field]; !ok {
			t.Errorf("template entry %q has no select/load counterpart", entry.Field)
		}
	}
	if len(covered) != len(got.Template) {
		t.Errorf("select/load cover %d fields, template has %d entries", len(covered), len(got.Template))
	}
}

func TestPlannerIsPurePerCall(t *testing.T) {
	p := newTestPlanner(t)
	raw := []any{"id", map[string]any{"user": []any{"name"}}}

	first, err := p.Plan("todo", raw)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	second, err := p.Plan("todo", raw)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if &first.Select[0] == &second.Select[0] {
		t.Error("plans must not share accumulator storage")
	}
}
