package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	fielderr "github.com/tvarn/fieldplan/internal/fielderr"
)

// expectLeaf runs Plan and asserts on the innermost taxonomy error.
func expectLeaf(t *testing.T, raw []any, code fielderr.Code, field string, path ...string) *fielderr.Error {
	t.Helper()
	p := newTestPlanner(t)
	_, err := p.Plan("todo", raw)
	if err == nil {
		t.Fatal("expected error")
	}
	leaf := fielderr.Leaf(err)
	if leaf == nil {
		t.Fatalf("not a taxonomy error: %v", err)
	}
	if leaf.Code != code {
		t.Fatalf("code = %s, want %s (err: %v)", leaf.Code, code, err)
	}
	if field != "" && leaf.Field != field {
		t.Fatalf("field = %q, want %q", leaf.Field, field)
	}
	if len(path) > 0 {
		if diff := cmp.Diff(path, leaf.Path); diff != "" {
			t.Fatalf("path mismatch (-want +got):\n%s", diff)
		}
	}
	return leaf
}

func TestUnknownFieldTopLevel(t *testing.T) {
	leaf := expectLeaf(t, []any{"bogus"}, fielderr.CodeUnknownField, "bogus", "bogus")
	if leaf.Type != "todo" {
		t.Fatalf("type = %q", leaf.Type)
	}
}

func TestUnknownFieldNestedCarriesDottedPath(t *testing.T) {
	leaf := expectLeaf(t,
		[]any{map[string]any{"user": []any{"id", "bogus"}}},
		fielderr.CodeUnknownField, "bogus", "user", "bogus")
	if leaf.Type != "user" {
		t.Fatalf("type = %q, want user", leaf.Type)
	}

	// The enclosing relationship context is preserved as a wrapper.
	p := newTestPlanner(t)
	_, err := p.Plan("todo", []any{map[string]any{"user": []any{"bogus"}}})
	outer, ok := err.(*fielderr.Error)
	if !ok || outer.Code != fielderr.CodeRelationshipField {
		t.Fatalf("outer = %v, want relationship_field_error", err)
	}
	if outer.Field != "user" || outer.Unwrap() == nil {
		t.Fatalf("outer context missing: %+v", outer)
	}
}

func TestUnknownFieldInsideEmbeddedWrapped(t *testing.T) {
	p := newTestPlanner(t)
	_, err := p.Plan("todo", []any{map[string]any{"metadata": []any{"bogus"}}})
	outer, ok := err.(*fielderr.Error)
	if !ok || outer.Code != fielderr.CodeEmbeddedResourceField {
		t.Fatalf("outer = %v, want embedded_resource_field_error", err)
	}
	leaf := fielderr.Leaf(err)
	if leaf.Code != fielderr.CodeUnknownField {
		t.Fatalf("leaf = %v", leaf)
	}
	if diff := cmp.Diff([]string{"metadata", "bogus"}, leaf.Path); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateField(t *testing.T) {
	t.Run("bare twice", func(t *testing.T) {
		expectLeaf(t, []any{"id", "id"}, fielderr.CodeDuplicateField, "id", "id")
	})
	t.Run("bare then nested", func(t *testing.T) {
		expectLeaf(t,
			[]any{"id", map[string]any{"id": []any{"x"}}},
			fielderr.CodeDuplicateField, "id", "id")
	})
	t.Run("nested then bare", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"user": []any{"id"}}, "user"},
			fielderr.CodeDuplicateField, "user", "user")
	})
	t.Run("within nested sibling list", func(t *testing.T) {
		leaf := expectLeaf(t,
			[]any{map[string]any{"user": []any{"id", "id"}}},
			fielderr.CodeDuplicateField, "id")
		if diff := cmp.Diff([]string{"user", "id"}, leaf.Path); diff != "" {
			t.Fatalf("path mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("union tag twice", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"content": []any{"text", "text"}}},
			fielderr.CodeDuplicateField, "text", "content", "text")
	})
}

func TestNestingEnforcement(t *testing.T) {
	cases := []struct {
		name string
		raw  []any
		kind string
	}{
		{"relationship bare", []any{"user"}, "relationship"},
		{"relationship empty list", []any{map[string]any{"user": []any{}}}, "relationship"},
		{"embedded bare", []any{"metadata"}, "embedded resource"},
		{"embedded array empty list", []any{map[string]any{"attachments": []any{}}}, "embedded resource"},
		{"union bare", []any{"content"}, "union"},
		{"struct empty list", []any{map[string]any{"settings": []any{}}}, "typed struct"},
		{"map empty list", []any{map[string]any{"config": []any{}}}, "map"},
		{"tuple bare", []any{"coordinates"}, "tuple"},
		{"keyword empty list", []any{map[string]any{"options": []any{}}}, "keyword list"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			leaf := expectLeaf(t, c.raw, fielderr.CodeRequiresFieldSelection, "")
			if leaf.Kind != c.kind {
				t.Fatalf("kind = %q, want %q", leaf.Kind, c.kind)
			}
		})
	}
}

func TestSpecOnSimpleFields(t *testing.T) {
	t.Run("attribute with spec", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"title": []any{"x"}}},
			fielderr.CodeSimpleAttributeWithSpec, "title", "title")
	})
	t.Run("calculation with spec", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"isOverdue": []any{"x"}}},
			fielderr.CodeSimpleCalculationWithSpec, "is_overdue", "is_overdue")
	})
	t.Run("aggregate with spec", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"commentCount": []any{"x"}}},
			fielderr.CodeNoNesting, "comment_count", "comment_count")
	})
	t.Run("custom scalar with spec", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"location": []any{"x"}}},
			fielderr.CodeNoNesting, "location", "location")
	})
}

func TestCalculationErrors(t *testing.T) {
	t.Run("structured return requested bare", func(t *testing.T) {
		expectLeaf(t, []any{"self"}, fielderr.CodeRequiresFieldSelection, "self", "self")
	})
	t.Run("scalar return with args requested bare", func(t *testing.T) {
		expectLeaf(t, []any{"displayName"}, fielderr.CodeInvalidCalculationArgs, "display_name", "display_name")
	})
	t.Run("list form on calculation", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"self": []any{"id"}}},
			fielderr.CodeInvalidCalculationSpec, "self", "self")
	})
	t.Run("missing required argument", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"displayName": map[string]any{"args": map[string]any{}}}},
			fielderr.CodeInvalidCalculationArgs, "display_name", "display_name")
	})
	t.Run("unknown argument", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"self": map[string]any{
				"args":   map[string]any{"bogus": 1},
				"fields": []any{"id"},
			}}},
			fielderr.CodeInvalidCalculationArgs, "self", "self")
	})
	t.Run("field selection on primitive return", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"displayName": map[string]any{
				"args":   map[string]any{"format": "short"},
				"fields": []any{"x"},
			}}},
			fielderr.CodeInvalidFieldSelection, "display_name", "display_name")
	})
	t.Run("resource return without fields", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"self": map[string]any{"args": map[string]any{"prefix": "x"}}}},
			fielderr.CodeRequiresFieldSelection, "self", "self")
	})
	t.Run("malformed spec object", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"self": map[string]any{}}},
			fielderr.CodeInvalidCalculationSpec, "self")
	})
}

func TestUnionErrors(t *testing.T) {
	t.Run("unknown member tag", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"content": []any{"bogus"}}},
			fielderr.CodeUnknownField, "bogus", "content", "bogus")
	})
	t.Run("primitive member nested", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"content": []any{map[string]any{"text": []any{"x"}}}}},
			fielderr.CodeNoNesting, "text", "content", "text")
	})
	t.Run("structured member bare", func(t *testing.T) {
		leaf := expectLeaf(t,
			[]any{map[string]any{"content": []any{"checklist"}}},
			fielderr.CodeRequiresFieldSelection, "checklist", "content", "checklist")
		if leaf.Kind != "union member" {
			t.Fatalf("kind = %q", leaf.Kind)
		}
	})
}

func TestCompositeErrors(t *testing.T) {
	t.Run("unknown struct child", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"settings": []any{"bogus"}}},
			fielderr.CodeUnknownField, "bogus", "settings", "bogus")
	})
	t.Run("scalar struct child with spec", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"settings": []any{map[string]any{"theme": []any{"x"}}}}},
			fielderr.CodeSimpleAttributeWithSpec, "theme", "settings", "theme")
	})
	t.Run("nested map child requested bare", func(t *testing.T) {
		leaf := expectLeaf(t,
			[]any{map[string]any{"settings": []any{"flags"}}},
			fielderr.CodeRequiresFieldSelection, "flags", "settings", "flags")
		if leaf.Kind != "map" {
			t.Fatalf("kind = %q", leaf.Kind)
		}
	})
	t.Run("unknown tuple slot", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"coordinates": []any{"altitude"}}},
			fielderr.CodeUnknownField, "altitude", "coordinates", "altitude")
	})
	t.Run("tuple slot nested", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"coordinates": []any{map[string]any{"latitude": []any{"x"}}}}},
			fielderr.CodeNoNesting, "latitude", "coordinates", "latitude")
	})
}

func TestFormatErrors(t *testing.T) {
	t.Run("number entry", func(t *testing.T) {
		leaf := expectLeaf(t, []any{42}, fielderr.CodeUnsupportedFieldFormat, "")
		if leaf.Type != "todo" {
			t.Fatalf("type = %q", leaf.Type)
		}
	})
	t.Run("multi-key object", func(t *testing.T) {
		expectLeaf(t,
			[]any{map[string]any{"id": []any{}, "title": []any{}}},
			fielderr.CodeInvalidFieldFormat, "id,title")
	})
	t.Run("nested format error keeps enclosing path", func(t *testing.T) {
		p := newTestPlanner(t)
		_, err := p.Plan("todo", []any{map[string]any{"user": []any{42}}})
		leaf := fielderr.Leaf(err)
		if leaf == nil || leaf.Code != fielderr.CodeUnsupportedFieldFormat {
			t.Fatalf("leaf = %v", leaf)
		}
		if diff := cmp.Diff([]string{"user"}, leaf.Path); diff != "" {
			t.Fatalf("path mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFailFastStopsAtFirstError(t *testing.T) {
	// The duplicate comes before the unknown field; only the duplicate
	// may be reported.
	expectLeaf(t,
		[]any{"id", "id", "bogus"},
		fielderr.CodeDuplicateField, "id", "id")
}
