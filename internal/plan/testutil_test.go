package plan

import (
	"testing"

	format "github.com/tvarn/fieldplan/internal/format"
	schema "github.com/tvarn/fieldplan/internal/schema"
)

// newTestRegistry builds the fixture schema shared by the plan tests: every
// field shape the processor dispatches on appears at least once.
func newTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	user := &schema.Resource{
		Name: "user",
		Attributes: []*schema.Attribute{
			{Name: "id", Type: schema.Scalar("uuid")},
			{Name: "name", Type: schema.Scalar("string")},
			{Name: "email", Type: schema.Scalar("string")},
		},
		Aggregates:    []*schema.Aggregate{{Name: "todo_count", Kind: "count"}},
		Relationships: []*schema.Relationship{{Name: "todos", Target: "todo", Many: true}},
	}

	todoMetadata := &schema.Resource{
		Name: "todo_metadata",
		Attributes: []*schema.Attribute{
			{Name: "category", Type: schema.Scalar("string")},
			{Name: "priority", Type: schema.Scalar("integer")},
			{Name: "parent", Type: schema.ResourceRef("todo_metadata")},
		},
		Calculations: []*schema.Calculation{
			{Name: "display_category", Returns: schema.Scalar("string")},
		},
	}

	comment := &schema.Resource{
		Name: "comment",
		Attributes: []*schema.Attribute{
			{Name: "id", Type: schema.Scalar("uuid")},
			{Name: "body", Type: schema.Scalar("string")},
		},
		Relationships: []*schema.Relationship{{Name: "author", Target: "user"}},
	}

	todo := &schema.Resource{
		Name: "todo",
		Attributes: []*schema.Attribute{
			{Name: "id", Type: schema.Scalar("uuid")},
			{Name: "title", Type: schema.Scalar("string")},
			{Name: "tags", Type: schema.Array(schema.Scalar("string"))},
			{Name: "location", Type: schema.Custom("geo_point")},
			{Name: "coordinates", Type: schema.Tuple(
				schema.TupleSlot{Index: 0, Name: "latitude"},
				schema.TupleSlot{Index: 1, Name: "longitude"},
			)},
			{Name: "metadata", Type: schema.ResourceRef("todo_metadata")},
			{Name: "attachments", Type: schema.Array(schema.ResourceRef("todo_metadata"))},
			{Name: "content", Type: schema.Union(
				schema.UnionMember{Tag: "text", Type: schema.Scalar("string")},
				schema.UnionMember{Tag: "checklist", Type: schema.Struct(
					schema.StructField{Name: "items", Type: schema.Array(schema.Scalar("string"))},
					schema.StructField{Name: "done", Type: schema.Scalar("boolean")},
				)},
				schema.UnionMember{Tag: "note", Type: schema.ResourceRef("todo_metadata")},
			)},
			{Name: "settings", Type: schema.Struct(
				schema.StructField{Name: "theme", Type: schema.Scalar("string")},
				schema.StructField{Name: "flags", Type: schema.MapOf(
					schema.StructField{Name: "focus", Type: schema.Scalar("boolean")},
				)},
				schema.StructField{Name: "meta", Type: schema.ResourceRef("todo_metadata")},
			)},
			{Name: "config", Type: schema.MapOf(
				schema.StructField{Name: "visibility", Type: schema.Scalar("string")},
				schema.StructField{Name: "limits", Type: schema.MapOf(
					schema.StructField{Name: "max", Type: schema.Scalar("integer")},
				)},
			)},
			{Name: "options", Type: schema.Keyword(
				schema.StructField{Name: "priority", Type: schema.Scalar("integer")},
				schema.StructField{Name: "color", Type: schema.Scalar("string")},
			)},
		},
		Calculations: []*schema.Calculation{
			{Name: "is_overdue", Returns: schema.Scalar("boolean")},
			{Name: "self", Args: []schema.Argument{{Name: "prefix"}}, Returns: schema.ResourceRef("todo")},
			{Name: "display_name", Args: []schema.Argument{{Name: "format", Required: true}}, Returns: schema.Scalar("string")},
			{Name: "summary", Returns: schema.Struct(
				schema.StructField{Name: "word_count", Type: schema.Scalar("integer")},
				schema.StructField{Name: "preview", Type: schema.Scalar("string")},
			)},
		},
		Aggregates:    []*schema.Aggregate{{Name: "comment_count", Kind: "count"}},
		Relationships: []*schema.Relationship{
			{Name: "user", Target: "user"},
			{Name: "comments", Target: "comment", Many: true},
		},
	}

	g, err := schema.Build(user, todoMetadata, comment, todo)
	if err != nil {
		t.Fatalf("fixture schema: %v", err)
	}
	return g
}

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	return New(newTestRegistry(t), format.Camel{})
}
