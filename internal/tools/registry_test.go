package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lectern-ai/lectern/internal/log"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	ix := seedIndex(t)
	search, err := NewSearch(ix, 5, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	outline, err := NewOutline(ix, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(log.NewNop())
	if err := r.Register(search); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(outline); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegistry_Register(t *testing.T) {
	r := newTestRegistry(t)

	if got := r.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != SearchCourseContentName || names[1] != GetCourseOutlineName {
		t.Errorf("Names() = %v, want registration order", names)
	}

	if _, ok := r.Get(SearchCourseContentName); !ok {
		t.Error("Get(search_course_content) not found")
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := newTestRegistry(t)

	ix := seedIndex(t)
	dup, err := NewSearch(ix, 5, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register(dup); err == nil {
		t.Fatal("Register() accepted a duplicate name")
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := newTestRegistry(t)

	out := r.Execute(context.Background(), SearchCourseContentName, map[string]any{"query": "basics"})
	if !strings.Contains(out.Text, "[Intro to X") {
		t.Errorf("Execute() text = %q", out.Text)
	}
	if len(out.Sources) == 0 {
		t.Error("Execute() returned no sources")
	}
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	out := r.Execute(context.Background(), "no_such_tool", nil)
	if out.Text != "Tool 'no_such_tool' not found" {
		t.Errorf("Execute() text = %q", out.Text)
	}
	if len(out.Sources) != 0 {
		t.Errorf("Execute() sources = %+v, want none", out.Sources)
	}
}

func TestRegistry_Execute_InvalidInputDegradesToText(t *testing.T) {
	r := newTestRegistry(t)

	out := r.Execute(context.Background(), SearchCourseContentName, map[string]any{})
	if !strings.Contains(out.Text, "invalid tool input") {
		t.Errorf("Execute() text = %q, want schema violation surfaced as text", out.Text)
	}
}

func TestRegistry_Refs(t *testing.T) {
	r := newTestRegistry(t)
	g := genkit.Init(context.Background())

	refs := r.Refs(g)
	if len(refs) != 2 {
		t.Fatalf("len(Refs()) = %d, want 2", len(refs))
	}

	// Second call must reuse the existing definitions, not redefine.
	again := r.Refs(g)
	if len(again) != 2 {
		t.Fatalf("len(Refs()) on second call = %d, want 2", len(again))
	}

	if tool := genkit.LookupTool(g, SearchCourseContentName); tool == nil {
		t.Error("search tool not defined on genkit instance")
	}
	if tool := genkit.LookupTool(g, GetCourseOutlineName); tool == nil {
		t.Error("outline tool not defined on genkit instance")
	}
}
