// Package tools provides the retrieval capabilities the generation
// loop can invoke, plus the registry that maps tool names to
// implementations.
//
// Each tool carries a declarative schema (registered with Genkit so
// the model sees parameter names and types) and an Execute method used
// by the orchestrator's explicit tool-execution pass. Execution
// results carry their citations in the return value; tools hold no
// mutable citation state between calls.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrInvalidInput indicates tool parameters that violate the tool's
// schema (missing required fields, wrong types). Surfaced to the model
// as result text by the registry, never as a query-fatal error.
var ErrInvalidInput = errors.New("invalid tool input")

// Source is one citation produced by a tool execution.
type Source struct {
	CourseTitle  string
	LessonNumber *int
	URL          string
}

// Title renders the citation label shown to users,
// e.g. "Intro to X - Lesson 1".
func (s Source) Title() string {
	if s.LessonNumber == nil {
		return s.CourseTitle
	}
	return fmt.Sprintf("%s - Lesson %d", s.CourseTitle, *s.LessonNumber)
}

// Outcome is the result of one tool execution: model-readable text
// plus the ordered citations backing it.
type Outcome struct {
	Text    string
	Sources []Source
}

// Tool is the interface all registry entries implement. The registry
// and orchestrator depend only on this interface, so non-retrieval
// tools can be added without touching either.
type Tool interface {
	// Name returns the unique identifier of the tool.
	Name() string

	// Description returns a description of the tool's functionality.
	// The LLM uses this to decide when to call the tool.
	Description() string

	// Define registers the tool's schema with Genkit and returns the
	// framework handle.
	Define(g *genkit.Genkit) ai.Tool

	// Execute runs the tool against loosely typed parameters as they
	// arrive from a model tool request.
	Execute(ctx context.Context, input map[string]any) (Outcome, error)
}

// decodeInput converts a model-supplied parameter map into the tool's
// typed input via a JSON round trip. Type mismatches become
// ErrInvalidInput.
func decodeInput[In any](input map[string]any) (In, error) {
	var typed In

	raw, err := json.Marshal(input)
	if err != nil {
		return typed, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return typed, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return typed, nil
}
