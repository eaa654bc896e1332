package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lectern-ai/lectern/internal/index"
	"github.com/lectern-ai/lectern/internal/log"
)

// SearchCourseContentName is the Genkit tool name for passage search.
const SearchCourseContentName = "search_course_content"

// DefaultSearchLimit caps the passages one search returns.
const DefaultSearchLimit = 5

// SearchInput defines the search_course_content schema.
type SearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// Search is the course-content retrieval tool.
type Search struct {
	index  *index.Index
	limit  int
	logger log.Logger
}

// NewSearch creates the search tool. limit < 1 falls back to
// DefaultSearchLimit.
func NewSearch(ix *index.Index, limit int, logger log.Logger) (*Search, error) {
	if ix == nil {
		return nil, fmt.Errorf("index is required")
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Search{index: ix, limit: limit, logger: logger}, nil
}

// Name implements Tool.
func (s *Search) Name() string { return SearchCourseContentName }

// Description implements Tool.
func (s *Search) Description() string {
	return "Search course materials with smart course name matching and lesson filtering"
}

// Define implements Tool.
func (s *Search) Define(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, s.Name(), s.Description(),
		func(tctx *ai.ToolContext, in SearchInput) (string, error) {
			out, err := s.run(tctx.Context, in)
			if err != nil {
				return "", err
			}
			return out.Text, nil
		})
}

// Execute implements Tool.
func (s *Search) Execute(ctx context.Context, input map[string]any) (Outcome, error) {
	in, err := decodeInput[SearchInput](input)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, in)
}

func (s *Search) run(ctx context.Context, in SearchInput) (Outcome, error) {
	if strings.TrimSpace(in.Query) == "" {
		return Outcome{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if in.LessonNumber != nil && *in.LessonNumber < 0 {
		return Outcome{}, fmt.Errorf("%w: lesson_number must be non-negative", ErrInvalidInput)
	}

	opts := []index.SearchOption{index.WithLimit(s.limit)}
	if in.CourseName != "" {
		opts = append(opts, index.WithCourse(in.CourseName))
	}
	if in.LessonNumber != nil {
		opts = append(opts, index.WithLesson(*in.LessonNumber))
	}

	results, err := s.index.Search(ctx, in.Query, opts...)
	if err != nil {
		// An unresolvable course name is information for the model,
		// not a failure of the query.
		if errors.Is(err, index.ErrCourseNotFound) {
			return Outcome{Text: fmt.Sprintf("No course found matching '%s'.", in.CourseName)}, nil
		}
		return Outcome{}, fmt.Errorf("searching course content: %w", err)
	}

	if len(results) == 0 {
		var filter strings.Builder
		if in.CourseName != "" {
			fmt.Fprintf(&filter, " in course '%s'", in.CourseName)
		}
		if in.LessonNumber != nil {
			fmt.Fprintf(&filter, " in lesson %d", *in.LessonNumber)
		}
		return Outcome{Text: fmt.Sprintf("No relevant content found%s.", filter.String())}, nil
	}

	return s.format(results), nil
}

// format renders ranked results as labeled blocks and collects the
// citation list in the same order.
func (s *Search) format(results []index.Result) Outcome {
	blocks := make([]string, 0, len(results))
	sources := make([]Source, 0, len(results))

	for _, r := range results {
		header := "[" + r.CourseTitle
		if r.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *r.LessonNumber)
		}
		header += "]"
		blocks = append(blocks, header+"\n"+r.Content)

		src := Source{CourseTitle: r.CourseTitle, LessonNumber: r.LessonNumber}
		if r.LessonNumber != nil {
			src.URL = s.index.LessonLink(r.CourseTitle, *r.LessonNumber)
		}
		sources = append(sources, src)
	}

	s.logger.Debug("search tool returned results", "count", len(results))
	return Outcome{Text: strings.Join(blocks, "\n\n"), Sources: sources}
}
