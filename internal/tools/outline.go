package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lectern-ai/lectern/internal/chunker"
	"github.com/lectern-ai/lectern/internal/index"
	"github.com/lectern-ai/lectern/internal/log"
)

// GetCourseOutlineName is the Genkit tool name for course outlines.
const GetCourseOutlineName = "get_course_outline"

// OutlineInput defines the get_course_outline schema.
type OutlineInput struct {
	CourseName string `json:"course_name,omitempty" jsonschema_description:"Course title to get outline for (partial matches work, e.g. 'MCP', 'Introduction'). If omitted, returns all courses."`
}

// Outline is the course-structure tool. It reads catalog metadata
// only; no content search is involved.
type Outline struct {
	index  *index.Index
	logger log.Logger
}

// NewOutline creates the outline tool.
func NewOutline(ix *index.Index, logger log.Logger) (*Outline, error) {
	if ix == nil {
		return nil, fmt.Errorf("index is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Outline{index: ix, logger: logger}, nil
}

// Name implements Tool.
func (o *Outline) Name() string { return GetCourseOutlineName }

// Description implements Tool.
func (o *Outline) Description() string {
	return "Get course structure including title, instructor, and complete lesson list. " +
		"Use for questions about course outlines, table of contents, or lesson structure."
}

// Define implements Tool.
func (o *Outline) Define(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, o.Name(), o.Description(),
		func(tctx *ai.ToolContext, in OutlineInput) (string, error) {
			out, err := o.run(tctx.Context, in)
			if err != nil {
				return "", err
			}
			return out.Text, nil
		})
}

// Execute implements Tool.
func (o *Outline) Execute(ctx context.Context, input map[string]any) (Outcome, error) {
	in, err := decodeInput[OutlineInput](input)
	if err != nil {
		return Outcome{}, err
	}
	return o.run(ctx, in)
}

func (o *Outline) run(ctx context.Context, in OutlineInput) (Outcome, error) {
	courses := o.index.Courses()
	if len(courses) == 0 {
		return Outcome{Text: "No courses found in the system."}, nil
	}

	if in.CourseName != "" {
		title, err := o.index.ResolveCourseName(ctx, in.CourseName)
		if err != nil {
			if errors.Is(err, index.ErrCourseNotFound) {
				return Outcome{Text: fmt.Sprintf("No course found matching '%s'.", in.CourseName)}, nil
			}
			return Outcome{}, fmt.Errorf("resolving course name: %w", err)
		}
		course, ok := o.index.Course(title)
		if !ok {
			return Outcome{Text: fmt.Sprintf("No course found matching '%s'.", in.CourseName)}, nil
		}
		courses = []chunker.Course{course}
	}

	return formatOutlines(courses), nil
}

// formatOutlines renders one block per course with its numbered lesson
// list, collecting lesson links (or the course link) as citations.
func formatOutlines(courses []chunker.Course) Outcome {
	blocks := make([]string, 0, len(courses))
	var sources []Source

	for _, course := range courses {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n", course.Title)
		instructor := course.Instructor
		if instructor == "" {
			instructor = "Unknown"
		}
		fmt.Fprintf(&b, "Instructor: %s\n", instructor)
		if course.Link != "" {
			fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
		}

		fmt.Fprintf(&b, "\nLessons (%d total):\n", len(course.Lessons))
		hasLessonLinks := false
		for _, lesson := range course.Lessons {
			fmt.Fprintf(&b, "  %d. %s\n", lesson.Number, lesson.Title)
			if lesson.Link != "" {
				hasLessonLinks = true
				n := lesson.Number
				sources = append(sources, Source{
					CourseTitle:  course.Title,
					LessonNumber: &n,
					URL:          lesson.Link,
				})
			}
		}

		if !hasLessonLinks && course.Link != "" {
			sources = append(sources, Source{CourseTitle: course.Title, URL: course.Link})
		}

		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}

	return Outcome{Text: strings.Join(blocks, "\n\n"), Sources: sources}
}
