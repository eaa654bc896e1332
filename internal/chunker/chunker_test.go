package chunker

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/lectern-ai/lectern/internal/log"
)

const sampleDoc = `Course Title: Intro to X
Course Link: https://example.com/intro-to-x
Course Instructor: Ada Lovelace

Lesson 0: Getting Started
Lesson Link: https://example.com/intro-to-x/lesson-0
Welcome to the course. This lesson covers the basics.

Lesson 1: Going Deeper
We build on lesson zero. Mr. Smith joins as a guest. That is all.
`

func TestProcess_Header(t *testing.T) {
	c := New(Config{}, log.NewNop())

	course, chunks, err := c.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if course.Title != "Intro to X" {
		t.Errorf("Title = %q, want %q", course.Title, "Intro to X")
	}
	if course.Link != "https://example.com/intro-to-x" {
		t.Errorf("Link = %q", course.Link)
	}
	if course.Instructor != "Ada Lovelace" {
		t.Errorf("Instructor = %q", course.Instructor)
	}

	if len(course.Lessons) != 2 {
		t.Fatalf("len(Lessons) = %d, want 2", len(course.Lessons))
	}
	if course.Lessons[0].Number != 0 || course.Lessons[0].Title != "Getting Started" {
		t.Errorf("Lessons[0] = %+v", course.Lessons[0])
	}
	if course.Lessons[0].Link != "https://example.com/intro-to-x/lesson-0" {
		t.Errorf("Lessons[0].Link = %q", course.Lessons[0].Link)
	}
	if course.Lessons[1].Link != "" {
		t.Errorf("Lessons[1].Link = %q, want empty", course.Lessons[1].Link)
	}

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestProcess_ChunkProvenance(t *testing.T) {
	c := New(Config{}, log.NewNop())

	course, chunks, err := c.Process(sampleDoc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	for i, ch := range chunks {
		if ch.CourseTitle != course.Title {
			t.Errorf("chunk %d CourseTitle = %q", i, ch.CourseTitle)
		}
		if ch.Index != i {
			t.Errorf("chunk %d Index = %d, indices must be contiguous from 0", i, ch.Index)
		}
		if ch.LessonNumber == nil {
			t.Errorf("chunk %d has nil LessonNumber", i)
		}
	}

	// First chunk of each lesson carries the lesson marker.
	seen := map[int]bool{}
	for _, ch := range chunks {
		n := *ch.LessonNumber
		if !seen[n] {
			seen[n] = true
			want := fmt.Sprintf("Lesson %d content: ", n)
			if !strings.HasPrefix(ch.Content, want) {
				t.Errorf("first chunk of lesson %d = %q, want prefix %q", n, ch.Content, want)
			}
		}
	}
}

func TestProcess_MissingTitle(t *testing.T) {
	c := New(Config{}, log.NewNop())

	doc := "Course Instructor: Somebody\n\nLesson 0: Intro\nSome text here."
	_, _, err := c.Process(doc)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("Process() error = %v, want ErrMalformedDocument", err)
	}
}

func TestProcess_BadLessonNumberSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.Config{Level: slog.LevelWarn})
	c := New(Config{}, logger)

	doc := strings.Join([]string{
		"Course Title: Broken Numbers",
		"",
		"Lesson one: Not A Number",
		"This body must not be indexed.",
		"",
		"Lesson -3: Negative",
		"Neither must this one.",
		"",
		"Lesson 2: Fine",
		"This one is kept.",
	}, "\n")

	course, chunks, err := c.Process(doc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(course.Lessons) != 1 || course.Lessons[0].Number != 2 {
		t.Fatalf("Lessons = %+v, want only lesson 2", course.Lessons)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "This one is kept.") {
		t.Errorf("chunk content = %q", chunks[0].Content)
	}
	if strings.Contains(buf.String(), "skipping lesson") == false {
		t.Errorf("expected a warning about skipped lessons, log: %s", buf.String())
	}
}

func TestProcess_TextWithoutLessons(t *testing.T) {
	c := New(Config{}, log.NewNop())

	doc := "Course Title: Flat Course\n\nJust some text without any lesson markers at all."
	course, chunks, err := c.Process(doc)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(course.Lessons) != 0 {
		t.Errorf("Lessons = %+v, want none", course.Lessons)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].LessonNumber != nil {
		t.Errorf("LessonNumber = %v, want nil for unscoped text", *chunks[0].LessonNumber)
	}
	if strings.HasPrefix(chunks[0].Content, "Lesson") {
		t.Errorf("unscoped chunk must not carry a lesson marker, got %q", chunks[0].Content)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain sentences",
			text: "First sentence. Second sentence! Third one?",
			want: []string{"First sentence.", "Second sentence!", "Third one?"},
		},
		{
			name: "abbreviation",
			text: "Mr. Smith teaches here. He is great.",
			want: []string{"Mr. Smith teaches here.", "He is great."},
		},
		{
			name: "dotted token",
			text: "Use tools e.g. this one. Then continue.",
			want: []string{"Use tools e.g. this one.", "Then continue."},
		},
		{
			name: "initial",
			text: "Ask J. Smith about it. He knows.",
			want: []string{"Ask J. Smith about it.", "He knows."},
		},
		{
			name: "numbering abbreviation",
			text: "See item No. 5 for details. It helps.",
			want: []string{"See item No. 5 for details.", "It helps."},
		},
		{
			name: "no as a sentence end",
			text: "She said no. Then she left.",
			want: []string{"She said no.", "Then she left."},
		},
		{
			name: "trailing fragment",
			text: "Complete sentence. and a fragment",
			want: []string{"Complete sentence.", "and a fragment"},
		},
		{
			name: "whitespace normalized",
			text: "  Spaced\n\nout.   Very   much. ",
			want: []string{"Spaced out.", "Very much."},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("splitSentences() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkText_SizeLimit(t *testing.T) {
	c := New(Config{MaxChars: 50, Overlap: 10}, log.NewNop())

	text := "One short sentence here. Another short sentence here. And one more to push it over the limit."
	chunks := c.chunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch) > 50 && strings.Count(ch, ".")+strings.Count(ch, "!")+strings.Count(ch, "?") > 1 {
			t.Errorf("chunk %d exceeds max size with multiple sentences: %q", i, ch)
		}
	}
}

func TestChunkText_OversizedSentence(t *testing.T) {
	c := New(Config{MaxChars: 20, Overlap: 5}, log.NewNop())

	long := "This single sentence is far longer than the configured maximum."
	chunks := c.chunkText(long)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, an oversized sentence must form its own chunk", len(chunks))
	}
	if chunks[0] != long {
		t.Errorf("oversized sentence must not be truncated, got %q", chunks[0])
	}
}

func TestChunkText_Overlap(t *testing.T) {
	c := New(Config{MaxChars: 60, Overlap: 25}, log.NewNop())

	text := "Alpha is first. Bravo is second. Charlie is third. Delta is fourth. Echo is fifth."
	chunks := c.chunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		// The trailing text of chunk i-1 must prefix chunk i when
		// any sentences were carried over.
		prev, cur := chunks[i-1], chunks[i]
		overlapLen := 0
		for l := min(len(prev), len(cur)); l > 0; l-- {
			if strings.HasSuffix(prev, cur[:l]) {
				overlapLen = l
				break
			}
		}
		if overlapLen > 25 {
			t.Errorf("overlap between chunks %d and %d is %d chars, budget is 25", i-1, i, overlapLen)
		}
	}
}

func TestChunkText_Reconstruction(t *testing.T) {
	c := New(Config{MaxChars: 60, Overlap: 20}, log.NewNop())

	text := "Alpha is first. Bravo is second. Charlie is third. Delta is fourth. Echo is fifth."
	sentences := splitSentences(text)
	chunks := c.chunkText(text)

	// Every sentence survives intact in at least one chunk.
	joined := strings.Join(chunks, "\n")
	for _, s := range sentences {
		if !strings.Contains(joined, s) {
			t.Errorf("sentence %q lost or truncated across chunks", s)
		}
	}
}

func TestProcess_Concurrent(t *testing.T) {
	c := New(Config{}, log.NewNop())

	done := make(chan error, 8)
	for range 8 {
		go func() {
			_, _, err := c.Process(sampleDoc)
			done <- err
		}()
	}
	for range 8 {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Process() error: %v", err)
		}
	}
}
