// Package chunker turns raw course transcripts into overlapping,
// context-annotated passages ready for embedding.
//
// Input documents follow a fixed layout: a header of "Course Title:",
// "Course Link:" and "Course Instructor:" lines, then one or more
// "Lesson N: <title>" sections with optional "Lesson Link:" lines and
// free-form body text. The chunker splits each lesson body into
// sentences, packs consecutive sentences into chunks up to a maximum
// size, and carries trailing sentences forward as overlap so retrieved
// passages keep context across chunk boundaries.
//
// A Chunker holds only configuration and a logger; Process has no
// shared mutable state and is safe to call concurrently.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lectern-ai/lectern/internal/log"
)

// ErrMalformedDocument indicates the document header is missing a
// required field. Instructor and link are optional; the title is not.
var ErrMalformedDocument = errors.New("malformed document")

const (
	// DefaultMaxChars is the maximum chunk length in characters.
	DefaultMaxChars = 800

	// DefaultOverlap is the character budget for sentences carried
	// from one chunk into the next within the same lesson.
	DefaultOverlap = 100
)

// Lesson describes one lesson section of a course.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Course is the parsed document header plus the ordered lesson list.
// The title is the natural unique key for a course.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Chunk is a contiguous span of course text. LessonNumber is nil for
// text that appears outside any lesson section. Indices are contiguous
// per course starting at 0.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int
	Index        int
	Content      string
}

// Config defines chunking parameters.
type Config struct {
	// MaxChars is the maximum chunk length. Default: DefaultMaxChars.
	MaxChars int

	// Overlap is the carried-sentence character budget between
	// consecutive chunks of one lesson. Default: DefaultOverlap.
	Overlap int
}

// Chunker splits course documents into chunks.
type Chunker struct {
	maxChars int
	overlap  int
	logger   log.Logger
}

// New creates a Chunker. Zero config fields fall back to defaults;
// a nil logger falls back to a no-op logger.
func New(cfg Config, logger log.Logger) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	} else if cfg.Overlap == 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = cfg.MaxChars / 2
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Chunker{maxChars: cfg.MaxChars, overlap: cfg.Overlap, logger: logger}
}

// lessonMarkerRe matches "Lesson <token>: <title>" section headers.
// The number token is validated separately so bad numbers can be
// skipped with a diagnostic instead of being swallowed as body text.
var lessonMarkerRe = regexp.MustCompile(`^Lesson\s+(\S+):\s*(.*)$`)

const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// Process parses one document and returns the Course record plus the
// ordered chunk sequence. It fails with ErrMalformedDocument when the
// header has no course title; lessons whose number does not parse as a
// non-negative integer are skipped with a warning.
func (c *Chunker) Process(raw string) (Course, []Chunk, error) {
	lines := strings.Split(raw, "\n")

	course, rest := parseHeader(lines)
	if course.Title == "" {
		return Course{}, nil, fmt.Errorf("%w: missing course title", ErrMalformedDocument)
	}

	var chunks []Chunk

	// Current section state. number is nil for text before the first
	// lesson marker; skipping marks a section with a bad lesson number.
	var (
		number   *int
		body     []string
		skipping bool
	)

	flush := func() {
		defer func() { body = body[:0]; skipping = false }()
		if skipping {
			return
		}
		text := strings.TrimSpace(strings.Join(body, " "))
		if text == "" {
			return
		}
		for i, piece := range c.chunkText(text) {
			if number != nil && i == 0 {
				piece = fmt.Sprintf("Lesson %d content: %s", *number, piece)
			}
			chunks = append(chunks, Chunk{
				CourseTitle:  course.Title,
				LessonNumber: number,
				Index:        len(chunks),
				Content:      piece,
			})
		}
	}

	for _, line := range rest {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := lessonMarkerRe.FindStringSubmatch(trimmed); m != nil {
			flush()

			n, err := strconv.Atoi(m[1])
			if err != nil || n < 0 {
				c.logger.Warn("skipping lesson with invalid number",
					"course", course.Title, "token", m[1])
				number = nil
				skipping = true
				continue
			}
			num := n
			number = &num
			course.Lessons = append(course.Lessons, Lesson{Number: n, Title: strings.TrimSpace(m[2])})
			continue
		}

		if strings.HasPrefix(trimmed, lessonLinkPrefix) && len(body) == 0 {
			if number != nil && len(course.Lessons) > 0 {
				course.Lessons[len(course.Lessons)-1].Link =
					strings.TrimSpace(strings.TrimPrefix(trimmed, lessonLinkPrefix))
			}
			continue
		}

		body = append(body, trimmed)
	}
	flush()

	return course, chunks, nil
}

// parseHeader consumes leading header lines and returns the partially
// filled Course plus the remaining lines. Parsing stops at the first
// lesson marker or the first line that is not a header field.
func parseHeader(lines []string) (Course, []string) {
	var course Course
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, titlePrefix):
			course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, titlePrefix))
		case strings.HasPrefix(trimmed, linkPrefix):
			course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, linkPrefix))
		case strings.HasPrefix(trimmed, instructorPrefix):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, instructorPrefix))
		default:
			return course, lines[i:]
		}
	}
	return course, nil
}

// chunkText splits text into sentences and greedily packs them into
// chunks of at most maxChars characters. Consecutive chunks share
// trailing sentences up to the overlap budget. A single sentence
// longer than maxChars forms its own chunk rather than being cut.
func (c *Chunker) chunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		end := i
		length := 0
		for end < len(sentences) {
			add := len(sentences[end])
			if end > i {
				add++ // joining space
			}
			if length+add > c.maxChars && end > i {
				break
			}
			length += add
			end++
		}

		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}

		// Walk back over trailing sentences that fit the overlap
		// budget; they open the next chunk.
		next := end
		carried := 0
		for next > i {
			need := len(sentences[next-1])
			if carried > 0 {
				need++
			}
			if carried+need > c.overlap {
				break
			}
			carried += need
			next--
		}
		if next <= i {
			next = i + 1 // guarantee forward progress
		}
		i = next
	}
	return chunks
}

// abbreviations that end with a period without ending a sentence.
// Lowercased, period stripped.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {},
	"sr": {}, "jr": {}, "st": {}, "vs": {}, "etc": {},
	"al": {}, "inc": {}, "ltd": {}, "co": {}, "fig": {},
	"dept": {}, "approx": {},
}

// splitSentences normalizes whitespace and splits text into sentences.
// A word ending in '.', '!' or '?' closes a sentence unless the '.'
// belongs to an abbreviation, an initial like "J.", or an internally
// dotted token like "e.g.".
func splitSentences(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var sentences []string
	start := 0
	for i, word := range words {
		next := ""
		if i+1 < len(words) {
			next = words[i+1]
		}
		if !endsSentence(word, next) {
			continue
		}
		sentences = append(sentences, strings.Join(words[start:i+1], " "))
		start = i + 1
	}
	if start < len(words) {
		sentences = append(sentences, strings.Join(words[start:], " "))
	}
	return sentences
}

func endsSentence(word, next string) bool {
	trimmed := strings.TrimRight(word, `"')]`)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	switch last {
	case '!', '?':
		return true
	case '.':
		return !isAbbreviation(trimmed, next)
	default:
		return false
	}
}

// isAbbreviation reports whether a period-terminated word is an
// abbreviation or initial rather than a sentence end. The following
// word disambiguates "No.": a numbering abbreviation before a digit,
// a plain sentence end otherwise.
func isAbbreviation(word, next string) bool {
	core := strings.TrimRight(word, ".")
	if core == "" {
		return false // bare punctuation like "..."
	}

	// Single capital letter: an initial such as "J." in "J. Smith".
	if len(core) == 1 && core[0] >= 'A' && core[0] <= 'Z' {
		return true
	}

	// Internal periods mark dotted tokens like "e.g." or "U.S.".
	if strings.Contains(core, ".") {
		return true
	}

	if strings.EqualFold(core, "no") {
		return next != "" && next[0] >= '0' && next[0] <= '9'
	}

	_, ok := abbreviations[strings.ToLower(core)]
	return ok
}
