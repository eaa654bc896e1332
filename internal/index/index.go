// Package index provides the dual-collection vector store for course
// material.
//
// An Index owns two chromem-go collections backed by one embedding
// function:
//   - catalog: one record per course, embedding the course title. Used
//     for fuzzy course-name resolution; instructor, link and the lesson
//     list ride along as non-embedded metadata.
//   - content: one record per chunk, keyed "{course_title}#{chunk_index}".
//     Used for semantic passage search with optional course and lesson
//     filters.
//
// The Index is safe for concurrent readers and writers. Upserts are
// atomic per key (chromem replaces documents by ID) and searches see a
// consistent snapshot of whichever collection they were dispatched
// against.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lectern-ai/lectern/internal/chunker"
	"github.com/lectern-ai/lectern/internal/log"
)

// ErrCourseNotFound indicates fuzzy course-name resolution found no
// candidate. Distinct from an empty search result, which is not an error.
var ErrCourseNotFound = errors.New("course not found")

// DefaultLimit is the default number of passages returned by Search.
const DefaultLimit = 5

const (
	catalogCollection = "catalog"
	contentCollection = "content"
)

// Metadata keys shared by both collections.
const (
	metaTitle        = "title"
	metaLink         = "link"
	metaInstructor   = "instructor"
	metaLessons      = "lessons"
	metaCourseTitle  = "course_title"
	metaLessonNumber = "lesson_number"
)

// Result is one ranked passage returned by Search. Distance is cosine
// distance (lower = more similar); results are ordered by ascending
// distance.
type Result struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Distance     float32
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	limit  int
	course string
	lesson *int
}

// WithLimit caps the number of returned passages. Values < 1 fall back
// to DefaultLimit.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) { c.limit = n }
}

// WithCourse restricts the search to one course. The name may be fuzzy;
// it is resolved against the catalog before filtering.
func WithCourse(name string) SearchOption {
	return func(c *searchConfig) { c.course = name }
}

// WithLesson restricts the search to one lesson number.
func WithLesson(n int) SearchOption {
	return func(c *searchConfig) { c.lesson = &n }
}

// Index is the dual-collection vector store.
type Index struct {
	embed  chromem.EmbeddingFunc
	logger log.Logger

	mu      sync.RWMutex
	db      *chromem.DB
	catalog *chromem.Collection
	content *chromem.Collection
	courses map[string]chunker.Course
}

// New creates an empty Index using the given embedding function for
// both collections.
func New(embed chromem.EmbeddingFunc, logger log.Logger) (*Index, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding function is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	ix := &Index{
		embed:   embed,
		logger:  logger,
		db:      chromem.NewDB(),
		courses: make(map[string]chunker.Course),
	}
	if err := ix.createCollections(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Index) createCollections() error {
	catalog, err := ix.db.CreateCollection(catalogCollection, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("creating catalog collection: %w", err)
	}
	content, err := ix.db.CreateCollection(contentCollection, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("creating content collection: %w", err)
	}
	ix.catalog = catalog
	ix.content = content
	return nil
}

// collections snapshots the current collection pointers so queries keep
// working against the old collections while Reset swaps in new ones.
func (ix *Index) collections() (catalog, content *chromem.Collection) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.catalog, ix.content
}

// UpsertCourse writes one catalog record, replacing any record with the
// same title. The Index always upserts; skip-if-exists policies belong
// to the caller.
func (ix *Index) UpsertCourse(ctx context.Context, course chunker.Course) error {
	if course.Title == "" {
		return fmt.Errorf("course title is required")
	}

	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("serializing lessons for %q: %w", course.Title, err)
	}

	catalog, _ := ix.collections()
	doc := chromem.Document{
		ID:      course.Title,
		Content: course.Title,
		Metadata: map[string]string{
			metaTitle:      course.Title,
			metaLink:       course.Link,
			metaInstructor: course.Instructor,
			metaLessons:    string(lessons),
		},
	}
	if err := catalog.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("upserting catalog record %q: %w", course.Title, err)
	}

	ix.mu.Lock()
	ix.courses[course.Title] = course
	ix.mu.Unlock()

	ix.logger.Debug("catalog record upserted", "course", course.Title, "lessons", len(course.Lessons))
	return nil
}

// UpsertChunks writes a batch of content records, replacing any records
// with the same "{course_title}#{chunk_index}" key.
func (ix *Index) UpsertChunks(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		if ch.CourseTitle == "" {
			return fmt.Errorf("chunk %d has no course title", ch.Index)
		}
		meta := map[string]string{metaCourseTitle: ch.CourseTitle}
		if ch.LessonNumber != nil {
			meta[metaLessonNumber] = strconv.Itoa(*ch.LessonNumber)
		}
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s#%d", ch.CourseTitle, ch.Index),
			Content:  ch.Content,
			Metadata: meta,
		})
	}

	_, content := ix.collections()
	if err := content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("upserting %d chunks: %w", len(docs), err)
	}

	ix.logger.Debug("chunks upserted", "course", chunks[0].CourseTitle, "count", len(docs))
	return nil
}

// ResolveCourseName translates a possibly fuzzy course name into the
// exact title of the best catalog match. Resolving an exact existing
// title returns that title unchanged.
func (ix *Index) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty course name", ErrCourseNotFound)
	}

	catalog, _ := ix.collections()
	if catalog.Count() == 0 {
		return "", fmt.Errorf("%w: catalog is empty", ErrCourseNotFound)
	}

	results, err := catalog.Query(ctx, name, 1, nil, nil)
	if err != nil {
		return "", fmt.Errorf("querying catalog for %q: %w", name, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w: no match for %q", ErrCourseNotFound, name)
	}
	return results[0].Metadata[metaTitle], nil
}

// Search embeds the query and returns the nearest content chunks,
// ordered by ascending cosine distance. A course filter is resolved via
// ResolveCourseName first; resolution failure fails the search with
// ErrCourseNotFound rather than silently dropping the filter. An empty
// result set is a valid, non-error outcome.
func (ix *Index) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	cfg := searchConfig{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.limit < 1 {
		cfg.limit = DefaultLimit
	}

	where := make(map[string]string)
	if cfg.course != "" {
		title, err := ix.ResolveCourseName(ctx, cfg.course)
		if err != nil {
			return nil, err
		}
		where[metaCourseTitle] = title
	}
	if cfg.lesson != nil {
		where[metaLessonNumber] = strconv.Itoa(*cfg.lesson)
	}

	_, content := ix.collections()
	n := content.Count()
	if n == 0 {
		return nil, nil
	}
	if cfg.limit < n {
		n = cfg.limit
	}

	raw, err := content.Query(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		res := Result{
			Content:     r.Content,
			CourseTitle: r.Metadata[metaCourseTitle],
			Distance:    1 - r.Similarity,
		}
		if s, ok := r.Metadata[metaLessonNumber]; ok {
			if num, err := strconv.Atoi(s); err == nil {
				res.LessonNumber = &num
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Count returns the number of indexed courses.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.courses)
}

// HasCourse reports whether a course with the exact title is indexed.
func (ix *Index) HasCourse(title string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.courses[title]
	return ok
}

// Titles returns all indexed course titles in sorted order.
func (ix *Index) Titles() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	titles := make([]string, 0, len(ix.courses))
	for title := range ix.courses {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

// Course returns the catalog record for an exact title.
func (ix *Index) Course(title string) (chunker.Course, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.courses[title]
	return c, ok
}

// Courses returns all catalog records sorted by title.
func (ix *Index) Courses() []chunker.Course {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	courses := make([]chunker.Course, 0, len(ix.courses))
	for _, c := range ix.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Title < courses[j].Title })
	return courses
}

// LessonLink returns the link of one lesson, or "" when the course or
// lesson is unknown or carries no link.
func (ix *Index) LessonLink(title string, lesson int) string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	course, ok := ix.courses[title]
	if !ok {
		return ""
	}
	for _, l := range course.Lessons {
		if l.Number == lesson {
			return l.Link
		}
	}
	return ""
}

// Reset drops both collections and all catalog bookkeeping. In-flight
// searches complete against the old collections.
func (ix *Index) Reset() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.db.DeleteCollection(catalogCollection); err != nil {
		return fmt.Errorf("deleting catalog collection: %w", err)
	}
	if err := ix.db.DeleteCollection(contentCollection); err != nil {
		return fmt.Errorf("deleting content collection: %w", err)
	}
	ix.courses = make(map[string]chunker.Course)
	if err := ix.createCollections(); err != nil {
		return err
	}

	ix.logger.Info("index reset")
	return nil
}
