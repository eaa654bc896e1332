package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lectern-ai/lectern/internal/chunker"
)

// ingestConcurrency bounds how many course files are parsed and
// embedded at once.
const ingestConcurrency = 4

// IngestResult summarizes one folder ingestion.
type IngestResult struct {
	CoursesAdded   int
	CoursesSkipped int
	ChunksAdded    int
	FilesFailed    int
	Duration       time.Duration
}

// AddCourseFolder ingests every .txt course document directly under
// dir. Courses whose title is already indexed are skipped, so repeated
// startup ingestion does not re-embed. With clearExisting the index is
// reset first.
//
// A malformed or unreadable file is logged and counted, never fatal;
// the other files still go in.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (*IngestResult, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading course folder: %w", err)
	}

	if clearExisting {
		s.logger.Info("clearing existing course data")
		if err := s.index.Reset(); err != nil {
			return nil, fmt.Errorf("clearing index: %w", err)
		}
	}

	result := &IngestResult{}
	var mu sync.Mutex
	claimed := make(map[string]bool)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		g.Go(func() error {
			added, err := s.addCourseFile(ctx, path, &mu, claimed, result)
			if err != nil {
				// Context failures abort the whole ingestion;
				// per-file problems were already counted.
				if ctx.Err() != nil {
					return err
				}
				s.logger.Warn("skipping course file", "path", path, "error", err)
				mu.Lock()
				result.FilesFailed++
				mu.Unlock()
				return nil
			}
			if added {
				s.logger.Info("course ingested", "path", path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingesting course folder: %w", err)
	}

	result.Duration = time.Since(start)
	s.logger.Info("folder ingestion complete",
		"dir", dir,
		"courses_added", result.CoursesAdded,
		"courses_skipped", result.CoursesSkipped,
		"chunks_added", result.ChunksAdded,
		"files_failed", result.FilesFailed,
		"duration", result.Duration,
	)
	return result, nil
}

// addCourseFile parses, claims and indexes one course document.
// Returns (false, nil) when the course title is already indexed.
func (s *System) addCourseFile(ctx context.Context, path string, mu *sync.Mutex, claimed map[string]bool, result *IngestResult) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading file: %w", err)
	}

	course, chunks, err := s.chunker.Process(string(raw))
	if err != nil {
		if errors.Is(err, chunker.ErrMalformedDocument) {
			return false, err
		}
		return false, fmt.Errorf("chunking %s: %w", filepath.Base(path), err)
	}

	// Claim the title before touching the index so two files carrying
	// the same course cannot race each other into a double ingest.
	mu.Lock()
	if claimed[course.Title] || s.index.HasCourse(course.Title) {
		result.CoursesSkipped++
		mu.Unlock()
		return false, nil
	}
	claimed[course.Title] = true
	mu.Unlock()

	if err := s.index.UpsertCourse(ctx, course); err != nil {
		return false, fmt.Errorf("indexing course metadata: %w", err)
	}
	if err := s.index.UpsertChunks(ctx, chunks); err != nil {
		return false, fmt.Errorf("indexing course content: %w", err)
	}

	mu.Lock()
	result.CoursesAdded++
	result.ChunksAdded += len(chunks)
	mu.Unlock()
	return true, nil
}
