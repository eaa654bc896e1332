// Package rag composes the document pipeline and the query pipeline
// behind one facade: chunking and indexing on the way in, retrieval-
// augmented generation on the way out.
package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/chat"
	"github.com/lectern-ai/lectern/internal/chunker"
	"github.com/lectern-ai/lectern/internal/index"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// Generator answers one query for a session. *chat.Agent satisfies it;
// tests substitute lighter fakes.
type Generator interface {
	Ask(ctx context.Context, sessionID uuid.UUID, query string) (*chat.Answer, error)
}

// Config holds the System's collaborators.
type Config struct {
	Chunker  *chunker.Chunker
	Index    *index.Index
	Agent    Generator
	Sessions *session.Store

	// Logger defaults to a no-op logger.
	Logger log.Logger
}

func (c *Config) validate() error {
	if c.Chunker == nil {
		return fmt.Errorf("chunker is required")
	}
	if c.Index == nil {
		return fmt.Errorf("index is required")
	}
	if c.Agent == nil {
		return fmt.Errorf("agent is required")
	}
	if c.Sessions == nil {
		return fmt.Errorf("session store is required")
	}
	return nil
}

// System is the top-level facade. Immutable after construction; safe
// for concurrent use.
type System struct {
	chunker  *chunker.Chunker
	index    *index.Index
	agent    Generator
	sessions *session.Store
	logger   log.Logger
}

// New creates a System from its collaborators.
func New(cfg Config) (*System, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &System{
		chunker:  cfg.Chunker,
		index:    cfg.Index,
		agent:    cfg.Agent,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
	}, nil
}

// QueryResult carries one answered query back to the caller.
type QueryResult struct {
	Answer    string
	Sources   []tools.Source
	SessionID string
}

// Query answers one user query. An empty or unparseable sessionID
// starts a fresh session; the effective session ID is always returned
// so callers can continue the conversation.
func (s *System) Query(ctx context.Context, query, sessionID string) (*QueryResult, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		if sessionID != "" {
			s.logger.Warn("invalid session id, starting a new session", "session_id", sessionID)
		}
		id = s.sessions.NewSession()
	}

	answer, err := s.agent.Ask(ctx, id, query)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		SessionID: id.String(),
	}, nil
}

// Stats reports the number of indexed courses and their titles.
func (s *System) Stats() (int, []string) {
	titles := s.index.Titles()
	return len(titles), titles
}

// ClearSession forgets the conversation history for the given session.
// Unknown or malformed IDs are a no-op.
func (s *System) ClearSession(sessionID string) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return
	}
	s.sessions.Clear(id)
}
