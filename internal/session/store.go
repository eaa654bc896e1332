// Package session provides bounded per-session conversation memory.
//
// A Store keeps, for each session id, the most recent exchange pairs
// (one user turn plus the assistant's answer). Older pairs are evicted
// FIFO once the limit is reached. State lives in process memory only;
// nothing survives a restart.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/log"
)

// DefaultMaxExchanges is the default number of remembered exchange
// pairs per session (i.e. 4 turns).
const DefaultMaxExchanges = 2

// Exchange is one user turn with the assistant's answer.
type Exchange struct {
	User      string
	Assistant string
}

// Store is an in-memory session store. Safe for concurrent use;
// sessions are independent of each other.
type Store struct {
	mu       sync.RWMutex
	limit    int
	sessions map[uuid.UUID][]Exchange
	logger   log.Logger
}

// NewStore creates an empty Store keeping at most maxExchanges pairs
// per session. maxExchanges < 0 falls back to DefaultMaxExchanges;
// 0 disables memory entirely (History is always empty).
func NewStore(maxExchanges int, logger log.Logger) *Store {
	if maxExchanges < 0 {
		maxExchanges = DefaultMaxExchanges
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		limit:    maxExchanges,
		sessions: make(map[uuid.UUID][]Exchange),
		logger:   logger,
	}
}

// NewSession allocates a fresh session id. The session itself is
// created lazily on the first append.
func (s *Store) NewSession() uuid.UUID {
	return uuid.New()
}

// AppendExchange records one completed exchange for a session,
// evicting the oldest pair when the limit is exceeded.
func (s *Store) AppendExchange(id uuid.UUID, user, assistant string) {
	if s.limit == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := append(s.sessions[id], Exchange{User: user, Assistant: assistant})
	if over := len(exchanges) - s.limit; over > 0 {
		exchanges = exchanges[over:]
	}
	s.sessions[id] = exchanges

	s.logger.Debug("exchange recorded", "session", id, "exchanges", len(exchanges))
}

// History renders a session's exchanges as alternating "User:" /
// "Assistant:" lines for inclusion in the model's instruction context.
// Unknown sessions yield an empty string, never an error.
func (s *Store) History(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exchanges := s.sessions[id]
	if len(exchanges) == 0 {
		return ""
	}

	lines := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", ex.User, ex.Assistant))
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of stored exchange pairs for a session.
func (s *Store) Len(id uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[id])
}

// Clear removes one session's history.
func (s *Store) Clear(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
