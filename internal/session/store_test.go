package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/log"
)

func TestAppendAndHistory(t *testing.T) {
	s := NewStore(2, log.NewNop())
	id := s.NewSession()

	s.AppendExchange(id, "What is X?", "X is a thing.")

	got := s.History(id)
	want := "User: What is X?\nAssistant: X is a thing."
	if got != want {
		t.Errorf("History() = %q, want %q", got, want)
	}
}

func TestHistory_UnknownSession(t *testing.T) {
	s := NewStore(2, log.NewNop())

	if got := s.History(uuid.New()); got != "" {
		t.Errorf("History() for unknown session = %q, want empty", got)
	}
}

func TestEviction_FIFO(t *testing.T) {
	s := NewStore(2, log.NewNop())
	id := s.NewSession()

	for i := range 5 {
		s.AppendExchange(id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		if got := s.Len(id); got > 2 {
			t.Fatalf("Len() = %d after append %d, limit is 2", got, i)
		}
	}

	history := s.History(id)
	if strings.Contains(history, "q0") || strings.Contains(history, "q2") {
		t.Errorf("old exchanges not evicted: %q", history)
	}
	if !strings.Contains(history, "q3") || !strings.Contains(history, "q4") {
		t.Errorf("newest exchanges missing: %q", history)
	}
	// Oldest surviving pair renders first.
	if strings.Index(history, "q3") > strings.Index(history, "q4") {
		t.Errorf("exchanges out of order: %q", history)
	}
}

func TestZeroLimit_DisablesMemory(t *testing.T) {
	s := NewStore(0, log.NewNop())
	id := s.NewSession()

	s.AppendExchange(id, "q", "a")
	if got := s.History(id); got != "" {
		t.Errorf("History() with zero limit = %q, want empty", got)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(2, log.NewNop())
	id := s.NewSession()

	s.AppendExchange(id, "q", "a")
	s.Clear(id)
	if got := s.History(id); got != "" {
		t.Errorf("History() after Clear = %q, want empty", got)
	}
}

func TestSessionIsolation(t *testing.T) {
	s := NewStore(2, log.NewNop())
	a, b := s.NewSession(), s.NewSession()

	s.AppendExchange(a, "question a", "answer a")
	s.AppendExchange(b, "question b", "answer b")

	if h := s.History(a); strings.Contains(h, "question b") {
		t.Errorf("session a sees session b history: %q", h)
	}
	if h := s.History(b); strings.Contains(h, "question a") {
		t.Errorf("session b sees session a history: %q", h)
	}
}

func TestConcurrentSessions(t *testing.T) {
	s := NewStore(2, log.NewNop())

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		ids[i] = s.NewSession()
	}

	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				s.AppendExchange(id, fmt.Sprintf("s%d-q%d", i, j), "a")
				_ = s.History(id)
			}
		}()
	}
	wg.Wait()

	for i, id := range ids {
		if got := s.Len(id); got != 2 {
			t.Errorf("session %d Len() = %d, want 2", i, got)
		}
		if h := s.History(id); !strings.Contains(h, fmt.Sprintf("s%d-", i)) {
			t.Errorf("session %d history leaked or lost: %q", i, h)
		}
	}
}
