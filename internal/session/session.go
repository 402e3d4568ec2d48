// Package session owns per-learner state: one profile, one
// conversation, and at most one communication test, bundled behind a
// mutex so exactly one turn runs at a time per session.
package session

import (
	"sync"
	"time"

	"github.com/engli-ai/engli/internal/commtest"
	"github.com/engli-ai/engli/internal/conversation"
	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/profile"
)

// Session is the explicit session context passed to every component.
// There are no ambient globals, so concurrent sessions cannot
// contaminate each other.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
	profile    profile.UserProfile
	conv       *conversation.Conversation
	test       *commtest.Test
}

func newSession(id string, p profile.UserProfile) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		profile:    p,
		conv:       conversation.New(),
	}
}

// Do runs fn with exclusive access to the session's state. All state
// access goes through here: the per-session mutex is what guarantees
// that no two turns interleave.
func (s *Session) Do(fn func(state *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	fn(&State{
		Profile:      &s.profile,
		Conversation: s.conv,
		Test:         &s.test,
	})
}

// State is the view of session state handed to Do callbacks.
type State struct {
	Profile      *profile.UserProfile
	Conversation *conversation.Conversation

	// Test is a pointer to the session's test slot so callbacks can
	// start or restart a run.
	Test **commtest.Test
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a read-only copy of session state for rendering.
type Snapshot struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Profile   profile.UserProfile    `json:"profile"`
	Module    modules.Module         `json:"module,omitempty"`
	Messages  []conversation.Message `json:"messages"`
}

// Snapshot returns a copy of the session's visible state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.Do(func(state *State) {
		snap = Snapshot{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			Profile:   *state.Profile,
			Module:    state.Conversation.Module(),
			Messages:  state.Conversation.Messages(),
		}
	})
	return snap
}
