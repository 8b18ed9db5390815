package session

import (
	"errors"
	"sync"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/lifecycle"
	"github.com/hairizuan-noorazman/repair-desk/view"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Workspace is the state one signed-in operator works with: staged status
// changes live in the controller, the live job list in the board.
type Workspace struct {
	Controller *lifecycle.Controller
	Board      *view.Board
}

// Close tears the live subscription down.
func (w *Workspace) Close() {
	if w != nil && w.Board != nil {
		w.Board.Close()
	}
}

// Session represents an anonymous operator session.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	Workspace *Workspace
}

// IsExpired checks if the session has expired.
func (s *Session) IsExpired() bool {
	return s.expiredAt(time.Now())
}

func (s *Session) expiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store is an in-memory session store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates a new in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Set stores a session in the store.
func (s *Store) Set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// Get retrieves a session from the store.
func (s *Store) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if session.expiredAt(s.now()) {
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Delete removes a session from the store and returns it.
func (s *Store) Delete(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return session, ok
}

// Cleanup removes expired sessions from the store and returns them.
func (s *Store) Cleanup() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*Session
	now := s.now()
	for id, session := range s.sessions {
		if session.expiredAt(now) {
			delete(s.sessions, id)
			removed = append(removed, session)
		}
	}

	return removed
}

// Drain removes every session and returns them.
func (s *Store) Drain() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	s.sessions = make(map[string]*Session)
	return all
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
