package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/repair-desk/logger"
)

// WorkspaceFactory builds the workspace for a new session.
type WorkspaceFactory func(ctx context.Context) (*Workspace, error)

// Manager manages operator sessions with automatic cleanup. Every session
// that leaves the store, by logout, expiry or shutdown, has its workspace
// closed.
type Manager struct {
	store    *Store
	duration time.Duration
	factory  WorkspaceFactory
	logger   logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a new session manager with the given duration.
func NewManager(duration time.Duration, factory WorkspaceFactory, log logger.Logger) *Manager {
	return &Manager{
		store:    NewStore(),
		duration: duration,
		factory:  factory,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

// Create creates a new session and its workspace.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	workspace, err := m.factory(ctx)
	if err != nil {
		return nil, err
	}

	now := m.store.now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.duration),
		Workspace: workspace,
	}

	m.store.Set(session)

	m.logger.Info(ctx, "session created", map[string]interface{}{
		"session_id": session.ID,
		"expires_at": session.ExpiresAt,
	})

	return session, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	return m.store.Get(sessionID)
}

// Delete ends a session and closes its workspace.
func (m *Manager) Delete(ctx context.Context, sessionID string) {
	session, ok := m.store.Delete(sessionID)
	if !ok {
		return
	}
	session.Workspace.Close()
	m.logger.Info(ctx, "session deleted", map[string]interface{}{
		"session_id": sessionID,
	})
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.store.Len()
}

// Cleanup ends expired sessions and returns how many were removed.
func (m *Manager) Cleanup() int {
	removed := m.store.Cleanup()
	for _, session := range removed {
		session.Workspace.Close()
	}
	return len(removed)
}

// StartCleanup starts a background goroutine that periodically cleans up expired sessions.
func (m *Manager) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				removed := m.Cleanup()
				if removed > 0 {
					m.logger.Info(context.Background(), "cleaned up expired sessions", map[string]interface{}{
						"removed_count": removed,
					})
				}
			case <-m.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup goroutine and ends every remaining session.
func (m *Manager) StopCleanup() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	for _, session := range m.store.Drain() {
		session.Workspace.Close()
	}
}
