// Package session tracks live browser sessions: one isolated
// browsing context, one page, and a navigation history per session.
// Sessions are ephemeral and in-memory; nothing survives a restart.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/engine"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/shared/id"
)

// ErrNotFound is returned when a session id is unknown. Handlers map
// it to 404.
var ErrNotFound = errors.New("session not found")

// Session is one client-owned unit of browser control.
type Session struct {
	ID        id.SessionID
	CreatedAt time.Time

	context engine.BrowsingContext
	page    engine.Page

	// mu guards History. The page itself has no cross-channel lock:
	// a REST call and a stream for the same session may race on the
	// page, an accepted trade-off to keep sharing simple.
	mu      sync.Mutex
	history *History
}

// Page returns the session's active page.
func (s *Session) Page() engine.Page { return s.page }

// WithHistory runs fn with exclusive access to the tracker.
func (s *Session) WithHistory(fn func(h *History)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.history)
}

// Manager is the session store, mapping ids to live sessions.
type Manager struct {
	engine engine.Engine
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
}

// NewManager creates a session store backed by the given engine.
func NewManager(eng engine.Engine, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		engine:   eng,
		logger:   logger,
		sessions: make(map[id.SessionID]*Session),
	}
}

// Create allocates a fresh isolated context and registers a new
// session for it. The engine launches lazily on the first call.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	bctx, page, err := m.engine.NewContext(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        id.NewSessionID(),
		CreatedAt: time.Now().UTC(),
		context:   bctx,
		page:      page,
		history:   NewHistory(),
	}

	m.mu.Lock()
	if _, exists := m.sessions[s.ID]; exists {
		// ULID collision: entropy is broken, nothing else is safe.
		m.mu.Unlock()
		m.logger.Fatal("session id collision", zap.String("session_id", s.ID.String()))
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("Created browser session", zap.String("session_id", s.ID.String()))
	return s, nil
}

// Get returns the session for sid, or ErrNotFound. Never blocks on
// engine operations.
func (m *Manager) Get(sid id.SessionID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close removes the record and releases the session's browsing
// context. Removal happens under the store lock, the close after it:
// a context close is an engine round-trip and must not stall readers.
// No reader can observe a half-closed session because the record is
// gone before the close begins.
func (m *Manager) Close(sid id.SessionID) error {
	m.mu.Lock()
	s, ok := m.sessions[sid]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, sid)
	m.mu.Unlock()

	if err := s.context.Close(); err != nil {
		m.logger.Warn("Failed to close browsing context",
			zap.String("session_id", sid.String()), zap.Error(err))
		return err
	}
	m.logger.Info("Closed browser session", zap.String("session_id", sid.String()))
	return nil
}

// CloseAll closes every remaining session, then shuts the engine
// down. Per-session close failures are logged and cleanup continues;
// calling CloseAll twice is safe.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[id.SessionID]*Session)
	m.mu.Unlock()

	for sid, s := range sessions {
		if err := s.context.Close(); err != nil {
			m.logger.Warn("Failed to close browsing context during shutdown",
				zap.String("session_id", sid.String()), zap.Error(err))
		}
	}
	return m.engine.Shutdown()
}

// EngineRunning reports whether the backing browser process is up.
func (m *Manager) EngineRunning() bool {
	return m.engine.Running()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
