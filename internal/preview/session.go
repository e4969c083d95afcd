package preview

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AutoSaveInterval is the quiet period after the last edit before buffers are
// persisted to the backing project record.
const AutoSaveInterval = 3 * time.Second

// SaveFunc persists the current buffers to the project record. Implementations
// decide how overlapping saves are resolved (see repositories.ErrStaleWrite).
type SaveFunc func(b Buffers) error

// Session owns one live preview: the mutable source buffers, the derived
// preview document and its revision, the auto-run scheduler, and the debounced
// auto-save. There is exactly one active preview per session, so the iframe,
// document, and capture resources all hang off this instance.
type Session struct {
	ID        uuid.UUID
	UserID    uint
	ProjectID uint

	opts Options

	mu          sync.RWMutex
	buffers     Buffers
	doc         string
	revision    int64
	lastSaveErr error

	runner *Runner
	saver  *Runner
	log    *Log
}

// Buffers returns a snapshot of the current source buffers.
func (s *Session) Buffers() Buffers {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffers
}

// Document returns the current preview document and its revision. The document
// is immutable; every rebuild swaps in a freshly computed string.
func (s *Session) Document() (string, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc, s.revision
}

// UpdateBuffers applies a partial buffer edit. A nil field leaves that buffer
// untouched. Each call signals both the auto-run debounce and the auto-save
// debounce.
func (s *Session) UpdateBuffers(html, css, js *string) {
	s.mu.Lock()
	if html != nil {
		s.buffers.HTML = *html
	}
	if css != nil {
		s.buffers.CSS = *css
	}
	if js != nil {
		s.buffers.JS = *js
	}
	s.mu.Unlock()

	s.runner.Edit()
	s.saver.Edit()
}

// Run triggers an immediate rebuild, bypassing the debounce timer.
func (s *Session) Run() {
	s.runner.Run()
}

// Loading reports whether a rebuild is in flight.
func (s *Session) Loading() bool {
	return s.runner.Loading()
}

// Rebuilds returns the number of completed rebuild cycles.
func (s *Session) Rebuilds() int64 {
	return s.runner.Rebuilds()
}

// LastSaveError returns the error from the most recent auto-save attempt, or
// nil when the last save succeeded.
func (s *Session) LastSaveError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSaveErr
}

// Console returns the session's console panel log.
func (s *Session) Console() *Log {
	return s.log
}

func (s *Session) rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = Build(s.buffers, s.opts)
	s.revision++
}

// Manager tracks live preview sessions and their bridge rooms.
type Manager struct {
	bridge *Bridge

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager wired to the console bridge.
func NewManager(bridge *Bridge) *Manager {
	return &Manager{
		bridge:   bridge,
		sessions: make(map[string]*Session),
	}
}

// Bridge exposes the console bridge the manager routes sandbox traffic through.
func (m *Manager) Bridge() *Bridge {
	return m.bridge
}

// Create opens a new preview session seeded with the given buffers. The save
// callback runs on the auto-save debounce; pass nil for unsaved scratch
// sessions. The initial document is built synchronously so the preview URL is
// immediately servable.
func (m *Manager) Create(userID, projectID uint, b Buffers, opts Options, save SaveFunc) *Session {
	id := uuid.New()
	opts.SessionID = id.String()
	if opts.BridgeURL == "" && opts.BridgeHost != "" {
		opts.BridgeURL = strings.TrimSuffix(opts.BridgeHost, "/") + "/preview/" + id.String() + "/sandbox"
	}

	s := &Session{
		ID:        id,
		UserID:    userID,
		ProjectID: projectID,
		opts:      opts,
		buffers:   b,
		log:       m.bridge.Open(id.String()),
	}
	s.doc = Build(b, opts)
	s.revision = 1

	s.runner = NewRunner(s.rebuild)
	s.runner.Start()

	// The auto-save shares the runner's debounce machinery on a 3s quiet
	// period with no loading window.
	s.saver = newRunner(func() {
		if save == nil {
			return
		}
		err := save(s.Buffers())
		s.mu.Lock()
		s.lastSaveErr = err
		s.mu.Unlock()
	}, AutoSaveInterval, 0)
	s.saver.Start()

	m.mu.Lock()
	m.sessions[id.String()] = s
	m.mu.Unlock()
	return s
}

// Get looks up a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("preview session %s not found", id)
	}
	return s, nil
}

// Close tears a session down: schedulers stopped, bridge room closed,
// subscribers disconnected.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.runner.Stop()
	s.saver.Stop()
	m.bridge.Close(id)
}
