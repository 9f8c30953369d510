package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/file-loader/backend/internal/catalog"
	"github.com/file-loader/backend/internal/logging"
	"github.com/file-loader/backend/internal/models"
	"github.com/file-loader/backend/internal/widget"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// DefaultMaxSessions limits concurrent widget sessions.
const DefaultMaxSessions = 100

// SessionMaxAge is how long an idle session is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow protects sessions used recently from eviction.
const SessionKeepAliveWindow = 5 * time.Minute

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Recorder persists transition events.
type Recorder interface {
	Record(ctx context.Context, e models.TransitionEvent) error
}

// TransitionMetrics receives transition and session counts.
type TransitionMetrics interface {
	RecordTransition(e models.TransitionEvent)
	SetActiveSessions(n int)
}

// ReleaseFunc is called with the file handles of a session that is removed.
type ReleaseFunc func(sessionID string, files []*models.FileDescriptor)

// Options configures a Manager. Zero values are replaced by defaults.
type Options struct {
	MaxSessions int
	Journal     Recorder
	Metrics     TransitionMetrics
	Logger      *log.Logger
	OnRelease   ReleaseFunc
}

// Manager owns every live widget session.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	catalog  *catalog.Catalog
	opts     Options
}

// SessionState is one widget session and its websocket subscribers.
type SessionState struct {
	Controller   *widget.Controller
	CreatedAt    time.Time
	LastAccessed time.Time

	subMu       sync.Mutex
	subscribers map[chan models.WidgetState]struct{}
}

// NewManager creates a session manager whose widgets are built from cat.
func NewManager(cat *catalog.Catalog, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if cat == nil {
		cat = catalog.New(nil)
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		catalog:  cat,
		opts:     opts,
	}
}

// Catalog returns the catalog new sessions are created from.
func (m *Manager) Catalog() *catalog.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog
}

// SetCatalog replaces the catalog for sessions created from now on.
// Live sessions keep the categories they started with.
func (m *Manager) SetCatalog(cat *catalog.Catalog) {
	if cat == nil {
		cat = catalog.New(nil)
	}
	m.mu.Lock()
	m.catalog = cat
	m.mu.Unlock()
}

// Create starts a new widget session with fresh quotas.
func (m *Manager) Create() *SessionState {
	m.evictIfNeeded()

	cat := m.Catalog()
	id := uuid.New().String()
	now := time.Now()
	state := &SessionState{
		CreatedAt:    now,
		LastAccessed: now,
		subscribers:  make(map[chan models.WidgetState]struct{}),
	}
	state.Controller = widget.NewController(id, cat.Categories(), m.observe)

	m.mu.Lock()
	m.sessions[id] = state
	n := len(m.sessions)
	m.mu.Unlock()

	m.reportSessions(n)
	m.opts.Logger.Infof("[Session %s] created with %d slots", shortID(id), cat.TotalSlots())
	return state
}

// Get returns a session and refreshes its access time.
func (m *Manager) Get(id string) (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	state.LastAccessed = time.Now()
	return state, nil
}

// Touch refreshes a session's access time.
func (m *Manager) Touch(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// List returns a summary of every live session.
func (m *Manager) List() []models.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]models.SessionInfo, 0, len(m.sessions))
	for id, state := range m.sessions {
		infos = append(infos, models.SessionInfo{
			ID:           id,
			CreatedAt:    state.CreatedAt,
			LastAccessed: state.LastAccessed,
			SlotCount:    state.Controller.SlotCount(),
			BoundCount:   len(state.Controller.Files()),
		})
	}
	return infos
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete removes a session, releases its files and closes its subscribers.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.release(id, state)
	m.reportSessions(n)
	return nil
}

// CleanupOldSessions removes sessions idle for longer than maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	removed := make(map[string]*SessionState)
	for id, state := range m.sessions {
		if state.LastAccessed.Before(cutoff) {
			removed[id] = state
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for id, state := range removed {
		m.opts.Logger.Infof("[Manager] Cleaned up aged session %s (last accessed: %s ago)",
			shortID(id), time.Since(state.LastAccessed).Round(time.Second))
		m.release(id, state)
	}
	if len(removed) > 0 {
		m.reportSessions(n)
	}
	return len(removed)
}

// evictIfNeeded drops the least recently used session when at capacity.
// Sessions inside the keep-alive window are never evicted.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	if len(m.sessions) < m.opts.MaxSessions {
		m.mu.Unlock()
		return
	}

	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)
	var oldestID string
	var oldest *SessionState
	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if oldest == nil || state.LastAccessed.Before(oldest.LastAccessed) {
			oldestID, oldest = id, state
		}
	}
	if oldest != nil {
		delete(m.sessions, oldestID)
	}
	m.mu.Unlock()

	if oldest != nil {
		m.opts.Logger.Warnf("[Manager] Evicted session %s to stay under %d sessions", shortID(oldestID), m.opts.MaxSessions)
		m.release(oldestID, oldest)
	}
}

func (m *Manager) release(id string, state *SessionState) {
	files := state.Controller.HeldFiles()
	if m.opts.OnRelease != nil && len(files) > 0 {
		m.opts.OnRelease(id, files)
	}
	state.closeSubscribers()
}

// observe is the controller observer for every session.
func (m *Manager) observe(e models.TransitionEvent) {
	switch e.Kind {
	case models.TransitionCategoryExhausted, models.TransitionValidationFailed:
		m.opts.Logger.Warnf("[Session %s] %s on slot %d (category=%q file=%q)",
			shortID(e.SessionID), e.Kind, e.SlotIndex, e.Category, e.FileName)
	default:
		m.opts.Logger.Debugf("[Session %s] %s on slot %d", shortID(e.SessionID), e.Kind, e.SlotIndex)
	}

	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordTransition(e)
	}
	if m.opts.Journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.opts.Journal.Record(ctx, e); err != nil {
			m.opts.Logger.Errorf("[Session %s] journal write failed: %v", shortID(e.SessionID), err)
		}
	}
}

func (m *Manager) reportSessions(n int) {
	if m.opts.Metrics != nil {
		m.opts.Metrics.SetActiveSessions(n)
	}
}

// Subscribe registers a channel that receives the widget state after each
// Publish. The returned func unsubscribes.
func (s *SessionState) Subscribe() (<-chan models.WidgetState, func()) {
	ch := make(chan models.WidgetState, 4)

	s.subMu.Lock()
	if s.subscribers == nil {
		close(ch)
		s.subMu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

// Publish sends the current state to every subscriber. Slow subscribers
// miss intermediate states rather than block the caller.
func (s *SessionState) Publish() {
	state := s.Controller.State()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}

func (s *SessionState) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
