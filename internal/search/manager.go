package search

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/history"
)

const (
	defaultSessionTTL      = 30 * time.Minute
	defaultSweepInterval   = 5 * time.Minute
	defaultMaxSessionCount = 10000
)

// ManagerConfig carries the dependencies handed to each per-session
// controller plus the eviction tuning.
type ManagerConfig struct {
	Resolver  Resolver
	Predictor Predictor
	History   history.Repository
	Logger    zerolog.Logger

	// SessionTTL is how long an idle session is kept. Zero means 30 minutes.
	SessionTTL time.Duration

	// MaxSessions caps the number of live sessions. Zero means 10000.
	MaxSessions int

	Clock func() time.Time
}

// Manager hands out one Controller per client session so that the busy flag
// and the carried country hint stay scoped to a single client.
type Manager struct {
	cfg   ManagerConfig
	clock func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Controller
	lastSweep time.Time
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessionCount
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		cfg:       cfg,
		clock:     clock,
		sessions:  make(map[string]*Controller),
		lastSweep: clock(),
	}
}

// Controller returns the controller for the given session, creating it on
// first use. Idle sessions are swept opportunistically.
func (m *Manager) Controller(sessionID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepIfNeeded()

	if c, ok := m.sessions[sessionID]; ok {
		return c
	}

	if len(m.sessions) >= m.cfg.MaxSessions {
		m.evictOldest()
	}

	c := NewController(ControllerConfig{
		Resolver:  m.cfg.Resolver,
		Predictor: m.cfg.Predictor,
		History:   m.cfg.History,
		Logger:    m.cfg.Logger,
		Clock:     m.clock,
	})
	m.sessions[sessionID] = c
	return c
}

// SessionCount reports the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweepIfNeeded drops sessions idle past the TTL. Caller holds m.mu.
func (m *Manager) sweepIfNeeded() {
	now := m.clock()
	if now.Sub(m.lastSweep) < defaultSweepInterval {
		return
	}
	m.lastSweep = now

	for id, c := range m.sessions {
		if now.Sub(c.LastUsed()) > m.cfg.SessionTTL {
			delete(m.sessions, id)
		}
	}
}

// evictOldest removes the longest-idle session. Caller holds m.mu.
func (m *Manager) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, c := range m.sessions {
		if last := c.LastUsed(); oldestID == "" || last.Before(oldest) {
			oldestID, oldest = id, last
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}
