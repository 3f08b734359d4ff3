package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleet-assistant/internal/chat/store"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"
)

// Manager holds one Controller per session id and loads them lazily.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	cfg         Config
	deps        Dependencies
	logger      logger.Logger
	now         func() time.Time
}

func NewManager(cfg Config, deps Dependencies) *Manager {
	if deps.Scheduler == nil {
		deps.Scheduler = RealScheduler{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &Manager{
		controllers: make(map[string]*Controller),
		cfg:         cfg.withDefaults(),
		deps:        deps,
		logger:      deps.Logger.WithFields(map[string]interface{}{"component": "flow-manager"}),
		now:         time.Now,
	}
}

// Open returns the session's controller, restoring it from the store or
// starting a new conversation with the greeting. created reports the latter.
// The store is read outside the manager lock.
func (m *Manager) Open(ctx context.Context, sessionID string) (c *Controller, created bool) {
	if c := m.cached(sessionID); c != nil {
		return c, false
	}

	rec, found, err := m.deps.Store.Load(ctx, sessionID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("flow", "load").Inc()
		m.logger.Warn("conversation load failed, starting fresh", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		found = false
	}
	if !found {
		rec = nil
	}
	return m.install(ctx, newController(sessionID, store.OwnerFromContext(ctx), rec, m.cfg, m.deps, m.now), rec == nil)
}

// Lookup returns the controller of an existing conversation. It never
// creates one: unknown or expired sessions yield ErrSessionNotFound.
func (m *Manager) Lookup(ctx context.Context, sessionID string) (*Controller, error) {
	if c := m.cached(sessionID); c != nil {
		return c, nil
	}

	rec, found, err := m.deps.Store.Load(ctx, sessionID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("flow", "load").Inc()
		return nil, fmt.Errorf("load conversation %s: %w", sessionID, err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	c, _ := m.install(ctx, newController(sessionID, store.OwnerFromContext(ctx), rec, m.cfg, m.deps, m.now), false)
	return c, nil
}

func (m *Manager) cached(sessionID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controllers[sessionID]
}

// install registers c unless a concurrent caller got there first, in which
// case the existing controller wins. A fresh controller is greeted while its
// own lock is still held, so no turn can run ahead of the greeting.
func (m *Manager) install(ctx context.Context, c *Controller, fresh bool) (*Controller, bool) {
	m.mu.Lock()
	if existing, ok := m.controllers[c.sessionID]; ok {
		m.mu.Unlock()
		return existing, false
	}
	if fresh {
		c.mu.Lock()
	}
	m.controllers[c.sessionID] = c
	metrics.ChatActiveSessions.Set(float64(len(m.controllers)))
	m.mu.Unlock()

	if fresh {
		c.greetLocked(ctx)
		c.mu.Unlock()
	}

	m.logger.Debug("conversation opened", map[string]interface{}{
		"sessionId": c.sessionID,
		"restored":  !fresh,
	})
	return c, fresh
}

// EvictIdle closes and forgets controllers idle since before cutoff. Their
// conversations stay in the store.
func (m *Manager) EvictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, c := range m.controllers {
		if c.idleSince(cutoff) {
			c.Close()
			delete(m.controllers, id)
			evicted++
		}
	}
	metrics.ChatActiveSessions.Set(float64(len(m.controllers)))
	return evicted
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.controllers {
		c.Close()
		delete(m.controllers, id)
	}
	metrics.ChatActiveSessions.Set(0)
}
