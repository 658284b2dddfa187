package clock

import (
	"sync"
	"time"

	"github.com/jthom/scorekeeper/internal/scoresvc/service"
)

// Manager owns at most one ticking loop per game id. Starting a game that
// already has a running clock is a no-op; stopping cancels the loop so a
// stale timer can never keep mutating a reloaded or deleted record.
type Manager struct {
	svc      *service.GameStorageService
	onExpiry func(ExpiryResult)
	interval time.Duration

	mu      sync.Mutex
	clocks  map[string]*Clock
	cancels map[string]chan struct{}
}

func NewManager(svc *service.GameStorageService, onExpiry func(ExpiryResult)) *Manager {
	return &Manager{
		svc:      svc,
		onExpiry: onExpiry,
		interval: time.Second,
		clocks:   make(map[string]*Clock),
		cancels:  make(map[string]chan struct{}),
	}
}

// SetInterval overrides the nominal one-second tick. Intended for tests.
func (m *Manager) SetInterval(d time.Duration) {
	m.mu.Lock()
	m.interval = d
	m.mu.Unlock()
}

// Start arms the countdown for the game and spawns its ticking loop.
// Returns false when the game cannot run a countdown (no time limit, not
// active, no time left).
func (m *Manager) Start(gameID string) bool {
	m.mu.Lock()
	if c, ok := m.clocks[gameID]; ok && c.State() == Running {
		m.mu.Unlock()
		return true
	}
	c := New(m.svc, gameID, m.expired(gameID))
	if !c.Start() {
		m.mu.Unlock()
		return false
	}

	// replace any stopped/expired predecessor
	if cancel, ok := m.cancels[gameID]; ok {
		close(cancel)
	}
	cancel := make(chan struct{})
	m.clocks[gameID] = c
	m.cancels[gameID] = cancel
	interval := m.interval
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				c.Tick()
				if c.State() != Running {
					return
				}
			}
		}
	}()
	return true
}

// Stop cancels the game's loop, if any.
func (m *Manager) Stop(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clocks[gameID]; ok {
		c.Stop()
	}
	if cancel, ok := m.cancels[gameID]; ok {
		close(cancel)
		delete(m.cancels, gameID)
	}
	delete(m.clocks, gameID)
}

// SetHidden forwards the visibility state to the game's clock.
func (m *Manager) SetHidden(gameID string, hidden bool) {
	m.mu.Lock()
	c, ok := m.clocks[gameID]
	m.mu.Unlock()
	if ok {
		c.SetHidden(hidden)
	}
}

// Running reports whether the game currently has a running countdown.
func (m *Manager) Running(gameID string) bool {
	m.mu.Lock()
	c, ok := m.clocks[gameID]
	m.mu.Unlock()
	return ok && c.State() == Running
}

// StopAll cancels every loop; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.clocks {
		c.Stop()
		if cancel, ok := m.cancels[id]; ok {
			close(cancel)
		}
	}
	m.clocks = make(map[string]*Clock)
	m.cancels = make(map[string]chan struct{})
}

// expired wraps the outbound callback and drops the finished clock from
// the registry once it fires.
func (m *Manager) expired(gameID string) func(ExpiryResult) {
	return func(res ExpiryResult) {
		m.mu.Lock()
		if cancel, ok := m.cancels[gameID]; ok {
			close(cancel)
			delete(m.cancels, gameID)
		}
		delete(m.clocks, gameID)
		m.mu.Unlock()
		if m.onExpiry != nil {
			m.onExpiry(res)
		}
	}
}
