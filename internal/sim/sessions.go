package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clipfactory/clipfactory/internal/state"
)

// Cadences groups the host loop intervals for one session runner.
type Cadences struct {
	Tick            time.Duration
	Stock           time.Duration
	Save            time.Duration
	CombatFrameRate int
	OfflineCap      time.Duration
}

// SaveFunc persists a snapshot for a player. Called from the session
// runner goroutine; the engine does not wait on it holding its lock.
type SaveFunc func(ctx context.Context, userID int64, snap state.Snapshot) error

// BroadcastFunc pushes a state frame to a connected player, if any.
type BroadcastFunc func(userID int64, frame StateFrame)

// Session is one player's live engine plus its runner handle.
type Session struct {
	UserID int64
	Engine *Engine
	cancel context.CancelFunc
}

// Manager owns all live sessions, one engine per connected player.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	catalog   *Catalog
	cadences  Cadences
	logger    *slog.Logger
	save      SaveFunc
	broadcast BroadcastFunc
}

func NewManager(catalog *Catalog, cadences Cadences, save SaveFunc, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		catalog:  catalog,
		cadences: cadences,
		logger:   logger,
		save:     save,
	}
}

// SetBroadcaster wires the WS hub callback (breaks the circular init
// between manager and hub).
func (m *Manager) SetBroadcaster(fn BroadcastFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast = fn
}

// Get returns the live session for a player.
func (m *Manager) Get(userID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Start spins up a session around a loaded state, applying offline
// catch-up first. Idempotent: an existing session is returned untouched.
func (m *Manager) Start(ctx context.Context, userID int64, st *state.GameState) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s
	}

	engine := New(st, m.catalog, m.logger.With("user", userID))
	// The runner outlives the request that started it; only Stop/StopAll
	// may cancel it. Request-scoped values stay for logging.
	sCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{UserID: userID, Engine: engine, cancel: cancel}
	m.sessions[userID] = s
	m.mu.Unlock()

	if caught := engine.CatchUp(time.Now(), m.cadences.OfflineCap); caught > 0 {
		m.logger.Info("offline catch-up applied", "user", userID, "elapsed", caught)
	}

	go m.runLoop(sCtx, s)
	return s
}

// Stop tears down a session and persists a final snapshot.
func (m *Manager) Stop(ctx context.Context, userID int64) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	s.cancel()
	if err := m.save(ctx, userID, s.Engine.Snapshot()); err != nil {
		m.logger.Error("final save", "user", userID, "err", err)
	}
}

// StopAll drains every session, saving each. Used at shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Stop(ctx, id)
	}
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
