package sim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/clipfactory/clipfactory/internal/combat"
	"github.com/clipfactory/clipfactory/internal/state"
)

// Engine owns one player's GameState. All mutation goes through engine
// methods; ticks and actions are serialized by the engine mutex so the
// state is never observable in a transiently invalid shape.
type Engine struct {
	mu      sync.Mutex
	st      *state.GameState
	catalog *Catalog
	rng     *rand.Rand
	logger  *slog.Logger

	battle *combat.Battle
}

// New builds an engine around an existing state (typically decoded from a
// snapshot). A nil state starts a fresh first session.
func New(st *state.GameState, catalog *Catalog, logger *slog.Logger) *Engine {
	if st == nil {
		st = state.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		st:      st,
		catalog: catalog,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger,
	}
}

// Seed replaces the RNG source. Used by deterministic simulations and tests.
func (e *Engine) Seed(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}

// Snapshot flattens the current state for persistence. Safe to call at any
// point between ticks.
func (e *Engine) Snapshot() state.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.LastSeen = time.Now().UTC()
	return state.Encode(e.st)
}

// View runs fn with the state under the engine lock. fn must not retain
// the pointer.
func (e *Engine) View(fn func(*state.GameState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.st)
}

// CatchUp applies offline progress as one large tick, capped to bound the
// cost of long absences. Returns the simulated duration.
func (e *Engine) CatchUp(now time.Time, cap time.Duration) time.Duration {
	e.mu.Lock()
	last := e.st.LastSeen
	e.mu.Unlock()

	if last.IsZero() || !now.After(last) {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed > cap {
		elapsed = cap
	}
	dt := elapsed.Seconds()
	e.Tick(dt)
	e.MarketTick(dt)
	e.ResearchTick(dt)
	e.StatsTick(dt)
	e.SpaceTick(dt)

	e.mu.Lock()
	e.st.LastSeen = now.UTC()
	e.mu.Unlock()
	return elapsed
}
