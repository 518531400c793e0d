package sim

import (
	"io"
	"log/slog"

	"github.com/clipfactory/clipfactory/internal/state"
)

// SimConfig fully describes a deterministic headless run of the economy.
// No goroutines, no channels, no time.Now(): everything advances in fixed
// dt steps, so a config plus a seed always produces the same result.
type SimConfig struct {
	Seed  int64
	Start *state.GameState // nil starts a fresh session
	Ticks int
	DT    float64 // simulated seconds per tick

	// Script maps tick number to actions performed before that tick's
	// resource advancement.
	Script map[int][]ScriptedAction

	// StockEvery runs a stock market step every N ticks (0 disables).
	StockEvery int

	// CombatFramesPerTick steps any active battle this many frames per
	// tick (0 disables).
	CombatFramesPerTick int
}

// ScriptedAction is a named action invocation for scripted runs.
type ScriptedAction struct {
	Name string
	Do   func(*Engine) Result
}

// SimResult summarizes a finished run.
type SimResult struct {
	Ticks      int
	Final      state.Snapshot
	Engine     *Engine // for follow-up assertions
	Accepted   int
	Rejections map[string]int // action name -> rejected count
}

// RunSimulation executes a scripted session against a real engine.
// Per-tick order: scripted actions, then production, market, research,
// stats, space, then the slower stock/combat cadences.
func RunSimulation(catalog *Catalog, cfg SimConfig) SimResult {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(cfg.Start, catalog, logger)
	e.Seed(cfg.Seed)

	res := SimResult{Rejections: make(map[string]int)}

	dt := cfg.DT
	if dt <= 0 {
		dt = 0.1
	}

	for tick := 1; tick <= cfg.Ticks; tick++ {
		for _, a := range cfg.Script[tick] {
			if r := a.Do(e); r.OK {
				res.Accepted++
			} else {
				res.Rejections[a.Name]++
			}
		}

		e.Tick(dt)
		e.MarketTick(dt)
		e.ResearchTick(dt)
		e.StatsTick(dt)
		e.SpaceTick(dt)

		if cfg.StockEvery > 0 && tick%cfg.StockEvery == 0 {
			e.StockMarketTick(dt * float64(cfg.StockEvery))
		}
		if cfg.CombatFramesPerTick > 0 {
			e.StepBattle(cfg.CombatFramesPerTick)
			e.MaybeAutoBattle()
		}
		res.Ticks = tick
	}

	res.Final = e.Snapshot()
	res.Engine = e
	return res
}
