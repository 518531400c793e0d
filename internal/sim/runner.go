package sim

import (
	"context"
	"time"

	"github.com/clipfactory/clipfactory/internal/state"
)

// StateFrame is the per-second state push sent to a connected client.
type StateFrame struct {
	Paperclips     float64        `json:"paperclips"`
	Money          float64        `json:"money"`
	Wire           float64        `json:"wire"`
	PaperclipPrice float64        `json:"paperclip_price"`
	MarketDemand   float64        `json:"market_demand"`
	AutoClippers   int64          `json:"auto_clippers"`
	MegaClippers   int64          `json:"mega_clippers"`
	Ops            float64        `json:"ops"`
	Creativity     float64        `json:"creativity"`
	Trust          float64        `json:"trust"`
	Yomi           float64        `json:"yomi"`
	ResearchPoints float64        `json:"research_points"`
	PrestigeLevel  int64          `json:"prestige_level"`
	Probes         int64          `json:"probes"`
	Honor          int64          `json:"honor"`
	Aerograde      float64        `json:"aerograde"`
	Battle         BattleSnapshot `json:"battle"`
}

// runLoop drives one session's tick cadences until the context ends.
// Mirrors the single-writer model: every mutation funnels through the
// engine mutex, and no two tick families overlap for one player.
func (m *Manager) runLoop(ctx context.Context, s *Session) {
	e := s.Engine

	tick := time.NewTicker(m.cadences.Tick)
	defer tick.Stop()
	stock := time.NewTicker(m.cadences.Stock)
	defer stock.Stop()
	save := time.NewTicker(m.cadences.Save)
	defer save.Stop()
	frame := time.Second / time.Duration(m.cadences.CombatFrameRate)
	combatTick := time.NewTicker(frame)
	defer combatTick.Stop()
	broadcastTick := time.NewTicker(time.Second)
	defer broadcastTick.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-tick.C:
			dt := now.Sub(last).Seconds()
			last = now
			e.Tick(dt)
			e.MarketTick(dt)
			e.ResearchTick(dt)
			e.StatsTick(dt)
			e.SpaceTick(dt)

		case <-combatTick.C:
			e.StepBattle(1)
			e.MaybeAutoBattle()

		case <-stock.C:
			e.StockMarketTick(m.cadences.Stock.Seconds())

		case <-save.C:
			if err := m.save(ctx, s.UserID, e.Snapshot()); err != nil {
				m.logger.Error("autosave", "user", s.UserID, "err", err)
			}

		case <-broadcastTick.C:
			m.mu.Lock()
			fn := m.broadcast
			m.mu.Unlock()
			if fn != nil {
				fn(s.UserID, e.Frame())
			}
		}
	}
}

// Frame assembles the broadcast view of the current state.
func (e *Engine) Frame() StateFrame {
	var f StateFrame
	e.View(func(g *state.GameState) {
		f = StateFrame{
			Paperclips:     g.Paperclips,
			Money:          g.Money,
			Wire:           g.Wire,
			PaperclipPrice: g.PaperclipPrice,
			MarketDemand:   g.MarketDemand,
			AutoClippers:   g.AutoClippers,
			MegaClippers:   g.MegaClippers,
			Ops:            g.Ops,
			Creativity:     g.Creativity,
			Trust:          g.Trust,
			Yomi:           g.Yomi,
			ResearchPoints: g.ResearchPoints,
			PrestigeLevel:  g.PrestigeLevel,
			Probes:         g.Probes,
			Honor:          g.Honor,
			Aerograde:      g.Aerograde,
		}
	})
	f.Battle = e.Battle()
	return f
}
