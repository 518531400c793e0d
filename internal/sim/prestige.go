package sim

import (
	"math"

	"github.com/clipfactory/clipfactory/internal/state"
)

const prestigeClipFloor = 1_000_000.0

// PrestigePointsFor is the pure prestige formula:
// floor(sqrt(totalClips / 1e6)). Totals below one million clips yield zero
// points, so no fractional prestige exists.
func PrestigePointsFor(totalClips float64) int64 {
	if totalClips < prestigeClipFloor || math.IsNaN(totalClips) {
		return 0
	}
	return int64(math.Floor(math.Sqrt(totalClips / prestigeClipFloor)))
}

// RewardsFor computes the permanent multipliers for a cumulative point
// total. One continuous linear formula for all point values — no
// special-cased low tiers, so there is no discontinuity at any boundary.
func RewardsFor(points int64) state.PrestigeRewards {
	p := float64(points)
	return state.PrestigeRewards{
		ProductionBonus: 1 + 0.10*p,
		ResearchBonus:   1 + 0.05*p,
		WireEfficiency:  1 + 0.05*p,
		ClickBonus:      1 + 0.25*p,
		StartingMoney:   100 * p,
	}
}

// CalculatePrestigePoints reports the points a reset would award right now.
func (e *Engine) CalculatePrestigePoints() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PrestigePointsFor(e.st.LifetimePaperclips + e.st.Paperclips)
}

// PrestigeReset trades the current session for permanent multipliers.
// Guarded: only allowed when at least one point would be awarded. Session
// resources and buildings are zeroed; lifetime clips, prestige counters,
// rewards, and trust carry forward.
func (e *Engine) PrestigeReset() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.st
	points := PrestigePointsFor(g.LifetimePaperclips + g.Paperclips)
	if points <= 0 {
		return fail(ErrLocked)
	}

	carriedLifetime := g.LifetimePaperclips + g.Paperclips
	carriedTrust := g.Trust + 1 // +1 trust per prestige level

	level := g.PrestigeLevel + 1
	totalPoints := g.PrestigePoints + points
	rewards := RewardsFor(totalPoints)

	fresh := state.New()
	fresh.LifetimePaperclips = carriedLifetime
	fresh.PrestigeLevel = level
	fresh.PrestigePoints = totalPoints
	fresh.Rewards = rewards
	fresh.Trust = carriedTrust
	fresh.Money = rewards.StartingMoney
	fresh.LastSeen = g.LastSeen

	*g = *fresh

	e.logger.Info("prestige reset",
		"level", level, "points_awarded", points, "total_points", totalPoints)
	return ok()
}
