package sim

import (
	"github.com/clipfactory/clipfactory/internal/combat"
)

// StartBattle deploys a new probe battle. Guarded: requires probes and no
// battle already in progress.
func (e *Engine) StartBattle() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startBattleLocked()
}

func (e *Engine) startBattleLocked() Result {
	g := e.st
	if !g.SpaceAgeUnlocked || !g.CombatUnlocked {
		return fail(ErrLocked)
	}
	if g.Probes <= 0 {
		return fail(ErrInsufficient)
	}
	if e.battle != nil && e.battle.Phase == combat.PhaseInProgress {
		return fail(ErrValidation)
	}

	e.battle = combat.New(combat.Config{
		Probes:        g.Probes,
		CombatStat:    g.Stats.Combat,
		HazardEvasion: g.Stats.HazardEvasion,
		SpeedStat:     g.Stats.Speed,
		EnemyCount:    EnemyFleetSize(g.BattlesWon),
		EnemyStrength: EnemyStrength(g.BattlesWon),
	}, e.rng)

	e.logger.Info("battle started",
		"battle", e.battle.ID, "probes", len(e.battle.Players), "enemies", len(e.battle.Enemies))
	return ok()
}

// StepBattle advances the active battle by n frames and applies the
// outcome when it resolves. A no-op when no battle is running.
func (e *Engine) StepBattle(n int) {
	if n <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.battle
	if b == nil || b.Phase != combat.PhaseInProgress {
		return
	}
	for i := 0; i < n && b.Phase == combat.PhaseInProgress; i++ {
		b.Step()
	}
	if b.Phase == combat.PhaseResolved {
		e.resolveBattleLocked()
	}
}

// resolveBattleLocked books the battle outcome into the state: probe
// losses are permanent, honor only ever increases.
func (e *Engine) resolveBattleLocked() {
	g := e.st
	b := e.battle

	g.Probes -= int64(b.PlayerLosses)
	if g.Probes < 0 {
		g.Probes = 0
	}

	if b.Victory {
		g.BattlesWon++
	} else {
		g.BattlesLost++
	}
	if reward := HonorReward(b.EnemiesDestroyed, g.Stats.Combat); reward > 0 {
		g.Honor += reward
	}

	e.logger.Info("battle resolved",
		"battle", b.ID,
		"victory", b.Victory,
		"destroyed", b.EnemiesDestroyed,
		"losses", b.PlayerLosses,
		"honor", g.Honor)
}

// BattleSnapshot is a read-only view of the active battle for broadcast.
type BattleSnapshot struct {
	ID               string `json:"id"`
	Phase            string `json:"phase"`
	AlivePlayers     int    `json:"alive_players"`
	AliveEnemies     int    `json:"alive_enemies"`
	PlayerLosses     int    `json:"player_losses"`
	EnemiesDestroyed int    `json:"enemies_destroyed"`
	Victory          bool   `json:"victory"`
	Steps            int    `json:"steps"`
}

// Battle returns the current battle view, or a zero snapshot with phase
// "idle" when none is active.
func (e *Engine) Battle() BattleSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.battle == nil {
		return BattleSnapshot{Phase: combat.PhaseIdle.String()}
	}
	b := e.battle
	return BattleSnapshot{
		ID:               b.ID,
		Phase:            b.Phase.String(),
		AlivePlayers:     b.AlivePlayers(),
		AliveEnemies:     b.AliveEnemies(),
		PlayerLosses:     b.PlayerLosses,
		EnemiesDestroyed: b.EnemiesDestroyed,
		Victory:          b.Victory,
		Steps:            b.Steps,
	}
}

// MaybeAutoBattle starts a fresh battle when auto-battle is on, no battle
// is running, and probes remain. Called by the host loop on its combat
// cadence.
func (e *Engine) MaybeAutoBattle() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.st.AutoBattle {
		return
	}
	if e.battle != nil && e.battle.Phase == combat.PhaseInProgress {
		return
	}
	if res := e.startBattleLocked(); res.OK {
		e.logger.Info("auto-battle started")
	}
}
