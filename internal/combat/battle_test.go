package combat

import (
	"math/rand"
	"testing"
)

func newTestBattle(probes int64, enemies int, seed int64) *Battle {
	return New(Config{
		Probes:        probes,
		EnemyCount:    enemies,
		EnemyStrength: 1,
	}, rand.New(rand.NewSource(seed)))
}

func TestDeploymentCap(t *testing.T) {
	b := newTestBattle(200, 8, 1)
	if len(b.Players) != 50 {
		t.Fatalf("deployment caps at 50 probes, got %d", len(b.Players))
	}

	small := newTestBattle(3, 8, 1)
	if len(small.Players) != 3 {
		t.Fatalf("small fleets deploy in full, got %d", len(small.Players))
	}
}

func TestEnemyCountFloor(t *testing.T) {
	b := New(Config{Probes: 5, EnemyCount: 0, EnemyStrength: 1}, rand.New(rand.NewSource(2)))
	if len(b.Enemies) != 1 {
		t.Fatalf("enemy count floors at 1, got %d", len(b.Enemies))
	}
}

func TestBattleResolves(t *testing.T) {
	b := newTestBattle(20, 8, 42)
	// The per-step crash chance alone guarantees termination long before
	// this bound.
	for i := 0; i < 200_000 && b.Phase == PhaseInProgress; i++ {
		b.Step()
	}
	if b.Phase != PhaseResolved {
		t.Fatalf("battle did not resolve after %d steps", b.Steps)
	}
	if b.Victory && b.AliveEnemies() != 0 {
		t.Fatal("victory with enemies still alive")
	}
	if !b.Victory && b.AlivePlayers() != 0 {
		t.Fatal("defeat with probes still alive")
	}
}

func TestCasualtyConservation(t *testing.T) {
	const deployed = 30
	const enemies = 8
	b := newTestBattle(deployed, enemies, 7)
	for i := 0; i < 200_000 && b.Phase == PhaseInProgress; i++ {
		b.Step()

		if b.PlayerLosses+b.AlivePlayers() != deployed {
			t.Fatalf("probe ledger out of balance at step %d: losses=%d alive=%d",
				b.Steps, b.PlayerLosses, b.AlivePlayers())
		}
		if b.EnemiesDestroyed+b.AliveEnemies() != enemies {
			t.Fatalf("enemy ledger out of balance at step %d: destroyed=%d alive=%d",
				b.Steps, b.EnemiesDestroyed, b.AliveEnemies())
		}
	}
	if b.Phase != PhaseResolved {
		t.Fatalf("battle did not resolve after %d steps", b.Steps)
	}
}

func TestStepAfterResolutionIsNoOp(t *testing.T) {
	b := newTestBattle(10, 4, 11)
	for i := 0; i < 200_000 && b.Phase == PhaseInProgress; i++ {
		b.Step()
	}
	steps := b.Steps
	b.Step()
	b.Step()
	if b.Steps != steps {
		t.Fatal("resolved battles must not advance")
	}
}

func TestEntitiesStayInArena(t *testing.T) {
	b := newTestBattle(25, 8, 3)
	for i := 0; i < 2_000 && b.Phase == PhaseInProgress; i++ {
		b.Step()
		for _, p := range b.Players {
			if p.Alive && (p.X < 0 || p.X > ArenaWidth || p.Y < 0 || p.Y > ArenaHeight) {
				t.Fatalf("probe escaped the arena at step %d: (%v, %v)", b.Steps, p.X, p.Y)
			}
		}
		for _, en := range b.Enemies {
			if en.Alive && (en.X < 0 || en.X > ArenaWidth || en.Y < 0 || en.Y > ArenaHeight) {
				t.Fatalf("enemy escaped the arena at step %d: (%v, %v)", b.Steps, en.X, en.Y)
			}
		}
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseIdle:       "idle",
		PhaseInProgress: "in_progress",
		PhaseResolved:   "resolved",
		Phase(99):       "unknown",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Fatalf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}
