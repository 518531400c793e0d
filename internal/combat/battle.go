// Package combat runs the discrete-time probe battle simulation on a
// bounded 2D arena. Battles hold no references to the game state; the
// engine deploys probes in, steps the battle, and applies the outcome back.
package combat

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Arena bounds.
const (
	ArenaWidth  = 800.0
	ArenaHeight = 400.0
)

const (
	maxDeployedProbes = 50
	probeSize         = 4.0
	enemySize         = 5.0
	baseSpeed         = 2.0
	maxPursuitBlend   = 0.8
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "in_progress"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Entity is one probe or enemy craft on the arena.
type Entity struct {
	X, Y   float64
	VX, VY float64
	Size   float64
	Alive  bool
}

// Config captures the stats a battle depends on at start time.
type Config struct {
	Probes        int64 // global probe count; up to maxDeployedProbes deploy
	CombatStat    int64
	HazardEvasion int64
	SpeedStat     int64
	EnemyCount    int
	EnemyStrength float64 // scales enemy speed
}

// Battle is one engagement. All state lives here; abandoning a battle
// needs no cleanup beyond dropping the pointer.
type Battle struct {
	ID      string
	Phase   Phase
	Players []Entity
	Enemies []Entity

	PlayerLosses     int
	EnemiesDestroyed int
	Steps            int
	Victory          bool

	cfg Config
	rng *rand.Rand
}

// New deploys a battle. Caller guarantees cfg.Probes > 0.
func New(cfg Config, rng *rand.Rand) *Battle {
	deployed := int(cfg.Probes)
	if deployed > maxDeployedProbes {
		deployed = maxDeployedProbes
	}
	if cfg.EnemyCount < 1 {
		cfg.EnemyCount = 1
	}

	b := &Battle{
		ID:    uuid.New().String(),
		Phase: PhaseInProgress,
		cfg:   cfg,
		rng:   rng,
	}

	// Probes deploy on the left quarter, enemies on the right.
	for i := 0; i < deployed; i++ {
		b.Players = append(b.Players, b.spawn(0, ArenaWidth/4, probeSize))
	}
	for i := 0; i < cfg.EnemyCount; i++ {
		b.Enemies = append(b.Enemies, b.spawn(ArenaWidth*3/4, ArenaWidth, enemySize))
	}
	return b
}

func (b *Battle) spawn(xMin, xMax, size float64) Entity {
	angle := b.rng.Float64() * 2 * math.Pi
	return Entity{
		X:     xMin + b.rng.Float64()*(xMax-xMin),
		Y:     b.rng.Float64() * ArenaHeight,
		VX:    math.Cos(angle),
		VY:    math.Sin(angle),
		Size:  size,
		Alive: true,
	}
}

// Step advances the battle one frame: perturb headings, blend probe
// pursuit toward the nearest enemy, move, bounce off bounds, resolve
// collisions and hazards, then check the end condition.
func (b *Battle) Step() {
	if b.Phase != PhaseInProgress {
		return
	}
	b.Steps++

	playerSpeed := baseSpeed * (1 + 0.15*float64(b.cfg.SpeedStat))
	enemySpeed := baseSpeed * b.cfg.EnemyStrength

	// Pursuit blending grows with the combat stat, capped at 80% so even
	// veteran fleets keep some drift.
	blend := math.Min(maxPursuitBlend, 0.1+0.1*float64(b.cfg.CombatStat))

	for i := range b.Players {
		p := &b.Players[i]
		if !p.Alive {
			continue
		}
		b.perturb(p)
		if target := b.nearestEnemy(p); target != nil {
			dx, dy := target.X-p.X, target.Y-p.Y
			if dist := math.Hypot(dx, dy); dist > 0 {
				p.VX = (1-blend)*p.VX + blend*dx/dist
				p.VY = (1-blend)*p.VY + blend*dy/dist
			}
		}
		b.move(p, playerSpeed)
	}

	for i := range b.Enemies {
		en := &b.Enemies[i]
		if !en.Alive {
			continue
		}
		b.perturb(en)
		b.move(en, enemySpeed)
	}

	b.resolveCollisions()
	b.applyCrashes()

	if b.aliveEnemies() == 0 {
		b.Phase = PhaseResolved
		b.Victory = true
	} else if b.alivePlayers() == 0 {
		b.Phase = PhaseResolved
		b.Victory = false
	}
}

// perturb randomly rotates an entity's heading and renormalizes it.
func (b *Battle) perturb(e *Entity) {
	angle := math.Atan2(e.VY, e.VX) + (b.rng.Float64()-0.5)*0.6
	e.VX = math.Cos(angle)
	e.VY = math.Sin(angle)
}

// move advances an entity and bounces it elastically off the arena bounds.
func (b *Battle) move(e *Entity, speed float64) {
	e.X += e.VX * speed
	e.Y += e.VY * speed
	if e.X < 0 {
		e.X, e.VX = -e.X, -e.VX
	} else if e.X > ArenaWidth {
		e.X, e.VX = 2*ArenaWidth-e.X, -e.VX
	}
	if e.Y < 0 {
		e.Y, e.VY = -e.Y, -e.VY
	} else if e.Y > ArenaHeight {
		e.Y, e.VY = 2*ArenaHeight-e.Y, -e.VY
	}
}

func (b *Battle) nearestEnemy(p *Entity) *Entity {
	var nearest *Entity
	best := math.MaxFloat64
	for i := range b.Enemies {
		en := &b.Enemies[i]
		if !en.Alive {
			continue
		}
		d := math.Hypot(en.X-p.X, en.Y-p.Y)
		if d < best {
			best = d
			nearest = en
		}
	}
	return nearest
}

// resolveCollisions destroys any opposing pair within the sum of their
// sizes. Each collision also risks collateral loss of a random friendly
// probe, mitigated by hazard evasion.
func (b *Battle) resolveCollisions() {
	hazard := math.Max(1, float64(b.cfg.HazardEvasion))
	for i := range b.Players {
		p := &b.Players[i]
		if !p.Alive {
			continue
		}
		for j := range b.Enemies {
			en := &b.Enemies[j]
			if !en.Alive {
				continue
			}
			if math.Hypot(en.X-p.X, en.Y-p.Y) > p.Size+en.Size {
				continue
			}
			p.Alive = false
			en.Alive = false
			b.PlayerLosses++
			b.EnemiesDestroyed++

			if b.rng.Float64() < 0.3/hazard {
				b.destroyRandomProbe()
			}
			break
		}
	}
}

// applyCrashes rolls the independent per-step probe loss chance.
func (b *Battle) applyCrashes() {
	hazard := math.Max(1, float64(b.cfg.HazardEvasion))
	crashP := 0.01 / hazard
	for i := range b.Players {
		p := &b.Players[i]
		if p.Alive && b.rng.Float64() < crashP {
			p.Alive = false
			b.PlayerLosses++
		}
	}
}

func (b *Battle) destroyRandomProbe() {
	alive := make([]int, 0, len(b.Players))
	for i := range b.Players {
		if b.Players[i].Alive {
			alive = append(alive, i)
		}
	}
	if len(alive) == 0 {
		return
	}
	b.Players[alive[b.rng.Intn(len(alive))]].Alive = false
	b.PlayerLosses++
}

func (b *Battle) alivePlayers() int {
	n := 0
	for i := range b.Players {
		if b.Players[i].Alive {
			n++
		}
	}
	return n
}

func (b *Battle) aliveEnemies() int {
	n := 0
	for i := range b.Enemies {
		if b.Enemies[i].Alive {
			n++
		}
	}
	return n
}

// AlivePlayers reports surviving probes; exposed for outcome accounting.
func (b *Battle) AlivePlayers() int { return b.alivePlayers() }

// AliveEnemies reports surviving enemy craft.
func (b *Battle) AliveEnemies() int { return b.aliveEnemies() }
