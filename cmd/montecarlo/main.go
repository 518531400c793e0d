package main

import (
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipfactory/clipfactory/internal/sim"
	"github.com/clipfactory/clipfactory/internal/state"
)

// --- Config ---
const (
	totalRuns   = 2_000
	ticksPerRun = 6_000 // dt=0.1s -> 10 simulated minutes
	dt          = 0.1
)

// archetype distribution
const (
	pctIdler    = 0.40
	pctClicker  = 0.30
	pctInvestor = 0.20
	// tycoon = remainder
)

type Archetype int

const (
	Idler Archetype = iota
	Clicker
	Investor
	Tycoon
)

func (a Archetype) String() string {
	return [...]string{"Idler", "Clicker", "Investor", "Tycoon"}[a]
}

type runResult struct {
	arch      Archetype
	final     state.Snapshot
	accepted  int
	rejected  int
	netBotPL  float64
	portfolio float64
}

func main() {
	start := time.Now()

	workers := runtime.GOMAXPROCS(0)
	results := make([]runResult, totalRuns)

	catalog, err := sim.LoadCatalog()
	if err != nil {
		fmt.Println("load catalog:", err)
		return
	}

	var progress atomic.Int64
	var wg sync.WaitGroup

	chunkSize := totalRuns / workers
	for w := 0; w < workers; w++ {
		wg.Add(1)
		lo := w * chunkSize
		hi := lo + chunkSize
		if w == workers-1 {
			hi = totalRuns
		}
		go func(lo, hi int) {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(int64(lo) * 7919))
			for i := lo; i < hi; i++ {
				results[i] = runSession(localRng, catalog, int64(i))
				if n := progress.Add(1); n%(totalRuns/10) == 0 {
					fmt.Printf("  ... %d/%d runs (%.0f%%)\n", n, totalRuns, float64(n)/float64(totalRuns)*100)
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	elapsed := time.Since(start)
	printReport(results, elapsed)
}

func archetypeFor(rng *rand.Rand) Archetype {
	r := rng.Float64()
	switch {
	case r < pctIdler:
		return Idler
	case r < pctIdler+pctClicker:
		return Clicker
	case r < pctIdler+pctClicker+pctInvestor:
		return Investor
	default:
		return Tycoon
	}
}

func runSession(rng *rand.Rand, catalog *sim.Catalog, seed int64) runResult {
	arch := archetypeFor(rng)

	script := make(map[int][]sim.ScriptedAction)
	add := func(tick int, name string, do func(*sim.Engine) sim.Result) {
		script[tick] = append(script[tick], sim.ScriptedAction{Name: name, Do: do})
	}

	buyAuto := func(e *sim.Engine) sim.Result { return e.BuyAutoClipper() }
	buyWire := func(e *sim.Engine) sim.Result { return e.BuyWireSpool() }
	click := func(e *sim.Engine) sim.Result { return e.ClickPaperclip() }

	switch arch {
	case Idler:
		// Buys production when affordable, never clicks.
		for t := 10; t <= ticksPerRun; t += 20 {
			add(t, "buy_auto_clipper", buyAuto)
			add(t+5, "buy_wire_spool", buyWire)
		}

	case Clicker:
		// Clicks at human cadence, reinvests occasionally.
		for t := 1; t <= ticksPerRun; t += 2 {
			add(t, "click", click)
		}
		for t := 50; t <= ticksPerRun; t += 50 {
			add(t, "buy_auto_clipper", buyAuto)
			add(t+10, "buy_wire_spool", buyWire)
		}

	case Investor:
		// Builds a base, then pushes everything into trading bots.
		for t := 1; t <= 600; t += 3 {
			add(t, "click", click)
		}
		for t := 20; t <= ticksPerRun; t += 30 {
			add(t, "buy_auto_clipper", buyAuto)
			add(t+5, "buy_wire_spool", buyWire)
		}
		add(600, "unlock_stock_market", func(e *sim.Engine) sim.Result { return e.UnlockStockMarket() })
		for t := 650; t <= ticksPerRun; t += 200 {
			add(t, "buy_trading_bot", func(e *sim.Engine) sim.Result { return e.BuyTradingBot() })
			add(t+20, "set_bot_budget", func(e *sim.Engine) sim.Result { return e.SetBotTradingBudget(2000) })
		}

	case Tycoon:
		// Clicks hard, buys everything, raises the price when demand allows.
		for t := 1; t <= ticksPerRun; t++ {
			add(t, "click", click)
		}
		for t := 10; t <= ticksPerRun; t += 15 {
			add(t, "buy_auto_clipper", buyAuto)
			add(t+3, "buy_wire_spool", buyWire)
			add(t+6, "buy_mega_clipper", func(e *sim.Engine) sim.Result { return e.BuyMegaClipper() })
		}
		add(300, "set_price", func(e *sim.Engine) sim.Result { return e.SetClipPrice(0.35) })
		add(1200, "unlock_stock_market", func(e *sim.Engine) sim.Result { return e.UnlockStockMarket() })
	}

	res := sim.RunSimulation(catalog, sim.SimConfig{
		Seed:       seed,
		Ticks:      ticksPerRun,
		DT:         dt,
		Script:     script,
		StockEvery: 10,
	})

	rejected := 0
	for _, n := range res.Rejections {
		rejected += n
	}

	return runResult{
		arch:      arch,
		final:     res.Final,
		accepted:  res.Accepted,
		rejected:  rejected,
		netBotPL:  res.Final.BotTradingProfit - res.Final.BotTradingLosses,
		portfolio: res.Engine.PortfolioValue(),
	}
}

func printReport(results []runResult, elapsed time.Duration) {
	var clips, money, autos, lifetime, botPL []float64
	byArchClips := make(map[Archetype][]float64)
	byArchMoney := make(map[Archetype][]float64)
	runsByArch := make(map[Archetype]int)
	stockUnlocks := 0

	for _, r := range results {
		clips = append(clips, r.final.TotalClipsMade)
		money = append(money, r.final.Money+r.portfolio)
		autos = append(autos, float64(r.final.AutoClippers))
		lifetime = append(lifetime, r.final.LifetimePaperclips)
		byArchClips[r.arch] = append(byArchClips[r.arch], r.final.TotalClipsMade)
		byArchMoney[r.arch] = append(byArchMoney[r.arch], r.final.Money+r.portfolio)
		runsByArch[r.arch]++
		if r.final.StockMarketUnlocked {
			stockUnlocks++
			botPL = append(botPL, r.netBotPL)
		}
	}

	sort.Float64s(clips)
	sort.Float64s(money)
	sort.Float64s(autos)
	sort.Float64s(lifetime)
	sort.Float64s(botPL)

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              MONTE CARLO BALANCE REPORT                     ║")
	fmt.Println("║            (10 simulated minutes per run)                   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Runs: %d  |  Ticks/run: %d  |  dt: %.1fs\n", totalRuns, ticksPerRun, dt)
	fmt.Printf("  Archetypes: Idler(%.0f%%) Clicker(%.0f%%) Investor(%.0f%%) Tycoon(%.0f%%)\n",
		pctIdler*100, pctClicker*100, pctInvestor*100, (1-pctIdler-pctClicker-pctInvestor)*100)
	fmt.Printf("  Elapsed: %v  |  Workers: %d\n", elapsed.Round(time.Millisecond), runtime.GOMAXPROCS(0))

	fmt.Println()
	fmt.Println("─── PRODUCTION ────────────────────────────────────────────────")
	fmt.Printf("  Mean clips made:             %12.0f\n", mean(clips))
	fmt.Printf("  Median clips made:           %12.0f\n", percentile(clips, 50))
	fmt.Printf("  10th pctl clips:             %12.0f\n", percentile(clips, 10))
	fmt.Printf("  90th pctl clips:             %12.0f\n", percentile(clips, 90))
	fmt.Printf("  Mean autoclippers owned:     %12.1f\n", mean(autos))

	fmt.Println()
	fmt.Println("─── WEALTH ────────────────────────────────────────────────────")
	fmt.Printf("  Mean net worth (money+stock):%12.2f\n", mean(money))
	fmt.Printf("  Median net worth:            %12.2f\n", percentile(money, 50))
	fmt.Printf("  90th pctl net worth:         %12.2f\n", percentile(money, 90))

	fmt.Println()
	fmt.Println("─── BY ARCHETYPE ──────────────────────────────────────────────")
	for _, a := range []Archetype{Idler, Clicker, Investor, Tycoon} {
		c := byArchClips[a]
		m := byArchMoney[a]
		sort.Float64s(c)
		sort.Float64s(m)
		fmt.Printf("  %-10s  runs: %5d  med clips: %12.0f  med worth: %10.2f\n",
			a.String(), runsByArch[a], percentile(c, 50), percentile(m, 50))
	}

	fmt.Println()
	fmt.Println("─── STOCK MARKET ──────────────────────────────────────────────")
	fmt.Printf("  Runs that unlocked trading:  %8d  (%5.1f%%)\n", stockUnlocks, float64(stockUnlocks)/float64(totalRuns)*100)
	if len(botPL) > 0 {
		fmt.Printf("  Mean bot net P&L:            %12.2f\n", mean(botPL))
		fmt.Printf("  Median bot net P&L:          %12.2f\n", percentile(botPL, 50))
		fmt.Printf("  10th pctl (worst):           %12.2f\n", percentile(botPL, 10))
		fmt.Printf("  90th pctl (best):            %12.2f\n", percentile(botPL, 90))
	}

	fmt.Println()
	fmt.Println("─── DIAGNOSIS ─────────────────────────────────────────────────")
	idlerMed := percentile(byArchClips[Idler], 50)
	tycoonMed := percentile(byArchClips[Tycoon], 50)

	if idlerMed < 500 {
		fmt.Println("  !! IDLER CLIPS < 500 after 10min — passive progression too slow")
	} else {
		fmt.Printf("  OK IDLER median %.0f clips — passive play progresses\n", idlerMed)
	}

	if idlerMed > 0 && tycoonMed/idlerMed < 1.5 {
		fmt.Println("  !! ACTIVE/PASSIVE RATIO < 1.5x — clicking feels pointless")
	} else if idlerMed > 0 && tycoonMed/idlerMed > 20 {
		fmt.Println("  !! ACTIVE/PASSIVE RATIO > 20x — idle play not viable")
	} else if idlerMed > 0 {
		fmt.Printf("  OK ACTIVE/PASSIVE RATIO %.1fx — both styles viable\n", tycoonMed/idlerMed)
	}

	if len(botPL) > 0 {
		if mean(botPL) > 500 {
			fmt.Println("  !! BOT MEAN P&L > 500 — trading bots are a money printer")
		} else if mean(botPL) < -500 {
			fmt.Println("  !! BOT MEAN P&L < -500 — trading bots are a money pit")
		} else {
			fmt.Printf("  OK BOT MEAN P&L %.1f — trading roughly break-even with edge from intel\n", mean(botPL))
		}
	}

	fmt.Println()
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	t := 0.0
	for _, v := range s {
		t += v
	}
	return t / float64(len(s))
}

func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * pct / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
