package sim

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/clipfactory/clipfactory/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// helper: seeded engine around an optional prefilled state
func testEngine(t *testing.T, st *state.GameState) *Engine {
	t.Helper()
	e := New(st, MustLoadCatalog(), testLogger())
	e.Seed(42)
	return e
}

func mustOK(t *testing.T, name string, r Result) {
	t.Helper()
	if !r.OK {
		t.Fatalf("%s should succeed, got err=%v", name, r.Err)
	}
}

func mustFail(t *testing.T, name string, r Result, want error) {
	t.Helper()
	if r.OK {
		t.Fatalf("%s should fail with %v, got OK", name, want)
	}
	if !errors.Is(r.Err, want) {
		t.Fatalf("%s: want %v, got %v", name, want, r.Err)
	}
}

// ---------------------------------------------------------------------------
// 1. Production — autoclippers, wire clamp, clicking
// ---------------------------------------------------------------------------

func TestAutoClipperProducesAgainstWire(t *testing.T) {
	st := state.New()
	st.Money = 10
	e := testEngine(t, st)

	mustOK(t, "BuyAutoClipper", e.BuyAutoClipper())

	e.View(func(g *state.GameState) {
		if g.Money != 0 {
			t.Fatalf("autoclipper should cost exactly 10, money left: %v", g.Money)
		}
	})

	e.Tick(1.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.Paperclips-1) > 1e-9 {
			t.Fatalf("1 autoclipper for 1s should make 1 clip, got %v", g.Paperclips)
		}
		if math.Abs(g.Wire-999) > 1e-9 {
			t.Fatalf("1 clip should consume 1 wire, wire: %v", g.Wire)
		}
	})
}

func TestProductionClampedByWire(t *testing.T) {
	st := state.New()
	st.Wire = 0.5
	st.AutoClippers = 10
	e := testEngine(t, st)

	e.Tick(10.0) // wants 100 clips, only 0.5 wire available

	e.View(func(g *state.GameState) {
		if math.Abs(g.Paperclips-0.5) > 1e-9 {
			t.Fatalf("production should clamp to wire: got %v clips", g.Paperclips)
		}
		if g.Wire != 0 {
			t.Fatalf("wire should be exhausted, got %v", g.Wire)
		}
	})
}

func TestClickFailsWithoutWire(t *testing.T) {
	st := state.New()
	st.Wire = 0
	e := testEngine(t, st)

	mustFail(t, "ClickPaperclip", e.ClickPaperclip(), ErrInsufficient)
}

func TestClickMintsOneClip(t *testing.T) {
	e := testEngine(t, nil)
	mustOK(t, "ClickPaperclip", e.ClickPaperclip())
	e.View(func(g *state.GameState) {
		if g.Paperclips != 1 || g.Wire != 999 {
			t.Fatalf("click should mint 1 clip for 1 wire: clips=%v wire=%v", g.Paperclips, g.Wire)
		}
	})
}

func TestInvalidDTIsNoOp(t *testing.T) {
	st := state.New()
	st.AutoClippers = 5
	e := testEngine(t, st)

	e.Tick(-1)
	e.Tick(0)
	e.Tick(math.NaN())
	e.Tick(math.Inf(1))

	e.View(func(g *state.GameState) {
		if g.Paperclips != 0 || g.Wire != 1000 {
			t.Fatalf("invalid dt must not move state: clips=%v wire=%v", g.Paperclips, g.Wire)
		}
	})
}

// ---------------------------------------------------------------------------
// 2. Market — price bounds, demand, selling
// ---------------------------------------------------------------------------

func TestSetClipPriceBounds(t *testing.T) {
	e := testEngine(t, nil)

	mustFail(t, "SetClipPrice(1.5)", e.SetClipPrice(1.5), ErrValidation)
	mustFail(t, "SetClipPrice(0)", e.SetClipPrice(0), ErrValidation)
	mustFail(t, "SetClipPrice(-1)", e.SetClipPrice(-1), ErrValidation)
	mustFail(t, "SetClipPrice(NaN)", e.SetClipPrice(math.NaN()), ErrValidation)
	mustOK(t, "SetClipPrice(1.0)", e.SetClipPrice(1.0))
	mustOK(t, "SetClipPrice(0.01)", e.SetClipPrice(0.01))

	e.View(func(g *state.GameState) {
		if g.PaperclipPrice != 0.01 {
			t.Fatalf("price should be 0.01, got %v", g.PaperclipPrice)
		}
	})
}

func TestMarketSellsIntoDemand(t *testing.T) {
	st := state.New()
	st.Paperclips = 100
	e := testEngine(t, st)

	e.MarketTick(1.0)

	e.View(func(g *state.GameState) {
		if g.PaperclipsSold <= 0 {
			t.Fatal("at the base price some clips should sell")
		}
		if math.Abs((100-g.Paperclips)-g.PaperclipsSold) > 1e-9 {
			t.Fatalf("sold clips must leave inventory: clips=%v sold=%v", g.Paperclips, g.PaperclipsSold)
		}
		wantMoney := g.PaperclipsSold * g.PaperclipPrice
		if math.Abs(g.Money-wantMoney) > 1e-9 {
			t.Fatalf("revenue mismatch: money=%v want=%v", g.Money, wantMoney)
		}
	})
}

func TestMarketNeverSellsMoreThanInventory(t *testing.T) {
	st := state.New()
	st.Paperclips = 0.25
	st.PaperclipPrice = 0.01 // demand far above inventory
	e := testEngine(t, st)

	e.MarketTick(5.0)

	e.View(func(g *state.GameState) {
		if g.Paperclips < 0 {
			t.Fatalf("inventory went negative: %v", g.Paperclips)
		}
		if g.PaperclipsSold > 0.25+1e-9 {
			t.Fatalf("sold more than existed: %v", g.PaperclipsSold)
		}
	})
}

// ---------------------------------------------------------------------------
// 3. Wire supply — spools, spool sizing, auto-buyer
// ---------------------------------------------------------------------------

func TestBuyWireSpool(t *testing.T) {
	st := state.New()
	st.Money = 100
	e := testEngine(t, st)

	mustOK(t, "BuyWireSpool", e.BuyWireSpool())

	e.View(func(g *state.GameState) {
		if g.Wire != 2000 {
			t.Fatalf("spool should add a full spool of wire, got %v", g.Wire)
		}
		if g.Money != 80 {
			t.Fatalf("spool should cost the listed 20, money: %v", g.Money)
		}
		if g.SpoolsPurchased != 1 {
			t.Fatalf("spool count should be 1, got %d", g.SpoolsPurchased)
		}
		if g.WirePrice < 10 {
			t.Fatalf("wire price floor is 10, got %v", g.WirePrice)
		}
	})
}

func TestUpgradeSpoolSizeDoubles(t *testing.T) {
	st := state.New()
	st.Money = 1000
	e := testEngine(t, st)

	mustOK(t, "UpgradeSpoolSize", e.UpgradeSpoolSize())

	e.View(func(g *state.GameState) {
		if g.WireSpoolSize != 2000 {
			t.Fatalf("spool size should double to 2000, got %v", g.WireSpoolSize)
		}
		if g.Money != 800 {
			t.Fatalf("first level costs 200, money: %v", g.Money)
		}
	})
}

func TestAutoWireBuyerRestocks(t *testing.T) {
	st := state.New()
	st.AutoWireBuyer = true
	st.Wire = 10 // below 10% of the 1000 spool
	st.Money = 100
	st.AutoClippers = 1
	e := testEngine(t, st)

	e.Tick(0.1)

	e.View(func(g *state.GameState) {
		if g.SpoolsPurchased != 1 {
			t.Fatalf("auto-buyer should have bought one spool, got %d", g.SpoolsPurchased)
		}
		if g.Wire < 1000 {
			t.Fatalf("restock should refill wire, got %v", g.Wire)
		}
	})
}

func TestAutoWireBuyerOnceOnly(t *testing.T) {
	st := state.New()
	st.Money = 20000
	e := testEngine(t, st)

	mustOK(t, "BuyAutoWireBuyer", e.BuyAutoWireBuyer())
	mustFail(t, "BuyAutoWireBuyer again", e.BuyAutoWireBuyer(), ErrAlreadyOwned)
}

// ---------------------------------------------------------------------------
// 4. Cost curves — repeatables stay monotonic, also across snapshots
// ---------------------------------------------------------------------------

func TestAutoClipperCostCurve(t *testing.T) {
	st := state.New()
	st.Money = 1e6
	e := testEngine(t, st)

	prev := -1.0
	for i := 0; i < 10; i++ {
		r := e.BuyAutoClipper()
		mustOK(t, "BuyAutoClipper", r)
		if r.Cost < prev {
			t.Fatalf("cost curve must be non-decreasing: %v after %v", r.Cost, prev)
		}
		prev = r.Cost
	}
}

func TestCostCurveSurvivesSnapshotRoundTrip(t *testing.T) {
	st := state.New()
	st.Money = 1e6
	e := testEngine(t, st)

	for i := 0; i < 3; i++ {
		mustOK(t, "BuyAutoClipper", e.BuyAutoClipper())
	}

	restored := testEngine(t, state.Decode(e.Snapshot()))
	r := restored.BuyAutoClipper()
	mustOK(t, "BuyAutoClipper after restore", r)
	if want := AutoClipperCost(3); r.Cost != want {
		t.Fatalf("restored cost should continue the curve: got %v want %v", r.Cost, want)
	}
}

// ---------------------------------------------------------------------------
// 5. MegaClippers — unlock gate, production weight
// ---------------------------------------------------------------------------

func TestMegaClipperLockedUntilThreshold(t *testing.T) {
	st := state.New()
	st.Money = 1e6
	e := testEngine(t, st)

	mustFail(t, "BuyMegaClipper", e.BuyMegaClipper(), ErrLocked)
}

func TestMegaClipperUnlocksAtThreshold(t *testing.T) {
	st := state.New()
	st.Money = 1e6
	st.Wire = 1e6
	st.AutoClippers = 1
	st.TotalClipsMade = MegaClipperUnlockClips - 0.5
	e := testEngine(t, st)

	e.Tick(1.0) // pushes TotalClipsMade past the threshold

	mustOK(t, "BuyMegaClipper", e.BuyMegaClipper())

	e.View(func(g *state.GameState) {
		if !g.MegaClippersUnlocked {
			t.Fatal("threshold crossing should set the unlock flag")
		}
	})
}

func TestMegaClipperProductionRate(t *testing.T) {
	st := state.New()
	st.Wire = 1e6
	st.MegaClippersUnlocked = true
	st.MegaClippers = 2
	e := testEngine(t, st)

	e.Tick(1.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.Paperclips-100) > 1e-9 {
			t.Fatalf("2 megaclippers should make 100 clips/s, got %v", g.Paperclips)
		}
	})
}

// ---------------------------------------------------------------------------
// 6. Upgrades — once-only, repeatable, price-authoritative, prerequisites
// ---------------------------------------------------------------------------

func TestOnceOnlyUpgradeIdempotent(t *testing.T) {
	st := state.New()
	st.Ops = 5000
	e := testEngine(t, st)

	mustOK(t, "Purchase distributed_storage", e.Purchase(state.CatOps, "distributed_storage"))

	var opsAfter float64
	e.View(func(g *state.GameState) { opsAfter = g.Ops })

	mustFail(t, "Purchase distributed_storage again",
		e.Purchase(state.CatOps, "distributed_storage"), ErrAlreadyOwned)

	e.View(func(g *state.GameState) {
		if g.Ops != opsAfter {
			t.Fatalf("rejected purchase must not charge: ops %v -> %v", opsAfter, g.Ops)
		}
		if g.UpgradeCount(state.CatOps, "distributed_storage") != 1 {
			t.Fatal("ledger should hold exactly one entry")
		}
	})
}

func TestRepeatableUpgradeCostGrows(t *testing.T) {
	st := state.New()
	st.Ops = 1e6
	e := testEngine(t, st)

	first := e.Purchase(state.CatOps, "quantum_compute")
	mustOK(t, "quantum_compute #1", first)
	second := e.Purchase(state.CatOps, "quantum_compute")
	mustOK(t, "quantum_compute #2", second)

	if first.Cost != 4000 {
		t.Fatalf("first purchase at base cost, got %v", first.Cost)
	}
	if want := GeometricCost(4000, 1.8, 1); second.Cost != want {
		t.Fatalf("second purchase on the curve: got %v want %v", second.Cost, want)
	}

	e.View(func(g *state.GameState) {
		if g.CPULevel != 2 {
			t.Fatalf("each purchase adds a cpu level, got %d", g.CPULevel)
		}
	})
}

func TestPurchaseAtRejectsStaleCost(t *testing.T) {
	st := state.New()
	st.Ops = 1e6
	e := testEngine(t, st)

	mustOK(t, "PurchaseAt base cost", e.PurchaseAt(state.CatOps, "quantum_compute", 4000))
	mustFail(t, "PurchaseAt stale cost",
		e.PurchaseAt(state.CatOps, "quantum_compute", 4000), ErrValidation)
	mustOK(t, "PurchaseAt current cost",
		e.PurchaseAt(state.CatOps, "quantum_compute", GeometricCost(4000, 1.8, 1)))
}

func TestUpgradePrerequisiteGate(t *testing.T) {
	st := state.New()
	st.Money = 1e9
	e := testEngine(t, st)

	mustFail(t, "solar_array without space age",
		e.Purchase(state.CatSpace, "solar_array"), ErrLocked)
}

func TestUnknownUpgrade(t *testing.T) {
	e := testEngine(t, nil)
	mustFail(t, "Purchase nonsense", e.Purchase(state.CatOps, "nonsense"), ErrUnknownUpgrade)
}

func TestUpgradeEffectApplies(t *testing.T) {
	st := state.New()
	st.Ops = 10000
	e := testEngine(t, st)

	var before float64
	e.View(func(g *state.GameState) { before = g.ProductionMultiplier })

	mustOK(t, "parallel_pipelines", e.Purchase(state.CatOps, "parallel_pipelines"))

	e.View(func(g *state.GameState) {
		if math.Abs(g.ProductionMultiplier-before*1.5) > 1e-9 {
			t.Fatalf("multiplier effect not applied: %v -> %v", before, g.ProductionMultiplier)
		}
	})
}

// ---------------------------------------------------------------------------
// 7. Research — separate ledger, permanent effects
// ---------------------------------------------------------------------------

func TestResearchUnlockOnceOnly(t *testing.T) {
	st := state.New()
	st.ResearchPoints = 1000
	e := testEngine(t, st)

	mustOK(t, "BuyResearch schematics", e.BuyResearch("megaclipper_schematics"))

	e.View(func(g *state.GameState) {
		if !g.MegaClippersUnlocked {
			t.Fatal("schematics should flip the megaclipper flag")
		}
		if !g.HasResearch("megaclipper_schematics") {
			t.Fatal("research set should contain the id")
		}
	})

	mustFail(t, "BuyResearch again", e.BuyResearch("megaclipper_schematics"), ErrAlreadyOwned)
}

func TestResearchAccrual(t *testing.T) {
	st := state.New()
	st.ResearchRate = 2
	e := testEngine(t, st)

	e.ResearchTick(3.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.ResearchPoints-6) > 1e-9 {
			t.Fatalf("research should accrue rate*dt, got %v", g.ResearchPoints)
		}
	})
}

// ---------------------------------------------------------------------------
// 8. Compute stats — ops regen, creativity unlock
// ---------------------------------------------------------------------------

func TestOpsRegenTowardMax(t *testing.T) {
	st := state.New()
	st.OpsMax = 100
	st.CPULevel = 4 // 10 ops/sec
	e := testEngine(t, st)

	e.StatsTick(2.0)
	e.View(func(g *state.GameState) {
		if math.Abs(g.Ops-20) > 1e-9 {
			t.Fatalf("ops should regen at cpu rate: got %v", g.Ops)
		}
	})

	e.StatsTick(100.0)
	e.View(func(g *state.GameState) {
		if g.Ops != 100 {
			t.Fatalf("ops must cap at max: got %v", g.Ops)
		}
	})
}

func TestCreativityUnlocksOnCapacity(t *testing.T) {
	st := state.New()
	st.OpsMax = CreativityUnlockOpsMax
	e := testEngine(t, st)

	e.StatsTick(2.0)

	e.View(func(g *state.GameState) {
		if !g.CreativityUnlocked {
			t.Fatal("creativity should unlock at the capacity threshold")
		}
		if math.Abs(g.Creativity-1.0) > 1e-9 {
			t.Fatalf("creativity should accrue at 0.5/s once unlocked, got %v", g.Creativity)
		}
	})
}

func TestCreativityGenerationTierDoublesRate(t *testing.T) {
	st := state.New()
	st.OpsMax = CreativityGenTierOpsMax
	st.CreativityUnlocked = true
	st.CreativityRate = 0.5
	e := testEngine(t, st)

	e.StatsTick(1.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.Creativity-1.0) > 1e-9 {
			t.Fatalf("generation tier should double the rate, got %v", g.Creativity)
		}
	})
}

// ---------------------------------------------------------------------------
// 9. Stock market — unlock, trading, bots
// ---------------------------------------------------------------------------

func TestStockMarketUnlock(t *testing.T) {
	st := state.New()
	st.Money = 500
	e := testEngine(t, st)

	mustFail(t, "UnlockStockMarket poor", e.UnlockStockMarket(), ErrInsufficient)

	st2 := state.New()
	st2.Money = 1500
	e2 := testEngine(t, st2)
	mustOK(t, "UnlockStockMarket", e2.UnlockStockMarket())

	e2.View(func(g *state.GameState) {
		if g.Money != 500 {
			t.Fatalf("unlock should cost 1000, money: %v", g.Money)
		}
		if len(g.Stocks) == 0 {
			t.Fatal("unlock should seed the board")
		}
	})

	mustFail(t, "UnlockStockMarket again", e2.UnlockStockMarket(), ErrAlreadyOwned)
}

func TestBuySellStockCostBasis(t *testing.T) {
	st := state.New()
	st.Money = 100000
	e := testEngine(t, st)
	mustOK(t, "UnlockStockMarket", e.UnlockStockMarket())

	mustOK(t, "BuyStock wirex x10", e.BuyStock("wirex", 10))

	var price float64
	e.View(func(g *state.GameState) {
		h := g.Holding("wirex")
		if h == nil || h.Quantity != 10 {
			t.Fatal("holding should show 10 shares")
		}
		price = g.Stock("wirex").Price
		if math.Abs(h.AvgCost-price) > 1e-9 {
			t.Fatalf("single lot basis should equal fill price: %v vs %v", h.AvgCost, price)
		}
	})

	sold := e.SellStock("wirex", 10)
	mustOK(t, "SellStock wirex x10", sold)
	if sold.Cost != 10*price || sold.Currency != CurMoney {
		t.Fatalf("sale should report proceeds for the ledger: %+v", sold)
	}
	e.View(func(g *state.GameState) {
		if g.Holding("wirex") != nil {
			t.Fatal("empty position should be removed")
		}
	})

	mustFail(t, "SellStock with no position", e.SellStock("wirex", 1), ErrInsufficient)
	mustFail(t, "BuyStock qty 0", e.BuyStock("wirex", 0), ErrValidation)
	mustFail(t, "BuyStock unknown", e.BuyStock("acme", 1), ErrUnknownUpgrade)
}

func TestBotBudgetMovesMoneyBothWays(t *testing.T) {
	st := state.New()
	st.Money = 3000
	e := testEngine(t, st)
	mustOK(t, "UnlockStockMarket", e.UnlockStockMarket())

	mustOK(t, "SetBotTradingBudget 1000", e.SetBotTradingBudget(1000))
	e.View(func(g *state.GameState) {
		if g.Money != 1000 || g.BotTradingBudget != 1000 {
			t.Fatalf("budget should move cash: money=%v budget=%v", g.Money, g.BotTradingBudget)
		}
	})

	mustOK(t, "SetBotTradingBudget 400", e.SetBotTradingBudget(400))
	e.View(func(g *state.GameState) {
		if g.Money != 1600 || g.BotTradingBudget != 400 {
			t.Fatalf("shrinking budget should refund: money=%v budget=%v", g.Money, g.BotTradingBudget)
		}
	})

	mustFail(t, "SetBotTradingBudget beyond cash", e.SetBotTradingBudget(1e6), ErrInsufficient)
	mustFail(t, "WithdrawBotTradingBudget too much", e.WithdrawBotTradingBudget(500), ErrInsufficient)
	mustOK(t, "WithdrawBotTradingBudget 400", e.WithdrawBotTradingBudget(400))

	e.View(func(g *state.GameState) {
		if g.BotTradingBudget != 0 || g.Money != 2000 {
			t.Fatalf("withdraw should return all: money=%v budget=%v", g.Money, g.BotTradingBudget)
		}
	})
}

func TestBotsNeverTouchPlayerCash(t *testing.T) {
	st := state.New()
	st.Money = 50000
	e := testEngine(t, st)
	mustOK(t, "UnlockStockMarket", e.UnlockStockMarket())
	mustOK(t, "BuyTradingBot", e.BuyTradingBot())
	mustOK(t, "SetBotTradingBudget", e.SetBotTradingBudget(5000))

	var cashBefore float64
	e.View(func(g *state.GameState) { cashBefore = g.Money })

	for i := 0; i < 200; i++ {
		e.StockMarketTick(1.0)
	}

	e.View(func(g *state.GameState) {
		if g.Money != cashBefore {
			t.Fatalf("bot trading must not move player cash: %v -> %v", cashBefore, g.Money)
		}
		if g.BotTradingBudget < 0 {
			t.Fatalf("budget went negative: %v", g.BotTradingBudget)
		}
		if g.BotTradingProfit < 0 || g.BotTradingLosses < 0 {
			t.Fatalf("P/L accumulators must be non-negative: %v / %v",
				g.BotTradingProfit, g.BotTradingLosses)
		}
	})
}

func TestBotRiskThresholdBounds(t *testing.T) {
	e := testEngine(t, nil)
	mustFail(t, "SetBotRiskThreshold 0", e.SetBotRiskThreshold(0), ErrValidation)
	mustFail(t, "SetBotRiskThreshold 1.5", e.SetBotRiskThreshold(1.5), ErrValidation)
	mustOK(t, "SetBotRiskThreshold 0.2", e.SetBotRiskThreshold(0.2))
}

// ---------------------------------------------------------------------------
// 10. Prestige — formula, reset semantics
// ---------------------------------------------------------------------------

func TestPrestigePointsFormula(t *testing.T) {
	cases := []struct {
		clips float64
		want  int64
	}{
		{0, 0},
		{999_999, 0},
		{1_000_000, 1},
		{3_999_999, 1},
		{4_000_000, 2},
		{9_000_000, 3},
	}
	for _, c := range cases {
		if got := PrestigePointsFor(c.clips); got != c.want {
			t.Fatalf("PrestigePointsFor(%v) = %d, want %d", c.clips, got, c.want)
		}
	}
}

func TestPrestigeResetGuarded(t *testing.T) {
	st := state.New()
	st.Paperclips = 100
	e := testEngine(t, st)

	mustFail(t, "PrestigeReset below floor", e.PrestigeReset(), ErrLocked)
}

func TestPrestigeResetCarriesAndZeroes(t *testing.T) {
	st := state.New()
	st.Paperclips = 4_000_000
	st.AutoClippers = 50
	st.Money = 12345
	st.Trust = 10
	e := testEngine(t, st)

	mustOK(t, "PrestigeReset", e.PrestigeReset())

	e.View(func(g *state.GameState) {
		if g.PrestigeLevel != 1 || g.PrestigePoints != 2 {
			t.Fatalf("level=%d points=%d, want 1/2", g.PrestigeLevel, g.PrestigePoints)
		}
		if g.Paperclips != 0 || g.AutoClippers != 0 {
			t.Fatal("session resources should be zeroed")
		}
		if g.LifetimePaperclips != 4_000_000 {
			t.Fatalf("lifetime clips should carry: %v", g.LifetimePaperclips)
		}
		if g.Trust != 11 {
			t.Fatalf("trust should carry +1, got %v", g.Trust)
		}
		want := RewardsFor(2)
		if g.Rewards != want {
			t.Fatalf("rewards mismatch: %+v want %+v", g.Rewards, want)
		}
		if g.Money != want.StartingMoney {
			t.Fatalf("starting money should come from rewards: %v", g.Money)
		}
	})
}

func TestRewardsMonotonicInPoints(t *testing.T) {
	prev := RewardsFor(0)
	for p := int64(1); p <= 20; p++ {
		cur := RewardsFor(p)
		if cur.ProductionBonus <= prev.ProductionBonus ||
			cur.ClickBonus <= prev.ClickBonus ||
			cur.WireEfficiency <= prev.WireEfficiency {
			t.Fatalf("rewards must strictly grow with points: %+v -> %+v", prev, cur)
		}
		prev = cur
	}
}

func TestWireEfficiencyStretchesWire(t *testing.T) {
	st := state.New()
	st.Wire = 100
	st.AutoClippers = 1
	st.Rewards.WireEfficiency = 2
	e := testEngine(t, st)

	e.Tick(10.0) // 10 clips at 0.5 wire each

	e.View(func(g *state.GameState) {
		if math.Abs(g.Paperclips-10) > 1e-9 {
			t.Fatalf("production unaffected by efficiency: %v", g.Paperclips)
		}
		if math.Abs(g.Wire-95) > 1e-9 {
			t.Fatalf("efficiency 2 should halve wire use: wire=%v", g.Wire)
		}
	})
}

// ---------------------------------------------------------------------------
// 11. Space Age — gates, drones, energy, exploration
// ---------------------------------------------------------------------------

func TestSpaceAgeUnlockGate(t *testing.T) {
	e := testEngine(t, nil)
	mustFail(t, "UnlockSpaceAge cold", e.UnlockSpaceAge(), ErrLocked)

	st := state.New()
	st.Trust = SpaceAgeUnlockTrust
	st.Ops = SpaceAgeUnlockOps
	e2 := testEngine(t, st)
	mustOK(t, "UnlockSpaceAge", e2.UnlockSpaceAge())
	mustFail(t, "UnlockSpaceAge again", e2.UnlockSpaceAge(), ErrAlreadyOwned)
}

func TestEnergyCoverageScalesProduction(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Wire = 0
	st.WireHarvesters = 10
	st.EnergyPerSecond = 10 // fleet needs 20, so 50% coverage
	e := testEngine(t, st)

	e.SpaceTick(1.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.Wire-10) > 1e-9 {
			t.Fatalf("10 harvesters at 50%% coverage should mine 10 wire/s, got %v", g.Wire)
		}
		if g.Energy != 0 {
			t.Fatalf("no surplus should accrue under shortfall, got %v", g.Energy)
		}
	})
}

func TestEnergySurplusAccrues(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.WireHarvesters = 1
	st.EnergyPerSecond = 12 // needs 2, surplus 10
	e := testEngine(t, st)

	e.SpaceTick(2.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.Energy-20) > 1e-9 {
			t.Fatalf("surplus should bank: got %v", g.Energy)
		}
	})
}

func TestFactoryConvertsWireAndOre(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Factories = 1
	st.Wire = 5
	st.Ore = 3
	st.EnergyPerSecond = 100
	e := testEngine(t, st)

	e.SpaceTick(1.0)

	e.View(func(g *state.GameState) {
		if math.Abs(g.Aerograde-3) > 1e-9 {
			t.Fatalf("conversion clamps to ore: aerograde=%v", g.Aerograde)
		}
		if math.Abs(g.Wire-2) > 1e-9 || g.Ore != 0 {
			t.Fatalf("1:1:1 conversion: wire=%v ore=%v", g.Wire, g.Ore)
		}
	})
}

func TestLaunchHarvesterCostCurve(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Money = 1e9
	e := testEngine(t, st)

	first := e.LaunchWireHarvester(1)
	mustOK(t, "LaunchWireHarvester", first)
	if first.Cost != 50000 {
		t.Fatalf("first harvester at base cost, got %v", first.Cost)
	}

	// Ore harvesters share the fleet curve.
	second := e.LaunchOreHarvester(1)
	mustOK(t, "LaunchOreHarvester", second)
	if want := GeometricCost(50000, 1.08, 1); second.Cost != want {
		t.Fatalf("combined fleet curve: got %v want %v", second.Cost, want)
	}

	mustFail(t, "LaunchWireHarvester 0", e.LaunchWireHarvester(0), ErrValidation)
}

func TestBuildFactorySpendsOre(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Ore = 1000
	e := testEngine(t, st)

	r := e.BuildFactory(2)
	mustOK(t, "BuildFactory x2", r)
	if want := GeometricCost(250, 1.15, 0) + GeometricCost(250, 1.15, 1); r.Cost != want {
		t.Fatalf("bulk build sums the curve: got %v want %v", r.Cost, want)
	}
	if r.Currency != CurOre {
		t.Fatalf("factories cost ore, got %s", r.Currency)
	}
}

func TestMakeProbe(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Aerograde = 1200
	e := testEngine(t, st)

	mustOK(t, "MakeProbe", e.MakeProbe())
	mustOK(t, "MakeProbe", e.MakeProbe())
	mustFail(t, "MakeProbe broke", e.MakeProbe(), ErrInsufficient)

	e.View(func(g *state.GameState) {
		if g.Probes != 2 || g.Aerograde != 200 {
			t.Fatalf("probes=%d aerograde=%v", g.Probes, g.Aerograde)
		}
	})
}

func TestExplorationDiscoversBodies(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Probes = 1
	st.ExplorationProgress = 99.9
	e := testEngine(t, st)

	for i := 0; i < 100 && len(bodySnapshot(e)) == 0; i++ {
		e.SpaceTick(1.0)
	}

	bodies := bodySnapshot(e)
	if len(bodies) == 0 {
		t.Fatal("exploration should discover a body past 100 progress")
	}
	if bodies[0].OreBonus <= 0 {
		t.Fatal("discovered bodies carry an ore bonus")
	}
}

func bodySnapshot(e *Engine) []state.CelestialBody {
	var out []state.CelestialBody
	e.View(func(g *state.GameState) {
		out = append(out, g.Bodies...)
	})
	return out
}

func TestHarvestBodyOncePerBody(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Bodies = []state.CelestialBody{{ID: "body-1", Name: "Ceres-9", OreBonus: 0.1}}
	e := testEngine(t, st)

	mustOK(t, "HarvestCelestialBody", e.HarvestCelestialBody("body-1"))
	mustFail(t, "HarvestCelestialBody again", e.HarvestCelestialBody("body-1"), ErrAlreadyOwned)
	mustFail(t, "HarvestCelestialBody unknown", e.HarvestCelestialBody("body-9"), ErrUnknownUpgrade)

	e.View(func(g *state.GameState) {
		if g.Ore != 500*(1+0.1*10) {
			t.Fatalf("harvest lump mismatch: %v", g.Ore)
		}
	})
}

func TestAutoSellRequiresProtocol(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	e := testEngine(t, st)

	mustFail(t, "ToggleAutoSell without protocol", e.ToggleAutoSell(), ErrLocked)

	st2 := state.New()
	st2.SpaceAgeUnlocked = true
	st2.Upgrades[state.CatSpace] = []string{"auto_sell_protocol"}
	e2 := testEngine(t, st2)
	mustOK(t, "ToggleAutoSell", e2.ToggleAutoSell())
}

func TestSpaceMarketPricesDriftWithTrend(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	e := testEngine(t, st)

	before := map[string]float64{}
	e.View(func(g *state.GameState) {
		for k, m := range g.SpaceMarkets {
			before[k] = m.Price
		}
	})

	for i := 0; i < 500; i++ {
		e.MarketTick(1.0)
	}

	e.View(func(g *state.GameState) {
		moved := false
		for k, m := range g.SpaceMarkets {
			if m.Price <= 0 {
				t.Fatalf("%s price must stay positive, got %v", k, m.Price)
			}
			base := state.DefaultSpaceMarkets()[k].Price
			// Prices chase base*trend and the trend walk is bounded, so
			// they can never leave a band around the listing base.
			if m.Price < base*0.25 || m.Price > base*2 {
				t.Fatalf("%s price left its band: %v (base %v)", k, m.Price, base)
			}
			if m.Price != before[k] {
				moved = true
			}
		}
		if !moved {
			t.Fatal("space market prices should move with their trends")
		}
	})
}

// ---------------------------------------------------------------------------
// 12. Combat wiring — gates, probe losses, honor
// ---------------------------------------------------------------------------

func TestCombatGates(t *testing.T) {
	e := testEngine(t, nil)
	mustFail(t, "UnlockCombat cold", e.UnlockCombat(), ErrLocked)
	mustFail(t, "StartBattle cold", e.StartBattle(), ErrLocked)

	st := state.New()
	st.SpaceAgeUnlocked = true
	st.Ops = CombatUnlockOps
	e2 := testEngine(t, st)
	mustOK(t, "UnlockCombat", e2.UnlockCombat())
	mustFail(t, "StartBattle without probes", e2.StartBattle(), ErrInsufficient)
}

func TestBattleResolvesAndBooksOutcome(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.CombatUnlocked = true
	st.Probes = 30
	e := testEngine(t, st)

	mustOK(t, "StartBattle", e.StartBattle())
	mustFail(t, "StartBattle while running", e.StartBattle(), ErrValidation)

	for i := 0; i < 100000; i++ {
		e.StepBattle(10)
		if e.Battle().Phase != "in_progress" {
			break
		}
	}
	snap := e.Battle()
	if snap.Phase != "resolved" {
		t.Fatalf("battle should resolve, phase=%s after %d steps", snap.Phase, snap.Steps)
	}

	e.View(func(g *state.GameState) {
		if g.Probes > 30 {
			t.Fatalf("battles never add probes: %d", g.Probes)
		}
		if g.Probes < 0 {
			t.Fatal("probe count went negative")
		}
		if g.BattlesWon+g.BattlesLost != 1 {
			t.Fatalf("exactly one outcome should be booked: won=%d lost=%d", g.BattlesWon, g.BattlesLost)
		}
		if snap.Victory && g.Honor <= 0 {
			t.Fatal("victory should award honor")
		}
		if g.Honor < 0 {
			t.Fatal("honor went negative")
		}
	})
}

func TestAutoBattleStartsWhenEnabled(t *testing.T) {
	st := state.New()
	st.SpaceAgeUnlocked = true
	st.CombatUnlocked = true
	st.Probes = 5
	st.AutoBattle = true
	e := testEngine(t, st)

	e.MaybeAutoBattle()
	if e.Battle().Phase != "in_progress" {
		t.Fatal("auto-battle should have started an engagement")
	}
}

// ---------------------------------------------------------------------------
// 13. Offline catch-up
// ---------------------------------------------------------------------------

func TestCatchUpCapped(t *testing.T) {
	st := state.New()
	st.AutoClippers = 1
	st.Wire = 1e9
	st.LastSeen = time.Now().Add(-24 * time.Hour)
	e := testEngine(t, st)

	elapsed := e.CatchUp(time.Now(), 12*time.Hour)
	if elapsed != 12*time.Hour {
		t.Fatalf("catch-up should cap at 12h, got %v", elapsed)
	}

	e.View(func(g *state.GameState) {
		want := 12 * 3600.0
		if math.Abs(g.TotalClipsMade-want) > 1 {
			t.Fatalf("capped catch-up should make ~%v clips, got %v", want, g.TotalClipsMade)
		}
	})
}

func TestCatchUpNoLastSeen(t *testing.T) {
	e := testEngine(t, nil)
	if elapsed := e.CatchUp(time.Now(), 12*time.Hour); elapsed != 0 {
		t.Fatalf("fresh sessions have nothing to catch up, got %v", elapsed)
	}
}

// ---------------------------------------------------------------------------
// 14. Deterministic headless runs
// ---------------------------------------------------------------------------

func TestRunSimulationDeterministic(t *testing.T) {
	catalog := MustLoadCatalog()
	cfg := SimConfig{
		Seed:  7,
		Ticks: 500,
		DT:    0.1,
		Script: map[int][]ScriptedAction{
			1:   {{Name: "click", Do: func(e *Engine) Result { return e.ClickPaperclip() }}},
			100: {{Name: "buy", Do: func(e *Engine) Result { return e.BuyAutoClipper() }}},
		},
		StockEvery: 10,
	}

	a := RunSimulation(catalog, cfg)
	b := RunSimulation(catalog, cfg)

	if a.Final.Paperclips != b.Final.Paperclips ||
		a.Final.Money != b.Final.Money ||
		a.Final.Wire != b.Final.Wire ||
		a.Final.MarketTrend != b.Final.MarketTrend {
		t.Fatalf("same seed must reproduce the run:\n%+v\n%+v", a.Final, b.Final)
	}
}

func TestRunSimulationCountsRejections(t *testing.T) {
	catalog := MustLoadCatalog()
	res := RunSimulation(catalog, SimConfig{
		Seed:  1,
		Ticks: 5,
		DT:    0.1,
		Script: map[int][]ScriptedAction{
			1: {{Name: "buy_mega", Do: func(e *Engine) Result { return e.BuyMegaClipper() }}},
		},
	})
	if res.Rejections["buy_mega"] != 1 {
		t.Fatalf("locked purchase should be counted as rejection: %v", res.Rejections)
	}
}

func TestRunSimulationNonNegativity(t *testing.T) {
	catalog := MustLoadCatalog()
	res := RunSimulation(catalog, SimConfig{
		Seed:  99,
		Ticks: 2000,
		DT:    0.1,
		Script: map[int][]ScriptedAction{
			1: {{Name: "click", Do: func(e *Engine) Result { return e.ClickPaperclip() }}},
		},
		StockEvery: 10,
	})

	f := res.Final
	for name, v := range map[string]float64{
		"paperclips": f.Paperclips,
		"money":      f.Money,
		"wire":       f.Wire,
		"ops":        f.Ops,
		"creativity": f.Creativity,
		"trust":      f.Trust,
	} {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("%s invalid after long run: %v", name, v)
		}
	}
}
