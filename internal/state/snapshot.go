package state

import (
	"encoding/json"
	"math"
	"time"
)

// Snapshot is the flat persisted form of a GameState. Scalar fields are
// primitives; collection and nested-object fields are JSON-encoded strings
// so the whole record stays one flat row for the store layer.
//
// Decoding is deliberately lenient: a missing, non-finite, or out-of-range
// field recovers to the default from New() instead of surfacing an error.
type Snapshot struct {
	Paperclips         float64 `json:"paperclips"`
	Money              float64 `json:"money"`
	Wire               float64 `json:"wire"`
	TotalClipsMade     float64 `json:"total_clips_made"`
	LifetimePaperclips float64 `json:"lifetime_paperclips"`
	PaperclipsSold     float64 `json:"paperclips_sold"`
	TotalSales         float64 `json:"total_sales"`

	AutoClippers         int64   `json:"auto_clippers"`
	MegaClippers         int64   `json:"mega_clippers"`
	MegaClippersUnlocked bool    `json:"mega_clippers_unlocked"`
	ProductionMultiplier float64 `json:"production_multiplier"`
	ClickMultiplier      float64 `json:"click_multiplier"`

	WireSpoolSize   float64 `json:"wire_spool_size"`
	WirePrice       float64 `json:"wire_price"`
	SpoolsPurchased int64   `json:"spools_purchased"`
	SpoolSizeLevel  int64   `json:"spool_size_level"`
	AutoWireBuyer   bool    `json:"auto_wire_buyer"`

	PaperclipPrice     float64 `json:"paperclip_price"`
	MarketTrend        float64 `json:"market_trend"`
	SeasonalMultiplier float64 `json:"seasonal_multiplier"`
	DemandBoost        float64 `json:"demand_boost"`
	MarketDemand       float64 `json:"market_demand"`

	ResearchPoints float64 `json:"research_points"`
	ResearchRate   float64 `json:"research_rate"`
	ResearchJSON   string  `json:"research_json"`

	Trust              float64 `json:"trust"`
	Ops                float64 `json:"ops"`
	OpsMax             float64 `json:"ops_max"`
	Memory             float64 `json:"memory"`
	MemoryMax          float64 `json:"memory_max"`
	MemoryRegenRate    float64 `json:"memory_regen_rate"`
	CPULevel           int64   `json:"cpu_level"`
	Creativity         float64 `json:"creativity"`
	CreativityUnlocked bool    `json:"creativity_unlocked"`
	CreativityRate     float64 `json:"creativity_rate"`
	Yomi               float64 `json:"yomi"`
	YomiRate           float64 `json:"yomi_rate"`

	UpgradesJSON string `json:"upgrades_json"`

	StockMarketUnlocked bool    `json:"stock_market_unlocked"`
	StocksJSON          string  `json:"stocks_json"`
	HoldingsJSON        string  `json:"holdings_json"`
	TradingBots         int64   `json:"trading_bots"`
	BotIntelligence     int64   `json:"bot_intelligence"`
	BotRiskThreshold    float64 `json:"bot_risk_threshold"`
	BotTradingBudget    float64 `json:"bot_trading_budget"`
	BotTradingProfit    float64 `json:"bot_trading_profit"`
	BotTradingLosses    float64 `json:"bot_trading_losses"`
	RealizedProfit      float64 `json:"realized_profit"`

	PrestigeLevel  int64  `json:"prestige_level"`
	PrestigePoints int64  `json:"prestige_points"`
	RewardsJSON    string `json:"rewards_json"`

	SpaceAgeUnlocked    bool    `json:"space_age_unlocked"`
	Probes              int64   `json:"probes"`
	WireHarvesters      int64   `json:"wire_harvesters"`
	OreHarvesters       int64   `json:"ore_harvesters"`
	Factories           int64   `json:"factories"`
	Ore                 float64 `json:"ore"`
	Aerograde           float64 `json:"aerograde"`
	Energy              float64 `json:"energy"`
	EnergyPerSecond     float64 `json:"energy_per_second"`
	SpaceStatsJSON      string  `json:"space_stats_json"`
	CombatUnlocked      bool    `json:"combat_unlocked"`
	Honor               int64   `json:"honor"`
	BattlesWon          int64   `json:"battles_won"`
	BattlesLost         int64   `json:"battles_lost"`
	AutoBattle          bool    `json:"auto_battle"`
	DroneReplication    bool    `json:"drone_replication"`
	ExplorationProgress float64 `json:"exploration_progress"`
	BodiesJSON          string  `json:"bodies_json"`
	SpaceMarketsJSON    string  `json:"space_markets_json"`
	AutoSell            bool    `json:"auto_sell"`
	AutoSellFraction    float64 `json:"auto_sell_fraction"`

	LastSeenMillis int64 `json:"last_seen_ms"`
}

// Encode flattens a live state into its persisted form.
func Encode(g *GameState) Snapshot {
	return Snapshot{
		Paperclips:         g.Paperclips,
		Money:              g.Money,
		Wire:               g.Wire,
		TotalClipsMade:     g.TotalClipsMade,
		LifetimePaperclips: g.LifetimePaperclips,
		PaperclipsSold:     g.PaperclipsSold,
		TotalSales:         g.TotalSales,

		AutoClippers:         g.AutoClippers,
		MegaClippers:         g.MegaClippers,
		MegaClippersUnlocked: g.MegaClippersUnlocked,
		ProductionMultiplier: g.ProductionMultiplier,
		ClickMultiplier:      g.ClickMultiplier,

		WireSpoolSize:   g.WireSpoolSize,
		WirePrice:       g.WirePrice,
		SpoolsPurchased: g.SpoolsPurchased,
		SpoolSizeLevel:  g.SpoolSizeLevel,
		AutoWireBuyer:   g.AutoWireBuyer,

		PaperclipPrice:     g.PaperclipPrice,
		MarketTrend:        g.MarketTrend,
		SeasonalMultiplier: g.SeasonalMultiplier,
		DemandBoost:        g.DemandBoost,
		MarketDemand:       g.MarketDemand,

		ResearchPoints: g.ResearchPoints,
		ResearchRate:   g.ResearchRate,
		ResearchJSON:   encodeJSON(g.UnlockedResearch),

		Trust:              g.Trust,
		Ops:                g.Ops,
		OpsMax:             g.OpsMax,
		Memory:             g.Memory,
		MemoryMax:          g.MemoryMax,
		MemoryRegenRate:    g.MemoryRegenRate,
		CPULevel:           g.CPULevel,
		Creativity:         g.Creativity,
		CreativityUnlocked: g.CreativityUnlocked,
		CreativityRate:     g.CreativityRate,
		Yomi:               g.Yomi,
		YomiRate:           g.YomiRate,

		UpgradesJSON: encodeJSON(g.Upgrades),

		StockMarketUnlocked: g.StockMarketUnlocked,
		StocksJSON:          encodeJSON(g.Stocks),
		HoldingsJSON:        encodeJSON(g.Holdings),
		TradingBots:         g.TradingBots,
		BotIntelligence:     g.BotIntelligence,
		BotRiskThreshold:    g.BotRiskThreshold,
		BotTradingBudget:    g.BotTradingBudget,
		BotTradingProfit:    g.BotTradingProfit,
		BotTradingLosses:    g.BotTradingLosses,
		RealizedProfit:      g.RealizedProfit,

		PrestigeLevel:  g.PrestigeLevel,
		PrestigePoints: g.PrestigePoints,
		RewardsJSON:    encodeJSON(g.Rewards),

		SpaceAgeUnlocked:    g.SpaceAgeUnlocked,
		Probes:              g.Probes,
		WireHarvesters:      g.WireHarvesters,
		OreHarvesters:       g.OreHarvesters,
		Factories:           g.Factories,
		Ore:                 g.Ore,
		Aerograde:           g.Aerograde,
		Energy:              g.Energy,
		EnergyPerSecond:     g.EnergyPerSecond,
		SpaceStatsJSON:      encodeJSON(g.Stats),
		CombatUnlocked:      g.CombatUnlocked,
		Honor:               g.Honor,
		BattlesWon:          g.BattlesWon,
		BattlesLost:         g.BattlesLost,
		AutoBattle:          g.AutoBattle,
		DroneReplication:    g.DroneReplication,
		ExplorationProgress: g.ExplorationProgress,
		BodiesJSON:          encodeJSON(g.Bodies),
		SpaceMarketsJSON:    encodeJSON(g.SpaceMarkets),
		AutoSell:            g.AutoSell,
		AutoSellFraction:    g.AutoSellFraction,

		LastSeenMillis: lastSeenMillis(g.LastSeen),
	}
}

func lastSeenMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Decode rebuilds a live state from a snapshot. Invalid numeric values are
// replaced by the defaults from New(); malformed JSON collections fall back
// to empty/default collections. Decode never fails.
func Decode(s Snapshot) *GameState {
	d := New()
	g := &GameState{
		Paperclips:         nonneg(s.Paperclips, 0),
		Money:              nonneg(s.Money, 0),
		Wire:               nonneg(s.Wire, 0),
		TotalClipsMade:     nonneg(s.TotalClipsMade, 0),
		LifetimePaperclips: nonneg(s.LifetimePaperclips, 0),
		PaperclipsSold:     nonneg(s.PaperclipsSold, 0),
		TotalSales:         nonneg(s.TotalSales, 0),

		AutoClippers:         maxi(s.AutoClippers, 0),
		MegaClippers:         maxi(s.MegaClippers, 0),
		MegaClippersUnlocked: s.MegaClippersUnlocked,
		ProductionMultiplier: positive(s.ProductionMultiplier, d.ProductionMultiplier),
		ClickMultiplier:      positive(s.ClickMultiplier, d.ClickMultiplier),

		WireSpoolSize:   positive(s.WireSpoolSize, d.WireSpoolSize),
		WirePrice:       positive(s.WirePrice, d.WirePrice),
		SpoolsPurchased: maxi(s.SpoolsPurchased, 0),
		SpoolSizeLevel:  maxi(s.SpoolSizeLevel, 0),
		AutoWireBuyer:   s.AutoWireBuyer,

		PaperclipPrice:     inRange(s.PaperclipPrice, 0, 1, d.PaperclipPrice),
		MarketTrend:        positive(s.MarketTrend, d.MarketTrend),
		SeasonalMultiplier: positive(s.SeasonalMultiplier, d.SeasonalMultiplier),
		DemandBoost:        positive(s.DemandBoost, d.DemandBoost),
		MarketDemand:       nonneg(s.MarketDemand, 0),

		ResearchPoints: nonneg(s.ResearchPoints, 0),
		ResearchRate:   nonneg(s.ResearchRate, 0),

		Trust:              nonneg(s.Trust, 0),
		Ops:                nonneg(s.Ops, 0),
		OpsMax:             nonneg(s.OpsMax, 0),
		Memory:             nonneg(s.Memory, 0),
		MemoryMax:          nonneg(s.MemoryMax, 0),
		MemoryRegenRate:    positive(s.MemoryRegenRate, d.MemoryRegenRate),
		CPULevel:           maxi(s.CPULevel, 0),
		Creativity:         nonneg(s.Creativity, 0),
		CreativityUnlocked: s.CreativityUnlocked,
		CreativityRate:     nonneg(s.CreativityRate, 0),
		Yomi:               nonneg(s.Yomi, 0),
		YomiRate:           nonneg(s.YomiRate, 0),

		StockMarketUnlocked: s.StockMarketUnlocked,
		TradingBots:         maxi(s.TradingBots, 0),
		BotIntelligence:     maxi(s.BotIntelligence, d.BotIntelligence),
		BotRiskThreshold:    positive(s.BotRiskThreshold, d.BotRiskThreshold),
		BotTradingBudget:    nonneg(s.BotTradingBudget, 0),
		BotTradingProfit:    nonneg(s.BotTradingProfit, 0),
		BotTradingLosses:    nonneg(s.BotTradingLosses, 0),
		RealizedProfit:      finite(s.RealizedProfit, 0),

		PrestigeLevel:  maxi(s.PrestigeLevel, 0),
		PrestigePoints: maxi(s.PrestigePoints, 0),

		SpaceAgeUnlocked:    s.SpaceAgeUnlocked,
		Probes:              maxi(s.Probes, 0),
		WireHarvesters:      maxi(s.WireHarvesters, 0),
		OreHarvesters:       maxi(s.OreHarvesters, 0),
		Factories:           maxi(s.Factories, 0),
		Ore:                 nonneg(s.Ore, 0),
		Aerograde:           nonneg(s.Aerograde, 0),
		Energy:              nonneg(s.Energy, 0),
		EnergyPerSecond:     nonneg(s.EnergyPerSecond, 0),
		CombatUnlocked:      s.CombatUnlocked,
		Honor:               maxi(s.Honor, 0),
		BattlesWon:          maxi(s.BattlesWon, 0),
		BattlesLost:         maxi(s.BattlesLost, 0),
		AutoBattle:          s.AutoBattle,
		DroneReplication:    s.DroneReplication,
		ExplorationProgress: nonneg(s.ExplorationProgress, 0),
		AutoSell:            s.AutoSell,
		AutoSellFraction:    inRange(s.AutoSellFraction, 0, 1, d.AutoSellFraction),
	}

	if s.LastSeenMillis > 0 {
		g.LastSeen = time.UnixMilli(s.LastSeenMillis).UTC()
	}

	decodeJSON(s.ResearchJSON, &g.UnlockedResearch)

	g.Upgrades = map[string][]string{}
	decodeJSON(s.UpgradesJSON, &g.Upgrades)
	if g.Upgrades == nil {
		g.Upgrades = map[string][]string{}
	}

	decodeJSON(s.StocksJSON, &g.Stocks)
	decodeJSON(s.HoldingsJSON, &g.Holdings)
	for i := range g.Stocks {
		st := &g.Stocks[i]
		st.Price = positive(st.Price, 1)
		st.PrevPrice = positive(st.PrevPrice, st.Price)
		st.Volatility = nonneg(st.Volatility, 0.05)
		st.Trend = finite(st.Trend, 0)
	}
	valid := g.Holdings[:0]
	for _, h := range g.Holdings {
		if h.StockID == "" || h.Quantity <= 0 {
			continue
		}
		h.AvgCost = nonneg(h.AvgCost, 0)
		valid = append(valid, h)
	}
	g.Holdings = valid

	g.Rewards = d.Rewards
	decodeJSON(s.RewardsJSON, &g.Rewards)
	g.Rewards.ProductionBonus = positive(g.Rewards.ProductionBonus, 1)
	g.Rewards.ResearchBonus = positive(g.Rewards.ResearchBonus, 1)
	g.Rewards.WireEfficiency = positive(g.Rewards.WireEfficiency, 1)
	g.Rewards.ClickBonus = positive(g.Rewards.ClickBonus, 1)
	g.Rewards.StartingMoney = nonneg(g.Rewards.StartingMoney, 0)

	decodeJSON(s.SpaceStatsJSON, &g.Stats)
	clampStats(&g.Stats)

	decodeJSON(s.BodiesJSON, &g.Bodies)

	g.SpaceMarkets = map[string]*ResourceMarket{}
	decodeJSON(s.SpaceMarketsJSON, &g.SpaceMarkets)
	defaults := DefaultSpaceMarkets()
	for key, def := range defaults {
		m, ok := g.SpaceMarkets[key]
		if !ok || m == nil {
			g.SpaceMarkets[key] = def
			continue
		}
		m.Price = positive(m.Price, def.Price)
		m.Demand = nonneg(m.Demand, def.Demand)
		m.Trend = positive(m.Trend, def.Trend)
	}
	// Drop unknown resource keys so round-trips stay canonical.
	for key := range g.SpaceMarkets {
		if _, ok := defaults[key]; !ok {
			delete(g.SpaceMarkets, key)
		}
	}

	return g
}

func clampStats(st *SpaceStats) {
	st.Speed = maxi(st.Speed, 0)
	st.Exploration = maxi(st.Exploration, 0)
	st.SelfReplication = maxi(st.SelfReplication, 0)
	st.WireProduction = maxi(st.WireProduction, 0)
	st.MiningProduction = maxi(st.MiningProduction, 0)
	st.FactoryProduction = maxi(st.FactoryProduction, 0)
	st.HazardEvasion = maxi(st.HazardEvasion, 0)
	st.Combat = maxi(st.Combat, 0)
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeJSON(s string, v any) {
	if s == "" {
		return
	}
	// Malformed payloads leave v at its default.
	_ = json.Unmarshal([]byte(s), v)
}

func finite(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func nonneg(v, def float64) float64 {
	v = finite(v, def)
	if v < 0 {
		return def
	}
	return v
}

func positive(v, def float64) float64 {
	v = finite(v, def)
	if v <= 0 {
		return def
	}
	return v
}

// inRange accepts lo < v <= hi, else returns def.
func inRange(v, lo, hi, def float64) float64 {
	v = finite(v, def)
	if v <= lo || v > hi {
		return def
	}
	return v
}

func maxi(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}
