package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/clipfactory/clipfactory/internal/sim"
	"github.com/clipfactory/clipfactory/internal/store"
)

// ActionPayload carries the parameters of a player action. Fields are
// action-specific; unused ones stay zero.
type ActionPayload struct {
	Category string  `json:"category,omitempty"`
	ID       string  `json:"id,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Cost     float64 `json:"cost,omitempty"`
	Qty      int64   `json:"qty,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

type actionResult struct {
	Action string  `json:"action"`
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Cost   float64 `json:"cost,omitempty"`
}

// SessionLoader loads a player's saved state and starts their session.
type SessionLoader func(ctx context.Context, playerID int64) error

// Dispatcher routes inbound WebSocket messages to the player's engine.
// It is the only component that touches both the hub and the manager.
type Dispatcher struct {
	manager *sim.Manager
	loader  SessionLoader
	clicks  *sim.ClickLimiter
	txs     *store.TransactionStore
	metrics *Metrics
	logger  *slog.Logger
}

func NewDispatcher(manager *sim.Manager, loader SessionLoader, clicks *sim.ClickLimiter, txs *store.TransactionStore, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		manager: manager,
		loader:  loader,
		clicks:  clicks,
		txs:     txs,
		metrics: metrics,
		logger:  logger,
	}
}

func (d *Dispatcher) OnConnect(ctx context.Context, playerID int64) {
	if err := d.loader(ctx, playerID); err != nil {
		d.logger.Error("start session", "player", playerID, "err", err)
	}
	d.metrics.SetSessions(int64(d.manager.Count()))
}

func (d *Dispatcher) OnDisconnect(ctx context.Context, playerID int64) {
	d.clicks.Reset(playerID)
	d.manager.Stop(ctx, playerID)
	d.metrics.SetSessions(int64(d.manager.Count()))
}

func (d *Dispatcher) HandleMessage(ctx context.Context, client *Client, msg WSMessage) {
	session, ok := d.manager.Get(client.ID)
	if !ok {
		d.logger.Warn("message without session", "player", client.ID, "type", msg.Type)
		return
	}
	e := session.Engine

	var p ActionPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			d.reply(client, msg.Type, sim.Result{Err: sim.ErrValidation})
			return
		}
	}

	var res sim.Result
	switch msg.Type {
	case "click":
		if !d.clicks.Allow(client.ID) {
			// Silently drop over-rate clicks; no reply keeps autoclicker
			// scripts guessing.
			return
		}
		res = e.ClickPaperclip()
		d.metrics.IncrClick()

	case "set_price":
		res = e.SetClipPrice(p.Price)
	case "buy_auto_clipper":
		res = e.BuyAutoClipper()
	case "buy_mega_clipper":
		res = e.BuyMegaClipper()
	case "buy_wire_spool":
		res = e.BuyWireSpool()
	case "upgrade_spool_size":
		res = e.UpgradeSpoolSize()
	case "buy_auto_wire_buyer":
		res = e.BuyAutoWireBuyer()

	case "buy_upgrade":
		res = e.PurchaseAt(p.Category, p.ID, p.Cost)
	case "buy_research":
		res = e.BuyResearch(p.ID)
	case "upgrade_stat":
		res = e.UpgradeStat(p.ID, p.Cost)

	case "unlock_stock_market":
		res = e.UnlockStockMarket()
	case "buy_stock":
		res = e.BuyStock(p.ID, p.Qty)
	case "sell_stock":
		res = e.SellStock(p.ID, p.Qty)
	case "buy_trading_bot":
		res = e.BuyTradingBot()
	case "upgrade_bot_intelligence":
		res = e.UpgradeBotIntelligence()
	case "set_bot_budget":
		res = e.SetBotTradingBudget(p.Amount)
	case "withdraw_bot_budget":
		res = e.WithdrawBotTradingBudget(p.Amount)
	case "set_bot_risk":
		res = e.SetBotRiskThreshold(p.Amount)

	case "unlock_space_age":
		res = e.UnlockSpaceAge()
	case "unlock_combat":
		res = e.UnlockCombat()
	case "make_probe":
		res = e.MakeProbe()
	case "launch_wire_harvester":
		res = e.LaunchWireHarvester(p.Qty)
	case "launch_ore_harvester":
		res = e.LaunchOreHarvester(p.Qty)
	case "build_factory":
		res = e.BuildFactory(p.Qty)
	case "toggle_drone_replication":
		res = e.ToggleDroneReplication()
	case "toggle_auto_sell":
		res = e.ToggleAutoSell()
	case "toggle_auto_battle":
		res = e.ToggleAutoBattle()
	case "harvest_body":
		res = e.HarvestCelestialBody(p.ID)

	case "start_battle":
		res = e.StartBattle()
		if res.OK {
			d.metrics.IncrBattle()
		}

	case "prestige":
		res = e.PrestigeReset()
		if res.OK {
			d.journal(ctx, client.ID, store.TxPrestige, res.Currency, -res.Cost, "prestige_reset")
		}

	default:
		d.logger.Warn("unknown message type", "player", client.ID, "type", msg.Type)
		return
	}

	d.metrics.IncrAction()
	if res.OK && res.Cost > 0 {
		txType, amount := txRecordFor(msg.Type, res)
		d.journal(ctx, client.ID, txType, res.Currency, amount, msg.Type)
	}
	d.reply(client, msg.Type, res)
}

// txRecordFor maps an action to its ledger row. Sales credit the player;
// everything else debits.
func txRecordFor(msgType string, res sim.Result) (store.TxType, float64) {
	switch msgType {
	case "sell_stock":
		return store.TxSale, res.Cost
	case "buy_stock":
		return store.TxStock, -res.Cost
	default:
		return store.TxPurchase, -res.Cost
	}
}

func (d *Dispatcher) journal(ctx context.Context, playerID int64, txType store.TxType, currency string, amount float64, detail string) {
	if d.txs == nil {
		return
	}
	if err := d.txs.Record(ctx, playerID, txType, currency, amount, &detail); err != nil {
		d.logger.Error("journal transaction", "player", playerID, "err", err)
	}
}

func (d *Dispatcher) reply(client *Client, action string, res sim.Result) {
	out := actionResult{Action: action, OK: res.OK, Cost: res.Cost}
	if res.Err != nil {
		out.Error = errorCode(res.Err)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	select {
	case client.send <- WSMessage{Type: "result", Payload: payload}:
	default:
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, sim.ErrValidation):
		return "invalid"
	case errors.Is(err, sim.ErrInsufficient):
		return "insufficient"
	case errors.Is(err, sim.ErrAlreadyOwned):
		return "already_owned"
	case errors.Is(err, sim.ErrLocked):
		return "locked"
	case errors.Is(err, sim.ErrUnknownUpgrade):
		return "unknown_upgrade"
	default:
		return "error"
	}
}
