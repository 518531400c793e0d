package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipfactory/clipfactory/internal/cache"
	"github.com/clipfactory/clipfactory/internal/config"
	"github.com/clipfactory/clipfactory/internal/leaderboard"
	"github.com/clipfactory/clipfactory/internal/server"
	"github.com/clipfactory/clipfactory/internal/sim"
	"github.com/clipfactory/clipfactory/internal/state"
	"github.com/clipfactory/clipfactory/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores
	playerStore := store.NewPlayerStore(db)
	saveStore := store.NewSaveStore(db)
	txStore := store.NewTransactionStore(db)
	archiveStore, err := store.NewArchiveStore(db)
	if err != nil {
		logger.Error("init archive store", "err", err)
		os.Exit(1)
	}
	boards := leaderboard.NewService(rdb)

	catalog, err := sim.LoadCatalog()
	if err != nil {
		logger.Error("load upgrade catalog", "err", err)
		os.Exit(1)
	}

	metrics := server.NewMetrics()

	// Every autosave also mirrors headline stats to Postgres and the
	// Redis boards so account queries and rankings stay warm.
	saveFn := func(ctx context.Context, userID int64, snap state.Snapshot) error {
		if err := saveStore.Put(ctx, userID, snap); err != nil {
			return err
		}
		metrics.IncrSave()
		if err := playerStore.UpdateProgress(ctx, userID, snap.LifetimePaperclips, snap.PrestigeLevel, snap.PrestigePoints, snap.Honor); err != nil {
			logger.Warn("mirror progress", "user", userID, "err", err)
		}
		if err := boards.UpdateClips(ctx, userID, snap.LifetimePaperclips); err != nil {
			logger.Warn("update clip board", "user", userID, "err", err)
		}
		if err := boards.UpdatePrestige(ctx, userID, snap.PrestigePoints); err != nil {
			logger.Warn("update prestige board", "user", userID, "err", err)
		}
		if err := boards.UpdateHonor(ctx, userID, snap.Honor); err != nil {
			logger.Warn("update honor board", "user", userID, "err", err)
		}
		return nil
	}

	cadences := sim.Cadences{
		Tick:            cfg.TickInterval,
		Stock:           cfg.StockInterval,
		Save:            cfg.SaveInterval,
		CombatFrameRate: cfg.CombatFrameRate,
		OfflineCap:      cfg.OfflineCap,
	}
	manager := sim.NewManager(catalog, cadences, saveFn, logger)

	// Session loader: pull the latest save (fresh state for new players),
	// archive a checkpoint, and start the runner.
	loader := func(ctx context.Context, playerID int64) error {
		if _, ok := manager.Get(playerID); ok {
			return nil
		}
		snap, _, err := saveStore.Get(ctx, playerID)
		if err != nil {
			return err
		}
		var st *state.GameState
		if snap == nil {
			st = state.New()
		} else {
			st = state.Decode(*snap)
			if err := archiveStore.Archive(ctx, playerID, "session_start", *snap); err != nil {
				logger.Warn("archive checkpoint", "user", playerID, "err", err)
			}
		}
		manager.Start(ctx, playerID, st)
		return nil
	}

	clicks := sim.NewClickLimiter(50 * time.Millisecond)

	// Wire dispatcher and hub (circular dependency resolved via SetBroadcaster)
	dispatcher := server.NewDispatcher(manager, loader, clicks, txStore, metrics, logger)
	hub := server.NewHub(cfg.SessionSecret, dispatcher, metrics, logger)
	manager.SetBroadcaster(func(userID int64, frame sim.StateFrame) {
		payload, err := json.Marshal(frame)
		if err != nil {
			return
		}
		hub.SendTo(userID, server.WSMessage{Type: "state", Payload: payload})
	})

	srv, err := server.NewServer(
		server.ServerConfig{SessionSecret: cfg.SessionSecret},
		db, rdb,
		playerStore, saveStore, txStore, archiveStore, boards,
		manager, hub, metrics, logger,
	)
	if err != nil {
		logger.Error("init server", "err", err)
		os.Exit(1)
	}

	limiter := server.NewRateLimiter(20, 40)
	handler := server.ChainMiddleware(srv.Routes(),
		server.RecoveryMiddleware(logger),
		server.LoggingMiddleware(logger),
		server.RateLimitMiddleware(limiter, logger),
	)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	manager.StopAll(shutCtx)
}
