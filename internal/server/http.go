package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/clipfactory/clipfactory/internal/auth"
	"github.com/clipfactory/clipfactory/internal/leaderboard"
	"github.com/clipfactory/clipfactory/internal/sim"
	"github.com/clipfactory/clipfactory/internal/state"
	"github.com/clipfactory/clipfactory/internal/store"
)

//go:embed snapshot_schema.json
var snapshotSchemaJSON string

const sessionTTL = 7 * 24 * time.Hour

// Server wires the HTTP surface: auth, saves, leaderboards, and the
// WebSocket endpoint.
type Server struct {
	cfg      ServerConfig
	db       *pgxpool.Pool
	rdb      *redis.Client
	players  *store.PlayerStore
	saves    *store.SaveStore
	txs      *store.TransactionStore
	archives *store.ArchiveStore
	boards   *leaderboard.Service
	manager  *sim.Manager
	hub      *Hub
	metrics  *Metrics
	schema   *jsonschema.Schema
	logger   *slog.Logger
}

type ServerConfig struct {
	SessionSecret string
}

func NewServer(
	cfg ServerConfig,
	db *pgxpool.Pool,
	rdb *redis.Client,
	players *store.PlayerStore,
	saves *store.SaveStore,
	txs *store.TransactionStore,
	archives *store.ArchiveStore,
	boards *leaderboard.Service,
	manager *sim.Manager,
	hub *Hub,
	metrics *Metrics,
	logger *slog.Logger,
) (*Server, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot_schema.json", strings.NewReader(snapshotSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add snapshot schema: %w", err)
	}
	schema, err := compiler.Compile("snapshot_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}

	return &Server{
		cfg:      cfg,
		db:       db,
		rdb:      rdb,
		players:  players,
		saves:    saves,
		txs:      txs,
		archives: archives,
		boards:   boards,
		manager:  manager,
		hub:      hub,
		metrics:  metrics,
		schema:   schema,
		logger:   logger,
	}, nil
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics)
	mux.Handle("GET /ws", s.hub)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/save", s.requirePlayer(s.handleGetSave))
	mux.HandleFunc("POST /api/save", s.requirePlayer(s.handleImportSave))
	mux.HandleFunc("GET /api/player", s.requirePlayer(s.handlePlayer))
	mux.HandleFunc("GET /api/transactions", s.requirePlayer(s.handleTransactions))
	mux.HandleFunc("GET /api/archive/{id}", s.requirePlayer(s.handleArchive))
	mux.HandleFunc("GET /api/leaderboard/{board}", s.handleLeaderboard)
	mux.HandleFunc("GET /api/rank", s.requirePlayer(s.handleRank))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		status["status"] = "degraded"
		status["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	PlayerID int64  `json:"player_id"`
	Token    string `json:"token"`
}

// handleLogin upserts a player keyed by username and mints a session
// token. The id is a stable hash of the username; no password flow here,
// the deployment fronts this with its own identity layer.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Username) > 64 {
		writeError(w, http.StatusBadRequest, "username must be 1-64 characters")
		return
	}

	playerID := playerIDFor(req.Username)
	if _, err := s.players.Upsert(r.Context(), playerID, req.Username); err != nil {
		s.logger.Error("upsert player", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token := auth.Mint(s.cfg.SessionSecret, playerID, sessionTTL)
	writeJSON(w, http.StatusOK, loginResponse{PlayerID: playerID, Token: token})
}

func playerIDFor(username string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(username)))
	// Keep ids positive; Postgres bigint and the token format both assume it.
	return int64(h.Sum64() &^ (1 << 63))
}

func (s *Server) handleGetSave(w http.ResponseWriter, r *http.Request, playerID int64) {
	// A live session is the freshest source; fall back to the store.
	if session, ok := s.manager.Get(playerID); ok {
		writeJSON(w, http.StatusOK, session.Engine.Snapshot())
		return
	}

	snap, updatedAt, err := s.saves.Get(r.Context(), playerID)
	if err != nil {
		s.logger.Error("load save", "player", playerID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, state.Encode(state.New()))
		return
	}
	w.Header().Set("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	writeJSON(w, http.StatusOK, snap)
}

// handleImportSave accepts a client-exported snapshot, validates it
// against the schema, and stores the leniently-decoded canonical form.
// Rejected while a session is live: the server copy is authoritative.
func (s *Server) handleImportSave(w http.ResponseWriter, r *http.Request, playerID int64) {
	if _, ok := s.manager.Get(playerID); ok {
		writeError(w, http.StatusConflict, "session active; server state is authoritative")
		return
	}

	body := http.MaxBytesReader(w, r.Body, 1<<20)
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.schema.Validate(doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("snapshot rejected: %v", err))
		return
	}

	var snap state.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	// Round-trip through Decode so out-of-range values recover to defaults
	// before the row is written.
	canonical := state.Encode(state.Decode(snap))

	if err := s.saves.Put(r.Context(), playerID, canonical); err != nil {
		s.logger.Error("store imported save", "player", playerID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.metrics.IncrSave()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request, playerID int64) {
	p, err := s.players.Get(r.Context(), playerID)
	if err != nil {
		s.logger.Error("get player", "player", playerID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                  p.ID,
		"username":            p.Username,
		"lifetime_paperclips": p.LifetimePaperclips,
		"prestige_level":      p.PrestigeLevel,
		"prestige_points":     p.PrestigePoints,
		"honor":               p.Honor,
		"created_at":          p.CreatedAt,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, playerID int64) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	history, err := s.txs.PlayerHistory(r.Context(), playerID, limit)
	if err != nil {
		s.logger.Error("transaction history", "player", playerID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// handleArchive returns one of the player's archived snapshots. Rows are
// written at session start; this backs manual save recovery.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request, playerID int64) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid archive id")
		return
	}

	snap, createdAt, err := s.archives.ArchivedAt(r.Context(), playerID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	if err != nil {
		s.logger.Error("load archive", "player", playerID, "archive", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Last-Modified", createdAt.UTC().Format(http.TimeFormat))
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	count := int64(10)
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			count = n
		}
	}

	var entries []leaderboard.Entry
	var err error
	switch board := r.PathValue("board"); board {
	case "clips":
		entries, err = s.boards.TopClips(r.Context(), count)
	case "prestige":
		entries, err = s.boards.TopPrestige(r.Context(), count)
	case "honor":
		entries, err = s.boards.TopHonor(r.Context(), count)
	default:
		writeError(w, http.StatusNotFound, "unknown board")
		return
	}
	if err != nil {
		s.logger.Error("leaderboard query", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request, playerID int64) {
	entry, err := s.boards.PlayerRank(r.Context(), playerID)
	if err != nil {
		s.logger.Error("player rank", "player", playerID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "unranked")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// requirePlayer extracts and verifies the bearer token, passing the
// player id to the wrapped handler.
func (s *Server) requirePlayer(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		playerID, err := auth.Verify(s.cfg.SessionSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, playerID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
