package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipfactory/clipfactory/internal/state"
)

// SaveStore keeps the latest snapshot per player as a JSONB row.
type SaveStore struct {
	db *pgxpool.Pool
}

func NewSaveStore(db *pgxpool.Pool) *SaveStore {
	return &SaveStore{db: db}
}

// Put upserts the player's current snapshot.
func (s *SaveStore) Put(ctx context.Context, playerID int64, snap state.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO saves (player_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (player_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`, playerID, payload)
	return err
}

// Get returns the player's latest snapshot, or (nil, nil) when the player
// has never saved.
func (s *SaveStore) Get(ctx context.Context, playerID int64) (*state.Snapshot, time.Time, error) {
	var payload []byte
	var updatedAt time.Time
	err := s.db.QueryRow(ctx, `
		SELECT payload, updated_at FROM saves WHERE player_id = $1
	`, playerID).Scan(&payload, &updatedAt)
	if err == pgx.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var snap state.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// A corrupt row recovers to a fresh state rather than failing the
		// load; Decode handles the field-level defaults.
		return nil, time.Time{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, updatedAt, nil
}
