package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"

	"github.com/clipfactory/clipfactory/internal/state"
)

// ArchiveStore keeps a zstd-compressed history of snapshots, one row per
// archive event (prestige resets, periodic checkpoints). The latest-save
// row in SaveStore stays uncompressed for cheap loads; history is
// write-mostly and compresses ~10x.
type ArchiveStore struct {
	db  *pgxpool.Pool
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewArchiveStore(db *pgxpool.Pool) (*ArchiveStore, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &ArchiveStore{db: db, enc: enc, dec: dec}, nil
}

// Archive compresses and stores a snapshot with a reason tag.
func (s *ArchiveStore) Archive(ctx context.Context, playerID int64, reason string, snap state.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	compressed := s.enc.EncodeAll(payload, nil)
	_, err = s.db.Exec(ctx, `
		INSERT INTO save_archive (player_id, reason, payload) VALUES ($1, $2, $3)
	`, playerID, reason, compressed)
	return err
}

// ArchivedAt fetches one of a player's archived snapshots by row id. The
// player filter keeps archives private to their owner.
func (s *ArchiveStore) ArchivedAt(ctx context.Context, playerID, id int64) (*state.Snapshot, time.Time, error) {
	var compressed []byte
	var createdAt time.Time
	err := s.db.QueryRow(ctx, `
		SELECT payload, created_at FROM save_archive WHERE id = $1 AND player_id = $2
	`, id, playerID).Scan(&compressed, &createdAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	payload, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decompress archive: %w", err)
	}
	var snap state.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal archive: %w", err)
	}
	return &snap, createdAt, nil
}
