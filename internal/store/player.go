package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Player struct {
	ID                 int64
	Username           string
	LifetimePaperclips float64
	PrestigeLevel      int64
	PrestigePoints     int64
	Honor              int64
	CreatedAt          time.Time
}

type PlayerStore struct {
	db *pgxpool.Pool
}

func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) Upsert(ctx context.Context, id int64, username string) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO players (id, username) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, lifetime_paperclips, prestige_level, prestige_points, honor, created_at
	`, id, username).Scan(
		&p.ID, &p.Username, &p.LifetimePaperclips, &p.PrestigeLevel, &p.PrestigePoints, &p.Honor, &p.CreatedAt,
	)
	return p, err
}

func (s *PlayerStore) Get(ctx context.Context, id int64) (*Player, error) {
	p := &Player{}
	err := s.db.QueryRow(ctx, `
		SELECT id, username, lifetime_paperclips, prestige_level, prestige_points, honor, created_at
		FROM players WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Username, &p.LifetimePaperclips, &p.PrestigeLevel, &p.PrestigePoints, &p.Honor, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// UpdateProgress mirrors the headline stats from a saved snapshot so
// account-level queries don't have to unpack save payloads.
func (s *PlayerStore) UpdateProgress(ctx context.Context, id int64, lifetimeClips float64, prestigeLevel, prestigePoints, honor int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE players
		SET lifetime_paperclips = GREATEST(lifetime_paperclips, $2),
		    prestige_level = GREATEST(prestige_level, $3),
		    prestige_points = GREATEST(prestige_points, $4),
		    honor = GREATEST(honor, $5)
		WHERE id = $1
	`, id, lifetimeClips, prestigeLevel, prestigePoints, honor)
	return err
}
