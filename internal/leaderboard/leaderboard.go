package leaderboard

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/clipfactory/clipfactory/internal/cache"
)

type Entry struct {
	PlayerID int64
	Score    float64
	Rank     int64
}

type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

// UpdateClips sets a player's lifetime paperclip score.
func (s *Service) UpdateClips(ctx context.Context, playerID int64, lifetimeClips float64) error {
	return s.update(ctx, cache.KeyClipBoard, playerID, lifetimeClips)
}

// UpdatePrestige sets a player's cumulative prestige point score.
func (s *Service) UpdatePrestige(ctx context.Context, playerID int64, points int64) error {
	return s.update(ctx, cache.KeyPrestigeBoard, playerID, float64(points))
}

// UpdateHonor sets a player's combat honor score.
func (s *Service) UpdateHonor(ctx context.Context, playerID int64, honor int64) error {
	return s.update(ctx, cache.KeyHonorBoard, playerID, float64(honor))
}

func (s *Service) update(ctx context.Context, key string, playerID int64, score float64) error {
	return s.rdb.ZAdd(ctx, key, redis.Z{
		Score:  score,
		Member: strconv.FormatInt(playerID, 10),
	}).Err()
}

// TopClips returns the top N players by lifetime paperclips.
func (s *Service) TopClips(ctx context.Context, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, cache.KeyClipBoard, count)
}

// TopPrestige returns the top N players by prestige points.
func (s *Service) TopPrestige(ctx context.Context, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, cache.KeyPrestigeBoard, count)
}

// TopHonor returns the top N players by honor.
func (s *Service) TopHonor(ctx context.Context, count int64) ([]Entry, error) {
	return s.topFromSortedSet(ctx, cache.KeyHonorBoard, count)
}

// PlayerRank returns a player's rank and score on the lifetime clip board.
func (s *Service) PlayerRank(ctx context.Context, playerID int64) (*Entry, error) {
	member := strconv.FormatInt(playerID, 10)

	rank, err := s.rdb.ZRevRank(ctx, cache.KeyClipBoard, member).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := s.rdb.ZScore(ctx, cache.KeyClipBoard, member).Result()
	if err != nil {
		return nil, err
	}

	return &Entry{PlayerID: playerID, Score: score, Rank: rank + 1}, nil
}

func (s *Service) topFromSortedSet(ctx context.Context, key string, count int64) ([]Entry, error) {
	results, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, count-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		id, _ := strconv.ParseInt(member, 10, 64)
		entries = append(entries, Entry{
			PlayerID: id,
			Score:    z.Score,
			Rank:     int64(i + 1),
		})
	}
	return entries, nil
}
