package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/models"
)

// HashClient is the subset of *redis.Client the stats store uses
type HashClient interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// GameStats is the aggregated view of a session's facts
type GameStats struct {
	GameID  string                      `json:"gameId"`
	Totals  map[string]int64            `json:"totals"`
	Players map[string]map[string]int64 `json:"players"`
}

// StatsStore aggregates facts into Redis hashes. Per game it keeps a count per
// fact type and, per player, a count and an amount sum per fact type.
type StatsStore struct {
	client  HashClient
	breaker *CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewStatsStore creates a stats store on client
func NewStatsStore(client HashClient, logger *zap.SugaredLogger) *StatsStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StatsStore{
		client:  client,
		breaker: NewCircuitBreaker(5, 10*time.Second),
		logger:  logger,
	}
}

func gameKey(gameID string) string {
	return fmt.Sprintf("game:%s:stats", gameID)
}

func playersKey(gameID string) string {
	return fmt.Sprintf("game:%s:stats:players", gameID)
}

func playerKey(gameID, playerID string) string {
	return fmt.Sprintf("game:%s:stats:player:%s", gameID, playerID)
}

// Apply folds one fact into the aggregates
func (s *StatsStore) Apply(ctx context.Context, f models.Fact) error {
	if f.GameID == "" {
		return fmt.Errorf("fact %s has no game id", f.Type)
	}
	// A retracted fact takes back what the original added
	count, amount := int64(1), int64(f.Amount)
	if f.Retracted {
		count, amount = -1, -amount
	}
	err := s.breaker.Execute(func() error {
		if err := s.client.HIncrBy(ctx, gameKey(f.GameID), string(f.Type), count).Err(); err != nil {
			return err
		}
		if f.PlayerID == "" {
			return nil
		}
		if err := s.client.SAdd(ctx, playersKey(f.GameID), f.PlayerID).Err(); err != nil {
			return err
		}
		key := playerKey(f.GameID, f.PlayerID)
		if err := s.client.HIncrBy(ctx, key, "count:"+string(f.Type), count).Err(); err != nil {
			return err
		}
		if amount != 0 {
			return s.client.HIncrBy(ctx, key, "amount:"+string(f.Type), amount).Err()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply %s fact: %w", f.Type, err)
	}
	return nil
}

// GameStats reads the aggregates of one game
func (s *StatsStore) GameStats(ctx context.Context, gameID string) (*GameStats, error) {
	stats := &GameStats{
		GameID:  gameID,
		Totals:  map[string]int64{},
		Players: map[string]map[string]int64{},
	}
	err := s.breaker.Execute(func() error {
		totals, err := s.client.HGetAll(ctx, gameKey(gameID)).Result()
		if err != nil {
			return err
		}
		stats.Totals = parseCounters(totals, s.logger)

		ids, err := s.client.SMembers(ctx, playersKey(gameID)).Result()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fields, err := s.client.HGetAll(ctx, playerKey(gameID, id)).Result()
			if err != nil {
				return err
			}
			stats.Players[id] = parseCounters(fields, s.logger)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stats for game %s: %w", gameID, err)
	}
	return stats, nil
}

// Clear removes every aggregate of a game
func (s *StatsStore) Clear(ctx context.Context, gameID string) error {
	return s.breaker.Execute(func() error {
		ids, err := s.client.SMembers(ctx, playersKey(gameID)).Result()
		if err != nil {
			return err
		}
		keys := []string{gameKey(gameID), playersKey(gameID)}
		for _, id := range ids {
			keys = append(keys, playerKey(gameID, id))
		}
		return s.client.Del(ctx, keys...).Err()
	})
}

func parseCounters(fields map[string]string, logger *zap.SugaredLogger) map[string]int64 {
	out := make(map[string]int64, len(fields))
	for k, v := range fields {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			logger.Warnw("Skipping non-numeric stats field", "field", k, "value", v)
			continue
		}
		out[k] = n
	}
	return out
}
