package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/models"
)

// ErrQueueEmpty is returned by DequeueMessage when nothing is waiting
var ErrQueueEmpty = errors.New("queue is empty")

// MessageType defines the type of message in the queue
type MessageType string

const (
	// StatsFact carries one statistics fact
	StatsFact MessageType = "stats_fact"
	// GameFinished marks the end of a session
	GameFinished MessageType = "game_finished"
)

// QueueMessage represents a message in the queue
type QueueMessage struct {
	Type      MessageType            `json:"type"`
	GameID    string                 `json:"gameId"`
	PlayerID  string                 `json:"playerId,omitempty"`
	Fact      *models.Fact           `json:"fact,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Attempts  int                    `json:"attempts"`
}

// ListClient is the subset of *redis.Client the queue uses
type ListClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
}

// QueueName returns the list key of a game's queue
func QueueName(gameID string) string {
	return fmt.Sprintf("game:%s:queue", gameID)
}

// DeadLetterName returns the dead letter list for queueName
func DeadLetterName(queueName string) string {
	return fmt.Sprintf("%s:dead", queueName)
}

// RedisQueue implements a Redis-based message queue. It also serves as the
// engine's statistics sink: every recorded fact is pushed onto the game queue.
type RedisQueue struct {
	client  ListClient
	logger  *zap.Logger
	timeout time.Duration
}

// NewRedisQueue creates a queue on an established client
func NewRedisQueue(client ListClient, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client:  client,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// Record enqueues a fact. Failures are logged; the engine never sees them.
func (q *RedisQueue) Record(f models.Fact) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.EnqueueFact(ctx, f); err != nil {
		q.logger.Error("Failed to record fact",
			zap.String("type", string(f.Type)),
			zap.String("gameId", f.GameID),
			zap.Error(err))
	}
}

// EnqueueFact adds a statistics fact to its game's queue
func (q *RedisQueue) EnqueueFact(ctx context.Context, f models.Fact) error {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	return q.enqueueMessage(ctx, QueueName(f.GameID), QueueMessage{
		Type:      StatsFact,
		GameID:    f.GameID,
		PlayerID:  f.PlayerID,
		Fact:      &f,
		Timestamp: f.Timestamp,
	})
}

// EnqueueGameFinished announces the end of a session
func (q *RedisQueue) EnqueueGameFinished(ctx context.Context, gameID, winnerID string, rounds int) error {
	return q.enqueueMessage(ctx, QueueName(gameID), QueueMessage{
		Type:     GameFinished,
		GameID:   gameID,
		PlayerID: winnerID,
		Data: map[string]interface{}{
			"rounds": rounds,
		},
		Timestamp: time.Now(),
	})
}

func (q *RedisQueue) enqueueMessage(ctx context.Context, queueName string, msg QueueMessage) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.client.RPush(ctx, queueName, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to push message to queue: %w", err)
	}

	q.logger.Debug("Message enqueued",
		zap.String("queue", queueName),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID),
		zap.String("playerId", msg.PlayerID))

	return nil
}

// DequeueMessage retrieves and removes the oldest message of a queue
func (q *RedisQueue) DequeueMessage(ctx context.Context, queueName string) (*QueueMessage, error) {
	result, err := q.client.LPop(ctx, queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to pop message from queue: %w", err)
	}

	var msg QueueMessage
	if err := json.Unmarshal([]byte(result), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// PeekMessage returns the oldest message without removing it, or nil
func (q *RedisQueue) PeekMessage(ctx context.Context, queueName string) (*QueueMessage, error) {
	result, err := q.client.LRange(ctx, queueName, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to peek message from queue: %w", err)
	}
	if len(result) == 0 {
		return nil, nil
	}

	var msg QueueMessage
	if err := json.Unmarshal([]byte(result[0]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// MoveToDeadLetterQueue moves a failed message to the queue's dead letter list
func (q *RedisQueue) MoveToDeadLetterQueue(ctx context.Context, queueName string, msg *QueueMessage) error {
	msg.Attempts++
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	dead := DeadLetterName(queueName)
	if err := q.client.RPush(ctx, dead, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to push message to dead letter queue: %w", err)
	}

	q.logger.Warn("Message moved to dead letter queue",
		zap.String("queue", queueName),
		zap.String("deadLetterQueue", dead),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID),
		zap.Int("attempts", msg.Attempts))

	return nil
}

// RetryMessage puts a message back at the tail of its queue
func (q *RedisQueue) RetryMessage(ctx context.Context, queueName string, msg *QueueMessage) error {
	msg.Attempts++
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.client.RPush(ctx, queueName, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to push message to queue for retry: %w", err)
	}

	q.logger.Info("Message requeued for retry",
		zap.String("queue", queueName),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID),
		zap.Int("attempts", msg.Attempts))

	return nil
}

// GetQueueLength returns the number of messages waiting in a queue
func (q *RedisQueue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// ClearQueue removes all messages from a queue
func (q *RedisQueue) ClearQueue(ctx context.Context, queueName string) error {
	return q.client.Del(ctx, queueName).Err()
}

// ListQueues returns the keys of all game queues
func (q *RedisQueue) ListQueues(ctx context.Context) ([]string, error) {
	keys, err := q.client.Keys(ctx, "game:*:queue").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue keys: %w", err)
	}
	return keys, nil
}

// ClearDeadLetterQueues removes every dead letter list
func (q *RedisQueue) ClearDeadLetterQueues(ctx context.Context) (int64, error) {
	keys, err := q.client.Keys(ctx, "game:*:queue:dead").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get dead letter queue keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	count, err := q.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete dead letter queues: %w", err)
	}

	q.logger.Info("Cleared dead letter queues", zap.Int64("count", count))
	return count, nil
}
