package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/models"
)

// MessageHandler processes one message
type MessageHandler func(ctx context.Context, msg *QueueMessage) error

// FactApplier folds facts into aggregates
type FactApplier interface {
	Apply(ctx context.Context, f models.Fact) error
}

// SessionTracker tells the worker which games still exist
type SessionTracker interface {
	HasSession(gameID string) bool
}

// Worker drains game queues into the statistics store
type Worker struct {
	queue        *RedisQueue
	sessions     SessionTracker
	handlers     map[MessageType]MessageHandler
	logger       *zap.Logger
	maxAttempts  int
	pollInterval time.Duration
	retryDelay   func(attempts int) time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a worker that applies facts with stats. sessions may be
// nil, in which case stale queue cleanup is skipped.
func NewWorker(queue *RedisQueue, stats FactApplier, sessions SessionTracker, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		queue:        queue,
		sessions:     sessions,
		handlers:     make(map[MessageType]MessageHandler),
		logger:       logger,
		maxAttempts:  3,
		pollInterval: time.Second,
		retryDelay: func(attempts int) time.Duration {
			return time.Duration(attempts+1) * time.Second
		},
	}
	w.registerDefaultHandlers(stats)
	return w
}

func (w *Worker) registerDefaultHandlers(stats FactApplier) {
	w.RegisterHandler(StatsFact, func(ctx context.Context, msg *QueueMessage) error {
		if msg.Fact == nil {
			return errors.New("stats message without fact")
		}
		return stats.Apply(ctx, *msg.Fact)
	})

	w.RegisterHandler(GameFinished, func(ctx context.Context, msg *QueueMessage) error {
		w.logger.Info("Game finished",
			zap.String("gameId", msg.GameID),
			zap.String("winnerId", msg.PlayerID),
			zap.Any("data", msg.Data))
		return nil
	})
}

// RegisterHandler registers a handler for a specific message type
func (w *Worker) RegisterHandler(msgType MessageType, handler MessageHandler) {
	w.handlers[msgType] = handler
}

// SetMaxAttempts sets the number of attempts before a message is dead-lettered
func (w *Worker) SetMaxAttempts(maxAttempts int) {
	w.maxAttempts = maxAttempts
}

// SetRetryDelay overrides the pause before a failed message is requeued
func (w *Worker) SetRetryDelay(fn func(attempts int) time.Duration) {
	w.retryDelay = fn
}

// Start begins processing messages in the background
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
}

// Stop stops the worker and waits for the loop to exit
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context) {
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()
	cleanup := time.NewTicker(30 * time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker shutting down")
			return
		case <-cleanup.C:
			w.CleanupStaleQueues(ctx)
		case <-poll.C:
			queues, err := w.queue.ListQueues(ctx)
			if err != nil {
				w.logger.Error("Failed to list queues", zap.Error(err))
				continue
			}
			for _, name := range queues {
				if _, err := w.ProcessQueue(ctx, name); err != nil && ctx.Err() == nil {
					w.logger.Error("Failed to process queue", zap.String("queue", name), zap.Error(err))
				}
			}
		}
	}
}

// ProcessQueue handles the messages waiting in queueName when called. Failed
// messages are requeued until maxAttempts, then dead-lettered. It returns the
// number of messages handled successfully.
func (w *Worker) ProcessQueue(ctx context.Context, queueName string) (int, error) {
	length, err := w.queue.GetQueueLength(ctx, queueName)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}

	handled := 0
	for i := int64(0); i < length; i++ {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}

		msg, err := w.queue.DequeueMessage(ctx, queueName)
		if errors.Is(err, ErrQueueEmpty) {
			break
		}
		if err != nil {
			return handled, err
		}

		if err := w.processMessage(ctx, msg); err != nil {
			w.logger.Error("Failed to process message",
				zap.String("queue", queueName),
				zap.String("type", string(msg.Type)),
				zap.String("gameId", msg.GameID),
				zap.Int("attempts", msg.Attempts),
				zap.Error(err))
			w.fail(ctx, queueName, msg)
			continue
		}
		handled++
	}
	return handled, nil
}

func (w *Worker) fail(ctx context.Context, queueName string, msg *QueueMessage) {
	if _, ok := w.handlers[msg.Type]; ok && msg.Attempts+1 < w.maxAttempts {
		if d := w.retryDelay(msg.Attempts); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
		}
		if err := w.queue.RetryMessage(ctx, queueName, msg); err != nil {
			w.logger.Error("Failed to requeue message", zap.String("queue", queueName), zap.Error(err))
		}
		return
	}

	if err := w.queue.MoveToDeadLetterQueue(ctx, queueName, msg); err != nil {
		w.logger.Error("Failed to move message to dead letter queue", zap.String("queue", queueName), zap.Error(err))
	}
}

func (w *Worker) processMessage(ctx context.Context, msg *QueueMessage) error {
	handler, ok := w.handlers[msg.Type]
	if !ok {
		return fmt.Errorf("no handler registered for message type %q", msg.Type)
	}
	return handler(ctx, msg)
}

// CleanupStaleQueues dead-letters the messages of games the tracker no longer knows
func (w *Worker) CleanupStaleQueues(ctx context.Context) int {
	if w.sessions == nil {
		return 0
	}
	keys, err := w.queue.ListQueues(ctx)
	if err != nil {
		w.logger.Error("Failed to get queue keys for cleanup", zap.Error(err))
		return 0
	}

	stale := 0
	for _, name := range keys {
		parts := strings.Split(name, ":")
		if len(parts) != 3 {
			continue
		}
		if w.sessions.HasSession(parts[1]) {
			continue
		}
		stale++
		for {
			msg, err := w.queue.DequeueMessage(ctx, name)
			if err != nil {
				break
			}
			if err := w.queue.MoveToDeadLetterQueue(ctx, name, msg); err != nil {
				w.logger.Error("Failed to move message to dead letter queue", zap.String("queue", name), zap.Error(err))
				break
			}
		}
	}

	if stale > 0 {
		w.logger.Info("Stale queue cleanup complete",
			zap.Int("totalQueues", len(keys)),
			zap.Int("staleQueues", stale))
	}
	return stale
}
