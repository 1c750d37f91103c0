package mongodb

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connect establishes a connection to MongoDB with retry capabilities
func Connect(ctx context.Context, uri string, logger *zap.SugaredLogger) (*mongo.Client, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMinPoolSize(5).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	maxRetries := 5
	initialBackoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var client *mongo.Client
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err = mongo.Connect(connCtx, clientOptions)
		cancel()

		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			pingCancel()

			if err == nil {
				logger.Infow("Successfully connected to MongoDB", "attempt", attempt+1)
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}

		backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
		if backoff > float64(maxBackoff) {
			backoff = float64(maxBackoff)
		}
		// ±20% jitter
		jitter := 0.8 + 0.4*float64(time.Now().UnixNano()%1000)/1000.0
		wait := time.Duration(backoff * jitter)

		logger.Warnw("Failed to connect to MongoDB, retrying",
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while connecting to MongoDB: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxRetries, err)
}
