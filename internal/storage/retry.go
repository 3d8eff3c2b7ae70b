package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pairExchange/internal/model"
)

// Retrying retries a failed batch with exponential backoff.
type Retrying struct {
	Sink       Storage
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.Logger
}

func (r *Retrying) PutEventBatch(ctx context.Context, events []model.PoolEvent) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return withRetry(ctx, r.MaxRetries, r.Backoff, func(ctx context.Context, attempt int) error {
		err := r.Sink.PutEventBatch(ctx, events)
		if err != nil {
			logger.Warn("put event batch", zap.Int("attempt", attempt), zap.Int("events", len(events)), zap.Error(err))
		}
		return err
	})
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
