package storage

import (
	"context"
	"fmt"

	"pairExchange/internal/model"
)

// Storage defines a sink for journaled pool events.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.PoolEvent) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) PutEventBatch(context.Context, []model.PoolEvent) error { return nil }

// Multi writes each batch to every sink in order and stops at the first failure.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, events []model.PoolEvent) error {
	for i, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEventBatch(ctx, events); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
