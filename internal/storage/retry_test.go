package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"pairExchange/internal/model"
)

type flakySink struct {
	failures int
	calls    int
}

func (f *flakySink) PutEventBatch(context.Context, []model.PoolEvent) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection reset")
	}
	return nil
}

func TestRetryingRecovers(t *testing.T) {
	sink := &flakySink{failures: 2}
	r := &Retrying{Sink: sink, MaxRetries: 3, Backoff: time.Millisecond}
	if err := r.PutEventBatch(context.Background(), []model.PoolEvent{{Sequence: 1}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if sink.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", sink.calls)
	}
}

func TestRetryingGivesUp(t *testing.T) {
	sink := &flakySink{failures: 10}
	r := &Retrying{Sink: sink, MaxRetries: 2, Backoff: time.Millisecond}
	if err := r.PutEventBatch(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
	if sink.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", sink.calls)
	}
}

func TestRetryingStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Retrying{Sink: &flakySink{failures: 10}, MaxRetries: 5, Backoff: time.Hour}
	if err := r.PutEventBatch(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
