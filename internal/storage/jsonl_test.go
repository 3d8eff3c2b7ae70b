package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"pairExchange/internal/model"
)

func TestJsonlStorageAppendsAndReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	first := []model.PoolEvent{{Sequence: 1, Kind: model.EventAddLiquidity, SharesMinted: 7_071_067_811}}
	second := []model.PoolEvent{{Sequence: 2, Kind: model.EventSwap, Amount0In: 1_000_000_000, Amount1Out: 1_662_497_915}}
	if err := sink.PutEventBatch(ctx, first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := sink.PutEventBatch(ctx, nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}
	if err := sink.PutEventBatch(ctx, second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	var got []model.PoolEvent
	err := ReadEvents(path, func(e model.PoolEvent) error {
		got = append(got, e)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := append(append([]model.PoolEvent{}, first...), second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events mismatch: %+v != %+v", got, want)
	}
}

func TestReadEventsSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	data := "{\"sequence\":1,\"kind\":\"swap\"}\nnot json\n\n{\"sequence\":2,\"kind\":\"swap\"}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var seqs []uint64
	var badLines []int
	err := ReadEvents(path, func(e model.PoolEvent) error {
		seqs = append(seqs, e.Sequence)
		return nil
	}, func(line int, err error) {
		badLines = append(badLines, line)
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(seqs, []uint64{1, 2}) {
		t.Fatalf("sequences mismatch: %v", seqs)
	}
	if !reflect.DeepEqual(badLines, []int{2}) {
		t.Fatalf("bad lines mismatch: %v", badLines)
	}
}

type failingSink struct{ err error }

func (f failingSink) PutEventBatch(context.Context, []model.PoolEvent) error { return f.err }

func TestMultiStopsAtFirstFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	boom := errors.New("boom")
	multi := Multi{NewJsonlStorage(path), failingSink{err: boom}, nil}

	err := multi.PutEventBatch(context.Background(), []model.PoolEvent{{Sequence: 1}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("first sink should have written: %v", err)
	}
}
