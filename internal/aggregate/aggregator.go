package aggregate

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"pairExchange/internal/model"
	"pairExchange/internal/storage"
)

const (
	feeMethodJournal  = "exact_from_journal"
	tvlMethodReserves = "post_event_reserves"
	tvlMethodNone     = "unavailable"
)

// MetricsStore receives pool descriptions and window metrics.
type MetricsStore interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// Pool describes the journaled pools; PoolID and FirstSeenSeq are taken from events.
	Pool      model.Pool
	Decimals0 uint8
	Decimals1 uint8
}

// Aggregator folds journaled pool events into fixed-size window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	poolSeen     map[string]model.Pool
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		poolSeen:     make(map[string]model.Pool),
	}
}

// Run aggregates the events of a JSONL journal.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	pools := make([]model.Pool, 0, 4)
	maxTs := startTs
	var total, emitted, skipped, failed int

	flush := func(acc *Accumulator) {
		metrics, pool := a.flushAccumulator(acc)
		if metrics != nil {
			batch = append(batch, *metrics)
			emitted++
		}
		if pool != nil {
			pools = append(pools, *pool)
		}
	}

	err = storage.ReadEvents(inputPath, func(event model.PoolEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		total++
		if event.Timestamp <= startTs {
			skipped++
			return nil
		}

		start := windowStart(event.Timestamp, a.cfg.WindowSeconds)
		acc := a.accumulators[event.PoolID]
		if acc != nil && acc.WindowStart != start {
			flush(acc)
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(event, start, start+a.cfg.WindowSeconds)
			a.accumulators[event.PoolID] = acc
		}
		acc.AddEvent(event)

		if event.Timestamp > maxTs {
			maxTs = event.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flushBatches(ctx, batch, pools); err != nil {
				return err
			}
			batch = batch[:0]
			pools = pools[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(line int, err error) {
		failed++
		a.logger.Warn("decode pool event", zap.Int("line", line), zap.Error(err))
	})
	if err != nil {
		return err
	}

	for _, acc := range a.accumulators {
		flush(acc)
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 || len(pools) > 0 {
		if err := a.flushBatches(ctx, batch, pools); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", emitted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the last timestamp before any still-open window, so a
// resumed run recomputes open windows from their first event.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs--
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushBatches(ctx context.Context, batch []model.PoolWindowMetrics, pools []model.Pool) error {
	if len(pools) > 0 {
		if err := a.store.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
	}
	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	return nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) (*model.PoolWindowMetrics, *model.Pool) {
	if acc == nil {
		return nil, nil
	}
	pool := a.registerPool(acc)

	var tvl0, tvl1 *big.Int
	var tvl0Str, tvl1Str *string
	tvlMethod := tvlMethodNone
	if acc.Reserve0 > 0 && acc.Reserve1 > 0 {
		tvl0 = new(big.Int).SetUint64(acc.Reserve0)
		tvl1 = new(big.Int).SetUint64(acc.Reserve1)
		v0 := formatTokenAmount(tvl0, a.cfg.Decimals0)
		v1 := formatTokenAmount(tvl1, a.cfg.Decimals1)
		tvl0Str, tvl1Str = &v0, &v1
		tvlMethod = tvlMethodReserves
	}

	// Both sides share base-unit scaling with their TVL, so rates are decimal-free.
	rate0 := feeRate(acc.Fee0, tvl0)
	rate1 := feeRate(acc.Fee1, tvl1)

	metrics := &model.PoolWindowMetrics{
		PoolID:         acc.PoolID,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		Volume0:        formatTokenAmount(acc.Volume0, a.cfg.Decimals0),
		Volume1:        formatTokenAmount(acc.Volume1, a.cfg.Decimals1),
		Fee0:           formatTokenAmount(acc.Fee0, a.cfg.Decimals0),
		Fee1:           formatTokenAmount(acc.Fee1, a.cfg.Decimals1),
		FeeRate0:       ratString(rate0),
		FeeRate1:       ratString(rate1),
		TVL0:           tvl0Str,
		TVL1:           tvl1Str,
		APR:            computeAPR(rate0, rate1, a.cfg.WindowSeconds),
		FeeMethod:      feeMethodJournal,
		TVLMethod:      tvlMethod,
	}
	return metrics, pool
}

func (a *Aggregator) registerPool(acc *Accumulator) *model.Pool {
	pool := a.cfg.Pool
	pool.PoolID = acc.PoolID
	pool.FirstSeenSeq = acc.FirstSeq

	if existing, ok := a.poolSeen[acc.PoolID]; ok && existing.FirstSeenSeq <= pool.FirstSeenSeq {
		return nil
	}
	a.poolSeen[acc.PoolID] = pool
	return &pool
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
