package aggregate

import (
	"math/big"

	"pairExchange/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID      string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int
	Reserve0    uint64
	Reserve1    uint64
	FirstSeq    uint64
	LastSeq     uint64
	LastTS      uint64
}

func NewAccumulator(event model.PoolEvent, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:      event.PoolID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		Reserve0:    event.Reserve0,
		Reserve1:    event.Reserve1,
		FirstSeq:    event.Sequence,
		LastSeq:     event.Sequence,
		LastTS:      event.Timestamp,
	}
}

// AddEvent folds one journaled event into the window. Every event moves the
// closing reserves; only swaps add volume and fees.
func (a *Accumulator) AddEvent(event model.PoolEvent) {
	if event.Sequence >= a.LastSeq {
		a.LastSeq = event.Sequence
		a.LastTS = event.Timestamp
		a.Reserve0 = event.Reserve0
		a.Reserve1 = event.Reserve1
	}
	if a.FirstSeq == 0 || event.Sequence < a.FirstSeq {
		a.FirstSeq = event.Sequence
	}
	if !event.IsSwap() {
		return
	}

	addUint(a.Volume0, event.Amount0In)
	addUint(a.Volume0, event.Amount0Out)
	addUint(a.Volume1, event.Amount1In)
	addUint(a.Volume1, event.Amount1Out)
	addUint(a.Fee0, event.Fee0)
	addUint(a.Fee1, event.Fee1)
	a.SwapCount++
}

func addUint(target *big.Int, value uint64) {
	if target == nil || value == 0 {
		return
	}
	target.Add(target, new(big.Int).SetUint64(value))
}
