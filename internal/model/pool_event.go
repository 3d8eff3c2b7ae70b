package model

// EventKind names a committed pool operation.
type EventKind string

const (
	EventAddLiquidity    EventKind = "add_liquidity"
	EventRemoveLiquidity EventKind = "remove_liquidity"
	EventSwap            EventKind = "swap"
)

// PoolEvent is the journal record of one committed pool operation.
// Amounts are base units; reserves and supply are the post-operation state.
type PoolEvent struct {
	PoolID       string    `json:"pool_id"`
	Sequence     uint64    `json:"sequence"`
	Kind         EventKind `json:"kind"`
	Caller       string    `json:"caller"`
	Recipient    string    `json:"recipient"`
	Amount0In    uint64    `json:"amount0_in"`
	Amount1In    uint64    `json:"amount1_in"`
	Amount0Out   uint64    `json:"amount0_out"`
	Amount1Out   uint64    `json:"amount1_out"`
	SharesMinted uint64    `json:"shares_minted"`
	SharesBurned uint64    `json:"shares_burned"`
	Fee0         uint64    `json:"fee0"`
	Fee1         uint64    `json:"fee1"`
	Reserve0     uint64    `json:"reserve0"`
	Reserve1     uint64    `json:"reserve1"`
	LPSupply     uint64    `json:"lp_supply"`
	Timestamp    uint64    `json:"timestamp"`
	RecordedAt   string    `json:"recorded_at"`
}

// IsSwap reports whether the event is a trade.
func (e PoolEvent) IsSwap() bool {
	return e.Kind == EventSwap
}
