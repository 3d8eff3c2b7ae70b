package model

// Pool is the static description of a pair pool for storage.
type Pool struct {
	PoolID         string `json:"pool_id"`
	Asset0         string `json:"asset0"`
	Asset1         string `json:"asset1"`
	ShareAsset     string `json:"share_asset"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
	FirstSeenSeq   uint64 `json:"first_seen_seq"`
}
