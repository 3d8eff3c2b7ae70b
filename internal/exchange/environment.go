package exchange

import (
	"context"

	"pairExchange/internal/amm"
)

// Custody is the asset ledger that holds the pool's funds.
type Custody interface {
	// Balance returns the pool's current holding of asset.
	Balance(ctx context.Context, asset amm.AssetID) (uint64, error)
	// Transfer pays every payout out of the pool or none of them.
	Transfer(ctx context.Context, payouts ...amm.Payout) error
}

// ShareRegistry tracks per-identity liquidity share balances.
type ShareRegistry interface {
	MintShares(ctx context.Context, to amm.Identity, n uint64) error
	BurnShares(ctx context.Context, from amm.Identity, n uint64) error
	// RestoreShares returns burned shares to id when the burning operation
	// fails. It must succeed whenever the burn did.
	RestoreShares(ctx context.Context, id amm.Identity, n uint64) error
}

// Environment is everything the controller needs from its host.
type Environment interface {
	Custody
	ShareRegistry
	Caller(ctx context.Context) amm.Identity
}
