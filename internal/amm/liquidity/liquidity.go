// Package liquidity computes the share deltas for deposits into and
// withdrawals from a constant-product pool.
package liquidity

import (
	"fmt"

	"pairExchange/internal/amm"
	"pairExchange/internal/amm/fixedpoint"
	"pairExchange/internal/amm/ledger"
)

// Deposit is the outcome of adding liquidity.
type Deposit struct {
	Shares uint64
	Update ledger.Update
}

// Withdrawal is the outcome of burning shares.
type Withdrawal struct {
	Amount0 uint64
	Amount1 uint64
	Update  ledger.Update
}

// Mint computes the shares minted for amounts already received by the pool.
//
// The first deposit mints sqrt(amount0*amount1) and fixes the initial price.
// Later deposits mint against the smaller of the two contribution ratios; the
// remainder of the larger side stays in reserves and accrues to existing
// holders.
func Mint(pool amm.PoolInfo, amount0, amount1 uint64) (Deposit, error) {
	var (
		shares uint64
		err    error
	)

	if pool.LPSupply == 0 {
		shares, err = fixedpoint.Sqrt(fixedpoint.Mul(amount0, amount1))
		if err != nil {
			return Deposit{}, err
		}
	} else {
		if pool.Reserve0 == 0 || pool.Reserve1 == 0 {
			return Deposit{}, fmt.Errorf("%w: supply %d with empty reserves", amm.ErrInvariantViolation, pool.LPSupply)
		}
		shares0, err := fixedpoint.MulDivU64(amount0, pool.LPSupply, pool.Reserve0)
		if err != nil {
			return Deposit{}, fmt.Errorf("shares for asset 0: %w", err)
		}
		shares1, err := fixedpoint.MulDivU64(amount1, pool.LPSupply, pool.Reserve1)
		if err != nil {
			return Deposit{}, fmt.Errorf("shares for asset 1: %w", err)
		}
		shares = fixedpoint.Min(shares0, shares1)
	}

	if shares == 0 {
		return Deposit{}, fmt.Errorf("%w: deposit of %d/%d mints no shares", amm.ErrInsufficientLiquidityMinted, amount0, amount1)
	}

	return Deposit{
		Shares: shares,
		Update: ledger.Update{
			Reserve0: ledger.Credit(amount0),
			Reserve1: ledger.Credit(amount1),
			Supply:   ledger.Credit(shares),
		},
	}, nil
}

// Burn computes the reserves released for shares, rounding down.
func Burn(pool amm.PoolInfo, shares uint64) (Withdrawal, error) {
	if shares == 0 {
		return Withdrawal{}, fmt.Errorf("%w: cannot burn zero shares", amm.ErrInsufficientShares)
	}
	if shares > pool.LPSupply {
		return Withdrawal{}, fmt.Errorf("%w: burn %d exceeds supply %d", amm.ErrInsufficientShares, shares, pool.LPSupply)
	}

	amount0, err := fixedpoint.MulDivU64(shares, pool.Reserve0, pool.LPSupply)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("amount for asset 0: %w", err)
	}
	amount1, err := fixedpoint.MulDivU64(shares, pool.Reserve1, pool.LPSupply)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("amount for asset 1: %w", err)
	}
	if amount0 == 0 && amount1 == 0 {
		return Withdrawal{}, fmt.Errorf("%w: burning %d shares releases nothing", amm.ErrInsufficientShares, shares)
	}

	return Withdrawal{
		Amount0: amount0,
		Amount1: amount1,
		Update: ledger.Update{
			Reserve0: ledger.Debit(amount0),
			Reserve1: ledger.Debit(amount1),
			Supply:   ledger.Debit(shares),
		},
	}, nil
}
