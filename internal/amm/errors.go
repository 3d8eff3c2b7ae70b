package amm

import "errors"

var (
	// ErrArithmeticOverflow reports an intermediate or result that does not fit its width.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrInvariantViolation reports a ledger update that would break the pool invariants.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInsufficientLiquidityMinted is returned when a deposit would mint zero shares.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrInsufficientShares is returned for a zero burn or a burn above the outstanding supply.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrInsufficientLiquidity is returned when a swap cannot be served by the reserves.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrSlippageExceeded is returned when the swap output is below the caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrTransferFailed is returned when custody could not move funds.
	ErrTransferFailed = errors.New("transfer failed")
)
