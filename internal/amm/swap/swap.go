// Package swap prices trades against a constant-product pool with a fixed fee.
package swap

import (
	"fmt"

	"github.com/holiman/uint256"

	"pairExchange/internal/amm"
	"pairExchange/internal/amm/fixedpoint"
	"pairExchange/internal/amm/ledger"
)

// Request describes a trade of an amount already received by the pool.
type Request struct {
	AssetInIs0   bool
	AmountIn     uint64
	MinAmountOut uint64
}

// Quote is the priced outcome of a trade.
type Quote struct {
	AmountIn         uint64
	AmountInAfterFee uint64
	Fee              uint64
	AmountOut        uint64
}

// Result is a quote together with the ledger update that settles it.
type Result struct {
	Quote
	Update ledger.Update
}

// Engine prices swaps for one fee rate.
type Engine struct {
	fee amm.Fee
}

// NewEngine validates fee and returns an engine bound to it.
func NewEngine(fee amm.Fee) (*Engine, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	return &Engine{fee: fee}, nil
}

// Fee returns the engine's fee.
func (e *Engine) Fee() amm.Fee {
	return e.fee
}

// Quote prices amountIn against the given reserves:
//
//	afterFee  = amountIn * num / den
//	amountOut = reserveOut * afterFee / (reserveIn + afterFee)
//
// both rounded down.
func (e *Engine) Quote(reserveIn, reserveOut, amountIn uint64) (Quote, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return Quote{}, fmt.Errorf("%w: pool has no reserves", amm.ErrInsufficientLiquidity)
	}
	if amountIn == 0 {
		return Quote{}, fmt.Errorf("%w: zero input amount", amm.ErrInsufficientLiquidity)
	}

	afterFee, err := fixedpoint.MulDivU64(amountIn, e.fee.Numerator, e.fee.Denominator)
	if err != nil {
		return Quote{}, fmt.Errorf("apply fee: %w", err)
	}

	denom := new(uint256.Int).AddUint64(uint256.NewInt(reserveIn), afterFee)
	out, err := fixedpoint.MulDiv(uint256.NewInt(reserveOut), uint256.NewInt(afterFee), denom)
	if err != nil {
		return Quote{}, fmt.Errorf("amount out: %w", err)
	}
	amountOut, err := fixedpoint.ToUint64(out)
	if err != nil {
		return Quote{}, fmt.Errorf("amount out: %w", err)
	}

	if amountOut == 0 {
		return Quote{}, fmt.Errorf("%w: input %d yields no output", amm.ErrInsufficientLiquidity, amountIn)
	}
	if amountOut >= reserveOut {
		return Quote{}, fmt.Errorf("%w: output %d would drain reserve %d", amm.ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	return Quote{
		AmountIn:         amountIn,
		AmountInAfterFee: afterFee,
		Fee:              amountIn - afterFee,
		AmountOut:        amountOut,
	}, nil
}

// QuoteIn returns the smallest input for which Quote yields at least amountOut.
func (e *Engine) QuoteIn(reserveIn, reserveOut, amountOut uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fmt.Errorf("%w: pool has no reserves", amm.ErrInsufficientLiquidity)
	}
	if amountOut == 0 {
		return 0, fmt.Errorf("%w: zero output amount", amm.ErrInsufficientLiquidity)
	}
	if amountOut >= reserveOut {
		return 0, fmt.Errorf("%w: output %d would drain reserve %d", amm.ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	// afterFee >= ceil(amountOut * reserveIn / (reserveOut - amountOut))
	afterFee, err := fixedpoint.MulDivRoundingUp(
		uint256.NewInt(amountOut),
		uint256.NewInt(reserveIn),
		uint256.NewInt(reserveOut-amountOut),
	)
	if err != nil {
		return 0, fmt.Errorf("amount after fee: %w", err)
	}
	// amountIn >= ceil(afterFee * den / num)
	in, err := fixedpoint.MulDivRoundingUp(afterFee, uint256.NewInt(e.fee.Denominator), uint256.NewInt(e.fee.Numerator))
	if err != nil {
		return 0, fmt.Errorf("amount in: %w", err)
	}
	return fixedpoint.ToUint64(in)
}

// Execute prices req against pool and returns the update that settles it.
// Nothing is mutated; the caller applies the update once every check passed.
func (e *Engine) Execute(pool amm.PoolInfo, req Request) (Result, error) {
	reserveIn, reserveOut := pool.Reserve1, pool.Reserve0
	if req.AssetInIs0 {
		reserveIn, reserveOut = pool.Reserve0, pool.Reserve1
	}

	q, err := e.Quote(reserveIn, reserveOut, req.AmountIn)
	if err != nil {
		return Result{}, err
	}
	if q.AmountOut < req.MinAmountOut {
		return Result{}, fmt.Errorf("%w: output %d below minimum %d", amm.ErrSlippageExceeded, q.AmountOut, req.MinAmountOut)
	}
	if _, err := fixedpoint.Add(reserveIn, req.AmountIn); err != nil {
		return Result{}, fmt.Errorf("reserve in: %w", err)
	}

	update := ledger.Update{
		Reserve0: ledger.Credit(req.AmountIn),
		Reserve1: ledger.Debit(q.AmountOut),
	}
	if !req.AssetInIs0 {
		update = ledger.Update{
			Reserve0: ledger.Debit(q.AmountOut),
			Reserve1: ledger.Credit(req.AmountIn),
		}
	}
	return Result{Quote: q, Update: update}, nil
}
