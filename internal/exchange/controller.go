// Package exchange is the pool controller: it turns asset movements observed
// in custody into ledger updates, share mints and payouts.
package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pairExchange/internal/amm"
	"pairExchange/internal/amm/ledger"
	"pairExchange/internal/amm/liquidity"
	"pairExchange/internal/amm/swap"
	"pairExchange/internal/model"
	"pairExchange/internal/storage"
)

// Config fixes the pair and fee at construction.
type Config struct {
	PoolID string
	Asset0 amm.AssetID
	Asset1 amm.AssetID
	Fee    amm.Fee
}

// Controller owns one pool. Mutations are serialized.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	env    Environment
	ledger *ledger.Ledger
	engine *swap.Engine
	sink   storage.Storage
	logger *zap.Logger
	seq    uint64
	now    func() time.Time
}

func New(cfg Config, env Environment, sink storage.Storage, logger *zap.Logger) (*Controller, error) {
	if env == nil {
		return nil, fmt.Errorf("environment is nil")
	}
	if cfg.Asset0 == cfg.Asset1 {
		return nil, fmt.Errorf("asset0 and asset1 must differ (both %s)", cfg.Asset0.Hex())
	}
	engine, err := swap.NewEngine(cfg.Fee)
	if err != nil {
		return nil, fmt.Errorf("swap engine: %w", err)
	}
	if sink == nil {
		sink = storage.Discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		cfg:    cfg,
		env:    env,
		ledger: ledger.New(),
		engine: engine,
		sink:   sink,
		logger: logger.With(zap.String("pool", cfg.PoolID)),
		now:    time.Now,
	}, nil
}

// SetClock replaces the clock used to timestamp journaled events and returns
// the previous one.
func (c *Controller) SetClock(now func() time.Time) func() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.now
	c.now = now
	return prev
}

func (c *Controller) Config() Config { return c.cfg }

// PoolInfo returns the current reserves and share supply.
func (c *Controller) PoolInfo() amm.PoolInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Snapshot()
}

// Sequence returns the number of committed operations.
func (c *Controller) Sequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Restore loads a persisted pool state. Custody must already hold at least the
// restored reserves.
func (c *Controller) Restore(ctx context.Context, info amm.PoolInfo, sequence uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, side := range []struct {
		asset   amm.AssetID
		reserve uint64
	}{{c.cfg.Asset0, info.Reserve0}, {c.cfg.Asset1, info.Reserve1}} {
		bal, err := c.env.Balance(ctx, side.asset)
		if err != nil {
			return fmt.Errorf("custody balance: %w", err)
		}
		if bal < side.reserve {
			return fmt.Errorf("%w: custody holds %d of %s, below restored reserve %d",
				amm.ErrInvariantViolation, bal, side.asset.Hex(), side.reserve)
		}
	}
	if err := c.ledger.Restore(info); err != nil {
		return err
	}
	c.seq = sequence
	c.logger.Info("pool restored",
		zap.Uint64("reserve0", info.Reserve0),
		zap.Uint64("reserve1", info.Reserve1),
		zap.Uint64("lp_supply", info.LPSupply),
		zap.Uint64("sequence", sequence),
	)
	return nil
}

// Quote prices a swap of amountIn against the current reserves without executing it.
func (c *Controller) Quote(assetInIs0 bool, amountIn uint64) (swap.Quote, error) {
	pool := c.PoolInfo()
	if assetInIs0 {
		return c.engine.Quote(pool.Reserve0, pool.Reserve1, amountIn)
	}
	return c.engine.Quote(pool.Reserve1, pool.Reserve0, amountIn)
}

// DepositReceived returns how much of asset custody holds beyond the recorded reserve.
func (c *Controller) DepositReceived(ctx context.Context, asset amm.AssetID) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depositReceived(ctx, asset)
}

func (c *Controller) depositReceived(ctx context.Context, asset amm.AssetID) (uint64, error) {
	var reserve uint64
	pool := c.ledger.Snapshot()
	switch asset {
	case c.cfg.Asset0:
		reserve = pool.Reserve0
	case c.cfg.Asset1:
		reserve = pool.Reserve1
	default:
		return 0, fmt.Errorf("asset %s is not part of the pair", asset.Hex())
	}

	bal, err := c.env.Balance(ctx, asset)
	if err != nil {
		return 0, fmt.Errorf("custody balance: %w", err)
	}
	if bal < reserve {
		return 0, fmt.Errorf("%w: custody holds %d of %s, below reserve %d",
			amm.ErrInvariantViolation, bal, asset.Hex(), reserve)
	}
	return bal - reserve, nil
}

// AddLiquidity mints shares to recipient for both assets deposited since the
// last committed operation.
func (c *Controller) AddLiquidity(ctx context.Context, recipient amm.Identity) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	amount0, err := c.depositReceived(ctx, c.cfg.Asset0)
	if err != nil {
		return 0, err
	}
	amount1, err := c.depositReceived(ctx, c.cfg.Asset1)
	if err != nil {
		return 0, err
	}

	deposit, err := liquidity.Mint(c.ledger.Snapshot(), amount0, amount1)
	if err != nil {
		return 0, fmt.Errorf("add liquidity: %w", err)
	}
	if _, err := c.ledger.Preview(deposit.Update); err != nil {
		return 0, fmt.Errorf("add liquidity: %w", err)
	}
	if err := c.env.MintShares(ctx, recipient, deposit.Shares); err != nil {
		return 0, fmt.Errorf("mint shares: %w", err)
	}
	post, err := c.ledger.Apply(deposit.Update)
	if err != nil {
		c.undoMint(ctx, recipient, deposit.Shares)
		return 0, fmt.Errorf("add liquidity: %w", err)
	}

	c.record(ctx, post, model.PoolEvent{
		Kind:         model.EventAddLiquidity,
		Caller:       c.env.Caller(ctx).Hex(),
		Recipient:    recipient.Hex(),
		Amount0In:    amount0,
		Amount1In:    amount1,
		SharesMinted: deposit.Shares,
	})
	return deposit.Shares, nil
}

// RemoveLiquidity burns the caller's shares and pays the proportional
// reserves to recipient.
func (c *Controller) RemoveLiquidity(ctx context.Context, shares uint64, recipient amm.Identity) (uint64, uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	caller := c.env.Caller(ctx)
	withdrawal, err := liquidity.Burn(c.ledger.Snapshot(), shares)
	if err != nil {
		return 0, 0, fmt.Errorf("remove liquidity: %w", err)
	}
	if _, err := c.ledger.Preview(withdrawal.Update); err != nil {
		return 0, 0, fmt.Errorf("remove liquidity: %w", err)
	}
	if err := c.env.BurnShares(ctx, caller, shares); err != nil {
		return 0, 0, fmt.Errorf("burn shares: %w", err)
	}

	var payouts []amm.Payout
	if withdrawal.Amount0 > 0 {
		payouts = append(payouts, amm.Payout{Asset: c.cfg.Asset0, Amount: withdrawal.Amount0, Recipient: recipient})
	}
	if withdrawal.Amount1 > 0 {
		payouts = append(payouts, amm.Payout{Asset: c.cfg.Asset1, Amount: withdrawal.Amount1, Recipient: recipient})
	}
	if err := c.env.Transfer(ctx, payouts...); err != nil {
		c.undoBurn(ctx, caller, shares)
		return 0, 0, fmt.Errorf("%w: pay out withdrawal: %v", amm.ErrTransferFailed, err)
	}

	post, err := c.ledger.Apply(withdrawal.Update)
	if err != nil {
		// Funds already left custody; the next deposit diff would absorb the gap.
		c.logger.Error("ledger rejected withdrawal after payout", zap.Error(err))
		return 0, 0, fmt.Errorf("remove liquidity: %w", err)
	}

	c.record(ctx, post, model.PoolEvent{
		Kind:         model.EventRemoveLiquidity,
		Caller:       caller.Hex(),
		Recipient:    recipient.Hex(),
		Amount0Out:   withdrawal.Amount0,
		Amount1Out:   withdrawal.Amount1,
		SharesBurned: shares,
	})
	return withdrawal.Amount0, withdrawal.Amount1, nil
}

// Swap trades the input asset deposited since the last committed operation
// and pays the output to recipient.
func (c *Controller) Swap(ctx context.Context, minAmountOut uint64, assetInIs0 bool, recipient amm.Identity) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	assetIn, assetOut := c.cfg.Asset1, c.cfg.Asset0
	if assetInIs0 {
		assetIn, assetOut = c.cfg.Asset0, c.cfg.Asset1
	}

	amountIn, err := c.depositReceived(ctx, assetIn)
	if err != nil {
		return 0, err
	}
	result, err := c.engine.Execute(c.ledger.Snapshot(), swap.Request{
		AssetInIs0:   assetInIs0,
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
	})
	if err != nil {
		return 0, fmt.Errorf("swap: %w", err)
	}
	if _, err := c.ledger.Preview(result.Update); err != nil {
		return 0, fmt.Errorf("swap: %w", err)
	}
	if err := c.env.Transfer(ctx, amm.Payout{Asset: assetOut, Amount: result.AmountOut, Recipient: recipient}); err != nil {
		return 0, fmt.Errorf("%w: pay out swap: %v", amm.ErrTransferFailed, err)
	}

	post, err := c.ledger.Apply(result.Update)
	if err != nil {
		c.logger.Error("ledger rejected swap after payout", zap.Error(err))
		return 0, fmt.Errorf("swap: %w", err)
	}

	event := model.PoolEvent{
		Kind:      model.EventSwap,
		Caller:    c.env.Caller(ctx).Hex(),
		Recipient: recipient.Hex(),
	}
	if assetInIs0 {
		event.Amount0In, event.Amount1Out, event.Fee0 = amountIn, result.AmountOut, result.Fee
	} else {
		event.Amount1In, event.Amount0Out, event.Fee1 = amountIn, result.AmountOut, result.Fee
	}
	c.record(ctx, post, event)
	return result.AmountOut, nil
}

func (c *Controller) undoMint(ctx context.Context, to amm.Identity, shares uint64) {
	if err := c.env.BurnShares(context.WithoutCancel(ctx), to, shares); err != nil {
		c.logger.Error("revert share mint", zap.String("identity", to.Hex()), zap.Uint64("shares", shares), zap.Error(err))
	}
}

func (c *Controller) undoBurn(ctx context.Context, from amm.Identity, shares uint64) {
	if err := c.env.RestoreShares(context.WithoutCancel(ctx), from, shares); err != nil {
		c.logger.Error("revert share burn", zap.String("identity", from.Hex()), zap.Uint64("shares", shares), zap.Error(err))
	}
}

// record journals a committed operation. A sink failure is logged and does not
// undo the commit.
func (c *Controller) record(ctx context.Context, post amm.PoolInfo, event model.PoolEvent) {
	c.seq++
	now := c.now().UTC()
	event.PoolID = c.cfg.PoolID
	event.Sequence = c.seq
	event.Reserve0 = post.Reserve0
	event.Reserve1 = post.Reserve1
	event.LPSupply = post.LPSupply
	event.Timestamp = uint64(now.Unix())
	event.RecordedAt = now.Format(time.RFC3339Nano)

	c.logger.Debug("pool operation",
		zap.String("kind", string(event.Kind)),
		zap.Uint64("sequence", event.Sequence),
		zap.Uint64("reserve0", post.Reserve0),
		zap.Uint64("reserve1", post.Reserve1),
		zap.Uint64("lp_supply", post.LPSupply),
	)
	if err := c.sink.PutEventBatch(context.WithoutCancel(ctx), []model.PoolEvent{event}); err != nil {
		c.logger.Error("journal pool event", zap.Uint64("sequence", event.Sequence), zap.Error(err))
	}
}
