// Package scenario replays scripted operations against a pool controller and
// its custody vault.
package scenario

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"pairExchange/internal/amm"
	"pairExchange/internal/config"
	"pairExchange/internal/custody"
	"pairExchange/internal/exchange"
	"pairExchange/internal/model"
)

// Options controls a replay.
type Options struct {
	HaltOnError bool
}

// Summary counts the outcomes of a replay.
type Summary struct {
	Total  int
	OK     int
	Failed int
}

// Runner applies script ops in order.
type Runner struct {
	ctrl   *exchange.Controller
	vault  *custody.Vault
	opts   Options
	logger *zap.Logger
}

func NewRunner(ctrl *exchange.Controller, vault *custody.Vault, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{ctrl: ctrl, vault: vault, opts: opts, logger: logger}
}

var sentinels = []error{
	amm.ErrArithmeticOverflow,
	amm.ErrInvariantViolation,
	amm.ErrInsufficientLiquidityMinted,
	amm.ErrInsufficientShares,
	amm.ErrInsufficientLiquidity,
	amm.ErrSlippageExceeded,
	amm.ErrTransferFailed,
	custody.ErrInsufficientBalance,
}

// matchesExpected reports whether err is the error a script line expects,
// by sentinel message or, failing that, by substring.
func matchesExpected(err error, expected string) bool {
	for _, s := range sentinels {
		if s.Error() == expected {
			return errors.Is(err, s)
		}
	}
	return strings.Contains(err.Error(), expected)
}

// Run reads one ScriptOp per line from r and hands each outcome to emit.
func (r *Runner) Run(ctx context.Context, in io.Reader, emit func(model.OpResult) error) (Summary, error) {
	var summary Summary
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Total++

		var op model.ScriptOp
		var (
			value interface{}
			opErr error
		)
		if err := json.Unmarshal(line, &op); err != nil {
			opErr = fmt.Errorf("decode op: %w", err)
		} else {
			value, opErr = r.Apply(ctx, op)
		}

		result := r.outcome(lineNo, op, value, opErr)
		if result.OK {
			summary.OK++
		} else {
			summary.Failed++
			r.logger.Warn("script op failed", zap.Int("line", lineNo), zap.String("op", op.Op), zap.String("error", result.Error))
		}
		if emit != nil {
			if err := emit(result); err != nil {
				return summary, fmt.Errorf("emit result: %w", err)
			}
		}
		if !result.OK && r.opts.HaltOnError {
			return summary, fmt.Errorf("line %d: %s", lineNo, result.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan script: %w", err)
	}
	return summary, nil
}

func (r *Runner) outcome(lineNo int, op model.ScriptOp, value interface{}, opErr error) model.OpResult {
	info := r.ctrl.PoolInfo()
	result := model.OpResult{
		Line:     lineNo,
		Op:       op.Op,
		Reserve0: info.Reserve0,
		Reserve1: info.Reserve1,
		LPSupply: info.LPSupply,
	}

	switch {
	case opErr != nil && op.ExpectError != "" && matchesExpected(opErr, op.ExpectError):
		result.OK = true
		result.Error = opErr.Error()
	case opErr != nil:
		result.Error = opErr.Error()
	case op.ExpectError != "":
		result.Error = fmt.Sprintf("expected error %q, op succeeded", op.ExpectError)
	default:
		result.OK = true
	}

	if opErr == nil && value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			result.OK = false
			result.Error = fmt.Sprintf("marshal result: %v", err)
			return result
		}
		result.Result = raw
	}
	return result
}

// Apply executes a single op.
func (r *Runner) Apply(ctx context.Context, op model.ScriptOp) (interface{}, error) {
	if op.Timestamp > 0 {
		ts := time.Unix(int64(op.Timestamp), 0)
		prev := r.ctrl.SetClock(func() time.Time { return ts })
		defer r.ctrl.SetClock(prev)
	}

	switch op.Op {
	case "fund":
		id, asset, err := r.identityAndAsset(op)
		if err != nil {
			return nil, err
		}
		return nil, r.vault.Fund(id, asset, op.Amount)

	case "deposit":
		id, asset, err := r.identityAndAsset(op)
		if err != nil {
			return nil, err
		}
		return nil, r.vault.ForceTransferToContract(id, asset, op.Amount)

	case "reject":
		id, err := config.ParseIdentity(op.Identity)
		if err != nil {
			return nil, err
		}
		r.vault.Reject(id, op.Reject == nil || *op.Reject)
		return nil, nil

	case "balance":
		id, asset, err := r.identityAndAsset(op)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"balance": r.vault.BalanceOf(id, asset)}, nil

	case "info":
		return r.ctrl.PoolInfo(), nil

	case "add_liquidity":
		caller, recipient, err := r.parties(op)
		if err != nil {
			return nil, err
		}
		cfg := r.ctrl.Config()
		if err := r.depositPair(caller, cfg.Asset0, op.Amount0, cfg.Asset1, op.Amount1); err != nil {
			return nil, err
		}
		shares, err := r.ctrl.AddLiquidity(custody.WithCaller(ctx, caller), recipient)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"shares": shares}, nil

	case "remove_liquidity":
		caller, recipient, err := r.parties(op)
		if err != nil {
			return nil, err
		}
		amount0, amount1, err := r.ctrl.RemoveLiquidity(custody.WithCaller(ctx, caller), op.Shares, recipient)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"amount0": amount0, "amount1": amount1}, nil

	case "swap":
		caller, recipient, err := r.parties(op)
		if err != nil {
			return nil, err
		}
		assetIn, err := r.resolveAsset(op.Asset)
		if err != nil {
			return nil, err
		}
		cfg := r.ctrl.Config()
		if assetIn != cfg.Asset0 && assetIn != cfg.Asset1 {
			return nil, fmt.Errorf("swap input %s is not part of the pair", assetIn.Hex())
		}
		if op.Amount > 0 {
			if err := r.vault.ForceTransferToContract(caller, assetIn, op.Amount); err != nil {
				return nil, err
			}
		}
		out, err := r.ctrl.Swap(custody.WithCaller(ctx, caller), op.MinOut, assetIn == cfg.Asset0, recipient)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"amount_out": out}, nil

	default:
		return nil, fmt.Errorf("unknown op %q", op.Op)
	}
}

func (r *Runner) depositPair(from amm.Identity, asset0 amm.AssetID, amount0 uint64, asset1 amm.AssetID, amount1 uint64) error {
	var legs []custody.Deposit
	if amount0 > 0 {
		legs = append(legs, custody.Deposit{Asset: asset0, Amount: amount0})
	}
	if amount1 > 0 {
		legs = append(legs, custody.Deposit{Asset: asset1, Amount: amount1})
	}
	return r.vault.ForceDeposit(from, legs...)
}

// parties returns the calling identity and the recipient, which defaults to the caller.
func (r *Runner) parties(op model.ScriptOp) (amm.Identity, amm.Identity, error) {
	caller, err := config.ParseIdentity(op.Identity)
	if err != nil {
		return amm.Identity{}, amm.Identity{}, err
	}
	if op.Recipient == "" {
		return caller, caller, nil
	}
	recipient, err := config.ParseIdentity(op.Recipient)
	if err != nil {
		return amm.Identity{}, amm.Identity{}, fmt.Errorf("recipient: %w", err)
	}
	return caller, recipient, nil
}

func (r *Runner) identityAndAsset(op model.ScriptOp) (amm.Identity, amm.AssetID, error) {
	id, err := config.ParseIdentity(op.Identity)
	if err != nil {
		return amm.Identity{}, amm.AssetID{}, err
	}
	asset, err := r.resolveAsset(op.Asset)
	if err != nil {
		return amm.Identity{}, amm.AssetID{}, err
	}
	return id, asset, nil
}

func (r *Runner) resolveAsset(name string) (amm.AssetID, error) {
	cfg := r.ctrl.Config()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "asset0", "0":
		return cfg.Asset0, nil
	case "asset1", "1":
		return cfg.Asset1, nil
	case "share", "lp":
		return r.vault.ShareAsset(), nil
	case "":
		return amm.AssetID{}, fmt.Errorf("asset is required")
	default:
		return config.ParseAssetID(name)
	}
}
