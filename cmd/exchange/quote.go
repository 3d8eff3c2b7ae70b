package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairExchange/internal/amm/swap"
	"pairExchange/internal/config"
	"pairExchange/internal/state"
)

type quoteOutput struct {
	AssetIn          uint   `json:"asset_in"`
	ReserveIn        uint64 `json:"reserve_in"`
	ReserveOut       uint64 `json:"reserve_out"`
	AmountIn         uint64 `json:"amount_in"`
	AmountInAfterFee uint64 `json:"amount_in_after_fee"`
	Fee              uint64 `json:"fee"`
	AmountOut        uint64 `json:"amount_out"`
	Rate             string `json:"fee_rate"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reserve0, reserve1 := cfg.Reserve0, cfg.Reserve1
	if reserve0 == 0 && reserve1 == 0 && cfg.SnapshotFile != "" {
		snap, ok, err := (&state.FileStore{Path: cfg.SnapshotFile}).Load(context.Background())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("snapshot %s not found", cfg.SnapshotFile)
		}
		reserve0, reserve1 = snap.Pool.Reserve0, snap.Pool.Reserve1
		logger.Debug("reserves from snapshot", zap.Uint64("reserve0", reserve0), zap.Uint64("reserve1", reserve1))
	}

	engine, err := swap.NewEngine(cfg.Pool.Fee)
	if err != nil {
		return err
	}
	reserveIn, reserveOut := reserve0, reserve1
	if cfg.AssetIn == 1 {
		reserveIn, reserveOut = reserve1, reserve0
	}

	amountIn := cfg.AmountIn
	if cfg.AmountOut > 0 {
		if amountIn, err = engine.QuoteIn(reserveIn, reserveOut, cfg.AmountOut); err != nil {
			return err
		}
	}
	q, err := engine.Quote(reserveIn, reserveOut, amountIn)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(quoteOutput{
		AssetIn:          cfg.AssetIn,
		ReserveIn:        reserveIn,
		ReserveOut:       reserveOut,
		AmountIn:         q.AmountIn,
		AmountInAfterFee: q.AmountInAfterFee,
		Fee:              q.Fee,
		AmountOut:        q.AmountOut,
		Rate:             engine.Fee().String(),
	})
}
