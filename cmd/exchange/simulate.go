package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairExchange/internal/config"
	"pairExchange/internal/custody"
	"pairExchange/internal/exchange"
	"pairExchange/internal/model"
	"pairExchange/internal/scenario"
	"pairExchange/internal/state"
	"pairExchange/internal/storage"
	"pairExchange/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	var snapshots state.Store = &state.FileStore{Path: cfg.SnapshotFile}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if err := store.UpsertPools(ctx, []model.Pool{cfg.Pool.Model()}); err != nil {
			return fmt.Errorf("upsert pool: %w", err)
		}
		sinks = append(sinks, &storage.Retrying{
			Sink:       store,
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			Logger:     logger,
		})
		snapshots = &state.DBStore{Store: store, PoolID: cfg.Pool.PoolID.Hex()}
	}

	vault := custody.NewVault(cfg.Pool.PoolID, cfg.Pool.ShareAsset, logger)
	ctrl, err := exchange.New(exchange.Config{
		PoolID: cfg.Pool.PoolID.Hex(),
		Asset0: cfg.Pool.Asset0,
		Asset1: cfg.Pool.Asset1,
		Fee:    cfg.Pool.Fee,
	}, vault, sinks, logger)
	if err != nil {
		return err
	}

	if cfg.Resume {
		snap, ok, err := snapshots.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			if err := state.Apply(ctx, snap, ctrl, vault); err != nil {
				return err
			}
		} else {
			logger.Info("no snapshot to resume from")
		}
	}

	var in io.Reader = os.Stdin
	if cfg.Script != "" {
		file, err := os.Open(cfg.Script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer file.Close()
		in = file
	}

	results, closeResults, err := openResults(cfg.Results)
	if err != nil {
		return err
	}
	defer closeResults()

	logger.Info("simulate start",
		zap.String("pool", cfg.Pool.PoolID.Hex()),
		zap.String("asset0", cfg.Pool.Asset0.Hex()),
		zap.String("asset1", cfg.Pool.Asset1.Hex()),
		zap.String("fee", cfg.Pool.Fee.String()),
		zap.String("script", cfg.Script),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("resume", cfg.Resume),
	)

	runner := scenario.NewRunner(ctrl, vault, scenario.Options{HaltOnError: cfg.HaltOnError}, logger)
	summary, runErr := runner.Run(ctx, in, results)

	if err := snapshots.Save(ctx, state.Capture(ctrl, vault)); err != nil {
		logger.Error("save snapshot", zap.Error(err))
	}

	info := ctrl.PoolInfo()
	logger.Info("simulate complete",
		zap.Int("total", summary.Total),
		zap.Int("ok", summary.OK),
		zap.Int("failed", summary.Failed),
		zap.Uint64("reserve0", info.Reserve0),
		zap.Uint64("reserve1", info.Reserve1),
		zap.Uint64("lp_supply", info.LPSupply),
		zap.Uint64("sequence", ctrl.Sequence()),
	)
	return runErr
}

// openResults returns an emitter that writes one JSON line per op result.
func openResults(path string) (func(model.OpResult) error, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create results dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create results: %w", err)
	}
	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)

	emit := func(r model.OpResult) error {
		return enc.Encode(r)
	}
	closeFn := func() {
		_ = writer.Flush()
		_ = file.Close()
	}
	return emit, closeFn, nil
}
