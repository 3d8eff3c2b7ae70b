package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pairExchange/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "exchange",
		Short:        "Constant-product pair exchange",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a JSONL script of pool operations",
		RunE:  runSimulate,
	}
	config.PoolFlags(simulateCmd.Flags())
	simulateCmd.Flags().String("script", "", "input script JSONL (default stdin)")
	simulateCmd.Flags().String("out", "./data/pool_events.jsonl", "output pool events JSONL")
	simulateCmd.Flags().String("results", "./data/results.jsonl", "output op results JSONL")
	simulateCmd.Flags().String("snapshot-file", "./data/pool_snapshot.json", "pool snapshot file (empty disables)")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the event journal and snapshots")
	simulateCmd.Flags().Bool("resume", false, "restore the pool from the snapshot before replaying")
	simulateCmd.Flags().Bool("halt-on-error", false, "stop at the first failed op")
	simulateCmd.Flags().Int("max-retries", 5, "maximum retry attempts for Postgres journal writes")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against given or snapshotted reserves",
		RunE:  runQuote,
	}
	config.PoolFlags(quoteCmd.Flags())
	quoteCmd.Flags().Uint64("reserve0", 0, "reserve of asset0")
	quoteCmd.Flags().Uint64("reserve1", 0, "reserve of asset1")
	quoteCmd.Flags().Uint64("amount-in", 0, "exact input to price")
	quoteCmd.Flags().Uint64("amount-out", 0, "desired output to price the minimum input for")
	quoteCmd.Flags().Uint("asset-in", 0, "input side (0 or 1)")
	quoteCmd.Flags().String("snapshot-file", "", "read reserves from this pool snapshot")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(quoteCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate pool events into window metrics",
		RunE:  runAggregate,
	}
	config.PoolFlags(aggregateCmd.Flags())
	aggregateCmd.Flags().String("in", "./data/pool_events.jsonl", "input pool events JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(aggregateCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the Postgres schema, or apply it with --pg-dsn",
		RunE:  runSchema,
	}
	schemaCmd.Flags().String("pg-dsn", "", "apply the schema to this database")
	schemaCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(schemaCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
