package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairExchange/internal/storage/postgres"
)

func runSchema(cmd *cobra.Command, _ []string) error {
	dsn, _ := cmd.Flags().GetString("pg-dsn")
	level, _ := cmd.Flags().GetString("log-level")
	if dsn == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), postgres.Schema)
		return err
	}

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("schema applied", zap.String("pg_dsn", redactDSN(dsn)))
	return nil
}
