package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command. Reserves come from
// the flags, or from the snapshot file when both are zero.
type QuoteConfig struct {
	Pool         PoolConfig
	Reserve0     uint64
	Reserve1     uint64
	AmountIn     uint64
	AmountOut    uint64
	AssetIn      uint
	SnapshotFile string
	LogLevel     string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"asset-in": 0,
	})
	if err != nil {
		return QuoteConfig{}, err
	}
	pool, err := poolFromViper(v)
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Pool:         pool,
		Reserve0:     v.GetUint64("reserve0"),
		Reserve1:     v.GetUint64("reserve1"),
		AmountIn:     v.GetUint64("amount-in"),
		AmountOut:    v.GetUint64("amount-out"),
		AssetIn:      v.GetUint("asset-in"),
		SnapshotFile: v.GetString("snapshot-file"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.AssetIn > 1 {
		return QuoteConfig{}, fmt.Errorf("asset-in must be 0 or 1")
	}
	if (cfg.AmountIn == 0) == (cfg.AmountOut == 0) {
		return QuoteConfig{}, fmt.Errorf("exactly one of amount-in and amount-out is required")
	}
	return cfg, nil
}
