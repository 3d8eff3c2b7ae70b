package config

import (
	"time"

	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Pool         PoolConfig
	Script       string
	Out          string
	Results      string
	SnapshotFile string
	PGDSN        string
	Resume       bool
	HaltOnError  bool
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":           "./data/pool_events.jsonl",
		"results":       "./data/results.jsonl",
		"snapshot-file": "./data/pool_snapshot.json",
		"resume":        false,
		"halt-on-error": false,
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return SimulateConfig{}, err
	}
	pool, err := poolFromViper(v)
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		Pool:         pool,
		Script:       v.GetString("script"),
		Out:          v.GetString("out"),
		Results:      v.GetString("results"),
		SnapshotFile: v.GetString("snapshot-file"),
		PGDSN:        v.GetString("pg-dsn"),
		Resume:       v.GetBool("resume"),
		HaltOnError:  v.GetBool("halt-on-error"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
