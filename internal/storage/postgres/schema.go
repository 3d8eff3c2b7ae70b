package postgres

import "context"

// Schema creates every table the store writes to. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id          TEXT PRIMARY KEY,
	asset0           TEXT NOT NULL,
	asset1           TEXT NOT NULL,
	share_asset      TEXT NOT NULL,
	fee_numerator    BIGINT NOT NULL,
	fee_denominator  BIGINT NOT NULL,
	first_seen_seq   BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_events (
	pool_id        TEXT NOT NULL,
	sequence       BIGINT NOT NULL,
	kind           TEXT NOT NULL,
	caller         TEXT NOT NULL,
	recipient      TEXT NOT NULL,
	amount0_in     NUMERIC(20,0) NOT NULL,
	amount1_in     NUMERIC(20,0) NOT NULL,
	amount0_out    NUMERIC(20,0) NOT NULL,
	amount1_out    NUMERIC(20,0) NOT NULL,
	shares_minted  NUMERIC(20,0) NOT NULL,
	shares_burned  NUMERIC(20,0) NOT NULL,
	fee0           NUMERIC(20,0) NOT NULL,
	fee1           NUMERIC(20,0) NOT NULL,
	reserve0       NUMERIC(20,0) NOT NULL,
	reserve1       NUMERIC(20,0) NOT NULL,
	lp_supply      NUMERIC(20,0) NOT NULL,
	event_ts       BIGINT NOT NULL,
	recorded_at    TEXT NOT NULL,
	PRIMARY KEY (pool_id, sequence)
);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_id              TEXT NOT NULL,
	window_size_seconds  BIGINT NOT NULL,
	window_start_ts      TIMESTAMPTZ NOT NULL,
	window_end_ts        TIMESTAMPTZ NOT NULL,
	swap_count           BIGINT NOT NULL,
	volume0              NUMERIC NOT NULL,
	volume1              NUMERIC NOT NULL,
	fee0                 NUMERIC NOT NULL,
	fee1                 NUMERIC NOT NULL,
	fee_rate0            NUMERIC,
	fee_rate1            NUMERIC,
	tvl0                 NUMERIC,
	tvl1                 NUMERIC,
	apr                  NUMERIC,
	fee_method           TEXT NOT NULL,
	tvl_method           TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_id, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS aggregator_state (
	name               TEXT PRIMARY KEY,
	last_processed_ts  BIGINT NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool_id     TEXT PRIMARY KEY,
	sequence    BIGINT NOT NULL,
	payload     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}
