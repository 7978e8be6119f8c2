package repository

import "fmt"

// PostgresSchema creates the signal and influencer tables.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS influencers (
		id                TEXT PRIMARY KEY,
		twitter_handle    TEXT NOT NULL,
		display_name      TEXT NOT NULL DEFAULT '',
		profile_image_url TEXT NOT NULL DEFAULT '',
		is_active         BOOLEAN NOT NULL DEFAULT TRUE,
		priority          INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS influencers_handle_uq ON influencers (lower(twitter_handle))`,
	`CREATE TABLE IF NOT EXISTS signals (
		id               TEXT PRIMARY KEY,
		influencer_id    TEXT NOT NULL REFERENCES influencers(id),
		sentiment        TEXT NOT NULL CHECK (sentiment IN ('LONG', 'SHORT')),
		confidence       INTEGER NOT NULL DEFAULT 0,
		entry_price      DOUBLE PRECISION NOT NULL,
		price_source     TEXT NOT NULL DEFAULT 'historical',
		signal_timestamp BIGINT NOT NULL,
		source_url       TEXT NOT NULL UNIQUE,
		original_text    TEXT NOT NULL DEFAULT '',
		summary          TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS signals_influencer_ts_idx ON signals (influencer_id, signal_timestamp)`,
	`CREATE INDEX IF NOT EXISTS signals_ts_idx ON signals (signal_timestamp)`,
}

// ClickHouseSchema creates the append-only signal event table in db.
func ClickHouseSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			saved_at         DateTime,
			signal_id        String,
			influencer_id    String,
			handle           String,
			sentiment        LowCardinality(String),
			confidence       UInt8,
			entry_price      Float64,
			price_source     LowCardinality(String),
			signal_timestamp DateTime,
			source_url       String
		) ENGINE = ReplacingMergeTree(saved_at)
		ORDER BY (signal_timestamp, signal_id)`, db, archiveTable),
	}
}
