package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/wifiscore?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db, bind: numberedPlaceholders}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.migrate(ctx, []string{
		`CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			record_key TEXT NOT NULL,
			id BIGINT NOT NULL,
			ssid TEXT NOT NULL DEFAULT '',
			bssid TEXT NOT NULL DEFAULT '',
			updated_ms BIGINT NOT NULL,
			PRIMARY KEY (kind, record_key)
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			kind TEXT NOT NULL,
			record_key TEXT NOT NULL,
			event TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			metric TEXT NOT NULL,
			count BIGINT NOT NULL,
			sum DOUBLE PRECISION NOT NULL,
			sum_sq DOUBLE PRECISION NOT NULL,
			min DOUBLE PRECISION NOT NULL,
			max DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (kind, record_key, event, frequency, metric)
		)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			id BIGSERIAL PRIMARY KEY,
			ts_ms BIGINT NOT NULL,
			session TEXT NOT NULL,
			call_name TEXT NOT NULL,
			bssid TEXT NOT NULL,
			ssid TEXT NOT NULL,
			state TEXT NOT NULL,
			reason TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_ts ON diagnostics(ts_ms)`,
	})
}
