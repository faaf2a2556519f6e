package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:wifiscore.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.migrate(ctx, []string{
		`CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			record_key TEXT NOT NULL,
			id INTEGER NOT NULL,
			ssid TEXT NOT NULL DEFAULT '',
			bssid TEXT NOT NULL DEFAULT '',
			updated_ms INTEGER NOT NULL,
			PRIMARY KEY (kind, record_key)
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			kind TEXT NOT NULL,
			record_key TEXT NOT NULL,
			event TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			metric TEXT NOT NULL,
			count INTEGER NOT NULL,
			sum REAL NOT NULL,
			sum_sq REAL NOT NULL,
			min REAL NOT NULL,
			max REAL NOT NULL,
			PRIMARY KEY (kind, record_key, event, frequency, metric)
		)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_ms INTEGER NOT NULL,
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
