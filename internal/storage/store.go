package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
)

var ErrUnsupportedDriver = errors.New("unsupported storage driver")

type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveRecord(ctx context.Context, rec model.RecordSnapshot) error
	LoadRecords(ctx context.Context) ([]model.RecordSnapshot, error)
	SaveDiagnostic(ctx context.Context, d model.Diagnostic) error
	Clear(ctx context.Context) error
}

// NewStore returns nil, nil when storage is disabled.
func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// baseStore runs the statements shared by both dialects. Queries are written
// with ? placeholders and rewritten by bind.
type baseStore struct {
	db   *sql.DB
	bind func(query string) string
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) q(query string) string {
	if b.bind == nil {
		return query
	}
	return b.bind(query)
}

func (b *baseStore) migrate(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (b *baseStore) SaveRecord(ctx context.Context, rec model.RecordSnapshot) error {
	if b.db == nil || rec.ID <= 0 || rec.Key == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, b.q(
		`INSERT INTO records (kind, record_key, id, ssid, bssid, updated_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, record_key) DO UPDATE SET
			id = excluded.id, ssid = excluded.ssid, bssid = excluded.bssid, updated_ms = excluded.updated_ms`),
		string(rec.Kind), rec.Key, rec.ID, rec.SSID, rec.BSSID, toMillis(rec.UpdatedAt),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save record %s/%s: %w", rec.Kind, rec.Key, err)
	}
	stmt, err := tx.PrepareContext(ctx, b.q(
		`INSERT INTO signals (kind, record_key, event, frequency, metric, count, sum, sum_sq, min, max)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, record_key, event, frequency, metric) DO UPDATE SET
			count = excluded.count, sum = excluded.sum, sum_sq = excluded.sum_sq,
			min = excluded.min, max = excluded.max`))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, sig := range rec.Signals {
		for metric, st := range sig.Metrics {
			if _, err := stmt.ExecContext(ctx,
				string(rec.Kind), rec.Key, sig.Event.String(), sig.Frequency, metric.String(),
				st.Count, st.Sum, st.SumOfSquares, st.Min, st.Max,
			); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("save signal %s/%s: %w", rec.Kind, rec.Key, err)
			}
		}
	}
	return tx.Commit()
}

func (b *baseStore) LoadRecords(ctx context.Context) ([]model.RecordSnapshot, error) {
	if b.db == nil {
		return nil, nil
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT kind, record_key, id, ssid, bssid, updated_ms FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	var out []model.RecordSnapshot
	index := make(map[string]int)
	for rows.Next() {
		var (
			kind, key, ssid, bssid string
			id, updated            int64
		)
		if err := rows.Scan(&kind, &key, &id, &ssid, &bssid, &updated); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		index[kind+"|"+key] = len(out)
		out = append(out, model.RecordSnapshot{
			ID:        id,
			Kind:      model.RecordKind(kind),
			Key:       key,
			SSID:      ssid,
			BSSID:     bssid,
			UpdatedAt: fromMillis(updated),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := b.loadSignals(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *baseStore) loadSignals(ctx context.Context, recs []model.RecordSnapshot, index map[string]int) error {
	rows, err := b.db.QueryContext(ctx,
		`SELECT kind, record_key, event, frequency, metric, count, sum, sum_sq, min, max FROM signals`)
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}
	defer rows.Close()

	type bucketKey struct {
		rec   int
		event model.EventKind
		freq  int
	}
	buckets := make(map[bucketKey]*model.SignalSnapshot)
	var order []bucketKey
	for rows.Next() {
		var (
			kind, key, eventName, metricName string
			freq                             int
			st                               model.StatSnapshot
		)
		if err := rows.Scan(&kind, &key, &eventName, &freq, &metricName,
			&st.Count, &st.Sum, &st.SumOfSquares, &st.Min, &st.Max); err != nil {
			return fmt.Errorf("scan signal: %w", err)
		}
		pos, ok := index[kind+"|"+key]
		if !ok {
			continue
		}
		event, ok := model.ParseEventKind(eventName)
		if !ok {
			continue
		}
		metric, ok := model.ParseMetric(metricName)
		if !ok {
			continue
		}
		k := bucketKey{rec: pos, event: event, freq: freq}
		sig, ok := buckets[k]
		if !ok {
			sig = &model.SignalSnapshot{Event: event, Frequency: freq, Metrics: make(map[model.Metric]model.StatSnapshot)}
			buckets[k] = sig
			order = append(order, k)
		}
		sig.Metrics[metric] = st
	}
	if err := rows.Err(); err != nil {
		return err
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.rec != b.rec {
			return a.rec < b.rec
		}
		if a.event != b.event {
			return a.event < b.event
		}
		return a.freq < b.freq
	})
	for _, k := range order {
		recs[k.rec].Signals = append(recs[k.rec].Signals, *buckets[k])
	}
	return nil
}

func (b *baseStore) SaveDiagnostic(ctx context.Context, d model.Diagnostic) error {
	if b.db == nil {
		return nil
	}
	_, err := b.db.ExecContext(ctx, b.q(
		`INSERT INTO diagnostics (ts_ms, session, call_name, bssid, ssid, state, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		toMillis(d.Timestamp), d.Session, string(d.Call), d.BSSID, d.SSID, d.State, d.Reason,
	)
	if err != nil {
		return fmt.Errorf("save diagnostic: %w", err)
	}
	return nil
}

func (b *baseStore) Clear(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	for _, table := range []string{"signals", "records", "diagnostics"} {
		if _, err := b.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// numberedPlaceholders rewrites ? placeholders to $1, $2, ...
func numberedPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func toMillis(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
