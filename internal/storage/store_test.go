package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
)

func newMemoryStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func sampleRecord() model.RecordSnapshot {
	return model.RecordSnapshot{
		ID:        7,
		Kind:      model.RecordBSSID,
		Key:       "aa:bb:cc:dd:ee:ff",
		SSID:      "home",
		BSSID:     "aa:bb:cc:dd:ee:ff",
		UpdatedAt: time.UnixMilli(1_700_000_000_123).UTC(),
		Signals: []model.SignalSnapshot{
			{
				Event:     model.EventSignalPoll,
				Frequency: 5805,
				Metrics: map[model.Metric]model.StatSnapshot{
					model.MetricRSSI:      {Count: 2, Sum: -132, SumOfSquares: 8954, Min: -77, Max: -55},
					model.MetricLinkSpeed: {Count: 1, Sum: 866, SumOfSquares: 866 * 866, Min: 866, Max: 866},
				},
			},
			{
				Event:     model.EventWifiDisabled,
				Frequency: 5290,
				Metrics: map[model.Metric]model.StatSnapshot{
					model.MetricElapsedMs: {Count: 1, Sum: 999, SumOfSquares: 998001, Min: 999, Max: 999},
				},
			},
		},
	}
}

func TestSQLiteRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	rec := sampleRecord()
	require.NoError(t, s.SaveRecord(ctx, rec))
	require.NoError(t, s.SaveRecord(ctx, model.RecordSnapshot{ID: 8, Kind: model.RecordSSID, Key: "home"}))

	loaded, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, rec, loaded[0])
	assert.Equal(t, int64(8), loaded[1].ID)
	assert.Empty(t, loaded[1].Signals)
}

func TestSQLiteSaveRecordUpserts(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	rec := sampleRecord()
	require.NoError(t, s.SaveRecord(ctx, rec))

	rec.SSID = "office"
	rec.Signals[0].Metrics[model.MetricRSSI] = model.StatSnapshot{Count: 3, Sum: -192, SumOfSquares: 12554, Min: -77, Max: -55}
	require.NoError(t, s.SaveRecord(ctx, rec))

	loaded, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "office", loaded[0].SSID)
	assert.Equal(t, int64(3), loaded[0].Signals[0].Metrics[model.MetricRSSI].Count)
}

func TestSQLiteDiagnosticsAndClear(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	require.NoError(t, s.SaveRecord(ctx, sampleRecord()))
	require.NoError(t, s.SaveDiagnostic(ctx, model.Diagnostic{
		Timestamp: time.Now(),
		Call:      model.LifecycleIPConfiguration,
		State:     "disconnected",
		Reason:    "ip configuration while disconnected",
	}))
	require.NoError(t, s.Clear(ctx))
	loaded, err := s.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveRecordSkipsUnidentified(t *testing.T) {
	s := newMemoryStore(t)
	require.NoError(t, s.SaveRecord(context.Background(), model.RecordSnapshot{Kind: model.RecordSSID, Key: "x"}))
	loaded, err := s.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewStore(config.StorageConfig{Enabled: true, Driver: "mysql"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNumberedPlaceholders(t *testing.T) {
	assert.Equal(t, "VALUES ($1, $2, $3)", numberedPlaceholders("VALUES (?, ?, ?)"))
}
