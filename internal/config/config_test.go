package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
scorecard:
  ignored_ssids: ["guest"]
  dedupe_window: 2s
  persist_interval: 1m
ingest:
  kafka:
    enabled: true
    brokers: ["localhost:9092"]
    topic: wifi
    group_id: scorecard
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"guest"}, cfg.Scorecard.IgnoredSSIDs)
	assert.Equal(t, 2*time.Second, cfg.Scorecard.DedupeWindow)
	assert.Equal(t, time.Minute, cfg.Scorecard.PersistInterval)
	assert.True(t, cfg.Ingest.Kafka.Enabled)
	assert.Equal(t, 10000, cfg.Ingest.ChannelBuffer)
	assert.Equal(t, ":8081", cfg.API.Addr)
}

func TestParseJSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"api":{"enabled":true,"addr":":9999"},"snapshots":{"store_limit":-1}}`))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.API.Addr)
	assert.Equal(t, 5000, cfg.Snapshots.StoreLimit)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("   "))
	assert.ErrorIs(t, err, ErrEmptyConfig)

	_, err = Parse([]byte("ingest:\n  kafka:\n    enabled: true\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("storage:\n  enabled: true\n  driver: mysql\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("log_format: xml\n"))
	assert.Error(t, err)
}

func TestManagerReloadAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wifiscore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "info", m.Get().LogLevel)

	needs, err := m.NeedsReload()
	require.NoError(t, err)
	assert.False(t, needs)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go m.Watch(ctx, 10*time.Millisecond, func(c *Config) { reloaded <- c }, nil)

	select {
	case c := <-reloaded:
		assert.Equal(t, "warn", c.LogLevel)
	case <-ctx.Done():
		t.Fatalf("config was not reloaded")
	}
	assert.Equal(t, "warn", m.Get().LogLevel)
}

func TestManagerUpdateSavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifiscore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"info"}`), 0o644))
	m, err := NewManager(path)
	require.NoError(t, err)

	next := *m.Get()
	next.Scorecard.IgnoredBSSIDs = []string{"aa:bb:cc:dd:ee:ff"}
	require.NoError(t, m.Update(&next))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa:bb:cc:dd:ee:ff"}, loaded.Scorecard.IgnoredBSSIDs)
}

func TestStaticManager(t *testing.T) {
	m := NewStaticManager(nil)
	assert.Equal(t, "info", m.Get().LogLevel)
	cfg, err := m.Reload()
	require.NoError(t, err)
	assert.Same(t, m.Get(), cfg)
	needs, err := m.NeedsReload()
	require.NoError(t, err)
	assert.False(t, needs)
}
