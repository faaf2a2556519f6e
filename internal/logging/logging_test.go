package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("record created", "kind", "bssid", "id", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "record created", line["msg"])
	assert.Equal(t, "bssid", line["kind"])
	assert.EqualValues(t, 3, line["id"])
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("poll", "rssi", -55)
	assert.True(t, strings.Contains(buf.String(), "rssi=-55"))
}
