package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiscore/internal/config"
	"wifiscore/internal/engine"
	"wifiscore/internal/metrics"
	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
)

type fixture struct {
	srv   *httptest.Server
	eng   *engine.Engine
	clock *scorecard.ManualClock
	cfg   *config.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.NewStaticManager(nil)
	reg := prometheus.NewRegistry()
	in := metrics.NewInstruments()
	in.Register(reg)
	clock := scorecard.NewManualClock(1_700_000_000_000)
	eng := engine.NewEngine(cfg.Get(), engine.Deps{Instruments: in, Clock: clock})
	srv := httptest.NewServer(NewServer(cfg, eng, reg, nil, "test").Routes())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, eng: eng, clock: clock, cfg: cfg}
}

func (f *fixture) feed(call model.Lifecycle, rssi int) {
	f.eng.ProcessEvent(model.LifecycleEvent{
		Call: call,
		Obs: model.Observation{
			SSID:      "home",
			BSSID:     "aa:bb:cc:dd:ee:ff",
			Frequency: 5805,
			RSSI:      rssi,
			LinkSpeed: 866,
		},
	})
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatusAndRecords(t *testing.T) {
	f := newFixture(t)
	f.feed(model.LifecycleConnectionAttempt, -60)

	var status statusResponse
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/status", &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, 1, status.Engine.BSSIDs)
	assert.Equal(t, "connecting", status.Engine.Cursor.State)

	var list struct {
		BSSIDs []string `json:"bssids"`
		Count  int      `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/records", &list))
	assert.Equal(t, []string{"aa:bb:cc:dd:ee:ff"}, list.BSSIDs)

	var rec recordView
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/records/AA:BB:CC:DD:EE:FF", &rec))
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "home", rec.SSID)
	require.Len(t, rec.Signals, 1)
	assert.Equal(t, model.EventConnectionAttempt, rec.Signals[0].Event)

	assert.Equal(t, http.StatusNotFound, getJSON(t, f.srv.URL+"/records/11:22:33:44:55:66", nil))

	var network recordView
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/networks/home", &network))
	assert.Equal(t, int64(2), network.ID)
}

func TestSignalEndpoint(t *testing.T) {
	f := newFixture(t)
	f.feed(model.LifecycleSignalPoll, -77)
	f.feed(model.LifecycleSignalPoll, -55)

	var sig signalView
	url := f.srv.URL + "/records/aa:bb:cc:dd:ee:ff/signals/signal_poll/5805"
	require.Equal(t, http.StatusOK, getJSON(t, url, &sig))
	rssi := sig.Metrics[model.MetricRSSI]
	assert.Equal(t, int64(2), rssi.Count)
	assert.Equal(t, -132.0, rssi.Sum)
	assert.Equal(t, 8954.0, rssi.SumOfSquares)
	assert.Equal(t, -66.0, rssi.Mean)
	assert.Equal(t, 11.0, rssi.StdDev)
	_, hasElapsed := sig.Metrics[model.MetricElapsedMs]
	assert.False(t, hasElapsed)

	assert.Equal(t, http.StatusNotFound, getJSON(t, f.srv.URL+"/records/aa:bb:cc:dd:ee:ff/signals/signal_poll/2412", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.srv.URL+"/records/aa:bb:cc:dd:ee:ff/signals/roaming/5805", nil))
}

func TestDiagnosticsAndClear(t *testing.T) {
	f := newFixture(t)
	f.feed(model.LifecycleIPConfiguration, -60)

	var diags struct {
		Diagnostics []model.Diagnostic `json:"diagnostics"`
		Count       int                `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/diagnostics?limit=5", &diags))
	assert.Equal(t, 1, diags.Count)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.srv.URL+"/diagnostics?since=yesterday", nil))
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/diagnostics?since=2000-01-01T00:00:00Z", &diags))
	assert.Equal(t, 1, diags.Count)

	resp, err := http.Post(f.srv.URL+"/admin/clear", "application/json", strings.NewReader(`{"target":"diagnostics"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.eng.Diagnostics().Len())
	bssids, _ := f.eng.Directory().Len()
	assert.Equal(t, 1, bssids)

	resp, err = http.Post(f.srv.URL+"/admin/clear", "application/json", strings.NewReader(`{"target":"diagnostics"`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	bssids, _ = f.eng.Directory().Len()
	assert.Equal(t, 1, bssids, "a truncated body must not reset the engine")

	resp, err = http.Post(f.srv.URL+"/admin/clear", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	bssids, _ = f.eng.Directory().Len()
	assert.Zero(t, bssids)

	resp, err = http.Post(f.srv.URL+"/admin/clear", "application/json", strings.NewReader(`{"target":"everything"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIgnoreConfig(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.srv.URL+"/config/ignore", "application/json",
		strings.NewReader(`{"ignored_bssids":[" aa:bb:cc:dd:ee:ff ",""],"ignored_ssids":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lists ignoreLists
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/config/ignore", &lists))
	assert.Equal(t, []string{"aa:bb:cc:dd:ee:ff"}, lists.BSSIDs)

	f.feed(model.LifecycleSignalPoll, -60)
	bssids, ssids := f.eng.Directory().Len()
	assert.Zero(t, bssids+ssids)
}

func TestSnapshotsAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.feed(model.LifecycleSignalPoll, -60)

	var snaps struct {
		Records []model.RecordSnapshot `json:"records"`
		Count   int                    `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/snapshots?kind=ssid", &snaps))
	assert.Equal(t, 1, snaps.Count)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.srv.URL+"/snapshots?kind=ap", nil))

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `wifiscore_events_processed_total{call="signal_poll"} 1`)
}
