package ingest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
)

func receive(t *testing.T, out <-chan model.LifecycleEvent) model.LifecycleEvent {
	t.Helper()
	select {
	case ev := <-out:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("no event received")
	}
	return model.LifecycleEvent{}
}

func TestRESTEvents(t *testing.T) {
	out := make(chan model.LifecycleEvent, 4)
	srv := httptest.NewServer(NewRESTServer(config.NewStaticManager(nil), out, nil).Routes())
	defer srv.Close()

	body := `[{"event":"connection_attempt","bssid":"AA:BB:CC:DD:EE:FF","rssi":-60},{"event":"roam"}]`
	resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ev := receive(t, out)
	assert.Equal(t, model.LifecycleConnectionAttempt, ev.Call)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", ev.Obs.BSSID)
	assert.Equal(t, -60, ev.Obs.RSSI)
	assert.Equal(t, SourceREST, ev.Source)
	assert.Empty(t, out)
}

func TestRESTRejectsBadInput(t *testing.T) {
	out := make(chan model.LifecycleEvent, 1)
	srv := httptest.NewServer(NewRESTServer(config.NewStaticManager(nil), out, nil).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/events", "application/json", strings.NewReader(`{"event":"unknown"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSendNonBlockingDropsWhenFull(t *testing.T) {
	out := make(chan model.LifecycleEvent, 1)
	ctx := context.Background()
	assert.True(t, SendNonBlocking(ctx, out, model.LifecycleEvent{}, nil))
	assert.False(t, SendNonBlocking(ctx, out, model.LifecycleEvent{}, nil))
}

func TestTCPStream(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ingest.TCPStream = config.TCPStreamConfig{Enabled: true, Addr: "127.0.0.1:0"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan model.LifecycleEvent, 4)

	ln := StartTCPStream(ctx, config.NewStaticManager(cfg), out, nil)
	require.NotNil(t, ln)
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = fmt.Fprintln(conn, "garbage line without event=")
	require.NoError(t, err)
	_, err = fmt.Fprintln(conn, "event=signal_poll bssid=aa:bb:cc:dd:ee:ff rssi=-70 link_speed=54 freq=2412")
	require.NoError(t, err)

	ev := receive(t, out)
	assert.Equal(t, model.LifecycleSignalPoll, ev.Call)
	assert.Equal(t, 2412, ev.Obs.Frequency)
	assert.Equal(t, SourceTCPStream, ev.Source)
}

func TestFileTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.log")
	require.NoError(t, os.WriteFile(path, []byte("event=connection_attempt bssid=aa:bb:cc:dd:ee:01\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Ingest.FileTail = config.FileTailConfig{Enabled: true, StartAtEnd: false, Files: []string{path}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan model.LifecycleEvent, 4)
	StartFileTail(ctx, config.NewStaticManager(cfg), out, nil)

	ev := receive(t, out)
	assert.Equal(t, model.LifecycleConnectionAttempt, ev.Call)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("event=wifi_disabled elapsed_ms=120\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ev = receive(t, out)
	assert.Equal(t, model.LifecycleWifiDisabled, ev.Call)
	assert.Equal(t, int64(120), ev.ElapsedMs)
	assert.Equal(t, SourceFileTail, ev.Source)
}

func TestDisabledTransportsAreNoops(t *testing.T) {
	m := config.NewStaticManager(nil)
	ctx := context.Background()
	out := make(chan model.LifecycleEvent)
	assert.Nil(t, StartTCPStream(ctx, m, out, nil))
	nc, err := StartNATS(ctx, m, out, nil)
	assert.NoError(t, err)
	assert.Nil(t, nc)
	StartKafka(ctx, m, out, nil)
	StartFileTail(ctx, m, out, nil)
}
