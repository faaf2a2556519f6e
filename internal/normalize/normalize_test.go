package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
)

func TestNormalizeFullEvent(t *testing.T) {
	ev, err := Normalize(EventFields{
		Timestamp: "2026-02-23T12:34:56Z",
		Event:     "Signal-Poll",
		SSID:      `"home"`,
		BSSID:     "AA-BB-CC-DD-EE-FF",
		Frequency: "5805",
		RSSI:      "-55",
		LinkSpeed: "866",
		ElapsedMs: "12345",
		Raw:       "raw line",
	}, config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, model.LifecycleSignalPoll, ev.Call)
	assert.Equal(t, model.Observation{SSID: "home", BSSID: "aa:bb:cc:dd:ee:ff", Frequency: 5805, RSSI: -55, LinkSpeed: 866}, ev.Obs)
	assert.Equal(t, int64(12345), ev.ElapsedMs)
	assert.True(t, ev.HasElapsed)
	assert.Equal(t, time.Date(2026, 2, 23, 12, 34, 56, 0, time.UTC), ev.Timestamp)
	assert.Equal(t, "raw line", ev.Raw)
}

func TestNormalizeDefaults(t *testing.T) {
	ev, err := Normalize(EventFields{Event: "wifi_disabled", BSSID: "garbage"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.InvalidRSSI, ev.Obs.RSSI)
	assert.Equal(t, -1, ev.Obs.LinkSpeed)
	assert.Zero(t, ev.Obs.Frequency)
	assert.Equal(t, "garbage", ev.Obs.BSSID)
	assert.Zero(t, ev.ElapsedMs)
	assert.False(t, ev.HasElapsed)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestNormalizeZeroElapsedIsPresent(t *testing.T) {
	ev, err := Normalize(EventFields{Event: "connection_attempt", ElapsedMs: "0"}, nil)
	require.NoError(t, err)
	assert.Zero(t, ev.ElapsedMs)
	assert.True(t, ev.HasElapsed)
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize(EventFields{}, nil)
	assert.ErrorIs(t, err, ErrMissingKind)

	_, err = Normalize(EventFields{Event: "roam"}, nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Normalize(EventFields{Event: "poll", RSSI: "strong"}, nil)
	assert.Error(t, err)

	_, err = Normalize(EventFields{Event: "poll", Timestamp: "yesterday"}, nil)
	assert.Error(t, err)
}

func TestParseCallAliases(t *testing.T) {
	cases := map[string]model.Lifecycle{
		"connection attempt":       model.LifecycleConnectionAttempt,
		"IP_CONFIGURATION":         model.LifecycleIPConfiguration,
		"validated":                model.LifecycleValidationSuccess,
		"validation-failure":       model.LifecycleValidationFailure,
		"reachability_lost":        model.LifecycleIPReachabilityLost,
		"connection_failed":        model.LifecycleConnectionFailure,
		"ip_configuration_success": model.LifecycleIPConfiguration,
	}
	for name, want := range cases {
		got, err := ParseCall(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000123", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts.UnixMilli())

	ts, err = ParseTimestamp("1700000000", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts.Unix())

	ts, err = ParseTimestamp("10-14 08:15:30.250", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.October, ts.Month())
	assert.Equal(t, 250*time.Millisecond, time.Duration(ts.Nanosecond()))
	assert.Equal(t, time.Now().Year(), ts.Year())
}

func TestParseIntAcceptsJSONFloats(t *testing.T) {
	v, err := parseInt("frequency", "5805.0", 0)
	require.NoError(t, err)
	assert.Equal(t, 5805, v)
}
