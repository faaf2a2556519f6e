package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
)

var (
	ErrMissingKind  = errors.New("event kind missing")
	ErrUnknownEvent = errors.New("unknown event")
)

// EventFields are the raw string fields of one lifecycle line.
type EventFields struct {
	Timestamp string
	Event     string
	SSID      string
	BSSID     string
	Frequency string
	RSSI      string
	LinkSpeed string
	ElapsedMs string
	Extras    map[string]string
	Raw       string
}

func Normalize(fields EventFields, cfg *config.Config) (model.LifecycleEvent, error) {
	call, err := ParseCall(fields.Event)
	if err != nil {
		return model.LifecycleEvent{}, err
	}

	loc := time.UTC
	if cfg != nil && cfg.Ingest.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Ingest.Timezone); err == nil {
			loc = l
		}
	}
	ts := time.Now().UTC()
	if strings.TrimSpace(fields.Timestamp) != "" {
		parsed, err := ParseTimestamp(fields.Timestamp, loc)
		if err != nil {
			return model.LifecycleEvent{}, fmt.Errorf("parse timestamp: %w", err)
		}
		ts = parsed.UTC()
	}

	obs := model.Observation{
		SSID:  scorecard.CleanSSID(fields.SSID),
		BSSID: strings.TrimSpace(fields.BSSID),
	}
	if bssid, ok := scorecard.NormalizeBSSID(obs.BSSID); ok {
		obs.BSSID = bssid
	}
	if obs.Frequency, err = parseInt("frequency", fields.Frequency, 0); err != nil {
		return model.LifecycleEvent{}, err
	}
	if obs.RSSI, err = parseInt("rssi", fields.RSSI, model.InvalidRSSI); err != nil {
		return model.LifecycleEvent{}, err
	}
	if obs.LinkSpeed, err = parseInt("link_speed", fields.LinkSpeed, -1); err != nil {
		return model.LifecycleEvent{}, err
	}
	elapsed, err := parseInt("elapsed_ms", fields.ElapsedMs, 0)
	if err != nil {
		return model.LifecycleEvent{}, err
	}
	if elapsed < 0 {
		elapsed = 0
	}

	return model.LifecycleEvent{
		Timestamp:  ts,
		Call:       call,
		Obs:        obs,
		ElapsedMs:  int64(elapsed),
		HasElapsed: strings.TrimSpace(fields.ElapsedMs) != "",
		Source:     "log",
		Raw:        fields.Raw,
	}, nil
}

var callAliases = map[string]model.Lifecycle{
	"connection_attempt":       model.LifecycleConnectionAttempt,
	"attempt":                  model.LifecycleConnectionAttempt,
	"connect":                  model.LifecycleConnectionAttempt,
	"signal_poll":              model.LifecycleSignalPoll,
	"poll":                     model.LifecycleSignalPoll,
	"rssi_poll":                model.LifecycleSignalPoll,
	"ip_configuration":         model.LifecycleIPConfiguration,
	"ip_configuration_success": model.LifecycleIPConfiguration,
	"ip_config":                model.LifecycleIPConfiguration,
	"ip_configured":            model.LifecycleIPConfiguration,
	"validation_success":       model.LifecycleValidationSuccess,
	"validated":                model.LifecycleValidationSuccess,
	"validation_failure":       model.LifecycleValidationFailure,
	"validation_failed":        model.LifecycleValidationFailure,
	"ip_reachability_lost":     model.LifecycleIPReachabilityLost,
	"reachability_lost":        model.LifecycleIPReachabilityLost,
	"connection_failure":       model.LifecycleConnectionFailure,
	"connection_failed":        model.LifecycleConnectionFailure,
	"wifi_disabled":            model.LifecycleWifiDisabled,
	"disabled":                 model.LifecycleWifiDisabled,
}

// ParseCall maps an event name to a lifecycle call. Names are matched
// case-insensitively with '-' and ' ' treated as '_'.
func ParseCall(name string) (model.Lifecycle, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", ErrMissingKind
	}
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	if call, ok := callAliases[n]; ok {
		return call, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

func parseInt(field, value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v, nil
	}
	// JSON numbers arrive via fmt.Sprint and may carry a fraction or exponent.
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return int(f), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"01-02 15:04:05.000",
}

// ParseTimestamp accepts RFC 3339 variants, unix seconds or milliseconds, and
// logcat-style "MM-DD hh:mm:ss.mmm" stamps, which take the current year.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	if isNumeric(value) {
		if ts, err := parseUnix(value); err == nil {
			return ts, nil
		}
	}
	for _, layout := range timestampLayouts {
		if layout == "01-02 15:04:05.000" {
			if t, err := time.ParseInLocation(layout, value, loc); err == nil {
				now := time.Now().In(loc)
				return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
			}
			continue
		}
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}

func isNumeric(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > 0
}

func parseUnix(value string) (time.Time, error) {
	if len(value) >= 13 {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
