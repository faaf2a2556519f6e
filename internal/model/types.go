package model

import (
	"strings"
	"time"
)

// InvalidRSSI is the reserved "no signal" reading.
const InvalidRSSI = -127

// DefaultBSSID is the placeholder address reported while no access point is associated.
const DefaultBSSID = "02:00:00:00:00:00"

type EventKind int

const (
	EventSignalPoll EventKind = iota
	EventConnectionAttempt
	EventFirstPollAfterConnection
	EventIPConfigurationSuccess
	EventIPReachabilityLost
	EventValidationSuccess
	EventValidationFailure
	EventConnectionFailure
	EventWifiDisabled
)

var eventNames = [...]string{
	EventSignalPoll:               "signal_poll",
	EventConnectionAttempt:        "connection_attempt",
	EventFirstPollAfterConnection: "first_poll_after_connection",
	EventIPConfigurationSuccess:   "ip_configuration_success",
	EventIPReachabilityLost:       "ip_reachability_lost",
	EventValidationSuccess:        "validation_success",
	EventValidationFailure:        "validation_failure",
	EventConnectionFailure:        "connection_failure",
	EventWifiDisabled:             "wifi_disabled",
}

// EventKinds lists every kind in declaration order.
func EventKinds() []EventKind {
	out := make([]EventKind, len(eventNames))
	for i := range eventNames {
		out[i] = EventKind(i)
	}
	return out
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

func (k EventKind) Valid() bool {
	return k >= 0 && int(k) < len(eventNames)
}

// TracksElapsed reports whether buckets of this kind carry an elapsed-time metric.
func (k EventKind) TracksElapsed() bool {
	switch k {
	case EventSignalPoll, EventConnectionAttempt:
		return false
	default:
		return k.Valid()
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseEventKind(string(b))
	if !ok {
		return &UnknownNameError{Kind: "event", Name: string(b)}
	}
	*k = parsed
	return nil
}

// ParseEventKind accepts the snake case name, case-insensitively, with '-' or ' ' as separators.
func ParseEventKind(s string) (EventKind, bool) {
	n := canonicalName(s)
	for i, name := range eventNames {
		if name == n {
			return EventKind(i), true
		}
	}
	return 0, false
}

type Metric int

const (
	MetricRSSI Metric = iota
	MetricLinkSpeed
	MetricElapsedMs
)

var metricNames = [...]string{
	MetricRSSI:      "rssi",
	MetricLinkSpeed: "linkspeed",
	MetricElapsedMs: "elapsed_ms",
}

func Metrics() []Metric {
	return []Metric{MetricRSSI, MetricLinkSpeed, MetricElapsedMs}
}

func (m Metric) String() string {
	if m < 0 || int(m) >= len(metricNames) {
		return "unknown"
	}
	return metricNames[m]
}

func (m Metric) Valid() bool {
	return m >= 0 && int(m) < len(metricNames)
}

func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(b []byte) error {
	parsed, ok := ParseMetric(string(b))
	if !ok {
		return &UnknownNameError{Kind: "metric", Name: string(b)}
	}
	*m = parsed
	return nil
}

func ParseMetric(s string) (Metric, bool) {
	n := canonicalName(s)
	if n == "link_speed" {
		n = "linkspeed"
	}
	for i, name := range metricNames {
		if name == n {
			return Metric(i), true
		}
	}
	return 0, false
}

type UnknownNameError struct {
	Kind string
	Name string
}

func (e *UnknownNameError) Error() string {
	return "unknown " + e.Kind + " name: " + e.Name
}

func canonicalName(s string) string {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	return strings.ReplaceAll(n, " ", "_")
}

// Observation is what the connection manager reports about the current link.
type Observation struct {
	SSID      string `json:"ssid"`
	BSSID     string `json:"bssid"`
	Frequency int    `json:"frequency"`
	RSSI      int    `json:"rssi"`
	LinkSpeed int    `json:"link_speed"`
}

// Lifecycle identifies an entry point of the score card.
type Lifecycle string

const (
	LifecycleConnectionAttempt  Lifecycle = "connection_attempt"
	LifecycleSignalPoll         Lifecycle = "signal_poll"
	LifecycleIPConfiguration    Lifecycle = "ip_configuration"
	LifecycleValidationSuccess  Lifecycle = "validation_success"
	LifecycleValidationFailure  Lifecycle = "validation_failure"
	LifecycleIPReachabilityLost Lifecycle = "ip_reachability_lost"
	LifecycleConnectionFailure  Lifecycle = "connection_failure"
	LifecycleWifiDisabled       Lifecycle = "wifi_disabled"
)

type LifecycleEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Call      Lifecycle   `json:"call"`
	Obs       Observation `json:"observation"`
	// ElapsedMs is the device's boot-relative time. It is used only when
	// HasElapsed is set; zero is a valid reading.
	ElapsedMs  int64  `json:"elapsed_ms,omitempty"`
	HasElapsed bool   `json:"has_elapsed,omitempty"`
	Source     string `json:"source,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

type RecordKind string

const (
	RecordBSSID RecordKind = "bssid"
	RecordSSID  RecordKind = "ssid"
)

// StatSnapshot mirrors stats.Snapshot for wire and storage use.
type StatSnapshot struct {
	Count        int64   `json:"count"`
	Sum          float64 `json:"sum"`
	SumOfSquares float64 `json:"sum_of_squares"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

type SignalSnapshot struct {
	Event     EventKind               `json:"event"`
	Frequency int                     `json:"frequency"`
	Metrics   map[Metric]StatSnapshot `json:"metrics"`
}

type RecordSnapshot struct {
	ID        int64            `json:"id"`
	Kind      RecordKind       `json:"kind"`
	Key       string           `json:"key"`
	SSID      string           `json:"ssid,omitempty"`
	BSSID     string           `json:"bssid,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
	Signals   []SignalSnapshot `json:"signals"`
}

type Diagnostic struct {
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session,omitempty"`
	Call      Lifecycle `json:"call"`
	BSSID     string    `json:"bssid,omitempty"`
	SSID      string    `json:"ssid,omitempty"`
	State     string    `json:"state"`
	Reason    string    `json:"reason"`
}
