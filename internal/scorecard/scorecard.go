package scorecard

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wifiscore/internal/model"
)

// Drop reasons reported to the Observer.
const (
	DropInvalidRSSI    = "invalid_rssi"
	DropInvalidLink    = "invalid_link_speed"
	DropNoAttempt      = "no_attempt_start"
	DropClockBackwards = "clock_backwards"
	DropNoIPConfig     = "no_ip_configuration"
	DropIgnored        = "ignored_observation"
)

// Observer receives notifications about what the score card did with a call.
// Implementations must not call back into the ScoreCard.
type Observer interface {
	SampleRecorded(event model.EventKind, metric model.Metric)
	SampleDropped(event model.EventKind, reason string)
	Diagnostic(d model.Diagnostic)
}

type nopObserver struct{}

func (nopObserver) SampleRecorded(model.EventKind, model.Metric) {}
func (nopObserver) SampleDropped(model.EventKind, string)        {}
func (nopObserver) Diagnostic(model.Diagnostic)                  {}

type Option func(*ScoreCard)

func WithObserver(o Observer) Option {
	return func(s *ScoreCard) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithIgnore drops record updates for observations for which fn returns true.
// The lifecycle cursor still advances.
func WithIgnore(fn func(model.Observation) bool) Option {
	return func(s *ScoreCard) { s.ignore = fn }
}

// ScoreCard turns connection lifecycle calls into samples in a Directory.
// Calls are expected from one goroutine at a time; a mutex keeps the cursor
// consistent if that is violated.
type ScoreCard struct {
	clock    Clock
	dir      *Directory
	observer Observer
	ignore   func(model.Observation) bool

	mu     sync.Mutex
	cursor cursor
}

func New(clock Clock, dir *Directory, opts ...Option) *ScoreCard {
	if clock == nil {
		clock = NewSystemClock()
	}
	if dir == nil {
		dir = NewDirectory()
	}
	s := &ScoreCard{
		clock:    clock,
		dir:      dir,
		observer: nopObserver{},
		cursor:   idleCursor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ScoreCard) Directory() *Directory {
	return s.dir
}

func (s *ScoreCard) Cursor() CursorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.view()
}

// FetchByBSSID is shorthand for Directory().FetchByBSSID.
func (s *ScoreCard) FetchByBSSID(bssid string) *Record {
	return s.dir.FetchByBSSID(bssid)
}

func (s *ScoreCard) FetchBySSID(ssid string) *Record {
	return s.dir.FetchBySSID(ssid)
}

// Note dispatches a lifecycle call by name. Unknown calls return nil.
func (s *ScoreCard) Note(call model.Lifecycle, obs model.Observation) []*Record {
	switch call {
	case model.LifecycleConnectionAttempt:
		return s.NoteConnectionAttempt(obs)
	case model.LifecycleSignalPoll:
		return s.NoteSignalPoll(obs)
	case model.LifecycleIPConfiguration:
		return s.NoteIPConfiguration(obs)
	case model.LifecycleValidationSuccess:
		return s.NoteValidationSuccess(obs)
	case model.LifecycleValidationFailure:
		return s.NoteValidationFailure(obs)
	case model.LifecycleIPReachabilityLost:
		return s.NoteIPReachabilityLost(obs)
	case model.LifecycleConnectionFailure:
		return s.NoteConnectionFailure(obs)
	case model.LifecycleWifiDisabled:
		return s.NoteWifiDisabled(obs)
	}
	return nil
}

// NoteConnectionAttempt starts a new session. An attempt that interrupts a
// pending one abandons it without recording an outcome.
func (s *ScoreCard) NoteConnectionAttempt(obs model.Observation) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.state == StateConnecting {
		s.diagLocked(model.LifecycleConnectionAttempt, obs, "previous attempt abandoned")
	}
	s.cursor = cursor{
		state:        StateConnecting,
		attemptStart: s.clock.ElapsedSinceBootMillis(),
		ipConfigured: tsNone,
		session:      uuid.NewString(),
	}
	return s.updateLocked(model.EventConnectionAttempt, obs)
}

// NoteSignalPoll records rssi and link speed under the signal-poll kind. The
// first poll with a valid RSSI after IP configuration is also recorded, with
// its elapsed time, as the first poll after connection.
func (s *ScoreCard) NoteSignalPoll(obs model.Observation) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var touched []*Record
	if s.cursor.state == StateConnected && !s.cursor.polled && obs.RSSI != model.InvalidRSSI {
		touched = s.updateLocked(model.EventFirstPollAfterConnection, obs)
		s.cursor.polled = true
	}
	return mergeRecords(touched, s.updateLocked(model.EventSignalPoll, obs))
}

func (s *ScoreCard) NoteIPConfiguration(obs model.Observation) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.state != StateConnecting {
		s.diagLocked(model.LifecycleIPConfiguration, obs, "ip configuration while "+s.cursor.state.String())
	}
	touched := s.updateLocked(model.EventIPConfigurationSuccess, obs)
	s.cursor.state = StateConnected
	s.cursor.ipConfigured = s.clock.ElapsedSinceBootMillis()
	s.cursor.polled = false
	return touched
}

func (s *ScoreCard) NoteValidationSuccess(obs model.Observation) []*Record {
	return s.noteWhileConnected(model.LifecycleValidationSuccess, model.EventValidationSuccess, obs)
}

func (s *ScoreCard) NoteValidationFailure(obs model.Observation) []*Record {
	return s.noteWhileConnected(model.LifecycleValidationFailure, model.EventValidationFailure, obs)
}

func (s *ScoreCard) NoteIPReachabilityLost(obs model.Observation) []*Record {
	return s.noteWhileConnected(model.LifecycleIPReachabilityLost, model.EventIPReachabilityLost, obs)
}

func (s *ScoreCard) noteWhileConnected(call model.Lifecycle, event model.EventKind, obs model.Observation) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.state != StateConnected {
		s.diagLocked(call, obs, string(call)+" while "+s.cursor.state.String())
	}
	return s.updateLocked(event, obs)
}

// NoteConnectionFailure records time-to-failure and ends the session.
func (s *ScoreCard) NoteConnectionFailure(obs model.Observation) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.state == StateDisconnected {
		s.diagLocked(model.LifecycleConnectionFailure, obs, "connection failure without attempt")
	}
	touched := s.updateLocked(model.EventConnectionFailure, obs)
	s.cursor = idleCursor()
	return touched
}

// NoteWifiDisabled records the session length and ends the session. The
// elapsed sample is kept only when IP configuration succeeded first.
func (s *ScoreCard) NoteWifiDisabled(obs model.Observation) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.state != StateConnected {
		s.diagLocked(model.LifecycleWifiDisabled, obs, "wifi disabled while "+s.cursor.state.String())
	}
	touched := s.updateLocked(model.EventWifiDisabled, obs)
	s.cursor = idleCursor()
	return touched
}

func (s *ScoreCard) updateLocked(event model.EventKind, obs model.Observation) []*Record {
	type sample struct {
		metric model.Metric
		value  float64
	}
	samples := make([]sample, 0, 3)
	if obs.RSSI != model.InvalidRSSI {
		samples = append(samples, sample{model.MetricRSSI, float64(obs.RSSI)})
	} else {
		s.observer.SampleDropped(event, DropInvalidRSSI)
	}
	if obs.LinkSpeed > 0 {
		samples = append(samples, sample{model.MetricLinkSpeed, float64(obs.LinkSpeed)})
	} else {
		s.observer.SampleDropped(event, DropInvalidLink)
	}
	if event.TracksElapsed() {
		now := s.clock.ElapsedSinceBootMillis()
		if event == model.EventWifiDisabled && s.cursor.ipConfigured == tsNone {
			s.observer.SampleDropped(event, DropNoIPConfig)
		} else if ms, ok := s.cursor.elapsedSince(now); ok {
			samples = append(samples, sample{model.MetricElapsedMs, float64(ms)})
		} else if s.cursor.attemptStart == tsNone {
			s.observer.SampleDropped(event, DropNoAttempt)
		} else {
			s.observer.SampleDropped(event, DropClockBackwards)
		}
	}
	if len(samples) == 0 {
		return nil
	}

	if s.ignore != nil && s.ignore(obs) {
		s.observer.SampleDropped(event, DropIgnored)
		return nil
	}
	ssid := CleanSSID(obs.SSID)
	bssid, bssidOK := NormalizeBSSID(obs.BSSID)
	bssidOK = bssidOK && UsableBSSID(bssid)
	if !bssidOK {
		bssid = ""
	}
	targets := make([]*Record, 0, 2)
	if bssidOK {
		targets = append(targets, s.dir.FetchByBSSID(bssid))
	}
	if ssid != "" {
		targets = append(targets, s.dir.FetchBySSID(ssid))
	}
	if len(targets) == 0 {
		s.observer.SampleDropped(event, DropIgnored)
		return nil
	}

	wall := s.clock.WallClockMillis()
	for _, r := range targets {
		r.note(ssid, bssid, wall)
		b := r.Bucket(event, obs.Frequency)
		for _, smp := range samples {
			b.Accumulator(smp.metric).Add(smp.value)
		}
	}
	for _, smp := range samples {
		s.observer.SampleRecorded(event, smp.metric)
	}
	return targets
}

func (s *ScoreCard) diagLocked(call model.Lifecycle, obs model.Observation, reason string) {
	s.observer.Diagnostic(model.Diagnostic{
		Timestamp: time.UnixMilli(s.clock.WallClockMillis()).UTC(),
		Session:   s.cursor.session,
		Call:      call,
		BSSID:     obs.BSSID,
		SSID:      obs.SSID,
		State:     s.cursor.state.String(),
		Reason:    reason,
	})
}

// CleanSSID strips surrounding quotes and rejects placeholder names.
func CleanSSID(ssid string) string {
	ssid = strings.TrimSpace(ssid)
	if len(ssid) >= 2 && strings.HasPrefix(ssid, `"`) && strings.HasSuffix(ssid, `"`) {
		ssid = ssid[1 : len(ssid)-1]
	}
	if ssid == "<unknown ssid>" {
		return ""
	}
	return ssid
}

func mergeRecords(a, b []*Record) []*Record {
	if len(a) == 0 {
		return b
	}
	out := a
	for _, r := range b {
		dup := false
		for _, existing := range a {
			if existing == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}
