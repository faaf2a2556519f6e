package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"wifiscore/internal/model"
)

// Instruments groups the engine's prometheus collectors. A nil *Instruments is
// valid and records nothing.
type Instruments struct {
	EventsProcessed *prometheus.CounterVec
	EventsDuplicate prometheus.Counter
	SamplesRecorded *prometheus.CounterVec
	SamplesDropped  *prometheus.CounterVec
	RecordsCreated  *prometheus.CounterVec
	Diagnostics     prometheus.Counter
}

func NewInstruments() *Instruments {
	return &Instruments{
		EventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wifiscore",
				Name:      "events_processed_total",
				Help:      "Lifecycle calls processed by the engine",
			},
			[]string{"call"},
		),
		EventsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifiscore",
			Name:      "events_duplicate_total",
			Help:      "Lifecycle calls discarded as duplicates",
		}),
		SamplesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wifiscore",
				Name:      "samples_recorded_total",
				Help:      "Samples added to accumulators",
			},
			[]string{"event", "metric"},
		),
		SamplesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wifiscore",
				Name:      "samples_dropped_total",
				Help:      "Samples skipped before accumulation",
			},
			[]string{"event", "reason"},
		),
		RecordsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wifiscore",
				Name:      "records_created_total",
				Help:      "Per-entity records created",
			},
			[]string{"kind"},
		),
		Diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wifiscore",
			Name:      "diagnostics_total",
			Help:      "Out-of-order lifecycle calls tolerated",
		}),
	}
}

// Register adds all collectors to reg, ignoring ones already registered.
func (in *Instruments) Register(reg prometheus.Registerer) {
	if in == nil || reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{
		in.EventsProcessed, in.EventsDuplicate, in.SamplesRecorded,
		in.SamplesDropped, in.RecordsCreated, in.Diagnostics,
	} {
		_ = reg.Register(c)
	}
}

func (in *Instruments) EventProcessed(call model.Lifecycle) {
	if in == nil {
		return
	}
	in.EventsProcessed.WithLabelValues(string(call)).Inc()
}

func (in *Instruments) Duplicate() {
	if in == nil {
		return
	}
	in.EventsDuplicate.Inc()
}

func (in *Instruments) SampleRecorded(event model.EventKind, metric model.Metric) {
	if in == nil {
		return
	}
	in.SamplesRecorded.WithLabelValues(event.String(), metric.String()).Inc()
}

func (in *Instruments) SampleDropped(event model.EventKind, reason string) {
	if in == nil {
		return
	}
	in.SamplesDropped.WithLabelValues(event.String(), reason).Inc()
}

func (in *Instruments) RecordCreated(kind model.RecordKind) {
	if in == nil {
		return
	}
	in.RecordsCreated.WithLabelValues(string(kind)).Inc()
}

func (in *Instruments) DiagnosticRaised() {
	if in == nil {
		return
	}
	in.Diagnostics.Inc()
}
