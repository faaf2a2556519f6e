package api

import (
	"time"

	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
	"wifiscore/internal/stats"
)

type statView struct {
	Count        int64   `json:"count"`
	Sum          float64 `json:"sum"`
	SumOfSquares float64 `json:"sum_of_squares"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"stddev"`
}

type signalView struct {
	Event     model.EventKind           `json:"event"`
	Frequency int                       `json:"frequency"`
	Metrics   map[model.Metric]statView `json:"metrics"`
}

type recordView struct {
	ID        int64            `json:"id"`
	Kind      model.RecordKind `json:"kind"`
	Key       string           `json:"key"`
	SSID      string           `json:"ssid,omitempty"`
	BSSID     string           `json:"bssid,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
	Signals   []signalView     `json:"signals"`
}

func newStatView(s stats.Snapshot) statView {
	return statView{
		Count:        s.Count,
		Sum:          s.Sum,
		SumOfSquares: s.SumOfSquares,
		Min:          s.Min,
		Max:          s.Max,
		Mean:         s.Mean(),
		StdDev:       s.StdDev(),
	}
}

func newSignalView(b *scorecard.Bucket) signalView {
	key := b.Key()
	v := signalView{Event: key.Event, Frequency: key.Frequency, Metrics: make(map[model.Metric]statView)}
	for _, m := range b.Metrics() {
		if snap, ok := b.Snapshot(m); ok {
			v.Metrics[m] = newStatView(snap)
		}
	}
	return v
}

func newRecordView(r *scorecard.Record) recordView {
	buckets := r.Buckets()
	v := recordView{
		ID:        r.ID(),
		Kind:      r.Kind(),
		Key:       r.Key(),
		SSID:      r.SSID(),
		BSSID:     r.BSSID(),
		UpdatedAt: r.UpdatedAt(),
		Signals:   make([]signalView, 0, len(buckets)),
	}
	for _, b := range buckets {
		v.Signals = append(v.Signals, newSignalView(b))
	}
	return v
}
