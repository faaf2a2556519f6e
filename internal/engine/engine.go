package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"wifiscore/internal/config"
	"wifiscore/internal/diagnostics"
	"wifiscore/internal/metrics"
	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
	"wifiscore/internal/storage"
)

// Engine serializes lifecycle events into a ScoreCard and fans the results out
// to the snapshot store, persistent storage and metrics.
type Engine struct {
	logger      *slog.Logger
	snapshots   *metrics.Store
	diags       *diagnostics.Store
	store       storage.Store
	instruments *metrics.Instruments
	clock       *eventClock

	cfg    atomic.Pointer[config.Config]
	filter atomic.Pointer[ObservationFilter]
	card   atomic.Pointer[scorecard.ScoreCard]

	// gate is held shared for a whole ProcessEvent, fan-out included, and
	// exclusively by Reset, so no save from the old card lands after Clear.
	gate sync.RWMutex
	// mu serializes every call into the score card.
	mu       sync.Mutex
	pending  []model.Diagnostic
	throttle *Throttle
	deDupe   *DedupeCache

	started    time.Time
	processed  atomic.Int64
	duplicates atomic.Int64
}

type Deps struct {
	Logger      *slog.Logger
	Snapshots   *metrics.Store
	Diagnostics *diagnostics.Store
	Store       storage.Store
	Instruments *metrics.Instruments
	Clock       scorecard.Clock
}

// Status is a point-in-time summary for the API.
type Status struct {
	StartedAt  time.Time             `json:"started_at"`
	Cursor     scorecard.CursorState `json:"cursor"`
	BSSIDs     int                   `json:"bssids"`
	SSIDs      int                   `json:"ssids"`
	Processed  int64                 `json:"events_processed"`
	Duplicates int64                 `json:"events_duplicate"`
	Storage    bool                  `json:"storage"`
}

func NewEngine(cfg *config.Config, deps Deps) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Snapshots == nil {
		deps.Snapshots = metrics.NewStore(cfg.Snapshots.StoreLimit)
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = diagnostics.NewStore(cfg.Diagnostics.StoreLimit)
	}
	base := deps.Clock
	if base == nil {
		base = scorecard.NewSystemClock()
	}
	e := &Engine{
		logger:      deps.Logger,
		snapshots:   deps.Snapshots,
		diags:       deps.Diagnostics,
		store:       deps.Store,
		instruments: deps.Instruments,
		clock:       newEventClock(base),
		throttle:    NewThrottle(),
		deDupe:      NewDedupeCache(),
		started:     time.Now().UTC(),
	}
	e.UpdateConfig(cfg)
	e.card.Store(e.newCard())
	return e
}

func (e *Engine) newCard() *scorecard.ScoreCard {
	dir := scorecard.NewDirectory(scorecard.WithCreateHook(e.recordCreated))
	return scorecard.New(e.clock, dir,
		scorecard.WithObserver(observer{e}),
		scorecard.WithIgnore(func(obs model.Observation) bool {
			return e.filter.Load().Ignored(obs)
		}),
	)
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.cfg.Store(cfg)
	e.filter.Store(buildFilter(cfg))
}

func (e *Engine) config() *config.Config {
	if cfg := e.cfg.Load(); cfg != nil {
		return cfg
	}
	return config.DefaultConfig()
}

func (e *Engine) Card() *scorecard.ScoreCard {
	return e.card.Load()
}

func (e *Engine) Directory() *scorecard.Directory {
	return e.Card().Directory()
}

func (e *Engine) Snapshots() *metrics.Store {
	return e.snapshots
}

func (e *Engine) Diagnostics() *diagnostics.Store {
	return e.diags
}

func (e *Engine) Status() Status {
	card := e.Card()
	bssids, ssids := card.Directory().Len()
	return Status{
		StartedAt:  e.started,
		Cursor:     card.Cursor(),
		BSSIDs:     bssids,
		SSIDs:      ssids,
		Processed:  e.processed.Load(),
		Duplicates: e.duplicates.Load(),
		Storage:    e.store != nil,
	}
}

// Start consumes in until ctx is done or in is closed.
func (e *Engine) Start(ctx context.Context, in <-chan model.LifecycleEvent) {
	go func() {
		for {
			select {
			case ev, ok := <-in:
				if !ok {
					return
				}
				e.ProcessEvent(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ProcessEvent applies one lifecycle call and returns snapshots of the records
// it touched. Duplicates and unknown calls return nil.
func (e *Engine) ProcessEvent(ev model.LifecycleEvent) []model.RecordSnapshot {
	e.gate.RLock()
	defer e.gate.RUnlock()
	cfg := e.config()
	if e.isDuplicate(ev, cfg.Scorecard.DedupeWindow) {
		e.duplicates.Add(1)
		e.instruments.Duplicate()
		return nil
	}

	e.mu.Lock()
	e.clock.pin(ev)
	touched := e.Card().Note(ev.Call, ev.Obs)
	e.clock.unpin()
	diags := e.pending
	e.pending = nil
	throttle := e.throttle
	e.mu.Unlock()

	e.processed.Add(1)
	e.instruments.EventProcessed(ev.Call)
	if e.logger != nil {
		e.logger.Debug("lifecycle event",
			"call", ev.Call,
			"bssid", ev.Obs.BSSID,
			"ssid", ev.Obs.SSID,
			"frequency", ev.Obs.Frequency,
			"records", len(touched),
		)
	}

	ctx := context.Background()
	for _, d := range diags {
		e.diags.Add(d)
		if e.logger != nil {
			e.logger.Warn("lifecycle out of order",
				"call", d.Call,
				"state", d.State,
				"session", d.Session,
				"reason", d.Reason,
			)
		}
		if e.store != nil {
			if err := e.store.SaveDiagnostic(ctx, d); err != nil && e.logger != nil {
				e.logger.Warn("save diagnostic failed", "error", err)
			}
		}
	}

	out := make([]model.RecordSnapshot, 0, len(touched))
	for _, r := range touched {
		snap := r.Snapshot()
		out = append(out, snap)
		e.snapshots.Update(snap)
		if e.store == nil {
			continue
		}
		key := metrics.StoreKey(snap.Kind, snap.Key)
		if !throttle.Allow(key, cfg.Scorecard.PersistInterval) {
			continue
		}
		if err := e.store.SaveRecord(ctx, snap); err != nil {
			throttle.Forget(key)
			if e.logger != nil {
				e.logger.Warn("save record failed", "kind", snap.Kind, "key", snap.Key, "error", err)
			}
		}
	}
	return out
}

// Restore seeds the directory from storage. It returns the number of records
// loaded.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	snaps, err := e.store.LoadRecords(ctx)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	dir := e.Directory()
	n := dir.Restore(snaps)
	for _, snap := range dir.Snapshots() {
		e.snapshots.Update(snap)
	}
	return n, nil
}

// Flush writes every record to storage, ignoring the persist throttle.
func (e *Engine) Flush(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	e.gate.RLock()
	defer e.gate.RUnlock()
	var firstErr error
	for _, snap := range e.Directory().Snapshots() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.SaveRecord(ctx, snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Reset drops every record, the lifecycle cursor and the in-memory stores.
// Record IDs start again from 1.
func (e *Engine) Reset(ctx context.Context) error {
	e.gate.Lock()
	defer e.gate.Unlock()
	e.mu.Lock()
	e.card.Store(e.newCard())
	e.pending = nil
	e.throttle = NewThrottle()
	e.deDupe = NewDedupeCache()
	e.mu.Unlock()
	e.snapshots.Clear()
	e.diags.Clear()
	if e.store != nil {
		return e.store.Clear(ctx)
	}
	return nil
}

func (e *Engine) isDuplicate(ev model.LifecycleEvent, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.mu.Lock()
	cache := e.deDupe
	e.mu.Unlock()
	return cache.Seen(hashEvent(ev), now, window)
}

func (e *Engine) recordCreated(r *scorecard.Record) {
	e.instruments.RecordCreated(r.Kind())
	if e.logger != nil {
		e.logger.Info("record created", "kind", r.Kind(), "key", r.Key(), "id", r.ID())
	}
}

// observer runs with e.mu held.
type observer struct {
	e *Engine
}

func (o observer) SampleRecorded(event model.EventKind, metric model.Metric) {
	o.e.instruments.SampleRecorded(event, metric)
}

func (o observer) SampleDropped(event model.EventKind, reason string) {
	o.e.instruments.SampleDropped(event, reason)
}

func (o observer) Diagnostic(d model.Diagnostic) {
	o.e.instruments.DiagnosticRaised()
	o.e.pending = append(o.e.pending, d)
}

// eventClock reports the device's boot-relative time and wall time while an
// event that carries them is being processed, and the base clock otherwise.
type eventClock struct {
	base       scorecard.Clock
	hasElapsed atomic.Bool
	elapsedMs  atomic.Int64
	wallMs     atomic.Int64
}

func newEventClock(base scorecard.Clock) *eventClock {
	return &eventClock{base: base}
}

func (c *eventClock) pin(ev model.LifecycleEvent) {
	if ev.HasElapsed {
		c.elapsedMs.Store(ev.ElapsedMs)
		c.hasElapsed.Store(true)
	}
	if !ev.Timestamp.IsZero() {
		c.wallMs.Store(ev.Timestamp.UnixMilli())
	}
}

func (c *eventClock) unpin() {
	c.hasElapsed.Store(false)
	c.elapsedMs.Store(0)
	c.wallMs.Store(0)
}

func (c *eventClock) ElapsedSinceBootMillis() int64 {
	if c.hasElapsed.Load() {
		return c.elapsedMs.Load()
	}
	return c.base.ElapsedSinceBootMillis()
}

func (c *eventClock) WallClockMillis() int64 {
	if ms := c.wallMs.Load(); ms > 0 {
		return ms
	}
	return c.base.WallClockMillis()
}
