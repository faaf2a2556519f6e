package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
	"wifiscore/internal/normalize"
)

// Source labels set on events by each transport.
const (
	SourceREST      = "rest"
	SourceTCPStream = "tcp_stream"
	SourceFileTail  = "file_tail"
	SourceKafka     = "kafka"
	SourceNATS      = "nats"
)

var errQueueFull = errors.New("event queue full")

func SendNonBlocking(ctx context.Context, out chan<- model.LifecycleEvent, ev model.LifecycleEvent, logger *slog.Logger) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("event channel full, dropping event", "call", ev.Call, "source", ev.Source, "timestamp", ev.Timestamp)
		}
		return false
	}
}

// handleLine parses, normalizes and forwards one line. It reports whether an
// event was queued.
func handleLine(ctx context.Context, line, source string, cfg *config.Manager, parser *Parser, out chan<- model.LifecycleEvent, logger *slog.Logger) bool {
	fields, err := parser.ParseLine(line)
	if err != nil || fields == nil {
		return false
	}
	ev, err := normalize.Normalize(*fields, cfg.Get())
	if err != nil {
		if logger != nil {
			logger.Warn(source+" normalize error", "err", err)
		}
		return false
	}
	ev.Source = source
	return SendNonBlocking(ctx, out, ev, logger)
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
