package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"wifiscore/internal/config"
	"wifiscore/internal/model"
)

// StartNATS subscribes to the configured subject, joining the queue group when
// one is set. The connection is drained when ctx is done.
func StartNATS(ctx context.Context, cfg *config.Manager, out chan<- model.LifecycleEvent, logger *slog.Logger) (*nats.Conn, error) {
	current := cfg.Get().Ingest.NATS
	if !current.Enabled {
		if logger != nil {
			logger.Info("nats ingest disabled")
		}
		return nil, nil
	}
	if logger != nil {
		logger.Info("nats ingest enabled", "url", current.URL, "subject", current.Subject, "queue", current.Queue)
	}
	nc, err := nats.Connect(current.URL,
		nats.Name("wifiscore"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil && logger != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if logger != nil {
				logger.Info("nats reconnected", "url", c.ConnectedUrl())
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	handler := func(m *nats.Msg) {
		handleLine(ctx, string(m.Data), SourceNATS, cfg, NewParser(), out, logger)
	}
	if current.Queue != "" {
		_, err = nc.QueueSubscribe(current.Subject, current.Queue, handler)
	} else {
		_, err = nc.Subscribe(current.Subject, handler)
	}
	if err != nil {
		nc.Close()
		return nil, err
	}
	go func() {
		<-ctx.Done()
		if err := nc.Drain(); err != nil && logger != nil {
			logger.Warn("nats drain error", "err", err)
		}
	}()
	return nc, nil
}
