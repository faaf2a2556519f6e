package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"wifiscore/internal/api"
	"wifiscore/internal/config"
	"wifiscore/internal/diagnostics"
	"wifiscore/internal/engine"
	"wifiscore/internal/ingest"
	"wifiscore/internal/logging"
	"wifiscore/internal/metrics"
	"wifiscore/internal/model"
	"wifiscore/internal/scorecard"
	"wifiscore/internal/storage"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	watchInterval := flag.Duration("watch", 3*time.Second, "config reload poll interval")
	flag.Parse()

	if err := run(*configPath, *watchInterval); err != nil {
		fmt.Fprintln(os.Stderr, "wifiscore:", err)
		os.Exit(1)
	}
}

func run(configPath string, watchInterval time.Duration) error {
	cfgManager, err := config.NewManager(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := cfgManager.Get()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting wifiscore", "version", version, "config", cfgManager.Path())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	instruments := metrics.NewInstruments()
	instruments.Register(reg)

	eng := engine.NewEngine(cfg, engine.Deps{
		Logger:      logger,
		Snapshots:   metrics.NewStore(cfg.Snapshots.StoreLimit),
		Diagnostics: diagnostics.NewStore(cfg.Diagnostics.StoreLimit),
		Store:       store,
		Instruments: instruments,
		Clock:       scorecard.NewSystemClock(),
	})
	if n, err := eng.Restore(ctx); err != nil {
		logger.Warn("restore records failed", "err", err)
	} else if store != nil {
		logger.Info("records restored", "count", n)
	}

	events := make(chan model.LifecycleEvent, cfg.Ingest.ChannelBuffer)
	eng.Start(ctx, events)

	ingest.StartREST(ctx, cfgManager, events, logger)
	ingest.StartTCPStream(ctx, cfgManager, events, logger)
	ingest.StartFileTail(ctx, cfgManager, events, logger)
	ingest.StartKafka(ctx, cfgManager, events, logger)
	if _, err := ingest.StartNATS(ctx, cfgManager, events, logger); err != nil {
		logger.Error("nats ingest failed", "err", err)
	}
	api.Start(ctx, cfgManager, eng, reg, logger, version)

	go cfgManager.Watch(ctx, watchInterval, func(next *config.Config) {
		eng.UpdateConfig(next)
		logger.Info("config reloaded", "path", cfgManager.Path())
	}, func(err error) {
		logger.Warn("config reload failed", "err", err)
	})

	<-ctx.Done()
	logger.Info("shutting down")
	return flush(eng, logger)
}

func flush(eng *engine.Engine, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Flush(ctx); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	logger.Info("records flushed")
	return nil
}
