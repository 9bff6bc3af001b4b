package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"exec-gateway/internal/api"
	"exec-gateway/internal/engine"
	"exec-gateway/internal/journal"
	"exec-gateway/internal/monitor"
	"exec-gateway/internal/transport"
	"exec-gateway/pkg/clock"
	"exec-gateway/pkg/config"
	"exec-gateway/pkg/venue"
	"exec-gateway/pkg/venue/paper"
)

// fanoutPublisher tees every outbound message to the WebSocket hub and,
// when journaling is on, to the sqlite journal. Hub delivery is best
// effort; a journal write error is the one that matters.
type fanoutPublisher struct {
	hub *transport.Hub
	jrn *journal.Journal
}

func (p *fanoutPublisher) Publish(topic string, payload []byte) error {
	_ = p.hub.Publish(topic, payload)
	if p.jrn != nil {
		return p.jrn.Record(topic, payload)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := bootstrapLogger()
		boot.Fatal().Err(err).Msg("config load failed")
	}

	log := buildLogger(cfg)

	instanceID, err := machineid.ID()
	if err != nil {
		instanceID = uuid.NewString()
		log.Warn().Err(err).Msg("machine id unavailable, using random instance id")
	}

	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "dev"
	}
	log.Info().Str("instance", instanceID).Str("version", version).Msg("starting execution gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jrn *journal.Journal
	if cfg.JournalEnabled {
		jrn, err = journal.Open(cfg.JournalPath, log)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.JournalPath).Msg("journal open failed")
		}
		defer jrn.Close()
		log.Info().Str("path", cfg.JournalPath).Msg("journal enabled")
	}

	resolver := venue.NewCredentialsResolver(nil)
	adapters := make([]venue.Adapter, 0, len(cfg.Venues))
	venueNames := make([]string, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		switch vc.Kind {
		case "paper":
			adapters = append(adapters, paper.New(paper.Config{
				Name:    vc.Name,
				FeeRate: decimal.NewFromFloat(cfg.PaperFee),
			}))
			venueNames = append(venueNames, vc.Name)
		default:
			// Only the built-in simulator ships here; external adapter kinds
			// still get their credentials checked so misconfiguration shows
			// up at startup rather than on the first order.
			if _, err := resolver.Resolve(vc.Name); err != nil {
				log.Warn().Err(err).Str("venue", vc.Name).Msg("venue credentials missing")
			}
			log.Error().Str("venue", vc.Name).Str("kind", vc.Kind).Msg("no adapter for venue kind, skipping")
		}
	}
	if len(adapters) == 0 {
		log.Fatal().Msg("no usable venues configured")
	}

	stats := monitor.NewStats()
	hist := monitor.NewLatencyHistogram(4096)
	clk := clock.Calibrate()

	eng := engine.New(engine.Config{
		OrderPoolSize:      cfg.OrderPoolSize,
		ReportPoolSize:     cfg.ReportPoolSize,
		FillPoolSize:       cfg.FillPoolSize,
		ProcessedCapacity:  cfg.ProcessedCapacity,
		PendingCapacity:    cfg.PendingCapacity,
		QueueCapacity:      cfg.QueueCapacity,
		IdleBackoff:        cfg.IdleBackoff,
		ProcessedRetention: cfg.ProcessedRetention,
		InstanceTag:        instanceID,
	}, adapters, clk, stats, hist, log)

	intake := transport.NewIntakeQueue(cfg.IntakeBuffer, log)
	hub := transport.NewHub(log)
	pub := &fanoutPublisher{hub: hub, jrn: jrn}

	for _, ad := range adapters {
		if err := ad.Connect(ctx); err != nil {
			log.Fatal().Err(err).Str("venue", ad.Name()).Msg("venue connect failed")
		}
		defer ad.Disconnect()
	}
	eng.Reconcile(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eng.Run(ctx, intake)
	}()
	go func() {
		defer wg.Done()
		eng.RunPublisher(ctx, pub)
	}()

	mon := &monitor.Monitor{
		Stats:     stats,
		Histogram: hist,
		Interval:  cfg.StatsInterval,
		Log:       log,
		Alerter: &monitor.Alerter{
			Sink: monitor.LogSink{Fn: func(msg string) { log.Warn().Msg(msg) }},
		},
	}
	go mon.Run(ctx)

	server := api.NewServer(eng, stats, hist, jrn, hub, intake,
		api.SystemMeta{
			InstanceID: instanceID,
			Version:    version,
			Venues:     venueNames,
			Paper:      cfg.Paper,
		},
		cfg.JWTSecret, cfg.AdminPassHash, log)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("api server error")
		}
	}()
	log.Info().Str("port", cfg.Port).Strs("venues", venueNames).Msg("execution gateway up")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")

	// Cancel, then wait for the intake loop to stop and the publisher to
	// drain what is already queued.
	cancel()
	wg.Wait()
	if jrn != nil {
		if err := jrn.Flush(); err != nil {
			log.Error().Err(err).Msg("journal flush on shutdown failed")
		}
	}
	log.Info().Msg("shutdown complete")
}

func bootstrapLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func buildLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.New(os.Stdout)
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return out.Level(level).With().Timestamp().Logger()
}
