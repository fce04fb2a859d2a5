package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"call-relay/internal/api"
	"call-relay/internal/config"
	"call-relay/internal/dispatch"
	"call-relay/internal/engine"
	"call-relay/internal/sinks/kafka"
	"call-relay/internal/sinks/sheets"
	"call-relay/internal/sinks/slack"
	"call-relay/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sinks
	disp, closeSinks, err := NewDispatcher(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init sinks")
	}
	defer closeSinks()

	// Engine
	filter := Filter(cfg)
	if filter.CampaignName == "" {
		log.Warn().Msg("filter campaign name is empty; only events without a campaign will pass the gate")
	}
	eng := engine.NewEngine(filter)

	// HTTP
	h := api.NewWebhookHandler(eng, disp)
	r := api.Router(h, cfg.Server.RequestTimeout)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("campaign", filter.CampaignName).
			Str("target", filter.TargetName).
			Str("log_sink", disp.LogSinkName()).
			Strs("alert_sinks", disp.AlertSinkNames()).
			Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutdown...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel()
	_ = srv.Shutdown(shCtx)
}

// Filter builds the immutable filter from configuration.
func Filter(cfg config.Config) engine.FilterConfig {
	return engine.FilterConfig{
		CampaignName: cfg.Filter.CampaignName,
		TargetName:   cfg.Filter.TargetName,
	}
}

// NewDispatcher builds the configured log sink and alert sinks. The
// returned func closes whatever holds connections.
func NewDispatcher(ctx context.Context, cfg config.Config) (*dispatch.Dispatcher, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("close sink")
			}
		}
	}

	logSink, err := NewLogSink(ctx, cfg)
	if err != nil {
		return nil, closeAll, err
	}
	if c, ok := logSink.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	var alerts []dispatch.AlertSink
	if cfg.Slack.WebhookURL != "" {
		s, err := slack.NewSender(cfg.Slack.WebhookURL, cfg.Dispatch.Timeout)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		alerts = append(alerts, s)
	} else {
		log.Warn().Msg("slack webhook URL not set; alerts disabled")
	}
	if cfg.Kafka.Enabled {
		p, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Dispatch.Timeout)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		alerts = append(alerts, p)
		closers = append(closers, p.Close)
	}

	d := dispatch.New(logSink, alerts,
		dispatch.WithTimeout(cfg.Dispatch.Timeout),
		dispatch.WithLink(cfg.Dispatch.LogLink),
	)
	return d, closeAll, nil
}

func NewLogSink(ctx context.Context, cfg config.Config) (dispatch.LogSink, error) {
	switch cfg.LogSink.Driver {
	case "sheets", "":
		return sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Tab:             cfg.Sheets.Tab,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			CredentialsJSON: cfg.Sheets.CredentialsJSON,
		})
	case "postgres", "postgresql", "sqlite":
		return storage.Open(ctx, cfg.LogSink.Driver, cfg.LogSink.DSN, cfg.Dispatch.LogLink)
	default:
		return nil, fmt.Errorf("unknown log sink driver %q", cfg.LogSink.Driver)
	}
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
