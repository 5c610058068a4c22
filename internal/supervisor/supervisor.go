// Package supervisor wires a validated Config into a running fleet of Source
// Collectors: it owns the process-wide HTTP client, the Metrics Registry,
// the errgroup that keeps every collector goroutine accounted for, and the
// shutdown grace timer that bounds the wait for them.
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/collector"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/config"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/cursor"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/journal"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/metrics"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/otlpexport"
)

// ShutdownGrace bounds how long in-flight cycles are given to finish once a
// shutdown signal arrives before the process gives up waiting on them.
const ShutdownGrace = 35 * time.Second

// Supervisor owns the shared dependencies every Collector is built from and
// the lifecycle of their goroutines.
type Supervisor struct {
	cfg     config.Config
	logger  *logrus.Logger
	metrics *metrics.PrometheusRegistry

	httpClient *http.Client
	cursors    *cursor.Store

	collectors []*collector.Collector
}

// New builds a Supervisor from a validated Config. It does not start any
// goroutines; call Run or RunOnce for that.
func New(cfg config.Config, logger *logrus.Logger) (*Supervisor, error) {
	cursors, err := cursor.NewStore(cfg.CursorDir)
	if err != nil {
		return nil, fmt.Errorf("opening cursor store: %w", err)
	}

	maxIdlePerHost := len(cfg.Sources)
	if maxIdlePerHost < 4 {
		maxIdlePerHost = 4
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: journal.RequestTimeout,
	}
	httpClient := &http.Client{Transport: transport}

	reg := metrics.NewPrometheusRegistry()

	s := &Supervisor{
		cfg:        cfg,
		logger:     logger,
		metrics:    reg,
		httpClient: httpClient,
		cursors:    cursors,
	}

	journalClient := journal.NewClient(httpClient)
	exporter := otlpexport.NewExporter(httpClient)

	for _, src := range cfg.Sources {
		c := collector.New(collector.Config{
			SourceName:   src.Name,
			SourceURL:    src.URL,
			Units:        src.Units,
			Labels:       src.Labels,
			BatchSize:    cfg.BatchSize,
			PollInterval: cfg.PollInterval,
			OTLPEndpoint: cfg.OTLPEndpoint,
		}, journalClient, exporter, cursors, reg, logger.WithField("source", src.Name), time.Now)
		s.collectors = append(s.collectors, c)
	}

	return s, nil
}

// Metrics exposes the registry so the caller can wire a metrics HTTP server
// without this package depending on net/http handlers directly.
func (s *Supervisor) Metrics() *metrics.PrometheusRegistry { return s.metrics }

// Run starts one goroutine per configured source and blocks until ctx is
// canceled, then waits up to ShutdownGrace for every collector's in-flight
// cycle to finish before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range s.collectors {
		c := c
		g.Go(func() error {
			c.Run(gctx)
			return nil
		})
	}

	<-gctx.Done()
	s.logger.Info("shutdown signal received, waiting for in-flight cycles to finish")

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(ShutdownGrace):
		s.logger.Warn("shutdown grace period elapsed, exiting without waiting further")
		return nil
	}
}

// RunOnce drives exactly one cycle per configured source, concurrently, and
// returns once all of them have completed. Used by the --once runtime mode.
func (s *Supervisor) RunOnce(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.collectors {
		c := c
		g.Go(func() error {
			c.RunOnce(gctx)
			return nil
		})
	}
	return g.Wait()
}
