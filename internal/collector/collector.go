// Package collector implements the Source Collector (C5): the per-source
// state machine that drives poll -> map -> export -> commit, one cycle at a
// time, with exponential backoff on failure and exactly-at-least-once
// delivery semantics.
package collector

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/sirupsen/logrus"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/errs"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/journal"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/mapper"
	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/metrics"
)

// JournalFetcher is the subset of journal.Client the Collector depends on,
// narrowed to an interface so tests can substitute a fake gateway.
type JournalFetcher interface {
	Fetch(ctx context.Context, baseURL string, units []string, mode journal.Mode, limit int) (journal.Batch, error)
}

// LogExporter is the subset of otlpexport.Exporter the Collector depends on.
type LogExporter interface {
	Export(ctx context.Context, endpoint string, resourceLogs []*logspb.ResourceLogs) error
}

// CursorStore is the subset of cursor.Store the Collector depends on.
type CursorStore interface {
	Load(name string) (cursor string, ok bool, err error)
	Store(name, cursorValue string) error
	Reset(name string) error
}

// Config configures a single Collector instance.
type Config struct {
	SourceName   string
	SourceURL    string
	Units        []string
	Labels       map[string]string
	BatchSize    int
	PollInterval time.Duration
	OTLPEndpoint string
}

// Collector drives one configured source through its state machine. It must
// not be shared across goroutines: per-source serialization (invariant 3,
// spec.md §3) is achieved structurally by running exactly one goroutine per
// Collector.
type Collector struct {
	cfg Config

	journal  JournalFetcher
	exporter LogExporter
	cursors  CursorStore
	metrics  metrics.Registry
	logger   *logrus.Entry
	now      func() time.Time

	backoff *backoff.ExponentialBackOff

	cursorLoaded bool
	cursorValue  string
}

// New builds a Collector. now defaults to time.Now when nil, overridable in
// tests for deterministic timestamp fallback assertions.
func New(cfg Config, journalClient JournalFetcher, exporter LogExporter, cursors CursorStore, reg metrics.Registry, logger *logrus.Entry, now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.PollInterval
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Minute
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0 // never stop retrying; the process runs indefinitely
	b.Reset()

	return &Collector{
		cfg:      cfg,
		journal:  journalClient,
		exporter: exporter,
		cursors:  cursors,
		metrics:  reg,
		logger:   logger,
		now:      now,
		backoff:  b,
	}
}

// Run loops Tick until ctx is canceled, sleeping the scheduled delay between
// cycles.
func (c *Collector) Run(ctx context.Context) {
	for {
		delay := c.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// RunOnce executes exactly one cycle and returns, ignoring the scheduled
// delay — used by the Supervisor's --once runtime mode.
func (c *Collector) RunOnce(ctx context.Context) {
	c.Tick(ctx)
}

// Tick executes one poll -> map -> export -> commit cycle and returns the
// delay before the next cycle should run.
func (c *Collector) Tick(ctx context.Context) time.Duration {
	start := c.now()

	mode, err := c.currentMode()
	if err != nil {
		// Cursor file unreadable: treat as no prior state so the collector
		// still makes progress, but surface the error.
		c.logger.WithError(err).Warn("failed to load cursor, resuming from current boot")
		mode = journal.FromCurrentBoot()
	}

	batch, err := c.journal.Fetch(ctx, c.cfg.SourceURL, c.cfg.Units, mode, c.cfg.BatchSize)
	if err != nil {
		return c.handlePollError(err)
	}

	c.metrics.LastPollTimestamp(c.cfg.SourceName, c.now())
	c.metrics.PollDuration(c.cfg.SourceName, c.now().Sub(start))

	if batch.DroppedNoCursor > 0 {
		for i := 0; i < batch.DroppedNoCursor; i++ {
			c.metrics.EntriesDropped(c.cfg.SourceName, "no_cursor")
		}
	}
	if batch.DroppedMalformed > 0 {
		for i := 0; i < batch.DroppedMalformed; i++ {
			c.metrics.EntriesDropped(c.cfg.SourceName, "malformed")
		}
	}

	if len(batch.Records) == 0 {
		c.backoff.Reset()
		return c.cfg.PollInterval
	}

	result := mapper.Map(batch.Records, mapper.SourceInfo{Name: c.cfg.SourceName, Labels: c.cfg.Labels}, c.now)
	for i := 0; i < result.DroppedNoBody; i++ {
		c.metrics.EntriesDropped(c.cfg.SourceName, "no_message")
	}

	if err := c.exporter.Export(ctx, c.cfg.OTLPEndpoint, result.ResourceLogs); err != nil {
		return c.handleExportError(err)
	}

	lastCursor := batch.Records[len(batch.Records)-1]["__CURSOR"]
	c.cursorValue = lastCursor
	c.cursorLoaded = true

	if err := c.cursors.Store(c.cfg.SourceName, lastCursor); err != nil {
		// The export already succeeded: advance in-memory state to avoid
		// replaying already-delivered records to the backend, accepting
		// that an unplanned restart before the next successful write will
		// re-poll from the last persisted cursor instead (documented
		// trade-off, spec.md §4.5 step 11).
		c.metrics.CursorWriteError(c.cfg.SourceName)
		c.logger.WithError(err).Error("cursor persistence failed after successful export")
	}

	forwarded := countLogRecords(result.ResourceLogs)
	c.metrics.EntriesForwarded(c.cfg.SourceName, forwarded)
	c.backoff.Reset()

	if len(batch.Records) == c.cfg.BatchSize {
		// Drain mode: more records likely remain, don't wait poll_interval.
		return 0
	}
	return c.cfg.PollInterval
}

func (c *Collector) currentMode() (journal.Mode, error) {
	if c.cursorLoaded {
		if c.cursorValue == "" {
			return journal.FromCurrentBoot(), nil
		}
		return journal.FromCursor(c.cursorValue), nil
	}

	value, ok, err := c.cursors.Load(c.cfg.SourceName)
	if err != nil {
		return journal.Mode{}, err
	}
	c.cursorLoaded = true
	c.cursorValue = value
	if !ok {
		return journal.FromCurrentBoot(), nil
	}
	return journal.FromCursor(value), nil
}

func (c *Collector) handlePollError(err error) time.Duration {
	switch {
	case errs.Is(err, errs.KindCursorInvalid):
		c.metrics.PollError(c.cfg.SourceName, "cursor_invalid")
		c.cursorValue = ""
		c.cursorLoaded = true
		if resetErr := c.cursors.Reset(c.cfg.SourceName); resetErr != nil {
			c.logger.WithError(resetErr).Error("failed to reset cursor after CursorInvalid")
		}
		return 0

	case errs.Is(err, errs.KindSourceUnavailable):
		c.metrics.PollError(c.cfg.SourceName, "unavailable")
		c.logger.WithError(err).Warn("journal gateway unavailable")
		return c.backoff.NextBackOff()

	case errs.Is(err, errs.KindSourceProtocol):
		c.metrics.PollError(c.cfg.SourceName, "protocol")
		c.logger.WithError(err).Warn("journal gateway protocol error")
		return c.backoff.NextBackOff()

	default:
		c.metrics.PollError(c.cfg.SourceName, "unknown")
		c.logger.WithError(err).Error("unexpected journal client error")
		return c.backoff.NextBackOff()
	}
}

func (c *Collector) handleExportError(err error) time.Duration {
	switch {
	case errs.Is(err, errs.KindExportRetriable):
		c.metrics.ExportError(c.cfg.SourceName, "retriable")
		c.logger.WithError(err).Warn("export failed, will retry")
	case errs.Is(err, errs.KindExportPermanent):
		c.metrics.ExportError(c.cfg.SourceName, "permanent")
		c.logger.WithError(err).Error("export failed permanently, operator attention required")
	default:
		c.metrics.ExportError(c.cfg.SourceName, "unknown")
		c.logger.WithError(err).Error("unexpected exporter error")
	}
	return c.backoff.NextBackOff()
}

func countLogRecords(resourceLogs []*logspb.ResourceLogs) int {
	var n int
	for _, rl := range resourceLogs {
		for _, sl := range rl.ScopeLogs {
			n += len(sl.LogRecords)
		}
	}
	return n
}
