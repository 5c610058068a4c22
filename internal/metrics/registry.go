// Package metrics implements the Metrics Registry (C7): the counters and
// gauges each Source Collector updates on its hot path, exposed through an
// interface so a trivial external HTTP handler can serve them without the
// collection engine depending on net/http itself.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the write-side interface the Source Collector drives. It is
// intentionally narrow: the collector never reads metrics back, only
// increments or sets them.
type Registry interface {
	EntriesForwarded(source string, count int)
	EntriesDropped(source, reason string)
	PollError(source, kind string)
	ExportError(source, kind string)
	CursorWriteError(source string)
	LastPollTimestamp(source string, t time.Time)
	PollDuration(source string, d time.Duration)
}

// PrometheusRegistry backs Registry with a private prometheus.Registry so
// multiple instances (as in tests) never collide on the global default
// registry.
type PrometheusRegistry struct {
	registry *prometheus.Registry

	entriesForwarded  *prometheus.CounterVec
	entriesDropped    *prometheus.CounterVec
	pollErrors        *prometheus.CounterVec
	exportErrors      *prometheus.CounterVec
	cursorWriteErrors *prometheus.CounterVec
	lastPollTimestamp *prometheus.GaugeVec
	pollDuration      *prometheus.GaugeVec
}

// NewPrometheusRegistry registers the seven metrics spec.md §4.7 names
// against a fresh prometheus.Registry.
func NewPrometheusRegistry() *PrometheusRegistry {
	reg := prometheus.NewRegistry()

	r := &PrometheusRegistry{
		registry: reg,
		entriesForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojgf_entries_forwarded_total",
			Help: "Total journal entries successfully forwarded to the OTLP endpoint.",
		}, []string{"source"}),
		entriesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojgf_entries_dropped_total",
			Help: "Total journal entries dropped before export.",
		}, []string{"source", "reason"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojgf_poll_errors_total",
			Help: "Total errors encountered polling a journal gateway.",
		}, []string{"source", "error"}),
		exportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojgf_export_errors_total",
			Help: "Total errors encountered exporting to the OTLP endpoint.",
		}, []string{"source", "kind"}),
		cursorWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ojgf_cursor_write_errors_total",
			Help: "Total cursor persistence failures after a successful export.",
		}, []string{"source"}),
		lastPollTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ojgf_last_poll_timestamp_seconds",
			Help: "Unix timestamp of the last completed poll cycle.",
		}, []string{"source"}),
		pollDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ojgf_poll_duration_seconds",
			Help: "Wall time of the last poll cycle.",
		}, []string{"source"}),
	}

	reg.MustRegister(
		r.entriesForwarded,
		r.entriesDropped,
		r.pollErrors,
		r.exportErrors,
		r.cursorWriteErrors,
		r.lastPollTimestamp,
		r.pollDuration,
	)
	return r
}

// Gatherer exposes the underlying registry for a promhttp.HandlerFor call,
// keeping this package free of any net/http dependency.
func (r *PrometheusRegistry) Gatherer() prometheus.Gatherer { return r.registry }

func (r *PrometheusRegistry) EntriesForwarded(source string, count int) {
	r.entriesForwarded.WithLabelValues(source).Add(float64(count))
}

func (r *PrometheusRegistry) EntriesDropped(source, reason string) {
	r.entriesDropped.WithLabelValues(source, reason).Inc()
}

func (r *PrometheusRegistry) PollError(source, kind string) {
	r.pollErrors.WithLabelValues(source, kind).Inc()
}

func (r *PrometheusRegistry) ExportError(source, kind string) {
	r.exportErrors.WithLabelValues(source, kind).Inc()
}

func (r *PrometheusRegistry) CursorWriteError(source string) {
	r.cursorWriteErrors.WithLabelValues(source).Inc()
}

func (r *PrometheusRegistry) LastPollTimestamp(source string, t time.Time) {
	r.lastPollTimestamp.WithLabelValues(source).Set(float64(t.Unix()))
}

func (r *PrometheusRegistry) PollDuration(source string, d time.Duration) {
	r.pollDuration.WithLabelValues(source).Set(d.Seconds())
}
