package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRegistry_EntriesForwarded(t *testing.T) {
	r := NewPrometheusRegistry()
	r.EntriesForwarded("host-01", 3)
	r.EntriesForwarded("host-01", 2)

	assert.Equal(t, float64(5), testutil.ToFloat64(r.entriesForwarded.WithLabelValues("host-01")))
}

func TestPrometheusRegistry_EntriesDropped(t *testing.T) {
	r := NewPrometheusRegistry()
	r.EntriesDropped("host-01", "no_message")
	r.EntriesDropped("host-01", "no_message")
	r.EntriesDropped("host-01", "no_cursor")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.entriesDropped.WithLabelValues("host-01", "no_message")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.entriesDropped.WithLabelValues("host-01", "no_cursor")))
}

func TestPrometheusRegistry_LastPollTimestamp(t *testing.T) {
	r := NewPrometheusRegistry()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.LastPollTimestamp("host-01", now)

	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(r.lastPollTimestamp.WithLabelValues("host-01")))
}

func TestPrometheusRegistry_IsolatedPerInstance(t *testing.T) {
	a := NewPrometheusRegistry()
	b := NewPrometheusRegistry()

	a.EntriesForwarded("host-01", 10)
	assert.Equal(t, float64(0), testutil.ToFloat64(b.entriesForwarded.WithLabelValues("host-01")))
}
