// Package metricsserver exposes a Metrics Registry over HTTP for Prometheus
// to scrape. It is intentionally the only package in the repository that
// imports promhttp: the collection engine drives metrics through the
// Registry interface and never knows whether anything is listening.
package metricsserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Serve binds addr and serves gatherer at /metrics until the process exits
// or the listener fails. Intended to run in its own goroutine: a bind or
// serve failure is logged but never terminates the collection engine, since
// metrics are an observability surface, not a delivery-correctness dependency.
func Serve(logger *logrus.Logger, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.WithField("addr", addr).Info("serving prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("metrics server stopped")
	}
}
