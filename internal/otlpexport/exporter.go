// Package otlpexport posts OTLP/HTTP JSON ExportLogsServiceRequest bodies to
// a collector endpoint and classifies the response into the retriable /
// permanent taxonomy the Source Collector's state machine depends on.
package otlpexport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/errs"
)

// RequestTimeout bounds every export request, per spec.md §4.4.
const RequestTimeout = 30 * time.Second

var marshalOptions = protojson.MarshalOptions{
	UseEnumNumbers: true,
}

// Exporter is stateless and safe for concurrent use across every collector.
type Exporter struct {
	httpClient *http.Client
}

// NewExporter wraps the shared *http.Client used by every collector.
func NewExporter(httpClient *http.Client) *Exporter {
	return &Exporter{httpClient: httpClient}
}

// Export POSTs resourceLogs to {endpoint}/v1/logs as an OTLP/HTTP JSON
// ExportLogsServiceRequest. A 2xx response is success regardless of body
// content — partial-success semantics are not interpreted, per spec.md §4.4.
func (e *Exporter) Export(ctx context.Context, endpoint string, resourceLogs []*logspb.ResourceLogs) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req := &collectorlogspb.ExportLogsServiceRequest{ResourceLogs: resourceLogs}

	body, err := marshalOptions.Marshal(req)
	if err != nil {
		return errs.New(errs.KindExportPermanent, "otlpexport.Export", fmt.Errorf("marshaling request: %w", err))
	}

	url := strings.TrimRight(endpoint, "/") + "/v1/logs"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errs.New(errs.KindExportPermanent, "otlpexport.Export", fmt.Errorf("building request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return errs.New(errs.KindExportRetriable, "otlpexport.Export", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case isRetriableStatus(resp.StatusCode):
		return errs.New(errs.KindExportRetriable, "otlpexport.Export",
			fmt.Errorf("collector returned %d", resp.StatusCode))
	default:
		return errs.New(errs.KindExportPermanent, "otlpexport.Export",
			fmt.Errorf("collector returned %d", resp.StatusCode))
	}
}

func isRetriableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
