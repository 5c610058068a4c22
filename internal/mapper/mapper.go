// Package mapper converts decoded journal records into OTLP log records,
// grouped into ResourceLogs by systemd unit. It is a pure, non-suspending
// transformation: no I/O, no clock reads beyond the documented fallback.
package mapper

import (
	"strconv"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/journal"
)

const unknownUnit = "unknown"

// recognizedKeys are consumed directly by the mapping and never copied into
// the OTLP attribute map.
var recognizedKeys = map[string]struct{}{
	"__CURSOR":             {},
	"__REALTIME_TIMESTAMP": {},
	"MESSAGE":              {},
	"PRIORITY":             {},
	"_SYSTEMD_UNIT":        {},
}

// severityTable implements spec.md §4.3's PRIORITY mapping exactly.
var severityTable = map[string]struct {
	number logspb.SeverityNumber
	text   string
}{
	"0": {logspb.SeverityNumber_SEVERITY_NUMBER_FATAL, "FATAL"},
	"1": {logspb.SeverityNumber_SEVERITY_NUMBER_FATAL, "FATAL"},
	"2": {logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, "ERROR"},
	"3": {logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, "ERROR"},
	"4": {logspb.SeverityNumber_SEVERITY_NUMBER_WARN, "WARN"},
	"5": {logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"},
	"6": {logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"},
	"7": {logspb.SeverityNumber_SEVERITY_NUMBER_DEBUG, "DEBUG"},
}

var defaultSeverity = severityTable["6"]

// Result is the outcome of mapping one batch: the grouped ResourceLogs ready
// for export, and a count of records dropped for lacking MESSAGE.
type Result struct {
	ResourceLogs  []*logspb.ResourceLogs
	DroppedNoBody int
}

// SourceInfo supplies the resource attributes that are constant for every
// record in a batch from one configured source.
type SourceInfo struct {
	Name   string
	Labels map[string]string
}

// Map groups records by _SYSTEMD_UNIT and converts each group into one
// ResourceLogs with a single, empty-scope ScopeLogs holding the records in
// their original order.
func Map(records []journal.Record, src SourceInfo, now func() time.Time) Result {
	order := make([]string, 0)
	groups := make(map[string][]*logspb.LogRecord)
	var dropped int

	for _, rec := range records {
		message, hasMessage := rec["MESSAGE"]
		if !hasMessage {
			dropped++
			continue
		}

		unit := rec["_SYSTEMD_UNIT"]
		if unit == "" {
			unit = unknownUnit
		}
		if _, seen := groups[unit]; !seen {
			order = append(order, unit)
		}
		groups[unit] = append(groups[unit], toLogRecord(rec, message, now))
	}

	resourceLogs := make([]*logspb.ResourceLogs, 0, len(order))
	for _, unit := range order {
		resourceLogs = append(resourceLogs, &logspb.ResourceLogs{
			Resource: &resourcepb.Resource{
				Attributes: resourceAttributes(src, unit),
			},
			ScopeLogs: []*logspb.ScopeLogs{
				{LogRecords: groups[unit]},
			},
		})
	}

	return Result{ResourceLogs: resourceLogs, DroppedNoBody: dropped}
}

func toLogRecord(rec journal.Record, message string, now func() time.Time) *logspb.LogRecord {
	sev := severityFor(rec["PRIORITY"])

	return &logspb.LogRecord{
		TimeUnixNano:   timestampFor(rec, now),
		SeverityNumber: sev.number,
		SeverityText:   sev.text,
		Body:           &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: message}},
		Attributes:     attributesFor(rec),
	}
}

func timestampFor(rec journal.Record, now func() time.Time) uint64 {
	raw, ok := rec["__REALTIME_TIMESTAMP"]
	if !ok {
		return uint64(now().UnixNano())
	}
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return uint64(now().UnixNano())
	}
	return uint64(micros) * 1000
}

func severityFor(priority string) struct {
	number logspb.SeverityNumber
	text   string
} {
	if sev, ok := severityTable[priority]; ok {
		return sev
	}
	return defaultSeverity
}

func attributesFor(rec journal.Record) []*commonpb.KeyValue {
	attrs := make([]*commonpb.KeyValue, 0, len(rec))
	for k, v := range rec {
		if _, recognized := recognizedKeys[k]; recognized {
			continue
		}
		attrs = append(attrs, stringAttr(k, v))
	}
	return attrs
}

func resourceAttributes(src SourceInfo, unit string) []*commonpb.KeyValue {
	attrs := []*commonpb.KeyValue{
		stringAttr("host.name", src.Name),
		stringAttr("service.name", unit),
		stringAttr("os.type", "linux"),
	}
	for k, v := range src.Labels {
		attrs = append(attrs, stringAttr(k, v))
	}
	return attrs
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}
