package mapper

import (
	"testing"
	"time"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// P8: for each PRIORITY in {0..7, missing, "abc"}, mapping matches the severity table.
func TestMap_SeverityTable(t *testing.T) {
	cases := []struct {
		priority string
		number   logspb.SeverityNumber
		text     string
	}{
		{"0", logspb.SeverityNumber_SEVERITY_NUMBER_FATAL, "FATAL"},
		{"1", logspb.SeverityNumber_SEVERITY_NUMBER_FATAL, "FATAL"},
		{"2", logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, "ERROR"},
		{"3", logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, "ERROR"},
		{"4", logspb.SeverityNumber_SEVERITY_NUMBER_WARN, "WARN"},
		{"5", logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"},
		{"6", logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"},
		{"7", logspb.SeverityNumber_SEVERITY_NUMBER_DEBUG, "DEBUG"},
		{"", logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"},
		{"abc", logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"},
	}

	for _, tc := range cases {
		t.Run(tc.priority, func(t *testing.T) {
			rec := journal.Record{"__CURSOR": "c1", "MESSAGE": "m", "PRIORITY": tc.priority}
			result := Map([]journal.Record{rec}, SourceInfo{Name: "host-01"}, fixedClock(time.Unix(0, 0)))
			require.Len(t, result.ResourceLogs, 1)
			logRecord := result.ResourceLogs[0].ScopeLogs[0].LogRecords[0]
			assert.Equal(t, tc.number, logRecord.SeverityNumber)
			assert.Equal(t, tc.text, logRecord.SeverityText)
		})
	}
}

// P7: mapping a record with all recognized fields yields the documented OTLP
// fields, and non-recognized attributes round-trip as string attributes.
func TestMap_FullRecordRoundTrip(t *testing.T) {
	rec := journal.Record{
		"__CURSOR":             "c1",
		"__REALTIME_TIMESTAMP": "1700000000000000",
		"MESSAGE":              "hello world",
		"PRIORITY":             "3",
		"_SYSTEMD_UNIT":        "sshd.service",
		"_PID":                 "1234",
		"_HOSTNAME":            "box01",
	}

	result := Map([]journal.Record{rec}, SourceInfo{Name: "host-01", Labels: map[string]string{"dc": "us-east-1"}}, fixedClock(time.Unix(0, 0)))

	require.Len(t, result.ResourceLogs, 1)
	rl := result.ResourceLogs[0]
	require.Len(t, rl.ScopeLogs, 1)
	require.Len(t, rl.ScopeLogs[0].LogRecords, 1)

	lr := rl.ScopeLogs[0].LogRecords[0]
	assert.Equal(t, uint64(1700000000000000000), lr.TimeUnixNano)
	assert.Equal(t, "hello world", lr.Body.GetStringValue())
	assert.Equal(t, logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, lr.SeverityNumber)
	assert.Equal(t, "ERROR", lr.SeverityText)

	attrByKey := map[string]string{}
	for _, attr := range lr.Attributes {
		attrByKey[attr.Key] = attr.Value.GetStringValue()
	}
	assert.Equal(t, "1234", attrByKey["_PID"])
	assert.Equal(t, "box01", attrByKey["_HOSTNAME"])
	assert.NotContains(t, attrByKey, "__CURSOR")
	assert.NotContains(t, attrByKey, "MESSAGE")
	assert.NotContains(t, attrByKey, "_SYSTEMD_UNIT")

	resAttr := map[string]string{}
	for _, attr := range rl.Resource.Attributes {
		resAttr[attr.Key] = attr.Value.GetStringValue()
	}
	assert.Equal(t, "host-01", resAttr["host.name"])
	assert.Equal(t, "sshd.service", resAttr["service.name"])
	assert.Equal(t, "linux", resAttr["os.type"])
	assert.Equal(t, "us-east-1", resAttr["dc"])
}

func TestMap_MissingTimestampFallsBackToWallClock(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := journal.Record{"__CURSOR": "c1", "MESSAGE": "m"}

	result := Map([]journal.Record{rec}, SourceInfo{Name: "host-01"}, fixedClock(now))
	lr := result.ResourceLogs[0].ScopeLogs[0].LogRecords[0]
	assert.Equal(t, uint64(now.UnixNano()), lr.TimeUnixNano)
}

func TestMap_MissingMessageIsDropped(t *testing.T) {
	records := []journal.Record{
		{"__CURSOR": "c1", "MESSAGE": "A"},
		{"__CURSOR": "c2"},
		{"__CURSOR": "c3", "MESSAGE": "C"},
	}

	result := Map(records, SourceInfo{Name: "host-01"}, fixedClock(time.Unix(0, 0)))
	assert.Equal(t, 1, result.DroppedNoBody)

	var total int
	for _, rl := range result.ResourceLogs {
		for _, sl := range rl.ScopeLogs {
			total += len(sl.LogRecords)
		}
	}
	assert.Equal(t, 2, total)
}

func TestMap_MissingUnitDefaultsToUnknown(t *testing.T) {
	rec := journal.Record{"__CURSOR": "c1", "MESSAGE": "m"}
	result := Map([]journal.Record{rec}, SourceInfo{Name: "host-01"}, fixedClock(time.Unix(0, 0)))

	resAttr := map[string]string{}
	for _, attr := range result.ResourceLogs[0].Resource.Attributes {
		resAttr[attr.Key] = attr.Value.GetStringValue()
	}
	assert.Equal(t, "unknown", resAttr["service.name"])
}

// Scenario 6: multi-unit grouping preserves per-unit order and produces one
// ResourceLogs entry per distinct unit.
func TestMap_GroupsByUnitPreservingOrder(t *testing.T) {
	records := []journal.Record{
		{"__CURSOR": "c1", "MESSAGE": "1", "_SYSTEMD_UNIT": "sshd.service"},
		{"__CURSOR": "c2", "MESSAGE": "2", "_SYSTEMD_UNIT": "docker.service"},
		{"__CURSOR": "c3", "MESSAGE": "3", "_SYSTEMD_UNIT": "sshd.service"},
	}

	result := Map(records, SourceInfo{Name: "host-01"}, fixedClock(time.Unix(0, 0)))
	require.Len(t, result.ResourceLogs, 2)

	byService := map[string][]string{}
	for _, rl := range result.ResourceLogs {
		var svc string
		for _, attr := range rl.Resource.Attributes {
			if attr.Key == "service.name" {
				svc = attr.Value.GetStringValue()
			}
		}
		for _, lr := range rl.ScopeLogs[0].LogRecords {
			byService[svc] = append(byService[svc], lr.Body.GetStringValue())
		}
	}
	assert.Equal(t, []string{"1", "3"}, byService["sshd.service"])
	assert.Equal(t, []string{"2"}, byService["docker.service"])
}
