package timeline

import (
	"strings"
	"testing"
	"time"

	"sleuth/internal/incident"
)

func TestExtractTimestampEncodings(t *testing.T) {
	tests := []struct {
		name string
		line string
		raw  string
		want time.Time
	}{
		{
			name: "rfc3339",
			line: "2024-03-01T14:22:05Z ERROR payment failed",
			raw:  "2024-03-01T14:22:05Z",
			want: time.Date(2024, 3, 1, 14, 22, 5, 0, time.UTC),
		},
		{
			name: "rfc3339 fractional with offset",
			line: "at 2024-03-01T14:22:05.123+02:00 something happened",
			raw:  "2024-03-01T14:22:05.123+02:00",
			want: time.Date(2024, 3, 1, 14, 22, 5, 123000000, time.FixedZone("", 2*3600)),
		},
		{
			name: "space separated",
			line: "2024-03-01 14:22:05 pool exhausted",
			raw:  "2024-03-01 14:22:05",
			want: time.Date(2024, 3, 1, 14, 22, 5, 0, time.UTC),
		},
		{
			name: "unix seconds",
			line: "ts=1709302925 msg=connection refused",
			raw:  "1709302925",
			want: time.Unix(1709302925, 0).UTC(),
		},
		{
			name: "unix milliseconds",
			line: "1709302925123 gateway 502",
			raw:  "1709302925123",
			want: time.UnixMilli(1709302925123).UTC(),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts, raw, ok := ExtractTimestamp(tc.line)
			if !ok {
				t.Fatalf("ExtractTimestamp(%q): no match", tc.line)
			}
			if raw != tc.raw {
				t.Fatalf("raw: got %q, want %q", raw, tc.raw)
			}
			if !ts.Equal(tc.want) {
				t.Fatalf("time: got %v, want %v", ts, tc.want)
			}
		})
	}
}

func TestExtractTimestampSyslog(t *testing.T) {
	ts, raw, ok := ExtractTimestamp("Mar  1 14:22:05 host kernel: oom-killer invoked")
	if !ok || raw != "Mar  1 14:22:05" {
		t.Fatalf("syslog: ok=%v raw=%q", ok, raw)
	}
	if ts.Hour() != 14 || ts.Minute() != 22 || ts.Day() != 1 {
		t.Fatalf("syslog time: got %v", ts)
	}
}

func TestExtractTimestampNone(t *testing.T) {
	if _, _, ok := ExtractTimestamp("no timestamp in this line"); ok {
		t.Fatal("expected no timestamp match")
	}
}

func TestParseClassifiesAndSuppressesNoise(t *testing.T) {
	a := incident.Artifact{
		Type:     incident.ArtifactLogs,
		SourceID: "api-gateway",
		Content: "2024-03-01T14:22:05Z ERROR payment failed\n" +
			"2024-03-01T14:22:06Z connection refused by db-primary\n" +
			"random chatter without timestamp or signal\n" +
			"2024-03-01T14:22:07Z user clicked the retry button\n",
	}
	events := Parse(a)
	if len(events) != 3 {
		t.Fatalf("Parse: got %d events, want 3: %+v", len(events), events)
	}

	if events[0].Kind != "error" || events[0].Severity != incident.SeverityError {
		t.Fatalf("event 0: got kind=%q severity=%q", events[0].Kind, events[0].Severity)
	}
	if len(events[0].Evidence) != 1 || events[0].Evidence[0].SourceID != "api-gateway" {
		t.Fatalf("event 0 evidence: %+v", events[0].Evidence)
	}
	if events[0].Evidence[0].Relevance != 0.8 {
		t.Fatalf("event 0 relevance: got %v", events[0].Evidence[0].Relevance)
	}

	if events[1].Kind != "connection_error" || events[1].Title != "Connection error detected" {
		t.Fatalf("event 1: got kind=%q title=%q", events[1].Kind, events[1].Title)
	}

	// Timestamped but unclassified lines survive as info-level notes.
	if events[2].Kind != "note" || events[2].Severity != incident.SeverityInfo {
		t.Fatalf("event 2: got kind=%q severity=%q", events[2].Kind, events[2].Severity)
	}
}

func TestParseFirstRuleWins(t *testing.T) {
	a := incident.Artifact{
		Type:     incident.ArtifactLogs,
		SourceID: "worker",
		Content:  "2024-03-01T09:00:00Z FATAL error while deploying release",
	}
	events := Parse(a)
	if len(events) != 1 || events[0].Kind != "fatal" || events[0].Severity != incident.SeverityCritical {
		t.Fatalf("Parse: %+v", events)
	}
}

func TestParseUndatedClassifiedLine(t *testing.T) {
	a := incident.Artifact{
		Type:     incident.ArtifactLogs,
		SourceID: "worker",
		Content:  "panic: runtime error in request handler",
	}
	events := Parse(a)
	if len(events) != 1 {
		t.Fatalf("Parse: got %d events, want 1", len(events))
	}
	if events[0].TimestampRaw != "unknown" || !events[0].Timestamp.IsZero() {
		t.Fatalf("undated event: raw=%q ts=%v", events[0].TimestampRaw, events[0].Timestamp)
	}
}

func TestParseAllOrdersAcrossArtifacts(t *testing.T) {
	artifacts := []incident.Artifact{
		{
			Type: incident.ArtifactLogs, SourceID: "svc-a",
			Content: "2024-03-01T14:30:00Z ERROR late failure\n" +
				"panic: undated crash\n",
		},
		{
			Type: incident.ArtifactAlerts, SourceID: "svc-b",
			Content: "2024-03-01T14:10:00Z CRITICAL alert fired\n",
		},
	}
	events := ParseAll(artifacts)
	if len(events) != 3 {
		t.Fatalf("ParseAll: got %d events, want 3", len(events))
	}
	if events[0].Evidence[0].SourceID != "svc-b" {
		t.Fatalf("earliest event should come from svc-b: %+v", events[0])
	}
	if !events[2].Timestamp.IsZero() {
		t.Fatalf("undated event must sort last: %+v", events[2])
	}
}

func TestSortEventsStableOnTies(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	events := []incident.TimelineEvent{
		{Timestamp: ts, Title: "first"},
		{Timestamp: ts, Title: "second"},
		{Title: "undated"},
	}
	SortEvents(events)
	if events[0].Title != "first" || events[1].Title != "second" || events[2].Title != "undated" {
		t.Fatalf("SortEvents: %+v", events)
	}
}

func TestExtractChanges(t *testing.T) {
	artifacts := []incident.Artifact{
		{
			Type: incident.ArtifactDeployHistory, SourceID: "ci",
			Content: "2024-03-01 13:55:00 Deployed payment-service build 2143\n" +
				"config: max_connections = 50\n",
		},
		{
			// Deploy-shaped patterns only apply to deploy history.
			Type: incident.ArtifactLogs, SourceID: "app",
			Content: "deployed something, allegedly\n",
		},
	}
	changes := ExtractChanges(artifacts)

	var deploys, configs int
	for _, c := range changes {
		switch c.Category {
		case "deployment":
			deploys++
			if c.SourceID != "ci" {
				t.Fatalf("deployment change from wrong source: %+v", c)
			}
		case "config":
			configs++
		}
	}
	if deploys == 0 {
		t.Fatalf("no deployment changes extracted: %+v", changes)
	}
	if configs != 1 {
		t.Fatalf("config changes: got %d, want 1: %+v", configs, changes)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// A three-byte rune straddles the cap; the cut backs up to the rune
	// boundary instead of leaving an invalid UTF-8 tail.
	s := strings.Repeat("a", 9) + "日本語"
	if got := truncate(s, 10); got != strings.Repeat("a", 9) {
		t.Fatalf("truncate: got %q", got)
	}
	if got := truncate("héllo", 10); got != "héllo" {
		t.Fatalf("truncate below cap changed the string: %q", got)
	}
}

func TestLoadRulesRejectsBadTable(t *testing.T) {
	if _, err := loadRules([]byte("rules: []")); err == nil {
		t.Fatal("expected error for empty rule table")
	}
	bad := []byte("rules:\n  - kind: x\n    pattern: '('\n")
	if _, err := loadRules(bad); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
