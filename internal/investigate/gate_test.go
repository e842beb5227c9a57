package investigate

import (
	"strings"
	"testing"

	"sleuth/internal/incident"
)

func evidenceN(n int) []incident.Evidence {
	out := make([]incident.Evidence, n)
	for i := range out {
		out[i] = incident.Evidence{SourceID: "s", Excerpt: "e", Relevance: 0.8}
	}
	return out
}

func TestGateBoundaries(t *testing.T) {
	// Non-strict mode never refuses at the gate.
	if got := gate(false, nil, 0, 0.6); got != "" {
		t.Fatalf("non-strict gate refused: %q", got)
	}

	// Exactly the evidence floor passes; one below refuses.
	if got := gate(true, evidenceN(2), 0.9, 0.6); got != "" {
		t.Fatalf("two excerpts must pass: %q", got)
	}
	if got := gate(true, evidenceN(1), 0.9, 0.6); got == "" {
		t.Fatal("one excerpt must refuse")
	}

	// Average exactly at the threshold passes; strictly below refuses.
	if got := gate(true, evidenceN(2), 0.6, 0.6); got != "" {
		t.Fatalf("avg == threshold must pass: %q", got)
	}
	if got := gate(true, evidenceN(2), 0.59, 0.6); got == "" {
		t.Fatal("avg below threshold must refuse")
	}
}

func TestAvgRelevance(t *testing.T) {
	if got := avgRelevance(nil); got != 0 {
		t.Fatalf("empty: got %v", got)
	}
	ev := []incident.Evidence{{Relevance: 0.25}, {Relevance: 0.75}}
	if got := avgRelevance(ev); got != 0.5 {
		t.Fatalf("avg: got %v", got)
	}
}

func TestBuildQueryExpandsFocus(t *testing.T) {
	base := buildQuery("api 502 spike", incident.FocusGeneral)
	if base != "api 502 spike" {
		t.Fatalf("general focus must not expand: %q", base)
	}
	db := buildQuery("api 502 spike", incident.FocusDatabase)
	if !strings.HasPrefix(db, "api 502 spike ") || !strings.Contains(db, "deadlock") {
		t.Fatalf("database focus expansion: %q", db)
	}
}

func TestSummarizeTimeline(t *testing.T) {
	if got := summarizeTimeline(nil); got != "No timeline events extracted." {
		t.Fatalf("empty timeline: %q", got)
	}

	events := make([]incident.TimelineEvent, 15)
	for i := range events {
		events[i] = incident.TimelineEvent{TimestampRaw: "14:00", Kind: "error", Title: "Error detected"}
	}
	got := summarizeTimeline(events)
	if n := strings.Count(got, "\n") + 1; n != 10 {
		t.Fatalf("summary must cap at 10 lines, got %d", n)
	}
}

func TestNotesWithPin(t *testing.T) {
	if got := notesWithPin("", ""); got != "" {
		t.Fatalf("empty: %q", got)
	}
	if got := notesWithPin("note", ""); got != "note" {
		t.Fatalf("no pin: %q", got)
	}
	got := notesWithPin("note", "Pool exhaustion")
	if !strings.Contains(got, "note") || !strings.Contains(got, "Pool exhaustion") {
		t.Fatalf("pin hint: %q", got)
	}
}
