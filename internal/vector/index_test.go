package vector

import (
	"strings"
	"testing"
	"unicode/utf8"

	"sleuth/internal/incident"
)

func testIndex() *Index {
	ix := &Index{caseID: "case-1"}
	ix.Add([]Chunk{
		{Text: "db timeout on payment path", Vector: []float32{1, 0}, SourceID: "api", ArtifactType: incident.ArtifactLogs, Sequence: 0},
		{Text: "unrelated chatter", Vector: []float32{0, 1}, SourceID: "chat", ArtifactType: incident.ArtifactLogs, Sequence: 0},
		{Text: "pool saturation warning", Vector: []float32{0.6, 0.8}, SourceID: "api", ArtifactType: incident.ArtifactMetricsSnapshot, Sequence: 1},
		{Text: "hostile dimensions", Vector: []float32{1}, SourceID: "bad", ArtifactType: incident.ArtifactLogs, Sequence: 0},
	})
	return ix
}

func TestSearchRanksByRelevance(t *testing.T) {
	ix := testIndex()
	got := ix.Search([]float32{1, 0}, 10, nil)

	// The mismatched-dimension chunk is skipped, not fatal.
	if len(got) != 3 {
		t.Fatalf("Search: got %d results, want 3: %+v", len(got), got)
	}
	if got[0].SourceID != "api" || !strings.Contains(got[0].Excerpt, "timeout") {
		t.Fatalf("top result: %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Relevance > got[i-1].Relevance {
			t.Fatalf("results not sorted by relevance: %+v", got)
		}
	}
	for _, ev := range got {
		if ev.Relevance < 0 || ev.Relevance > 1 {
			t.Fatalf("relevance outside [0,1]: %+v", ev)
		}
	}
}

func TestSearchClampsNegativeSimilarity(t *testing.T) {
	ix := &Index{caseID: "case-1"}
	ix.Add([]Chunk{{Text: "anti-correlated", Vector: []float32{-1, 0}, SourceID: "s"}})

	got := ix.Search([]float32{1, 0}, 5, nil)
	if len(got) != 1 || got[0].Relevance != 0 {
		t.Fatalf("negative similarity must clamp to 0: %+v", got)
	}
}

func TestSearchExcludesSources(t *testing.T) {
	ix := testIndex()
	got := ix.Search([]float32{1, 0}, 10, map[string]bool{"api": true})

	if len(got) != 1 || got[0].SourceID != "chat" {
		t.Fatalf("Search with exclusion: %+v", got)
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	ix := testIndex()
	if got := ix.Search([]float32{1, 0}, 1, nil); len(got) != 1 {
		t.Fatalf("topK=1: got %d results", len(got))
	}
	if got := ix.Search([]float32{1, 0}, 0, nil); got != nil {
		t.Fatalf("topK=0: got %+v, want nil", got)
	}
}

func TestSearchCapsExcerpt(t *testing.T) {
	ix := &Index{caseID: "case-1"}
	ix.Add([]Chunk{{Text: strings.Repeat("x", 400), Vector: []float32{1, 0}, SourceID: "s"}})

	got := ix.Search([]float32{1, 0}, 1, nil)
	if len(got) != 1 || len(got[0].Excerpt) != maxExcerpt {
		t.Fatalf("excerpt not capped: len=%d", len(got[0].Excerpt))
	}
}

func TestSearchExcerptKeepsRunesIntact(t *testing.T) {
	// A two-byte rune straddles the cap; the cut must back up to the rune
	// boundary instead of shipping an invalid UTF-8 tail.
	text := strings.Repeat("x", maxExcerpt-1) + strings.Repeat("é", 10)
	ix := &Index{caseID: "case-1"}
	ix.Add([]Chunk{{Text: text, Vector: []float32{1, 0}, SourceID: "s"}})

	got := ix.Search([]float32{1, 0}, 1, nil)
	if len(got) != 1 {
		t.Fatalf("Search: got %d results, want 1", len(got))
	}
	if !utf8.ValidString(got[0].Excerpt) {
		t.Fatalf("excerpt is not valid UTF-8: %q", got[0].Excerpt)
	}
	if len(got[0].Excerpt) != maxExcerpt-1 {
		t.Fatalf("excerpt not cut at the rune boundary: len=%d", len(got[0].Excerpt))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := &Index{caseID: "case-1"}
	if got := ix.Search([]float32{1, 0}, 5, nil); got != nil {
		t.Fatalf("empty index: got %+v, want nil", got)
	}
}
