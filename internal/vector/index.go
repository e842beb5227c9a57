package vector

import (
	"sort"
	"sync"
	"unicode/utf8"

	"sleuth/internal/incident"
)

const maxExcerpt = 300

// Chunk is one embedded segment of artifact content plus its metadata.
type Chunk struct {
	Text         string
	Vector       []float32
	SourceID     string
	ArtifactType incident.ArtifactType
	Sequence     int
}

// Index holds the chunks of exactly one case. An index never serves another
// case: isolation is enforced by the Repository keying.
type Index struct {
	caseID string

	mu     sync.RWMutex
	chunks []Chunk
}

// CaseID returns the owning case id.
func (ix *Index) CaseID() string { return ix.caseID }

// Add appends embedded chunks to the index.
func (ix *Index) Add(chunks []Chunk) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = append(ix.chunks, chunks...)
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Search scores every chunk against the query vector and returns the topK as
// Evidence, relevance clamped to [0,1]. Chunks whose source id appears in
// exclude are skipped; reruns use this to discount noisy sources. Chunks that
// cannot be scored (dimension mismatch) are skipped rather than failing the
// whole query.
func (ix *Index) Search(query []float32, topK int, exclude map[string]bool) []incident.Evidence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if topK < 1 || len(ix.chunks) == 0 {
		return nil
	}

	type scored struct {
		chunk Chunk
		rel   float64
		pos   int
	}
	var candidates []scored
	for i, c := range ix.chunks {
		if exclude[c.SourceID] {
			continue
		}
		sim, err := Cosine(query, c.Vector)
		if err != nil {
			continue
		}
		// Relevance is 1 - cosine distance, i.e. the similarity itself,
		// clamped so negative similarity never leaks out.
		candidates = append(candidates, scored{chunk: c, rel: incident.ClampRelevance(sim), pos: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rel != candidates[j].rel {
			return candidates[i].rel > candidates[j].rel
		}
		return candidates[i].pos < candidates[j].pos
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]incident.Evidence, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, incident.Evidence{
			SourceID:     c.chunk.SourceID,
			Excerpt:      truncate(c.chunk.Text, maxExcerpt),
			Relevance:    c.rel,
			ArtifactType: c.chunk.ArtifactType,
		})
	}
	return out
}

// truncate caps s at n bytes, backing up to a rune boundary so a multibyte
// character is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
