package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"sleuth/internal/incident"
)

// MemStore is the in-memory Store used by tests and the MCP demo path.
type MemStore struct {
	mu    sync.Mutex
	cases map[string]*Case
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{cases: make(map[string]*Case)}
}

func (s *MemStore) CreateCase(c *Case) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("case id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return fmt.Errorf("case %s already exists", c.ID)
	}
	stored := cloneCase(c)
	if stored.Status == "" {
		stored.Status = incident.StatusCreated
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.cases[c.ID] = stored
	return nil
}

func (s *MemStore) GetCase(id string) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, nil
	}
	return cloneCase(c), nil
}

func (s *MemStore) ListCases() ([]*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Summary
	for _, c := range s.cases {
		sum := &Summary{
			ID:            c.ID,
			Title:         c.Title,
			Status:        c.Status,
			CreatedAt:     c.CreatedAt,
			ArtifactCount: len(c.Artifacts),
		}
		if c.LastAnalysis != nil {
			sum.LastAnalyzedAt = c.LastAnalysis.CreatedAt
			sum.LastConfidence = c.LastAnalysis.ConfidenceOverall
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) DeleteCase(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cases, id)
	return nil
}

func (s *MemStore) AppendArtifacts(id string, artifacts []incident.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	c.Artifacts = append(c.Artifacts, artifacts...)
	return nil
}

func (s *MemStore) SetStatus(id string, status incident.CaseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	if status.Before(c.Status) {
		return nil // monotonic: never regress
	}
	c.Status = status
	return nil
}

func (s *MemStore) SaveAnalysis(id string, res *incident.AnalysisResult, limit int) error {
	if res == nil {
		return fmt.Errorf("analysis result is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	c.History = append(c.History, *res)
	if limit > 0 && len(c.History) > limit {
		c.History = append([]incident.AnalysisResult(nil), c.History[len(c.History)-limit:]...)
	}
	last := c.History[len(c.History)-1]
	c.LastAnalysis = &last
	if c.Status.Before(incident.StatusAnalyzed) {
		c.Status = incident.StatusAnalyzed
	}
	return nil
}

func (s *MemStore) AddFeedback(id string, fb incident.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	c.Feedback = append(c.Feedback, fb)
	return nil
}

func (s *MemStore) Close() error { return nil }

// cloneCase copies the case and its slices so callers cannot alias internal
// state across the store boundary.
func cloneCase(c *Case) *Case {
	out := *c
	out.Artifacts = append([]incident.Artifact(nil), c.Artifacts...)
	out.History = append([]incident.AnalysisResult(nil), c.History...)
	out.Feedback = append([]incident.Feedback(nil), c.Feedback...)
	if c.LastAnalysis != nil {
		last := *c.LastAnalysis
		out.LastAnalysis = &last
	}
	return &out
}
