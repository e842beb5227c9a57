package store

import (
	"testing"
	"time"

	"sleuth/internal/incident"
)

func testCase(id string) *Case {
	return &Case{
		ID:      id,
		Title:   "Payment API outage",
		Summary: "502 spike after 14:00",
		Status:  incident.StatusCreated,
	}
}

func testResult(caseID string, confidence float64) *incident.AnalysisResult {
	return &incident.AnalysisResult{
		CaseID:            caseID,
		CreatedAt:         time.Now().UTC(),
		Hypotheses:        []incident.Hypothesis{},
		ConfidenceOverall: confidence,
		RefusalReason:     "not enough evidence",
		Metadata:          incident.Metadata{Mode: "analyze"},
	}
}

func TestMemStoreLifecycle(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	if err := s.CreateCase(testCase("c1")); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if err := s.CreateCase(testCase("c1")); err == nil {
		t.Fatal("duplicate CreateCase must fail")
	}

	c, err := s.GetCase("c1")
	if err != nil || c == nil || c.Title != "Payment API outage" || c.Status != incident.StatusCreated {
		t.Fatalf("GetCase: got %+v err %v", c, err)
	}
	if missing, err := s.GetCase("nope"); err != nil || missing != nil {
		t.Fatalf("GetCase missing: got %+v err %v", missing, err)
	}

	err = s.AppendArtifacts("c1", []incident.Artifact{
		{Type: incident.ArtifactLogs, SourceID: "api", Content: "ERROR boom"},
	})
	if err != nil {
		t.Fatalf("AppendArtifacts: %v", err)
	}
	c, _ = s.GetCase("c1")
	if len(c.Artifacts) != 1 || c.Artifacts[0].SourceID != "api" {
		t.Fatalf("artifacts: %+v", c.Artifacts)
	}

	sums, err := s.ListCases()
	if err != nil || len(sums) != 1 || sums[0].ArtifactCount != 1 {
		t.Fatalf("ListCases: got %+v err %v", sums, err)
	}

	if err := s.DeleteCase("c1"); err != nil {
		t.Fatalf("DeleteCase: %v", err)
	}
	if c, _ := s.GetCase("c1"); c != nil {
		t.Fatal("case must be gone after delete")
	}
}

func TestMemStoreStatusMonotonic(t *testing.T) {
	s := NewMemStore()
	s.CreateCase(testCase("c1"))

	if err := s.SetStatus("c1", incident.StatusAnalyzed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	// A late writer moving backwards is silently ignored.
	if err := s.SetStatus("c1", incident.StatusIndexed); err != nil {
		t.Fatalf("SetStatus regress: %v", err)
	}
	c, _ := s.GetCase("c1")
	if c.Status != incident.StatusAnalyzed {
		t.Fatalf("status regressed: %v", c.Status)
	}
}

func TestMemStoreHistoryBounded(t *testing.T) {
	s := NewMemStore()
	s.CreateCase(testCase("c1"))

	for i := 0; i < 4; i++ {
		res := testResult("c1", float64(i)/10)
		if err := s.SaveAnalysis("c1", res, 3); err != nil {
			t.Fatalf("SaveAnalysis %d: %v", i, err)
		}
	}

	c, _ := s.GetCase("c1")
	if len(c.History) != 3 {
		t.Fatalf("history: got %d entries, want 3", len(c.History))
	}
	// Oldest pruned: the surviving entries are the last three saved.
	if c.History[0].ConfidenceOverall != 0.1 || c.History[2].ConfidenceOverall != 0.3 {
		t.Fatalf("wrong entries survived: %+v", c.History)
	}
	if c.LastAnalysis == nil || c.LastAnalysis.ConfidenceOverall != 0.3 {
		t.Fatalf("LastAnalysis: %+v", c.LastAnalysis)
	}
	if c.Status != incident.StatusAnalyzed {
		t.Fatalf("SaveAnalysis must advance status: %v", c.Status)
	}
}

func TestMemStoreFeedback(t *testing.T) {
	s := NewMemStore()
	s.CreateCase(testCase("c1"))

	fb := incident.Feedback{HypothesisRank: 1, Type: incident.FeedbackConfirmed, Note: "verified", CreatedAt: time.Now().UTC()}
	if err := s.AddFeedback("c1", fb); err != nil {
		t.Fatalf("AddFeedback: %v", err)
	}
	if err := s.AddFeedback("nope", fb); err == nil {
		t.Fatal("AddFeedback on unknown case must fail")
	}

	c, _ := s.GetCase("c1")
	if len(c.Feedback) != 1 || c.Feedback[0].Type != incident.FeedbackConfirmed {
		t.Fatalf("feedback: %+v", c.Feedback)
	}
}

func TestMemStoreCloneIsolation(t *testing.T) {
	s := NewMemStore()
	s.CreateCase(testCase("c1"))
	s.AppendArtifacts("c1", []incident.Artifact{{Type: incident.ArtifactLogs, SourceID: "api", Content: "x"}})

	c, _ := s.GetCase("c1")
	c.Artifacts[0].SourceID = "mutated"
	c.Title = "mutated"

	fresh, _ := s.GetCase("c1")
	if fresh.Artifacts[0].SourceID != "api" || fresh.Title != "Payment API outage" {
		t.Fatalf("store state mutated through a returned copy: %+v", fresh)
	}
}
