// Package incident defines the shared domain model for the hypothesis engine:
// artifacts, timeline events, evidence, hypotheses, and analysis results.
// Leaf packages (timeline, vector, oracle, store) all build on these types.
package incident

import "time"

// ArtifactType classifies a unit of raw supporting material.
type ArtifactType string

const (
	ArtifactLogs            ArtifactType = "logs"
	ArtifactAlerts          ArtifactType = "alerts"
	ArtifactDeployHistory   ArtifactType = "deploy_history"
	ArtifactRunbook         ArtifactType = "runbook"
	ArtifactMetricsSnapshot ArtifactType = "metrics_snapshot"
)

// Artifact is one unit of raw incident/change material. Immutable once ingested.
type Artifact struct {
	Type      ArtifactType `json:"type"`
	SourceID  string       `json:"source_id"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp,omitempty"` // declared by the caller; zero = unknown
}

// Severity levels for timeline events, highest first.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Evidence is a scored excerpt retrieved in support of a claim.
// Relevance is always within [0,1]; Excerpt is capped at 300 characters.
type Evidence struct {
	SourceID     string       `json:"source_id"`
	Excerpt      string       `json:"excerpt"`
	Relevance    float64      `json:"relevance"`
	ArtifactType ArtifactType `json:"artifact_type"`
}

// TimelineEvent is one extracted event. Timestamp is zero when no encoding
// in the artifact line could be parsed; such events sort after all dated ones.
type TimelineEvent struct {
	Timestamp    time.Time  `json:"timestamp,omitempty"`
	TimestampRaw string     `json:"timestamp_raw"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	Details      string     `json:"details"`
	Severity     string     `json:"severity"`
	Evidence     []Evidence `json:"evidence,omitempty"`
}

// Hypothesis is one ranked causal explanation. When an analysis is not a
// refusal, every surfaced hypothesis cites at least two evidence entries.
type Hypothesis struct {
	Rank                 int        `json:"rank"`
	Title                string     `json:"title"`
	RootCause            string     `json:"root_cause"`
	Confidence           float64    `json:"confidence"`
	Evidence             []Evidence `json:"evidence"`
	CounterEvidence      []Evidence `json:"counter_evidence,omitempty"`
	TestsToConfirm       []string   `json:"tests_to_confirm"`
	ImmediateMitigations []string   `json:"immediate_mitigations"`
	LongTermFixes        []string   `json:"long_term_fixes"`
}

// WhatChanged is a detected change fact (deploy, config, infrastructure, traffic).
type WhatChanged struct {
	Category    string     `json:"category"`
	Description string     `json:"description"`
	SourceID    string     `json:"source_id,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// Metadata records how an analysis was produced, for audit.
type Metadata struct {
	EvidenceCount int     `json:"evidence_count"`
	AvgRelevance  float64 `json:"avg_relevance"`
	StrictMode    bool    `json:"strict_mode"`
	TopK          int     `json:"top_k"`
	Mode          string  `json:"mode"` // "analyze" or "rerun"
	Model         string  `json:"model,omitempty"`
}

// AnalysisResult is the structured output of one analyze or rerun call.
// Invariant: len(Hypotheses) == 0 exactly when RefusalReason != "".
type AnalysisResult struct {
	CaseID               string          `json:"case_id"`
	CreatedAt            time.Time       `json:"created_at"`
	TimelineEvents       []TimelineEvent `json:"timeline_events"`
	Hypotheses           []Hypothesis    `json:"hypotheses"`
	WhatChanged          []WhatChanged   `json:"what_changed"`
	RecommendedNextSteps []string        `json:"recommended_next_steps"`
	ConfidenceOverall    float64         `json:"confidence_overall"`
	RefusalReason        string          `json:"refusal_reason,omitempty"`
	Metadata             Metadata        `json:"metadata"`
}

// Refused reports whether the result is a refusal outcome.
func (r *AnalysisResult) Refused() bool { return r.RefusalReason != "" }

// CaseStatus is the lifecycle state of a case. Transitions are monotonic:
// Created → Indexed → Analyzed, never backwards.
type CaseStatus string

const (
	StatusCreated  CaseStatus = "created"
	StatusIndexed  CaseStatus = "indexed"
	StatusAnalyzed CaseStatus = "analyzed"
)

// statusOrder maps each status to its position in the lifecycle.
var statusOrder = map[CaseStatus]int{
	StatusCreated:  0,
	StatusIndexed:  1,
	StatusAnalyzed: 2,
}

// Before reports whether s precedes other in the case lifecycle.
func (s CaseStatus) Before(other CaseStatus) bool {
	return statusOrder[s] < statusOrder[other]
}

// FocusArea narrows retrieval toward one subsystem.
type FocusArea string

const (
	FocusGeneral     FocusArea = "general"
	FocusDatabase    FocusArea = "database"
	FocusAuth        FocusArea = "auth"
	FocusNetwork     FocusArea = "network"
	FocusDeployment  FocusArea = "deployment"
	FocusPerformance FocusArea = "performance"
)

// FeedbackType is a reviewer verdict on a hypothesis.
type FeedbackType string

const (
	FeedbackConfirmed FeedbackType = "confirmed"
	FeedbackRejected  FeedbackType = "rejected"
	FeedbackUncertain FeedbackType = "uncertain"
)

// Feedback is one reviewer verdict recorded against a hypothesis rank.
type Feedback struct {
	HypothesisRank int          `json:"hypothesis_rank"`
	Type           FeedbackType `json:"type"`
	Note           string       `json:"note,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ClampRelevance forces a similarity score into the [0,1] range.
func ClampRelevance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
