// Package store persists cases: artifacts, lifecycle status, bounded analysis
// history, and reviewer feedback. Domain and CLI use only the Store
// interface; the implementation is SQLite or in-memory.
package store

import (
	"time"

	"sleuth/internal/incident"
)

// Case is one investigation: the unit grouping artifacts, index, and history.
type Case struct {
	ID        string
	Title     string
	Summary   string
	Status    incident.CaseStatus
	CreatedAt time.Time

	Artifacts []incident.Artifact

	// History holds past analysis results, oldest first and bounded by the
	// configured limit. LastAnalysis is the newest entry, if any.
	History      []incident.AnalysisResult
	LastAnalysis *incident.AnalysisResult

	Feedback []incident.Feedback
}

// Summary is the listing row for a case.
type Summary struct {
	ID             string
	Title          string
	Status         incident.CaseStatus
	CreatedAt      time.Time
	ArtifactCount  int
	LastAnalyzedAt time.Time // zero when never analyzed
	LastConfidence float64
}

// Store is the persistence facade.
//
// Status transitions are monotonic: SetStatus silently ignores a regression
// so a concurrent late writer can never move a case backwards.
type Store interface {
	CreateCase(c *Case) error
	GetCase(id string) (*Case, error) // nil, nil when the case does not exist
	ListCases() ([]*Summary, error)
	DeleteCase(id string) error

	AppendArtifacts(id string, artifacts []incident.Artifact) error
	SetStatus(id string, status incident.CaseStatus) error

	// SaveAnalysis appends one result to the case history, pruning the
	// oldest entries beyond limit, and advances status to Analyzed.
	SaveAnalysis(id string, res *incident.AnalysisResult, limit int) error

	AddFeedback(id string, fb incident.Feedback) error

	Close() error
}
