// Package oracle defines the narrow interface to the external reasoning
// oracle and enforces its output contract. The pipeline depends only on the
// Oracle interface, so the concrete backend is swappable.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"sleuth/internal/incident"
	"sleuth/internal/logging"
)

// Request is the typed prompt payload packaged by the pipeline. Evidence is
// enumerated with stable local indices 0..len(Evidence)-1; the oracle cites
// those indices back.
type Request struct {
	Summary         string
	UserNotes       string
	TimelineSummary string
	Changes         []incident.WhatChanged
	Evidence        []incident.Evidence
	FocusArea       incident.FocusArea
	HypothesisCount int
}

// RawHypothesis is one hypothesis as the oracle emitted it, citing local
// evidence indices that still need resolution and validation.
type RawHypothesis struct {
	Rank                   int      `json:"rank"`
	Title                  string   `json:"title"`
	RootCause              string   `json:"root_cause"`
	Confidence             float64  `json:"confidence"`
	EvidenceIndices        []int    `json:"evidence_indices"`
	CounterEvidenceIndices []int    `json:"counter_evidence_indices"`
	TestsToConfirm         []string `json:"tests_to_confirm"`
	ImmediateMitigations   []string `json:"immediate_mitigations"`
	LongTermFixes          []string `json:"long_term_fixes"`
}

// RawChange is one what-changed fact as the oracle emitted it.
type RawChange struct {
	Category        string `json:"category"`
	Description     string `json:"description"`
	EvidenceIndices []int  `json:"evidence_indices"`
}

// Result is the schema the oracle must produce.
type Result struct {
	Hypotheses           []RawHypothesis `json:"hypotheses"`
	WhatChanged          []RawChange     `json:"what_changed"`
	RecommendedNextSteps []string        `json:"recommended_next_steps"`
	ConfidenceOverall    float64         `json:"confidence_overall"`
	RefusalReason        string          `json:"refusal_reason"`
}

// Oracle turns a packaged request into a structured result or a typed error.
type Oracle interface {
	Propose(ctx context.Context, req Request) (*Result, error)
}

// Chatter is the transport the LLM-backed oracle speaks over; implemented by
// internal/llm.Client.
type Chatter interface {
	Chat(ctx context.Context, system, user string) ([]byte, error)
}

// Generator is the LLM-backed Oracle. A schema-invalid response is retried
// exactly once; a second invalid response surfaces ErrSchemaViolation so the
// caller can degrade to a refusal instead of fabricating content.
type Generator struct {
	chat Chatter
}

// NewGenerator wraps a chat transport as an Oracle.
func NewGenerator(chat Chatter) *Generator {
	return &Generator{chat: chat}
}

// Propose implements Oracle.
func (g *Generator) Propose(ctx context.Context, req Request) (*Result, error) {
	logger := logging.New("oracle")
	system := systemPrompt
	user := buildUserPrompt(req)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := g.chat.Chat(ctx, system, user)
		if err != nil {
			return nil, fmt.Errorf("oracle call: %w", err)
		}

		result, err := parseResult(raw)
		if err == nil {
			return result, nil
		}
		lastErr = err
		logger.Warn("oracle response failed contract, retrying", "attempt", attempt+1, "err", err)
	}
	return nil, fmt.Errorf("%w: %v", incident.ErrSchemaViolation, lastErr)
}

var errEmptyResult = errors.New("result has neither hypotheses nor a refusal reason")
