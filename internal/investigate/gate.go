package investigate

import (
	"fmt"
	"strings"

	"sleuth/internal/incident"
	"sleuth/internal/oracle"
	"sleuth/internal/store"
)

// genericNextSteps is the data-collection guidance attached to every refusal.
var genericNextSteps = []string{
	"Collect more detailed logs around the incident timeframe",
	"Gather deploy history for the 24 hours before the incident",
	"Check monitoring dashboards for anomalies",
	"Interview on-call engineers who responded",
}

// gate decides refuse-vs-proceed. It returns a human-readable refusal reason,
// or "" to proceed. Boundary semantics are strict-below: evidence count equal
// to the minimum and average relevance equal to the threshold both pass.
func gate(strictMode bool, evidence []incident.Evidence, avg, threshold float64) string {
	if !strictMode {
		return ""
	}
	if len(evidence) < minEvidence {
		return fmt.Sprintf(
			"Only %d evidence excerpt(s) were retrieved; at least %d are required for a grounded hypothesis. Refusing to speculate.",
			len(evidence), minEvidence)
	}
	if avg < threshold {
		return fmt.Sprintf(
			"Average evidence relevance %.2f is below the %.2f confidence threshold. The artifacts do not support a confident root-cause analysis.",
			avg, threshold)
	}
	return ""
}

// avgRelevance is the aggregate relevance: the arithmetic mean, 0 when empty.
func avgRelevance(evidence []incident.Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, ev := range evidence {
		sum += ev.Relevance
	}
	return sum / float64(len(evidence))
}

// refusalResult builds the refusal-shaped AnalysisResult: no hypotheses, an
// explanation, generic next-step guidance, and confidence equal to the
// average retrieved relevance. steps overrides the generic guidance when the
// oracle supplied its own.
func (e *Engine) refusalResult(c *store.Case, events []incident.TimelineEvent, evidence []incident.Evidence,
	avg float64, opts Options, mode, reason string, steps []string) *incident.AnalysisResult {
	if len(steps) == 0 {
		steps = genericNextSteps
	}
	return &incident.AnalysisResult{
		CaseID:               c.ID,
		CreatedAt:            nowUTC(),
		TimelineEvents:       capEvents(events),
		Hypotheses:           []incident.Hypothesis{},
		WhatChanged:          []incident.WhatChanged{},
		RecommendedNextSteps: steps,
		ConfidenceOverall:    avg,
		RefusalReason:        reason,
		Metadata:             e.metadata(evidence, avg, opts, mode),
	}
}

func (e *Engine) metadata(evidence []incident.Evidence, avg float64, opts Options, mode string) incident.Metadata {
	return incident.Metadata{
		EvidenceCount: len(evidence),
		AvgRelevance:  avg,
		StrictMode:    opts.StrictMode,
		TopK:          opts.TopK,
		Mode:          mode,
		Model:         e.model,
	}
}

// buildQuery combines the incident summary with focus-area vocabulary.
func buildQuery(summary string, focus incident.FocusArea) string {
	terms := oracle.ExpandFocus(focus)
	if terms == "" {
		return summary
	}
	return summary + " " + terms
}

// summarizeTimeline condenses the first events into prompt-sized lines.
func summarizeTimeline(events []incident.TimelineEvent) string {
	if len(events) == 0 {
		return "No timeline events extracted."
	}
	var lines []string
	for i, ev := range events {
		if i >= 10 {
			break
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", ev.TimestampRaw, ev.Kind, ev.Title))
	}
	return strings.Join(lines, "\n")
}

func capEvents(events []incident.TimelineEvent) []incident.TimelineEvent {
	if len(events) > maxTimelineLen {
		return events[:maxTimelineLen]
	}
	return events
}
