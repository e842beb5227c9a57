package oracle

import (
	"fmt"
	"strings"

	"sleuth/internal/incident"
)

const systemPrompt = `You are an expert Site Reliability Engineer conducting incident root cause analysis.

STRICT RULES:
1. Produce ONLY valid JSON matching the schema exactly
2. EVERY claim must cite evidence from the provided excerpts
3. Include counter-evidence when present
4. If evidence is insufficient, set refusal_reason and provide empty hypotheses
5. Each hypothesis MUST reference at least 2 evidence excerpts
6. NO speculation without evidence
7. Include specific tests-to-confirm for each hypothesis

EVIDENCE REQUIREMENT:
- Strong evidence: direct error messages, stack traces, timestamps correlating with the incident
- Weak evidence: general logs, unrelated timestamps, vague mentions
- If only weak evidence exists, refuse to speculate

OUTPUT SCHEMA:
{
  "hypotheses": [
    {
      "rank": 1,
      "title": "Brief title",
      "root_cause": "Detailed explanation of what caused the incident",
      "confidence": 0.0,
      "evidence_indices": [0, 1],
      "counter_evidence_indices": [],
      "tests_to_confirm": ["Specific test"],
      "immediate_mitigations": ["Action"],
      "long_term_fixes": ["Fix"]
    }
  ],
  "what_changed": [
    {"category": "deployment", "description": "What changed", "evidence_indices": [2]}
  ],
  "recommended_next_steps": ["Step"],
  "confidence_overall": 0.0,
  "refusal_reason": null
}`

// focusTerms expands a focus area into retrieval-shaped vocabulary. Shared
// with the retriever's query builder.
var focusTerms = map[incident.FocusArea]string{
	incident.FocusDatabase:    "database connection pool query timeout deadlock",
	incident.FocusAuth:        "authentication authorization token jwt session login",
	incident.FocusNetwork:     "network connection timeout dns latency packet",
	incident.FocusDeployment:  "deploy release version rollback container image",
	incident.FocusPerformance: "latency response time memory cpu throughput",
}

// ExpandFocus returns extra query terms for a focus area, or "".
func ExpandFocus(area incident.FocusArea) string {
	return focusTerms[area]
}

// buildUserPrompt packages the request into the user message: summary, notes,
// condensed timeline, detected changes, and evidence enumerated by its stable
// local index.
func buildUserPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this incident and generate %d ranked hypotheses.\n\n", req.HypothesisCount)
	fmt.Fprintf(&b, "INCIDENT SUMMARY:\n%s\n\n", req.Summary)

	if req.UserNotes != "" {
		fmt.Fprintf(&b, "USER NOTES: %s\n\n", req.UserNotes)
	}

	fmt.Fprintf(&b, "TIMELINE SUMMARY:\n%s\n\n", req.TimelineSummary)

	b.WriteString("CHANGES DETECTED:\n")
	if len(req.Changes) == 0 {
		b.WriteString("No explicit changes detected in artifacts.\n")
	}
	for i, c := range req.Changes {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Category, c.Description)
	}
	b.WriteString("\n")

	b.WriteString("EVIDENCE (cite by index):\n")
	for i, ev := range req.Evidence {
		fmt.Fprintf(&b, "[%d] Source: %s (%s)\n%s\n", i, ev.SourceID, ev.ArtifactType, ev.Excerpt)
	}

	if req.FocusArea != "" && req.FocusArea != incident.FocusGeneral {
		fmt.Fprintf(&b, "\nFOCUS AREA: %s\n", req.FocusArea)
	}

	b.WriteString("\nGenerate hypotheses following the exact JSON schema. Each hypothesis must cite at least 2 evidence indices.")
	return b.String()
}
