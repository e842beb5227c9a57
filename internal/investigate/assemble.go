package investigate

import (
	"sort"
	"time"

	"sleuth/internal/incident"
	"sleuth/internal/oracle"
	"sleuth/internal/store"
)

func nowUTC() time.Time { return time.Now().UTC() }

// assemble resolves the oracle's local evidence indices into concrete
// Evidence, enforces the citation contract, and builds the final result.
// A hypothesis citing fewer than two valid, distinct indices is dropped, not
// repaired. If everything is dropped (or the oracle itself refused), the
// result degrades to the refusal shape so the hypotheses/refusal invariant
// holds for every result this engine ever returns.
func (e *Engine) assemble(c *store.Case, events []incident.TimelineEvent, evidence []incident.Evidence,
	parsedChanges []incident.WhatChanged, or *oracle.Result, avg float64, opts Options, mode string) *incident.AnalysisResult {

	hypotheses := make([]incident.Hypothesis, 0, len(or.Hypotheses))
	for _, rh := range or.Hypotheses {
		cited := resolveIndices(rh.EvidenceIndices, evidence)
		if len(cited) < minEvidence {
			e.logger.Warn("dropping hypothesis with insufficient valid citations",
				"case_id", c.ID, "title", rh.Title, "valid_citations", len(cited))
			continue
		}
		rank := rh.Rank
		if rank < 1 {
			rank = len(hypotheses) + 1
		}
		hypotheses = append(hypotheses, incident.Hypothesis{
			Rank:                 rank,
			Title:                rh.Title,
			RootCause:            rh.RootCause,
			Confidence:           incident.ClampRelevance(rh.Confidence),
			Evidence:             cited,
			CounterEvidence:      resolveIndices(rh.CounterEvidenceIndices, evidence),
			TestsToConfirm:       orEmpty(rh.TestsToConfirm),
			ImmediateMitigations: orEmpty(rh.ImmediateMitigations),
			LongTermFixes:        orEmpty(rh.LongTermFixes),
		})
	}

	// Stable sort by rank: ties keep oracle emission order.
	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].Rank < hypotheses[j].Rank
	})

	if len(hypotheses) == 0 {
		reason := or.RefusalReason
		if reason == "" {
			reason = "Every generated hypothesis failed the evidence citation contract and was dropped. No hypotheses are surfaced rather than guessing."
		}
		return e.refusalResult(c, events, evidence, avg, opts, mode, reason, or.RecommendedNextSteps)
	}

	whatChanged := make([]incident.WhatChanged, 0, len(or.WhatChanged))
	for _, rc := range or.WhatChanged {
		whatChanged = append(whatChanged, incident.WhatChanged{
			Category:    rc.Category,
			Description: rc.Description,
			Evidence:    resolveIndices(rc.EvidenceIndices, evidence),
		})
	}
	if len(whatChanged) == 0 {
		whatChanged = parsedChanges
	}

	confidence := incident.ClampRelevance(or.ConfidenceOverall)
	if confidence == 0 {
		confidence = avg
	}

	return &incident.AnalysisResult{
		CaseID:               c.ID,
		CreatedAt:            nowUTC(),
		TimelineEvents:       capEvents(events),
		Hypotheses:           hypotheses,
		WhatChanged:          whatChanged,
		RecommendedNextSteps: orEmpty(or.RecommendedNextSteps),
		ConfidenceOverall:    confidence,
		Metadata:             e.metadata(evidence, avg, opts, mode),
	}
}

// resolveIndices maps local evidence indices to Evidence, dropping
// out-of-range or negative indices and deduplicating repeats. The oracle's
// intent behind a bad index is never guessed.
func resolveIndices(indices []int, evidence []incident.Evidence) []incident.Evidence {
	seen := make(map[int]bool, len(indices))
	var out []incident.Evidence
	for _, idx := range indices {
		if idx < 0 || idx >= len(evidence) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, evidence[idx])
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
