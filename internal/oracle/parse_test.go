package oracle

import (
	"errors"
	"testing"
)

const validResult = `{
  "hypotheses": [
    {
      "rank": 1,
      "title": "Connection pool exhaustion",
      "root_cause": "Pool capacity lowered during the 13:55 deploy",
      "confidence": 0.8,
      "evidence_indices": [0, 2],
      "tests_to_confirm": ["Compare pool config before and after the deploy"],
      "immediate_mitigations": ["Raise max_connections"],
      "long_term_fixes": ["Alert on pool saturation"]
    }
  ],
  "what_changed": [],
  "recommended_next_steps": ["Check the deploy diff"],
  "confidence_overall": 0.75,
  "refusal_reason": ""
}`

func TestParseResultBareJSON(t *testing.T) {
	res, err := parseResult([]byte(validResult))
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if len(res.Hypotheses) != 1 || res.Hypotheses[0].Title != "Connection pool exhaustion" {
		t.Fatalf("hypotheses: %+v", res.Hypotheses)
	}
	if got := res.Hypotheses[0].EvidenceIndices; len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("evidence indices: %v", got)
	}
	if res.ConfidenceOverall != 0.75 {
		t.Fatalf("confidence: %v", res.ConfidenceOverall)
	}
}

func TestParseResultStripsFences(t *testing.T) {
	fenced := "```json\n" + validResult + "\n```"
	if _, err := parseResult([]byte(fenced)); err != nil {
		t.Fatalf("fenced json: %v", err)
	}
	bare := "```\n" + validResult + "\n```"
	if _, err := parseResult([]byte(bare)); err != nil {
		t.Fatalf("fenced without language: %v", err)
	}
}

func TestParseResultRefusalOnly(t *testing.T) {
	res, err := parseResult([]byte(`{"hypotheses": [], "refusal_reason": "evidence too weak"}`))
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if res.RefusalReason != "evidence too weak" {
		t.Fatalf("refusal: %+v", res)
	}
}

func TestParseResultRejectsGarbage(t *testing.T) {
	if _, err := parseResult([]byte("the root cause is probably DNS")); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
	if _, err := parseResult(nil); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestParseResultRejectsEmptyResult(t *testing.T) {
	_, err := parseResult([]byte(`{"hypotheses": [], "refusal_reason": ""}`))
	if !errors.Is(err, errEmptyResult) {
		t.Fatalf("got %v, want errEmptyResult", err)
	}
}
