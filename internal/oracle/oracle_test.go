package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sleuth/internal/incident"
)

// scriptedChat replays canned responses in order.
type scriptedChat struct {
	responses []string
	err       error
	calls     int
	lastUser  string
}

func (s *scriptedChat) Chat(_ context.Context, _, user string) ([]byte, error) {
	s.lastUser = user
	i := s.calls
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return []byte(s.responses[i]), nil
}

func testRequest() Request {
	return Request{
		Summary:         "Payment API 502s after the 13:55 deploy",
		TimelineSummary: "- [13:55] deploy: Deploy detected",
		Evidence: []incident.Evidence{
			{SourceID: "api", Excerpt: "connection pool exhausted", Relevance: 0.9, ArtifactType: incident.ArtifactLogs},
			{SourceID: "ci", Excerpt: "deployed build 2143", Relevance: 0.8, ArtifactType: incident.ArtifactDeployHistory},
		},
		HypothesisCount: 3,
	}
}

func TestGeneratorProposeRetriesInvalidOnce(t *testing.T) {
	chat := &scriptedChat{responses: []string{"not json at all", validResult}}
	g := NewGenerator(chat)

	res, err := g.Propose(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if chat.calls != 2 {
		t.Fatalf("calls: got %d, want 2", chat.calls)
	}
	if len(res.Hypotheses) != 1 {
		t.Fatalf("hypotheses: %+v", res.Hypotheses)
	}
}

func TestGeneratorProposePersistentViolation(t *testing.T) {
	chat := &scriptedChat{responses: []string{"garbage", "more garbage"}}
	g := NewGenerator(chat)

	_, err := g.Propose(context.Background(), testRequest())
	if !errors.Is(err, incident.ErrSchemaViolation) {
		t.Fatalf("got %v, want ErrSchemaViolation", err)
	}
	if chat.calls != 2 {
		t.Fatalf("calls: got %d, want 2", chat.calls)
	}
}

func TestGeneratorProposeTransportError(t *testing.T) {
	chat := &scriptedChat{err: errors.New("connection reset")}
	g := NewGenerator(chat)

	_, err := g.Propose(context.Background(), testRequest())
	if err == nil || errors.Is(err, incident.ErrSchemaViolation) {
		t.Fatalf("transport errors must not surface as schema violations: %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("transport errors must not be retried here: calls=%d", chat.calls)
	}
}

func TestBuildUserPromptEnumeratesEvidence(t *testing.T) {
	chat := &scriptedChat{responses: []string{validResult}}
	g := NewGenerator(chat)
	req := testRequest()
	req.FocusArea = incident.FocusDatabase

	if _, err := g.Propose(context.Background(), req); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	for _, want := range []string{"[0]", "[1]", "connection pool exhausted", req.Summary} {
		if !strings.Contains(chat.lastUser, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, chat.lastUser)
		}
	}
}

func TestExpandFocus(t *testing.T) {
	if got := ExpandFocus(incident.FocusDatabase); !strings.Contains(got, "database") {
		t.Fatalf("database focus terms: %q", got)
	}
	if got := ExpandFocus(incident.FocusGeneral); got != "" {
		t.Fatalf("general focus must not add terms: %q", got)
	}
	if got := ExpandFocus("made-up"); got != "" {
		t.Fatalf("unknown focus must not add terms: %q", got)
	}
}
