// Package mcp exposes the hypothesis engine's operations as MCP tools over
// stdio, so agent frontends can drive investigations directly.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"sleuth/internal/incident"
	"sleuth/internal/investigate"
	"sleuth/internal/logging"
	"sleuth/internal/store"
)

// Server wraps the MCP SDK server around one engine instance.
type Server struct {
	MCPServer *sdkmcp.Server

	engine *investigate.Engine
	store  store.Store
}

// NewServer creates an MCP server with the investigation tools registered.
func NewServer(engine *investigate.Engine, st store.Store, version string) *Server {
	s := &Server{engine: engine, store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "sleuth", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "ingest_case",
		Description: "Create an investigation case from incident artifacts and index them for retrieval.",
	}, s.handleIngest)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_case",
		Description: "Analyze a case: retrieve evidence and generate ranked root-cause hypotheses. In strict mode the engine refuses rather than speculating on weak evidence.",
	}, s.handleAnalyze)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "rerun_case",
		Description: "Re-analyze a case under constraints (exclude sources, pin a hypothesis, adjust limits). Appends an independent result to the case history.",
	}, s.handleRerun)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_cases",
		Description: "List all investigation cases with status and last confidence.",
	}, s.handleListCases)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_case",
		Description: "Fetch a case with its artifacts, analysis history and feedback.",
	}, s.handleGetCase)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "submit_feedback",
		Description: "Record a reviewer verdict (confirmed, rejected, uncertain) on a hypothesis of the last analysis.",
	}, s.handleFeedback)
}

// --- Tool input/output types ---

type artifactInput struct {
	Type     string `json:"type" jsonschema:"artifact type (logs, alerts, deploy_history, runbook, metrics_snapshot)"`
	SourceID string `json:"source_id" jsonschema:"identifier of the producing system"`
	Content  string `json:"content" jsonschema:"raw artifact text"`
}

type ingestInput struct {
	Title     string          `json:"title" jsonschema:"short case title"`
	Summary   string          `json:"summary" jsonschema:"incident or change summary"`
	Artifacts []artifactInput `json:"artifacts" jsonschema:"artifacts to ingest"`
}

type ingestOutput struct {
	CaseID        string `json:"case_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
	Status        string `json:"status"`
}

type analyzeInput struct {
	CaseID          string `json:"case_id" jsonschema:"case id from ingest_case"`
	Strict          *bool  `json:"strict_mode,omitempty" jsonschema:"refuse below the evidence floor (default true)"`
	TopK            int    `json:"top_k,omitempty" jsonschema:"evidence excerpts to retrieve"`
	HypothesisCount int    `json:"hypothesis_count,omitempty" jsonschema:"ranked hypotheses to request"`
	FocusArea       string `json:"focus_area,omitempty" jsonschema:"focus (database, auth, network, deployment, performance)"`
	UserNotes       string `json:"user_notes,omitempty" jsonschema:"free-text investigator notes"`
}

type rerunInput struct {
	analyzeInput
	ExcludeSources []string `json:"exclude_sources,omitempty" jsonschema:"source ids to exclude from retrieval"`
	PinHypothesis  string   `json:"pin_hypothesis,omitempty" jsonschema:"prior hypothesis title to weigh"`
}

type analyzeOutput struct {
	Result *incident.AnalysisResult `json:"result"`
}

type listCasesOutput struct {
	Cases []*store.Summary `json:"cases"`
	Total int              `json:"total"`
}

type getCaseInput struct {
	CaseID string `json:"case_id" jsonschema:"case id"`
}

type getCaseOutput struct {
	Case *store.Case `json:"case"`
}

type feedbackInput struct {
	CaseID         string `json:"case_id" jsonschema:"case id"`
	HypothesisRank int    `json:"hypothesis_rank" jsonschema:"rank of the hypothesis being reviewed"`
	Type           string `json:"type" jsonschema:"confirmed, rejected, or uncertain"`
	Note           string `json:"note,omitempty" jsonschema:"optional reviewer note"`
}

type feedbackOutput struct {
	OK string `json:"ok"`
}

// --- Tool handlers ---

func (s *Server) handleIngest(ctx context.Context, _ *sdkmcp.CallToolRequest, input ingestInput) (*sdkmcp.CallToolResult, ingestOutput, error) {
	logger := logging.New("mcp")

	artifacts := make([]incident.Artifact, len(input.Artifacts))
	for i, a := range input.Artifacts {
		artifacts[i] = incident.Artifact{
			Type:     incident.ArtifactType(a.Type),
			SourceID: a.SourceID,
			Content:  a.Content,
		}
	}

	caseID, err := s.engine.CreateCase(input.Title, input.Summary)
	if err != nil {
		return nil, ingestOutput{}, err
	}
	chunks, err := s.engine.Ingest(ctx, caseID, artifacts)
	if err != nil {
		return nil, ingestOutput{}, fmt.Errorf("ingest case %s: %w", caseID, err)
	}

	logger.Info("ingested case via MCP", "case_id", caseID, "chunks", chunks)
	return nil, ingestOutput{CaseID: caseID, ChunksIndexed: chunks, Status: string(incident.StatusIndexed)}, nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeInput) (*sdkmcp.CallToolResult, analyzeOutput, error) {
	res, err := s.engine.Analyze(ctx, input.CaseID, input.toOptions())
	if err != nil {
		return nil, analyzeOutput{}, err
	}
	return nil, analyzeOutput{Result: res}, nil
}

func (s *Server) handleRerun(ctx context.Context, _ *sdkmcp.CallToolRequest, input rerunInput) (*sdkmcp.CallToolResult, analyzeOutput, error) {
	opts := input.toOptions()
	res, err := s.engine.Rerun(ctx, input.CaseID, investigate.Constraints{
		StrictMode:      opts.StrictMode,
		TopK:            opts.TopK,
		HypothesisCount: opts.HypothesisCount,
		FocusArea:       opts.FocusArea,
		UserNotes:       opts.UserNotes,
		ExcludeSources:  input.ExcludeSources,
		PinHypothesis:   input.PinHypothesis,
	})
	if err != nil {
		return nil, analyzeOutput{}, err
	}
	return nil, analyzeOutput{Result: res}, nil
}

func (s *Server) handleListCases(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, listCasesOutput, error) {
	cases, err := s.store.ListCases()
	if err != nil {
		return nil, listCasesOutput{}, err
	}
	return nil, listCasesOutput{Cases: cases, Total: len(cases)}, nil
}

func (s *Server) handleGetCase(_ context.Context, _ *sdkmcp.CallToolRequest, input getCaseInput) (*sdkmcp.CallToolResult, getCaseOutput, error) {
	c, err := s.store.GetCase(input.CaseID)
	if err != nil {
		return nil, getCaseOutput{}, err
	}
	if c == nil {
		return nil, getCaseOutput{}, fmt.Errorf("%w: %s", incident.ErrUnknownCase, input.CaseID)
	}
	return nil, getCaseOutput{Case: c}, nil
}

func (s *Server) handleFeedback(_ context.Context, _ *sdkmcp.CallToolRequest, input feedbackInput) (*sdkmcp.CallToolResult, feedbackOutput, error) {
	err := s.engine.Feedback(input.CaseID, incident.Feedback{
		HypothesisRank: input.HypothesisRank,
		Type:           incident.FeedbackType(input.Type),
		Note:           input.Note,
	})
	if err != nil {
		return nil, feedbackOutput{}, err
	}
	return nil, feedbackOutput{OK: "feedback recorded"}, nil
}

func (in analyzeInput) toOptions() investigate.Options {
	strict := true
	if in.Strict != nil {
		strict = *in.Strict
	}
	return investigate.Options{
		StrictMode:      strict,
		TopK:            in.TopK,
		HypothesisCount: in.HypothesisCount,
		FocusArea:       incident.FocusArea(in.FocusArea),
		UserNotes:       in.UserNotes,
	}
}
