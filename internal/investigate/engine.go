// Package investigate runs the evidence-grounded hypothesis pipeline:
// timeline reconstruction, evidence retrieval, the confidence gate, oracle
// invocation, and response assembly.
package investigate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sleuth/internal/chunk"
	"sleuth/internal/config"
	"sleuth/internal/incident"
	"sleuth/internal/logging"
	"sleuth/internal/oracle"
	"sleuth/internal/store"
	"sleuth/internal/timeline"
	"sleuth/internal/vector"
)

// embedBatchSize bounds one embedding call; embedWorkers bounds how many
// batches are in flight during ingestion.
const (
	embedBatchSize = 16
	embedWorkers   = 4
	maxTimelineLen = 30
)

// Engine wires the pipeline together. Cases are the isolation unit: a
// per-case mutex serializes analyze/rerun against one case while distinct
// cases proceed fully concurrently.
type Engine struct {
	store    store.Store
	vectors  *vector.Repository
	embedder vector.Embedder
	oracle   oracle.Oracle
	cfg      config.Settings
	model    string
	logger   *slog.Logger

	mu        sync.Mutex
	caseLocks map[string]*sync.Mutex
}

// New builds an Engine. model names the generator backend for result metadata.
func New(st store.Store, vectors *vector.Repository, embedder vector.Embedder, orc oracle.Oracle, cfg config.Settings, model string) *Engine {
	return &Engine{
		store:     st,
		vectors:   vectors,
		embedder:  embedder,
		oracle:    orc,
		cfg:       cfg,
		model:     model,
		logger:    logging.New("investigate"),
		caseLocks: make(map[string]*sync.Mutex),
	}
}

// lockCase returns the unlock func for the case's serialization mutex.
func (e *Engine) lockCase(caseID string) func() {
	e.mu.Lock()
	lock, ok := e.caseLocks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		e.caseLocks[caseID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateCase registers a new empty case and returns its id.
func (e *Engine) CreateCase(title, summary string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", &incident.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	id := uuid.NewString()
	err := e.store.CreateCase(&store.Case{
		ID:      id,
		Title:   title,
		Summary: summary,
		Status:  incident.StatusCreated,
	})
	if err != nil {
		return "", fmt.Errorf("create case: %w", err)
	}
	e.logger.Info("created case", "case_id", id, "title", title)
	return id, nil
}

// Ingest validates and stores artifacts, chunks and embeds their content,
// and appends the chunks to the case's index. The case reaches Indexed
// before Ingest returns, so a subsequent Analyze always observes the new
// artifacts. Returns the number of chunks indexed.
func (e *Engine) Ingest(ctx context.Context, caseID string, artifacts []incident.Artifact) (int, error) {
	if len(artifacts) == 0 {
		return 0, &incident.ValidationError{Field: "artifacts", Reason: "at least one artifact is required"}
	}
	for i, a := range artifacts {
		if strings.TrimSpace(a.Content) == "" || strings.TrimSpace(a.SourceID) == "" {
			return 0, &incident.ValidationError{
				Field:  fmt.Sprintf("artifacts[%d]", i),
				Reason: "content and source_id are required",
				Err:    incident.ErrEmptyArtifact,
			}
		}
	}

	unlock := e.lockCase(caseID)
	defer unlock()

	c, err := e.store.GetCase(caseID)
	if err != nil {
		return 0, err
	}
	if c == nil {
		return 0, fmt.Errorf("case %s: %w", caseID, incident.ErrUnknownCase)
	}

	if err := e.store.AppendArtifacts(caseID, artifacts); err != nil {
		return 0, err
	}

	indexed, err := e.indexArtifacts(ctx, caseID, artifacts)
	if err != nil {
		return 0, err
	}

	if err := e.store.SetStatus(caseID, incident.StatusIndexed); err != nil {
		return 0, err
	}

	e.logger.Info("ingested artifacts", "case_id", caseID, "artifacts", len(artifacts), "chunks", indexed)
	return indexed, nil
}

// DeleteCase removes the case and its index together, so no orphaned vectors
// outlive the case.
func (e *Engine) DeleteCase(caseID string) error {
	unlock := e.lockCase(caseID)
	defer unlock()

	e.vectors.Delete(caseID)
	if err := e.store.DeleteCase(caseID); err != nil {
		return err
	}

	// drop the serialization mutex too; a waiter still holding the old
	// pointer just finds the case gone
	e.mu.Lock()
	delete(e.caseLocks, caseID)
	e.mu.Unlock()
	return nil
}

// Analyze runs the full pipeline for one case and appends the result to its
// bounded history. Refusal is a normal result, not an error.
func (e *Engine) Analyze(ctx context.Context, caseID string, opts Options) (*incident.AnalysisResult, error) {
	return e.run(ctx, caseID, opts, "analyze")
}

// Rerun re-executes the pipeline under the given constraints and appends a
// fresh, independent result to the case history.
func (e *Engine) Rerun(ctx context.Context, caseID string, cons Constraints) (*incident.AnalysisResult, error) {
	opts := Options{
		StrictMode:      cons.StrictMode,
		TopK:            cons.TopK,
		HypothesisCount: cons.HypothesisCount,
		FocusArea:       cons.FocusArea,
		UserNotes:       cons.UserNotes,
		ExcludeSources:  cons.ExcludeSources,
		PinHypothesis:   cons.PinHypothesis,
	}
	return e.run(ctx, caseID, opts, "rerun")
}

func (e *Engine) run(ctx context.Context, caseID string, opts Options, mode string) (*incident.AnalysisResult, error) {
	unlock := e.lockCase(caseID)
	defer unlock()

	c, err := e.store.GetCase(caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("case %s: %w", caseID, incident.ErrUnknownCase)
	}
	if c.Status == incident.StatusCreated {
		return nil, &incident.ValidationError{Field: "case", Reason: "not yet indexed; ingest artifacts first"}
	}
	opts = opts.withDefaults(e.cfg)

	events := timeline.ParseAll(c.Artifacts)
	changes := timeline.ExtractChanges(c.Artifacts)

	ix, err := e.ensureIndex(ctx, c)
	if err != nil {
		return nil, err
	}

	query := buildQuery(c.Summary, opts.FocusArea)
	queryVec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	evidence := ix.Search(queryVec, opts.TopK, toSet(opts.ExcludeSources))
	avg := avgRelevance(evidence)

	e.logger.Info("retrieved evidence", "case_id", caseID, "mode", mode,
		"count", len(evidence), "avg_relevance", avg, "strict", opts.StrictMode)

	if reason := gate(opts.StrictMode, evidence, avg, e.cfg.ConfidenceThreshold); reason != "" {
		res := e.refusalResult(c, events, evidence, avg, opts, mode, reason, nil)
		return res, e.store.SaveAnalysis(caseID, res, e.cfg.HistoryLimit)
	}

	req := oracle.Request{
		Summary:         c.Summary,
		UserNotes:       notesWithPin(opts.UserNotes, opts.PinHypothesis),
		TimelineSummary: summarizeTimeline(events),
		Changes:         changes,
		Evidence:        evidence,
		FocusArea:       opts.FocusArea,
		HypothesisCount: opts.HypothesisCount,
	}

	oracleResult, err := e.propose(ctx, req)
	if err != nil {
		if errors.Is(err, incident.ErrSchemaViolation) {
			// Degrade to a refusal rather than surfacing fabricated content.
			e.logger.Warn("oracle contract failure, degrading to refusal", "case_id", caseID, "err", err)
			res := e.refusalResult(c, events, evidence, avg, opts, mode,
				"The reasoning backend did not produce a contract-valid analysis. No hypotheses are surfaced rather than risking fabricated ones.", nil)
			return res, e.store.SaveAnalysis(caseID, res, e.cfg.HistoryLimit)
		}
		return nil, err
	}

	res := e.assemble(c, events, evidence, changes, oracleResult, avg, opts, mode)
	if err := e.store.SaveAnalysis(caseID, res, e.cfg.HistoryLimit); err != nil {
		return nil, err
	}

	e.logger.Info("analysis complete", "case_id", caseID, "mode", mode,
		"hypotheses", len(res.Hypotheses), "refused", res.Refused(), "confidence", res.ConfidenceOverall)
	return res, nil
}

// ensureIndex returns the case's index, rebuilding it from stored artifacts
// when it was evicted or the process restarted.
func (e *Engine) ensureIndex(ctx context.Context, c *store.Case) (*vector.Index, error) {
	if ix := e.vectors.Get(c.ID); ix != nil && ix.Len() > 0 {
		return ix, nil
	}
	if _, err := e.indexArtifacts(ctx, c.ID, c.Artifacts); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return e.vectors.GetOrCreate(c.ID), nil
}

// indexArtifacts chunks and embeds artifact content and appends the result to
// the case index. Batches run in parallel against the embedding collaborator.
func (e *Engine) indexArtifacts(ctx context.Context, caseID string, artifacts []incident.Artifact) (int, error) {
	opts := chunk.Options{Size: e.cfg.ChunkSize, Overlap: e.cfg.ChunkOverlap}

	var chunks []vector.Chunk
	for _, a := range artifacts {
		for seq, text := range chunk.Split(a.Content, opts) {
			chunks = append(chunks, vector.Chunk{
				Text:         text,
				SourceID:     a.SourceID,
				ArtifactType: a.Type,
				Sequence:     seq,
			})
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for start := 0; start < len(chunks); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Text
			}
			vecs, err := e.embedBatch(gctx, texts)
			if err != nil {
				return err
			}
			for i := range vecs {
				chunks[start+i].Vector = vecs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	e.vectors.GetOrCreate(caseID).Add(chunks)
	return len(chunks), nil
}

// embedBatch calls the embedding collaborator with a deadline and one retry.
func (e *Engine) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := e.withRetry(ctx, func(callCtx context.Context) error {
		v, err := e.embedder.Embed(callCtx, texts)
		if err != nil {
			return err
		}
		vecs = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	return vecs, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return vecs[0], nil
}

// propose invokes the oracle with a deadline and one retry on transient
// failure. Contract violations are not retried here: the oracle layer already
// retried once, and a second schema failure must degrade, not loop.
func (e *Engine) propose(ctx context.Context, req oracle.Request) (*oracle.Result, error) {
	var result *oracle.Result
	err := e.withRetry(ctx, func(callCtx context.Context) error {
		r, err := e.oracle.Propose(callCtx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withRetry runs fn with the per-attempt call timeout and retries exactly
// once on transient failure. Validation and contract errors are never
// retried; deadline errors surface as ErrUpstreamTimeout.
func (e *Engine) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout.Std())
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err() // caller cancelled or timed out; don't retry
		}
		if incident.IsValidation(err) || errors.Is(err, incident.ErrSchemaViolation) {
			return err
		}
		if attempt == 0 {
			e.logger.Warn("upstream call failed, retrying once", "err", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", incident.ErrUpstreamTimeout, err)
	}
	return err
}

// Feedback records a reviewer verdict on a hypothesis of the last analysis.
func (e *Engine) Feedback(caseID string, fb incident.Feedback) error {
	if fb.HypothesisRank < 1 {
		return &incident.ValidationError{Field: "hypothesis_rank", Reason: "must be >= 1"}
	}
	switch fb.Type {
	case incident.FeedbackConfirmed, incident.FeedbackRejected, incident.FeedbackUncertain:
	default:
		return &incident.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown feedback type %q", fb.Type)}
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	return e.store.AddFeedback(caseID, fb)
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

func notesWithPin(notes, pin string) string {
	if pin == "" {
		return notes
	}
	hint := "Prior hypothesis to weigh: " + pin
	if notes == "" {
		return hint
	}
	return notes + "\n" + hint
}
