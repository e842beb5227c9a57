package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sleuth/internal/incident"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .sleuth) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("store schema version %d is newer than this build supports (%d)", version, currentSchemaVersion)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) CreateCase(c *Case) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("case id is required")
	}
	if c.Status == "" {
		c.Status = incident.StatusCreated
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO cases(id, title, summary, status, created_at) VALUES(?, ?, ?, ?, ?)",
		c.ID, c.Title, c.Summary, string(c.Status), c.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	if err := insertArtifactsTx(tx, c.ID, c.Artifacts, 0); err != nil {
		return err
	}
	return tx.Commit()
}

func insertArtifactsTx(tx *sql.Tx, caseID string, artifacts []incident.Artifact, startPos int) error {
	for i, a := range artifacts {
		var declared any
		if !a.Timestamp.IsZero() {
			declared = a.Timestamp.UTC().Format(time.RFC3339)
		}
		_, err := tx.Exec(
			"INSERT INTO artifacts(case_id, type, source_id, content, declared_at, position) VALUES(?, ?, ?, ?, ?, ?)",
			caseID, string(a.Type), a.SourceID, a.Content, declared, startPos+i,
		)
		if err != nil {
			return fmt.Errorf("insert artifact %s: %w", a.SourceID, err)
		}
	}
	return nil
}

func (s *SqlStore) GetCase(id string) (*Case, error) {
	var c Case
	var status, createdAt string
	err := s.db.QueryRow(
		"SELECT id, title, summary, status, created_at FROM cases WHERE id = ?", id,
	).Scan(&c.ID, &c.Title, &c.Summary, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	c.Status = incident.CaseStatus(status)
	c.CreatedAt = parseTime(createdAt)

	if c.Artifacts, err = s.loadArtifacts(id); err != nil {
		return nil, err
	}
	if c.History, err = s.loadAnalyses(id); err != nil {
		return nil, err
	}
	if len(c.History) > 0 {
		last := c.History[len(c.History)-1]
		c.LastAnalysis = &last
	}
	if c.Feedback, err = s.loadFeedback(id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SqlStore) loadArtifacts(caseID string) ([]incident.Artifact, error) {
	rows, err := s.db.Query(
		"SELECT type, source_id, content, declared_at FROM artifacts WHERE case_id = ? ORDER BY position", caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	defer rows.Close()
	var out []incident.Artifact
	for rows.Next() {
		var a incident.Artifact
		var atype string
		var declared sql.NullString
		if err := rows.Scan(&atype, &a.SourceID, &a.Content, &declared); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Type = incident.ArtifactType(atype)
		if declared.Valid {
			a.Timestamp = parseTime(declared.String)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SqlStore) loadAnalyses(caseID string) ([]incident.AnalysisResult, error) {
	rows, err := s.db.Query(
		"SELECT payload FROM analyses WHERE case_id = ? ORDER BY id", caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("load analyses: %w", err)
	}
	defer rows.Close()
	var out []incident.AnalysisResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		var res incident.AnalysisResult
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, fmt.Errorf("decode analysis payload: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *SqlStore) loadFeedback(caseID string) ([]incident.Feedback, error) {
	rows, err := s.db.Query(
		"SELECT hypothesis_rank, type, note, created_at FROM feedback WHERE case_id = ? ORDER BY id", caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	defer rows.Close()
	var out []incident.Feedback
	for rows.Next() {
		var fb incident.Feedback
		var ftype, createdAt string
		var note sql.NullString
		if err := rows.Scan(&fb.HypothesisRank, &ftype, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Type = incident.FeedbackType(ftype)
		fb.Note = note.String
		fb.CreatedAt = parseTime(createdAt)
		out = append(out, fb)
	}
	return out, rows.Err()
}

func (s *SqlStore) ListCases() ([]*Summary, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.status, c.created_at,
		       (SELECT COUNT(*) FROM artifacts a WHERE a.case_id = c.id)
		FROM cases c
		ORDER BY c.created_at DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		var sum Summary
		var status, createdAt string
		if err := rows.Scan(&sum.ID, &sum.Title, &status, &createdAt, &sum.ArtifactCount); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		sum.Status = incident.CaseStatus(status)
		sum.CreatedAt = parseTime(createdAt)
		out = append(out, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sum := range out {
		var payload []byte
		err := s.db.QueryRow(
			"SELECT payload FROM analyses WHERE case_id = ? ORDER BY id DESC LIMIT 1", sum.ID,
		).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load last analysis: %w", err)
		}
		var res incident.AnalysisResult
		if err := json.Unmarshal(payload, &res); err != nil {
			continue // a corrupt payload should not break listing
		}
		sum.LastAnalyzedAt = res.CreatedAt
		sum.LastConfidence = res.ConfidenceOverall
	}
	return out, nil
}

func (s *SqlStore) DeleteCase(id string) error {
	if _, err := s.db.Exec("DELETE FROM cases WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	return nil
}

func (s *SqlStore) AppendArtifacts(id string, artifacts []incident.Artifact) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var pos int
	err = tx.QueryRow("SELECT COALESCE(MAX(position)+1, 0) FROM artifacts WHERE case_id = ?", id).Scan(&pos)
	if err != nil {
		return fmt.Errorf("next artifact position: %w", err)
	}
	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM cases WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	if err := insertArtifactsTx(tx, id, artifacts, pos); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqlStore) SetStatus(id string, status incident.CaseStatus) error {
	var current string
	err := s.db.QueryRow("SELECT status FROM cases WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if status.Before(incident.CaseStatus(current)) {
		return nil // monotonic: never regress
	}
	if _, err := s.db.Exec("UPDATE cases SET status = ? WHERE id = ?", string(status), id); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (s *SqlStore) SaveAnalysis(id string, res *incident.AnalysisResult, limit int) error {
	if res == nil {
		return fmt.Errorf("analysis result is nil")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM cases WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}

	_, err = tx.Exec(
		"INSERT INTO analyses(case_id, created_at, payload) VALUES(?, ?, ?)",
		id, nowUTC(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	if limit > 0 {
		// Prune oldest entries beyond the history bound.
		_, err = tx.Exec(`
			DELETE FROM analyses WHERE case_id = ? AND id NOT IN (
				SELECT id FROM analyses WHERE case_id = ? ORDER BY id DESC LIMIT ?
			)`, id, id, limit)
		if err != nil {
			return fmt.Errorf("prune analyses: %w", err)
		}
	}

	var current string
	if err := tx.QueryRow("SELECT status FROM cases WHERE id = ?", id).Scan(&current); err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if incident.CaseStatus(current).Before(incident.StatusAnalyzed) {
		if _, err := tx.Exec("UPDATE cases SET status = ? WHERE id = ?", string(incident.StatusAnalyzed), id); err != nil {
			return fmt.Errorf("advance status: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SqlStore) AddFeedback(id string, fb incident.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	var exists int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cases WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("case %s: %w", id, incident.ErrUnknownCase)
	}
	_, err := s.db.Exec(
		"INSERT INTO feedback(case_id, hypothesis_rank, type, note, created_at) VALUES(?, ?, ?, ?, ?)",
		id, fb.HypothesisRank, string(fb.Type), fb.Note, fb.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
