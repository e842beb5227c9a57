package store

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = 1

// schemaV1 is the case persistence DDL. Analysis results are stored as JSON
// payloads: they are written once and read whole, never queried by field.
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS cases (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	summary    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'created',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id     TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	source_id   TEXT NOT NULL,
	content     TEXT NOT NULL,
	declared_at TEXT,
	position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id    TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	payload    BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id         TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
	hypothesis_rank INTEGER NOT NULL,
	type            TEXT NOT NULL,
	note            TEXT,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artifacts_case ON artifacts(case_id);
CREATE INDEX IF NOT EXISTS idx_analyses_case ON analyses(case_id);
CREATE INDEX IF NOT EXISTS idx_feedback_case ON feedback(case_id);
`
