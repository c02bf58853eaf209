package store

// schemaSQL returns the DDL for all tables.
func schemaSQL() string {
	return `
-- Question metadata, one row per question. Replaced wholesale on reload.
CREATE TABLE IF NOT EXISTS item_schema (
    question INTEGER PRIMARY KEY,
    prompt_stub TEXT NOT NULL,
    topic TEXT NOT NULL,
    standard TEXT NOT NULL,
    max_points REAL NOT NULL
);

-- Raw per-student scores. scores is a JSON array ordered by question index
-- (element 0 is question 1). Replaced wholesale on reload.
CREATE TABLE IF NOT EXISTS responses (
    student TEXT PRIMARY KEY,
    scores JSON NOT NULL
);

-- Derived rollups, fully recomputed on every aggregation run.
CREATE TABLE IF NOT EXISTS topic_mastery (
    student TEXT NOT NULL,
    topic TEXT NOT NULL,
    total_points REAL NOT NULL,
    max_points REAL NOT NULL,
    mastery_percentage REAL NOT NULL,
    PRIMARY KEY (student, topic)
);

CREATE TABLE IF NOT EXISTS standard_mastery (
    student TEXT NOT NULL,
    standard TEXT NOT NULL,
    total_points REAL NOT NULL,
    max_points REAL NOT NULL,
    mastery_percentage REAL NOT NULL,
    PRIMARY KEY (student, standard)
);

-- Aggregation run audit log
CREATE TABLE IF NOT EXISTS aggregation_runs (
    run_id TEXT PRIMARY KEY,
    students INTEGER NOT NULL,
    topic_rows INTEGER NOT NULL,
    standard_rows INTEGER NOT NULL,
    elapsed_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_topic_mastery_student ON topic_mastery(student);
CREATE INDEX IF NOT EXISTS idx_standard_mastery_student ON standard_mastery(student);
CREATE INDEX IF NOT EXISTS idx_item_schema_topic ON item_schema(topic);
CREATE INDEX IF NOT EXISTS idx_item_schema_standard ON item_schema(standard);
`
}
