package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ItemSchema represents a row in the item_schema table: the metadata for
// one assessment question.
type ItemSchema struct {
	Question   int     `json:"question"`
	PromptStub string  `json:"prompt_stub"`
	Topic      string  `json:"topic"`
	Standard   string  `json:"standard"`
	MaxPoints  float64 `json:"max_points"`
}

// Response represents a row in the responses table: one student's raw
// scores ordered by question index (Scores[0] is question 1).
type Response struct {
	Student string    `json:"student"`
	Scores  []float64 `json:"scores"`
}

// TopicMastery is a derived rollup row for one (student, topic) pair.
type TopicMastery struct {
	Student           string  `json:"student"`
	Topic             string  `json:"topic"`
	TotalPoints       float64 `json:"total_points"`
	MaxPoints         float64 `json:"max_points"`
	MasteryPercentage float64 `json:"mastery_percentage"`
}

// StandardMastery is a derived rollup row for one (student, standard) pair.
type StandardMastery struct {
	Student           string  `json:"student"`
	Standard          string  `json:"standard"`
	TotalPoints       float64 `json:"total_points"`
	MaxPoints         float64 `json:"max_points"`
	MasteryPercentage float64 `json:"mastery_percentage"`
}

// RunRecord is an entry in the aggregation_runs audit log.
type RunRecord struct {
	RunID        string `json:"run_id"`
	Students     int    `json:"students"`
	TopicRows    int    `json:"topic_rows"`
	StandardRows int    `json:"standard_rows"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

// Store wraps the SQLite database for all edumastery persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Item schema operations ---

// ReplaceItemSchema atomically replaces the full question schema: all old
// rows are deleted and the given rows inserted in a single transaction.
func (s *Store) ReplaceItemSchema(ctx context.Context, items []ItemSchema) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM item_schema"); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO item_schema (question, prompt_stub, topic, standard, max_points)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.ExecContext(ctx,
				it.Question, it.PromptStub, it.Topic, it.Standard, it.MaxPoints); err != nil {
				return err
			}
		}
		return nil
	})
}

// ItemSchemas returns all question schema rows ordered by question number.
func (s *Store) ItemSchemas(ctx context.Context) ([]ItemSchema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, prompt_stub, topic, standard, max_points
		FROM item_schema ORDER BY question
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemSchema
	for rows.Next() {
		var it ItemSchema
		if err := rows.Scan(&it.Question, &it.PromptStub, &it.Topic, &it.Standard, &it.MaxPoints); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- Response operations ---

// ReplaceResponses atomically replaces all response rows.
func (s *Store) ReplaceResponses(ctx context.Context, responses []Response) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM responses"); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO responses (student, scores) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range responses {
			scores, err := json.Marshal(r.Scores)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, r.Student, string(scores)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Responses returns all response rows ordered by student.
func (s *Store) Responses(ctx context.Context) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT student, scores FROM responses ORDER BY student")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		var r Response
		var scores string
		if err := rows.Scan(&r.Student, &scores); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil {
			return nil, fmt.Errorf("decoding scores for %s: %w", r.Student, err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// ListStudents returns the distinct student names ordered alphabetically.
func (s *Store) ListStudents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT student FROM responses ORDER BY student")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		students = append(students, name)
	}
	return students, rows.Err()
}

// --- Mastery rollup operations ---

// ReplaceMastery atomically replaces the full set of derived rollup rows.
// Either the complete old snapshot or the complete new one is visible,
// never a mix: both tables are cleared and repopulated in one transaction.
func (s *Store) ReplaceMastery(ctx context.Context, topics []TopicMastery, standards []StandardMastery) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM topic_mastery"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM standard_mastery"); err != nil {
			return err
		}

		topicStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO topic_mastery (student, topic, total_points, max_points, mastery_percentage)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer topicStmt.Close()

		for _, tm := range topics {
			if _, err := topicStmt.ExecContext(ctx,
				tm.Student, tm.Topic, tm.TotalPoints, tm.MaxPoints, tm.MasteryPercentage); err != nil {
				return err
			}
		}

		stdStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO standard_mastery (student, standard, total_points, max_points, mastery_percentage)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stdStmt.Close()

		for _, sm := range standards {
			if _, err := stdStmt.ExecContext(ctx,
				sm.Student, sm.Standard, sm.TotalPoints, sm.MaxPoints, sm.MasteryPercentage); err != nil {
				return err
			}
		}
		return nil
	})
}

// TopicMasteryFor returns the topic rollups for one student in insertion
// order. Unknown students yield an empty slice, not an error.
func (s *Store) TopicMasteryFor(ctx context.Context, student string) ([]TopicMastery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student, topic, total_points, max_points, mastery_percentage
		FROM topic_mastery WHERE student = ? ORDER BY rowid
	`, student)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TopicMastery
	for rows.Next() {
		var tm TopicMastery
		if err := rows.Scan(&tm.Student, &tm.Topic, &tm.TotalPoints, &tm.MaxPoints, &tm.MasteryPercentage); err != nil {
			return nil, err
		}
		result = append(result, tm)
	}
	return result, rows.Err()
}

// StandardMasteryFor returns the standard rollups for one student in
// insertion order.
func (s *Store) StandardMasteryFor(ctx context.Context, student string) ([]StandardMastery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student, standard, total_points, max_points, mastery_percentage
		FROM standard_mastery WHERE student = ? ORDER BY rowid
	`, student)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StandardMastery
	for rows.Next() {
		var sm StandardMastery
		if err := rows.Scan(&sm.Student, &sm.Standard, &sm.TotalPoints, &sm.MaxPoints, &sm.MasteryPercentage); err != nil {
			return nil, err
		}
		result = append(result, sm)
	}
	return result, rows.Err()
}

// --- Run audit log ---

// LogRun writes an entry to the aggregation run audit log.
func (s *Store) LogRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aggregation_runs (run_id, students, topic_rows, standard_rows, elapsed_ms)
		VALUES (?, ?, ?, ?, ?)
	`, r.RunID, r.Students, r.TopicRows, r.StandardRows, r.ElapsedMs)
	return err
}

// --- Diagnostic helpers ---

// DBStats holds counts of key database objects.
type DBStats struct {
	Questions    int `json:"questions"`
	Students     int `json:"students"`
	TopicRows    int `json:"topic_rows"`
	StandardRows int `json:"standard_rows"`
	Runs         int `json:"runs"`
}

// Stats returns counts of schema rows, students, rollup rows, and runs.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM item_schema", &stats.Questions},
		{"SELECT COUNT(*) FROM responses", &stats.Students},
		{"SELECT COUNT(*) FROM topic_mastery", &stats.TopicRows},
		{"SELECT COUNT(*) FROM standard_mastery", &stats.StandardRows},
		{"SELECT COUNT(*) FROM aggregation_runs", &stats.Runs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
