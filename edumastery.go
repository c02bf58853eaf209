// Package edumastery turns raw per-question assessment scores into
// per-topic and per-standard mastery rollups and assembles intervention
// plans from a corpus of teaching-strategy documents.
package edumastery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmoretti/edumastery/docindex"
	"github.com/lmoretti/edumastery/ingest"
	"github.com/lmoretti/edumastery/mastery"
	"github.com/lmoretti/edumastery/plan"
	"github.com/lmoretti/edumastery/retrieval"
	"github.com/lmoretti/edumastery/store"
)

// Engine is the main entry point for the assessment analytics engine.
type Engine interface {
	// LoadSchema replaces the question schema from a tabular file.
	// Returns the number of questions loaded.
	LoadSchema(ctx context.Context, path string) (int, error)

	// LoadResponses replaces all student responses from a tabular file
	// and recomputes the mastery rollups. Returns the number of students.
	LoadResponses(ctx context.Context, path string) (int, error)

	// LoadInterventions rewrites a tabular strategy file as a markdown
	// document in the corpus and rebuilds the retrieval index.
	LoadInterventions(ctx context.Context, path string) error

	// ProcessDataDir scans a drop folder and loads every recognized
	// assessment file. An empty dir uses the configured DataDir.
	ProcessDataDir(ctx context.Context, dir string) (*ProcessReport, error)

	// Recompute rebuilds all mastery rollups from current data.
	Recompute(ctx context.Context) error

	// Students lists all students with loaded responses.
	Students(ctx context.Context) ([]string, error)

	// Mastery returns a student's rollups. Unknown students get empty
	// lists, not an error.
	Mastery(ctx context.Context, student string) (*mastery.Mastery, error)

	// LowPerforming filters a student's rollups below threshold.
	// A non-positive threshold uses the configured default.
	LowPerforming(ctx context.Context, student string, threshold float64) (*mastery.LowAreas, error)

	// BuildIndex rebuilds the strategy document index and swaps it in.
	// An empty root uses the configured DocumentRoot. Returns the chunk
	// count.
	BuildIndex(root string) (int, error)

	// Plan builds the intervention plan text for a student.
	Plan(ctx context.Context, student string, threshold float64) (string, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// ProcessReport summarizes a ProcessDataDir run.
type ProcessReport struct {
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Files     []FileReport `json:"files"`
}

// FileReport is the outcome for one file in a ProcessDataDir run.
type FileReport struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg        Config
	store      *store.Store
	aggregator *mastery.Engine
	retriever  *retrieval.Engine
	planner    *plan.Assembler
}

// New creates a new edumastery engine with the given configuration. If a
// document corpus is configured and present, the retrieval index is built
// up front; an unreadable corpus is logged, not fatal.
func New(cfg Config) (Engine, error) {
	if cfg.Threshold <= 0 {
		cfg.Threshold = mastery.DefaultThreshold
	}

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	e := &engine{
		cfg:        cfg,
		store:      s,
		aggregator: mastery.New(s),
		retriever:  retrieval.New(nil),
	}
	e.planner = plan.New(e.retriever)

	if cfg.DocumentRoot != "" {
		if _, err := e.BuildIndex(cfg.DocumentRoot); err != nil {
			slog.Warn("initial index build failed", "root", cfg.DocumentRoot, "error", err)
		}
	}

	return e, nil
}

// LoadSchema replaces the question schema from a tabular file.
func (e *engine) LoadSchema(ctx context.Context, path string) (int, error) {
	tbl, err := ingest.ReadTable(path)
	if err != nil {
		return 0, err
	}
	items, err := ingest.ParseSchema(tbl)
	if err != nil {
		return 0, err
	}
	if err := e.store.ReplaceItemSchema(ctx, items); err != nil {
		return 0, fmt.Errorf("replacing item schema: %w", err)
	}
	slog.Info("ingest: schema loaded", "file", filepath.Base(path), "questions", len(items))
	return len(items), nil
}

// LoadResponses replaces all responses and recomputes mastery rollups.
func (e *engine) LoadResponses(ctx context.Context, path string) (int, error) {
	tbl, err := ingest.ReadTable(path)
	if err != nil {
		return 0, err
	}
	responses, err := ingest.ParseResponses(tbl)
	if err != nil {
		return 0, err
	}
	if err := e.store.ReplaceResponses(ctx, responses); err != nil {
		return 0, fmt.Errorf("replacing responses: %w", err)
	}
	if err := e.aggregator.Recompute(ctx); err != nil {
		return 0, err
	}
	slog.Info("ingest: responses loaded", "file", filepath.Base(path), "students", len(responses))
	return len(responses), nil
}

// LoadInterventions converts a strategy table to markdown in the corpus
// and rebuilds the index so the new strategies are searchable.
func (e *engine) LoadInterventions(ctx context.Context, path string) error {
	tbl, err := ingest.ReadTable(path)
	if err != nil {
		return err
	}

	md := ingest.InterventionsMarkdown(tbl)
	if err := os.MkdirAll(e.cfg.DocumentRoot, 0755); err != nil {
		return fmt.Errorf("creating document root: %w", err)
	}
	target := filepath.Join(e.cfg.DocumentRoot, "interventions.md")
	if err := os.WriteFile(target, []byte(md), 0644); err != nil {
		return fmt.Errorf("writing interventions document: %w", err)
	}

	if _, err := e.BuildIndex(e.cfg.DocumentRoot); err != nil {
		return err
	}
	slog.Info("ingest: interventions loaded", "file", filepath.Base(path), "target", target)
	return nil
}

// ProcessDataDir loads every recognized assessment file in a drop folder.
func (e *engine) ProcessDataDir(ctx context.Context, dir string) (*ProcessReport, error) {
	if dir == "" {
		dir = e.cfg.DataDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data folder: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning data folder: %w", err)
	}

	// Schema files load before responses so the rollups that responses
	// trigger always see the freshest question metadata, regardless of
	// directory order. Interventions go last: they rebuild the index.
	byType := map[ingest.FileType][]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !ingest.SupportedFile(path) {
			continue
		}
		fileType := ingest.DetectFileType(path)
		byType[fileType] = append(byType[fileType], path)
	}

	report := &ProcessReport{}
	for _, fileType := range []ingest.FileType{
		ingest.FileSchema, ingest.FileResponses, ingest.FileInterventions, ingest.FileUnknown,
	} {
		for _, path := range byType[fileType] {
			fr := FileReport{Name: filepath.Base(path), Type: string(fileType)}

			var loadErr error
			switch fileType {
			case ingest.FileSchema:
				_, loadErr = e.LoadSchema(ctx, path)
			case ingest.FileResponses:
				_, loadErr = e.LoadResponses(ctx, path)
			case ingest.FileInterventions:
				loadErr = e.LoadInterventions(ctx, path)
			default:
				fr.Status = "skipped"
				fr.Error = ErrUnknownFileType.Error()
				report.Skipped++
				report.Files = append(report.Files, fr)
				continue
			}

			if loadErr != nil {
				fr.Status = "failed"
				fr.Error = loadErr.Error()
				report.Failed++
				slog.Warn("ingest: file failed", "file", fr.Name, "error", loadErr)
			} else {
				fr.Status = "success"
				report.Processed++
			}
			report.Files = append(report.Files, fr)
		}
	}

	// A schema-only drop still invalidates rollups computed from responses
	// already in the store. LoadResponses recomputes on its own.
	if len(byType[ingest.FileSchema]) > 0 && len(byType[ingest.FileResponses]) == 0 {
		if err := e.Recompute(ctx); err != nil {
			return report, err
		}
	}

	slog.Info("ingest: data folder processed",
		"dir", dir, "processed", report.Processed,
		"failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

// Recompute rebuilds all mastery rollups from current data.
func (e *engine) Recompute(ctx context.Context) error {
	return e.aggregator.Recompute(ctx)
}

// Students lists all students with loaded responses.
func (e *engine) Students(ctx context.Context) ([]string, error) {
	return e.store.ListStudents(ctx)
}

// Mastery returns a student's rollups.
func (e *engine) Mastery(ctx context.Context, student string) (*mastery.Mastery, error) {
	return e.aggregator.Mastery(ctx, student)
}

// LowPerforming filters a student's rollups below threshold.
func (e *engine) LowPerforming(ctx context.Context, student string, threshold float64) (*mastery.LowAreas, error) {
	if threshold <= 0 {
		threshold = e.cfg.Threshold
	}
	return e.aggregator.LowPerforming(ctx, student, threshold)
}

// BuildIndex rebuilds the document index and atomically swaps it in.
func (e *engine) BuildIndex(root string) (int, error) {
	if root == "" {
		root = e.cfg.DocumentRoot
	}
	idx, err := docindex.Build(root)
	if err != nil {
		return 0, fmt.Errorf("building index: %w", err)
	}
	e.retriever.SetIndex(idx)
	return idx.Len(), nil
}

// Plan builds the intervention plan text for a student.
func (e *engine) Plan(ctx context.Context, student string, threshold float64) (string, error) {
	low, err := e.LowPerforming(ctx, student, threshold)
	if err != nil {
		return "", err
	}
	text := e.planner.Build(low)
	slog.Debug("plan: assembled",
		"student", student,
		"low_topics", len(low.LowTopics),
		"low_standards", len(low.LowStandards),
		"chars", len(text))
	return text, nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}
