// Package mastery recomputes per-topic and per-standard mastery rollups
// from the raw question schema and student responses.
package mastery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lmoretti/edumastery/store"
)

// DefaultThreshold is the mastery percentage below which a topic or
// standard counts as low-performing.
const DefaultThreshold = 70.0

// Mastery holds all rollup rows for one student.
type Mastery struct {
	TopicMastery    []store.TopicMastery    `json:"topic_mastery"`
	StandardMastery []store.StandardMastery `json:"standard_mastery"`
}

// LowAreas holds the rollup rows below a mastery threshold.
type LowAreas struct {
	LowTopics    []store.TopicMastery    `json:"low_topics"`
	LowStandards []store.StandardMastery `json:"low_standards"`
}

// Engine recomputes and serves mastery rollups. Recompute calls are
// serialized: two racing full-replace writes would corrupt the derived
// tables, so only one aggregation transaction runs at a time.
type Engine struct {
	store *store.Store
	mu    sync.Mutex
}

// New creates an aggregation engine over the given store.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Recompute rebuilds all TopicMastery and StandardMastery rows from the
// current item schema and responses and persists them as a single atomic
// replace. Calling it twice with unchanged inputs yields identical rows.
func (e *Engine) Recompute(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	schema, err := e.store.ItemSchemas(ctx)
	if err != nil {
		return fmt.Errorf("loading item schema: %w", err)
	}
	responses, err := e.store.Responses(ctx)
	if err != nil {
		return fmt.Errorf("loading responses: %w", err)
	}

	topics, standards := Aggregate(schema, responses)

	if err := e.store.ReplaceMastery(ctx, topics, standards); err != nil {
		return fmt.Errorf("replacing mastery rollups: %w", err)
	}

	elapsed := time.Since(start)
	runID := uuid.NewString()
	if err := e.store.LogRun(ctx, store.RunRecord{
		RunID:        runID,
		Students:     len(responses),
		TopicRows:    len(topics),
		StandardRows: len(standards),
		ElapsedMs:    elapsed.Milliseconds(),
	}); err != nil {
		slog.Warn("aggregate: recording run failed", "run_id", runID, "error", err)
	}

	slog.Info("aggregate: run complete",
		"run_id", runID,
		"students", len(responses),
		"topic_rows", len(topics),
		"standard_rows", len(standards),
		"elapsed", elapsed.Round(time.Millisecond))
	return nil
}

// Mastery returns all rollup rows for one student. Unknown students get
// empty lists, not an error. The caller decides what "not found" means.
func (e *Engine) Mastery(ctx context.Context, student string) (*Mastery, error) {
	topics, err := e.store.TopicMasteryFor(ctx, student)
	if err != nil {
		return nil, fmt.Errorf("loading topic mastery: %w", err)
	}
	standards, err := e.store.StandardMasteryFor(ctx, student)
	if err != nil {
		return nil, fmt.Errorf("loading standard mastery: %w", err)
	}

	m := &Mastery{
		TopicMastery:    topics,
		StandardMastery: standards,
	}
	if m.TopicMastery == nil {
		m.TopicMastery = []store.TopicMastery{}
	}
	if m.StandardMastery == nil {
		m.StandardMastery = []store.StandardMastery{}
	}
	return m, nil
}

// LowPerforming filters a student's rollups down to the areas whose
// mastery percentage is strictly below threshold.
func (e *Engine) LowPerforming(ctx context.Context, student string, threshold float64) (*LowAreas, error) {
	m, err := e.Mastery(ctx, student)
	if err != nil {
		return nil, err
	}

	low := &LowAreas{
		LowTopics:    []store.TopicMastery{},
		LowStandards: []store.StandardMastery{},
	}
	for _, tm := range m.TopicMastery {
		if tm.MasteryPercentage < threshold {
			low.LowTopics = append(low.LowTopics, tm)
		}
	}
	for _, sm := range m.StandardMastery {
		if sm.MasteryPercentage < threshold {
			low.LowStandards = append(low.LowStandards, sm)
		}
	}
	return low, nil
}

// accumulator collects earned and possible points for one grouping key.
type accumulator struct {
	total float64
	max   float64
}

// Aggregate computes the full rollup set from schema and responses. It is
// a pure function: question index i+1 in a response maps to the schema row
// with that question number; questions without a schema row contribute to
// no rollup. Raw scores are passed through unclamped.
func Aggregate(schema []store.ItemSchema, responses []store.Response) ([]store.TopicMastery, []store.StandardMastery) {
	byQuestion := make(map[int]store.ItemSchema, len(schema))
	for _, it := range schema {
		byQuestion[it.Question] = it
	}

	var topicRows []store.TopicMastery
	var standardRows []store.StandardMastery

	for _, resp := range responses {
		topicTotals := make(map[string]*accumulator)
		standardTotals := make(map[string]*accumulator)
		var topicOrder, standardOrder []string

		for i, score := range resp.Scores {
			item, ok := byQuestion[i+1]
			if !ok {
				continue // partial schemas are tolerated
			}

			tacc := topicTotals[item.Topic]
			if tacc == nil {
				tacc = &accumulator{}
				topicTotals[item.Topic] = tacc
				topicOrder = append(topicOrder, item.Topic)
			}
			tacc.total += score
			tacc.max += item.MaxPoints

			sacc := standardTotals[item.Standard]
			if sacc == nil {
				sacc = &accumulator{}
				standardTotals[item.Standard] = sacc
				standardOrder = append(standardOrder, item.Standard)
			}
			sacc.total += score
			sacc.max += item.MaxPoints
		}

		for _, topic := range topicOrder {
			acc := topicTotals[topic]
			topicRows = append(topicRows, store.TopicMastery{
				Student:           resp.Student,
				Topic:             topic,
				TotalPoints:       acc.total,
				MaxPoints:         acc.max,
				MasteryPercentage: percentage(acc.total, acc.max),
			})
		}
		for _, standard := range standardOrder {
			acc := standardTotals[standard]
			standardRows = append(standardRows, store.StandardMastery{
				Student:           resp.Student,
				Standard:          standard,
				TotalPoints:       acc.total,
				MaxPoints:         acc.max,
				MasteryPercentage: percentage(acc.total, acc.max),
			})
		}
	}

	return topicRows, standardRows
}

// percentage is defined as 0 when max is 0 so an empty grouping never
// divides by zero or produces NaN.
func percentage(total, max float64) float64 {
	if max == 0 {
		return 0
	}
	return total / max * 100
}
