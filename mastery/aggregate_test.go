package mastery

import (
	"testing"

	"github.com/lmoretti/edumastery/store"
)

func testSchema() []store.ItemSchema {
	return []store.ItemSchema{
		{Question: 1, Topic: "Math", Standard: "Counting", MaxPoints: 2},
		{Question: 2, Topic: "Math", Standard: "Counting", MaxPoints: 3},
		{Question: 3, Topic: "Science", Standard: "Observation", MaxPoints: 4},
	}
}

func TestAggregateRollsUpByTopicAndStandard(t *testing.T) {
	responses := []store.Response{
		{Student: "Alice", Scores: []float64{2, 3, 1}},
	}

	topics, standards := Aggregate(testSchema(), responses)

	if len(topics) != 2 {
		t.Fatalf("expected 2 topic rows, got %d", len(topics))
	}
	// First-seen order: Math before Science.
	math := topics[0]
	if math.Topic != "Math" {
		t.Fatalf("expected Math first, got %q", math.Topic)
	}
	if math.TotalPoints != 5 || math.MaxPoints != 5 {
		t.Errorf("math points: got %v/%v, want 5/5", math.TotalPoints, math.MaxPoints)
	}
	if math.MasteryPercentage != 100 {
		t.Errorf("math percentage: got %v, want 100", math.MasteryPercentage)
	}

	science := topics[1]
	if science.MasteryPercentage != 25 {
		t.Errorf("science percentage: got %v, want 25", science.MasteryPercentage)
	}

	if len(standards) != 2 {
		t.Fatalf("expected 2 standard rows, got %d", len(standards))
	}
	if standards[0].Standard != "Counting" || standards[0].MasteryPercentage != 100 {
		t.Errorf("counting standard: got %+v", standards[0])
	}
}

func TestAggregateSkipsQuestionsWithoutSchema(t *testing.T) {
	// Four scores but only three schema rows: the extra score is ignored.
	responses := []store.Response{
		{Student: "Bob", Scores: []float64{1, 1, 2, 99}},
	}

	topics, _ := Aggregate(testSchema(), responses)

	var total float64
	for _, tm := range topics {
		total += tm.TotalPoints
	}
	if total != 4 {
		t.Fatalf("expected unmapped score to be skipped, total points %v", total)
	}
}

func TestAggregateZeroMaxPoints(t *testing.T) {
	schema := []store.ItemSchema{
		{Question: 1, Topic: "Empty", Standard: "Empty", MaxPoints: 0},
	}
	responses := []store.Response{
		{Student: "Alice", Scores: []float64{0}},
	}

	topics, standards := Aggregate(schema, responses)

	if len(topics) != 1 || len(standards) != 1 {
		t.Fatalf("expected one row each, got %d/%d", len(topics), len(standards))
	}
	if topics[0].MasteryPercentage != 0 {
		t.Errorf("zero max points should give 0%%, got %v", topics[0].MasteryPercentage)
	}
}

func TestAggregateEmptyInputs(t *testing.T) {
	topics, standards := Aggregate(nil, nil)
	if len(topics) != 0 || len(standards) != 0 {
		t.Fatalf("expected no rows, got %d/%d", len(topics), len(standards))
	}

	topics, standards = Aggregate(testSchema(), nil)
	if len(topics) != 0 || len(standards) != 0 {
		t.Fatalf("schema without responses should yield no rows, got %d/%d", len(topics), len(standards))
	}
}

func TestAggregateDeterministic(t *testing.T) {
	responses := []store.Response{
		{Student: "Alice", Scores: []float64{2, 1, 3}},
		{Student: "Bob", Scores: []float64{0, 2, 4}},
	}

	t1, s1 := Aggregate(testSchema(), responses)
	t2, s2 := Aggregate(testSchema(), responses)

	if len(t1) != len(t2) || len(s1) != len(s2) {
		t.Fatalf("row counts differ between runs")
	}
	for i := range t1 {
		if t1[i] != t2[i] {
			t.Fatalf("topic row %d differs: %+v vs %+v", i, t1[i], t2[i])
		}
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("standard row %d differs: %+v vs %+v", i, s1[i], s2[i])
		}
	}
}

func TestPercentagePassesThroughUnclamped(t *testing.T) {
	// Extra credit above max points is reported as is.
	got := percentage(6, 5)
	if got != 120 {
		t.Fatalf("got %v, want 120", got)
	}
}
