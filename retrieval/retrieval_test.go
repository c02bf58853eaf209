package retrieval

import (
	"testing"

	"github.com/lmoretti/edumastery/docindex"
)

func testIndex(contents ...string) *docindex.Index {
	idx := &docindex.Index{}
	for i, c := range contents {
		idx.Chunks = append(idx.Chunks, docindex.Chunk{
			Content: c,
			Source:  "test.md",
			ChunkID: i,
		})
	}
	return idx
}

func TestSearchJaccardScore(t *testing.T) {
	e := New(testIndex("practice counting with blocks"))

	results := e.Search("counting practice", 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// Intersection {practice, counting} = 2, union = 4.
	if results[0].Score != 0.5 {
		t.Fatalf("score: got %v, want 0.5", results[0].Score)
	}
}

func TestSearchRanksByOverlap(t *testing.T) {
	e := New(testIndex(
		"map exercises for geography review",
		"counting practice with number lines and counting songs",
		"hands-on science experiments",
	))

	results := e.Search("counting practice strategies", 3)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Content != "counting practice with number lines and counting songs" {
		t.Errorf("best hit: got %q", results[0].Content)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: %v after %v", results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearchFiltersZeroScores(t *testing.T) {
	e := New(testIndex(
		"completely unrelated content about cooking",
		"quantum mechanics lecture notes",
	))

	results := e.Search("fraction worksheets", 5)
	if len(results) != 0 {
		t.Fatalf("expected no results for disjoint query, got %d", len(results))
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	e := New(testIndex(
		"math practice one",
		"math practice two",
		"math practice three",
	))

	results := e.Search("math practice", 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearchTieOrderIsStable(t *testing.T) {
	// Identical chunks score identically; index order breaks the tie.
	e := New(testIndex("math drills", "math drills"))

	first := e.Search("math drills", 2)
	second := e.Search("math drills", 2)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 results each, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("result %d differs between runs", i)
		}
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	e := New(testIndex("Fraction Practice Worksheets"))

	results := e.Search("fraction practice worksheets", 1)
	if len(results) != 1 || results[0].Score != 1 {
		t.Fatalf("expected exact case-insensitive match, got %+v", results)
	}
}

func TestSearchEmptyEngine(t *testing.T) {
	e := New(nil)
	if results := e.Search("anything", 5); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
	if e.Index() != nil {
		t.Fatal("expected nil index")
	}
}

func TestSearchNonPositiveTopK(t *testing.T) {
	e := New(testIndex("math practice"))
	if results := e.Search("math", 0); results != nil {
		t.Fatalf("topK 0 should return nil, got %v", results)
	}
}

func TestSetIndexSwapsSnapshot(t *testing.T) {
	e := New(testIndex("old corpus about geography"))

	e.SetIndex(testIndex("new corpus about counting practice"))

	results := e.Search("counting practice", 1)
	if len(results) != 1 {
		t.Fatalf("expected hit from new index, got %d results", len(results))
	}
	if results[0].Content != "new corpus about counting practice" {
		t.Errorf("got %q", results[0].Content)
	}
	if got := e.Search("geography", 1); len(got) != 0 {
		t.Errorf("old index still visible: %v", got)
	}
}

func TestJaccardEmptySets(t *testing.T) {
	if got := jaccard(map[string]struct{}{}, map[string]struct{}{}); got != 0 {
		t.Fatalf("empty sets: got %v, want 0", got)
	}
}
