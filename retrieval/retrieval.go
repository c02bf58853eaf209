// Package retrieval ranks indexed document chunks against a query using
// lexical Jaccard overlap. The ranking is deliberately simple and
// deterministic: token-set intersection over union, no embeddings, no
// term weighting.
package retrieval

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/lmoretti/edumastery/docindex"
)

var wordRE = regexp.MustCompile(`\w+`)

// Result is one ranked retrieval hit. Score is the Jaccard overlap of
// the query and chunk token sets, in [0,1].
type Result struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// Engine searches the current index snapshot. The index is swapped
// atomically: readers see either the old or the new index in full,
// never a partially built one.
type Engine struct {
	index atomic.Pointer[docindex.Index]
}

// New creates a retrieval engine over the given index. A nil index
// behaves as an empty one.
func New(idx *docindex.Index) *Engine {
	e := &Engine{}
	if idx != nil {
		e.index.Store(idx)
	}
	return e
}

// SetIndex replaces the current index snapshot.
func (e *Engine) SetIndex(idx *docindex.Index) {
	e.index.Store(idx)
}

// Index returns the current index snapshot (may be nil).
func (e *Engine) Index() *docindex.Index {
	return e.index.Load()
}

// Search scores every indexed chunk against the query and returns up to
// topK results with strictly positive score, sorted descending. Ties keep
// the original chunk order, so repeated searches over the same index are
// bit-identical.
func (e *Engine) Search(query string, topK int) []Result {
	idx := e.index.Load()
	if idx.Len() == 0 || topK <= 0 {
		return nil
	}

	queryTokens := tokenize(query)

	type scored struct {
		chunk docindex.Chunk
		score float64
	}
	all := make([]scored, 0, len(idx.Chunks))
	for _, c := range idx.Chunks {
		all = append(all, scored{chunk: c, score: jaccard(queryTokens, tokenize(c.Content))})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	var results []Result
	for _, s := range all {
		if len(results) == topK || s.score <= 0 {
			break
		}
		results = append(results, Result{
			Content: s.chunk.Content,
			Source:  s.chunk.Source,
			Score:   s.score,
		})
	}
	return results
}

// tokenize splits text into a set of lowercase word tokens.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range wordRE.FindAllString(strings.ToLower(text), -1) {
		tokens[w] = struct{}{}
	}
	return tokens
}

// jaccard returns |a ∩ b| / |a ∪ b|, defined as 0 when both are empty.
func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
