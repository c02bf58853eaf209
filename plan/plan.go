// Package plan assembles textual intervention plans for a student's
// low-performing topics and standards by pulling the best-matching
// teaching-strategy chunk for each area.
package plan

import (
	"fmt"
	"strings"

	"github.com/lmoretti/edumastery/mastery"
	"github.com/lmoretti/edumastery/retrieval"
)

// positiveMessage is returned when a student has no low-performing areas.
const positiveMessage = "Great job! This student is performing well across all areas and doesn't need specific interventions at this time."

// hitsPerArea is how many retrieval hits to request per low area; only
// the top hit is used.
const hitsPerArea = 2

// Retriever is the slice of the retrieval engine the assembler needs.
type Retriever interface {
	Search(query string, topK int) []retrieval.Result
}

// Assembler builds plans from low-performing areas plus the retriever's
// current index snapshot. It is stateless.
type Assembler struct {
	retriever Retriever
}

// New creates a plan assembler over the given retriever.
func New(r Retriever) *Assembler {
	return &Assembler{retriever: r}
}

// Build returns the intervention plan text for the given low areas.
//
// With no low areas it short-circuits to a fixed positive message without
// touching the retriever. Each low topic contributes one block from the
// query "<topic> intervention strategies", each low standard one block
// from "<standard> teaching strategies"; areas with no hits are skipped.
// If no area produced a hit, the plan falls back to a generic message
// naming all low areas.
func (a *Assembler) Build(low *mastery.LowAreas) string {
	var topics, standards []string
	if low != nil {
		for _, tm := range low.LowTopics {
			topics = append(topics, tm.Topic)
		}
		for _, sm := range low.LowStandards {
			standards = append(standards, sm.Standard)
		}
	}

	if len(topics) == 0 && len(standards) == 0 {
		return positiveMessage
	}

	var blocks []string
	for _, topic := range topics {
		hits := a.retriever.Search(topic+" intervention strategies", hitsPerArea)
		if len(hits) > 0 {
			blocks = append(blocks, fmt.Sprintf("**%s**:\n%s\n", topic, hits[0].Content))
		}
	}
	for _, standard := range standards {
		hits := a.retriever.Search(standard+" teaching strategies", hitsPerArea)
		if len(hits) > 0 {
			blocks = append(blocks, fmt.Sprintf("**%s**:\n%s\n", standard, hits[0].Content))
		}
	}

	if len(blocks) > 0 {
		return strings.Join(blocks, "\n")
	}
	return "Focus on reviewing and practicing concepts in: " + strings.Join(append(topics, standards...), ", ")
}
