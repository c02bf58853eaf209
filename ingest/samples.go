package ingest

import (
	"fmt"
	"os"
	"path/filepath"
)

const sampleSchemaCSV = `Question,PromptStub,Topic,Standard,MaxPoints
1,What is...?,Geography,World Knowledge,2
2,Solve...,Math,Problem Solving,3
3,Define...,Science,Scientific Method,4
4,Explain...,History,Historical Analysis,3
5,Calculate...,Grammar,Language Arts,2
`

const sampleResponsesCSV = `Student,Q1,Q2,Q3,Q4,Q5
Alice,2,3,3,2,2
Bob,1,2,2,1,1
Charlie,2,3,4,3,2
`

const sampleInterventionsCSV = `Topic,Strategy
Math,Use visual aids and manipulatives to make abstract problems concrete for the student
Science,Hands-on experiments that let the student observe cause and effect directly
Geography,Map exercises and scavenger hunts that connect place names to physical locations
`

// WriteSampleFiles creates a samples/ folder with a starter schema,
// response, and intervention file so a first-time user has something to
// process.
func WriteSampleFiles(dir string) (string, error) {
	sampleDir := filepath.Join(dir, "samples")
	if err := os.MkdirAll(sampleDir, 0755); err != nil {
		return "", fmt.Errorf("creating sample folder: %w", err)
	}

	files := map[string]string{
		"sample_schema.csv":        sampleSchemaCSV,
		"sample_responses.csv":     sampleResponsesCSV,
		"sample_interventions.csv": sampleInterventionsCSV,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(sampleDir, name), []byte(content), 0644); err != nil {
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return sampleDir, nil
}
