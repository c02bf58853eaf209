// Package ingest normalizes tabular assessment files (CSV, TSV, XLSX,
// JSON) into schema, response, and intervention records. All column and
// format validation lives here: the aggregation engine only ever sees
// well-typed rows.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lmoretti/edumastery/store"
)

var (
	// ErrMissingColumns is returned when a schema table lacks one of the
	// required columns.
	ErrMissingColumns = errors.New("ingest: schema is missing required columns")

	// ErrNoStudentColumn is returned when a response table has no column
	// identifying the student.
	ErrNoStudentColumn = errors.New("ingest: no student identifier column found")

	// ErrNoQuestionColumns is returned when a response table has no
	// recognizable question columns.
	ErrNoQuestionColumns = errors.New("ingest: no question columns found")
)

// FileType classifies an assessment file by its filename.
type FileType string

const (
	FileSchema        FileType = "schema"
	FileResponses     FileType = "responses"
	FileInterventions FileType = "interventions"
	FileUnknown       FileType = "unknown"
)

// schemaColumns are required in every schema table.
var schemaColumns = []string{"Question", "Topic", "Standard", "MaxPoints"}

// DetectFileType classifies a file by keywords in its name, matching the
// naming convention of uploaded assessment folders.
func DetectFileType(path string) FileType {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "schema") || strings.Contains(name, "question"):
		return FileSchema
	case strings.Contains(name, "response") || strings.Contains(name, "answer") || strings.Contains(name, "score"):
		return FileResponses
	case strings.Contains(name, "intervention") || strings.Contains(name, "strategy"):
		return FileInterventions
	default:
		return FileUnknown
	}
}

// SupportedFile reports whether the path has a loadable extension.
func SupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".xlsx", ".xls", ".json":
		return true
	}
	return false
}

// ParseSchema converts a table into item schema rows. Required columns:
// Question, Topic, Standard, MaxPoints. The prompt stub falls back from
// PromptStub to Prompt to a generated "Question N".
func ParseSchema(tbl *Table) ([]store.ItemSchema, error) {
	var missing []string
	for _, col := range schemaColumns {
		if tbl.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	items := make([]store.ItemSchema, 0, len(tbl.Rows))
	for n, row := range tbl.Rows {
		question, err := parseQuestionNumber(tbl.cell(row, "Question"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid question number %q", n+1, tbl.cell(row, "Question"))
		}
		maxPoints, err := strconv.ParseFloat(tbl.cell(row, "MaxPoints"), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid max points %q", n+1, tbl.cell(row, "MaxPoints"))
		}

		stub := tbl.cell(row, "PromptStub")
		if stub == "" {
			stub = tbl.cell(row, "Prompt")
		}
		if stub == "" {
			stub = fmt.Sprintf("Question %d", question)
		}

		items = append(items, store.ItemSchema{
			Question:   question,
			PromptStub: stub,
			Topic:      tbl.cell(row, "Topic"),
			Standard:   tbl.cell(row, "Standard"),
			MaxPoints:  maxPoints,
		})
	}
	return items, nil
}

// ParseResponses converts a table into response rows. The student column
// is the first whose name contains "student" or "name"; question columns
// are named Q<n> or Q<n>_<suffix> and are ordered by question number.
// Blank or non-numeric scores coerce to 0.
func ParseResponses(tbl *Table) ([]store.Response, error) {
	studentCol := -1
	for i, col := range tbl.Columns {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "student") || strings.Contains(lower, "name") {
			studentCol = i
			break
		}
	}
	if studentCol < 0 {
		return nil, ErrNoStudentColumn
	}

	type questionCol struct {
		index  int
		number int
	}
	var qcols []questionCol
	for i, col := range tbl.Columns {
		if n, ok := questionNumber(col); ok {
			qcols = append(qcols, questionCol{index: i, number: n})
		}
	}
	if len(qcols) == 0 {
		return nil, ErrNoQuestionColumns
	}
	sort.Slice(qcols, func(i, j int) bool { return qcols[i].number < qcols[j].number })

	responses := make([]store.Response, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		scores := make([]float64, len(qcols))
		for i, qc := range qcols {
			v, err := strconv.ParseFloat(row[qc.index], 64)
			if err != nil {
				v = 0
			}
			scores[i] = v
		}
		responses = append(responses, store.Response{
			Student: row[studentCol],
			Scores:  scores,
		})
	}
	return responses, nil
}

// questionNumber extracts the question number from a column name of the
// form Q<n> or Q<n>_<suffix>.
func questionNumber(col string) (int, bool) {
	if len(col) < 2 || (col[0] != 'Q' && col[0] != 'q') {
		return 0, false
	}
	digits := col[1:]
	if i := strings.IndexByte(digits, '_'); i >= 0 {
		digits = digits[:i]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseQuestionNumber accepts integers and the float-formatted integers
// spreadsheet exports often produce ("3.0").
func parseQuestionNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer: %s", s)
	}
	return n, nil
}

// InterventionsMarkdown rewrites an intervention/strategy table as a
// markdown document so the index builder can pick it up alongside the
// rest of the corpus. Topic falls back from Topic to Subject to
// "General"; the strategy text from Strategy to Intervention to Content.
func InterventionsMarkdown(tbl *Table) string {
	var b strings.Builder
	b.WriteString("# Educational Interventions\n\n")
	for _, row := range tbl.Rows {
		topic := tbl.cell(row, "Topic")
		if topic == "" {
			topic = tbl.cell(row, "Subject")
		}
		if topic == "" {
			topic = "General"
		}
		strategy := tbl.cell(row, "Strategy")
		if strategy == "" {
			strategy = tbl.cell(row, "Intervention")
		}
		if strategy == "" {
			strategy = tbl.cell(row, "Content")
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", topic, strategy)
	}
	return b.String()
}
