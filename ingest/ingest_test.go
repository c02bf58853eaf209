package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// ---------------------------------------------------------------------------
// File classification
// ---------------------------------------------------------------------------

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name string
		want FileType
	}{
		{"assessment_schema.csv", FileSchema},
		{"question_bank.xlsx", FileSchema},
		{"student_responses.csv", FileResponses},
		{"final_scores.tsv", FileResponses},
		{"answers_2026.json", FileResponses},
		{"interventions.csv", FileInterventions},
		{"strategy_list.csv", FileInterventions},
		{"notes.csv", FileUnknown},
	}
	for _, tt := range tests {
		if got := DetectFileType(tt.name); got != tt.want {
			t.Errorf("DetectFileType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSupportedFile(t *testing.T) {
	if !SupportedFile("scores.CSV") {
		t.Error("expected .CSV to be supported")
	}
	if SupportedFile("scores.parquet") {
		t.Error("expected .parquet to be unsupported")
	}
}

// ---------------------------------------------------------------------------
// Table loading
// ---------------------------------------------------------------------------

func TestReadTableCSV(t *testing.T) {
	path := writeFile(t, "schema.csv", "Question,Topic\n1,Math\n2,Science\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0] != "Question" {
		t.Fatalf("columns: got %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[1][1] != "Science" {
		t.Fatalf("rows: got %v", tbl.Rows)
	}
}

func TestReadTableDelimiterFallback(t *testing.T) {
	// Semicolon-separated content with a .csv extension.
	path := writeFile(t, "schema.csv", "Question;Topic\n1;Math\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if len(tbl.Columns) != 2 {
		t.Fatalf("expected delimiter fallback to split header, got %v", tbl.Columns)
	}
}

func TestReadTableJSON(t *testing.T) {
	path := writeFile(t, "responses.json",
		`[{"Student":"Alice","Q1":2,"Q2":3.5},{"Student":"Bob","Q1":1,"Q2":null}]`)

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	// Column order follows the first object's key order.
	if len(tbl.Columns) != 3 || tbl.Columns[0] != "Student" || tbl.Columns[1] != "Q1" {
		t.Fatalf("columns: got %v", tbl.Columns)
	}
	if tbl.Rows[0][2] != "3.5" {
		t.Errorf("number formatting: got %q", tbl.Rows[0][2])
	}
	if tbl.Rows[1][2] != "" {
		t.Errorf("null should read as empty, got %q", tbl.Rows[1][2])
	}
}

func TestReadTableUnsupportedFormat(t *testing.T) {
	_, err := ReadTable("data.parquet")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadTableEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	_, err := ReadTable(path)
	if !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Schema parsing
// ---------------------------------------------------------------------------

func TestParseSchema(t *testing.T) {
	path := writeFile(t, "schema.csv",
		"Question,PromptStub,Topic,Standard,MaxPoints\n"+
			"1,What is...?,Geography,World Knowledge,2\n"+
			"2.0,,Math,Problem Solving,3\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	items, err := ParseSchema(tbl)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Question != 1 || items[0].MaxPoints != 2 {
		t.Errorf("first item: got %+v", items[0])
	}
	// Float-formatted question numbers from spreadsheet exports.
	if items[1].Question != 2 {
		t.Errorf("question 2.0: got %d", items[1].Question)
	}
	// Empty prompt stub falls back to a generated one.
	if items[1].PromptStub != "Question 2" {
		t.Errorf("prompt fallback: got %q", items[1].PromptStub)
	}
}

func TestParseSchemaMissingColumns(t *testing.T) {
	path := writeFile(t, "schema.csv", "Question,Topic\n1,Math\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	_, err = ParseSchema(tbl)
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if !strings.Contains(err.Error(), "Standard") || !strings.Contains(err.Error(), "MaxPoints") {
		t.Errorf("error should name the missing columns, got %q", err.Error())
	}
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

func TestParseResponses(t *testing.T) {
	path := writeFile(t, "responses.csv",
		"Student,Q2,Q1,Q3\nAlice,3,2,4\nBob,1,,2\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	responses, err := ParseResponses(tbl)
	if err != nil {
		t.Fatalf("parse responses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	// Scores are positional by question number regardless of column order.
	alice := responses[0]
	if alice.Student != "Alice" {
		t.Fatalf("student: got %q", alice.Student)
	}
	if alice.Scores[0] != 2 || alice.Scores[1] != 3 || alice.Scores[2] != 4 {
		t.Errorf("scores: got %v, want [2 3 4]", alice.Scores)
	}
	// Blank cells coerce to 0; the blank is in the Q1 column here.
	if responses[1].Scores[0] != 0 {
		t.Errorf("blank score: got %v, want 0", responses[1].Scores[0])
	}
}

func TestParseResponsesSuffixedColumns(t *testing.T) {
	path := writeFile(t, "responses.csv",
		"Name,Q1_8cubes,Q2_pattern\nAlice,1,0\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	responses, err := ParseResponses(tbl)
	if err != nil {
		t.Fatalf("parse responses: %v", err)
	}
	if len(responses[0].Scores) != 2 {
		t.Fatalf("suffixed columns not recognized: %v", responses[0].Scores)
	}
	if responses[0].Scores[0] != 1 {
		t.Errorf("Q1_8cubes score: got %v", responses[0].Scores[0])
	}
}

func TestParseResponsesNoStudentColumn(t *testing.T) {
	path := writeFile(t, "responses.csv", "Q1,Q2\n1,2\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	_, err = ParseResponses(tbl)
	if !errors.Is(err, ErrNoStudentColumn) {
		t.Fatalf("expected ErrNoStudentColumn, got %v", err)
	}
}

func TestParseResponsesNoQuestionColumns(t *testing.T) {
	path := writeFile(t, "responses.csv", "Student,Grade\nAlice,A\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	_, err = ParseResponses(tbl)
	if !errors.Is(err, ErrNoQuestionColumns) {
		t.Fatalf("expected ErrNoQuestionColumns, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Interventions
// ---------------------------------------------------------------------------

func TestInterventionsMarkdown(t *testing.T) {
	path := writeFile(t, "interventions.csv",
		"Topic,Strategy\nMath,Use visual aids\n,Generic advice\n")

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	md := InterventionsMarkdown(tbl)

	if !strings.HasPrefix(md, "# Educational Interventions\n\n") {
		t.Errorf("missing title, got %q", md)
	}
	if !strings.Contains(md, "## Math\nUse visual aids\n\n") {
		t.Errorf("missing topic section, got %q", md)
	}
	// Rows without a topic fall back to General.
	if !strings.Contains(md, "## General\nGeneric advice\n\n") {
		t.Errorf("missing fallback section, got %q", md)
	}
}

func TestWriteSampleFiles(t *testing.T) {
	dir := t.TempDir()

	sampleDir, err := WriteSampleFiles(dir)
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}

	for _, name := range []string{"sample_schema.csv", "sample_responses.csv", "sample_interventions.csv"} {
		path := filepath.Join(sampleDir, name)
		tbl, err := ReadTable(path)
		if err != nil {
			t.Fatalf("reading %s back: %v", name, err)
		}
		if len(tbl.Rows) == 0 {
			t.Errorf("%s has no data rows", name)
		}
	}

	// The samples must parse with the same loaders real uploads use.
	tbl, err := ReadTable(filepath.Join(sampleDir, "sample_schema.csv"))
	if err != nil {
		t.Fatalf("reading sample schema: %v", err)
	}
	if _, err := ParseSchema(tbl); err != nil {
		t.Errorf("sample schema does not parse: %v", err)
	}
}
