package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the loader
	// does not understand.
	ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

	// ErrEmptyTable is returned when a file yields no header row.
	ErrEmptyTable = errors.New("ingest: empty table")
)

// Table is a normalized tabular file: a header plus string-valued rows.
// Every row has exactly len(Columns) cells.
type Table struct {
	Path    string
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// cell returns the named column's value in row, or "" when the column is
// absent.
func (t *Table) cell(row []string, name string) string {
	i := t.ColumnIndex(name)
	if i < 0 {
		return ""
	}
	return row[i]
}

// ReadTable loads a tabular file by extension. CSV, TSV, XLSX, and JSON
// (array of flat objects) are supported.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readDelimited(path, ',', '\t', ';')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".xlsx", ".xls":
		return readXLSX(path)
	case ".json":
		return readJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// readDelimited parses a delimited text file, trying each delimiter in
// turn until the header yields more than one column (a single-column
// header usually means the wrong delimiter was used).
func readDelimited(path string, delimiters ...rune) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var lastErr error
	for i, delim := range delimiters {
		r := csv.NewReader(strings.NewReader(string(data)))
		r.Comma = delim
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true

		records, err := r.ReadAll()
		if err != nil {
			lastErr = err
			continue
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
		}
		// Retry with the next delimiter on a single-column header,
		// unless this was the last candidate.
		if len(records[0]) == 1 && i < len(delimiters)-1 {
			continue
		}
		return newTable(path, records[0], records[1:]), nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
}

// readJSON parses a JSON array of flat objects. Column order follows the
// key order of the first object so re-reads are deterministic.
func readJSON(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
	}

	columns, err := objectKeys(raw[0])
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	rows := make([][]string, 0, len(raw))
	for _, obj := range raw {
		dec := json.NewDecoder(strings.NewReader(string(obj)))
		dec.UseNumber()
		var m map[string]interface{}
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = stringifyJSON(m[col])
		}
		rows = append(rows, row)
	}
	return newTable(path, columns, rows), nil
}

// objectKeys returns a JSON object's top-level keys in document order.
func objectKeys(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(obj)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// skipValue consumes one JSON value, recursing through containers.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		for dec.More() {
			if d == '{' {
				if _, err := dec.Token(); err != nil { // key
					return err
				}
			}
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err = dec.Token() // closing delimiter
		return err
	}
	return nil
}

func stringifyJSON(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// newTable pads ragged rows so every row has a cell per column.
func newTable(path string, columns []string, rows [][]string) *Table {
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}
	normalized := make([][]string, 0, len(rows))
	for _, row := range rows {
		out := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				out[i] = strings.TrimSpace(row[i])
			}
		}
		normalized = append(normalized, out)
	}
	return &Table{Path: path, Columns: columns, Rows: normalized}
}
