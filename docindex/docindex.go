// Package docindex builds a flat retrieval index from a folder of
// teaching-strategy documents. Markdown, plain text, and PDF files are
// reduced to plain text, split on blank-line boundaries, and kept as
// chunks with source provenance. Each Build produces a fresh immutable
// Index; there is no incremental update.
package docindex

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// minChunkRunes filters out headers and other fragments too short to be
// useful retrieval units.
const minChunkRunes = 50

// Chunk is one contiguous block of plain text from a source document.
type Chunk struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
}

// Index is an immutable snapshot of all indexed chunks. Callers must not
// mutate Chunks after Build returns.
type Index struct {
	Chunks []Chunk `json:"chunks"`
}

// Len returns the number of indexed chunks. Safe on a nil index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Chunks)
}

// Build scans root for .md, .txt, and .pdf documents and returns a new
// index over their chunks. Files are visited in lexical path order so
// repeated builds over the same corpus produce identical indexes. A
// missing or empty corpus yields an empty index, never an error.
func Build(root string) (*Index, error) {
	idx := &Index{}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("index: document root does not exist", "root", root)
			return idx, nil
		}
		return nil, fmt.Errorf("checking document root: %w", err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt", ".pdf":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	if len(files) == 0 {
		slog.Info("index: no documents found", "root", root)
		return idx, nil
	}

	for _, path := range files {
		text, err := extractText(path)
		if err != nil {
			slog.Warn("index: skipping document", "path", path, "error", err)
			continue
		}

		// ChunkID is the ordinal within the document's non-empty chunk
		// list; chunks filtered for length still advance it.
		id := 0
		for _, piece := range strings.Split(text, "\n\n") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			if utf8.RuneCountInString(piece) > minChunkRunes {
				idx.Chunks = append(idx.Chunks, Chunk{
					Content: piece,
					Source:  path,
					ChunkID: id,
				})
			}
			id++
		}
	}

	slog.Info("index: build complete", "root", root, "documents", len(files), "chunks", len(idx.Chunks))
	return idx, nil
}

// extractText reduces one document to plain text by extension.
func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading markdown file: %w", err)
		}
		return StripMarkdown(normalizeNewlines(string(data))), nil
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading text file: %w", err)
		}
		return normalizeNewlines(string(data)), nil
	case ".pdf":
		return pdfText(path)
	default:
		return "", fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
}

// pdfText extracts plain text from a PDF page by page. Pages that fail to
// extract are skipped; page texts become blank-line separated so they
// chunk independently.
func pdfText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
