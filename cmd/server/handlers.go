package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lmoretti/edumastery"
	"github.com/lmoretti/edumastery/ingest"
)

type handler struct {
	engine edumastery.Engine
}

func newHandler(e edumastery.Engine) *handler {
	return &handler{engine: e}
}

// POST /ingest
// Accepts a multipart file upload, or JSON with a file path or drop
// folder. Uploaded and pathed files are classified by filename.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	// Try multipart upload first
	if err := r.ParseMultipartForm(32 << 20); err == nil { // 32MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpPath := filepath.Join(os.TempDir(), safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()
			defer os.Remove(tmpPath)

			h.loadFile(ctx, w, tmpPath, safeName)
			return
		}
	}

	// Try JSON body with a file path or a drop folder.
	var req struct {
		Path string `json:"path,omitempty"`
		Dir  string `json:"dir,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path' or 'dir'")
		return
	}

	if req.Dir != "" {
		report, err := h.engine.ProcessDataDir(ctx, req.Dir)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "processing data folder failed")
			slog.Error("ingest error", "dir", req.Dir, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path or dir is required")
		return
	}

	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing file")
		return
	}

	h.loadFile(ctx, w, absPath, filepath.Base(absPath))
}

// loadFile classifies one assessment file and routes it to the matching
// loader.
func (h *handler) loadFile(ctx context.Context, w http.ResponseWriter, path, name string) {
	fileType := ingest.DetectFileType(name)

	var (
		count int
		err   error
	)
	switch fileType {
	case ingest.FileSchema:
		count, err = h.engine.LoadSchema(ctx, path)
	case ingest.FileResponses:
		count, err = h.engine.LoadResponses(ctx, path)
	case ingest.FileInterventions:
		err = h.engine.LoadInterventions(ctx, path)
	default:
		writeError(w, http.StatusBadRequest,
			"could not classify file: name a schema, response, or intervention file")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		slog.Error("ingest error", "file", name, "type", fileType, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename": name,
		"type":     fileType,
		"records":  count,
	})
}

// GET /students
func (h *handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.engine.Students(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list students")
		slog.Error("list students error", "error", err)
		return
	}
	if students == nil {
		students = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"students": students,
	})
}

// GET /students/{name}/mastery
func (h *handler) handleMastery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	m, err := h.engine.Mastery(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load mastery")
		slog.Error("mastery error", "student", name, "error", err)
		return
	}
	if len(m.TopicMastery) == 0 && len(m.StandardMastery) == 0 {
		writeError(w, http.StatusNotFound, "no mastery data for student")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// GET /students/{name}/low-areas?threshold=70
func (h *handler) handleLowAreas(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	threshold, ok := thresholdParam(w, r)
	if !ok {
		return
	}

	low, err := h.engine.LowPerforming(r.Context(), name, threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load low areas")
		slog.Error("low areas error", "student", name, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, low)
}

// GET /students/{name}/plan?threshold=70
func (h *handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	name := r.PathValue("name")
	threshold, ok := thresholdParam(w, r)
	if !ok {
		return
	}

	plan, err := h.engine.Plan(ctx, name, threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build plan")
		slog.Error("plan error", "student", name, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"student": name,
		"plan":    plan,
	})
}

// POST /recompute
func (h *handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := h.engine.Recompute(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "recompute failed")
		slog.Error("recompute error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recomputed"})
}

// POST /index/build
func (h *handler) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Root string `json:"root,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	chunks, err := h.engine.BuildIndex(req.Root)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index build failed")
		slog.Error("index build error", "root", req.Root, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chunks": chunks,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// thresholdParam parses the optional threshold query parameter. Zero
// means "use the configured default".
func thresholdParam(w http.ResponseWriter, r *http.Request) (float64, bool) {
	v := r.URL.Query().Get("threshold")
	if v == "" {
		return 0, true
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil || t < 0 || t > 100 {
		writeError(w, http.StatusBadRequest, "threshold must be a number between 0 and 100")
		return 0, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
