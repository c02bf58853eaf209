package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lmoretti/edumastery"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := edumastery.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	// Override from environment variables.
	if v := os.Getenv("EDUMASTERY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("EDUMASTERY_DOCUMENT_ROOT"); v != "" {
		cfg.DocumentRoot = v
	}
	if v := os.Getenv("EDUMASTERY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EDUMASTERY_THRESHOLD"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Error("parsing EDUMASTERY_THRESHOLD", "value", v, "error", err)
			os.Exit(1)
		}
		cfg.Threshold = t
	}

	apiKey := os.Getenv("EDUMASTERY_API_KEY")
	corsOrigins := os.Getenv("EDUMASTERY_CORS_ORIGINS")

	engine, err := edumastery.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /students", h.handleListStudents)
	mux.HandleFunc("GET /students/{name}/mastery", h.handleMastery)
	mux.HandleFunc("GET /students/{name}/low-areas", h.handleLowAreas)
	mux.HandleFunc("GET /students/{name}/plan", h.handlePlan)
	mux.HandleFunc("POST /ingest", h.handleIngest)
	mux.HandleFunc("POST /recompute", h.handleRecompute)
	mux.HandleFunc("POST /index/build", h.handleBuildIndex)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
