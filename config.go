package edumastery

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the edumastery engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.edumastery/<DBName>.db
	DBPath string `json:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "edumastery". The file will be <DBName>.db inside the
	// storage directory (~/.edumastery/ or working dir).
	DBName string `json:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses
	// ~/.edumastery/, "local" uses the current working directory.
	StorageDir string `json:"storage_dir"`

	// DocumentRoot is the folder holding the teaching-strategy corpus
	// (markdown, text, and PDF documents).
	DocumentRoot string `json:"document_root"`

	// DataDir is the drop folder scanned for tabular assessment files
	// (schema, responses, interventions).
	DataDir string `json:"data_dir"`

	// Threshold is the mastery percentage below which an area counts as
	// low-performing.
	Threshold float64 `json:"threshold"`
}

// DefaultConfig returns a Config with sensible defaults for local use.
// Database is stored in ~/.edumastery/edumastery.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:       "edumastery",
		StorageDir:   "home",
		DocumentRoot: "./data",
		DataDir:      "./assessment_scores",
		Threshold:    70.0,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "edumastery"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".edumastery")
		return filepath.Join(dir, name+".db")
	}
}
