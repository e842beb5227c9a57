// Package config holds engine settings and the config file loader.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDBPath is the default relative path for the SQLite DB (per-workspace).
const DefaultDBPath = ".sleuth/sleuth.db"

// Settings is the full engine configuration. Zero values are filled from
// Default() before a config file is applied, so a partial file is fine.
type Settings struct {
	// Collaborators
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	EmbedModel string `yaml:"embed_model" json:"embed_model"`
	ChatModel  string `yaml:"chat_model" json:"chat_model"`

	// Retrieval and gating
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	TopK                int     `yaml:"top_k" json:"top_k"`
	HypothesisCount     int     `yaml:"hypothesis_count" json:"hypothesis_count"`

	// Chunking
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// Index repository eviction
	IndexMaxCases int      `yaml:"index_max_cases" json:"index_max_cases"`
	IndexMaxAge   Duration `yaml:"index_max_age" json:"index_max_age"`

	// Bounded per-case analysis history
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`

	// Upstream call deadline (embedding and oracle), per attempt
	CallTimeout Duration `yaml:"call_timeout" json:"call_timeout"`

	// Persistence
	DBPath string `yaml:"db_path" json:"db_path"`

	// Logging
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
}

// Default returns the baseline settings used when no config file is given.
func Default() Settings {
	return Settings{
		OllamaHost:          envOr("SLEUTH_OLLAMA_HOST", "http://localhost:11434"),
		EmbedModel:          "nomic-embed-text",
		ChatModel:           "llama3.1",
		ConfidenceThreshold: 0.6,
		TopK:                8,
		HypothesisCount:     3,
		ChunkSize:           500,
		ChunkOverlap:        50,
		IndexMaxCases:       64,
		IndexMaxAge:         Duration(24 * time.Hour),
		HistoryLimit:        20,
		CallTimeout:         Duration(60 * time.Second),
		DBPath:              DefaultDBPath,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// LoadFromPath reads a settings file (YAML or JSON) and returns the merged
// Settings. Format is detected by extension or by content.
func LoadFromPath(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses settings from bytes on top of Default(). ext is the file
// extension (".yaml", ".json") as a format hint; empty = detect from content.
func Load(data []byte, ext string) (*Settings, error) {
	s := Default()

	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	case ".yaml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings that would break pipeline invariants.
func (s *Settings) Validate() error {
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %v outside [0,1]", s.ConfidenceThreshold)
	}
	if s.TopK < 1 {
		return fmt.Errorf("top_k must be >= 1, got %d", s.TopK)
	}
	if s.HypothesisCount < 1 {
		return fmt.Errorf("hypothesis_count must be >= 1, got %d", s.HypothesisCount)
	}
	if s.ChunkSize < 2 {
		return fmt.Errorf("chunk_size must be >= 2, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be in [0, chunk_size)", s.ChunkOverlap)
	}
	if s.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be >= 1, got %d", s.HistoryLimit)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
