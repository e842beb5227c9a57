package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default settings must validate: %v", err)
	}
	if s.ConfidenceThreshold != 0.6 || s.TopK != 8 || s.ChunkSize != 500 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
ollama_host: http://llm-box:11434
confidence_threshold: 0.7
index_max_age: 1h
call_timeout: 30s
`)
	s, err := Load(data, ".yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.OllamaHost != "http://llm-box:11434" || s.ConfidenceThreshold != 0.7 {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.IndexMaxAge.Std() != time.Hour || s.CallTimeout.Std() != 30*time.Second {
		t.Fatalf("durations: max_age=%v timeout=%v", s.IndexMaxAge.Std(), s.CallTimeout.Std())
	}
	// Untouched fields keep their defaults.
	if s.TopK != 8 || s.HistoryLimit != 20 {
		t.Fatalf("defaults lost under partial config: %+v", s)
	}
}

func TestLoadJSONWithNumericDuration(t *testing.T) {
	data := []byte(`{"chat_model": "qwen2.5", "call_timeout": 45}`)
	s, err := Load(data, ".json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ChatModel != "qwen2.5" || s.CallTimeout.Std() != 45*time.Second {
		t.Fatalf("json config: %+v", s)
	}
}

func TestLoadDetectsFormatFromContent(t *testing.T) {
	if s, err := Load([]byte(`{"top_k": 4}`), ""); err != nil || s.TopK != 4 {
		t.Fatalf("json detection: %+v err %v", s, err)
	}
	if s, err := Load([]byte("top_k: 4\n"), ""); err != nil || s.TopK != 4 {
		t.Fatalf("yaml detection: %+v err %v", s, err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sleuth.yml")
	if err := os.WriteFile(path, []byte("hypothesis_count: 5\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	s, err := LoadFromPath(path)
	if err != nil || s.HypothesisCount != 5 {
		t.Fatalf("LoadFromPath: %+v err %v", s, err)
	}
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBrokenSettings(t *testing.T) {
	cases := []func(*Settings){
		func(s *Settings) { s.ConfidenceThreshold = 1.5 },
		func(s *Settings) { s.TopK = 0 },
		func(s *Settings) { s.HypothesisCount = 0 },
		func(s *Settings) { s.ChunkSize = 1 },
		func(s *Settings) { s.ChunkOverlap = 500 },
		func(s *Settings) { s.HistoryLimit = 0 },
	}
	for i, mutate := range cases {
		s := Default()
		mutate(&s)
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, s)
		}
	}
}
