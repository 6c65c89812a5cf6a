package config

import (
	"testing"
	"time"

	"github.com/edforge/quizrag/llm"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != llm.ProviderOpenAI {
		t.Errorf("expected provider openai, got %v", settings.LLM.Provider)
	}
	if settings.LLM.Model == "" {
		t.Error("expected non-empty default model")
	}
	if settings.Vision.Model == "" {
		t.Error("expected non-empty default vision model")
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != llm.ProviderAnthropic {
		t.Errorf("expected provider anthropic (normalized from 'claude'), got %v", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewDefaults(t *testing.T) {
	settings, err := New("gemini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.MaxTokens != 4096 {
		t.Errorf("expected max tokens 4096, got %d", settings.LLM.MaxTokens)
	}
	if settings.Vision.MaxTokens != 150 {
		t.Errorf("expected vision max tokens 150, got %d", settings.Vision.MaxTokens)
	}
	if settings.Vision.MaxConcurrent != 10 {
		t.Errorf("expected vision max concurrent 10, got %d", settings.Vision.MaxConcurrent)
	}
	if settings.Retrieval.SearchSize != 50 || settings.Retrieval.PoolSize != 3 || settings.Retrieval.MaxQueries != 6 {
		t.Errorf("unexpected retrieval defaults: %+v", settings.Retrieval)
	}
	if settings.Cache.TTL != 90*24*time.Hour {
		t.Errorf("expected 90 day cache TTL, got %v", settings.Cache.TTL)
	}
	if settings.Bank.SqlitePath == "" {
		t.Error("expected non-empty default bank path")
	}
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_VISION_MODEL", "gpt-4o")
	t.Setenv("SEARCH_SIZE", "25")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Model != "gpt-4o" {
		t.Errorf("model override ignored, got %q", settings.LLM.Model)
	}
	if settings.Vision.Model != "gpt-4o" {
		t.Errorf("vision model override ignored, got %q", settings.Vision.Model)
	}
	if settings.Retrieval.SearchSize != 25 {
		t.Errorf("search size override ignored, got %d", settings.Retrieval.SearchSize)
	}
	if settings.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr ignored, got %q", settings.Cache.RedisAddr)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	_, err := New("openai")
	if err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}
