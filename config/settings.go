// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific model lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/edforge/quizrag/llm"
)

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Vision    VisionConfig
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Bank      BankConfig
}

// LLMConfig holds the composition model configuration.
type LLMConfig struct {
	Provider    llm.ProviderType
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// VisionConfig holds the image description model configuration.
type VisionConfig struct {
	Model         string
	MaxTokens     uint32
	MaxConcurrent int64
}

// RetrievalConfig holds semantic search tuning.
type RetrievalConfig struct {
	SearchSize int
	PoolSize   int
	MaxQueries int
}

// CacheConfig holds the image description cache configuration. An empty
// RedisAddr selects the in-process cache.
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

// BankConfig holds the question bank configuration.
type BankConfig struct {
	SqlitePath string
}

// New creates settings for the specified provider, loading values from
// environment variables. Returns an error if the provider is unknown or an
// environment variable contains an invalid value.
func New(provider string) (Settings, error) {
	providerType, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	visionMaxTokens, err := getEnvUint32("VISION_MAX_TOKENS", 150)
	if err != nil {
		return Settings{}, err
	}

	visionMaxConcurrent, err := getEnvInt("VISION_MAX_CONCURRENT", 10)
	if err != nil {
		return Settings{}, err
	}

	searchSize, err := getEnvInt("SEARCH_SIZE", 50)
	if err != nil {
		return Settings{}, err
	}

	poolSize, err := getEnvInt("POOL_SIZE", 3)
	if err != nil {
		return Settings{}, err
	}

	maxQueries, err := getEnvInt("MAX_QUERIES", 6)
	if err != nil {
		return Settings{}, err
	}

	cacheTTLDays, err := getEnvInt("IMAGE_CACHE_TTL_DAYS", 90)
	if err != nil {
		return Settings{}, err
	}

	// Model overrides come from provider-scoped environment variables
	model := os.Getenv(modelEnv(providerType))
	if model == "" {
		model = providerType.DefaultModel()
	}
	visionModel := os.Getenv(visionModelEnv(providerType))
	if visionModel == "" {
		visionModel = providerType.DefaultVisionModel()
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    providerType,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Vision: VisionConfig{
			Model:         visionModel,
			MaxTokens:     visionMaxTokens,
			MaxConcurrent: int64(visionMaxConcurrent),
		},
		Retrieval: RetrievalConfig{
			SearchSize: searchSize,
			PoolSize:   poolSize,
			MaxQueries: maxQueries,
		},
		Cache: CacheConfig{
			RedisAddr: os.Getenv("REDIS_ADDR"),
			TTL:       time.Duration(cacheTTLDays) * 24 * time.Hour,
		},
		Bank: BankConfig{
			SqlitePath: getEnvString("QUESTION_BANK_PATH", "data/questions.db"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// modelEnv returns the composition model override variable for a provider,
// e.g. OPENAI_MODEL.
func modelEnv(p llm.ProviderType) string {
	switch p {
	case llm.ProviderOpenAI:
		return "OPENAI_MODEL"
	case llm.ProviderAnthropic:
		return "ANTHROPIC_MODEL"
	case llm.ProviderGemini:
		return "GEMINI_MODEL"
	default:
		return ""
	}
}

// visionModelEnv returns the vision model override variable for a provider,
// e.g. OPENAI_VISION_MODEL.
func visionModelEnv(p llm.ProviderType) string {
	switch p {
	case llm.ProviderOpenAI:
		return "OPENAI_VISION_MODEL"
	case llm.ProviderAnthropic:
		return "ANTHROPIC_VISION_MODEL"
	case llm.ProviderGemini:
		return "GEMINI_VISION_MODEL"
	default:
		return ""
	}
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
