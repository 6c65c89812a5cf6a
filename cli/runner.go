// Command execution for CLI commands.
//
// Information Hiding:
// - Provider, cache and bank wiring hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/edforge/quizrag/composer"
	"github.com/edforge/quizrag/config"
	"github.com/edforge/quizrag/generator"
	"github.com/edforge/quizrag/images"
	"github.com/edforge/quizrag/pipeline"
	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/reranker"
	"github.com/edforge/quizrag/storage"
)

// Options holds CLI execution options.
type Options struct {
	Provider  string
	PlanPath  string
	QuizType  string
	DBPath    string
	RedisAddr string
	Verbose   bool
}

// PlanFile is the on-disk input for a composition run.
type PlanFile struct {
	LessonPlan     quiz.LessonPlan      `json:"lessonPlan"`
	RelatedLessons []quiz.RelatedLesson `json:"relatedLessons,omitempty"`
}

// ingestRecord is one question bank entry in an ingest file.
type ingestRecord struct {
	LessonID string               `json:"lessonId,omitempty"`
	QuizType string               `json:"quizType,omitempty"`
	Question quiz.RagQuizQuestion `json:"question"`
}

// Compose runs the pipeline once and prints the final quiz as JSON.
func Compose(ctx context.Context, opts Options) error {
	plan, related, err := loadPlan(opts.PlanPath)
	if err != nil {
		return err
	}
	quizType, err := quiz.ParseQuizType(opts.QuizType)
	if err != nil {
		return err
	}

	service, cleanup, err := buildPipeline(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.BuildQuiz(ctx, plan, quizType, related, nil)
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, result)
}

// Debug runs the pipeline with streaming stage reports. Each snapshot is
// printed as one JSON line, followed by the full debug result.
func Debug(ctx context.Context, opts Options) error {
	plan, related, err := loadPlan(opts.PlanPath)
	if err != nil {
		return err
	}
	quizType, err := quiz.ParseQuizType(opts.QuizType)
	if err != nil {
		return err
	}

	service, cleanup, err := buildPipeline(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	debug := pipeline.NewDebugService(service, newLogger(opts.Verbose))
	run := debug.RunStreaming(ctx, plan, quizType, related)

	encoder := json.NewEncoder(os.Stdout)
	for snapshot := range run.Reports() {
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("failed to write report snapshot: %w", err)
		}
	}

	result, runErr := run.Wait()
	if result != nil {
		if err := printJSON(os.Stdout, result); err != nil {
			return err
		}
	}
	return runErr
}

// Ingest loads a JSON file of questions into the question bank.
func Ingest(ctx context.Context, path string, opts Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read ingest file: %w", err)
	}

	var records []ingestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse ingest file: %w", err)
	}

	settings, err := config.New(opts.Provider)
	if err != nil {
		return err
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = settings.Bank.SqlitePath
	}

	bank, err := storage.OpenSqliteBank(dbPath)
	if err != nil {
		return err
	}
	defer bank.Close()

	for _, record := range records {
		quizType := quiz.StarterQuiz
		if record.QuizType != "" {
			quizType, err = quiz.ParseQuizType(record.QuizType)
			if err != nil {
				return fmt.Errorf("question %s: %w", record.Question.SourceUID, err)
			}
		}
		if err := bank.AddQuestion(ctx, record.Question, record.LessonID, quizType); err != nil {
			return err
		}
	}

	fmt.Printf("Ingested %d questions into %s\n", len(records), dbPath)
	return nil
}

// buildPipeline wires storage, providers and pipeline stages from settings.
// The returned cleanup closes the bank and the redis connection if any.
func buildPipeline(ctx context.Context, opts Options) (*pipeline.Service, func(), error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, nil, err
	}
	if opts.RedisAddr != "" {
		settings.Cache.RedisAddr = opts.RedisAddr
	}
	if opts.DBPath != "" {
		settings.Bank.SqlitePath = opts.DBPath
	}

	logger := newLogger(opts.Verbose)

	composerProvider, err := settings.LLM.Provider.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		FromEnv()
	if err != nil {
		return nil, nil, err
	}
	visionProvider, err := settings.LLM.Provider.
		Model(settings.Vision.Model).
		MaxTokens(settings.Vision.MaxTokens).
		FromEnv()
	if err != nil {
		return nil, nil, err
	}

	bank, err := storage.OpenSqliteBank(settings.Bank.SqlitePath)
	if err != nil {
		return nil, nil, err
	}

	var cache storage.DescriptionCache
	var redisCache *storage.RedisCache
	if settings.Cache.RedisAddr != "" {
		redisCache, err = storage.DialRedis(ctx, settings.Cache.RedisAddr)
		if err != nil {
			bank.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache = redisCache
	} else {
		logger.Info("no redis address configured, using in-process description cache")
		cache = storage.NewMemoryCache()
	}

	cleanup := func() {
		if redisCache != nil {
			_ = redisCache.Close()
		}
		_ = bank.Close()
	}

	semantic := generator.NewSemanticGenerator(bank, generator.PassthroughReranker{}, bank, logger).
		WithRetrievalParams(settings.Retrieval.SearchSize, settings.Retrieval.PoolSize, settings.Retrieval.MaxQueries)

	generators := []generator.Generator{
		generator.NewBasedOnGenerator(bank, logger),
		generator.NewRelatedLessonGenerator(bank, logger),
		semantic,
	}

	imageService := images.NewService(cache, visionProvider, settings.Vision.MaxConcurrent, settings.Cache.TTL, logger)
	comp := composer.NewLLMComposer(composerProvider, logger)

	service := pipeline.New(generators, reranker.NoopReranker{}, imageService, comp, logger)
	return service, cleanup, nil
}

// loadPlan reads a PlanFile from disk.
func loadPlan(path string) (quiz.LessonPlan, []quiz.RelatedLesson, error) {
	if path == "" {
		return quiz.LessonPlan{}, nil, fmt.Errorf("--plan is required for this command")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return quiz.LessonPlan{}, nil, fmt.Errorf("failed to read lesson plan: %w", err)
	}

	var file PlanFile
	if err := json.Unmarshal(data, &file); err != nil {
		return quiz.LessonPlan{}, nil, fmt.Errorf("failed to parse lesson plan: %w", err)
	}
	if file.LessonPlan.Title == "" {
		return quiz.LessonPlan{}, nil, fmt.Errorf("lesson plan in %s has no title", path)
	}
	return file.LessonPlan, file.RelatedLessons, nil
}

// newLogger builds the CLI logger. Verbose lowers the level to debug.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printJSON(w *os.File, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
