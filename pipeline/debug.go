package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edforge/quizrag/composer"
	"github.com/edforge/quizrag/generator"
	"github.com/edforge/quizrag/images"
	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/reranker"
	"github.com/edforge/quizrag/tracing"
)

// DebugInput echoes what the run was asked to do.
type DebugInput struct {
	LessonPlan     quiz.LessonPlan      `json:"lessonPlan"`
	QuizType       string               `json:"quizType"`
	RelatedLessons []quiz.RelatedLesson `json:"relatedLessons"`
}

// QueryDebug is the retrieval detail of one semantic query.
type QueryDebug struct {
	Query           string                  `json:"query"`
	SearchHits      []generator.SearchHit   `json:"searchHits,omitempty"`
	RerankResults   []generator.RerankedHit `json:"rerankResults,omitempty"`
	FinalCandidates []string                `json:"finalCandidates,omitempty"`
	DurationMs      int64                   `json:"durationMs"`
}

// GeneratorDebug is the outcome of one generator stage.
type GeneratorDebug struct {
	DurationMs int64                   `json:"durationMs"`
	Pools      []quiz.QuizQuestionPool `json:"pools"`
	Queries    []QueryDebug            `json:"queries,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// RerankerDebug is the pool reranker outcome.
type RerankerDebug struct {
	Ratings    []reranker.Rating `json:"ratings"`
	DurationMs int64             `json:"durationMs"`
}

// SelectorDebug covers image resolution and the composer call.
type SelectorDebug struct {
	ImageDescriptions images.DescriptionMap        `json:"imageDescriptions"`
	Prompt            string                       `json:"prompt"`
	Response          composer.CompositionResponse `json:"response"`
	Selected          []quiz.RagQuizQuestion       `json:"selected"`
	DurationMs        int64                        `json:"durationMs"`
}

// TimingBreakdown summarizes where the run spent its time. Generators run
// concurrently, so GeneratorsMs is the slowest generator, not their sum.
type TimingBreakdown struct {
	TotalMs      int64 `json:"totalMs"`
	GeneratorsMs int64 `json:"generatorsMs"`
	RerankerMs   int64 `json:"rerankerMs"`
	SelectorMs   int64 `json:"selectorMs"`
}

// DebugResult is the full picture of one pipeline run, reconstructed from
// the completed span tree.
type DebugResult struct {
	RunID      string                    `json:"runId"`
	Input      DebugInput                `json:"input"`
	Generators map[string]GeneratorDebug `json:"generators"`
	Reranker   RerankerDebug             `json:"reranker"`
	Selector   SelectorDebug             `json:"selector"`
	FinalQuiz  quiz.Quiz                 `json:"finalQuiz"`
	Timing     TimingBreakdown           `json:"timing"`
}

// DebugService runs the pipeline under a tracer and assembles a
// DebugResult from the span tree.
type DebugService struct {
	service *Service
	logger  *slog.Logger
}

// NewDebugService wraps a pipeline service.
func NewDebugService(service *Service, logger *slog.Logger) *DebugService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugService{service: service, logger: logger}
}

// Run executes the pipeline and returns the debug result. instr may be nil
// for buffered-only runs. On a fatal composition error the partial debug
// result is returned alongside the error.
func (d *DebugService) Run(ctx context.Context, plan quiz.LessonPlan, quizType quiz.QuizType, related []quiz.RelatedLesson, instr tracing.Instrumentation) (*DebugResult, error) {
	tracer := tracing.NewTracer(instr)

	finalQuiz, runErr := d.service.BuildQuiz(ctx, plan, quizType, related, tracer)

	result := &DebugResult{
		RunID: uuid.NewString(),
		Input: DebugInput{
			LessonPlan:     plan,
			QuizType:       quizType.String(),
			RelatedLessons: related,
		},
		Generators: make(map[string]GeneratorDebug),
		FinalQuiz:  finalQuiz,
	}
	d.fillFromSpans(result, tracer.CompletedSpans())
	return result, runErr
}

// fillFromSpans walks the completed span tree into the debug result.
func (d *DebugService) fillFromSpans(result *DebugResult, roots []tracing.CompletedSpan) {
	var root tracing.CompletedSpan
	found := false
	for _, r := range roots {
		if r.Name == "pipeline" {
			root = r
			found = true
			break
		}
	}
	if !found {
		return
	}
	result.Timing.TotalMs = root.DurationMs

	generatorStages := []tracing.StageName{
		tracing.StageBasedOn,
		tracing.StageRelatedLessons,
		tracing.StageSemanticSearch,
	}
	for _, stage := range generatorStages {
		span, ok := root.Child(string(stage))
		if !ok {
			continue
		}
		debug := GeneratorDebug{DurationMs: span.DurationMs}
		if pools, ok := span.Data["pools"].([]quiz.QuizQuestionPool); ok {
			debug.Pools = pools
		}
		if errText, ok := span.Data["error"].(string); ok {
			debug.Error = errText
		}
		for _, child := range span.Children {
			debug.Queries = append(debug.Queries, queryDebug(child))
		}
		result.Generators[string(stage)] = debug
		if span.DurationMs > result.Timing.GeneratorsMs {
			result.Timing.GeneratorsMs = span.DurationMs
		}
	}

	if span, ok := root.Child("reranker"); ok {
		result.Reranker.DurationMs = span.DurationMs
		if ratings, ok := span.Data["ratings"].([]reranker.Rating); ok {
			result.Reranker.Ratings = ratings
		}
		result.Timing.RerankerMs = span.DurationMs
	}

	if span, ok := root.Child(string(tracing.StageImageDescriptions)); ok {
		if dm, ok := span.Data[tracing.SpanResultKey].(images.DescriptionMap); ok {
			result.Selector.ImageDescriptions = dm
		}
		result.Selector.DurationMs += span.DurationMs
		result.Timing.SelectorMs += span.DurationMs
	}
	if span, ok := root.Child(string(tracing.StageComposerPrompt)); ok {
		if prompt, ok := span.Data["prompt"].(string); ok {
			result.Selector.Prompt = prompt
		}
		result.Selector.DurationMs += span.DurationMs
		result.Timing.SelectorMs += span.DurationMs
	}
	if span, ok := root.Child(string(tracing.StageComposerLLM)); ok {
		if response, ok := span.Data[tracing.SpanResultKey].(composer.CompositionResponse); ok {
			result.Selector.Response = response
		}
		if selected, ok := span.Data["selected"].([]quiz.RagQuizQuestion); ok {
			result.Selector.Selected = selected
		}
		result.Selector.DurationMs += span.DurationMs
		result.Timing.SelectorMs += span.DurationMs
	}
}

func queryDebug(span tracing.CompletedSpan) QueryDebug {
	q := QueryDebug{DurationMs: span.DurationMs}
	if text, ok := span.Data["query"].(string); ok {
		q.Query = text
	}
	if hits, ok := span.Data["searchHits"].([]generator.SearchHit); ok {
		q.SearchHits = hits
	}
	if reranked, ok := span.Data["rerankResults"].([]generator.RerankedHit); ok {
		q.RerankResults = reranked
	}
	if uids, ok := span.Data["finalCandidates"].([]string); ok {
		q.FinalCandidates = uids
	}
	return q
}
