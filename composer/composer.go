// Package composer selects the final quiz questions from candidate pools
// with a structured-output LLM call.
//
// Information Hiding:
// - Prompt layout and the response schema are internal
// - UID mapping and unknown-UID handling are internal
package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edforge/quizrag/llm"
	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

// ErrCompositionFailed marks a fatal composition failure: the LLM call
// failed or returned output that could not be parsed. There is no partial
// quiz to salvage from it.
var ErrCompositionFailed = errors.New("quiz composition failed")

// QuestionsPerQuiz is how many questions the composer must select.
const QuestionsPerQuiz = 6

// SelectedQuestion is one selection with the model's reasoning.
type SelectedQuestion struct {
	QuestionUID string `json:"questionUid"`
	Reasoning   string `json:"reasoning"`
}

// CompositionResponse is the structured output of the composer call.
type CompositionResponse struct {
	OverallStrategy   string             `json:"overallStrategy"`
	SelectedQuestions []SelectedQuestion `json:"selectedQuestions"`
}

// compositionSchema constrains the LLM to exactly six selections.
var compositionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"overallStrategy": {
			"type": "string",
			"description": "One paragraph explaining the selection strategy across all six questions"
		},
		"selectedQuestions": {
			"type": "array",
			"minItems": 6,
			"maxItems": 6,
			"items": {
				"type": "object",
				"properties": {
					"questionUid": {"type": "string"},
					"reasoning": {"type": "string"}
				},
				"required": ["questionUid", "reasoning"],
				"additionalProperties": false
			}
		}
	},
	"required": ["overallStrategy", "selectedQuestions"],
	"additionalProperties": false
}`)

// Result is the outcome of one composition: the prompt that was sent, the
// model's response, and the selections resolved against the pools.
type Result struct {
	Prompt   string
	Response CompositionResponse
	Selected []quiz.RagQuizQuestion
}

// LLMComposer composes quizzes via a structured-output LLM call.
type LLMComposer struct {
	provider llm.StructuredCompleter
	logger   *slog.Logger
}

// NewLLMComposer creates a composer on the given provider.
func NewLLMComposer(provider llm.StructuredCompleter, logger *slog.Logger) *LLMComposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMComposer{provider: provider, logger: logger}
}

// Compose builds the prompt, runs the constrained LLM call, and resolves
// the selected UIDs against the pools. With zero pools it returns a neutral
// result without calling the LLM. Prompt assembly and the LLM call report
// as separate child spans of parent.
func (c *LLMComposer) Compose(ctx context.Context, pools []quiz.QuizQuestionPool, plan quiz.LessonPlan, quizType quiz.QuizType, parent *tracing.Span) (*Result, error) {
	if len(pools) == 0 {
		c.logger.Warn("no candidate pools, returning empty composition")
		return &Result{
			Response: CompositionResponse{
				OverallStrategy: "No candidate pools were provided, so no questions could be selected.",
			},
		}, nil
	}

	promptSpan := parent.StartChild(string(tracing.StageComposerPrompt))
	prompt := BuildCompositionPrompt(pools, plan, quizType)
	promptSpan.SetData("prompt", prompt)
	promptSpan.SetData(tracing.SpanResultKey, map[string]any{
		"promptLength":   len(prompt),
		"candidateCount": quiz.CountQuestions(pools),
	})
	promptSpan.End()

	llmSpan := parent.StartChild(string(tracing.StageComposerLLM))
	messages := []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(prompt),
	}
	format := llm.NewJSONSchemaFormat("quiz_composition", compositionSchema)

	var response CompositionResponse
	if err := c.provider.CompleteStructured(ctx, messages, format, &response); err != nil {
		llmSpan.SetData("error", err.Error())
		llmSpan.End()
		return nil, fmt.Errorf("%w: %v", ErrCompositionFailed, err)
	}

	selected := MapResponseToQuestions(response, pools, c.logger)
	llmSpan.SetData(tracing.SpanResultKey, response)
	llmSpan.SetData("selected", selected)
	llmSpan.End()

	c.logger.Info("composed quiz",
		"quizType", quizType.String(),
		"candidates", quiz.CountQuestions(pools),
		"selected", len(selected))
	return &Result{Prompt: prompt, Response: response, Selected: selected}, nil
}

// MapResponseToQuestions resolves selected UIDs against the pools,
// preserving selection order. UIDs that match no candidate are dropped with
// a logged warning; duplicates resolve to the same question each time.
func MapResponseToQuestions(response CompositionResponse, pools []quiz.QuizQuestionPool, logger *slog.Logger) []quiz.RagQuizQuestion {
	if logger == nil {
		logger = slog.Default()
	}

	index := make(map[string]quiz.RagQuizQuestion)
	for _, pool := range pools {
		for _, q := range pool.Questions {
			if _, ok := index[q.SourceUID]; !ok {
				index[q.SourceUID] = q
			}
		}
	}

	out := make([]quiz.RagQuizQuestion, 0, len(response.SelectedQuestions))
	for _, sel := range response.SelectedQuestions {
		q, ok := index[sel.QuestionUID]
		if !ok {
			logger.Warn("composer selected unknown question UID, dropping",
				"questionUid", sel.QuestionUID)
			continue
		}
		out = append(out, q)
	}
	return out
}
