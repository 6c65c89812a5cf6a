package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

// BasedOnGenerator pulls the quiz of the lesson the plan is based on.
// Plans without a based-on reference yield zero pools.
type BasedOnGenerator struct {
	bank   QuestionBank
	logger *slog.Logger
}

// NewBasedOnGenerator creates a based-on generator.
func NewBasedOnGenerator(bank QuestionBank, logger *slog.Logger) *BasedOnGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasedOnGenerator{bank: bank, logger: logger}
}

// Stage names the pipeline stage this generator reports under.
func (g *BasedOnGenerator) Stage() tracing.StageName {
	return tracing.StageBasedOn
}

// GenerateStarterCandidates produces pools for a starter quiz.
func (g *BasedOnGenerator) GenerateStarterCandidates(ctx context.Context, plan quiz.LessonPlan, _ []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	return g.generate(ctx, plan, quiz.StarterQuiz, span)
}

// GenerateExitCandidates produces pools for an exit quiz.
func (g *BasedOnGenerator) GenerateExitCandidates(ctx context.Context, plan quiz.LessonPlan, _ []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	return g.generate(ctx, plan, quiz.ExitQuiz, span)
}

func (g *BasedOnGenerator) generate(ctx context.Context, plan quiz.LessonPlan, quizType quiz.QuizType, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	if plan.BasedOn == nil {
		g.logger.Debug("lesson plan has no based-on lesson, skipping")
		span.SetData("skipped", "no based-on lesson")
		return nil, nil
	}

	questions, err := g.bank.LessonQuiz(ctx, plan.BasedOn.ID, quizType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s quiz of based-on lesson %s: %w", quizType, plan.BasedOn.ID, err)
	}
	if len(questions) == 0 {
		g.logger.Debug("based-on lesson has no stored quiz",
			"lessonId", plan.BasedOn.ID, "quizType", quizType.String())
		return nil, nil
	}

	pool := quiz.QuizQuestionPool{
		Source: quiz.BasedOnSource{
			LessonID:    plan.BasedOn.ID,
			LessonTitle: plan.BasedOn.Title,
		},
		Questions: questions,
	}
	span.SetData("questionCount", len(questions))
	return []quiz.QuizQuestionPool{pool}, nil
}

// Verify BasedOnGenerator implements Generator
var _ Generator = (*BasedOnGenerator)(nil)
