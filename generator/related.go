package generator

import (
	"context"
	"log/slog"

	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

// RelatedLessonGenerator pulls one pool per curriculum-related lesson.
// An empty related-lesson list yields zero pools. A lesson whose quiz
// cannot be loaded is logged and skipped rather than failing the batch.
type RelatedLessonGenerator struct {
	bank   QuestionBank
	logger *slog.Logger
}

// NewRelatedLessonGenerator creates a related-lesson generator.
func NewRelatedLessonGenerator(bank QuestionBank, logger *slog.Logger) *RelatedLessonGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelatedLessonGenerator{bank: bank, logger: logger}
}

// Stage names the pipeline stage this generator reports under.
func (g *RelatedLessonGenerator) Stage() tracing.StageName {
	return tracing.StageRelatedLessons
}

// GenerateStarterCandidates produces pools for a starter quiz.
func (g *RelatedLessonGenerator) GenerateStarterCandidates(ctx context.Context, plan quiz.LessonPlan, related []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	return g.generate(ctx, related, quiz.StarterQuiz, span)
}

// GenerateExitCandidates produces pools for an exit quiz.
func (g *RelatedLessonGenerator) GenerateExitCandidates(ctx context.Context, plan quiz.LessonPlan, related []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	return g.generate(ctx, related, quiz.ExitQuiz, span)
}

func (g *RelatedLessonGenerator) generate(ctx context.Context, related []quiz.RelatedLesson, quizType quiz.QuizType, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	if len(related) == 0 {
		span.SetData("skipped", "no related lessons")
		return nil, nil
	}

	var pools []quiz.QuizQuestionPool
	for _, lesson := range related {
		questions, err := g.bank.LessonQuiz(ctx, lesson.LessonID, quizType)
		if err != nil {
			g.logger.Warn("failed to load quiz of related lesson, skipping",
				"lessonId", lesson.LessonID, "quizType", quizType.String(), "error", err)
			continue
		}
		if len(questions) == 0 {
			continue
		}
		pools = append(pools, quiz.QuizQuestionPool{
			Source: quiz.RelatedLessonSource{
				LessonID:    lesson.LessonID,
				LessonTitle: lesson.Title,
			},
			Questions: questions,
		})
	}
	span.SetData("poolCount", len(pools))
	return pools, nil
}

// Verify RelatedLessonGenerator implements Generator
var _ Generator = (*RelatedLessonGenerator)(nil)
