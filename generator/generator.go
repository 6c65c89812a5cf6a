// Package generator produces candidate question pools for a lesson plan.
//
// Three generators feed the composer: the based-on lesson's own quiz, the
// quizzes of curriculum-related lessons, and multi-query semantic search
// over the question index. Generators never fail the pipeline; a generator
// that cannot produce pools contributes zero pools.
//
// Information Hiding:
// - Search index, reranker and question bank stay behind narrow interfaces
// - Per-query fan-out and span bookkeeping are internal to each generator
package generator

import (
	"context"

	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

// SearchHit is one raw hit from the question index.
type SearchHit struct {
	QuestionUID string  `json:"questionUid"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	LessonSlug  string  `json:"lessonSlug,omitempty"`
}

// RerankedHit is a hit rescored by the cross-encoder.
type RerankedHit struct {
	QuestionUID    string  `json:"questionUid"`
	OriginalIndex  int     `json:"originalIndex"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// SearchService queries the question index.
type SearchService interface {
	Search(ctx context.Context, query string, size int) ([]SearchHit, error)
}

// RerankService rescores hits against a query and returns the top n.
type RerankService interface {
	Rerank(ctx context.Context, query string, hits []SearchHit, topN int) ([]RerankedHit, error)
}

// QuestionBank retrieves full questions by UID or by lesson.
type QuestionBank interface {
	// QuestionsByUID returns the questions for the given UIDs, preserving
	// request order. Unknown UIDs are skipped.
	QuestionsByUID(ctx context.Context, uids []string) ([]quiz.RagQuizQuestion, error)

	// LessonQuiz returns the stored quiz of a lesson.
	LessonQuiz(ctx context.Context, lessonID string, quizType quiz.QuizType) ([]quiz.RagQuizQuestion, error)
}

// Generator produces candidate pools for one retrieval strategy.
type Generator interface {
	// Stage names the pipeline stage this generator reports under.
	Stage() tracing.StageName

	// GenerateStarterCandidates produces pools for a starter quiz.
	GenerateStarterCandidates(ctx context.Context, plan quiz.LessonPlan, related []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error)

	// GenerateExitCandidates produces pools for an exit quiz.
	GenerateExitCandidates(ctx context.Context, plan quiz.LessonPlan, related []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error)
}
