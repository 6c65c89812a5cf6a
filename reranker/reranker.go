// Package reranker rates candidate pools against a lesson plan.
//
// The composer currently receives all pools regardless of rating, so the
// default implementation returns a neutral rating per pool. The interface
// keeps room for an LLM or heuristic rater without touching the pipeline.
package reranker

import (
	"context"

	"github.com/edforge/quizrag/quiz"
)

// Rating scores one pool's fit for the lesson plan.
type Rating struct {
	PoolIndex int     `json:"poolIndex"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// Reranker evaluates candidate pools for a quiz.
type Reranker interface {
	Evaluate(ctx context.Context, pools []quiz.QuizQuestionPool, plan quiz.LessonPlan, quizType quiz.QuizType) ([]Rating, error)
}

// NoopReranker returns one neutral rating per pool.
type NoopReranker struct{}

// Evaluate returns a neutral rating for every pool, in pool order.
func (NoopReranker) Evaluate(_ context.Context, pools []quiz.QuizQuestionPool, _ quiz.LessonPlan, _ quiz.QuizType) ([]Rating, error) {
	ratings := make([]Rating, len(pools))
	for i, pool := range pools {
		ratings[i] = Rating{
			PoolIndex: i,
			Source:    pool.Source.Label(),
			Score:     1,
		}
	}
	return ratings, nil
}

// Verify NoopReranker implements Reranker
var _ Reranker = NoopReranker{}
