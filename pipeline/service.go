// Package pipeline orchestrates quiz composition: candidate generation,
// pool reranking, image description resolution, and the composer call.
//
// Information Hiding:
// - Stage sequencing and generator fan-out are internal
// - Failure policy (which stages are fatal) is internal; callers see one
//   final quiz or one error
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edforge/quizrag/composer"
	"github.com/edforge/quizrag/generator"
	"github.com/edforge/quizrag/images"
	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/reranker"
	"github.com/edforge/quizrag/tracing"
)

// Service runs the full candidate generation and composition pipeline.
type Service struct {
	generators []generator.Generator
	reranker   reranker.Reranker
	images     *images.Service
	composer   *composer.LLMComposer
	logger     *slog.Logger
}

// New creates a pipeline over the given stages.
func New(generators []generator.Generator, rr reranker.Reranker, img *images.Service, comp *composer.LLMComposer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generators: generators,
		reranker:   rr,
		images:     img,
		composer:   comp,
		logger:     logger,
	}
}

// BuildQuiz produces the final quiz for a lesson plan.
//
// Generators run concurrently; a failed generator contributes zero pools
// and never fails the run. Reranking and image description failures
// degrade (no ratings, unresolved images). Only a composer failure is
// fatal. tracer may be nil.
func (s *Service) BuildQuiz(ctx context.Context, plan quiz.LessonPlan, quizType quiz.QuizType, related []quiz.RelatedLesson, tracer *tracing.Tracer) (quiz.Quiz, error) {
	root := tracer.StartSpan("pipeline")
	defer root.End()

	pools := s.runGenerators(ctx, plan, quizType, related, root)
	s.logger.Info("generated candidate pools",
		"quizType", quizType.String(),
		"pools", len(pools),
		"questions", quiz.CountQuestions(pools))

	rerankSpan := root.StartChild("reranker")
	ratings, err := s.reranker.Evaluate(ctx, pools, plan, quizType)
	if err != nil {
		s.logger.Warn("pool reranker failed, continuing without ratings", "error", err)
		ratings = nil
	}
	rerankSpan.SetData("ratings", ratings)
	rerankSpan.End()

	imageSpan := root.StartChild(string(tracing.StageImageDescriptions))
	descriptions, err := s.images.GetImageDescriptions(ctx, pools)
	if err != nil {
		s.logger.Warn("image description service failed, composing with raw references", "error", err)
		descriptions = images.DescriptionMap{Descriptions: map[string]string{}}
	}
	imageSpan.SetData(tracing.SpanResultKey, descriptions)
	imageSpan.End()

	// The composer reads the description-substituted copy; the originals
	// keep their real images for the final quiz.
	enriched := images.ApplyDescriptionsToQuestions(pools, descriptions.Descriptions)

	result, err := s.composer.Compose(ctx, enriched, plan, quizType, root)
	if err != nil {
		return quiz.Quiz{}, err
	}

	selected := composer.MapResponseToQuestions(result.Response, pools, s.logger)
	return quiz.BuildQuizFromQuestions(selected), nil
}

// runGenerators fans out all generators and flattens their pools in
// generator order. Generator errors are isolated here.
func (s *Service) runGenerators(ctx context.Context, plan quiz.LessonPlan, quizType quiz.QuizType, related []quiz.RelatedLesson, root *tracing.Span) []quiz.QuizQuestionPool {
	results := make([][]quiz.QuizQuestionPool, len(s.generators))

	var eg errgroup.Group
	for i, g := range s.generators {
		eg.Go(func() error {
			span := root.StartChild(string(g.Stage()))
			defer span.End()

			var pools []quiz.QuizQuestionPool
			var err error
			switch quizType {
			case quiz.StarterQuiz:
				pools, err = g.GenerateStarterCandidates(ctx, plan, related, span)
			case quiz.ExitQuiz:
				pools, err = g.GenerateExitCandidates(ctx, plan, related, span)
			default:
				err = fmt.Errorf("unknown quiz type %v", quizType)
			}
			if err != nil {
				s.logger.Warn("generator failed, contributing no pools",
					"stage", string(g.Stage()), "error", err)
				span.SetData("error", err.Error())
				span.SetData(tracing.SpanResultKey, map[string]any{"poolCount": 0})
				return nil
			}

			span.SetData("pools", pools)
			span.SetData(tracing.SpanResultKey, map[string]any{
				"poolCount":     len(pools),
				"questionCount": quiz.CountQuestions(pools),
			})
			results[i] = pools
			return nil
		})
	}
	// Errors are handled per generator above, so Wait always returns nil.
	_ = eg.Wait()

	var pools []quiz.QuizQuestionPool
	for _, r := range results {
		pools = append(pools, r...)
	}
	return pools
}
