package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/edforge/quizrag/quiz"
	"github.com/edforge/quizrag/tracing"
)

// Default retrieval parameters for the semantic generator.
const (
	DefaultSearchSize = 50
	DefaultPoolSize   = 3
	DefaultMaxQueries = 6
)

// SemanticGenerator runs multi-query semantic retrieval: derive up to
// maxQueries queries from the lesson plan, then per query search the index,
// rerank with the cross-encoder, and load the top candidates from the bank.
// Queries fan out concurrently; a failed query is logged and contributes no
// pool.
type SemanticGenerator struct {
	search SearchService
	rerank RerankService
	bank   QuestionBank
	logger *slog.Logger

	searchSize int
	poolSize   int
	maxQueries int
}

// NewSemanticGenerator creates a semantic generator with default retrieval
// parameters.
func NewSemanticGenerator(search SearchService, rerank RerankService, bank QuestionBank, logger *slog.Logger) *SemanticGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticGenerator{
		search:     search,
		rerank:     rerank,
		bank:       bank,
		logger:     logger,
		searchSize: DefaultSearchSize,
		poolSize:   DefaultPoolSize,
		maxQueries: DefaultMaxQueries,
	}
}

// WithRetrievalParams overrides search size, per-query pool size and the
// query cap. Zero values keep the current setting.
func (g *SemanticGenerator) WithRetrievalParams(searchSize, poolSize, maxQueries int) *SemanticGenerator {
	if searchSize > 0 {
		g.searchSize = searchSize
	}
	if poolSize > 0 {
		g.poolSize = poolSize
	}
	if maxQueries > 0 {
		g.maxQueries = maxQueries
	}
	return g
}

// Stage names the pipeline stage this generator reports under.
func (g *SemanticGenerator) Stage() tracing.StageName {
	return tracing.StageSemanticSearch
}

// GenerateStarterCandidates produces pools for a starter quiz. Starter
// queries target the plan's prior knowledge.
func (g *SemanticGenerator) GenerateStarterCandidates(ctx context.Context, plan quiz.LessonPlan, _ []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	return g.generate(ctx, plan, quiz.StarterQuiz, span)
}

// GenerateExitCandidates produces pools for an exit quiz. Exit queries
// target the plan's key learning points.
func (g *SemanticGenerator) GenerateExitCandidates(ctx context.Context, plan quiz.LessonPlan, _ []quiz.RelatedLesson, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	return g.generate(ctx, plan, quiz.ExitQuiz, span)
}

func (g *SemanticGenerator) generate(ctx context.Context, plan quiz.LessonPlan, quizType quiz.QuizType, span *tracing.Span) ([]quiz.QuizQuestionPool, error) {
	queries := g.deriveQueries(plan, quizType)
	span.SetData("queries", queries)
	if len(queries) == 0 {
		return nil, nil
	}

	// One slot per query keeps pool order stable regardless of which
	// goroutine finishes first.
	pools := make([]*quiz.QuizQuestionPool, len(queries))

	var eg errgroup.Group
	for i, query := range queries {
		eg.Go(func() error {
			pool, err := g.runQuery(ctx, query, i, span)
			if err != nil {
				g.logger.Warn("semantic query failed, skipping",
					"query", query, "error", err)
				return nil
			}
			pools[i] = pool
			return nil
		})
	}
	// Errors are handled per query above, so Wait always returns nil.
	_ = eg.Wait()

	var out []quiz.QuizQuestionPool
	for _, pool := range pools {
		if pool != nil && len(pool.Questions) > 0 {
			out = append(out, *pool)
		}
	}
	return out, nil
}

// runQuery executes search -> rerank -> bank lookup for one query, tracing
// each step under a per-query child span.
func (g *SemanticGenerator) runQuery(ctx context.Context, query string, index int, parent *tracing.Span) (*quiz.QuizQuestionPool, error) {
	span := parent.StartChild(fmt.Sprintf("query-%d", index))
	defer span.End()
	span.SetData("query", query)

	hits, err := g.search.Search(ctx, query, g.searchSize)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	span.SetData("searchHits", hits)
	if len(hits) == 0 {
		return nil, nil
	}

	reranked, err := g.rerank.Rerank(ctx, query, hits, g.poolSize)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}
	span.SetData("rerankResults", reranked)

	uids := make([]string, 0, len(reranked))
	for _, r := range reranked {
		uids = append(uids, r.QuestionUID)
	}
	span.SetData("finalCandidates", uids)

	questions, err := g.bank.QuestionsByUID(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	return &quiz.QuizQuestionPool{
		Source:    quiz.SemanticSearchSource{Query: query},
		Questions: questions,
	}, nil
}

// deriveQueries builds search queries from the lesson plan: one per prior
// knowledge entry (starter) or key learning point (exit), prefixed with the
// topic for disambiguation, deduplicated and capped at maxQueries. Plans
// without entries fall back to the topic, then the learning outcome.
func (g *SemanticGenerator) deriveQueries(plan quiz.LessonPlan, quizType quiz.QuizType) []string {
	var items []string
	switch quizType {
	case quiz.StarterQuiz:
		items = plan.PriorKnowledge
	case quiz.ExitQuiz:
		items = plan.KeyLearningPoints
	}

	seen := make(map[string]bool)
	var queries []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] || len(queries) >= g.maxQueries {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	topic := strings.TrimSpace(plan.Topic)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if topic != "" {
			add(topic + ": " + item)
		} else {
			add(item)
		}
	}

	if len(queries) == 0 {
		add(topic)
		add(strings.TrimSpace(plan.LearningOutcome))
	}
	return queries
}

// Verify SemanticGenerator implements Generator
var _ Generator = (*SemanticGenerator)(nil)
