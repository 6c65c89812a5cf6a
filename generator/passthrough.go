package generator

import "context"

// PassthroughReranker keeps the index ordering: the top n hits win with
// their original scores. Used when no cross-encoder backend is wired.
type PassthroughReranker struct{}

// Rerank returns the first n hits unchanged.
func (PassthroughReranker) Rerank(_ context.Context, _ string, hits []SearchHit, topN int) ([]RerankedHit, error) {
	if topN > len(hits) {
		topN = len(hits)
	}
	out := make([]RerankedHit, topN)
	for i := 0; i < topN; i++ {
		out[i] = RerankedHit{
			QuestionUID:    hits[i].QuestionUID,
			OriginalIndex:  i,
			RelevanceScore: hits[i].Score,
		}
	}
	return out, nil
}

// Verify PassthroughReranker implements RerankService
var _ RerankService = PassthroughReranker{}
