package search

import (
	"context"

	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/store"
)

// Strategy selects the blend of signals for hybrid search.
type Strategy string

const (
	StrategyBalanced Strategy = "balanced"
	StrategySemantic Strategy = "semantic"
	StrategyKeyword  Strategy = "keyword"
)

// strategyWeights maps strategies to their signal weights.
type strategyWeights struct {
	Vector  float64
	Keyword float64
}

var strategyConfigs = map[Strategy]strategyWeights{
	StrategyBalanced: {Vector: 0.5, Keyword: 0.5},
	StrategySemantic: {Vector: 1.0, Keyword: 0.0},
	StrategyKeyword:  {Vector: 0.0, Keyword: 1.0},
}

// weightsFor returns the weights for a strategy, falling back to balanced
// for unknown values so new strategies can be added without call-site changes.
func weightsFor(strategy Strategy) strategyWeights {
	if w, ok := strategyConfigs[strategy]; ok {
		return w
	}
	return strategyConfigs[StrategyBalanced]
}

// HybridSearcher blends vector similarity with keyword relevance.
type HybridSearcher struct {
	vector    *VectorSearcher
	retriever EntryRetriever
}

// NewHybridSearcher creates a hybrid searcher on top of a vector searcher.
func NewHybridSearcher(vector *VectorSearcher, retriever EntryRetriever) *HybridSearcher {
	return &HybridSearcher{
		vector:    vector,
		retriever: retriever,
	}
}

// Search runs both signals scoped to the user and fuses them with weighted
// RRF. Ordering and limit contracts match VectorSearcher.Search.
func (s *HybridSearcher) Search(ctx context.Context, query string, userID int32, limit int, strategy Strategy) ([]*Result, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	weights := weightsFor(strategy)

	var vectorResults []*Result
	if weights.Vector > 0 {
		results, err := s.vector.Search(ctx, query, userID, limit, 0)
		if err != nil {
			return nil, err
		}
		vectorResults = results
	}

	var keywordResults []*Result
	if weights.Keyword > 0 {
		matches, err := s.retriever.KeywordSearch(ctx, &store.KeywordSearchOptions{
			Query:     query,
			CreatorID: userID,
			Limit:     limit,
		})
		if err != nil {
			return nil, errors.Wrap(err, "keyword search failed")
		}
		for _, m := range matches {
			keywordResults = append(keywordResults, &Result{
				EntryUID:  m.Entry.UID,
				Title:     m.Entry.Title,
				Snippet:   snippet(m.Entry.Content),
				Score:     float32(m.Score),
				Reason:    "keyword match",
				CreatedTs: m.Entry.CreatedTs,
			})
		}
	}

	// Single-signal strategies skip fusion entirely.
	if weights.Keyword == 0 {
		return truncate(vectorResults, limit), nil
	}
	if weights.Vector == 0 {
		return truncate(keywordResults, limit), nil
	}

	fused := fuseWithRRF(vectorResults, keywordResults, weights.Vector, weights.Keyword)
	return truncate(fused, limit), nil
}

func truncate(results []*Result, limit int) []*Result {
	if results == nil {
		results = []*Result{}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
