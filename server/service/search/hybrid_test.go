package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usevoxlog/voxlog/store"
)

func newHybridFixture(retriever *mockRetriever) *HybridSearcher {
	vector := NewVectorSearcher(retriever, newMockEmbedder(8), "test-model")
	return NewHybridSearcher(vector, retriever)
}

func TestHybridBalancedFusesBothSignals(t *testing.T) {
	retriever := &mockRetriever{
		vectorResults: map[int32][]*store.EntryWithScore{
			1: {
				{Entry: entry(1, "a", "semantic hit", 100), Score: 0.9},
				{Entry: entry(2, "b", "shared hit", 90), Score: 0.8},
			},
		},
		keywordResults: map[int32][]*store.KeywordResult{
			1: {
				{Entry: entry(2, "b", "shared hit", 90), Score: 1.0},
				{Entry: entry(3, "c", "keyword hit", 80), Score: 0.5},
			},
		},
	}
	h := newHybridFixture(retriever)

	results, err := h.Search(context.Background(), "hit", 1, 10, StrategyBalanced)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// "b" ranks first: it appears in both lists so accumulates both weights.
	assert.Equal(t, "b", results[0].EntryUID)
}

func TestHybridSemanticOnlySkipsKeywordSearch(t *testing.T) {
	retriever := &mockRetriever{
		vectorResults: map[int32][]*store.EntryWithScore{
			1: {{Entry: entry(1, "a", "semantic hit", 100), Score: 0.9}},
		},
	}
	h := newHybridFixture(retriever)

	results, err := h.Search(context.Background(), "hit", 1, 10, StrategySemantic)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, retriever.lastKeywordOpts)
}

func TestHybridKeywordOnlySkipsVectorSearch(t *testing.T) {
	retriever := &mockRetriever{
		keywordResults: map[int32][]*store.KeywordResult{
			1: {{Entry: entry(1, "a", "keyword hit", 100), Score: 0.7}},
		},
	}
	h := newHybridFixture(retriever)

	results, err := h.Search(context.Background(), "hit", 1, 10, StrategyKeyword)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, retriever.lastVectorOpts)
}

func TestHybridUnknownStrategyFallsBackToBalanced(t *testing.T) {
	w := weightsFor(Strategy("experimental"))
	assert.Equal(t, strategyConfigs[StrategyBalanced], w)
}

func TestHybridLimit(t *testing.T) {
	vectorMatches := []*store.EntryWithScore{}
	for i := int32(0); i < 10; i++ {
		vectorMatches = append(vectorMatches, &store.EntryWithScore{
			Entry: entry(i, string(rune('a'+i)), "content", int64(i)),
			Score: 0.9,
		})
	}
	retriever := &mockRetriever{
		vectorResults:  map[int32][]*store.EntryWithScore{1: vectorMatches},
		keywordResults: map[int32][]*store.KeywordResult{},
	}
	h := newHybridFixture(retriever)

	results, err := h.Search(context.Background(), "content", 1, 4, StrategyBalanced)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestHybridEmptyQuery(t *testing.T) {
	h := newHybridFixture(&mockRetriever{})
	_, err := h.Search(context.Background(), "", 1, 10, StrategyBalanced)
	assert.Error(t, err)
}

func TestFuseWithRRFOrdering(t *testing.T) {
	a := &Result{EntryUID: "a", CreatedTs: 1}
	b := &Result{EntryUID: "b", CreatedTs: 2}
	c := &Result{EntryUID: "c", CreatedTs: 3}

	fused := fuseWithRRF([]*Result{a, b}, []*Result{b, c}, 0.5, 0.5)
	require.Len(t, fused, 3)
	assert.Equal(t, "b", fused[0].EntryUID)

	// Fused scores are RRF contributions, not raw similarities.
	expectedTop := float32(0.5/float64(rrfDampingFactor+2) + 0.5/float64(rrfDampingFactor+1))
	assert.InDelta(t, expectedTop, fused[0].Score, 1e-6)
}
