package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usevoxlog/voxlog/store"
)

// mockEmbedder returns fixed-dimension vectors derived from text so that
// related texts land near each other.
type mockEmbedder struct {
	dims       int
	shouldFail bool
	vectors    map[string][]float32
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims, vectors: map[string][]float32{}}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.shouldFail {
		return nil, errors.New("embedding service error")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	vector := make([]float32, m.dims)
	for i := range vector {
		vector[i] = 0.1
	}
	return vector, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }

// mockRetriever serves canned per-user results and records the scoping it saw.
type mockRetriever struct {
	vectorResults  map[int32][]*store.EntryWithScore
	keywordResults map[int32][]*store.KeywordResult
	vectorErr      error
	keywordErr     error

	lastVectorOpts  *store.VectorSearchOptions
	lastKeywordOpts *store.KeywordSearchOptions
}

func (m *mockRetriever) VectorSearch(_ context.Context, opts *store.VectorSearchOptions) ([]*store.EntryWithScore, error) {
	m.lastVectorOpts = opts
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	return m.vectorResults[opts.CreatorID], nil
}

func (m *mockRetriever) KeywordSearch(_ context.Context, opts *store.KeywordSearchOptions) ([]*store.KeywordResult, error) {
	m.lastKeywordOpts = opts
	if m.keywordErr != nil {
		return nil, m.keywordErr
	}
	return m.keywordResults[opts.CreatorID], nil
}

func entry(id int32, uid, content string, createdTs int64) *store.JournalEntry {
	return &store.JournalEntry{
		ID:        id,
		UID:       uid,
		CreatorID: 1,
		CreatedTs: createdTs,
		UpdatedTs: createdTs,
		RowStatus: store.Normal,
		Content:   content,
	}
}

func TestVectorSearchOrderingAndThreshold(t *testing.T) {
	ctx := context.Background()
	retriever := &mockRetriever{
		vectorResults: map[int32][]*store.EntryWithScore{
			1: {
				{Entry: entry(1, "beach", "beach trip with family", 100), Score: 0.82},
				{Entry: entry(2, "tax", "quarterly tax filing", 200), Score: 0.12},
				{Entry: entry(3, "picnic", "family picnic in the park", 300), Score: 0.55},
			},
		},
	}
	searcher := NewVectorSearcher(retriever, newMockEmbedder(8), "test-model")

	results, err := searcher.Search(ctx, "family vacation", 1, 10, 0.3)
	require.NoError(t, err)

	// Tax entry filtered by threshold; remaining sorted by score descending.
	require.Len(t, results, 2)
	assert.Equal(t, "beach", results[0].EntryUID)
	assert.Equal(t, "picnic", results[1].EntryUID)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0.3))
	}
}

func TestVectorSearchRecencyTieBreak(t *testing.T) {
	ctx := context.Background()
	retriever := &mockRetriever{
		vectorResults: map[int32][]*store.EntryWithScore{
			1: {
				{Entry: entry(1, "older", "entry one", 100), Score: 0.5},
				{Entry: entry(2, "newer", "entry two", 200), Score: 0.5},
			},
		},
	}
	searcher := NewVectorSearcher(retriever, newMockEmbedder(8), "test-model")

	results, err := searcher.Search(ctx, "entries", 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].EntryUID)
	assert.Equal(t, "older", results[1].EntryUID)
}

func TestVectorSearchLimit(t *testing.T) {
	ctx := context.Background()
	matches := []*store.EntryWithScore{}
	for i := int32(0); i < 20; i++ {
		matches = append(matches, &store.EntryWithScore{
			Entry: entry(i, strings.Repeat("x", int(i)+1), "content", int64(i)),
			Score: 0.9,
		})
	}
	retriever := &mockRetriever{vectorResults: map[int32][]*store.EntryWithScore{1: matches}}
	searcher := NewVectorSearcher(retriever, newMockEmbedder(8), "test-model")

	results, err := searcher.Search(ctx, "anything", 1, 3, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestVectorSearchUserScoping(t *testing.T) {
	ctx := context.Background()
	retriever := &mockRetriever{
		vectorResults: map[int32][]*store.EntryWithScore{
			1: {{Entry: entry(1, "mine", "my entry", 100), Score: 0.9}},
			2: {{Entry: entry(2, "theirs", "their entry", 100), Score: 0.9}},
		},
	}
	searcher := NewVectorSearcher(retriever, newMockEmbedder(8), "test-model")

	results, err := searcher.Search(ctx, "entry", 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].EntryUID)
	assert.Equal(t, int32(1), retriever.lastVectorOpts.CreatorID)
}

func TestVectorSearchEmptyQuery(t *testing.T) {
	searcher := NewVectorSearcher(&mockRetriever{}, newMockEmbedder(8), "test-model")
	_, err := searcher.Search(context.Background(), "", 1, 10, 0.3)
	assert.Error(t, err)
}

func TestVectorSearchEmbedFailure(t *testing.T) {
	embedder := newMockEmbedder(8)
	embedder.shouldFail = true
	searcher := NewVectorSearcher(&mockRetriever{}, embedder, "test-model")
	_, err := searcher.Search(context.Background(), "query", 1, 10, 0.3)
	assert.Error(t, err)
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("山", 300)
	s := snippet(long)
	assert.Equal(t, snippetMaxRunes+1, len([]rune(s))) // 200 runes + ellipsis
	assert.True(t, strings.HasSuffix(s, "…"))

	short := "short entry"
	assert.Equal(t, short, snippet(short))
}
