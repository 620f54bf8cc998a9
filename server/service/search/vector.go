package search

import (
	"context"

	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/plugin/ai"
	"github.com/usevoxlog/voxlog/store"
)

// VectorSearcher performs semantic search over a user's journal entries.
type VectorSearcher struct {
	retriever EntryRetriever
	embedder  ai.EmbeddingService
	model     string
}

// NewVectorSearcher creates a vector searcher bound to an embedding model.
func NewVectorSearcher(retriever EntryRetriever, embedder ai.EmbeddingService, model string) *VectorSearcher {
	return &VectorSearcher{
		retriever: retriever,
		embedder:  embedder,
		model:     model,
	}
}

// Search embeds the query and returns the user's entries scoring at least
// threshold, ordered by similarity descending with recency tie-break, at
// most limit results.
func (s *VectorSearcher) Search(ctx context.Context, query string, userID int32, limit int, threshold float32) ([]*Result, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	if len(vector) != s.embedder.Dimensions() {
		return nil, errors.Errorf("query embedding dimension mismatch: got %d, want %d", len(vector), s.embedder.Dimensions())
	}

	matches, err := s.retriever.VectorSearch(ctx, &store.VectorSearchOptions{
		Vector:    vector,
		CreatorID: userID,
		Model:     s.model,
		Limit:     limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}

	results := make([]*Result, 0, len(matches))
	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		results = append(results, &Result{
			EntryUID:  m.Entry.UID,
			Title:     m.Entry.Title,
			Snippet:   snippet(m.Entry.Content),
			Score:     m.Score,
			Reason:    "semantic similarity",
			CreatedTs: m.Entry.CreatedTs,
		})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
