package store

import (
	"context"

	"github.com/pkg/errors"
)

// EntryEmbedding represents the vector embedding of a journal entry.
type EntryEmbedding struct {
	ID        int32
	EntryID   int32
	Model     string
	Embedding []float32
	CreatedTs int64
	UpdatedTs int64
}

// FindEntryEmbedding is the find condition for entry embeddings.
type FindEntryEmbedding struct {
	EntryID *int32
	Model   *string
}

// FindEntriesWithoutEmbedding is the find condition for entries lacking an embedding.
type FindEntriesWithoutEmbedding struct {
	Model     string // embedding model to check
	CreatorID *int32 // optional: scope to one user
	Limit     int    // maximum number of entries to return
}

// EntryWithScore represents a vector search result with similarity score.
type EntryWithScore struct {
	Entry *JournalEntry
	Score float32 // similarity score (0-1, higher is more similar)
}

// VectorSearchOptions represents the options for entry vector search.
type VectorSearchOptions struct {
	Vector    []float32
	CreatorID int32
	Model     string
	Limit     int
}

// Validate validates the VectorSearchOptions.
func (o *VectorSearchOptions) Validate() error {
	if o.CreatorID <= 0 {
		return errors.Errorf("invalid CreatorID: %d", o.CreatorID)
	}
	if len(o.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 10
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	return nil
}

// KeywordResult represents a lexical search result with relevance score.
type KeywordResult struct {
	Entry *JournalEntry
	Score float64
}

// KeywordSearchOptions represents the options for lexical entry search.
type KeywordSearchOptions struct {
	Query     string
	CreatorID int32
	Limit     int
	MinScore  float64
}

func (s *Store) UpsertEntryEmbedding(ctx context.Context, embedding *EntryEmbedding) (*EntryEmbedding, error) {
	return s.driver.UpsertEntryEmbedding(ctx, embedding)
}

// GetEntryEmbedding gets the embedding of a specific entry, or nil if absent.
func (s *Store) GetEntryEmbedding(ctx context.Context, entryID int32, model string) (*EntryEmbedding, error) {
	list, err := s.driver.ListEntryEmbeddings(ctx, &FindEntryEmbedding{
		EntryID: &entryID,
		Model:   &model,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteEntryEmbedding(ctx context.Context, entryID int32) error {
	return s.driver.DeleteEntryEmbedding(ctx, entryID)
}

func (s *Store) FindEntriesWithoutEmbedding(ctx context.Context, find *FindEntriesWithoutEmbedding) ([]*JournalEntry, error) {
	return s.driver.FindEntriesWithoutEmbedding(ctx, find)
}

func (s *Store) CountEntriesWithEmbedding(ctx context.Context, creatorID int32, model string) (int, error) {
	return s.driver.CountEntriesWithEmbedding(ctx, creatorID, model)
}

func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*EntryWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.VectorSearch(ctx, opts)
}

func (s *Store) KeywordSearch(ctx context.Context, opts *KeywordSearchOptions) ([]*KeywordResult, error) {
	return s.driver.KeywordSearch(ctx, opts)
}
