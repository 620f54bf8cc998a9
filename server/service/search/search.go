// Package search implements the retrieval services over journal entries:
// plain vector search, hybrid (vector + keyword) search, and conversational
// answers synthesized from retrieved entries.
package search

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/usevoxlog/voxlog/store"
)

// snippetMaxRunes caps the snippet shown in search results.
const snippetMaxRunes = 200

// Result is a single search hit. Transient: built per request, never persisted.
type Result struct {
	EntryUID  string  `json:"entryUid"`
	Title     *string `json:"title,omitempty"`
	Snippet   string  `json:"snippet"`
	Score     float32 `json:"score"`
	Reason    string  `json:"reason,omitempty"`
	CreatedTs int64   `json:"createdTs"`
}

// EntryRetriever is the narrow store surface the search services consume.
type EntryRetriever interface {
	VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.EntryWithScore, error)
	KeywordSearch(ctx context.Context, opts *store.KeywordSearchOptions) ([]*store.KeywordResult, error)
}

// snippet truncates content to snippetMaxRunes runes.
func snippet(content string) string {
	if utf8.RuneCountInString(content) <= snippetMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:snippetMaxRunes]) + "…"
}

// sortResults orders results by score descending; equal scores break by
// recency (most recent first) so output stays deterministic.
func sortResults(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedTs > results[j].CreatedTs
	})
}
