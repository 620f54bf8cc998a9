package sqlite

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/store"
)

// UpsertEntryEmbedding inserts or updates an entry embedding.
func (d *DB) UpsertEntryEmbedding(ctx context.Context, embedding *store.EntryEmbedding) (*store.EntryEmbedding, error) {
	now := time.Now().Unix()
	if embedding.CreatedTs == 0 {
		embedding.CreatedTs = now
	}
	embedding.UpdatedTs = now

	stmt := `
		INSERT INTO entry_embedding (entry_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (entry_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		embedding.EntryID,
		encodeVector(embedding.Embedding),
		embedding.Model,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert entry embedding")
	}

	return embedding, nil
}

// ListEntryEmbeddings lists entry embeddings.
func (d *DB) ListEntryEmbeddings(ctx context.Context, find *store.FindEntryEmbedding) ([]*store.EntryEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.EntryID != nil {
		where, args = append(where, "entry_id = ?"), append(args, *find.EntryID)
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
	}

	query := `
		SELECT id, entry_id, embedding, model, created_ts, updated_ts
		FROM entry_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list entry embeddings")
	}
	defer rows.Close()

	list := []*store.EntryEmbedding{}
	for rows.Next() {
		var embedding store.EntryEmbedding
		var blob []byte
		if err := rows.Scan(
			&embedding.ID,
			&embedding.EntryID,
			&blob,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan entry embedding")
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		embedding.Embedding = vector
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteEntryEmbedding deletes the embeddings of an entry.
func (d *DB) DeleteEntryEmbedding(ctx context.Context, entryID int32) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM entry_embedding WHERE entry_id = ?`, entryID); err != nil {
		return errors.Wrap(err, "failed to delete entry embedding")
	}
	return nil
}

// FindEntriesWithoutEmbedding finds entries that don't have embeddings for the specified model.
func (d *DB) FindEntriesWithoutEmbedding(ctx context.Context, find *store.FindEntriesWithoutEmbedding) ([]*store.JournalEntry, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}

	where, args := []string{"e.id IS NULL", "j.row_status = 'NORMAL'", "LENGTH(j.content) > 0"}, []any{find.Model}
	if find.CreatorID != nil {
		where, args = append(where, "j.creator_id = ?"), append(args, *find.CreatorID)
	}
	args = append(args, limit)

	query := `
		SELECT j.id, j.uid, j.creator_id, j.created_ts, j.updated_ts, j.row_status, j.title, j.content
		FROM journal_entry j
		LEFT JOIN entry_embedding e ON j.id = e.entry_id AND e.model = ?
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY j.created_ts DESC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find entries without embedding")
	}
	defer rows.Close()

	list := []*store.JournalEntry{}
	for rows.Next() {
		var entry store.JournalEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UID,
			&entry.CreatorID,
			&entry.CreatedTs,
			&entry.UpdatedTs,
			&entry.RowStatus,
			&entry.Title,
			&entry.Content,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan journal entry")
		}
		list = append(list, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CountEntriesWithEmbedding counts a user's live entries that have an embedding for the model.
func (d *DB) CountEntriesWithEmbedding(ctx context.Context, creatorID int32, model string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM journal_entry j
		INNER JOIN entry_embedding e ON j.id = e.entry_id AND e.model = ?
		WHERE j.creator_id = ?
			AND j.row_status = 'NORMAL'
	`

	var count int
	if err := d.db.QueryRowContext(ctx, query, model, creatorID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count entries with embedding")
	}
	return count, nil
}

// VectorSearch loads the user's embeddings and computes cosine similarity
// in-process. SQLite has no vector operators; this is acceptable for the
// small corpora the SQLite driver targets.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.EntryWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			j.id, j.uid, j.creator_id, j.created_ts, j.updated_ts, j.row_status, j.title, j.content,
			e.embedding
		FROM journal_entry j
		INNER JOIN entry_embedding e ON j.id = e.entry_id
		WHERE j.creator_id = ?
			AND j.row_status = 'NORMAL'
			AND e.model = ?
	`

	rows, err := d.db.QueryContext(ctx, query, opts.CreatorID, opts.Model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.EntryWithScore{}
	for rows.Next() {
		var entry store.JournalEntry
		var blob []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.UID,
			&entry.CreatorID,
			&entry.CreatedTs,
			&entry.UpdatedTs,
			&entry.RowStatus,
			&entry.Title,
			&entry.Content,
			&blob,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		results = append(results, &store.EntryWithScore{
			Entry: &entry,
			Score: cosineSimilarity(opts.Vector, vector),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.CreatedTs > results[j].Entry.CreatedTs
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// KeywordSearch performs a case-insensitive LIKE scan, scoring by term hit
// ratio. Not BM25; good enough for the development driver.
func (d *DB) KeywordSearch(ctx context.Context, opts *store.KeywordSearchOptions) ([]*store.KeywordResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	terms := strings.Fields(strings.ToLower(opts.Query))
	if len(terms) == 0 {
		return []*store.KeywordResult{}, nil
	}

	query := `
		SELECT j.id, j.uid, j.creator_id, j.created_ts, j.updated_ts, j.row_status, j.title, j.content
		FROM journal_entry j
		WHERE j.creator_id = ?
			AND j.row_status = 'NORMAL'
	`

	rows, err := d.db.QueryContext(ctx, query, opts.CreatorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to keyword search")
	}
	defer rows.Close()

	results := []*store.KeywordResult{}
	for rows.Next() {
		var entry store.JournalEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UID,
			&entry.CreatorID,
			&entry.CreatedTs,
			&entry.UpdatedTs,
			&entry.RowStatus,
			&entry.Title,
			&entry.Content,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan keyword search result")
		}

		content := strings.ToLower(entry.Content)
		hits := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(terms))
		if score >= opts.MinScore {
			results = append(results, &store.KeywordResult{Entry: &entry, Score: score})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.UpdatedTs > results[j].Entry.UpdatedTs
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}
