package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
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

	vector := pgvector.NewVector(embedding.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		embedding.EntryID,
		vector,
		embedding.Model,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert entry embedding")
	}

	return embedding, nil
}

// ListEntryEmbeddings lists entry embeddings.
func (d *DB) ListEntryEmbeddings(ctx context.Context, find *store.FindEntryEmbedding) ([]*store.EntryEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.EntryID != nil {
		where, args = append(where, "entry_id = "+placeholder(len(args)+1)), append(args, *find.EntryID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
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
		var vector pgvector.Vector
		if err := rows.Scan(
			&embedding.ID,
			&embedding.EntryID,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan entry embedding")
		}
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteEntryEmbedding deletes the embeddings of an entry.
func (d *DB) DeleteEntryEmbedding(ctx context.Context, entryID int32) error {
	stmt := `DELETE FROM entry_embedding WHERE entry_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, entryID); err != nil {
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
		where, args = append(where, "j.creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}
	args = append(args, limit)

	query := `
		SELECT j.id, j.uid, j.creator_id, j.created_ts, j.updated_ts, j.row_status, j.title, j.content
		FROM journal_entry j
		LEFT JOIN entry_embedding e ON j.id = e.entry_id AND e.model = ` + placeholder(1) + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY j.created_ts DESC
		LIMIT ` + placeholder(len(args))

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
		INNER JOIN entry_embedding e ON j.id = e.entry_id AND e.model = ` + placeholder(1) + `
		WHERE j.creator_id = ` + placeholder(2) + `
			AND j.row_status = 'NORMAL'
	`

	var count int
	if err := d.db.QueryRowContext(ctx, query, model, creatorID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count entries with embedding")
	}
	return count, nil
}

// VectorSearch performs vector similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// ordering by distance ASC returns the most similar entries first.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.EntryWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			j.id, j.uid, j.creator_id, j.created_ts, j.updated_ts, j.row_status, j.title, j.content,
			1 - (e.embedding <=> ` + placeholder(1) + `) AS score
		FROM journal_entry j
		INNER JOIN entry_embedding e ON j.id = e.entry_id
		WHERE j.creator_id = ` + placeholder(2) + `
			AND j.row_status = 'NORMAL'
			AND e.model = ` + placeholder(3) + `
		ORDER BY e.embedding <=> ` + placeholder(4) + `
		LIMIT ` + placeholder(5)

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query,
		vector,
		opts.CreatorID,
		opts.Model,
		vector,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.EntryWithScore{}
	for rows.Next() {
		var result store.EntryWithScore
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
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		result.Entry = &entry
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// KeywordSearch performs full-text search using PostgreSQL's ts_vector ranking.
// The 'simple' text search configuration avoids language-specific stemming.
func (d *DB) KeywordSearch(ctx context.Context, opts *store.KeywordSearchOptions) ([]*store.KeywordResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			j.id, j.uid, j.creator_id, j.created_ts, j.updated_ts, j.row_status, j.title, j.content,
			ts_rank(to_tsvector('simple', COALESCE(j.content, '')), plainto_tsquery('simple', ` + placeholder(1) + `)) AS score
		FROM journal_entry j
		WHERE j.creator_id = ` + placeholder(2) + `
			AND j.row_status = 'NORMAL'
			AND to_tsvector('simple', COALESCE(j.content, '')) @@ plainto_tsquery('simple', ` + placeholder(3) + `)
		ORDER BY score DESC, j.updated_ts DESC
		LIMIT ` + placeholder(4)

	rows, err := d.db.QueryContext(ctx, query, opts.Query, opts.CreatorID, opts.Query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to keyword search")
	}
	defer rows.Close()

	results := []*store.KeywordResult{}
	for rows.Next() {
		var result store.KeywordResult
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
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan keyword search result")
		}
		result.Entry = &entry

		if result.Score >= opts.MinScore {
			results = append(results, &result)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
