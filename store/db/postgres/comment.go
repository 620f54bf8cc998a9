package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/store"
)

func (d *DB) CreateComment(ctx context.Context, create *store.Comment) (*store.Comment, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO comment (uid, entry_id, creator_id, created_ts, content)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.EntryID,
		create.CreatorID,
		create.CreatedTs,
		create.Content,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create comment")
	}

	return create, nil
}

func (d *DB) ListComments(ctx context.Context, find *store.FindComment) ([]*store.Comment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.EntryID != nil {
		where, args = append(where, "entry_id = "+placeholder(len(args)+1)), append(args, *find.EntryID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *find.CreatorID)
	}

	query := `
		SELECT id, uid, entry_id, creator_id, created_ts, content
		FROM comment
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}
	defer rows.Close()

	list := []*store.Comment{}
	for rows.Next() {
		var comment store.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.UID,
			&comment.EntryID,
			&comment.CreatorID,
			&comment.CreatedTs,
			&comment.Content,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan comment")
		}
		list = append(list, &comment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
