package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Comment is a comment on a journal entry.
type Comment struct {
	ID        int32
	UID       string
	EntryID   int32
	CreatorID int32
	CreatedTs int64
	Content   string
}

// FindComment is the find condition for comments.
type FindComment struct {
	ID        *int32
	UID       *string
	EntryID   *int32
	CreatorID *int32
	Limit     *int
}

func (s *Store) CreateComment(ctx context.Context, create *Comment) (*Comment, error) {
	if create.Content == "" {
		return nil, errors.New("comment content cannot be empty")
	}
	if create.UID == "" {
		create.UID = uuid.NewString()
	}
	return s.driver.CreateComment(ctx, create)
}

func (s *Store) ListComments(ctx context.Context, find *FindComment) ([]*Comment, error) {
	return s.driver.ListComments(ctx, find)
}
