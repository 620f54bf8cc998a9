package store

import (
	"context"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// RowStatus is the status of a row.
type RowStatus string

const (
	// Normal is the status for a normal row.
	Normal RowStatus = "NORMAL"
	// Archived is the status for an archived row.
	Archived RowStatus = "ARCHIVED"
)

// JournalEntry is a single journal entry owned by a user.
type JournalEntry struct {
	ID int32

	// Standard fields
	UID       string
	CreatorID int32
	CreatedTs int64
	UpdatedTs int64
	RowStatus RowStatus

	// Domain specific fields
	Title   *string
	Content string
}

// FindJournalEntry is the find condition for journal entries.
type FindJournalEntry struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	RowStatus *RowStatus

	Limit  *int
	Offset *int
}

// UpdateJournalEntry is the update descriptor for a journal entry.
type UpdateJournalEntry struct {
	ID        int32
	UpdatedTs *int64
	RowStatus *RowStatus
	Title     *string
	Content   *string
}

func (s *Store) CreateJournalEntry(ctx context.Context, create *JournalEntry) (*JournalEntry, error) {
	if create.Content == "" {
		return nil, errors.New("entry content cannot be empty")
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	return s.driver.CreateJournalEntry(ctx, create)
}

func (s *Store) ListJournalEntries(ctx context.Context, find *FindJournalEntry) ([]*JournalEntry, error) {
	return s.driver.ListJournalEntries(ctx, find)
}

// GetJournalEntry returns the first entry matching the find condition, or nil.
func (s *Store) GetJournalEntry(ctx context.Context, find *FindJournalEntry) (*JournalEntry, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListJournalEntries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateJournalEntry(ctx context.Context, update *UpdateJournalEntry) error {
	return s.driver.UpdateJournalEntry(ctx, update)
}

func (s *Store) CountJournalEntries(ctx context.Context, find *FindJournalEntry) (int, error) {
	return s.driver.CountJournalEntries(ctx, find)
}
