package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// JournalEntry model related methods.
	CreateJournalEntry(ctx context.Context, create *JournalEntry) (*JournalEntry, error)
	ListJournalEntries(ctx context.Context, find *FindJournalEntry) ([]*JournalEntry, error)
	UpdateJournalEntry(ctx context.Context, update *UpdateJournalEntry) error
	CountJournalEntries(ctx context.Context, find *FindJournalEntry) (int, error)

	// EntryEmbedding model related methods.
	UpsertEntryEmbedding(ctx context.Context, embedding *EntryEmbedding) (*EntryEmbedding, error)
	ListEntryEmbeddings(ctx context.Context, find *FindEntryEmbedding) ([]*EntryEmbedding, error)
	DeleteEntryEmbedding(ctx context.Context, entryID int32) error
	FindEntriesWithoutEmbedding(ctx context.Context, find *FindEntriesWithoutEmbedding) ([]*JournalEntry, error)
	CountEntriesWithEmbedding(ctx context.Context, creatorID int32, model string) (int, error)
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*EntryWithScore, error)
	KeywordSearch(ctx context.Context, opts *KeywordSearchOptions) ([]*KeywordResult, error)

	// Comment model related methods.
	CreateComment(ctx context.Context, create *Comment) (*Comment, error)
	ListComments(ctx context.Context, find *FindComment) ([]*Comment, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
}
