package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usevoxlog/voxlog/store"
)

func TestJournalEntryStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	user, err := createTestingUser(ctx, ts, "writer")
	require.NoError(t, err)

	title := "First day"
	entry, err := ts.CreateJournalEntry(ctx, &store.JournalEntry{
		CreatorID: user.ID,
		RowStatus: store.Normal,
		Title:     &title,
		Content:   "Started keeping a voice journal today.",
	})
	require.NoError(t, err)
	require.Greater(t, entry.ID, int32(0))
	require.NotEmpty(t, entry.UID)

	// Empty content is rejected before reaching the driver.
	_, err = ts.CreateJournalEntry(ctx, &store.JournalEntry{CreatorID: user.ID, RowStatus: store.Normal})
	require.Error(t, err)

	found, err := ts.GetJournalEntry(ctx, &store.FindJournalEntry{UID: &entry.UID})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, entry.ID, found.ID)
	require.NotNil(t, found.Title)
	require.Equal(t, title, *found.Title)

	newContent := "Started keeping a voice journal today. It felt strange but good."
	updatedTs := found.UpdatedTs + 10
	err = ts.UpdateJournalEntry(ctx, &store.UpdateJournalEntry{
		ID:        entry.ID,
		Content:   &newContent,
		UpdatedTs: &updatedTs,
	})
	require.NoError(t, err)

	updated, err := ts.GetJournalEntry(ctx, &store.FindJournalEntry{ID: &entry.ID})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, newContent, updated.Content)
	require.Equal(t, updatedTs, updated.UpdatedTs)

	// An empty title nulls the column out.
	emptyTitle := ""
	err = ts.UpdateJournalEntry(ctx, &store.UpdateJournalEntry{
		ID:    entry.ID,
		Title: &emptyTitle,
	})
	require.NoError(t, err)
	cleared, err := ts.GetJournalEntry(ctx, &store.FindJournalEntry{ID: &entry.ID})
	require.NoError(t, err)
	require.NotNil(t, cleared)
	require.Nil(t, cleared.Title)

	count, err := ts.CountJournalEntries(ctx, &store.FindJournalEntry{CreatorID: &user.ID})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Archived entries drop out of NORMAL-scoped listings.
	archived := store.Archived
	err = ts.UpdateJournalEntry(ctx, &store.UpdateJournalEntry{ID: entry.ID, RowStatus: &archived})
	require.NoError(t, err)

	normal := store.Normal
	list, err := ts.ListJournalEntries(ctx, &store.FindJournalEntry{CreatorID: &user.ID, RowStatus: &normal})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCommentStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	owner, err := createTestingUser(ctx, ts, "owner")
	require.NoError(t, err)
	visitor, err := createTestingUser(ctx, ts, "visitor")
	require.NoError(t, err)

	entry, err := ts.CreateJournalEntry(ctx, &store.JournalEntry{
		CreatorID: owner.ID,
		RowStatus: store.Normal,
		Content:   "A quiet evening by the lake.",
	})
	require.NoError(t, err)

	comment, err := ts.CreateComment(ctx, &store.Comment{
		EntryID:   entry.ID,
		CreatorID: visitor.ID,
		Content:   "Sounds peaceful.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, comment.UID)

	list, err := ts.ListComments(ctx, &store.FindComment{EntryID: &entry.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Sounds peaceful.", list[0].Content)
	require.Equal(t, visitor.ID, list[0].CreatorID)
}
