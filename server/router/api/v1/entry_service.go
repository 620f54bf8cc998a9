package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/usevoxlog/voxlog/store"
)

const (
	maxContentLength = 64 * 1024

	defaultListLimit = 20
	maxListLimit     = 100
)

// CreateEntryRequest is the body of POST /api/entries.
type CreateEntryRequest struct {
	Title   *string `json:"title"`
	Content string  `json:"content"`
}

// UpdateEntryRequest is the body of PATCH /api/entries/:uid. Nil fields are
// left untouched; an empty title clears it.
type UpdateEntryRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Entry is the API representation of a journal entry.
type Entry struct {
	UID       string  `json:"uid"`
	Title     *string `json:"title,omitempty"`
	Content   string  `json:"content"`
	CreatedTs int64   `json:"createdTs"`
	UpdatedTs int64   `json:"updatedTs"`
}

// ListEntriesResponse is the body of GET /api/entries.
type ListEntriesResponse struct {
	Entries []*Entry `json:"entries"`
	Total   int      `json:"total"`
}

func convertEntry(entry *store.JournalEntry) *Entry {
	return &Entry{
		UID:       entry.UID,
		Title:     entry.Title,
		Content:   entry.Content,
		CreatedTs: entry.CreatedTs,
		UpdatedTs: entry.UpdatedTs,
	}
}

func validateContent(content string) *FieldError {
	if content == "" {
		return &FieldError{Field: "content", Error: "content is required"}
	}
	if len(content) > maxContentLength {
		return &FieldError{Field: "content", Error: "content exceeds 64KB"}
	}
	if !utf8.ValidString(content) {
		return &FieldError{Field: "content", Error: "content must be valid UTF-8"}
	}
	return nil
}

// CreateEntry handles POST /api/entries. New entries are queued for embedding
// right away so they become searchable without waiting for the next sweep.
func (s *APIV1Service) CreateEntry(c echo.Context) error {
	request := &CreateEntryRequest{}
	if err := c.Bind(request); err != nil {
		return validationError(c, FieldError{Field: "body", Error: "malformed JSON body"})
	}
	if fieldErr := validateContent(request.Content); fieldErr != nil {
		return validationError(c, *fieldErr)
	}

	entry, err := s.Store.CreateJournalEntry(c.Request().Context(), &store.JournalEntry{
		CreatorID: userIDFromContext(c),
		RowStatus: store.Normal,
		Title:     request.Title,
		Content:   request.Content,
	})
	if err != nil {
		slog.Error("failed to create entry", "error", err)
		return internalError(c)
	}
	if s.Processor != nil {
		s.Processor.QueueEntry(entry.ID)
	}
	return c.JSON(http.StatusCreated, convertEntry(entry))
}

// ListEntries handles GET /api/entries.
func (s *APIV1Service) ListEntries(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxListLimit {
			return validationError(c, FieldError{Field: "limit", Error: "limit must be between 1 and 100"})
		}
		limit = v
	}
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return validationError(c, FieldError{Field: "offset", Error: "offset must be a non-negative integer"})
		}
		offset = v
	}

	ctx := c.Request().Context()
	userID := userIDFromContext(c)
	rowStatus := store.Normal
	find := &store.FindJournalEntry{
		CreatorID: &userID,
		RowStatus: &rowStatus,
		Limit:     &limit,
		Offset:    &offset,
	}
	entries, err := s.Store.ListJournalEntries(ctx, find)
	if err != nil {
		slog.Error("failed to list entries", "error", err)
		return internalError(c)
	}
	total, err := s.Store.CountJournalEntries(ctx, &store.FindJournalEntry{CreatorID: &userID, RowStatus: &rowStatus})
	if err != nil {
		slog.Error("failed to count entries", "error", err)
		return internalError(c)
	}

	response := &ListEntriesResponse{Entries: []*Entry{}, Total: total}
	for _, entry := range entries {
		response.Entries = append(response.Entries, convertEntry(entry))
	}
	return c.JSON(http.StatusOK, response)
}

// GetEntry handles GET /api/entries/:uid.
func (s *APIV1Service) GetEntry(c echo.Context) error {
	entry, done, err := s.findOwnEntry(c)
	if done {
		return err
	}
	return c.JSON(http.StatusOK, convertEntry(entry))
}

// UpdateEntry handles PATCH /api/entries/:uid. A content change re-queues the
// entry so its embedding catches up with the new text.
func (s *APIV1Service) UpdateEntry(c echo.Context) error {
	request := &UpdateEntryRequest{}
	if err := c.Bind(request); err != nil {
		return validationError(c, FieldError{Field: "body", Error: "malformed JSON body"})
	}
	if request.Title == nil && request.Content == nil {
		return validationError(c, FieldError{Field: "body", Error: "nothing to update"})
	}
	if request.Content != nil {
		if fieldErr := validateContent(*request.Content); fieldErr != nil {
			return validationError(c, *fieldErr)
		}
	}

	entry, done, err := s.findOwnEntry(c)
	if done {
		return err
	}

	ctx := c.Request().Context()
	updatedTs := time.Now().Unix()
	update := &store.UpdateJournalEntry{
		ID:        entry.ID,
		UpdatedTs: &updatedTs,
		Title:     request.Title,
		Content:   request.Content,
	}
	if err := s.Store.UpdateJournalEntry(ctx, update); err != nil {
		slog.Error("failed to update entry", "uid", entry.UID, "error", err)
		return internalError(c)
	}
	if request.Content != nil && s.Processor != nil {
		s.Processor.QueueEntry(entry.ID)
	}

	updated, err := s.Store.GetJournalEntry(ctx, &store.FindJournalEntry{ID: &entry.ID})
	if err != nil || updated == nil {
		slog.Error("failed to reload updated entry", "uid", entry.UID, "error", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, convertEntry(updated))
}

// findOwnEntry resolves :uid to an entry owned by the caller. When the entry
// is absent, owned by someone else, or the lookup fails, it writes the
// response itself and reports done=true.
func (s *APIV1Service) findOwnEntry(c echo.Context) (entry *store.JournalEntry, done bool, err error) {
	uid := c.Param("uid")
	if uid == "" {
		return nil, true, validationError(c, FieldError{Field: "uid", Error: "uid is required"})
	}
	userID := userIDFromContext(c)
	entry, lookupErr := s.Store.GetJournalEntry(c.Request().Context(), &store.FindJournalEntry{
		UID:       &uid,
		CreatorID: &userID,
	})
	if lookupErr != nil {
		slog.Error("failed to fetch entry", "uid", uid, "error", lookupErr)
		return nil, true, internalError(c)
	}
	if entry == nil {
		return nil, true, notFound(c, "entry not found")
	}
	return entry, false, nil
}
