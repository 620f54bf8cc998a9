package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/usevoxlog/voxlog/server/service/embedding"
	"github.com/usevoxlog/voxlog/store"
)

const maxBatchLimit = 100

// ProcessEmbeddingsRequest is the optional body of POST /api/embeddings/process.
type ProcessEmbeddingsRequest struct {
	BatchLimit *int `json:"batchLimit"`
}

// ProcessEmbeddingsResponse reports one incremental batch.
type ProcessEmbeddingsResponse struct {
	Message   string `json:"message"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// QueueEntryResponse acknowledges an accepted queue request.
type QueueEntryResponse struct {
	Message string `json:"message"`
	EntryID int32  `json:"entryId"`
}

// ProcessAllResponse reports one full historical run for a user.
type ProcessAllResponse struct {
	Message string `json:"message"`
	UserID  int32  `json:"userId"`
	*embedding.HistoricalReport
}

// ProcessEmbeddings handles POST /api/embeddings/process. It embeds up to
// batchLimit of the caller's entries that are still missing an embedding.
func (s *APIV1Service) ProcessEmbeddings(c echo.Context) error {
	if !s.aiAvailable(c) {
		return nil
	}
	request := &ProcessEmbeddingsRequest{}
	// The body is optional; an empty body keeps the default batch limit.
	if err := c.Bind(request); err != nil {
		return validationError(c, FieldError{Field: "body", Error: "malformed JSON body"})
	}
	batchLimit := 0
	if request.BatchLimit != nil {
		if *request.BatchLimit < 1 || *request.BatchLimit > maxBatchLimit {
			return validationError(c, FieldError{Field: "batchLimit", Error: "batchLimit must be between 1 and 100"})
		}
		batchLimit = *request.BatchLimit
	}

	report, err := s.Processor.ProcessMissingEmbeddings(c.Request().Context(), userIDFromContext(c), batchLimit)
	if err != nil {
		slog.Error("failed to process missing embeddings", "error", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, ProcessEmbeddingsResponse{
		Message:   "embedding batch processed",
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	})
}

// QueueEntryEmbedding handles POST /api/embeddings/queue/:entryId. The entry
// must exist and belong to the caller; otherwise the handler answers 404
// without revealing whether the entry exists at all.
func (s *APIV1Service) QueueEntryEmbedding(c echo.Context) error {
	if !s.aiAvailable(c) {
		return nil
	}
	entryID64, err := strconv.ParseInt(c.Param("entryId"), 10, 32)
	if err != nil {
		return validationError(c, FieldError{Field: "entryId", Error: "entryId must be an integer"})
	}
	entryID := int32(entryID64)
	userID := userIDFromContext(c)

	entry, err := s.Store.GetJournalEntry(c.Request().Context(), &store.FindJournalEntry{
		ID:        &entryID,
		CreatorID: &userID,
	})
	if err != nil {
		slog.Error("failed to look up entry for queueing", "entryID", entryID, "error", err)
		return internalError(c)
	}
	if entry == nil {
		return notFound(c, "entry not found")
	}

	s.Processor.QueueEntry(entryID)
	return c.JSON(http.StatusOK, QueueEntryResponse{
		Message: "entry queued for embedding",
		EntryID: entryID,
	})
}

// GetEmbeddingStatus handles GET /api/embeddings/status.
func (s *APIV1Service) GetEmbeddingStatus(c echo.Context) error {
	if !s.aiAvailable(c) {
		return nil
	}
	status, err := s.Processor.Status(c.Request().Context(), userIDFromContext(c))
	if err != nil {
		slog.Error("failed to compute embedding status", "error", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, status)
}

// ProcessAllEmbeddings handles POST /api/embeddings/process-all. The run is
// idempotent: entries that already have an embedding for the active model are
// counted as skipped.
func (s *APIV1Service) ProcessAllEmbeddings(c echo.Context) error {
	if !s.aiAvailable(c) {
		return nil
	}
	userID := userIDFromContext(c)
	report, err := s.Processor.ProcessAllHistoricalEntries(c.Request().Context(), userID)
	if err != nil {
		slog.Error("failed to process historical entries", "error", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, ProcessAllResponse{
		Message:          "historical entries processed",
		UserID:           userID,
		HistoricalReport: report,
	})
}
