package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/usevoxlog/voxlog/plugin/ai"
	"github.com/usevoxlog/voxlog/server/service/search"
)

const (
	searchModeVector         = "vector"
	searchModeConversational = "conversational"
	searchModeHybrid         = "hybrid"

	defaultSearchLimit     = 10
	maxSearchLimit         = 50
	defaultSearchThreshold = float32(0.3)
)

// EnhancedSearchRequest is the body of POST /api/search/enhanced.
type EnhancedSearchRequest struct {
	Query     string   `json:"query"`
	Mode      string   `json:"mode"`
	Limit     *int     `json:"limit"`
	Threshold *float32 `json:"threshold"`
	Strategy  string   `json:"strategy"`
}

// EnhancedSearchResponse carries ranked results for vector and hybrid modes,
// or the synthesized answer for conversational mode.
type EnhancedSearchResponse struct {
	Mode            string           `json:"mode"`
	Results         []*search.Result `json:"results,omitempty"`
	Answer          *search.Answer   `json:"answer,omitempty"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
}

// ConversationSearchRequest is the body of POST /api/search/conversation.
type ConversationSearchRequest struct {
	Query            string       `json:"query"`
	PreviousMessages []ai.Message `json:"previousMessages"`
}

// ConversationSearchResponse wraps the answer with request timing.
type ConversationSearchResponse struct {
	*search.Answer
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// EnhancedSearch handles POST /api/search/enhanced.
func (s *APIV1Service) EnhancedSearch(c echo.Context) error {
	if !s.aiAvailable(c) {
		return nil
	}
	request := &EnhancedSearchRequest{}
	if err := c.Bind(request); err != nil {
		return validationError(c, FieldError{Field: "body", Error: "malformed JSON body"})
	}

	var errs []FieldError
	if request.Query == "" {
		errs = append(errs, FieldError{Field: "query", Error: "query is required"})
	}
	mode := request.Mode
	if mode == "" {
		mode = searchModeVector
	}
	if mode != searchModeVector && mode != searchModeConversational && mode != searchModeHybrid {
		errs = append(errs, FieldError{Field: "mode", Error: "mode must be one of vector, conversational, hybrid"})
	}
	limit := defaultSearchLimit
	if request.Limit != nil {
		if *request.Limit < 1 || *request.Limit > maxSearchLimit {
			errs = append(errs, FieldError{Field: "limit", Error: "limit must be between 1 and 50"})
		} else {
			limit = *request.Limit
		}
	}
	threshold := defaultSearchThreshold
	if request.Threshold != nil {
		if *request.Threshold < 0 || *request.Threshold > 1 {
			errs = append(errs, FieldError{Field: "threshold", Error: "threshold must be between 0 and 1"})
		} else {
			threshold = *request.Threshold
		}
	}
	if len(errs) > 0 {
		return validationError(c, errs...)
	}

	ctx := c.Request().Context()
	userID := userIDFromContext(c)
	start := time.Now()
	response := &EnhancedSearchResponse{Mode: mode}

	switch mode {
	case searchModeVector:
		results, err := s.VectorSearcher.Search(ctx, request.Query, userID, limit, threshold)
		if err != nil {
			slog.Error("vector search failed", "error", err)
			return internalError(c)
		}
		response.Results = results
	case searchModeHybrid:
		results, err := s.HybridSearcher.Search(ctx, request.Query, userID, limit, search.Strategy(request.Strategy))
		if err != nil {
			slog.Error("hybrid search failed", "error", err)
			return internalError(c)
		}
		response.Results = results
	case searchModeConversational:
		answer, err := s.Conversational.Answer(ctx, request.Query, userID, nil)
		if err != nil {
			slog.Error("conversational search failed", "error", err)
			return internalError(c)
		}
		response.Answer = answer
	}

	response.ExecutionTimeMs = time.Since(start).Milliseconds()
	return c.JSON(http.StatusOK, response)
}

// ConversationSearch handles POST /api/search/conversation.
func (s *APIV1Service) ConversationSearch(c echo.Context) error {
	if !s.aiAvailable(c) {
		return nil
	}
	request := &ConversationSearchRequest{}
	if err := c.Bind(request); err != nil {
		return validationError(c, FieldError{Field: "body", Error: "malformed JSON body"})
	}
	if request.Query == "" {
		return validationError(c, FieldError{Field: "query", Error: "query is required"})
	}

	start := time.Now()
	answer, err := s.Conversational.Answer(c.Request().Context(), request.Query, userIDFromContext(c), request.PreviousMessages)
	if err != nil {
		slog.Error("conversational search failed", "error", err)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, ConversationSearchResponse{
		Answer:          answer,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	})
}
