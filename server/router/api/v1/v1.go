package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usevoxlog/voxlog/internal/profile"
	"github.com/usevoxlog/voxlog/plugin/ai"
	"github.com/usevoxlog/voxlog/plugin/email"
	apimw "github.com/usevoxlog/voxlog/server/middleware"
	"github.com/usevoxlog/voxlog/server/service/embedding"
	"github.com/usevoxlog/voxlog/server/service/search"
	"github.com/usevoxlog/voxlog/store"
)

// MailSender delivers comment notifications. *email.Sender implements it.
type MailSender interface {
	Enabled() bool
	Send(ctx context.Context, to, subject, body string) error
}

// APIV1Service serves the JSON API under /api.
type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	Processor      *embedding.Processor
	VectorSearcher *search.VectorSearcher
	HybridSearcher *search.HybridSearcher
	Conversational *search.Conversational
	EmailSender    MailSender

	// aiLimiter caps per-user calls to AI-backed endpoints, which fan out
	// to paid external APIs.
	aiLimiter *apimw.RateLimiter
}

// NewAPIV1Service wires the search and embedding services on top of the store.
// AI-backed services stay nil when the profile has AI disabled; the handlers
// answer 503 for those routes.
func NewAPIV1Service(secret string, prof *profile.Profile, st *store.Store) *APIV1Service {
	service := &APIV1Service{
		Secret:      secret,
		Profile:     prof,
		Store:       st,
		EmailSender: email.NewSender(email.NewConfigFromProfile(prof)),
		aiLimiter:   apimw.NewRateLimiter(5, 10),
	}

	if !prof.IsAIEnabled() {
		return service
	}
	aiConfig := ai.NewConfigFromProfile(prof)
	if err := aiConfig.Validate(); err != nil {
		slog.Warn("AI config invalid, search endpoints disabled", "error", err)
		return service
	}
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		slog.Warn("failed to initialize embedding service", "error", err)
		return service
	}
	var llm ai.LLMService
	if aiConfig.LLM.Provider != "" {
		if llm, err = ai.NewLLMService(&aiConfig.LLM); err != nil {
			slog.Warn("failed to initialize LLM service, conversational answers degraded", "error", err)
			llm = nil
		}
	}

	service.Processor = embedding.NewProcessor(st, embedder, aiConfig.Embedding.Model)
	service.VectorSearcher = search.NewVectorSearcher(st, embedder, aiConfig.Embedding.Model)
	service.HybridSearcher = search.NewHybridSearcher(service.VectorSearcher, st)
	service.Conversational = search.NewConversational(service.VectorSearcher, llm)
	return service
}

// RegisterRoutes mounts all authenticated API routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	apiGroup := e.Group("/api", s.authMiddleware)

	aiGroup := e.Group("/api", s.authMiddleware, s.rateLimitMiddleware)
	aiGroup.POST("/search/enhanced", s.EnhancedSearch)
	aiGroup.POST("/search/conversation", s.ConversationSearch)

	aiGroup.POST("/embeddings/process", s.ProcessEmbeddings)
	aiGroup.POST("/embeddings/queue/:entryId", s.QueueEntryEmbedding)
	aiGroup.GET("/embeddings/status", s.GetEmbeddingStatus)
	aiGroup.POST("/embeddings/process-all", s.ProcessAllEmbeddings)

	apiGroup.POST("/entries", s.CreateEntry)
	apiGroup.GET("/entries", s.ListEntries)
	apiGroup.GET("/entries/:uid", s.GetEntry)
	apiGroup.PATCH("/entries/:uid", s.UpdateEntry)

	apiGroup.POST("/entries/:uid/comments", s.CreateComment)
	apiGroup.GET("/entries/:uid/comments", s.ListComments)
}

// rateLimitMiddleware rejects callers that exceed the per-user rate limit
// on AI-backed endpoints.
func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.aiLimiter.AllowUser(userIDFromContext(c)) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded, slow down"})
		}
		return next(c)
	}
}

// aiAvailable guards AI-backed endpoints on instances without an API key.
func (s *APIV1Service) aiAvailable(c echo.Context) bool {
	if s.Processor == nil {
		_ = c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "AI features are not enabled on this instance"})
		return false
	}
	return true
}
