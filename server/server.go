package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/internal/profile"
	apiv1 "github.com/usevoxlog/voxlog/server/router/api/v1"
	embeddingrunner "github.com/usevoxlog/voxlog/server/runner/embedding"
	"github.com/usevoxlog/voxlog/store"
)

// Server bundles the HTTP listener and the background embedding runner.
type Server struct {
	Secret string

	profile    *profile.Profile
	store      *store.Store
	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Secret:  profile.Secret,
		profile: profile,
		store:   store,
	}

	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:        true,
		LogStatus:     true,
		LogMethod:     true,
		LogLatency:    true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))
	s.echoServer = echoServer

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiService := apiv1.NewAPIV1Service(s.Secret, profile, store)
	apiService.RegisterRoutes(echoServer)
	s.apiService = apiService

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	s.StartBackgroundRunners(ctx)

	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "address", address, "mode", s.profile.Mode, "version", s.profile.Version)
	return s.echoServer.Start(address)
}

// StartBackgroundRunners launches the embedding runner when AI is configured.
func (s *Server) StartBackgroundRunners(ctx context.Context) {
	if s.apiService.Processor == nil {
		slog.Info("embedding runner disabled, AI is not configured")
		return
	}
	runner := embeddingrunner.NewRunner(s.apiService.Processor)
	go runner.Run(ctx)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("voxlog stopped properly")
}

// GetEcho exposes the echo instance for tests.
func (s *Server) GetEcho() *echo.Echo {
	return s.echoServer
}
