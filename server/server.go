package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/olivesarenice/telegram-rag/internal/profile"
	"github.com/olivesarenice/telegram-rag/server/internal/observability"
	"github.com/olivesarenice/telegram-rag/server/middleware"
	apiv1 "github.com/olivesarenice/telegram-rag/server/router/api/v1"
	"github.com/olivesarenice/telegram-rag/server/runner/liveness"
	"github.com/olivesarenice/telegram-rag/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer        *echo.Echo
	runnerCancelFuncs []context.CancelFunc
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
	}

	pipeline, err := NewPipeline(profile, store)
	if err != nil {
		return nil, err
	}
	apiV1Service := apiv1.NewAPIV1Service(profile, store, pipeline.Enricher, pipeline.Retriever, pipeline.Synthesizer)

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.ErrorHandler
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: observability.GenerateRequestID,
	}))
	echoServer.Use(middleware.RequestLogger(slog.Default(), apiV1Service.Metrics))
	echoServer.Use(middleware.NewRateLimiter(0, 0).Middleware())
	s.echoServer = echoServer

	if pipeline.Pages != "" {
		echoServer.Static("/pages", pipeline.Pages)
	}

	allowlist := middleware.NewAllowlist(profile.AllowedChatHashes, profile.AllowedUsername)
	if !allowlist.Enabled() {
		slog.Warn("no allowed chat hashes configured, every caller is accepted")
	}
	apiGroup := echoServer.Group("")
	apiGroup.Use(exceptReads(allowlist.Middleware()))
	apiV1Service.RegisterRoutes(apiGroup)

	return s, nil
}

// exceptReads applies mw to every request except GET, which only serves status.
func exceptReads(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := mw(next)
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodGet {
				return next(c)
			}
			return guarded(c)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	s.StartBackgroundRunners(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	for _, cancelFunc := range s.runnerCancelFuncs {
		cancelFunc()
	}

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("server stopped properly")
}

func (s *Server) StartBackgroundRunners(ctx context.Context) {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancelFuncs = append(s.runnerCancelFuncs, cancel)

	interval := time.Duration(s.Profile.LivenessSeconds) * time.Second
	livenessRunner := liveness.NewRunner(s.Store, interval)
	go livenessRunner.Run(runnerCtx)

	slog.Info("background runners started", "liveness_interval", interval.String())
}
