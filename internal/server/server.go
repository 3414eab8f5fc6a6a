// Package server assembles the dashboard HTTP server from an AppConfig.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/recruit-dashboard/backend/internal/api"
	"github.com/recruit-dashboard/backend/internal/config"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/session"
	"github.com/recruit-dashboard/backend/internal/upload"
	"github.com/recruit-dashboard/backend/internal/web"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server owns the session manager and the echo instance serving it.
type Server struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	sessions *session.Manager
	echo     *echo.Echo
	http     *http.Server

	closeOnce sync.Once
}

// New wires config, schema, sessions, API routes and the embedded page.
func New(cfg *config.AppConfig, logger *zap.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := contacts.LoadSchema(cfg.Dashboard.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load column schema: %w", err)
	}

	sessions := session.NewManager(session.Options{
		MaxSessions:     cfg.Sessions.MaxSessions,
		KeepAliveWindow: cfg.KeepAliveWindow(),
		Schema:          schema,
		Store: contacts.StoreOptions{
			Threads:       cfg.Advanced.DuckDBThreads,
			MemoryLimit:   cfg.Advanced.DuckDBMemoryLimit,
			MaxConcurrent: cfg.Advanced.MaxConcurrentQueries,
			TempDirectory: cfg.GetDataDir(),
		},
		Logger: logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		Logger:         logger,
		Development:    cfg.Advanced.DevelopmentLogging,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		BodyLimit:      cfg.Server.BodyLimit,
		AllowOrigins:   cfg.GetAllowOrigins(),
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		SessionMgr: sessions,
		Limits:     UploadLimits(cfg),
		TopN:       cfg.Dashboard.TopN,
		Version:    version,
	}))

	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			sessions.Close()
			return nil, fmt.Errorf("failed to register static routes: %w", err)
		}
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		echo:     e,
		http: &http.Server{
			Addr:         cfg.GetServerAddr(),
			Handler:      e,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		},
	}, nil
}

// UploadLimits converts the configured megabyte limits.
func UploadLimits(cfg *config.AppConfig) upload.Limits {
	return upload.Limits{
		MaxBytes:             int64(cfg.Upload.MaxUploadSizeMB) << 20,
		MaxDecompressedBytes: int64(cfg.Upload.MaxDecompressedSizeMB) << 20,
		AllowedTypes:         cfg.GetAllowedFileTypes(),
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully. Idle
// sessions are swept in the background for as long as Run is active.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.sessions.RunCleanup(cleanupCtx, s.cfg.CleanupInterval(), s.cfg.SessionTimeout())
	}()
	defer func() {
		stopCleanup()
		wg.Wait()
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases every session. Safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(s.sessions.Close)
}
