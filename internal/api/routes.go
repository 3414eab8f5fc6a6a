// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/recruit-dashboard/backend/internal/logging"
	"github.com/recruit-dashboard/backend/internal/upload"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr SessionManager
	Limits     upload.Limits
	TopN       int
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Upload  UploadHandler
	Session SessionHandler
	Chart   ChartHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.SessionMgr),
		Upload:  NewUploadHandler(deps.SessionMgr, deps.Limits),
		Session: NewSessionHandler(deps.SessionMgr),
		Chart:   NewChartHandler(deps.SessionMgr, deps.TopN),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Uploads
	apiGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	apiGroup.POST("/upload/base64", handlers.Upload.HandleUploadBase64)

	// Dashboard sessions
	sessionGroup := apiGroup.Group("/sessions/:sessionId")
	sessionGroup.GET("", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("", handlers.Session.HandleDeleteSession)
	sessionGroup.POST("/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.GET("/rows", handlers.Session.HandleGetRows)
	sessionGroup.GET("/rows/msgpack", handlers.Session.HandleGetRowsMsgpack)
	sessionGroup.GET("/recruiters", handlers.Session.HandleGetRecruiters)
	sessionGroup.GET("/filter", handlers.Session.HandleFilterByRecruiter)
	sessionGroup.GET("/download", handlers.Session.HandleDownload)

	// Charts
	sessionGroup.GET("/charts/recruiters", handlers.Chart.HandleRecruiterChart)
	sessionGroup.GET("/charts/groups", handlers.Chart.HandleGroupChart)
	sessionGroup.GET("/charts/top-recruiters", handlers.Chart.HandleTopRecruiterChart)
}

// MiddlewareOptions tunes SetupMiddleware.
type MiddlewareOptions struct {
	Logger         *zap.Logger
	Development    bool
	RequestLogging bool
	BodyLimit      string   // echo size string, e.g. "64M"; empty disables
	AllowOrigins   []string // empty disables CORS
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(logger, opts.Development)

	e.Use(middleware.RequestID())

	if opts.RequestLogging {
		e.Use(logging.RequestLogger(logger, func(path string) bool {
			return path == "/api/health" || strings.HasSuffix(path, "/keepalive")
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if len(opts.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
		}))
	}
}
