// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/models"
	"github.com/recruit-dashboard/backend/internal/upload"
)

// UploadHandler handles contact file uploads
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadBase64(c echo.Context) error
}

// SessionHandler handles dashboard session lifecycle and row browsing
type SessionHandler interface {
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleGetRows(c echo.Context) error
	HandleGetRowsMsgpack(c echo.Context) error
	HandleGetRecruiters(c echo.Context) error
	HandleFilterByRecruiter(c echo.Context) error
	HandleDownload(c echo.Context) error
}

// ChartHandler handles the dashboard's bar charts
type ChartHandler interface {
	HandleRecruiterChart(c echo.Context) error
	HandleGroupChart(c echo.Context) error
	HandleTopRecruiterChart(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Load(ctx context.Context, p *upload.Payload) (*models.DashboardSession, error)
	Replace(ctx context.Context, id string, p *upload.Payload) (*models.DashboardSession, error)
	Get(id string) (*models.DashboardSession, error)
	Touch(id string) error
	Delete(id string) error
	Count() int
	Schema() contacts.Schema
	RecruiterCounts(id string) (contacts.GroupCount, error)
	GroupCounts(id string) (contacts.GroupCount, error)
	TopRecruiters(id string, n int) (contacts.GroupCount, error)
	Recruiters(id string) ([]string, error)
	FilterByRecruiter(id, recruiter string) (*contacts.Table, error)
	QueryRows(ctx context.Context, id string, q contacts.RowQuery, page, pageSize int) (contacts.RowPage, error)
	CountRows(ctx context.Context, id string, q contacts.RowQuery, column string) (contacts.GroupCount, error)
	ExportDeduped(id string, w io.Writer) error
}
