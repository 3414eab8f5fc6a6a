// handlers_upload.go - Contact file upload handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/recruit-dashboard/backend/internal/models"
	"github.com/recruit-dashboard/backend/internal/upload"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	sessionMgr SessionManager
	limits     upload.Limits
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(sessionMgr SessionManager, limits upload.Limits) UploadHandler {
	return &UploadHandlerImpl{
		sessionMgr: sessionMgr,
		limits:     limits,
	}
}

// HandleUploadFile accepts a multipart CSV upload and builds a dashboard
// session from it. A sessionId form value replaces that session's data.
func (h *UploadHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError("file")
	}
	if h.limits.MaxBytes > 0 && file.Size > h.limits.MaxBytes {
		return NewPayloadTooLargeError(upload.ErrTooLarge)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	payload, err := upload.ReadPayload(file.Filename, src, h.limits)
	if err != nil {
		return uploadError(err)
	}

	return h.load(c, c.FormValue("sessionId"), payload)
}

// HandleUploadBase64 accepts a file as base64 JSON
func (h *UploadHandlerImpl) HandleUploadBase64(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	payload, err := upload.DecodeBase64(req.Name, req.Data, h.limits)
	if err != nil {
		return uploadError(err)
	}

	return h.load(c, req.SessionID, payload)
}

func (h *UploadHandlerImpl) load(c echo.Context, sessionID string, payload *upload.Payload) error {
	ctx := c.Request().Context()

	var sess *models.DashboardSession
	var err error
	if sessionID != "" {
		sess, err = h.sessionMgr.Replace(ctx, sessionID, payload)
	} else {
		sess, err = h.sessionMgr.Load(ctx, payload)
	}
	if err != nil {
		return sessionError(err, sessionID)
	}

	return c.JSON(http.StatusCreated, sess)
}

func uploadError(err error) error {
	if apiErr := toAPIError(err); apiErr != nil {
		return apiErr
	}
	return NewBadRequestError("invalid upload", err)
}

// Request/Response types

type uploadFileRequest struct {
	Name      string `json:"name"`
	Data      string `json:"data"` // Base64-encoded content
	SessionID string `json:"sessionId,omitempty"`
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}
