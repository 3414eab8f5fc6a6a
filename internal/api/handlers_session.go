// handlers_session.go - Dashboard session and row table handlers
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

// HandleGetSession returns a session's file info and summary of insights
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, err := h.sessionMgr.Get(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession discards a session and its tables
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if err := h.sessionMgr.Delete(id); err != nil {
		return sessionError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive resets a session's idle timer
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if err := h.sessionMgr.Touch(id); err != nil {
		return sessionError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetRows returns one page of the original or deduplicated table
func (h *SessionHandlerImpl) HandleGetRows(c echo.Context) error {
	result, err := h.queryRows(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// HandleGetRowsMsgpack returns the same page as HandleGetRows in MessagePack format
func (h *SessionHandlerImpl) HandleGetRowsMsgpack(c echo.Context) error {
	result, err := h.queryRows(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(result)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *SessionHandlerImpl) queryRows(c echo.Context) (contacts.RowPage, error) {
	id := c.Param("sessionId")
	if id == "" {
		return contacts.RowPage{}, NewValidationError("sessionId")
	}

	view, err := contacts.ParseView(c.QueryParam("view"))
	if err != nil {
		return contacts.RowPage{}, NewValidationError("view")
	}
	page, err := intParam(c, "page", 1)
	if err != nil || page < 1 {
		return contacts.RowPage{}, NewValidationError("page")
	}
	pageSize, err := intParam(c, "pageSize", defaultPageSize)
	if err != nil || pageSize < 1 {
		return contacts.RowPage{}, NewValidationError("pageSize")
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q, _ := rowQuery(c, h.sessionMgr.Schema(), view)
	result, err := h.sessionMgr.QueryRows(c.Request().Context(), id, q, page, pageSize)
	if err != nil {
		return contacts.RowPage{}, sessionError(err, id)
	}
	return result, nil
}

// rowQuery reads the search, recruiter and group query params. narrowed
// reports whether any of them was given.
func rowQuery(c echo.Context, schema contacts.Schema, view contacts.View) (contacts.RowQuery, bool) {
	params := c.QueryParams()
	q := contacts.RowQuery{
		View:    view,
		Search:  params.Get("search"),
		Filters: map[string]string{},
	}
	if params.Has("recruiter") {
		q.Filters[schema.Recruiter] = params.Get("recruiter")
	}
	if params.Has("group") {
		q.Filters[schema.GroupName] = params.Get("group")
	}
	narrowed := strings.TrimSpace(q.Search) != "" || len(q.Filters) > 0
	return q, narrowed
}

// HandleGetRecruiters lists the recruiters offered by the sidebar filter
func (h *SessionHandlerImpl) HandleGetRecruiters(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	recruiters, err := h.sessionMgr.Recruiters(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, recruiters)
}

// HandleFilterByRecruiter returns every uploaded row for one recruiter
func (h *SessionHandlerImpl) HandleFilterByRecruiter(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	if !c.QueryParams().Has("recruiter") {
		return NewValidationError("recruiter")
	}
	recruiter := c.QueryParam("recruiter")

	table, err := h.sessionMgr.FilterByRecruiter(id, recruiter)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusOK, filterResponse{
		Recruiter: recruiter,
		Columns:   table.Columns(),
		Rows:      table.Records(),
		Total:     table.Len(),
	})
}

// HandleDownload sends the deduplicated table as deduplicated_data.csv
func (h *SessionHandlerImpl) HandleDownload(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	var buf bytes.Buffer
	if err := h.sessionMgr.ExportDeduped(id, &buf); err != nil {
		return sessionError(err, id)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", contacts.DedupedFileName))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// intParam reads an optional integer query parameter.
func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

type filterResponse struct {
	Recruiter string     `json:"recruiter"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`
}
