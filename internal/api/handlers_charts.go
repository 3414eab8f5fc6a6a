// handlers_charts.go - Bar chart data handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/models"
)

// ChartHandlerImpl implements the ChartHandler interface
type ChartHandlerImpl struct {
	sessionMgr SessionManager
	topN       int
}

// NewChartHandler creates a new chart handler. topN is the default size of
// the top recruiters chart.
func NewChartHandler(sessionMgr SessionManager, topN int) ChartHandler {
	if topN <= 0 {
		topN = 5
	}
	return &ChartHandlerImpl{sessionMgr: sessionMgr, topN: topN}
}

// HandleRecruiterChart counts unique contacts per recruiter. search, recruiter
// and group narrow the counted rows.
func (h *ChartHandlerImpl) HandleRecruiterChart(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	counts, err := h.counts(c, id, contacts.ViewDeduped, h.sessionMgr.Schema().Recruiter, h.sessionMgr.RecruiterCounts)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, models.NewChartData(
		models.RecruiterChartTitle, models.RecruiterAxisLabel, models.ContactsAxisLabel, counts))
}

// HandleGroupChart counts uploaded contacts per WhatsApp group
func (h *ChartHandlerImpl) HandleGroupChart(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	counts, err := h.counts(c, id, contacts.ViewOriginal, h.sessionMgr.Schema().GroupName, h.sessionMgr.GroupCounts)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, models.NewChartData(
		models.GroupChartTitle, models.GroupAxisLabel, models.ContactsAxisLabel, counts))
}

// counts serves the precomputed counts unless search, recruiter or group
// narrows the rows, in which case the row store groups the matching rows.
func (h *ChartHandlerImpl) counts(c echo.Context, id string, view contacts.View, column string,
	cached func(id string) (contacts.GroupCount, error)) (contacts.GroupCount, error) {
	q, narrowed := rowQuery(c, h.sessionMgr.Schema(), view)
	if !narrowed {
		return cached(id)
	}
	return h.sessionMgr.CountRows(c.Request().Context(), id, q, column)
}

// HandleTopRecruiterChart returns the n recruiters with the most unique contacts
func (h *ChartHandlerImpl) HandleTopRecruiterChart(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	n, err := intParam(c, "n", h.topN)
	if err != nil || n < 1 {
		return NewValidationError("n")
	}

	top, err := h.sessionMgr.TopRecruiters(id, n)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusOK, models.NewChartData(
		models.TopRecruiterChartTitle(n), models.RecruiterAxisLabel, models.UniqueContactsAxisLabel, top))
}
