package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/internal/service"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
	"github.com/selamtools/sunday-school-api/pkg/response"
)

// StatsHandler exposes attendance statistics endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Attendance godoc
// @Summary Attendance statistics for the population or a single student
// @Tags Statistics
// @Produce json
// @Param studentId query string false "Limit to one student"
// @Param group query string false "Limit to one group (A, B, C, D, other)"
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /stats/attendance [get]
func (h *StatsHandler) Attendance(c *gin.Context) {
	var req service.StatsRequest
	if group := c.Query("group"); group != "" {
		req.Group = models.Group(group)
		if !req.Group.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown group"))
			return
		}
	}
	if raw := c.Query("startDate"); raw != "" {
		t, err := models.ParseDay(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid startDate"))
			return
		}
		req.StartDate = &t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := models.ParseDay(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid endDate"))
			return
		}
		req.EndDate = &t
	}

	if studentID := c.Query("studentId"); studentID != "" {
		detail, err := h.stats.Student(c.Request.Context(), studentID, req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, detail)
		return
	}

	stats, cached, err := h.stats.Population(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, map[string]interface{}{"cached": cached})
}

// Summary godoc
// @Summary Registration and attendance summary counters
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/summary [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	summary, err := h.stats.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}
