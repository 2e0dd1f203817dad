package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/internal/service"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
	"github.com/selamtools/sunday-school-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.StudentID = c.Query("studentId")
	if raw := c.Query("date"); raw != "" {
		date, err := models.ParseDay(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid date"))
			return
		}
		filter.Date = &date
	}

	records, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Save godoc
// @Summary Record attendance for one student on one date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SaveAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	var req service.SaveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// SaveBulk godoc
// @Summary Record attendance for many students on one date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkAttendanceRequest true "Bulk attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) SaveBulk(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.SaveBulk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
