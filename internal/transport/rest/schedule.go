package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/pkg/validator"
)

// @Summary Weekly schedule
// @Description Returns the doctor's recurring opening hours, one entry per configured day of week
// @Tags Schedule
// @Produce json
// @Param id path int true "Doctor ID"
// @Success 200 {object} successResponseBody{data=[]domain.WeeklyScheduleEntry}
// @Failure 404 {object} errorResponseBody
// @Router /doctors/{id}/schedule [get]
func (h *Handler) getWeeklySchedule(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.services.Schedule.GetWeekly(c.Request.Context(), doctorID)
	if err != nil {
		serviceErrorResponse(c, err, "get weekly schedule")
		return
	}

	successResponse(c, http.StatusOK, entries)
}

// @Summary Replace weekly schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path int true "Doctor ID"
// @Param input body domain.UpdateWeeklyScheduleDTO true "Full weekly schedule"
// @Success 200 {object} messageResponseType
// @Failure 400 {object} errorResponseBody
// @Failure 403 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /doctors/{id}/schedule [put]
func (h *Handler) updateWeeklySchedule(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateWeeklyScheduleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid weekly schedule payload", zap.Error(err))
		badRequestResponse(c, "invalid request body")
		return
	}

	if err := h.services.Schedule.UpdateWeekly(c.Request.Context(), doctorID, req); err != nil {
		serviceErrorResponse(c, err, "update weekly schedule")
		return
	}

	messageResponse(c, http.StatusOK, "schedule updated")
}

// @Summary Exceptional dates
// @Tags Schedule
// @Produce json
// @Param id path int true "Doctor ID"
// @Success 200 {object} successResponseBody{data=[]domain.ExceptionalDate}
// @Failure 404 {object} errorResponseBody
// @Router /doctors/{id}/exceptions [get]
func (h *Handler) getExceptions(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	exceptions, err := h.services.Schedule.ListExceptions(c.Request.Context(), doctorID)
	if err != nil {
		serviceErrorResponse(c, err, "list exceptions")
		return
	}

	successResponse(c, http.StatusOK, exceptions)
}

// @Summary Add an exceptional date
// @Description Overrides the weekly entry for one date. Closed dates ignore the times.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path int true "Doctor ID"
// @Param input body domain.CreateExceptionDTO true "Exception"
// @Success 201 {object} successResponseBody{data=domain.ExceptionalDate}
// @Failure 400 {object} errorResponseBody
// @Failure 409 {object} errorResponseBody "Date already has an exception"
// @Security ApiKeyAuth
// @Router /doctors/{id}/exceptions [post]
func (h *Handler) createException(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req domain.CreateExceptionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid exception payload", zap.Error(err))
		badRequestResponse(c, "invalid request body")
		return
	}

	ex, err := h.services.Schedule.CreateException(c.Request.Context(), doctorID, req)
	if err != nil {
		serviceErrorResponse(c, err, "create exception")
		return
	}

	createdResponse(c, ex)
}

// @Summary Remove an exceptional date
// @Tags Schedule
// @Param id path int true "Doctor ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Failure 404 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /doctors/{id}/exceptions/{date} [delete]
func (h *Handler) deleteException(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.services.Schedule.DeleteException(c.Request.Context(), doctorID, c.Param("date")); err != nil {
		serviceErrorResponse(c, err, "delete exception")
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Service catalog
// @Tags Schedule
// @Produce json
// @Param id path int true "Doctor ID"
// @Success 200 {object} successResponseBody{data=domain.ServiceCatalog}
// @Failure 404 {object} errorResponseBody
// @Router /doctors/{id}/services [get]
func (h *Handler) getServices(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	catalog, err := h.services.Schedule.GetServices(c.Request.Context(), doctorID)
	if err != nil {
		serviceErrorResponse(c, err, "get services")
		return
	}

	successResponse(c, http.StatusOK, catalog)
}

// @Summary Replace service catalog
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path int true "Doctor ID"
// @Param input body domain.ServiceCatalog true "Catalog; null entries are not offered"
// @Success 200 {object} messageResponseType
// @Failure 400 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /doctors/{id}/services [put]
func (h *Handler) updateServices(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req domain.ServiceCatalog
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestResponse(c, "invalid request body")
		return
	}

	if err := h.services.Schedule.UpdateServices(c.Request.Context(), doctorID, req); err != nil {
		serviceErrorResponse(c, err, "update services")
		return
	}

	messageResponse(c, http.StatusOK, "services updated")
}

// @Summary Booked slots
// @Description Start times and durations of active appointments on a date
// @Tags Schedule
// @Produce json
// @Param id path int true "Doctor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} successResponseBody{data=[]domain.BookedSlot}
// @Failure 400 {object} errorResponseBody
// @Router /doctors/{id}/booked-slots [get]
func (h *Handler) getBookedSlots(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	date := c.Query("date")
	if !validator.ValidateDate(date) {
		badRequestResponse(c, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.services.Schedule.BookedSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		serviceErrorResponse(c, err, "get booked slots")
		return
	}

	successResponse(c, http.StatusOK, slots)
}

// @Summary Candidate slots
// @Description Slots for a date and service with booked and past flags
// @Tags Schedule
// @Produce json
// @Param id path int true "Doctor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param service query string true "regular_checkup or follow_up"
// @Success 200 {object} successResponseBody{data=[]domain.CandidateSlot}
// @Failure 400 {object} errorResponseBody
// @Failure 422 {object} errorResponseBody "Service not offered"
// @Router /doctors/{id}/availability [get]
func (h *Handler) getAvailability(c *gin.Context) {
	doctorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	kind := domain.ServiceKind(c.Query("service"))
	if !validator.ValidateServiceKind(kind) {
		badRequestResponse(c, "service must be regular_checkup or follow_up")
		return
	}

	slots, err := h.services.Schedule.Availability(c.Request.Context(), doctorID, c.Query("date"), kind)
	if err != nil {
		serviceErrorResponse(c, err, "get availability")
		return
	}

	successResponse(c, http.StatusOK, slots)
}
