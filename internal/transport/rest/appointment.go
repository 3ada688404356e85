package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

// @Summary Book an appointment
// @Description Re-checks the slot against current bookings and creates a pending-payment appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param input body domain.BookingRequest true "Booking"
// @Success 201 {object} successResponseBody{data=domain.BookingResult}
// @Failure 400 {object} errorResponseBody
// @Failure 409 {object} errorResponseBody "Slot taken by another booking"
// @Failure 422 {object} errorResponseBody "Slot not bookable"
// @Failure 429 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /appointments [post]
func (h *Handler) bookAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var req domain.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid booking payload", zap.Error(err))
		badRequestResponse(c, "invalid request body")
		return
	}

	res, err := h.services.Appointment.Book(c.Request.Context(), actor.UserID, req)
	if err != nil {
		serviceErrorResponse(c, err, "book appointment")
		return
	}

	createdResponse(c, res)
}

// @Summary Get an appointment
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} successResponseBody{data=domain.Appointment}
// @Failure 403 {object} errorResponseBody
// @Failure 404 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /appointments/{id} [get]
func (h *Handler) getAppointmentByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.services.Appointment.GetByID(c.Request.Context(), id, actor)
	if err != nil {
		serviceErrorResponse(c, err, "get appointment")
		return
	}

	successResponse(c, http.StatusOK, appt)
}

// @Summary Cancel an appointment
// @Description Frees the slot; watchers of the doctor receive slot_released
// @Tags Appointments
// @Param id path int true "Appointment ID"
// @Success 200 {object} messageResponseType
// @Failure 403 {object} errorResponseBody
// @Failure 404 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /appointments/{id} [delete]
func (h *Handler) cancelAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.services.Appointment.Cancel(c.Request.Context(), id, actor); err != nil {
		serviceErrorResponse(c, err, "cancel appointment")
		return
	}

	messageResponse(c, http.StatusOK, "appointment cancelled")
}

// @Summary Invoice download link
// @Description Redirects to a short-lived link for the booking invoice
// @Tags Appointments
// @Param id path int true "Appointment ID"
// @Success 307
// @Failure 403 {object} errorResponseBody
// @Failure 404 {object} errorResponseBody "No invoice stored"
// @Security ApiKeyAuth
// @Router /appointments/{id}/invoice [get]
func (h *Handler) getInvoice(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	link, err := h.services.Appointment.InvoiceLink(c.Request.Context(), id, actor)
	if err != nil {
		serviceErrorResponse(c, err, "get invoice")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, link)
}
