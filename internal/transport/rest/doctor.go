package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medbook/internal/domain"
)

// @Summary List doctors
// @Tags Doctors
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} successResponseBody{data=[]domain.Doctor}
// @Router /doctors [get]
func (h *Handler) getDoctors(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	doctors, err := h.services.Doctor.List(c.Request.Context(), limit, offset)
	if err != nil {
		serviceErrorResponse(c, err, "list doctors")
		return
	}

	successResponse(c, http.StatusOK, doctors)
}

// @Summary Get a doctor
// @Tags Doctors
// @Produce json
// @Param id path int true "Doctor ID"
// @Success 200 {object} successResponseBody{data=domain.Doctor}
// @Failure 404 {object} errorResponseBody
// @Router /doctors/{id} [get]
func (h *Handler) getDoctorByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doctor, err := h.services.Doctor.GetByID(c.Request.Context(), id)
	if err != nil {
		serviceErrorResponse(c, err, "get doctor")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Register a doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param input body domain.CreateDoctorDTO true "Doctor"
// @Success 201 {object} successResponseBody
// @Failure 400 {object} errorResponseBody
// @Failure 403 {object} errorResponseBody
// @Security ApiKeyAuth
// @Router /doctors [post]
func (h *Handler) createDoctor(c *gin.Context) {
	var req domain.CreateDoctorDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestResponse(c, "invalid request body")
		return
	}

	id, err := h.services.Doctor.Create(c.Request.Context(), req)
	if err != nil {
		serviceErrorResponse(c, err, "create doctor")
		return
	}

	createdResponse(c, gin.H{"id": id})
}
