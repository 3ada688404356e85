package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"medbook/internal/domain"
)

type errorResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

type successResponseBody struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type messageResponseType struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func successResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, successResponseBody{
		Status: "success",
		Data:   data,
	})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, errorResponseBody{
		Status:  "error",
		Message: message,
		Code:    statusCode,
	})
}

func messageResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, messageResponseType{
		Status:  "success",
		Message: message,
	})
}

func createdResponse(c *gin.Context, data interface{}) {
	successResponse(c, http.StatusCreated, data)
}

func badRequestResponse(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, message)
}

func unauthorizedResponse(c *gin.Context) {
	errorResponse(c, http.StatusUnauthorized, "authorization required")
}

func forbiddenResponse(c *gin.Context, message ...string) {
	msg := "access denied"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	errorResponse(c, http.StatusForbidden, msg)
}

func internalServerErrorResponse(c *gin.Context) {
	errorResponse(c, http.StatusInternalServerError, "internal server error")
}

// serviceErrorResponse maps service errors onto status codes. Validation
// errors carry their detail; anything unrecognised is recorded on the context
// for errorMiddleware and hidden from the caller.
func serviceErrorResponse(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrSlotConflict):
		errorResponse(c, http.StatusConflict, domain.ErrSlotConflict.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		errorResponse(c, http.StatusUnprocessableEntity, domain.ErrSlotUnavailable.Error())
	case errors.Is(err, domain.ErrServiceNotOffered):
		errorResponse(c, http.StatusUnprocessableEntity, domain.ErrServiceNotOffered.Error())
	case errors.Is(err, domain.ErrDoctorNotFound):
		errorResponse(c, http.StatusNotFound, domain.ErrDoctorNotFound.Error())
	case errors.Is(err, domain.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrDuplicateDate):
		errorResponse(c, http.StatusConflict, domain.ErrDuplicateDate.Error())
	case errors.Is(err, domain.ErrForbidden):
		forbiddenResponse(c)
	case errors.Is(err, domain.ErrInvalidInput):
		badRequestResponse(c, err.Error())
	default:
		_ = c.Error(fmt.Errorf("%s: %w", op, err))
		internalServerErrorResponse(c)
	}
}
