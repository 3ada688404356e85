package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/service"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (int64, domain.UserRole, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Services *service.Services
	Logger   *zap.Logger
	Config   *config.Config
	Tokens   TokenParser
	// SlotStream serves the slot event websocket. Optional.
	SlotStream gin.HandlerFunc
	Checks     map[string]HealthCheck
}

type Handler struct {
	services   *service.Services
	logger     *zap.Logger
	config     *config.Config
	tokens     TokenParser
	slotStream gin.HandlerFunc
	checks     map[string]HealthCheck
	limiter    *ipRateLimiter
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		services:   deps.Services,
		logger:     deps.Logger,
		config:     deps.Config,
		tokens:     deps.Tokens,
		slotStream: deps.SlotStream,
		checks:     deps.Checks,
		limiter:    newIPRateLimiter(deps.Config.Booking.RateLimit, deps.Config.Booking.RateBurst),
	}
}

func (h *Handler) InitRoutes(router *gin.Engine) {
	router.Use(h.requestIDMiddleware())

	router.Use(h.loggerMiddleware())

	router.Use(h.errorMiddleware())

	router.Use(h.corsMiddleware())

	health := router.Group("/health")
	{
		health.GET("/live", h.live)
		health.GET("/ready", h.ready)
	}

	api := router.Group("/api/v1")
	{
		doctors := api.Group("/doctors")
		{
			doctors.GET("", h.getDoctors)
			doctors.GET("/:id", h.getDoctorByID)
			doctors.POST("", h.authMiddleware(), h.roleMiddleware(domain.UserRoleAdmin), h.createDoctor)

			doctors.GET("/:id/schedule", h.getWeeklySchedule)
			doctors.GET("/:id/exceptions", h.getExceptions)
			doctors.GET("/:id/services", h.getServices)
			doctors.GET("/:id/booked-slots", h.getBookedSlots)
			doctors.GET("/:id/availability", h.getAvailability)

			owner := doctors.Group("/:id", h.authMiddleware(), h.doctorOwnerMiddleware())
			{
				owner.PUT("/schedule", h.updateWeeklySchedule)
				owner.POST("/exceptions", h.createException)
				owner.DELETE("/exceptions/:date", h.deleteException)
				owner.PUT("/services", h.updateServices)
			}
		}

		appointments := api.Group("/appointments", h.authMiddleware())
		{
			appointments.POST("", h.rateLimitMiddleware(), h.roleMiddleware(domain.UserRolePatient, domain.UserRoleAdmin), h.bookAppointment)
			appointments.GET("/:id", h.getAppointmentByID)
			appointments.DELETE("/:id", h.cancelAppointment)
			appointments.GET("/:id/invoice", h.getInvoice)
		}
	}

	if h.slotStream != nil {
		router.GET("/ws/slots", h.slotStream)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequestResponse(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *Handler) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness probe
// @Description Runs every dependency check; any failure reports degraded
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health/ready [get]
func (h *Handler) ready(c *gin.Context) {
	status := http.StatusOK
	report := gin.H{"status": "ok"}
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			report[name] = err.Error()
			report["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}
	c.JSON(status, report)
}
