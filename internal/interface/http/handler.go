package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/airguard/internal/domain/airquality"
	"github.com/yanqian/airguard/internal/domain/records"
	apperrors "github.com/yanqian/airguard/pkg/errors"
)

// AlertLister reads persisted health alerts for a location.
type AlertLister interface {
	LocationAlerts(ctx context.Context, id records.LocationID) ([]records.HealthAlert, error)
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	dashboardSvc airquality.Service
	alerts       AlertLister
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(dashboardSvc airquality.Service, alerts AlertLister, logger *slog.Logger) *Handler {
	return &Handler{
		dashboardSvc: dashboardSvc,
		alerts:       alerts,
		logger:       logger.With("component", "http.handler"),
	}
}

// Dashboard returns the current reading with its derived guidance.
func (h *Handler) Dashboard(c *gin.Context) {
	resp, err := h.dashboardSvc.Dashboard(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateLocation replaces the current reading with one for a new location.
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req airquality.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.CodeInvalidInput, `body must be {"location": "<city>"}`, err))
		return
	}

	resp, err := h.dashboardSvc.UpdateLocation(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recommend classifies an arbitrary AQI for a profile.
func (h *Handler) Recommend(c *gin.Context) {
	var req airquality.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.CodeInvalidInput, `body must be {"aqi": <number>, "profile": {...}}`, err))
		return
	}

	resp, err := h.dashboardSvc.Evaluate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Categories lists the AQI bands.
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": airquality.Bands()})
}

// LocationAlerts lists the health alerts recorded for a location.
func (h *Handler) LocationAlerts(c *gin.Context) {
	id := records.LocationID(c.Param("id"))
	alerts, err := h.alerts.LocationAlerts(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
