package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/models"
)

// DeviceService exposes the admin operations on device bindings.
type DeviceService interface {
	Block(ctx context.Context, deviceID string) (*models.Device, error)
	View(ctx context.Context, deviceID string) (*licensing.LicenseView, error)
}

// DevicesHandler handles the admin device endpoints.
type DevicesHandler struct {
	svc    DeviceService
	logger zerolog.Logger
}

// NewDevicesHandler creates a new DevicesHandler.
func NewDevicesHandler(svc DeviceService, logger zerolog.Logger) *DevicesHandler {
	return &DevicesHandler{
		svc:    svc,
		logger: logger.With().Str("component", "devices_handler").Logger(),
	}
}

// RegisterRoutes registers device routes on the given router group.
func (h *DevicesHandler) RegisterRoutes(r *gin.RouterGroup) {
	devices := r.Group("/devices")
	{
		devices.GET("/:deviceId", h.GetDevice)
		devices.POST("/:deviceId/block", h.BlockDevice)
	}
}

// GetDevice returns the current license view for a device.
// GET /api/v1/devices/:deviceId
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	view, err := h.svc.View(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// BlockDevice administratively blocks a device. Blocking is idempotent and
// one-way; recovery goes through a restore.
// POST /api/v1/devices/:deviceId/block
func (h *DevicesHandler) BlockDevice(c *gin.Context) {
	dev, err := h.svc.Block(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.logger.Info().Str("device_id", dev.DeviceID).Msg("device blocked by admin")

	c.JSON(http.StatusOK, gin.H{
		"device_id": dev.DeviceID,
		"status":    dev.Status,
	})
}
