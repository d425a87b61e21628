package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/metrics"
)

// ActivationService binds devices to licenses.
type ActivationService interface {
	Activate(ctx context.Context, licenseKey, deviceID, deviceInfo string) (*licensing.ActivationResult, error)
}

// ActivationHandler handles the public activation endpoint.
type ActivationHandler struct {
	svc     ActivationService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewActivationHandler creates a new ActivationHandler.
func NewActivationHandler(svc ActivationService, m *metrics.Metrics, logger zerolog.Logger) *ActivationHandler {
	return &ActivationHandler{
		svc:     svc,
		metrics: m,
		logger:  logger.With().Str("component", "activation_handler").Logger(),
	}
}

// RegisterRoutes registers activation routes on the given router group.
func (h *ActivationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/activate", h.Activate)
}

type activateRequest struct {
	LicenseKey string `json:"license_key"`
	DeviceID   string `json:"device_id"`
	DeviceInfo string `json:"device_info"`
}

type activateResponse struct {
	Created bool                  `json:"created"`
	License licensing.LicenseView `json:"license"`
}

// Activate binds the calling device to a license.
// POST /api/v1/activate
func (h *ActivationHandler) Activate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordOutcome("invalid")
		writeError(c, h.logger, licensing.ErrInvalidInput.WithDetail("body", err.Error()))
		return
	}

	res, err := h.svc.Activate(c.Request.Context(), req.LicenseKey, req.DeviceID, req.DeviceInfo)
	if err != nil {
		h.recordOutcome(activationErrorOutcome(err))
		writeError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	outcome := "activated"
	if res.Created {
		status = http.StatusCreated
		outcome = "created"
	}
	h.recordOutcome(outcome)

	h.logger.Info().
		Str("device_id", req.DeviceID).
		Bool("created", res.Created).
		Msg("device activated")

	c.JSON(status, activateResponse{Created: res.Created, License: res.View})
}

func (h *ActivationHandler) recordOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordActivation(outcome)
	}
}

// activationErrorOutcome folds error codes into the metric label set.
func activationErrorOutcome(err error) string {
	switch licensing.ErrorCode(err) {
	case licensing.CodeDeviceAlreadyRegistered:
		return "conflict"
	case licensing.CodeLicenseNotFound:
		return "not_found"
	case licensing.CodeLicenseInvalidStatus:
		return "invalid_status"
	case licensing.CodeInvalidInput:
		return "invalid"
	default:
		return "error"
	}
}
