package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// HeartbeatService re-validates bound devices.
type HeartbeatService interface {
	Heartbeat(ctx context.Context, in licensing.HeartbeatInput) (*licensing.LicenseView, error)
}

// HeartbeatHandler handles the public heartbeat endpoint.
type HeartbeatHandler struct {
	svc     HeartbeatService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHeartbeatHandler creates a new HeartbeatHandler.
func NewHeartbeatHandler(svc HeartbeatService, m *metrics.Metrics, logger zerolog.Logger) *HeartbeatHandler {
	return &HeartbeatHandler{
		svc:     svc,
		metrics: m,
		logger:  logger.With().Str("component", "heartbeat_handler").Logger(),
	}
}

// RegisterRoutes registers heartbeat routes on the given router group.
func (h *HeartbeatHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/heartbeat", h.Heartbeat)
}

type heartbeatRequest struct {
	DeviceID    string  `json:"device_id"`
	Fingerprint string  `json:"fingerprint"`
	Similarity  float64 `json:"similarity"`
	UsageTick   *int64  `json:"usage_tick,omitempty"`
}

// Heartbeat processes one periodic re-validation call.
// POST /api/v1/heartbeat
func (h *HeartbeatHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.record("invalid", -1)
		writeError(c, h.logger, licensing.ErrInvalidInput.WithDetail("body", err.Error()))
		return
	}

	view, err := h.svc.Heartbeat(c.Request.Context(), licensing.HeartbeatInput{
		DeviceID:    req.DeviceID,
		Fingerprint: req.Fingerprint,
		Similarity:  req.Similarity,
		UsageTick:   req.UsageTick,
	})
	if err != nil {
		outcome := "error"
		switch licensing.ErrorCode(err) {
		case licensing.CodeDeviceNotFound:
			outcome = "not_found"
		case licensing.CodeInvalidInput:
			outcome = "invalid"
		}
		h.record(outcome, -1)
		writeError(c, h.logger, err)
		return
	}

	// Degraded devices still get a 200 and their current view; the outcome
	// label distinguishes them.
	outcome := "validated"
	if view.DeviceStatus == models.DeviceStatusBlocked {
		outcome = "blocked"
	} else if req.Similarity < view.Policy.FingerprintTolerance {
		outcome = "grace"
	}
	h.record(outcome, req.Similarity)

	c.JSON(http.StatusOK, view)
}

func (h *HeartbeatHandler) record(outcome string, similarity float64) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordHeartbeat(outcome)
	if similarity >= 0 {
		h.metrics.ObserveSimilarity(outcome, similarity)
	}
}
