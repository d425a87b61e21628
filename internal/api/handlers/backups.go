package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// BackupService captures, lists, and restores license state snapshots.
type BackupService interface {
	Create(ctx context.Context, deviceID string, reason models.BackupReason) (uuid.UUID, error)
	List(ctx context.Context, deviceID string, licenseID uuid.UUID) ([]models.BackupInfo, error)
	Restore(ctx context.Context, backupID uuid.UUID) (*licensing.LicenseView, error)
}

// BackupsHandler handles the admin backup endpoints.
type BackupsHandler struct {
	svc     BackupService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewBackupsHandler creates a new BackupsHandler.
func NewBackupsHandler(svc BackupService, m *metrics.Metrics, logger zerolog.Logger) *BackupsHandler {
	return &BackupsHandler{
		svc:     svc,
		metrics: m,
		logger:  logger.With().Str("component", "backups_handler").Logger(),
	}
}

// RegisterRoutes registers backup routes on the given router group.
func (h *BackupsHandler) RegisterRoutes(r *gin.RouterGroup) {
	backups := r.Group("/backups")
	{
		backups.POST("", h.CreateBackup)
		backups.GET("", h.ListBackups)
		backups.POST("/:id/restore", h.RestoreBackup)
	}
}

type createBackupRequest struct {
	DeviceID string `json:"device_id"`
	Reason   string `json:"reason"`
}

// CreateBackup captures a snapshot of a device's license state.
// POST /api/v1/backups
func (h *BackupsHandler) CreateBackup(c *gin.Context) {
	var req createBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, licensing.ErrInvalidInput.WithDetail("body", err.Error()))
		return
	}

	id, err := h.svc.Create(c.Request.Context(), req.DeviceID, models.BackupReason(req.Reason))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordBackup(req.Reason)
	}
	h.logger.Info().
		Str("backup_id", id.String()).
		Str("device_id", req.DeviceID).
		Str("reason", req.Reason).
		Msg("backup created")

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListBackups lists backups for a device or a license, newest first.
// GET /api/v1/backups?device_id=... or ?license_id=...
func (h *BackupsHandler) ListBackups(c *gin.Context) {
	deviceID := c.Query("device_id")

	var licenseID uuid.UUID
	if raw := c.Query("license_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, h.logger, licensing.ErrInvalidInput.WithDetail("field", "license_id"))
			return
		}
		licenseID = parsed
	}

	backups, err := h.svc.List(c.Request.Context(), deviceID, licenseID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"backups": backups})
}

// RestoreBackup reverts license state to a snapshot.
// POST /api/v1/backups/:id/restore
func (h *BackupsHandler) RestoreBackup(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, licensing.ErrInvalidInput.WithDetail("field", "id"))
		return
	}

	view, err := h.svc.Restore(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRestore()
	}
	h.logger.Info().Str("backup_id", id.String()).Msg("backup restored")

	c.JSON(http.StatusOK, view)
}
