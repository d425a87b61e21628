// Package handlers provides the HTTP handlers for the Tessera API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/licensing"
)

// errorBody is the JSON error envelope returned on every failed request.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// httpStatus maps a service error code to its HTTP status.
func httpStatus(code licensing.Code) int {
	switch code {
	case licensing.CodeInvalidInput, licensing.CodeInvalidReason:
		return http.StatusBadRequest
	case licensing.CodeLicenseNotFound, licensing.CodeDeviceNotFound, licensing.CodeBackupNotFound:
		return http.StatusNotFound
	case licensing.CodeDeviceAlreadyRegistered:
		return http.StatusConflict
	case licensing.CodeLicenseInvalidStatus:
		return http.StatusForbidden
	case licensing.CodeInvalidSnapshot, licensing.CodeIncompleteSnapshot:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error response. Unexpected errors are
// logged and masked as INTERNAL; service errors pass their code and details
// through.
func writeError(c *gin.Context, logger zerolog.Logger, err error) {
	var svcErr *licensing.Error
	if errors.As(err, &svcErr) {
		status := httpStatus(svcErr.Code)
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		}
		c.JSON(status, gin.H{"error": errorBody{
			Code:    string(svcErr.Code),
			Message: svcErr.Message,
			Details: svcErr.Details,
		}})
		return
	}

	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody{
		Code:    string(licensing.CodeInternal),
		Message: "internal error",
	}})
}
