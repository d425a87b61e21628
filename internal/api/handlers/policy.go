package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/policy"
)

// PolicyHandler exposes the currently effective runtime policy.
type PolicyHandler struct {
	policies policy.Provider
	logger   zerolog.Logger
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policies policy.Provider, logger zerolog.Logger) *PolicyHandler {
	return &PolicyHandler{
		policies: policies,
		logger:   logger.With().Str("component", "policy_handler").Logger(),
	}
}

// RegisterRoutes registers policy routes on the given router group.
func (h *PolicyHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/policy", h.GetPolicy)
}

// GetPolicy returns the policy as it would apply to the next call.
// GET /api/v1/policy
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.policies.Current())
}
