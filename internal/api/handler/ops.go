package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marginality/indexing-admin/internal/service"
)

// OpsHandler handles dashboard aggregation endpoints.
type OpsHandler struct {
	ops *service.OpsService
}

// NewOpsHandler creates a new ops handler.
// Parameters:
//   - ops: aggregation service.
// Returns:
//   - *OpsHandler: handler instance.
func NewOpsHandler(ops *service.OpsService) *OpsHandler {
	return &OpsHandler{ops: ops}
}

// Overview returns the indexing dashboard aggregation. Sections degrade
// independently, so this always responds 200.
// GET /api/v1/admin/indexing/overview
func (h *OpsHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"overview": h.ops.Overview(c.Request.Context()),
	})
}
