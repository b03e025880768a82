package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marginality/indexing-admin/internal/api/middleware"
	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/service"
)

// VideoHandler handles admin actions against production videos.
type VideoHandler struct {
	unlock *service.UnlockService
}

// NewVideoHandler creates a new video handler.
// Parameters:
//   - unlock: unlock-and-index service.
// Returns:
//   - *VideoHandler: handler instance.
func NewVideoHandler(unlock *service.UnlockService) *VideoHandler {
	return &VideoHandler{unlock: unlock}
}

// UnlockIndex unlocks a video, triggers indexing, and reports the compensated
// outcome. The response is 200 even when the trigger itself failed: the
// operator reads indexTriggered plus the failure message to decide what to do.
// POST /api/v1/admin/videos/:id/unlock-index
func (h *VideoHandler) UnlockIndex(c *gin.Context) {
	var input service.UnlockIndexInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.BadRequest(apperr.CodeInvalidJSON, "Request body must be valid JSON"))
		return
	}
	input.VideoID = c.Param("id")
	input.CallerUserID = middleware.AdminUserID(c)

	result, err := h.unlock.UnlockAndIndex(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                  true,
		"result":              result,
		"indexFailureMessage": service.IndexTriggerFailureMessage(result),
	})
}
