package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/marginality/indexing-admin/internal/apperr"
	"github.com/marginality/indexing-admin/internal/service"
)

// respondError writes a typed error response. Run failures additionally carry
// the persisted run id so the operator can open the failed row.
func respondError(c *gin.Context, err error) {
	var failure *service.RunFailure
	if errors.As(err, &failure) {
		c.JSON(failure.Err.Status, gin.H{
			"ok":        false,
			"code":      failure.Err.Code,
			"error":     failure.Err.Message,
			"testRunId": failure.TestRunID,
		})
		return
	}

	typed := apperr.From(err)
	c.JSON(typed.Status, gin.H{
		"ok":    false,
		"code":  typed.Code,
		"error": typed.Message,
	})
}
