package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextAdminUserID is the gin context key holding the authenticated
// operator's user id.
const ContextAdminUserID = "adminUserID"

// AdminUserIDHeader carries the operator's user id, forwarded by the identity
// proxy in front of this service.
const AdminUserIDHeader = "X-Admin-User-Id"

// AdminAuth gates admin routes on a shared bearer token. The upstream
// identity provider handles real authentication; this token is the
// service-to-service credential.
// Parameters:
//   - token: expected bearer token; empty means the deployment is
//     misconfigured and all requests are rejected.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"ok":    false,
				"code":  "MISSING_ENV",
				"error": "ADMIN_API_TOKEN is not configured",
			})
			return
		}

		header := c.GetHeader("Authorization")
		presented := strings.TrimPrefix(header, "Bearer ")
		if header == "" || presented == header ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"code":  "UNEXPECTED_ERROR",
				"error": "Invalid or missing Authorization header",
			})
			return
		}

		c.Set(ContextAdminUserID, c.GetHeader(AdminUserIDHeader))
		c.Next()
	}
}

// AdminUserID returns the authenticated operator id, or "" outside admin routes.
func AdminUserID(c *gin.Context) string {
	if v, ok := c.Get(ContextAdminUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
