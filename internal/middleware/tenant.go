package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billing-service/internal/models"
)

// TenantMiddleware extracts tenant and tracing information from headers set
// by the upstream gateway. The tenant id is placed in the gin context only;
// everything below the handler layer receives it as an explicit argument.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		userID := c.GetHeader("X-User-ID")

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		c.Set("tenantId", tenantID)
		c.Set("userId", userID)
		c.Set("requestId", requestID)

		c.Next()
	}
}

// RequireTenantID ensures the tenant id header is present. Every billing
// route except /health sits behind it.
func RequireTenantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("tenantId") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "TENANT_REQUIRED",
					Message: "X-Tenant-ID header is required",
				},
			})
			return
		}
		c.Next()
	}
}
