package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"billing-service/internal/models"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Referrer policy
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Content Security Policy for API
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Billing documents are sensitive; never cache them downstream
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Header("Pragma", "no-cache")

		c.Next()
	}
}

// ValidateRequest validates common request requirements
func ValidateRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Validate Content-Type for POST/PUT/PATCH with a body
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			if c.Request.ContentLength > 0 {
				contentType := c.GetHeader("Content-Type")
				if !strings.Contains(contentType, "application/json") {
					c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.ErrorResponse{
						Success: false,
						Error: models.Error{
							Code:    "UNSUPPORTED_MEDIA_TYPE",
							Message: "Content-Type must be application/json",
						},
					})
					return
				}
			}
		}

		c.Next()
	}
}
