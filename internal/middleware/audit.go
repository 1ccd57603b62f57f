package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuditLog represents an audit log entry for a billing request
type AuditLog struct {
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"requestId"`
	TenantID   string            `json:"tenantId"`
	UserID     string            `json:"userId,omitempty"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	StatusCode int               `json:"statusCode"`
	Duration   time.Duration     `json:"duration"`
	ClientIP   string            `json:"clientIp"`
	Action     string            `json:"action,omitempty"`
	Resource   string            `json:"resource,omitempty"`
	ResourceID string            `json:"resourceId,omitempty"`
	Success    bool              `json:"success"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AuditMiddleware logs every billing mutation with its money metadata.
// Financial documents need a who-did-what trail even when events are lost.
func AuditMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	auditLogger := logger.WithField("component", "audit")

	return func(c *gin.Context) {
		start := time.Now()

		// Reads are not audited
		if c.Request.Method == "GET" {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		entry := &AuditLog{
			Timestamp:  start,
			RequestID:  c.GetString("requestId"),
			TenantID:   c.GetString("tenantId"),
			UserID:     c.GetString("userId"),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			Duration:   time.Since(start),
			ClientIP:   c.ClientIP(),
			Success:    c.Writer.Status() < 400,
		}
		entry.Action, entry.Resource, entry.ResourceID = parseBillingAction(c)
		entry.Metadata = extractBillingMetadata(c, requestBody)

		data, _ := json.Marshal(entry)
		auditLogger.Info(string(data))
	}
}

// parseBillingAction extracts action and resource from the request path
func parseBillingAction(c *gin.Context) (action, resource, resourceID string) {
	path := c.Request.URL.Path
	method := c.Request.Method
	id := c.Param("id")

	switch {
	case strings.HasSuffix(path, "/send"):
		return "send", resourceFromPath(path), id
	case strings.HasSuffix(path, "/view"):
		return "mark_viewed", resourceFromPath(path), id
	case strings.HasSuffix(path, "/accept"):
		return "accept", "quote", id
	case strings.HasSuffix(path, "/decline"):
		return "decline", "quote", id
	case strings.HasSuffix(path, "/convert"):
		return "convert", "quote", id
	case strings.HasSuffix(path, "/void"):
		return "void", "invoice", id
	case strings.HasSuffix(path, "/confirm"):
		return "confirm", "payment", id
	case strings.HasSuffix(path, "/refund"):
		return "refund", "payment", id
	case method == "POST":
		return "create", resourceFromPath(path), ""
	case method == "PATCH" || method == "PUT":
		return "update", resourceFromPath(path), id
	case method == "DELETE":
		return "delete", resourceFromPath(path), id
	default:
		return method, path, id
	}
}

// resourceFromPath names the billing resource a path addresses
func resourceFromPath(path string) string {
	switch {
	case strings.Contains(path, "/quotes"):
		return "quote"
	case strings.Contains(path, "/invoices"):
		return "invoice"
	case strings.Contains(path, "/payments"):
		return "payment"
	default:
		return path
	}
}

// extractBillingMetadata pulls money amounts from mutation bodies
func extractBillingMetadata(c *gin.Context, body []byte) map[string]string {
	if len(body) == 0 {
		return nil
	}

	var req struct {
		Amount    *int64 `json:"amount"`
		Method    string `json:"method"`
		InvoiceID string `json:"invoiceId"`
		Reason    string `json:"reason"`
	}
	if json.Unmarshal(body, &req) != nil {
		return nil
	}

	metadata := make(map[string]string)
	if req.Amount != nil {
		metadata["amount"] = strconv.FormatInt(*req.Amount, 10)
	}
	if req.Method != "" {
		metadata["method"] = req.Method
	}
	if req.InvoiceID != "" {
		metadata["invoiceId"] = req.InvoiceID
	}
	if req.Reason != "" {
		metadata["reason"] = req.Reason
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
