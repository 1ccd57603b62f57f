package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"billing-service/internal/models"
)

// NotificationClient sends notifications via notification-service API.
// All sends are fire-and-forget: delivery failure is logged, never surfaced
// to the billing operation that triggered it. A nil client skips sending.
type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNotificationClient creates a new notification client
func NewNotificationClient(baseURL string) *NotificationClient {
	if baseURL == "" {
		baseURL = "http://notification-service.devtest.svc.cluster.local:8090"
	}

	return &NotificationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendNotificationRequest represents the API request to notification-service
type SendNotificationRequest struct {
	Channel        string                 `json:"channel"`
	RecipientEmail string                 `json:"recipientEmail"`
	Subject        string                 `json:"subject"`
	TemplateName   string                 `json:"templateName,omitempty"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
}

// formatMinor renders an int64 minor-unit amount as a decimal string
func formatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// NotifyQuoteSent emails the recipient that a quote is ready for review
func (c *NotificationClient) NotifyQuoteSent(tenantID string, quote *models.Quote) {
	if c == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req := SendNotificationRequest{
			Channel:      "EMAIL",
			Subject:      fmt.Sprintf("Quote %s - %s", quote.Number, quote.Title),
			TemplateName: "billing-quote",
			Variables: map[string]interface{}{
				"quoteId":     quote.ID.String(),
				"quoteNumber": quote.Number,
				"title":       quote.Title,
				"total":       formatMinor(quote.Total),
				"sentDate":    time.Now().Format("January 2, 2006"),
			},
		}
		if quote.ValidUntil != nil {
			req.Variables["validUntil"] = quote.ValidUntil.Format("January 2, 2006")
		}

		if err := c.send(ctx, tenantID, req); err != nil {
			log.Printf("[NotificationClient] Failed to send quote notification: %v", err)
		}
	}()
}

// NotifyInvoiceSent emails the recipient that an invoice is due
func (c *NotificationClient) NotifyInvoiceSent(tenantID string, invoice *models.Invoice) {
	if c == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req := SendNotificationRequest{
			Channel:      "EMAIL",
			Subject:      fmt.Sprintf("Invoice %s", invoice.Number),
			TemplateName: "billing-invoice",
			Variables: map[string]interface{}{
				"invoiceId":     invoice.ID.String(),
				"invoiceNumber": invoice.Number,
				"total":         formatMinor(invoice.Total),
				"dueDate":       invoice.DueDate.Format("January 2, 2006"),
				"sentDate":      time.Now().Format("January 2, 2006"),
			},
		}

		if err := c.send(ctx, tenantID, req); err != nil {
			log.Printf("[NotificationClient] Failed to send invoice notification: %v", err)
		}
	}()
}

func (c *NotificationClient) send(ctx context.Context, tenantID string, req SendNotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notifications/send", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)
	httpReq.Header.Set("X-Internal-Service", "billing-service")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification-service returned status %d", resp.StatusCode)
	}

	return nil
}
