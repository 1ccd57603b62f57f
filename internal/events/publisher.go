// Package events provides NATS event publishing for billing lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"billing-service/internal/models"
)

const (
	streamName = "BILLING_EVENTS"

	QuoteCreated   = "billing.quote.created"
	QuoteSent      = "billing.quote.sent"
	QuoteViewed    = "billing.quote.viewed"
	QuoteAccepted  = "billing.quote.accepted"
	QuoteDeclined  = "billing.quote.declined"
	QuoteExpired   = "billing.quote.expired"
	QuoteConverted = "billing.quote.converted"
	QuoteDeleted   = "billing.quote.deleted"

	InvoiceCreated = "billing.invoice.created"
	InvoiceSent    = "billing.invoice.sent"
	InvoiceViewed  = "billing.invoice.viewed"
	InvoiceUpdated = "billing.invoice.updated"
	InvoiceVoided  = "billing.invoice.voided"
	InvoicePaid    = "billing.invoice.paid"
	InvoiceDeleted = "billing.invoice.deleted"

	PaymentRecorded  = "billing.payment.recorded"
	PaymentCompleted = "billing.payment.completed"
	PaymentFailed    = "billing.payment.failed"
	PaymentRefunded  = "billing.payment.refunded"
)

// BillingEvent is the wire format for all billing lifecycle events
type BillingEvent struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	TenantID   string    `json:"tenantId"`
	Timestamp  time.Time `json:"timestamp"`
	DocumentID string    `json:"documentId"`
	Number     string    `json:"number,omitempty"`
	Status     string    `json:"status,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	InvoiceID  string    `json:"invoiceId,omitempty"`
	QuoteID    string    `json:"quoteId,omitempty"`
}

// Publisher publishes billing events to JetStream. A nil *Publisher is a
// valid no-op publisher so the services work without a broker in tests.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the billing stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("billing-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("[NATS] Disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"billing.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to ensure billing stream (may already exist)")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "billing-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// PublishQuoteEvent publishes a quote lifecycle event
func (p *Publisher) PublishQuoteEvent(eventType string, quote *models.Quote) {
	if p == nil {
		return
	}
	p.publish(&BillingEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		TenantID:   quote.TenantID,
		Timestamp:  time.Now().UTC(),
		DocumentID: quote.ID.String(),
		Number:     quote.Number,
		Status:     string(quote.Status),
		Amount:     quote.Total,
	})
}

// PublishInvoiceEvent publishes an invoice lifecycle event
func (p *Publisher) PublishInvoiceEvent(eventType string, invoice *models.Invoice) {
	if p == nil {
		return
	}
	event := &BillingEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		TenantID:   invoice.TenantID,
		Timestamp:  time.Now().UTC(),
		DocumentID: invoice.ID.String(),
		Number:     invoice.Number,
		Status:     string(invoice.Status),
		Amount:     invoice.Total,
	}
	if invoice.QuoteID != nil {
		event.QuoteID = invoice.QuoteID.String()
	}
	p.publish(event)
}

// PublishPaymentEvent publishes a payment lifecycle event
func (p *Publisher) PublishPaymentEvent(eventType string, payment *models.Payment) {
	if p == nil {
		return
	}
	p.publish(&BillingEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		TenantID:   payment.TenantID,
		Timestamp:  time.Now().UTC(),
		DocumentID: payment.ID.String(),
		Status:     string(payment.Status),
		Amount:     payment.Amount,
		InvoiceID:  payment.InvoiceID.String(),
	})
}

// publish serializes and publishes asynchronously. Callers invoke it after
// their database transaction commits, so a broker outage never rolls back a
// billing write; the failure is logged and the event is dropped.
func (p *Publisher) publish(event *BillingEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal billing event")
			return
		}

		if _, err := p.js.Publish(ctx, event.EventType, data); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType":  event.EventType,
				"documentId": event.DocumentID,
				"tenantId":   event.TenantID,
			}).WithError(err).Error("Failed to publish billing event")
			return
		}

		p.logger.WithFields(logrus.Fields{
			"eventType":  event.EventType,
			"documentId": event.DocumentID,
			"tenantId":   event.TenantID,
		}).Info("Billing event published")
	}()
}
