package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"billing-service/internal/events"
	"billing-service/internal/models"
	"billing-service/internal/repository"
)

// QuoteService implements the quote lifecycle: draft, send, view, accept or
// decline, expire, and conversion into an invoice.
type QuoteService struct {
	repo      repository.BillingRepositoryInterface
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewQuoteService creates a new quote service
func NewQuoteService(repo repository.BillingRepositoryInterface, publisher *events.Publisher, logger *logrus.Logger) *QuoteService {
	return &QuoteService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "quote-service"),
	}
}

// buildLineItems converts request line items into model rows, validating each
func buildLineItems(tenantID string, inputs []models.LineItemInput) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(inputs))
	for i, in := range inputs {
		item := models.LineItem{
			TenantID:         tenantID,
			Description:      in.Description,
			Quantity:         in.Quantity,
			UnitPrice:        in.UnitPrice,
			DiscountPercent:  in.DiscountPercent,
			TaxCategoryCode:  in.TaxCategoryCode,
			Unit:             in.Unit,
			PrimaryTaxRate:   in.PrimaryTaxRate,
			SecondaryTaxRate: in.SecondaryTaxRate,
			Position:         i,
		}
		if err := ValidateLineItem(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// CreateQuote creates a new DRAFT quote, allocating its number and computing
// totals in the same transaction.
func (s *QuoteService) CreateQuote(ctx context.Context, tenantID string, req *models.CreateQuoteRequest) (*models.Quote, error) {
	quote := &models.Quote{
		TenantID:   tenantID,
		Title:      req.Title,
		ContactID:  req.ContactID,
		CompanyID:  req.CompanyID,
		DealID:     req.DealID,
		Status:     models.QuoteDraft,
		ValidUntil: req.ValidUntil,
		Notes:      req.Notes,
	}
	if !quote.HasTarget() {
		return nil, models.ErrMissingTarget
	}
	if req.DocumentDiscount != nil {
		quote.DocumentDiscount = *req.DocumentDiscount
	}
	if req.DocumentTaxRate != nil {
		quote.DocumentTaxRate = *req.DocumentTaxRate
	}

	items, err := buildLineItems(tenantID, req.Items)
	if err != nil {
		return nil, err
	}
	quote.Items = items

	totals, err := ComputeTotals(quote.Items, quote.DocumentDiscount, quote.DocumentTaxRate)
	if err != nil {
		return nil, err
	}
	ApplyQuoteTotals(quote, totals)

	err = s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		number, err := tx.NextDocumentNumber(ctx, tenantID, models.DocumentKindQuote)
		if err != nil {
			return err
		}
		quote.Number = number
		return tx.CreateQuote(ctx, quote)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId": tenantID,
		"quoteId":  quote.ID,
		"number":   quote.Number,
		"total":    quote.Total,
	}).Info("Quote created")
	s.publisher.PublishQuoteEvent(events.QuoteCreated, quote)

	return quote, nil
}

// GetQuote fetches a quote. A live quote whose validity window has passed is
// surfaced and persisted as EXPIRED here rather than by a background job.
func (s *QuoteService) GetQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.repo.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	return s.expireIfPastValidity(ctx, quote), nil
}

// ListQuotes lists quotes with pagination and an optional status filter
func (s *QuoteService) ListQuotes(ctx context.Context, tenantID string, status models.QuoteStatus, page, limit int) ([]models.Quote, int64, error) {
	quotes, total, err := s.repo.ListQuotes(ctx, tenantID, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range quotes {
		quotes[i] = *s.expireIfPastValidity(ctx, &quotes[i])
	}
	return quotes, total, nil
}

// expireIfPastValidity lazily transitions a live quote past its validUntil to
// EXPIRED and persists the change.
func (s *QuoteService) expireIfPastValidity(ctx context.Context, quote *models.Quote) *models.Quote {
	if models.IsTerminalQuoteStatus(quote.Status) || !quote.IsExpired(time.Now()) {
		return quote
	}
	quote.Status = models.QuoteExpired
	if err := s.repo.UpdateQuote(ctx, quote); err != nil {
		s.logger.WithError(err).WithField("quoteId", quote.ID).Warn("Failed to persist quote expiry")
	} else {
		s.publisher.PublishQuoteEvent(events.QuoteExpired, quote)
	}
	return quote
}

// SendQuote marks a quote as sent. Resending an already-sent quote refreshes
// the sent timestamp.
func (s *QuoteService) SendQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateQuoteStatusTransition(quote.Status, models.QuoteSent); err != nil {
		return nil, err
	}

	now := time.Now()
	quote.Status = models.QuoteSent
	quote.SentAt = &now
	if err := s.repo.UpdateQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to send quote: %w", err)
	}

	s.publisher.PublishQuoteEvent(events.QuoteSent, quote)
	return quote, nil
}

// MarkQuoteViewed records that the recipient opened the quote. Idempotent: a
// second view keeps the original viewed timestamp.
func (s *QuoteService) MarkQuoteViewed(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == models.QuoteViewed {
		return quote, nil
	}
	if err := models.ValidateQuoteStatusTransition(quote.Status, models.QuoteViewed); err != nil {
		return nil, err
	}

	now := time.Now()
	quote.Status = models.QuoteViewed
	quote.ViewedAt = &now
	if err := s.repo.UpdateQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to mark quote viewed: %w", err)
	}

	s.publisher.PublishQuoteEvent(events.QuoteViewed, quote)
	return quote, nil
}

// AcceptQuote transitions a sent or viewed quote to ACCEPTED. A quote past its
// validity window cannot be accepted even if the expiry has not been persisted
// yet.
func (s *QuoteService) AcceptQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == models.QuoteExpired {
		return nil, models.ErrExpiredDocument
	}
	if err := models.ValidateQuoteStatusTransition(quote.Status, models.QuoteAccepted); err != nil {
		return nil, err
	}

	now := time.Now()
	quote.Status = models.QuoteAccepted
	quote.AcceptedAt = &now
	if err := s.repo.UpdateQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to accept quote: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId": tenantID,
		"quoteId":  quote.ID,
		"number":   quote.Number,
	}).Info("Quote accepted")
	s.publisher.PublishQuoteEvent(events.QuoteAccepted, quote)
	return quote, nil
}

// DeclineQuote transitions a sent or viewed quote to REJECTED with an optional reason
func (s *QuoteService) DeclineQuote(ctx context.Context, tenantID string, quoteID uuid.UUID, reason string) (*models.Quote, error) {
	quote, err := s.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateQuoteStatusTransition(quote.Status, models.QuoteRejected); err != nil {
		return nil, err
	}

	now := time.Now()
	quote.Status = models.QuoteRejected
	quote.DeclinedAt = &now
	quote.DeclineReason = reason
	if err := s.repo.UpdateQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to decline quote: %w", err)
	}

	s.publisher.PublishQuoteEvent(events.QuoteDeclined, quote)
	return quote, nil
}

// UpdateQuote updates quote fields. Line items, discounts and tax rates are
// editable only while the quote is DRAFT or SENT; metadata edits stop once the
// quote reaches a terminal status.
func (s *QuoteService) UpdateQuote(ctx context.Context, tenantID string, quoteID uuid.UUID, req *models.UpdateQuoteRequest) (*models.Quote, error) {
	quote, err := s.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalQuoteStatus(quote.Status) {
		return nil, models.ErrImmutableDocument
	}
	if req.HasItemChanges() && !models.QuoteItemsEditable(quote.Status) {
		return nil, models.ErrImmutableDocument
	}

	if req.Title != nil {
		quote.Title = *req.Title
	}
	if req.Notes != nil {
		quote.Notes = *req.Notes
	}
	if req.ValidUntil != nil {
		quote.ValidUntil = req.ValidUntil
	}
	if req.DocumentDiscount != nil {
		quote.DocumentDiscount = *req.DocumentDiscount
	}
	if req.DocumentTaxRate != nil {
		quote.DocumentTaxRate = *req.DocumentTaxRate
	}

	items := quote.Items
	if req.Items != nil {
		items, err = buildLineItems(tenantID, req.Items)
		if err != nil {
			return nil, err
		}
	}

	totals, err := ComputeTotals(items, quote.DocumentDiscount, quote.DocumentTaxRate)
	if err != nil {
		return nil, err
	}
	ApplyQuoteTotals(quote, totals)

	err = s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		if req.Items != nil {
			if err := tx.ReplaceLineItems(ctx, tenantID, models.DocumentKindQuote, quote.ID, items); err != nil {
				return err
			}
		}
		return tx.UpdateQuote(ctx, quote)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}
	quote.Items = items

	return quote, nil
}

// DeleteQuote removes a quote. An accepted quote is retained for conversion
// lineage and cannot be deleted.
func (s *QuoteService) DeleteQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) error {
	quote, err := s.repo.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return err
	}
	if quote.Status == models.QuoteAccepted {
		return models.ErrImmutableDocument
	}
	if err := s.repo.DeleteQuote(ctx, tenantID, quoteID); err != nil {
		return err
	}
	s.publisher.PublishQuoteEvent(events.QuoteDeleted, quote)
	return nil
}

// defaultPaymentTermDays is the due-date window applied when a conversion does
// not specify one.
const defaultPaymentTermDays = 30

// ConvertQuoteToInvoice creates an invoice from an accepted quote, copying its
// line items and totals. Each quote converts at most once; lineage is held by
// the invoice's quoteId.
func (s *QuoteService) ConvertQuoteToInvoice(ctx context.Context, tenantID string, quoteID uuid.UUID, dueDate *time.Time) (*models.Invoice, error) {
	quote, err := s.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != models.QuoteAccepted {
		return nil, fmt.Errorf("%w: quote must be ACCEPTED to convert, is %s", models.ErrInvalidTransition, quote.Status)
	}

	if _, err := s.repo.GetInvoiceByQuoteID(ctx, tenantID, quoteID); err == nil {
		return nil, models.ErrAlreadyConverted
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	due := time.Now().AddDate(0, 0, defaultPaymentTermDays)
	if dueDate != nil {
		due = *dueDate
	}

	invoice := &models.Invoice{
		TenantID:         tenantID,
		QuoteID:          &quote.ID,
		ContactID:        quote.ContactID,
		CompanyID:        quote.CompanyID,
		Status:           models.InvoiceDraft,
		DueDate:          due,
		DocumentDiscount: quote.DocumentDiscount,
		DocumentTaxRate:  quote.DocumentTaxRate,
		Subtotal:         quote.Subtotal,
		TotalDiscount:    quote.TotalDiscount,
		TotalTax:         quote.TotalTax,
		Total:            quote.Total,
		Notes:            quote.Notes,
	}
	for _, item := range quote.Items {
		invoice.Items = append(invoice.Items, models.LineItem{
			TenantID:         tenantID,
			Description:      item.Description,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			DiscountPercent:  item.DiscountPercent,
			TaxCategoryCode:  item.TaxCategoryCode,
			Unit:             item.Unit,
			PrimaryTaxRate:   item.PrimaryTaxRate,
			SecondaryTaxRate: item.SecondaryTaxRate,
			Position:         item.Position,
		})
	}

	err = s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		number, err := tx.NextDocumentNumber(ctx, tenantID, models.DocumentKindInvoice)
		if err != nil {
			return err
		}
		invoice.Number = number
		return tx.CreateInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert quote: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"quoteId":   quote.ID,
		"invoiceId": invoice.ID,
		"number":    invoice.Number,
	}).Info("Quote converted to invoice")
	s.publisher.PublishQuoteEvent(events.QuoteConverted, quote)
	s.publisher.PublishInvoiceEvent(events.InvoiceCreated, invoice)

	return invoice, nil
}
