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

// InvoiceService implements the invoice lifecycle. PAID, PARTIAL and OVERDUE
// are never assigned here directly; they fall out of the payment ledger via
// DeriveInvoiceStatus.
type InvoiceService struct {
	repo      repository.BillingRepositoryInterface
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(repo repository.BillingRepositoryInterface, publisher *events.Publisher, logger *logrus.Logger) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "invoice-service"),
	}
}

// CreateInvoice creates a new DRAFT invoice, either standalone or from an
// accepted quote. When a quoteId is given and no items are supplied, the
// quote's items and totals are copied over.
func (s *InvoiceService) CreateInvoice(ctx context.Context, tenantID string, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	invoice := &models.Invoice{
		TenantID:  tenantID,
		ContactID: req.ContactID,
		CompanyID: req.CompanyID,
		Status:    models.InvoiceDraft,
		DueDate:   req.DueDate,
		Notes:     req.Notes,
	}
	if req.DocumentDiscount != nil {
		invoice.DocumentDiscount = *req.DocumentDiscount
	}
	if req.DocumentTaxRate != nil {
		invoice.DocumentTaxRate = *req.DocumentTaxRate
	}
	if req.GST != nil {
		invoice.GST = &models.GSTDetails{
			InvoiceType:     req.GST.InvoiceType,
			SupplyType:      req.GST.SupplyType,
			BuyerGSTIN:      req.GST.BuyerGSTIN,
			PlaceOfSupply:   req.GST.PlaceOfSupply,
			IsReverseCharge: req.GST.IsReverseCharge,
			TransportMode:   req.GST.TransportMode,
			TransporterID:   req.GST.TransporterID,
			VehicleNumber:   req.GST.VehicleNumber,
			EWayBillNumber:  req.GST.EWayBillNumber,
		}
	}

	if req.QuoteID != nil {
		quote, err := s.repo.GetQuote(ctx, tenantID, *req.QuoteID)
		if err != nil {
			return nil, err
		}
		if quote.Status != models.QuoteAccepted {
			return nil, fmt.Errorf("%w: quote must be ACCEPTED to invoice, is %s", models.ErrInvalidTransition, quote.Status)
		}
		if _, err := s.repo.GetInvoiceByQuoteID(ctx, tenantID, *req.QuoteID); err == nil {
			return nil, models.ErrAlreadyConverted
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		invoice.QuoteID = req.QuoteID
		if invoice.ContactID == nil {
			invoice.ContactID = quote.ContactID
		}
		if invoice.CompanyID == nil {
			invoice.CompanyID = quote.CompanyID
		}
		if len(req.Items) == 0 {
			for _, item := range quote.Items {
				req.Items = append(req.Items, models.LineItemInput{
					Description:      item.Description,
					Quantity:         item.Quantity,
					UnitPrice:        item.UnitPrice,
					DiscountPercent:  item.DiscountPercent,
					TaxCategoryCode:  item.TaxCategoryCode,
					Unit:             item.Unit,
					PrimaryTaxRate:   item.PrimaryTaxRate,
					SecondaryTaxRate: item.SecondaryTaxRate,
				})
			}
			if req.DocumentDiscount == nil {
				invoice.DocumentDiscount = quote.DocumentDiscount
			}
			if req.DocumentTaxRate == nil {
				invoice.DocumentTaxRate = quote.DocumentTaxRate
			}
		}
	}

	if len(req.Items) == 0 {
		return nil, models.NewValidationError("items", "at least one line item is required")
	}

	items, err := buildLineItems(tenantID, req.Items)
	if err != nil {
		return nil, err
	}
	invoice.Items = items

	totals, err := ComputeTotals(invoice.Items, invoice.DocumentDiscount, invoice.DocumentTaxRate)
	if err != nil {
		return nil, err
	}
	ApplyInvoiceTotals(invoice, totals)

	err = s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		number, err := tx.NextDocumentNumber(ctx, tenantID, models.DocumentKindInvoice)
		if err != nil {
			return err
		}
		invoice.Number = number
		return tx.CreateInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"invoiceId": invoice.ID,
		"number":    invoice.Number,
		"total":     invoice.Total,
	}).Info("Invoice created")
	s.publisher.PublishInvoiceEvent(events.InvoiceCreated, invoice)

	return invoice, nil
}

// GetInvoice fetches an invoice with its derived status refreshed. An unpaid
// invoice past its due date surfaces as OVERDUE here rather than by a
// background job; the refreshed status is persisted when it changed.
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.refreshStatus(ctx, invoice), nil
}

// ListInvoices lists invoices with pagination and an optional status filter
func (s *InvoiceService) ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus, page, limit int) ([]models.Invoice, int64, error) {
	invoices, total, err := s.repo.ListInvoices(ctx, tenantID, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range invoices {
		invoices[i] = *s.refreshStatus(ctx, &invoices[i])
	}
	return invoices, total, nil
}

// refreshStatus recomputes the ledger-derived status and persists it when the
// stored value is stale (typically the OVERDUE flip at the due date).
func (s *InvoiceService) refreshStatus(ctx context.Context, invoice *models.Invoice) *models.Invoice {
	payments, err := s.repo.ListPaymentsByInvoice(ctx, invoice.TenantID, invoice.ID)
	if err != nil {
		s.logger.WithError(err).WithField("invoiceId", invoice.ID).Warn("Failed to load payments for status refresh")
		return invoice
	}
	refunds, err := s.repo.ListRefundsByInvoice(ctx, invoice.TenantID, invoice.ID)
	if err != nil {
		s.logger.WithError(err).WithField("invoiceId", invoice.ID).Warn("Failed to load refunds for status refresh")
		return invoice
	}

	derived := models.DeriveInvoiceStatus(invoice, payments, refunds, time.Now())
	if derived != invoice.Status {
		invoice.Status = derived
		if err := s.repo.UpdateInvoice(ctx, invoice); err != nil {
			s.logger.WithError(err).WithField("invoiceId", invoice.ID).Warn("Failed to persist refreshed invoice status")
		}
	}
	return invoice
}

// SendInvoice marks an invoice as sent
func (s *InvoiceService) SendInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateInvoiceStatusTransition(invoice.Status, models.InvoiceSent); err != nil {
		return nil, err
	}

	now := time.Now()
	invoice.Status = models.InvoiceSent
	invoice.SentAt = &now
	if err := s.repo.UpdateInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}

	s.publisher.PublishInvoiceEvent(events.InvoiceSent, invoice)
	return invoice, nil
}

// MarkInvoiceViewed records that the recipient opened the invoice. Idempotent.
func (s *InvoiceService) MarkInvoiceViewed(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.ViewedAt != nil {
		return invoice, nil
	}
	if err := models.ValidateInvoiceStatusTransition(invoice.Status, models.InvoiceViewed); err != nil {
		return nil, err
	}

	now := time.Now()
	invoice.Status = models.InvoiceViewed
	invoice.ViewedAt = &now
	if err := s.repo.UpdateInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to mark invoice viewed: %w", err)
	}

	s.publisher.PublishInvoiceEvent(events.InvoiceViewed, invoice)
	return invoice, nil
}

// UpdateInvoice updates invoice fields. Once any payment row exists against
// the invoice its financial content is locked; line items are editable only
// while the invoice is DRAFT or SENT.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID, req *models.UpdateInvoiceRequest) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceCancelled {
		return nil, models.ErrInvoiceVoided
	}

	if req.HasItemChanges() {
		payments, err := s.repo.ListPaymentsByInvoice(ctx, tenantID, invoiceID)
		if err != nil {
			return nil, err
		}
		if len(payments) > 0 {
			return nil, models.ErrLedgerLocked
		}
		if !models.InvoiceItemsEditable(invoice.Status) {
			return nil, models.ErrImmutableDocument
		}
	}

	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}
	if req.DueDate != nil {
		invoice.DueDate = *req.DueDate
	}
	if req.DocumentDiscount != nil {
		invoice.DocumentDiscount = *req.DocumentDiscount
	}
	if req.DocumentTaxRate != nil {
		invoice.DocumentTaxRate = *req.DocumentTaxRate
	}

	items := invoice.Items
	if req.Items != nil {
		items, err = buildLineItems(tenantID, req.Items)
		if err != nil {
			return nil, err
		}
	}

	if req.HasItemChanges() {
		totals, err := ComputeTotals(items, invoice.DocumentDiscount, invoice.DocumentTaxRate)
		if err != nil {
			return nil, err
		}
		ApplyInvoiceTotals(invoice, totals)
	}

	err = s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		if req.Items != nil {
			if err := tx.ReplaceLineItems(ctx, tenantID, models.DocumentKindInvoice, invoice.ID, items); err != nil {
				return err
			}
		}
		return tx.UpdateInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	invoice.Items = items

	s.publisher.PublishInvoiceEvent(events.InvoiceUpdated, invoice)
	return invoice, nil
}

// VoidInvoice cancels an invoice. An invoice with a completed payment that has
// not been fully refunded cannot be voided.
func (s *InvoiceService) VoidInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		var err error
		invoice, err = tx.GetInvoiceForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == models.InvoiceCancelled {
			return models.ErrInvoiceVoided
		}

		payments, err := tx.ListPaymentsByInvoice(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		for i := range payments {
			p := &payments[i]
			if p.Status == models.PaymentCompleted && p.Refundable() > 0 {
				return models.ErrHasActivePayments
			}
		}

		now := time.Now()
		invoice.Status = models.InvoiceCancelled
		invoice.VoidedAt = &now
		return tx.UpdateInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"invoiceId": invoice.ID,
		"number":    invoice.Number,
	}).Info("Invoice voided")
	s.publisher.PublishInvoiceEvent(events.InvoiceVoided, invoice)
	return invoice, nil
}

// DeleteInvoice removes an invoice. An invoice with any completed or refunded
// payment is part of the financial record and cannot be deleted.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) error {
	invoice, err := s.repo.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}

	payments, err := s.repo.ListPaymentsByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	for i := range payments {
		if models.CountsTowardBalance(&payments[i]) {
			return models.ErrHasActivePayments
		}
	}

	if err := s.repo.DeleteInvoice(ctx, tenantID, invoiceID); err != nil {
		return err
	}
	s.publisher.PublishInvoiceEvent(events.InvoiceDeleted, invoice)
	return nil
}

// GetInvoiceBalance returns the ledger view of an invoice: total, paid,
// refunded and the outstanding balance.
func (s *InvoiceService) GetInvoiceBalance(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.InvoiceBalance, error) {
	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	refunds, err := s.repo.ListRefundsByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	var paid, refunded int64
	for i := range payments {
		if models.CountsTowardBalance(&payments[i]) {
			paid += payments[i].Amount
		}
	}
	for _, r := range refunds {
		refunded += r.Amount
	}

	return &models.InvoiceBalance{
		InvoiceID: invoice.ID,
		Total:     invoice.Total,
		Paid:      paid,
		Refunded:  refunded,
		Balance:   models.LedgerBalance(invoice.Total, payments, refunds),
		Status:    invoice.Status,
	}, nil
}
