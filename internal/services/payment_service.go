package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"billing-service/internal/events"
	"billing-service/internal/models"
	"billing-service/internal/repository"
)

// PaymentService is the payment ledger: payments and refunds against
// invoices. Every mutation locks the invoice row, applies the change and
// persists the recomputed invoice status in one transaction, so two
// concurrent payments can never both read the same balance.
type PaymentService struct {
	repo      repository.BillingRepositoryInterface
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPaymentService creates a new payment service
func NewPaymentService(repo repository.BillingRepositoryInterface, publisher *events.Publisher, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "payment-service"),
	}
}

// RecordPayment records a payment against an invoice. Card and wallet
// payments settle synchronously and land as COMPLETED; bank transfers land as
// PENDING until ConfirmPayment reports the outcome. Overpayment is accepted
// and recorded; the balance simply goes negative.
func (s *PaymentService) RecordPayment(ctx context.Context, tenantID string, req *models.RecordPaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	status := models.PaymentCompleted
	if req.Method == models.MethodBankTransfer {
		status = models.PaymentPending
	}

	payment := &models.Payment{
		TenantID:      tenantID,
		InvoiceID:     req.InvoiceID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        status,
		TransactionID: req.TransactionID,
	}
	if status == models.PaymentCompleted {
		now := time.Now()
		payment.CompletedAt = &now
	}

	var invoice *models.Invoice
	var priorStatus models.InvoiceStatus
	err := s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		var err error
		invoice, err = tx.GetInvoiceForUpdate(ctx, tenantID, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == models.InvoiceCancelled {
			return models.ErrInvoiceVoided
		}
		priorStatus = invoice.Status
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		return s.syncInvoiceStatus(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"invoiceId": req.InvoiceID,
		"paymentId": payment.ID,
		"amount":    payment.Amount,
		"method":    payment.Method,
		"status":    payment.Status,
	}).Info("Payment recorded")
	s.publisher.PublishPaymentEvent(events.PaymentRecorded, payment)
	if payment.Status == models.PaymentCompleted {
		s.publisher.PublishPaymentEvent(events.PaymentCompleted, payment)
	}
	if invoice.Status == models.InvoicePaid && priorStatus != models.InvoicePaid {
		s.publisher.PublishInvoiceEvent(events.InvoicePaid, invoice)
	}

	return payment, nil
}

// ConfirmPayment settles a pending payment once the external collaborator
// reports the outcome. Defaults to COMPLETED when no status is given.
func (s *PaymentService) ConfirmPayment(ctx context.Context, tenantID string, paymentID uuid.UUID, req *models.ConfirmPaymentRequest) (*models.Payment, error) {
	target := models.PaymentCompleted
	if req.Status != "" {
		target = req.Status
	}

	var payment *models.Payment
	var invoice *models.Invoice
	var priorStatus models.InvoiceStatus
	err := s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		var err error
		payment, err = tx.GetPayment(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentPending {
			return fmt.Errorf("%w: payment is %s, only PENDING payments can be confirmed",
				models.ErrInvalidTransition, payment.Status)
		}

		invoice, err = tx.GetInvoiceForUpdate(ctx, tenantID, payment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == models.InvoiceCancelled {
			return models.ErrInvoiceVoided
		}
		priorStatus = invoice.Status

		payment.Status = target
		if req.TransactionID != "" {
			payment.TransactionID = req.TransactionID
		}
		if target == models.PaymentCompleted {
			now := time.Now()
			payment.CompletedAt = &now
		}
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.syncInvoiceStatus(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	if target == models.PaymentCompleted {
		s.publisher.PublishPaymentEvent(events.PaymentCompleted, payment)
	} else {
		s.publisher.PublishPaymentEvent(events.PaymentFailed, payment)
	}
	if invoice.Status == models.InvoicePaid && priorStatus != models.InvoicePaid {
		s.publisher.PublishInvoiceEvent(events.InvoicePaid, invoice)
	}
	return payment, nil
}

// RefundPayment refunds part or all of a completed payment. A nil amount
// refunds the full remaining balance of the payment. When the payment is
// fully refunded its status flips to REFUNDED, and the invoice status falls
// back to whatever the remaining ledger supports.
func (s *PaymentService) RefundPayment(ctx context.Context, tenantID string, paymentID uuid.UUID, req *models.RefundPaymentRequest) (*models.Refund, error) {
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var refund *models.Refund
	var payment *models.Payment
	err := s.repo.WithTransaction(ctx, func(tx repository.BillingRepositoryInterface) error {
		var err error
		payment, err = tx.GetPayment(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentCompleted && payment.Status != models.PaymentRefunded {
			return fmt.Errorf("%w: only completed payments can be refunded, payment is %s",
				models.ErrInvalidTransition, payment.Status)
		}

		invoice, err := tx.GetInvoiceForUpdate(ctx, tenantID, payment.InvoiceID)
		if err != nil {
			return err
		}

		refundable := payment.Refundable()
		amount := refundable
		if req.Amount != nil {
			amount = *req.Amount
		}
		if amount > refundable {
			return models.ErrExceedsRefundable
		}
		if amount <= 0 {
			return models.ErrExceedsRefundable
		}

		refund = &models.Refund{
			TenantID:  tenantID,
			PaymentID: payment.ID,
			Amount:    amount,
			Reason:    req.Reason,
		}
		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}

		payment.Refunds = append(payment.Refunds, *refund)
		if payment.Refundable() == 0 && payment.Status != models.PaymentRefunded {
			payment.Status = models.PaymentRefunded
			if err := tx.UpdatePayment(ctx, payment); err != nil {
				return err
			}
		}
		return s.syncInvoiceStatus(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenantId":  tenantID,
		"paymentId": payment.ID,
		"refundId":  refund.ID,
		"amount":    refund.Amount,
	}).Info("Payment refunded")
	s.publisher.PublishPaymentEvent(events.PaymentRefunded, payment)

	return refund, nil
}

// GetPayment fetches a payment with its refunds
func (s *PaymentService) GetPayment(ctx context.Context, tenantID string, paymentID uuid.UUID) (*models.Payment, error) {
	return s.repo.GetPayment(ctx, tenantID, paymentID)
}

// ListPayments lists payments with pagination and an optional status filter
func (s *PaymentService) ListPayments(ctx context.Context, tenantID string, status models.PaymentStatus, page, limit int) ([]models.Payment, int64, error) {
	return s.repo.ListPayments(ctx, tenantID, status, page, limit)
}

// syncInvoiceStatus recomputes the ledger-derived invoice status inside the
// mutating transaction, while the invoice row lock is held.
func (s *PaymentService) syncInvoiceStatus(ctx context.Context, tx repository.BillingRepositoryInterface, invoice *models.Invoice) error {
	payments, err := tx.ListPaymentsByInvoice(ctx, invoice.TenantID, invoice.ID)
	if err != nil {
		return err
	}
	refunds, err := tx.ListRefundsByInvoice(ctx, invoice.TenantID, invoice.ID)
	if err != nil {
		return err
	}

	derived := models.DeriveInvoiceStatus(invoice, payments, refunds, time.Now())
	if derived == invoice.Status {
		return nil
	}
	invoice.Status = derived
	return tx.UpdateInvoice(ctx, invoice)
}
