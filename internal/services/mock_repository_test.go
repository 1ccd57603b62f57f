package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"billing-service/internal/models"
	"billing-service/internal/repository"
)

// MockBillingRepository is a mock implementation of BillingRepositoryInterface
type MockBillingRepository struct {
	mock.Mock
}

// Ensure MockBillingRepository implements the interface
var _ repository.BillingRepositoryInterface = (*MockBillingRepository)(nil)

// WithTransaction executes the callback with the mock itself, simulating a
// transaction so business logic can be tested without a database.
func (m *MockBillingRepository) WithTransaction(ctx context.Context, fn func(tx repository.BillingRepositoryInterface) error) error {
	return fn(m)
}

func (m *MockBillingRepository) NextDocumentNumber(ctx context.Context, tenantID string, kind models.DocumentKind) (string, error) {
	args := m.Called(ctx, tenantID, kind)
	return args.String(0), args.Error(1)
}

func (m *MockBillingRepository) CreateQuote(ctx context.Context, quote *models.Quote) error {
	args := m.Called(ctx, quote)
	if args.Error(0) == nil && quote.ID == uuid.Nil {
		quote.ID = uuid.New()
		quote.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockBillingRepository) GetQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error) {
	args := m.Called(ctx, tenantID, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockBillingRepository) ListQuotes(ctx context.Context, tenantID string, status models.QuoteStatus, page, limit int) ([]models.Quote, int64, error) {
	args := m.Called(ctx, tenantID, status, page, limit)
	return args.Get(0).([]models.Quote), args.Get(1).(int64), args.Error(2)
}

func (m *MockBillingRepository) UpdateQuote(ctx context.Context, quote *models.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockBillingRepository) DeleteQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) error {
	args := m.Called(ctx, tenantID, quoteID)
	return args.Error(0)
}

func (m *MockBillingRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	if args.Error(0) == nil && invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
		invoice.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockBillingRepository) GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockBillingRepository) GetInvoiceForUpdate(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockBillingRepository) GetInvoiceByQuoteID(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockBillingRepository) ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus, page, limit int) ([]models.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, status, page, limit)
	return args.Get(0).([]models.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockBillingRepository) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockBillingRepository) DeleteInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) error {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Error(0)
}

func (m *MockBillingRepository) ReplaceLineItems(ctx context.Context, tenantID string, kind models.DocumentKind, documentID uuid.UUID, items []models.LineItem) error {
	args := m.Called(ctx, tenantID, kind, documentID, items)
	return args.Error(0)
}

func (m *MockBillingRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	if args.Error(0) == nil && payment.ID == uuid.Nil {
		payment.ID = uuid.New()
		payment.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockBillingRepository) GetPayment(ctx context.Context, tenantID string, paymentID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockBillingRepository) ListPayments(ctx context.Context, tenantID string, status models.PaymentStatus, page, limit int) ([]models.Payment, int64, error) {
	args := m.Called(ctx, tenantID, status, page, limit)
	return args.Get(0).([]models.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockBillingRepository) ListPaymentsByInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockBillingRepository) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockBillingRepository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	args := m.Called(ctx, refund)
	if args.Error(0) == nil && refund.ID == uuid.Nil {
		refund.ID = uuid.New()
		refund.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockBillingRepository) ListRefundsByInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]models.Refund, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).([]models.Refund), args.Error(1)
}
