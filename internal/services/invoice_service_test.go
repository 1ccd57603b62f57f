package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"billing-service/internal/models"
)

func newInvoiceService(repo *MockBillingRepository) *InvoiceService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewInvoiceService(repo, nil, logger)
}

func noLedger(mockRepo *MockBillingRepository, ctx context.Context, tenantID string, invoiceID uuid.UUID) {
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoiceID).Return([]models.Payment{}, nil)
	mockRepo.On("ListRefundsByInvoice", ctx, tenantID, invoiceID).Return([]models.Refund{}, nil)
}

func TestCreateInvoice_RequiresItems(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	contactID := uuid.New()
	_, err := service.CreateInvoice(ctx, "tenant-123", &models.CreateInvoiceRequest{
		ContactID: &contactID,
		DueDate:   time.Now().AddDate(0, 0, 14),
	})
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "items", validationErr.Field)
	mockRepo.AssertNotCalled(t, "CreateInvoice")
}

func TestCreateInvoice_Standalone(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	mockRepo.On("NextDocumentNumber", ctx, tenantID, models.DocumentKindInvoice).
		Return("INV-00000001", nil)
	mockRepo.On("CreateInvoice", ctx, mock.AnythingOfType("*models.Invoice")).Return(nil)

	contactID := uuid.New()
	invoice, err := service.CreateInvoice(ctx, tenantID, &models.CreateInvoiceRequest{
		ContactID: &contactID,
		DueDate:   time.Now().AddDate(0, 0, 14),
		Items: []models.LineItemInput{
			{
				Description:     "Consulting",
				Quantity:        decimal.NewFromInt(2),
				UnitPrice:       10000,
				DiscountPercent: decimal.NewFromInt(10),
				PrimaryTaxRate:  decimal.NewFromInt(18),
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-00000001", invoice.Number)
	assert.Equal(t, models.InvoiceDraft, invoice.Status)
	assert.Nil(t, invoice.QuoteID)
	assert.Equal(t, int64(20000), invoice.Subtotal)
	assert.Equal(t, int64(2000), invoice.TotalDiscount)
	assert.Equal(t, int64(3240), invoice.TotalTax)
	assert.Equal(t, int64(21240), invoice.Total)
	mockRepo.AssertExpectations(t)
}

func TestCreateInvoice_FromAcceptedQuote(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	quote := testQuote(tenantID, models.QuoteAccepted)
	mockRepo.On("GetQuote", ctx, tenantID, quote.ID).Return(quote, nil)
	mockRepo.On("GetInvoiceByQuoteID", ctx, tenantID, quote.ID).Return(nil, models.ErrNotFound)
	mockRepo.On("NextDocumentNumber", ctx, tenantID, models.DocumentKindInvoice).
		Return("INV-00000002", nil)
	mockRepo.On("CreateInvoice", ctx, mock.AnythingOfType("*models.Invoice")).Return(nil)

	invoice, err := service.CreateInvoice(ctx, tenantID, &models.CreateInvoiceRequest{
		QuoteID: &quote.ID,
		DueDate: time.Now().AddDate(0, 0, 14),
	})
	require.NoError(t, err)

	assert.Equal(t, &quote.ID, invoice.QuoteID)
	assert.Equal(t, quote.ContactID, invoice.ContactID)
	require.Len(t, invoice.Items, 1)
	assert.Equal(t, "Support plan", invoice.Items[0].Description)
	assert.Equal(t, quote.Total, invoice.Total)
	mockRepo.AssertExpectations(t)
}

func TestCreateInvoice_QuoteMustBeAccepted(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	quote := testQuote(tenantID, models.QuoteSent)
	mockRepo.On("GetQuote", ctx, tenantID, quote.ID).Return(quote, nil)

	_, err := service.CreateInvoice(ctx, tenantID, &models.CreateInvoiceRequest{
		QuoteID: &quote.ID,
		DueDate: time.Now().AddDate(0, 0, 14),
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCreateInvoice_QuoteAlreadyConverted(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	quote := testQuote(tenantID, models.QuoteAccepted)
	existing := &models.Invoice{ID: uuid.New(), TenantID: tenantID, QuoteID: &quote.ID}
	mockRepo.On("GetQuote", ctx, tenantID, quote.ID).Return(quote, nil)
	mockRepo.On("GetInvoiceByQuoteID", ctx, tenantID, quote.ID).Return(existing, nil)

	_, err := service.CreateInvoice(ctx, tenantID, &models.CreateInvoiceRequest{
		QuoteID: &quote.ID,
		DueDate: time.Now().AddDate(0, 0, 14),
	})
	assert.ErrorIs(t, err, models.ErrAlreadyConverted)
	mockRepo.AssertNotCalled(t, "CreateInvoice")
}

func TestGetInvoice_PersistsOverdueFlip(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceSent, 21240)
	invoice.DueDate = time.Now().AddDate(0, 0, -1)
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	noLedger(mockRepo, ctx, tenantID, invoice.ID)
	mockRepo.On("UpdateInvoice", ctx, invoice).Return(nil)

	got, err := service.GetInvoice(ctx, tenantID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceOverdue, got.Status)
	mockRepo.AssertExpectations(t)
}

func TestUpdateInvoice_VoidedIsRejected(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceCancelled, 21240)
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	noLedger(mockRepo, ctx, tenantID, invoice.ID)

	notes := "updated"
	_, err := service.UpdateInvoice(ctx, tenantID, invoice.ID, &models.UpdateInvoiceRequest{Notes: &notes})
	assert.ErrorIs(t, err, models.ErrInvoiceVoided)
}

func TestUpdateInvoice_ItemsLockedOncePaymentsExist(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceSent, 21240)
	// A pending payment does not move the derived status but still locks the
	// financial content.
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{
		{InvoiceID: invoice.ID, Amount: 5000, Status: models.PaymentPending},
	}, nil)
	mockRepo.On("ListRefundsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Refund{}, nil)

	_, err := service.UpdateInvoice(ctx, tenantID, invoice.ID, &models.UpdateInvoiceRequest{
		Items: []models.LineItemInput{
			{Description: "Changed", Quantity: decimal.NewFromInt(1), UnitPrice: 500},
		},
	})
	assert.ErrorIs(t, err, models.ErrLedgerLocked)
	mockRepo.AssertNotCalled(t, "ReplaceLineItems")
}

func TestUpdateInvoice_ItemsLockedAfterViewed(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	viewedAt := time.Now().Add(-time.Hour)
	invoice := ledgerInvoice(tenantID, models.InvoiceViewed, 21240)
	invoice.ViewedAt = &viewedAt
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	noLedger(mockRepo, ctx, tenantID, invoice.ID)

	_, err := service.UpdateInvoice(ctx, tenantID, invoice.ID, &models.UpdateInvoiceRequest{
		Items: []models.LineItemInput{
			{Description: "Changed", Quantity: decimal.NewFromInt(1), UnitPrice: 500},
		},
	})
	assert.ErrorIs(t, err, models.ErrImmutableDocument)
}

func TestUpdateInvoice_NotesEditableAfterViewed(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	viewedAt := time.Now().Add(-time.Hour)
	invoice := ledgerInvoice(tenantID, models.InvoiceViewed, 21240)
	invoice.ViewedAt = &viewedAt
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	noLedger(mockRepo, ctx, tenantID, invoice.ID)
	mockRepo.On("UpdateInvoice", ctx, invoice).Return(nil)

	notes := "wire reference 4711"
	updated, err := service.UpdateInvoice(ctx, tenantID, invoice.ID, &models.UpdateInvoiceRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, int64(21240), updated.Total, "metadata edits never touch totals")
}

func TestVoidInvoice_UnpaidInvoice(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceSent, 21240)
	mockRepo.On("GetInvoiceForUpdate", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{}, nil)
	mockRepo.On("UpdateInvoice", ctx, invoice).Return(nil)

	voided, err := service.VoidInvoice(ctx, tenantID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, voided.Status)
	assert.NotNil(t, voided.VoidedAt)
}

func TestVoidInvoice_ActivePaymentBlocksVoid(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoicePartial, 21240)
	mockRepo.On("GetInvoiceForUpdate", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{
		{InvoiceID: invoice.ID, Amount: 10000, Status: models.PaymentCompleted},
	}, nil)

	_, err := service.VoidInvoice(ctx, tenantID, invoice.ID)
	assert.ErrorIs(t, err, models.ErrHasActivePayments)
	mockRepo.AssertNotCalled(t, "UpdateInvoice")
}

func TestVoidInvoice_FullyRefundedPaymentAllowsVoid(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceSent, 21240)
	mockRepo.On("GetInvoiceForUpdate", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{
		{
			InvoiceID: invoice.ID,
			Amount:    10000,
			Status:    models.PaymentRefunded,
			Refunds:   []models.Refund{{Amount: 10000}},
		},
	}, nil)
	mockRepo.On("UpdateInvoice", ctx, invoice).Return(nil)

	voided, err := service.VoidInvoice(ctx, tenantID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, voided.Status)
}

func TestVoidInvoice_AlreadyVoided(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceCancelled, 21240)
	mockRepo.On("GetInvoiceForUpdate", ctx, tenantID, invoice.ID).Return(invoice, nil)

	_, err := service.VoidInvoice(ctx, tenantID, invoice.ID)
	assert.ErrorIs(t, err, models.ErrInvoiceVoided)
}

func TestDeleteInvoice_CountedPaymentBlocksDelete(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoicePartial, 21240)
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{
		{InvoiceID: invoice.ID, Amount: 10000, Status: models.PaymentCompleted},
	}, nil)
	mockRepo.On("ListRefundsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Refund{}, nil)
	mockRepo.On("UpdateInvoice", ctx, invoice).Return(nil).Maybe()

	err := service.DeleteInvoice(ctx, tenantID, invoice.ID)
	assert.ErrorIs(t, err, models.ErrHasActivePayments)
	mockRepo.AssertNotCalled(t, "DeleteInvoice")
}

func TestDeleteInvoice_FailedPaymentsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoiceSent, 21240)
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{
		{InvoiceID: invoice.ID, Amount: 10000, Status: models.PaymentFailed},
	}, nil)
	mockRepo.On("DeleteInvoice", ctx, tenantID, invoice.ID).Return(nil)

	err := service.DeleteInvoice(ctx, tenantID, invoice.ID)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestGetInvoiceBalance(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockRepo := new(MockBillingRepository)
	service := newInvoiceService(mockRepo)

	invoice := ledgerInvoice(tenantID, models.InvoicePartial, 21240)
	mockRepo.On("GetInvoice", ctx, tenantID, invoice.ID).Return(invoice, nil)
	mockRepo.On("ListPaymentsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Payment{
		{InvoiceID: invoice.ID, Amount: 10000, Status: models.PaymentCompleted},
		{InvoiceID: invoice.ID, Amount: 5000, Status: models.PaymentPending},
	}, nil)
	mockRepo.On("ListRefundsByInvoice", ctx, tenantID, invoice.ID).Return([]models.Refund{
		{Amount: 2000},
	}, nil)

	balance, err := service.GetInvoiceBalance(ctx, tenantID, invoice.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(21240), balance.Total)
	assert.Equal(t, int64(10000), balance.Paid, "pending payments do not count")
	assert.Equal(t, int64(2000), balance.Refunded)
	assert.Equal(t, int64(13240), balance.Balance)
	assert.Equal(t, models.InvoicePartial, balance.Status)
}
