package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"billing-service/internal/models"
)

// BillingRepositoryInterface is the storage contract used by the billing
// services. Every read and write is tenant-scoped; an id that exists in
// another tenant behaves exactly like one that does not exist at all.
type BillingRepositoryInterface interface {
	// WithTransaction runs fn against a transaction-scoped repository.
	// Ledger mutations pair it with GetInvoiceForUpdate so the
	// read-validate-write sequence holds the invoice row lock.
	WithTransaction(ctx context.Context, fn func(tx BillingRepositoryInterface) error) error

	NextDocumentNumber(ctx context.Context, tenantID string, kind models.DocumentKind) (string, error)

	CreateQuote(ctx context.Context, quote *models.Quote) error
	GetQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error)
	ListQuotes(ctx context.Context, tenantID string, status models.QuoteStatus, page, limit int) ([]models.Quote, int64, error)
	UpdateQuote(ctx context.Context, quote *models.Quote) error
	DeleteQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) error

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error)
	GetInvoiceByQuoteID(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus, page, limit int) ([]models.Invoice, int64, error)
	UpdateInvoice(ctx context.Context, invoice *models.Invoice) error
	DeleteInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) error

	ReplaceLineItems(ctx context.Context, tenantID string, kind models.DocumentKind, documentID uuid.UUID, items []models.LineItem) error

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, tenantID string, paymentID uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, tenantID string, status models.PaymentStatus, page, limit int) ([]models.Payment, int64, error)
	ListPaymentsByInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error

	CreateRefund(ctx context.Context, refund *models.Refund) error
	ListRefundsByInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]models.Refund, error)
}

// BillingRepository is the gorm-backed implementation
type BillingRepository struct {
	db *gorm.DB
}

var _ BillingRepositoryInterface = (*BillingRepository)(nil)

// NewBillingRepository creates a new billing repository
func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// WithTransaction runs fn inside a database transaction
func (r *BillingRepository) WithTransaction(ctx context.Context, fn func(tx BillingRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BillingRepository{db: tx})
	})
}

// documentNumberPrefixes maps a document kind to its human-readable prefix
var documentNumberPrefixes = map[models.DocumentKind]string{
	models.DocumentKindQuote:   "QUO",
	models.DocumentKindInvoice: "INV",
}

// NextDocumentNumber allocates the next sequence number for a tenant and
// document kind. The upsert increments the counter atomically at the storage
// layer, so concurrent allocations across process instances are serialized and
// a number is never handed out twice. Format: QUO-00000001 / INV-00000001.
func (r *BillingRepository) NextDocumentNumber(ctx context.Context, tenantID string, kind models.DocumentKind) (string, error) {
	prefix, ok := documentNumberPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown document kind %q", kind)
	}

	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO document_sequences (id, tenant_id, kind, last_value, updated_at)
		VALUES (gen_random_uuid(), ?, ?, 1, NOW())
		ON CONFLICT (tenant_id, kind)
		DO UPDATE SET last_value = document_sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value`,
		tenantID, kind,
	).Scan(&next).Error
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", prefix, err)
	}

	return fmt.Sprintf("%s-%08d", prefix, next), nil
}

// CreateQuote creates a new quote with its line items
func (r *BillingRepository) CreateQuote(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

// GetQuote gets a quote by ID within the tenant scope
func (r *BillingRepository) GetQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("tenant_id = ?", tenantID).
		First(&quote, "id = ?", quoteID).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &quote, nil
}

// ListQuotes lists quotes for a tenant with pagination and optional status filter
func (r *BillingRepository) ListQuotes(ctx context.Context, tenantID string, status models.QuoteStatus, page, limit int) ([]models.Quote, int64, error) {
	var quotes []models.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Quote{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// UpdateQuote updates a quote
func (r *BillingRepository) UpdateQuote(ctx context.Context, quote *models.Quote) error {
	quote.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Omit("Items").Save(quote).Error
}

// DeleteQuote deletes a quote and its line items
func (r *BillingRepository) DeleteQuote(ctx context.Context, tenantID string, quoteID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND document_type = ? AND document_id = ?",
			tenantID, models.DocumentKindQuote, quoteID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ?", tenantID).Delete(&models.Quote{}, "id = ?", quoteID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// CreateInvoice creates a new invoice with its line items
func (r *BillingRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return translateQuoteConflict(err)
	}
	return nil
}

// GetInvoice gets an invoice by ID within the tenant scope
func (r *BillingRepository) GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("tenant_id = ?", tenantID).
		First(&invoice, "id = ?", invoiceID).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &invoice, nil
}

// GetInvoiceForUpdate locks the invoice row for the duration of the enclosing
// transaction. Line items are loaded separately; the lock only needs the
// invoice row itself.
func (r *BillingRepository) GetInvoiceForUpdate(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&invoice, "id = ?", invoiceID).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &invoice, nil
}

// GetInvoiceByQuoteID finds the invoice converted from a quote, if any.
// Conversion lineage is detected by this query, not by a flag on the quote.
func (r *BillingRepository) GetInvoiceByQuoteID(ctx context.Context, tenantID string, quoteID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND quote_id = ?", tenantID, quoteID).
		First(&invoice).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &invoice, nil
}

// ListInvoices lists invoices for a tenant with pagination and optional status filter
func (r *BillingRepository) ListInvoices(ctx context.Context, tenantID string, status models.InvoiceStatus, page, limit int) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// UpdateInvoice updates an invoice
func (r *BillingRepository) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	invoice.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Omit("Items").Save(invoice).Error
}

// DeleteInvoice deletes an invoice, its line items and any PENDING/FAILED
// payment rows. Callers enforce the no-completed-payments guard first.
func (r *BillingRepository) DeleteInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND document_type = ? AND document_id = ?",
			tenantID, models.DocumentKindInvoice, invoiceID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
			Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ?", tenantID).Delete(&models.Invoice{}, "id = ?", invoiceID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// ReplaceLineItems swaps the full line item set of a document
func (r *BillingRepository) ReplaceLineItems(ctx context.Context, tenantID string, kind models.DocumentKind, documentID uuid.UUID, items []models.LineItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND document_type = ? AND document_id = ?",
			tenantID, kind, documentID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].TenantID = tenantID
			items[i].DocumentType = string(kind)
			items[i].DocumentID = documentID
			items[i].Position = i
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// CreatePayment creates a new payment
func (r *BillingRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetPayment gets a payment by ID within the tenant scope, refunds included
func (r *BillingRepository) GetPayment(ctx context.Context, tenantID string, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Refunds").
		Where("tenant_id = ?", tenantID).
		First(&payment, "id = ?", paymentID).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &payment, nil
}

// ListPayments lists payments for a tenant with pagination and optional status filter
func (r *BillingRepository) ListPayments(ctx context.Context, tenantID string, status models.PaymentStatus, page, limit int) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Refunds").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ListPaymentsByInvoice lists all payments recorded against an invoice
func (r *BillingRepository) ListPaymentsByInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Preload("Refunds").
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// UpdatePayment updates a payment
func (r *BillingRepository) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Omit("Refunds").Save(payment).Error
}

// CreateRefund creates a new refund
func (r *BillingRepository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// ListRefundsByInvoice lists all refunds against an invoice's payments
func (r *BillingRepository) ListRefundsByInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.WithContext(ctx).
		Joins("JOIN payments ON payments.id = refunds.payment_id").
		Where("refunds.tenant_id = ? AND payments.invoice_id = ?", tenantID, invoiceID).
		Order("refunds.created_at ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

// translateNotFound maps gorm's not-found to the domain error so handlers can
// return 404 without leaking cross-tenant existence.
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

// translateQuoteConflict maps a unique violation on the quote lineage index to
// the domain error. Two concurrent converts can both pass the lineage read;
// the loser's insert trips idx_invoices_quote and must surface as a conflict,
// not an internal error.
func translateQuoteConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_invoices_quote" {
		return models.ErrAlreadyConverted
	}
	return err
}
