package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind identifies which billing document a line item or sequence belongs to
type DocumentKind string

const (
	DocumentKindQuote   DocumentKind = "QUOTE"
	DocumentKindInvoice DocumentKind = "INVOICE"
)

// QuoteStatus represents the quote lifecycle status
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "DRAFT"
	QuoteSent     QuoteStatus = "SENT"
	QuoteViewed   QuoteStatus = "VIEWED"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
	QuoteExpired  QuoteStatus = "EXPIRED"
)

// InvoiceStatus represents the invoice lifecycle status.
// PAID, PARTIAL and OVERDUE are derived from the payment ledger, never assigned
// directly by callers.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoiceViewed    InvoiceStatus = "VIEWED"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoicePartial   InvoiceStatus = "PARTIAL"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// PaymentStatus represents the payment status
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodWallet       PaymentMethod = "WALLET"
)

// GSTSupplyType and GSTInvoiceType classify a GST tax invoice
type GSTSupplyType string

const (
	SupplyIntrastate GSTSupplyType = "INTRASTATE"
	SupplyInterstate GSTSupplyType = "INTERSTATE"
	SupplyExport     GSTSupplyType = "EXPORT"
)

type GSTInvoiceType string

const (
	GSTInvoiceRegular    GSTInvoiceType = "REGULAR"
	GSTInvoiceBillOfSale GSTInvoiceType = "BILL_OF_SUPPLY"
	GSTInvoiceExport     GSTInvoiceType = "EXPORT"
)

// LineItem is a priced unit within a quote or invoice. All money values are in
// minor currency units (integer cents); fractional values live in decimal
// columns so totals never pass through binary floating point.
type LineItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID        string          `gorm:"type:varchar(255);not null;index:idx_line_items_tenant" json:"tenantId"`
	DocumentType    string          `gorm:"type:varchar(10);not null;index:idx_line_items_document" json:"-"`
	DocumentID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_line_items_document" json:"-"`
	Description     string          `gorm:"type:varchar(500);not null" json:"description"`
	Quantity        decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice       int64           `gorm:"not null" json:"unitPrice"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discountPercent"`

	// Jurisdictional fields
	TaxCategoryCode  string          `gorm:"type:varchar(20)" json:"taxCategoryCode,omitempty"`
	Unit             string          `gorm:"type:varchar(20)" json:"unit,omitempty"`
	PrimaryTaxRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"primaryTaxRate"`
	SecondaryTaxRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"secondaryTaxRate"`

	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for LineItem
func (LineItem) TableName() string {
	return "billing_line_items"
}

// Quote represents a sales quote
type Quote struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID string    `gorm:"type:varchar(255);not null;index:idx_quotes_tenant;uniqueIndex:idx_quotes_tenant_number" json:"tenantId"`
	Number   string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_quotes_tenant_number" json:"number"`
	Title    string    `gorm:"type:varchar(255);not null" json:"title"`

	// External CRM references, at least one must be set
	ContactID *uuid.UUID `gorm:"type:uuid;index:idx_quotes_contact" json:"contactId,omitempty"`
	CompanyID *uuid.UUID `gorm:"type:uuid" json:"companyId,omitempty"`
	DealID    *uuid.UUID `gorm:"type:uuid" json:"dealId,omitempty"`

	Status     QuoteStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_quotes_status" json:"status"`
	ValidUntil *time.Time  `json:"validUntil,omitempty"`

	Items []LineItem `gorm:"polymorphic:Document;polymorphicValue:QUOTE" json:"items"`

	// Document-level discount and tax, applied on top of per-line figures
	DocumentDiscount decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"documentDiscount"`
	DocumentTaxRate  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"documentTaxRate"`

	// Totals in minor units, always recomputed by the tax calculator
	Subtotal      int64 `gorm:"not null;default:0" json:"subtotal"`
	TotalDiscount int64 `gorm:"not null;default:0" json:"totalDiscount"`
	TotalTax      int64 `gorm:"not null;default:0" json:"totalTax"`
	Total         int64 `gorm:"not null;default:0" json:"total"`

	Notes         string `gorm:"type:text" json:"notes,omitempty"`
	DeclineReason string `gorm:"type:varchar(500)" json:"declineReason,omitempty"`

	SentAt     *time.Time `json:"sentAt,omitempty"`
	ViewedAt   *time.Time `json:"viewedAt,omitempty"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	DeclinedAt *time.Time `json:"declinedAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Quote
func (Quote) TableName() string {
	return "quotes"
}

// HasTarget reports whether the quote resolves to at least one CRM record.
func (q *Quote) HasTarget() bool {
	return q.ContactID != nil || q.CompanyID != nil || q.DealID != nil
}

// IsExpired reports whether the quote's validity window has passed.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// GSTDetails is the field group required as a whole on a GST tax invoice.
// A nil GSTDetails on an invoice means a standard invoice; a non-nil value
// means every mandatory GST field is present.
type GSTDetails struct {
	InvoiceType     GSTInvoiceType `gorm:"type:varchar(20)" json:"invoiceType"`
	SupplyType      GSTSupplyType  `gorm:"type:varchar(20)" json:"supplyType"`
	BuyerGSTIN      string         `gorm:"type:varchar(15)" json:"buyerGstin"`
	PlaceOfSupply   string         `gorm:"type:varchar(100)" json:"placeOfSupply"`
	IsReverseCharge bool           `gorm:"default:false" json:"isReverseCharge"`

	// Shipping / transport metadata
	TransportMode  string `gorm:"type:varchar(50)" json:"transportMode,omitempty"`
	TransporterID  string `gorm:"type:varchar(50)" json:"transporterId,omitempty"`
	VehicleNumber  string `gorm:"type:varchar(20)" json:"vehicleNumber,omitempty"`
	EWayBillNumber string `gorm:"type:varchar(20)" json:"ewayBillNumber,omitempty"`
}

// Invoice represents a billing invoice, optionally converted from a quote
type Invoice struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID string    `gorm:"type:varchar(255);not null;index:idx_invoices_tenant;uniqueIndex:idx_invoices_tenant_number" json:"tenantId"`
	Number   string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoices_tenant_number" json:"number"`

	// Conversion lineage, set once at conversion and immutable afterward
	QuoteID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_invoices_quote,where:quote_id IS NOT NULL" json:"quoteId,omitempty"`

	ContactID *uuid.UUID `gorm:"type:uuid;index:idx_invoices_contact" json:"contactId,omitempty"`
	CompanyID *uuid.UUID `gorm:"type:uuid" json:"companyId,omitempty"`

	Status  InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_invoices_status" json:"status"`
	DueDate time.Time     `gorm:"not null" json:"dueDate"`

	Items []LineItem `gorm:"polymorphic:Document;polymorphicValue:INVOICE" json:"items"`

	DocumentDiscount decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"documentDiscount"`
	DocumentTaxRate  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"documentTaxRate"`

	Subtotal      int64 `gorm:"not null;default:0" json:"subtotal"`
	TotalDiscount int64 `gorm:"not null;default:0" json:"totalDiscount"`
	TotalTax      int64 `gorm:"not null;default:0" json:"totalTax"`
	Total         int64 `gorm:"not null;default:0" json:"total"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Nil for a standard invoice, populated as a group for a GST tax invoice
	GST *GSTDetails `gorm:"embedded;embeddedPrefix:gst_" json:"gst,omitempty"`

	SentAt   *time.Time `json:"sentAt,omitempty"`
	ViewedAt *time.Time `json:"viewedAt,omitempty"`
	VoidedAt *time.Time `json:"voidedAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// IsGSTInvoice reports whether the invoice carries the GST field group.
func (i *Invoice) IsGSTInvoice() bool {
	return i.GST != nil
}

// Payment represents money recorded against an invoice
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  string    `gorm:"type:varchar(255);not null;index:idx_payments_tenant" json:"tenantId"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index:idx_payments_invoice" json:"invoiceId"`

	Amount        int64         `gorm:"not null" json:"amount"`
	Method        PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;index:idx_payments_status" json:"status"`
	TransactionID string        `gorm:"type:varchar(255)" json:"transactionId,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Refunds []Refund `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_payments_created" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Refunded returns the amount already refunded against this payment.
// Requires Refunds to be loaded.
func (p *Payment) Refunded() int64 {
	var total int64
	for _, r := range p.Refunds {
		total += r.Amount
	}
	return total
}

// Refundable returns the remaining refundable balance of this payment.
func (p *Payment) Refundable() int64 {
	return p.Amount - p.Refunded()
}

// Refund represents a partial or full refund of a payment
type Refund struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  string    `gorm:"type:varchar(255);not null;index:idx_refunds_tenant" json:"tenantId"`
	PaymentID uuid.UUID `gorm:"type:uuid;not null;index:idx_refunds_payment" json:"paymentId"`

	Amount int64  `gorm:"not null" json:"amount"`
	Reason string `gorm:"type:varchar(500)" json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for Refund
func (Refund) TableName() string {
	return "refunds"
}

// DocumentSequence backs tenant-scoped document numbering. The row is advanced
// with an atomic upsert so concurrent allocations in different processes never
// hand out the same number.
type DocumentSequence struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_document_sequences_tenant_kind" json:"tenantId"`
	Kind      DocumentKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_document_sequences_tenant_kind" json:"kind"`
	LastValue int64        `gorm:"not null;default:0" json:"lastValue"`
	UpdatedAt time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for DocumentSequence
func (DocumentSequence) TableName() string {
	return "document_sequences"
}
