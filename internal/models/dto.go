package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemInput carries a line item in create/update requests. Amounts are
// integer minor units, fractional values decimal strings or numbers; binary
// floats never enter the money path.
type LineItemInput struct {
	Description      string          `json:"description" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice        int64           `json:"unitPrice" binding:"min=0"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	TaxCategoryCode  string          `json:"taxCategoryCode,omitempty"`
	Unit             string          `json:"unit,omitempty"`
	PrimaryTaxRate   decimal.Decimal `json:"primaryTaxRate"`
	SecondaryTaxRate decimal.Decimal `json:"secondaryTaxRate"`
}

// GSTDetailsInput is the GST field group for a tax invoice. The group is
// all-or-nothing: supplying it at all makes the invoice a GST invoice and
// every mandatory field below must be present.
type GSTDetailsInput struct {
	InvoiceType     GSTInvoiceType `json:"invoiceType" binding:"required,oneof=REGULAR BILL_OF_SUPPLY EXPORT"`
	SupplyType      GSTSupplyType  `json:"supplyType" binding:"required,oneof=INTRASTATE INTERSTATE EXPORT"`
	BuyerGSTIN      string         `json:"buyerGstin" binding:"required,len=15"`
	PlaceOfSupply   string         `json:"placeOfSupply" binding:"required"`
	IsReverseCharge bool           `json:"isReverseCharge"`
	TransportMode   string         `json:"transportMode,omitempty"`
	TransporterID   string         `json:"transporterId,omitempty"`
	VehicleNumber   string         `json:"vehicleNumber,omitempty"`
	EWayBillNumber  string         `json:"ewayBillNumber,omitempty"`
}

// CreateQuoteRequest represents a request to create a new quote
type CreateQuoteRequest struct {
	Title            string           `json:"title" binding:"required"`
	ContactID        *uuid.UUID       `json:"contactId,omitempty"`
	CompanyID        *uuid.UUID       `json:"companyId,omitempty"`
	DealID           *uuid.UUID       `json:"dealId,omitempty"`
	ValidUntil       *time.Time       `json:"validUntil,omitempty"`
	Items            []LineItemInput  `json:"items" binding:"required,min=1,dive"`
	DocumentDiscount *decimal.Decimal `json:"documentDiscount,omitempty"`
	DocumentTaxRate  *decimal.Decimal `json:"documentTaxRate,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// UpdateQuoteRequest represents a partial update to a quote
type UpdateQuoteRequest struct {
	Title            *string          `json:"title,omitempty"`
	Items            []LineItemInput  `json:"items,omitempty" binding:"omitempty,dive"`
	DocumentDiscount *decimal.Decimal `json:"documentDiscount,omitempty"`
	DocumentTaxRate  *decimal.Decimal `json:"documentTaxRate,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	ValidUntil       *time.Time       `json:"validUntil,omitempty"`
}

// HasItemChanges reports whether the patch touches line items or discounts
func (r *UpdateQuoteRequest) HasItemChanges() bool {
	return r.Items != nil || r.DocumentDiscount != nil || r.DocumentTaxRate != nil
}

// DeclineQuoteRequest carries the optional decline reason
type DeclineQuoteRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ConvertQuoteRequest represents a quote-to-invoice conversion. DueDate
// defaults to 30 days out when omitted.
type ConvertQuoteRequest struct {
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// CreateInvoiceRequest represents a request to create a new invoice.
// Items may be omitted when quoteId is given; they are then carried over from
// the accepted quote.
type CreateInvoiceRequest struct {
	ContactID        *uuid.UUID       `json:"contactId,omitempty"`
	CompanyID        *uuid.UUID       `json:"companyId,omitempty"`
	QuoteID          *uuid.UUID       `json:"quoteId,omitempty"`
	DueDate          time.Time        `json:"dueDate" binding:"required"`
	Items            []LineItemInput  `json:"items,omitempty" binding:"omitempty,dive"`
	DocumentDiscount *decimal.Decimal `json:"documentDiscount,omitempty"`
	DocumentTaxRate  *decimal.Decimal `json:"documentTaxRate,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	GST              *GSTDetailsInput `json:"gst,omitempty"`
}

// UpdateInvoiceRequest represents a partial update to an invoice
type UpdateInvoiceRequest struct {
	Items            []LineItemInput  `json:"items,omitempty" binding:"omitempty,dive"`
	DocumentDiscount *decimal.Decimal `json:"documentDiscount,omitempty"`
	DocumentTaxRate  *decimal.Decimal `json:"documentTaxRate,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	DueDate          *time.Time       `json:"dueDate,omitempty"`
}

// HasItemChanges reports whether the patch touches line items or discounts
func (r *UpdateInvoiceRequest) HasItemChanges() bool {
	return r.Items != nil || r.DocumentDiscount != nil || r.DocumentTaxRate != nil
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	InvoiceID     uuid.UUID     `json:"invoiceId" binding:"required"`
	Amount        int64         `json:"amount" binding:"required"`
	Method        PaymentMethod `json:"method" binding:"required,oneof=CARD BANK_TRANSFER WALLET"`
	TransactionID string        `json:"transactionId,omitempty"`
}

// ConfirmPaymentRequest is the confirmation hook payload for asynchronous
// payment methods. Omitting status confirms the payment as COMPLETED.
type ConfirmPaymentRequest struct {
	Status        PaymentStatus `json:"status,omitempty" binding:"omitempty,oneof=COMPLETED FAILED"`
	TransactionID string        `json:"transactionId,omitempty"`
}

// RefundPaymentRequest represents a refund request. A nil amount refunds the
// full remaining refundable balance.
type RefundPaymentRequest struct {
	Amount *int64 `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// InvoiceBalance is the read model for an invoice's ledger position
type InvoiceBalance struct {
	InvoiceID uuid.UUID     `json:"invoiceId"`
	Total     int64         `json:"total"`
	Paid      int64         `json:"paid"`
	Refunded  int64         `json:"refunded"`
	Balance   int64         `json:"balance"`
	Status    InvoiceStatus `json:"status"`
}

// PaginationInfo represents pagination information
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// NewPaginationInfo builds a pagination block from page/limit/total
func NewPaginationInfo(page, limit int, total int64) *PaginationInfo {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &PaginationInfo{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// APIResponse is the success envelope carried by every successful response
type APIResponse struct {
	Success    bool            `json:"success"`
	Data       interface{}     `json:"data"`
	Message    string          `json:"message,omitempty"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

// Error represents error details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
