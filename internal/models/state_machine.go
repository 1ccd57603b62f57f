package models

import (
	"fmt"
	"time"
)

// ValidQuoteTransitions defines valid state transitions for QuoteStatus
// Flow: DRAFT → SENT → VIEWED → {ACCEPTED, REJECTED}
// EXPIRED is time-driven and reachable from any pre-decision state
var ValidQuoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteDraft:    {QuoteSent, QuoteExpired},
	QuoteSent:     {QuoteSent, QuoteViewed, QuoteAccepted, QuoteRejected, QuoteExpired}, // Re-send permitted
	QuoteViewed:   {QuoteViewed, QuoteAccepted, QuoteRejected, QuoteExpired},            // View is idempotent
	QuoteAccepted: {},                                                                   // Terminal state
	QuoteRejected: {},                                                                   // Terminal state
	QuoteExpired:  {},                                                                   // Terminal state
}

// ValidInvoiceTransitions defines the caller-requestable transitions for
// InvoiceStatus. PAID, PARTIAL and OVERDUE are derived from the ledger and
// never requested directly; CANCELLED is reachable from any non-PAID state.
var ValidInvoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:     {InvoiceSent, InvoiceCancelled},
	InvoiceSent:      {InvoiceViewed, InvoiceCancelled},
	InvoiceViewed:    {InvoiceViewed, InvoiceCancelled},
	InvoicePartial:   {InvoiceCancelled},
	InvoiceOverdue:   {InvoiceViewed, InvoiceCancelled},
	InvoicePaid:      {},
	InvoiceCancelled: {}, // Terminal state
}

// CanTransitionQuoteStatus checks if a transition from one quote status to another is valid
func CanTransitionQuoteStatus(from, to QuoteStatus) bool {
	validTransitions, exists := ValidQuoteTransitions[from]
	if !exists {
		return false
	}
	for _, validTo := range validTransitions {
		if validTo == to {
			return true
		}
	}
	return false
}

// CanTransitionInvoiceStatus checks if a caller-requested invoice transition is valid
func CanTransitionInvoiceStatus(from, to InvoiceStatus) bool {
	validTransitions, exists := ValidInvoiceTransitions[from]
	if !exists {
		return false
	}
	for _, validTo := range validTransitions {
		if validTo == to {
			return true
		}
	}
	return false
}

// IsTerminalQuoteStatus checks if the quote status is a terminal state
func IsTerminalQuoteStatus(status QuoteStatus) bool {
	return len(ValidQuoteTransitions[status]) == 0
}

// QuoteItemsEditable reports whether line items and discounts may still be
// changed. Edits after a quote is viewed would desynchronize what the
// recipient saw from what gets accepted.
func QuoteItemsEditable(status QuoteStatus) bool {
	return status == QuoteDraft || status == QuoteSent
}

// InvoiceItemsEditable reports whether invoice line items may still be changed
func InvoiceItemsEditable(status InvoiceStatus) bool {
	return status == InvoiceDraft || status == InvoiceSent
}

// ValidateQuoteStatusTransition returns an error if the transition is invalid
func ValidateQuoteStatusTransition(from, to QuoteStatus) error {
	if !CanTransitionQuoteStatus(from, to) {
		return fmt.Errorf("%w: quote %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidateInvoiceStatusTransition returns an error if the transition is invalid
func ValidateInvoiceStatusTransition(from, to InvoiceStatus) error {
	if !CanTransitionInvoiceStatus(from, to) {
		return fmt.Errorf("%w: invoice %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CountsTowardBalance reports whether a payment moves money on the invoice
// ledger. A REFUNDED payment completed before its refunds were recorded, so it
// still counts; its refunds add the money back.
func CountsTowardBalance(p *Payment) bool {
	return p.Status == PaymentCompleted || p.Status == PaymentRefunded
}

// LedgerBalance computes the outstanding balance of an invoice:
// total - Σ(completed payments) + Σ(refunds against those payments).
// A negative balance is an overpayment credit.
func LedgerBalance(total int64, payments []Payment, refunds []Refund) int64 {
	balance := total
	for i := range payments {
		if CountsTowardBalance(&payments[i]) {
			balance -= payments[i].Amount
		}
	}
	for i := range refunds {
		balance += refunds[i].Amount
	}
	return balance
}

// DeriveInvoiceStatus recomputes the invoice status from the payment ledger.
// The pre-payment status is derived from the sent/viewed timestamps rather
// than stored, so fully refunding an invoice reverts it to the status it held
// before any money moved.
func DeriveInvoiceStatus(inv *Invoice, payments []Payment, refunds []Refund, now time.Time) InvoiceStatus {
	if inv.Status == InvoiceCancelled {
		return InvoiceCancelled
	}

	balance := LedgerBalance(inv.Total, payments, refunds)

	hasCountedPayment := false
	for i := range payments {
		if CountsTowardBalance(&payments[i]) {
			hasCountedPayment = true
			break
		}
	}

	if balance <= 0 && (hasCountedPayment || inv.Total <= 0) {
		return InvoicePaid
	}
	if hasCountedPayment && balance < inv.Total {
		return InvoicePartial
	}

	// No net money movement: fall back to the pre-payment status
	if now.After(inv.DueDate) {
		return InvoiceOverdue
	}
	if inv.ViewedAt != nil {
		return InvoiceViewed
	}
	if inv.SentAt != nil {
		return InvoiceSent
	}
	return InvoiceDraft
}
