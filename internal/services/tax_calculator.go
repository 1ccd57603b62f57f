package services

import (
	"github.com/shopspring/decimal"

	"billing-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// MaxPrimaryTaxRate caps the primary (GST slab) rate per line item.
const MaxPrimaryTaxRate = 28

// TaxLine is the computed breakdown for a single line item, all values in
// minor currency units.
type TaxLine struct {
	LineSubtotal int64 `json:"lineSubtotal"`
	LineDiscount int64 `json:"lineDiscount"`
	TaxableBase  int64 `json:"taxableBase"`
	PrimaryTax   int64 `json:"primaryTax"`
	SecondaryTax int64 `json:"secondaryTax"`
	LineTotal    int64 `json:"lineTotal"`
}

// TaxTotals is the computed totals breakdown for a document.
// GrandTotal == Subtotal - TotalDiscount + TotalTax holds exactly.
type TaxTotals struct {
	Lines         []TaxLine `json:"lines"`
	Subtotal      int64     `json:"subtotal"`
	TotalDiscount int64     `json:"totalDiscount"`
	TotalTax      int64     `json:"totalTax"`
	GrandTotal    int64     `json:"grandTotal"`
}

// roundMinor rounds a minor-unit decimal value half-up to a whole cent.
// Rounding happens at line granularity before summation so the grand total
// always agrees with the printed per-line figures.
func roundMinor(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// ValidateLineItem checks the numeric ranges of a line item input.
func ValidateLineItem(item *models.LineItem) error {
	if item.Quantity.Sign() <= 0 {
		return models.NewValidationError("quantity", "must be greater than zero")
	}
	if item.UnitPrice < 0 {
		return models.NewValidationError("unitPrice", "must not be negative")
	}
	if item.DiscountPercent.Sign() < 0 || item.DiscountPercent.GreaterThan(hundred) {
		return models.NewValidationError("discountPercent", "must be between 0 and 100")
	}
	if item.PrimaryTaxRate.Sign() < 0 || item.PrimaryTaxRate.GreaterThan(decimal.NewFromInt(MaxPrimaryTaxRate)) {
		return models.NewValidationError("primaryTaxRate", "must be between 0 and 28")
	}
	if item.SecondaryTaxRate.Sign() < 0 {
		return models.NewValidationError("secondaryTaxRate", "must not be negative")
	}
	return nil
}

// ComputeLine computes the tax breakdown for a single line item.
func ComputeLine(item *models.LineItem) TaxLine {
	unitPrice := decimal.NewFromInt(item.UnitPrice)

	lineSubtotal := roundMinor(item.Quantity.Mul(unitPrice))
	lineDiscount := roundMinor(decimal.NewFromInt(lineSubtotal).Mul(item.DiscountPercent).Div(hundred))
	taxableBase := lineSubtotal - lineDiscount

	base := decimal.NewFromInt(taxableBase)
	primaryTax := roundMinor(base.Mul(item.PrimaryTaxRate).Div(hundred))
	secondaryTax := roundMinor(base.Mul(item.SecondaryTaxRate).Div(hundred))

	return TaxLine{
		LineSubtotal: lineSubtotal,
		LineDiscount: lineDiscount,
		TaxableBase:  taxableBase,
		PrimaryTax:   primaryTax,
		SecondaryTax: secondaryTax,
		LineTotal:    taxableBase + primaryTax + secondaryTax,
	}
}

// ComputeTotals turns a set of line items plus document-level discount and tax
// into a totals breakdown. Pure and deterministic: no side effects, identical
// inputs always produce identical outputs.
//
// Each line is rounded half-up to the cent before summation; the document
// discount and document tax apply to the sum of line totals under the same
// rounding rule. Summing unrounded values and rounding once at the end is
// deliberately not done: it produces totals that disagree with the per-line
// tax figures printed on the document.
func ComputeTotals(items []models.LineItem, documentDiscount, documentTaxRate decimal.Decimal) (*TaxTotals, error) {
	if documentDiscount.Sign() < 0 || documentDiscount.GreaterThan(hundred) {
		return nil, models.NewValidationError("documentDiscount", "must be between 0 and 100")
	}
	if documentTaxRate.Sign() < 0 {
		return nil, models.NewValidationError("documentTaxRate", "must not be negative")
	}

	totals := &TaxTotals{Lines: make([]TaxLine, 0, len(items))}

	var lineTotalSum int64
	var lineTaxSum int64
	var lineDiscountSum int64

	for i := range items {
		if err := ValidateLineItem(&items[i]); err != nil {
			return nil, err
		}
		line := ComputeLine(&items[i])
		totals.Lines = append(totals.Lines, line)

		totals.Subtotal += line.LineSubtotal
		lineDiscountSum += line.LineDiscount
		lineTaxSum += line.PrimaryTax + line.SecondaryTax
		lineTotalSum += line.LineTotal
	}

	docDiscount := roundMinor(decimal.NewFromInt(lineTotalSum).Mul(documentDiscount).Div(hundred))
	docTax := roundMinor(decimal.NewFromInt(lineTotalSum - docDiscount).Mul(documentTaxRate).Div(hundred))

	totals.TotalDiscount = lineDiscountSum + docDiscount
	totals.TotalTax = lineTaxSum + docTax
	totals.GrandTotal = lineTotalSum - docDiscount + docTax

	return totals, nil
}

// ApplyQuoteTotals writes a computed breakdown onto a quote's stored totals.
func ApplyQuoteTotals(q *models.Quote, t *TaxTotals) {
	q.Subtotal = t.Subtotal
	q.TotalDiscount = t.TotalDiscount
	q.TotalTax = t.TotalTax
	q.Total = t.GrandTotal
}

// ApplyInvoiceTotals writes a computed breakdown onto an invoice's stored totals.
func ApplyInvoiceTotals(inv *models.Invoice, t *TaxTotals) {
	inv.Subtotal = t.Subtotal
	inv.TotalDiscount = t.TotalDiscount
	inv.TotalTax = t.TotalTax
	inv.Total = t.GrandTotal
}
