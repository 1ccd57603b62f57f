package services

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"billing-service/internal/models"
)

// DocumentRenderer produces printable PDF copies of quotes and invoices.
// Monetary figures come from the stored totals; per-line figures are
// recomputed so the rendered rows always match the tax breakdown.
type DocumentRenderer struct{}

// NewDocumentRenderer creates a new document renderer
func NewDocumentRenderer() *DocumentRenderer {
	return &DocumentRenderer{}
}

// RenderInvoicePDF renders an invoice as a PDF document
func (r *DocumentRenderer) RenderInvoicePDF(invoice *models.Invoice) ([]byte, error) {
	m := newPDFDocument()

	addDocumentHeader(m, "INVOICE", invoice.Number)
	addDetailRow(m, "Status", string(invoice.Status))
	addDetailRow(m, "Issued", invoice.CreatedAt.Format("02 Jan 2006"))
	addDetailRow(m, "Due", invoice.DueDate.Format("02 Jan 2006"))
	if invoice.Notes != "" {
		addDetailRow(m, "Notes", invoice.Notes)
	}

	if invoice.GST != nil {
		addSeparator(m)
		addSectionTitle(m, "GST Details")
		addDetailRow(m, "Invoice Type", string(invoice.GST.InvoiceType))
		addDetailRow(m, "Supply Type", string(invoice.GST.SupplyType))
		addDetailRow(m, "Buyer GSTIN", invoice.GST.BuyerGSTIN)
		addDetailRow(m, "Place of Supply", invoice.GST.PlaceOfSupply)
		if invoice.GST.IsReverseCharge {
			addDetailRow(m, "Reverse Charge", "Yes")
		}
	}

	addLineItemsTable(m, invoice.Items)
	addTotals(m, invoice.Subtotal, invoice.TotalDiscount, invoice.TotalTax, invoice.Total)
	addFooter(m)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

// RenderQuotePDF renders a quote as a PDF document
func (r *DocumentRenderer) RenderQuotePDF(quote *models.Quote) ([]byte, error) {
	m := newPDFDocument()

	addDocumentHeader(m, "QUOTE", quote.Number)
	addDetailRow(m, "Title", quote.Title)
	addDetailRow(m, "Status", string(quote.Status))
	addDetailRow(m, "Issued", quote.CreatedAt.Format("02 Jan 2006"))
	if quote.ValidUntil != nil {
		addDetailRow(m, "Valid Until", quote.ValidUntil.Format("02 Jan 2006"))
	}
	if quote.Notes != "" {
		addDetailRow(m, "Notes", quote.Notes)
	}

	addLineItemsTable(m, quote.Items)
	addTotals(m, quote.Subtotal, quote.TotalDiscount, quote.TotalTax, quote.Total)
	addFooter(m)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func newPDFDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()
	return maroto.New(cfg)
}

func addDocumentHeader(m core.Maroto, title, number string) {
	m.AddRow(14,
		col.New(8).Add(
			text.New(title, props.Text{
				Size:  16,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
		),
		col.New(4).Add(
			text.New(number, props.Text{
				Size:  12,
				Align: align.Right,
				Top:   2,
			}),
		),
	)
	addSeparator(m)
}

func addSectionTitle(m core.Maroto, title string) {
	m.AddRow(8,
		col.New(12).Add(
			text.New(title, props.Text{
				Size:  11,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
		),
	)
}

func addDetailRow(m core.Maroto, label, value string) {
	m.AddRow(6,
		col.New(3).Add(
			text.New(label, props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
		),
		col.New(9).Add(
			text.New(value, props.Text{
				Size:  9,
				Align: align.Left,
			}),
		),
	)
}

func addSeparator(m core.Maroto) {
	m.AddRow(5, line.NewCol(12))
}

func addLineItemsTable(m core.Maroto, items []models.LineItem) {
	addSeparator(m)
	m.AddRow(8,
		col.New(5).Add(text.New("Description", props.Text{Size: 9, Style: fontstyle.Bold})),
		col.New(1).Add(text.New("Qty", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
		col.New(2).Add(text.New("Unit Price", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
		col.New(2).Add(text.New("Tax", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
		col.New(2).Add(text.New("Total", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
	)

	for i := range items {
		item := &items[i]
		breakdown := ComputeLine(item)
		m.AddRow(6,
			col.New(5).Add(text.New(item.Description, props.Text{Size: 8})),
			col.New(1).Add(text.New(item.Quantity.String(), props.Text{Size: 8, Align: align.Right})),
			col.New(2).Add(text.New(formatMinorUnits(item.UnitPrice), props.Text{Size: 8, Align: align.Right})),
			col.New(2).Add(text.New(formatMinorUnits(breakdown.PrimaryTax+breakdown.SecondaryTax), props.Text{Size: 8, Align: align.Right})),
			col.New(2).Add(text.New(formatMinorUnits(breakdown.LineTotal), props.Text{Size: 8, Align: align.Right})),
		)
	}
	addSeparator(m)
}

func addTotals(m core.Maroto, subtotal, discount, tax, total int64) {
	addTotalLine(m, "Subtotal", formatMinorUnits(subtotal), false)
	if discount != 0 {
		addTotalLine(m, "Discount", "-"+formatMinorUnits(discount), false)
	}
	addTotalLine(m, "Tax", formatMinorUnits(tax), false)
	addTotalLine(m, "Total", formatMinorUnits(total), true)
}

func addTotalLine(m core.Maroto, label, value string, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(6,
		col.New(6),
		col.New(3).Add(text.New(label, props.Text{Size: 9, Style: style, Align: align.Right})),
		col.New(3).Add(text.New(value, props.Text{Size: 9, Style: style, Align: align.Right})),
	)
}

func addFooter(m core.Maroto) {
	m.AddRow(10,
		col.New(12).Add(
			text.New(
				fmt.Sprintf("Generated at %s", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")),
				props.Text{
					Size:  7,
					Align: align.Center,
					Top:   4,
					Color: &props.Color{Red: 128, Green: 128, Blue: 128},
				},
			),
		),
	)
}

// formatMinorUnits renders an int64 minor-unit amount as a decimal string
func formatMinorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
