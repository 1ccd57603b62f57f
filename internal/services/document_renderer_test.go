package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-service/internal/models"
)

func renderableItems(tenantID string) []models.LineItem {
	return []models.LineItem{
		{
			ID:              uuid.New(),
			TenantID:        tenantID,
			Description:     "Implementation services",
			Quantity:        decimal.NewFromInt(2),
			UnitPrice:       10000,
			DiscountPercent: decimal.NewFromInt(10),
			PrimaryTaxRate:  decimal.NewFromInt(18),
			Position:        0,
		},
		{
			ID:          uuid.New(),
			TenantID:    tenantID,
			Description: "Support retainer",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   5000,
			Position:    1,
		},
	}
}

func TestRenderInvoicePDF(t *testing.T) {
	renderer := NewDocumentRenderer()

	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: "tenant-123",
		Number:   "INV-00000042",
		Status:   models.InvoiceSent,
		DueDate:  time.Now().Add(14 * 24 * time.Hour),
		Items:    renderableItems("tenant-123"),
		Subtotal: 25000,
		TotalTax: 3240,
		Total:    28240,
		Notes:    "Net 30",
	}

	pdf, err := renderer.RenderInvoicePDF(invoice)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRenderInvoicePDF_GSTInvoice(t *testing.T) {
	renderer := NewDocumentRenderer()

	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: "tenant-123",
		Number:   "INV-00000043",
		Status:   models.InvoiceSent,
		DueDate:  time.Now().Add(14 * 24 * time.Hour),
		Items:    renderableItems("tenant-123"),
		Subtotal: 25000,
		TotalTax: 3240,
		Total:    28240,
		GST: &models.GSTDetails{
			InvoiceType:   models.GSTInvoiceRegular,
			SupplyType:    models.SupplyIntrastate,
			BuyerGSTIN:    "29ABCDE1234F1Z5",
			PlaceOfSupply: "Karnataka",
		},
	}

	pdf, err := renderer.RenderInvoicePDF(invoice)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRenderQuotePDF(t *testing.T) {
	renderer := NewDocumentRenderer()

	validUntil := time.Now().Add(30 * 24 * time.Hour)
	quote := &models.Quote{
		ID:         uuid.New(),
		TenantID:   "tenant-123",
		Number:     "QUO-00000007",
		Title:      "CRM rollout",
		Status:     models.QuoteDraft,
		ValidUntil: &validUntil,
		Items:      renderableItems("tenant-123"),
		Subtotal:   25000,
		TotalTax:   3240,
		Total:      28240,
	}

	pdf, err := renderer.RenderQuotePDF(quote)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "212.40", formatMinorUnits(21240))
	assert.Equal(t, "0.05", formatMinorUnits(5))
	assert.Equal(t, "-3.00", formatMinorUnits(-300))
}
