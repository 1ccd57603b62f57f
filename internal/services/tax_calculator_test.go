package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-service/internal/models"
)

func item(qty string, unitPrice int64, discount, primary, secondary string) models.LineItem {
	return models.LineItem{
		Description:      "test item",
		Quantity:         decimal.RequireFromString(qty),
		UnitPrice:        unitPrice,
		DiscountPercent:  decimal.RequireFromString(discount),
		PrimaryTaxRate:   decimal.RequireFromString(primary),
		SecondaryTaxRate: decimal.RequireFromString(secondary),
	}
}

func TestComputeLine_DiscountAndGST(t *testing.T) {
	// 2 × 100.00, 10% discount, 18% GST
	li := item("2", 10000, "10", "18", "0")
	line := ComputeLine(&li)

	assert.Equal(t, int64(20000), line.LineSubtotal)
	assert.Equal(t, int64(2000), line.LineDiscount)
	assert.Equal(t, int64(18000), line.TaxableBase)
	assert.Equal(t, int64(3240), line.PrimaryTax)
	assert.Equal(t, int64(0), line.SecondaryTax)
	assert.Equal(t, int64(21240), line.LineTotal)
}

func TestComputeLine_RoundsHalfUpPerLine(t *testing.T) {
	// 3 × 0.33 at 18% tax: subtotal 99, tax 17.82 → 18
	li := item("3", 33, "0", "18", "0")
	line := ComputeLine(&li)

	assert.Equal(t, int64(99), line.LineSubtotal)
	assert.Equal(t, int64(18), line.PrimaryTax)
	assert.Equal(t, int64(117), line.LineTotal)
}

func TestComputeLine_FractionalQuantity(t *testing.T) {
	// 1.5 hrs × 99.99: 149.985 → 149.99 (half-up on the half cent)
	li := item("1.5", 9999, "0", "0", "0")
	line := ComputeLine(&li)

	assert.Equal(t, int64(14999), line.LineSubtotal)
}

func TestComputeLine_SecondaryTaxOnDiscountedBase(t *testing.T) {
	li := item("1", 10000, "50", "18", "1")
	line := ComputeLine(&li)

	assert.Equal(t, int64(5000), line.TaxableBase)
	assert.Equal(t, int64(900), line.PrimaryTax)
	assert.Equal(t, int64(50), line.SecondaryTax)
	assert.Equal(t, int64(5950), line.LineTotal)
}

func TestComputeTotals_SingleLine(t *testing.T) {
	items := []models.LineItem{item("2", 10000, "10", "18", "0")}

	totals, err := ComputeTotals(items, decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, int64(20000), totals.Subtotal)
	assert.Equal(t, int64(2000), totals.TotalDiscount)
	assert.Equal(t, int64(3240), totals.TotalTax)
	assert.Equal(t, int64(21240), totals.GrandTotal)
}

func TestComputeTotals_DocumentDiscountThenTax(t *testing.T) {
	// One line of 100.00, no line tax. 10% document discount → 90.00,
	// then 5% document tax on the discounted sum → 4.50. Total 94.50.
	items := []models.LineItem{item("1", 10000, "0", "0", "0")}

	totals, err := ComputeTotals(items,
		decimal.RequireFromString("10"), decimal.RequireFromString("5"))
	require.NoError(t, err)

	assert.Equal(t, int64(10000), totals.Subtotal)
	assert.Equal(t, int64(1000), totals.TotalDiscount)
	assert.Equal(t, int64(450), totals.TotalTax)
	assert.Equal(t, int64(9450), totals.GrandTotal)
}

func TestComputeTotals_GrandTotalIdentity(t *testing.T) {
	// The identity grandTotal == subtotal - totalDiscount + totalTax must
	// hold exactly across awkward rounding inputs.
	cases := [][]models.LineItem{
		{item("3", 33, "7", "18", "0"), item("1.5", 9999, "12.5", "28", "1")},
		{item("0.333", 99999, "33.33", "5", "0.25")},
		{item("7", 1, "50", "18", "0"), item("1", 1, "0", "28", "0"), item("2.5", 3, "99.99", "12", "0")},
		{item("1000000", 99999, "0.01", "28", "2")},
	}

	docRates := []struct{ discount, tax string }{
		{"0", "0"},
		{"10", "5"},
		{"33.33", "18"},
		{"100", "28"},
	}

	for _, items := range cases {
		for _, rates := range docRates {
			totals, err := ComputeTotals(items,
				decimal.RequireFromString(rates.discount), decimal.RequireFromString(rates.tax))
			require.NoError(t, err)
			assert.Equal(t, totals.GrandTotal, totals.Subtotal-totals.TotalDiscount+totals.TotalTax,
				"identity must hold for discount=%s tax=%s", rates.discount, rates.tax)
		}
	}
}

func TestComputeTotals_Deterministic(t *testing.T) {
	items := []models.LineItem{
		item("3", 33, "7", "18", "0"),
		item("1.5", 9999, "12.5", "28", "1"),
	}

	first, err := ComputeTotals(items, decimal.RequireFromString("7.5"), decimal.RequireFromString("18"))
	require.NoError(t, err)
	second, err := ComputeTotals(items, decimal.RequireFromString("7.5"), decimal.RequireFromString("18"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeTotals_EmptyItems(t *testing.T) {
	totals, err := ComputeTotals(nil, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.GrandTotal)
}

func TestValidateLineItem_Ranges(t *testing.T) {
	tests := []struct {
		name  string
		item  models.LineItem
		field string
	}{
		{"zero quantity", item("0", 100, "0", "0", "0"), "quantity"},
		{"negative quantity", item("-1", 100, "0", "0", "0"), "quantity"},
		{"negative unit price", item("1", -1, "0", "0", "0"), "unitPrice"},
		{"discount over 100", item("1", 100, "100.01", "0", "0"), "discountPercent"},
		{"negative discount", item("1", 100, "-5", "0", "0"), "discountPercent"},
		{"primary tax over cap", item("1", 100, "0", "28.5", "0"), "primaryTaxRate"},
		{"negative primary tax", item("1", 100, "0", "-1", "0"), "primaryTaxRate"},
		{"negative secondary tax", item("1", 100, "0", "0", "-0.1"), "secondaryTaxRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLineItem(&tt.item)
			require.Error(t, err)
			var validationErr *models.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestValidateLineItem_BoundaryValues(t *testing.T) {
	ok := []models.LineItem{
		item("0.001", 0, "0", "0", "0"),
		item("1", 100, "100", "28", "0"),
		item("1", 100, "0", "28", "999"),
	}
	for i := range ok {
		assert.NoError(t, ValidateLineItem(&ok[i]))
	}
}

func TestComputeTotals_DocumentRateValidation(t *testing.T) {
	items := []models.LineItem{item("1", 100, "0", "0", "0")}

	_, err := ComputeTotals(items, decimal.RequireFromString("101"), decimal.Zero)
	assert.Error(t, err)

	_, err = ComputeTotals(items, decimal.Zero, decimal.RequireFromString("-1"))
	assert.Error(t, err)
}
