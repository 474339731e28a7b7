package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeLine(t *testing.T) {
	amounts, err := ComputeLine(d("3"), d("100"), d("10"), d("17"))
	require.NoError(t, err)
	require.True(t, amounts.DiscountAmount.Equal(d("30")), "discount %s", amounts.DiscountAmount)
	require.True(t, amounts.Subtotal.Equal(d("270")), "subtotal %s", amounts.Subtotal)
	require.True(t, amounts.Tax.Equal(d("45.9")), "tax %s", amounts.Tax)
	require.True(t, amounts.Total.Equal(d("315.9")), "total %s", amounts.Total)
}

func TestComputeLineZeroPrice(t *testing.T) {
	amounts, err := ComputeLine(d("5"), d("0"), d("0"), d("17"))
	require.NoError(t, err)
	require.True(t, amounts.Total.IsZero())
}

func TestComputeLineRejectsBadInput(t *testing.T) {
	cases := []struct {
		name                                     string
		quantity, unitPrice, discount, taxRate   string
	}{
		{"zero quantity", "0", "10", "0", "17"},
		{"negative quantity", "-1", "10", "0", "17"},
		{"negative price", "1", "-10", "0", "17"},
		{"discount over 100", "1", "10", "101", "17"},
		{"negative discount", "1", "10", "-5", "17"},
		{"negative tax", "1", "10", "0", "-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeLine(d(tc.quantity), d(tc.unitPrice), d(tc.discount), d(tc.taxRate))
			var lineErr *InvalidLineError
			require.ErrorAs(t, err, &lineErr)
			require.Equal(t, "INVALID_LINE", lineErr.Kind())
		})
	}
}

func TestComputeLineIdentity(t *testing.T) {
	amounts, err := ComputeLine(d("7"), d("19.99"), d("12.5"), d("17"))
	require.NoError(t, err)
	require.True(t, amounts.Total.Equal(amounts.Subtotal.Add(amounts.Tax)))
	expected := d("7").Mul(d("19.99")).Mul(d("0.875"))
	require.True(t, amounts.Subtotal.Equal(expected))
}

func TestComputeDocumentTotals(t *testing.T) {
	first, err := ComputeLine(d("3"), d("100"), d("10"), d("17"))
	require.NoError(t, err)
	second, err := ComputeLine(d("1"), d("49.99"), d("0"), d("17"))
	require.NoError(t, err)

	totals := ComputeDocumentTotals([]LineAmounts{first, second})
	require.True(t, totals.Subtotal.Equal(d("319.99")), "subtotal %s", totals.Subtotal)
	require.True(t, totals.VATAmount.Equal(d("54.40")), "vat %s", totals.VATAmount)
	require.True(t, totals.Total.Equal(d("374.39")), "total %s", totals.Total)
}

func TestComputeDocumentTotalsEmpty(t *testing.T) {
	totals := ComputeDocumentTotals(nil)
	require.True(t, totals.Total.IsZero())
}

func TestRoundHalfUp(t *testing.T) {
	require.Equal(t, "2.35", Round(d("2.345")).String())
	require.Equal(t, "2.34", Round(d("2.344")).String())
}
