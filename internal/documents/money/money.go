// Package money computes line and document totals with fixed-point
// decimal arithmetic. Monetary values round half-up to two places at the
// totals only; intermediate line math keeps full precision so repeated
// recomputation never drifts.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InvalidLineError reports malformed line input. No state changes; the
// caller corrects the input and retries.
type InvalidLineError struct {
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid line: %s", e.Reason)
}

// Kind returns the stable machine-readable error kind.
func (e *InvalidLineError) Kind() string {
	return "INVALID_LINE"
}

// LineAmounts holds the derived amounts for one document line.
type LineAmounts struct {
	DiscountAmount decimal.Decimal
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// DocumentTotals aggregates line amounts for a whole document.
type DocumentTotals struct {
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeLine derives discount, subtotal, tax and total for a single line.
//
//	subtotal = quantity * unitPrice * (1 - discountPercent/100)
//	tax      = subtotal * taxRate/100
//	total    = subtotal + tax
func ComputeLine(quantity, unitPrice, discountPercent, taxRate decimal.Decimal) (LineAmounts, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return LineAmounts{}, &InvalidLineError{Reason: "non-positive quantity"}
	}
	if unitPrice.IsNegative() {
		return LineAmounts{}, &InvalidLineError{Reason: "negative unit price"}
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return LineAmounts{}, &InvalidLineError{Reason: "discount percent outside [0,100]"}
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return LineAmounts{}, &InvalidLineError{Reason: "tax rate outside [0,100]"}
	}

	gross := quantity.Mul(unitPrice)
	discount := gross.Mul(discountPercent.Div(hundred))
	subtotal := gross.Sub(discount)
	tax := subtotal.Mul(taxRate.Div(hundred))

	return LineAmounts{
		DiscountAmount: discount,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          subtotal.Add(tax),
	}, nil
}

// ComputeDocumentTotals sums line amounts, rounding half-up to two
// decimal places at the document level.
func ComputeDocumentTotals(lines []LineAmounts) DocumentTotals {
	var subtotal, tax, total decimal.Decimal
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal)
		tax = tax.Add(line.Tax)
		total = total.Add(line.Total)
	}
	return DocumentTotals{
		Subtotal:  Round(subtotal),
		VATAmount: Round(tax),
		Total:     Round(total),
	}
}

// Round rounds a monetary amount half-up to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
