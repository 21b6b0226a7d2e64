// Package money computes line and document amounts in fixed-point decimal.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places stored for monetary values.
const Places = 2

// ErrInvalidPercentage indicates a percentage outside [0, 100].
var ErrInvalidPercentage = errors.New("percentage out of range")

var hundred = decimal.NewFromInt(100)

// LineAmounts holds the computed amounts of a single line.
type LineAmounts struct {
	Gross          decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Totals holds the computed amounts of a whole document.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	Lines          []LineAmounts
}

// LineInput is the calculator input for one line.
type LineInput struct {
	Quantity    int64
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// DocumentInput is the calculator input for a document.
type DocumentInput struct {
	Lines       []LineInput
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
	AmountPaid  decimal.Decimal
}

// Line computes gross, discount, tax and total for one line. Tax applies to
// the discounted amount.
func Line(in LineInput) (LineAmounts, error) {
	if err := checkPercent(in.DiscountPct); err != nil {
		return LineAmounts{}, fmt.Errorf("discount: %w", err)
	}
	if err := checkPercent(in.TaxPct); err != nil {
		return LineAmounts{}, fmt.Errorf("tax: %w", err)
	}
	gross := decimal.NewFromInt(in.Quantity).Mul(in.UnitPrice).Round(Places)
	discount := percentOf(gross, in.DiscountPct)
	tax := percentOf(gross.Sub(discount), in.TaxPct)
	return LineAmounts{
		Gross:          gross,
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          gross.Sub(discount).Add(tax),
	}, nil
}

// Document computes the document totals from its lines. The document
// discount applies to the subtotal; the document tax applies to the subtotal
// net of every discount.
func Document(in DocumentInput) (Totals, error) {
	if err := checkPercent(in.DiscountPct); err != nil {
		return Totals{}, fmt.Errorf("document discount: %w", err)
	}
	if err := checkPercent(in.TaxPct); err != nil {
		return Totals{}, fmt.Errorf("document tax: %w", err)
	}

	totals := Totals{Lines: make([]LineAmounts, 0, len(in.Lines))}
	lineDiscount := decimal.Zero
	lineTax := decimal.Zero
	for i, l := range in.Lines {
		amounts, err := Line(l)
		if err != nil {
			return Totals{}, fmt.Errorf("line %d: %w", i, err)
		}
		totals.Lines = append(totals.Lines, amounts)
		totals.Subtotal = totals.Subtotal.Add(amounts.Gross)
		lineDiscount = lineDiscount.Add(amounts.DiscountAmount)
		lineTax = lineTax.Add(amounts.TaxAmount)
	}

	docDiscount := percentOf(totals.Subtotal, in.DiscountPct)
	docTax := percentOf(totals.Subtotal.Sub(lineDiscount).Sub(docDiscount), in.TaxPct)

	totals.DiscountAmount = docDiscount.Add(lineDiscount)
	totals.TaxAmount = docTax.Add(lineTax)
	totals.Total = totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.TaxAmount)
	totals.AmountPaid = in.AmountPaid.Round(Places)
	totals.AmountDue = totals.Total.Sub(totals.AmountPaid)
	return totals, nil
}

// ClampPercent bounds p to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

func checkPercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s", ErrInvalidPercentage, p.String())
	}
	return nil
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(pct).Div(hundred).Round(Places)
}
