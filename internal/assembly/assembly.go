// Package assembly holds the quote arithmetic shared by the editor, the draft cache and
// the exporters. All of them call Compute so the same lines and discount settings always
// produce the same total.
//
// Values are never rounded here. Rounding to currency precision happens in FormatMoney.
package assembly

import (
	"github.com/shopspring/decimal"
)

const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Line is the priced part of a quote row.
type Line struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// DiscountSettings selects how a percentage discount is applied to a quote.
//
// With ShowDiscountInTable the discount is a separate deduction under the subtotal.
// Without it the discount is spread into every unit price and the subtotal already
// contains it.
type DiscountSettings struct {
	Enabled             bool            `json:"enabled"`
	Percent             decimal.Decimal `json:"percent"`
	ShowDiscountInTable bool            `json:"show_discount_in_table"`
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// LineTotal is quantity * unitPrice.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

func spreads(s DiscountSettings) bool {
	return s.Enabled && !s.ShowDiscountInTable && s.Percent.IsPositive()
}

// EffectiveUnitPrice returns the price shown in the line table.
func EffectiveUnitPrice(unitPrice decimal.Decimal, s DiscountSettings) decimal.Decimal {
	if !spreads(s) {
		return unitPrice
	}
	factor := decimal.NewFromInt(1).Sub(s.Percent.Div(hundred))
	return unitPrice.Mul(factor)
}

// EffectiveLineTotal is the line amount after a spread discount.
func EffectiveLineTotal(l Line, s DiscountSettings) decimal.Decimal {
	return LineTotal(l.Quantity, EffectiveUnitPrice(l.UnitPrice, s))
}

// RawSubtotal sums quantity * unitPrice ignoring any discount.
func RawSubtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.Quantity, l.UnitPrice))
	}
	return sum
}

func Subtotal(lines []Line, s DiscountSettings) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(EffectiveLineTotal(l, s))
	}
	return sum
}

// DiscountAmount is non-zero only when the discount is shown as its own row; in spread
// mode it is already inside the subtotal. Percent is used as given, without clamping.
func DiscountAmount(lines []Line, s DiscountSettings) decimal.Decimal {
	if !s.Enabled || !s.ShowDiscountInTable {
		return decimal.Zero
	}
	return RawSubtotal(lines).Mul(s.Percent).Div(hundred)
}

func Total(subtotal, discountAmount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discountAmount)
}

func Compute(lines []Line, s DiscountSettings) Totals {
	subtotal := Subtotal(lines, s)
	discount := DiscountAmount(lines, s)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          Total(subtotal, discount),
	}
}

// FormatMoney renders d with two decimals, rounding half-up.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}

// RoundMoney rounds half-up to currency precision. Only use it at presentation time.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}
