package pdf

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
)

// QuoteView is the quote as printed: every amount already formatted.
type QuoteView struct {
	Key          string
	Date         string
	ClientName   string
	Subject      string
	Location     string
	Lines        []LineView
	ShowDiscount bool
	DiscountText string
	Subtotal     string
	Discount     string
	Total        string
	Notes        string
	Payment      string

	Totals assembly.Totals
}

type LineView struct {
	Index       int
	Description string
	Unit        string
	Quantity    string
	UnitPrice   string
	Amount      string
}

// BuildQuoteView recomputes totals from the stored lines, so the document always matches
// what the editor and the draft cache showed.
func BuildQuoteView(q quotedomain.Quote) QuoteView {
	settings := q.DiscountSettings()
	totals := q.Totals()

	view := QuoteView{
		Key:        q.Key(),
		Date:       q.CreatedAt.Format("02/01/2006"),
		ClientName: q.ClientName,
		Subject:    q.Subject,
		Location:   joinNonEmpty(", ", q.Address, joinNonEmpty(" ", q.PostalCode, q.City), wrapProvince(q.Province)),
		Subtotal:   assembly.FormatMoney(totals.Subtotal),
		Discount:   assembly.FormatMoney(totals.DiscountAmount),
		Total:      assembly.FormatMoney(totals.Total),
		Notes:      q.Notes,
		Payment:    q.PaymentMethod,
		Totals:     totals,
	}
	if totals.DiscountAmount.IsPositive() {
		view.ShowDiscount = true
		view.DiscountText = fmt.Sprintf("Discount %s%%", q.DiscountPercent.String())
	}

	view.Lines = make([]LineView, 0, len(q.Lines))
	for i, l := range q.Lines {
		line := assembly.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		view.Lines = append(view.Lines, LineView{
			Index:       i + 1,
			Description: l.Description,
			Unit:        string(l.Unit),
			Quantity:    formatQuantity(l.Quantity),
			UnitPrice:   assembly.FormatMoney(assembly.EffectiveUnitPrice(l.UnitPrice, settings)),
			Amount:      assembly.FormatMoney(assembly.EffectiveLineTotal(line, settings)),
		})
	}
	return view
}

// Filename is e.g. "quote-03-2025-mario-rossi.pdf".
func Filename(q quotedomain.Quote) string {
	return slug.Make(strings.TrimSpace("quote "+q.Key()+" "+q.ClientName)) + ".pdf"
}

func formatQuantity(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.String()
}

func wrapProvince(p string) string {
	if p == "" {
		return ""
	}
	return "(" + p + ")"
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
