package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
)

type ClientData struct {
	Name       string `json:"name"`
	TaxCode    string `json:"tax_code,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

type WorkLocation struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type LineInput struct {
	Description string         `json:"description"`
	Unit        Unit           `json:"unit"`
	Quantity    assembly.Input `json:"quantity"`
	UnitPrice   assembly.Input `json:"unit_price"`
}

func (l LineInput) blank() bool {
	return strings.TrimSpace(l.Description) == "" &&
		l.Quantity.Value().IsZero() &&
		l.UnitPrice.Value().IsZero()
}

type DiscountInput struct {
	Enabled     bool           `json:"enabled"`
	Percent     assembly.Input `json:"percent"`
	ShowInTable bool           `json:"show_in_table"`
}

// QuoteInput is the editable form of a quote. It is what the editor sends, what the
// draft cache snapshots and what clone copies.
type QuoteInput struct {
	Client        ClientData    `json:"client"`
	Location      WorkLocation  `json:"location"`
	Subject       string        `json:"subject"`
	Lines         []LineInput   `json:"lines"`
	Discount      DiscountInput `json:"discount"`
	Notes         string        `json:"notes,omitempty"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	Number        *int          `json:"number,omitempty"`
	Year          *int          `json:"year,omitempty"`
}

func (in QuoteInput) DiscountSettings() assembly.DiscountSettings {
	return assembly.DiscountSettings{
		Enabled:             in.Discount.Enabled,
		Percent:             in.Discount.Percent.Value(),
		ShowDiscountInTable: in.Discount.ShowInTable,
	}
}

func (in QuoteInput) AssemblyLines() []assembly.Line {
	lines := make([]assembly.Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, assembly.Line{Quantity: l.Quantity.Value(), UnitPrice: l.UnitPrice.Value()})
	}
	return lines
}

func (in QuoteInput) Totals() assembly.Totals {
	return assembly.Compute(in.AssemblyLines(), in.DiscountSettings())
}

// Normalize commits every staged number, trims text, drops blank rows and defaults
// missing units to pieces.
func (in QuoteInput) Normalize() QuoteInput {
	out := in
	out.Client = ClientData{
		Name:       strings.Join(strings.Fields(in.Client.Name), " "),
		TaxCode:    strings.TrimSpace(in.Client.TaxCode),
		Address:    strings.TrimSpace(in.Client.Address),
		City:       strings.TrimSpace(in.Client.City),
		Province:   strings.TrimSpace(in.Client.Province),
		PostalCode: strings.TrimSpace(in.Client.PostalCode),
		Phone:      strings.TrimSpace(in.Client.Phone),
		Email:      strings.TrimSpace(in.Client.Email),
	}
	out.Location = WorkLocation{
		Address:    strings.TrimSpace(in.Location.Address),
		City:       strings.TrimSpace(in.Location.City),
		Province:   strings.TrimSpace(in.Location.Province),
		PostalCode: strings.TrimSpace(in.Location.PostalCode),
	}
	out.Subject = strings.TrimSpace(in.Subject)
	out.Notes = strings.TrimSpace(in.Notes)
	out.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	out.Discount.Percent = in.Discount.Percent.Commit()

	out.Lines = make([]LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.blank() {
			continue
		}
		unit := Unit(strings.ToLower(strings.TrimSpace(string(l.Unit))))
		if unit == "" {
			unit = UnitPiece
		}
		out.Lines = append(out.Lines, LineInput{
			Description: strings.TrimSpace(l.Description),
			Unit:        unit,
			Quantity:    l.Quantity.Commit(),
			UnitPrice:   l.UnitPrice.Commit(),
		})
	}
	return out
}

// Validate expects a normalized input.
func (in QuoteInput) Validate() error {
	for _, l := range in.Lines {
		if !l.Unit.Valid() {
			return ErrInvalidUnit
		}
		if l.Quantity.Value().IsNegative() || l.UnitPrice.Value().IsNegative() {
			return ErrInvalidLine
		}
	}
	pct := in.Discount.Percent.Value()
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidDiscount
	}
	return nil
}

// InputFromQuote turns a stored quote back into its editable form.
func InputFromQuote(q Quote) QuoteInput {
	number, year := q.Number, q.Year
	in := QuoteInput{
		Client: ClientData{Name: q.ClientName},
		Location: WorkLocation{
			Address:    q.Address,
			City:       q.City,
			Province:   q.Province,
			PostalCode: q.PostalCode,
		},
		Subject: q.Subject,
		Discount: DiscountInput{
			Enabled:     q.DiscountEnabled,
			Percent:     assembly.Parsed(q.DiscountPercent),
			ShowInTable: q.ShowDiscountInTable,
		},
		Notes:         q.Notes,
		PaymentMethod: q.PaymentMethod,
		Number:        &number,
		Year:          &year,
	}
	in.Lines = make([]LineInput, 0, len(q.Lines))
	for _, l := range q.Lines {
		in.Lines = append(in.Lines, LineInput{
			Description: l.Description,
			Unit:        l.Unit,
			Quantity:    assembly.Parsed(l.Quantity),
			UnitPrice:   assembly.Parsed(l.UnitPrice),
		})
	}
	return in
}
