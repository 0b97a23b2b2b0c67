package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	"github.com/smallbiznis/quotedesk/internal/numbering"
)

type Unit string

const (
	UnitPiece       Unit = "pz"
	UnitHour        Unit = "h"
	UnitMeter       Unit = "m"
	UnitSquareMeter Unit = "m2"
	UnitCubicMeter  Unit = "m3"
	UnitKilogram    Unit = "kg"
	UnitLiter       Unit = "l"
	UnitLumpSum     Unit = "lump"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitPiece, UnitHour, UnitMeter, UnitSquareMeter, UnitCubicMeter, UnitKilogram, UnitLiter, UnitLumpSum:
		return true
	}
	return false
}

const StatusFinal = "final"

type Quote struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Number     int           `gorm:"not null;uniqueIndex:ux_quotes_number_year,priority:1" json:"number"`
	Year       int           `gorm:"not null;uniqueIndex:ux_quotes_number_year,priority:2" json:"year"`
	ClientID   *snowflake.ID `gorm:"index" json:"client_id,omitempty"`
	ClientName string        `gorm:"column:client_name;index" json:"client_name"`
	Subject    string        `json:"subject"`
	Address    string        `json:"address"`
	City       string        `json:"city"`
	Province   string        `json:"province"`
	PostalCode string        `gorm:"column:postal_code" json:"postal_code"`

	Lines []LineItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"lines"`

	Subtotal            decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"subtotal"`
	DiscountEnabled     bool            `gorm:"not null;default:false" json:"discount_enabled"`
	DiscountPercent     decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"discount_percent"`
	DiscountValue       decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"discount_value"`
	ShowDiscountInTable bool            `gorm:"not null;default:false" json:"show_discount_in_table"`
	Total               decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"total"`

	Notes         string    `json:"notes"`
	PaymentMethod string    `gorm:"column:payment_method" json:"payment_method"`
	Status        string    `gorm:"not null;default:final" json:"status"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (Quote) TableName() string { return "quotes" }

// Key is the business identifier, e.g. "03-2025".
func (q Quote) Key() string {
	return numbering.FormatKey(q.Number, q.Year)
}

func (q Quote) DiscountSettings() assembly.DiscountSettings {
	return assembly.DiscountSettings{
		Enabled:             q.DiscountEnabled,
		Percent:             q.DiscountPercent,
		ShowDiscountInTable: q.ShowDiscountInTable,
	}
}

func (q Quote) AssemblyLines() []assembly.Line {
	lines := make([]assembly.Line, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, assembly.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return lines
}

// Totals recomputes the quote totals from its lines.
func (q Quote) Totals() assembly.Totals {
	return assembly.Compute(q.AssemblyLines(), q.DiscountSettings())
}

type LineItem struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuoteID       snowflake.ID    `gorm:"not null;index" json:"quote_id"`
	SequenceIndex int             `gorm:"column:sequence_index;not null" json:"sequence_index"`
	Description   string          `json:"description"`
	Unit          Unit            `gorm:"type:varchar(8);not null" json:"unit"`
	Quantity      decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(20,6);not null" json:"unit_price"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(20,6);not null" json:"line_total"`
}

func (LineItem) TableName() string { return "quote_lines" }

// DeletedQuote carries everything needed to undo a delete.
type DeletedQuote struct {
	Quote     Quote     `json:"quote"`
	DeletedAt time.Time `json:"deleted_at"`
}
