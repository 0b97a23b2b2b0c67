package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"gorm.io/datatypes"
)

type Operation string

const (
	OperationCreate Operation = "create"
	OperationModify Operation = "modify"
	OperationClone  Operation = "clone"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationModify, OperationClone:
		return true
	}
	return false
}

// Snapshot is the editor state at the time of the write plus the totals it produced.
type Snapshot struct {
	quotedomain.QuoteInput
	Totals assembly.Totals `json:"totals"`
}

func NewSnapshot(in quotedomain.QuoteInput) Snapshot {
	in = in.Normalize()
	return Snapshot{QuoteInput: in, Totals: in.Totals()}
}

type Draft struct {
	ID              snowflake.ID                 `gorm:"primaryKey" json:"id"`
	OriginalQuoteID *snowflake.ID                `gorm:"column:original_quote_id;index" json:"original_quote_id,omitempty"`
	Operation       Operation                    `gorm:"type:varchar(16);not null" json:"operation"`
	Snapshot        datatypes.JSONType[Snapshot] `gorm:"not null" json:"snapshot"`
	ClientName      string                       `gorm:"column:client_name" json:"client_name"`
	Subject         string                       `json:"subject"`
	Total           decimal.Decimal              `gorm:"type:numeric(20,6);not null" json:"total"`
	Number          *int                         `json:"number,omitempty"`
	Year            *int                         `json:"year,omitempty"`
	CreatedAt       time.Time                    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                    `gorm:"not null;index" json:"updated_at"`
}

func (Draft) TableName() string { return "quote_drafts" }

// SetSnapshot stores the snapshot and refreshes the summary columns.
func (d *Draft) SetSnapshot(s Snapshot) {
	d.Snapshot = datatypes.NewJSONType(s)
	d.ClientName = s.Client.Name
	d.Subject = s.Subject
	d.Total = s.Totals.Total
	d.Number = s.Number
	d.Year = s.Year
}
