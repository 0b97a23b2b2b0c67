package domain

import "time"

// SettingsID is the primary key of the single company_settings row.
const SettingsID = 1

type Settings struct {
	ID                     int       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Name                   string    `gorm:"not null" json:"name"`
	VATNumber              string    `gorm:"column:vat_number" json:"vat_number"`
	Address                string    `json:"address"`
	City                   string    `json:"city"`
	Province               string    `json:"province"`
	PostalCode             string    `gorm:"column:postal_code" json:"postal_code"`
	Phone                  string    `json:"phone"`
	Email                  string    `json:"email"`
	LogoPath               string    `gorm:"column:logo_path" json:"logo_path"`
	HeaderFontSize         float64   `gorm:"column:header_font_size" json:"header_font_size"`
	BodyFontSize           float64   `gorm:"column:body_font_size" json:"body_font_size"`
	TableFontSize          float64   `gorm:"column:table_font_size" json:"table_font_size"`
	StartingQuoteNumber    int       `gorm:"column:starting_quote_number;not null;default:1" json:"starting_quote_number"`
	CustomNumberingEnabled bool      `gorm:"column:custom_numbering_enabled;not null;default:false" json:"custom_numbering_enabled"`
	UpdatedAt              time.Time `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string { return "company_settings" }

// DefaultSettings is what callers see before the profile was ever saved.
func DefaultSettings() Settings {
	return Settings{
		ID:                  SettingsID,
		HeaderFontSize:      14,
		BodyFontSize:        10,
		TableFontSize:       9,
		StartingQuoteNumber: 1,
	}
}
