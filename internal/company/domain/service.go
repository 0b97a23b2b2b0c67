package domain

import (
	"context"
	"errors"
)

type SaveSettingsRequest struct {
	Name                   string  `json:"name" validate:"required,max=200"`
	VATNumber              string  `json:"vat_number" validate:"omitempty,max=32"`
	Address                string  `json:"address" validate:"max=255"`
	City                   string  `json:"city" validate:"max=120"`
	Province               string  `json:"province" validate:"max=8"`
	PostalCode             string  `json:"postal_code" validate:"max=16"`
	Phone                  string  `json:"phone" validate:"max=40"`
	Email                  string  `json:"email" validate:"omitempty,email"`
	LogoPath               string  `json:"logo_path" validate:"max=512"`
	HeaderFontSize         float64 `json:"header_font_size" validate:"omitempty,gte=6,lte=48"`
	BodyFontSize           float64 `json:"body_font_size" validate:"omitempty,gte=6,lte=24"`
	TableFontSize          float64 `json:"table_font_size" validate:"omitempty,gte=6,lte=24"`
	StartingQuoteNumber    int     `json:"starting_quote_number" validate:"omitempty,gte=1"`
	CustomNumberingEnabled bool    `json:"custom_numbering_enabled"`
}

type Service interface {
	// Get returns the stored profile, or defaults with found=false.
	Get(ctx context.Context) (settings Settings, found bool, err error)
	Save(ctx context.Context, req SaveSettingsRequest) (Settings, error)
}

var (
	ErrInvalidSettings = errors.New("invalid_company_settings")
)
