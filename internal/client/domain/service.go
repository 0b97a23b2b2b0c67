package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// UpsertClientRequest carries the client block of a quote. Empty fields never
// overwrite stored values.
type UpsertClientRequest struct {
	Name       string `json:"name"`
	TaxCode    string `json:"tax_code"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

type Service interface {
	Upsert(context.Context, UpsertClientRequest) (Client, error)
	// UpsertTx runs the upsert inside the caller's transaction.
	UpsertTx(ctx context.Context, tx *gorm.DB, req UpsertClientRequest) (Client, error)
	Search(ctx context.Context, query string, limit int) ([]Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
}

var (
	ErrInvalidName  = errors.New("invalid_client_name")
	ErrInvalidEmail = errors.New("invalid_client_email")
	ErrInvalidID    = errors.New("invalid_client_id")
	ErrNotFound     = errors.New("client_not_found")
)
