package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/quotedesk/pkg/db/pagination"
)

type SaveQuoteRequest struct {
	QuoteInput
	// DraftID is committed (removed from the draft cache) once the save succeeds.
	DraftID string `json:"draft_id,omitempty"`
}

type ListQuoteRequest struct {
	Query    string `form:"q"`
	Year     int    `form:"year"`
	ClientID string `form:"client_id"`
	pagination.Pagination
}

type ListQuoteResponse struct {
	Quotes   []Quote             `json:"quotes"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type RenumberRequest struct {
	Number int `json:"number"`
	Year   int `json:"year"`
}

type NextNumberResponse struct {
	Number int    `json:"number"`
	Year   int    `json:"year"`
	Key    string `json:"key"`
}

type Service interface {
	List(ctx context.Context, req ListQuoteRequest) (ListQuoteResponse, error)
	// ListAll returns every quote matching the filter, unpaginated. Used by exports.
	ListAll(ctx context.Context, req ListQuoteRequest) ([]Quote, error)
	GetByID(ctx context.Context, id string) (Quote, error)
	Create(ctx context.Context, req SaveQuoteRequest) (Quote, error)
	Update(ctx context.Context, id string, req SaveQuoteRequest) (Quote, error)
	Renumber(ctx context.Context, id string, req RenumberRequest) (Quote, error)
	Clone(ctx context.Context, id string) (Quote, error)
	Delete(ctx context.Context, id string) (DeletedQuote, error)
	Restore(ctx context.Context, deleted DeletedQuote) (Quote, error)
	NextNumber(ctx context.Context, year int, clone bool) (NextNumberResponse, error)
}

var (
	ErrNotFound        = errors.New("quote_not_found")
	ErrInvalidID       = errors.New("invalid_quote_id")
	ErrInvalidUnit     = errors.New("invalid_unit")
	ErrInvalidLine     = errors.New("invalid_line")
	ErrInvalidDiscount = errors.New("invalid_discount_percent")
	ErrInvalidCursor   = errors.New("invalid_page_token")
	ErrPersistence     = errors.New("persistence_error")
)
