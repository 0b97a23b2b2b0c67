package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/numbering"
	"gorm.io/gorm"
)

type ListFilter struct {
	Query    string
	Year     int
	ClientID snowflake.ID
	// After continues a listing past the given (year, number) position.
	AfterYear   int
	AfterNumber int
	Limit       int
}

type Repository interface {
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Quote, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quote, error)
	Insert(ctx context.Context, db *gorm.DB, quote *Quote) error
	Update(ctx context.Context, db *gorm.DB, quote *Quote) error
	ReplaceLines(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, lines []LineItem) error
	UpdateNumber(ctx context.Context, db *gorm.DB, id snowflake.ID, number, year int, updatedAt time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListKeys(ctx context.Context, db *gorm.DB) ([]numbering.Pair, error)
}
