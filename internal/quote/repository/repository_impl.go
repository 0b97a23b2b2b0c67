package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/numbering"
	"github.com/smallbiznis/quotedesk/internal/quote/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Quote, error) {
	stmt := db.WithContext(ctx).Model(&domain.Quote{})

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where(
			"LOWER(client_name) LIKE ? OR LOWER(subject) LIKE ? OR LOWER(city) LIKE ?",
			like, like, like,
		)
	}
	if filter.Year != 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.AfterYear != 0 {
		stmt = stmt.Where("(year < ?) OR (year = ? AND number < ?)",
			filter.AfterYear, filter.AfterYear, filter.AfterNumber)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var quotes []*domain.Quote
	err := stmt.
		Order("year desc").
		Order("number desc").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quote, error) {
	var quote domain.Quote
	err := db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sequence_index asc")
		}).
		Where("id = ?", id).
		Limit(1).
		Find(&quote).Error
	if err != nil {
		return nil, err
	}
	if quote.ID == 0 {
		return nil, nil
	}
	return &quote, nil
}

// Insert writes the quote together with its lines.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, quote *domain.Quote) error {
	return db.WithContext(ctx).Create(quote).Error
}

// Update writes the quote columns only. Lines are replaced with ReplaceLines.
func (r *repo) Update(ctx context.Context, db *gorm.DB, quote *domain.Quote) error {
	res := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ?", quote.ID).
		Updates(map[string]any{
			"client_id":              quote.ClientID,
			"client_name":            quote.ClientName,
			"subject":                quote.Subject,
			"address":                quote.Address,
			"city":                   quote.City,
			"province":               quote.Province,
			"postal_code":            quote.PostalCode,
			"subtotal":               quote.Subtotal,
			"discount_enabled":       quote.DiscountEnabled,
			"discount_percent":       quote.DiscountPercent,
			"discount_value":         quote.DiscountValue,
			"show_discount_in_table": quote.ShowDiscountInTable,
			"total":                  quote.Total,
			"notes":                  quote.Notes,
			"payment_method":         quote.PaymentMethod,
			"updated_at":             quote.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ReplaceLines(ctx context.Context, db *gorm.DB, quoteID snowflake.ID, lines []domain.LineItem) error {
	if err := db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Delete(&domain.LineItem{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) UpdateNumber(ctx context.Context, db *gorm.DB, id snowflake.ID, number, year int, updatedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"number":     number,
			"year":       year,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).
		Where("quote_id = ?", id).
		Delete(&domain.LineItem{}).Error; err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Quote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) ListKeys(ctx context.Context, db *gorm.DB) ([]numbering.Pair, error) {
	var rows []struct {
		ID     snowflake.ID
		Number int
		Year   int
	}
	err := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Select("id", "number", "year").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]numbering.Pair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, numbering.Pair{ID: row.ID, Number: row.Number, Year: row.Year})
	}
	return pairs, nil
}
