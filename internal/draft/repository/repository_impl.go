package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Upsert(ctx context.Context, draft *domain.Draft) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"original_quote_id",
				"operation",
				"snapshot",
				"client_name",
				"subject",
				"total",
				"number",
				"year",
				"updated_at",
			}),
		}).
		Create(draft).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Draft, error) {
	var draft domain.Draft
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&draft).Error
	if err != nil {
		return nil, err
	}
	if draft.ID == 0 {
		return nil, nil
	}
	return &draft, nil
}

func (r *repo) List(ctx context.Context) ([]*domain.Draft, error) {
	var drafts []*domain.Draft
	err := r.db.WithContext(ctx).
		Order("updated_at desc").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (r *repo) Delete(ctx context.Context, ids ...snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&domain.Draft{}).Error
}

func (r *repo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&domain.Draft{})
	return res.RowsAffected, res.Error
}
