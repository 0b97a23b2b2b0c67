package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository is implemented by the SQL store and the redis store, so it does not take
// a *gorm.DB.
type Repository interface {
	Upsert(ctx context.Context, draft *Draft) error
	FindByID(ctx context.Context, id snowflake.ID) (*Draft, error)
	// List returns drafts most recently updated first.
	List(ctx context.Context) ([]*Draft, error)
	Delete(ctx context.Context, ids ...snowflake.ID) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
