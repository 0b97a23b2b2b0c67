package repository

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	DB        *gorm.DB
	Log       *zap.Logger
}

// Provide picks the draft store from DRAFT_STORE.
func Provide(p Params) domain.Repository {
	if p.Cfg.DraftStore != config.DraftStoreRedis {
		return NewGormRepository(p.DB)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(p.Cfg.RedisAddr),
		Password: strings.TrimSpace(p.Cfg.RedisPassword),
		DB:       p.Cfg.RedisDB,
	})
	p.Lifecycle.Append(fx.StopHook(client.Close))
	p.Log.Info("draft store: redis", zap.String("addr", p.Cfg.RedisAddr))
	return NewRedisRepository(client, p.Cfg.RedisKeyPrefix)
}
