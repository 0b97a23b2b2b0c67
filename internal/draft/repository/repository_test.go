package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDraft(id snowflake.ID, subject string, updatedAt time.Time) *domain.Draft {
	d := &domain.Draft{
		ID:        id,
		Operation: domain.OperationCreate,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	d.SetSnapshot(domain.NewSnapshot(quotedomain.QuoteInput{
		Client:  quotedomain.ClientData{Name: "Rossi"},
		Subject: subject,
		Lines: []quotedomain.LineInput{{
			Description: "Posa piastrelle",
			Unit:        quotedomain.UnitSquareMeter,
			Quantity:    assembly.Raw("2,5"),
			UnitPrice:   assembly.Parsed(decimal.NewFromInt(10)),
		}},
	}))
	return d
}

func setupGorm(t *testing.T) domain.Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Draft{}))
	return NewGormRepository(db)
}

func setupRedis(t *testing.T) (domain.Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, "test"), mr
}

func stores(t *testing.T) map[string]domain.Repository {
	redisRepo, _ := setupRedis(t)
	return map[string]domain.Repository{
		"gorm":  setupGorm(t),
		"redis": redisRepo,
	}
}

func TestRepositoryUpsertIsByID(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t0 := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

			require.NoError(t, repo.Upsert(ctx, newDraft(1, "Bagno", t0)))
			second := newDraft(1, "Bagno e cucina", t0.Add(time.Minute))
			second.CreatedAt = t0.Add(time.Minute)
			require.NoError(t, repo.Upsert(ctx, second))

			drafts, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, drafts, 1)
			assert.Equal(t, "Bagno e cucina", drafts[0].Subject)
			assert.True(t, drafts[0].Total.Equal(decimal.NewFromInt(25)))

			snap := drafts[0].Snapshot.Data()
			require.Len(t, snap.Lines, 1)
			assert.Equal(t, "2.5", snap.Lines[0].Quantity.Text())

			got, err := repo.FindByID(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.CreatedAt.Equal(t0), "created_at survives updates, got %s", got.CreatedAt)
			assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))
		})
	}
}

func TestRepositoryListDeleteAndPurge(t *testing.T) {
	for name, repo := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t0 := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

			require.NoError(t, repo.Upsert(ctx, newDraft(1, "old", t0)))
			require.NoError(t, repo.Upsert(ctx, newDraft(2, "mid", t0.Add(time.Hour))))
			require.NoError(t, repo.Upsert(ctx, newDraft(3, "new", t0.Add(2*time.Hour))))

			drafts, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, drafts, 3)
			assert.Equal(t, "new", drafts[0].Subject)
			assert.Equal(t, "old", drafts[2].Subject)

			// the cutoff itself is kept
			n, err := repo.DeleteOlderThan(ctx, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			got, err := repo.FindByID(ctx, 2)
			require.NoError(t, err)
			require.NotNil(t, got)

			require.NoError(t, repo.Delete(ctx, 3, 99))
			got, err = repo.FindByID(ctx, 3)
			require.NoError(t, err)
			assert.Nil(t, got)

			drafts, err = repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, drafts, 1)
			assert.Equal(t, "mid", drafts[0].Subject)
		})
	}
}

func TestRedisRepositoryDropsStaleIndexEntries(t *testing.T) {
	repo, mr := setupRedis(t)
	ctx := context.Background()
	t0 := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newDraft(1, "kept", t0)))
	require.NoError(t, repo.Upsert(ctx, newDraft(2, "lost", t0.Add(time.Minute))))
	mr.Del("test:draft:2")

	drafts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "kept", drafts[0].Subject)

	members, err := mr.ZMembers("test:drafts:by_updated")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)

	n, err := repo.DeleteOlderThan(ctx, t0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDraftCodecRoundTrip(t *testing.T) {
	d := newDraft(42, "Tetto", time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC))

	raw, err := encodeDraft(d)
	require.NoError(t, err)

	back, err := decodeDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, d.ID, back.ID)
	assert.Equal(t, "Tetto", back.Snapshot.Data().Subject)
	assert.True(t, back.Snapshot.Data().Totals.Total.Equal(decimal.NewFromInt(25)))

	_, err = decodeDraft([]byte("not snappy"))
	assert.Error(t, err)
}
