package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
)

const (
	keyDraft = "draft:"
	keyIndex = "drafts:by_updated"
)

// redisRepo keeps each draft as snappy-compressed JSON plus a sorted set of ids
// scored by updated_at.
type redisRepo struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRepository(client redis.UniversalClient, prefix string) domain.Repository {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &redisRepo{client: client, prefix: prefix}
}

func (r *redisRepo) draftKey(id snowflake.ID) string {
	return r.prefix + keyDraft + id.String()
}

func (r *redisRepo) indexKey() string {
	return r.prefix + keyIndex
}

func (r *redisRepo) Upsert(ctx context.Context, draft *domain.Draft) error {
	if current, err := r.FindByID(ctx, draft.ID); err != nil {
		return err
	} else if current != nil {
		draft.CreatedAt = current.CreatedAt
	}

	payload, err := encodeDraft(draft)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.draftKey(draft.ID), payload, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{
			Score:  float64(draft.UpdatedAt.UnixMilli()),
			Member: draft.ID.String(),
		})
		return nil
	})
	return err
}

func (r *redisRepo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Draft, error) {
	raw, err := r.client.Get(ctx, r.draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDraft(raw)
}

func (r *redisRepo) List(ctx context.Context) ([]*domain.Draft, error) {
	members, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, r.prefix+keyDraft+m)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	drafts := make([]*domain.Draft, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		draft, err := decodeDraft([]byte(s))
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	if len(stale) > 0 {
		r.client.ZRem(ctx, r.indexKey(), stale...)
	}
	return drafts, nil
}

func (r *redisRepo) Delete(ctx context.Context, ids ...snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.draftKey(id))
		members = append(members, id.String())
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, r.indexKey(), members...)
		return nil
	})
	return err
}

func (r *redisRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	members, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	ids := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		id, err := snowflake.ParseString(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := r.Delete(ctx, ids...); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func encodeDraft(draft *domain.Draft) ([]byte, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, payload), nil
}

func decodeDraft(raw []byte) (*domain.Draft, error) {
	payload, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, err
	}
	var draft domain.Draft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}
