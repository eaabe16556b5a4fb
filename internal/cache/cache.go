// cache — необязательный кэш идентичности (PublicAccount по id) поверх Redis.
// Ошибки кэша не должны ронять запрос: вызывающая сторона трактует их как промах.
package cache

//go:generate mockgen -source=cache.go -destination=../../mocks/cache.go -package=mocks

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/redis/go-redis/v9"
)

// AccountCache — минимальный контракт кэша учётных записей.
type AccountCache interface {
	// Get возвращает запись и признак её наличия в кэше.
	Get(ctx context.Context, id uuid.UUID) (*models.PublicAccount, bool, error)
	// Set сохраняет запись с TTL.
	Set(ctx context.Context, acc *models.PublicAccount, ttl time.Duration) error
	// Delete удаляет запись (после изменения профиля).
	Delete(ctx context.Context, id uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Ключи имеют вид "<prefix>:acc:<id>"; пустой prefix — "accounts".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (AccountCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return newRedisCache(rdb, prefix), nil
}

func newRedisCache(rdb *redis.Client, prefix string) *redisCache {
	if prefix == "" {
		prefix = "accounts"
	}

	return &redisCache{rdb: rdb, prefix: prefix}
}

func (c *redisCache) key(id uuid.UUID) string { return c.prefix + ":acc:" + id.String() }

// Храним как Redis Hash: id, username, email, full_name, avatar, cover, created, updated (unix nano).
func (c *redisCache) Get(ctx context.Context, id uuid.UUID) (*models.PublicAccount, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(id)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	uid, err := uuid.Parse(m["id"])
	if err != nil {
		return nil, false, err
	}

	created, err := strconv.ParseInt(m["created"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	updated, err := strconv.ParseInt(m["updated"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &models.PublicAccount{
		ID:            uid,
		Username:      m["username"],
		Email:         m["email"],
		FullName:      m["full_name"],
		AvatarURL:     m["avatar"],
		CoverImageURL: m["cover"],
		CreatedAt:     time.Unix(0, created).UTC(),
		UpdatedAt:     time.Unix(0, updated).UTC(),
	}, true, nil
}

func (c *redisCache) Set(ctx context.Context, acc *models.PublicAccount, ttl time.Duration) error {
	kv := map[string]string{
		"id":        acc.ID.String(),
		"username":  acc.Username,
		"email":     acc.Email,
		"full_name": acc.FullName,
		"avatar":    acc.AvatarURL,
		"cover":     acc.CoverImageURL,
		"created":   strconv.FormatInt(acc.CreatedAt.UnixNano(), 10),
		"updated":   strconv.FormatInt(acc.UpdatedAt.UnixNano(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(acc.ID), kv)
	pipe.Expire(ctx, c.key(acc.ID), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
