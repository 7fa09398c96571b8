// Package cache хранит в Redis публичные профили пользователей.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	profileKeyPrefix     = "profile:"
	invalidatedKeyPrefix = "profile-invalidated:"
	invalidationHold     = 10 * time.Second
)

// setUnlessInvalidated пишет профиль, только если его не инвалидировали недавно.
// KEYS[1] — профиль, KEYS[2] — метка инвалидации, ARGV[1] — значение, ARGV[2] — TTL в мс.
var setUnlessInvalidated = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// Cache — обёртка над клиентом Redis с JSON-сериализацией значений.
type Cache struct {
	Db         *redis.Client
	profileTTL time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.Redis) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, profileTTL: cfg.ProfileTTL}, nil
}

func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetProfile возвращает закэшированный профиль; nil, nil при промахе.
func (c *Cache) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	var u models.PublicUser
	found, err := c.Get(ctx, profileKeyPrefix+userID, &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

// SetProfile кладёт профиль в кэш. Если профиль инвалидировали в последние
// invalidationHold, запись пропускается: значение могло быть прочитано до изменения.
func (c *Cache) SetProfile(ctx context.Context, u *models.PublicUser) error {
	const op = "cache.SetProfile"
	jsonData, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	keys := []string{profileKeyPrefix + u.ID, invalidatedKeyPrefix + u.ID}
	if err = setUnlessInvalidated.Run(ctx, c.Db, keys, jsonData, c.profileTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InvalidateProfile удаляет профиль и ставит метку, запрещающую
// перезапись устаревшим значением.
func (c *Cache) InvalidateProfile(ctx context.Context, userID string) error {
	const op = "cache.InvalidateProfile"
	_, err := c.Db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, profileKeyPrefix+userID)
		pipe.Set(ctx, invalidatedKeyPrefix+userID, 1, invalidationHold)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.Db.Close()
}
