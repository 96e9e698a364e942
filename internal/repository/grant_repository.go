package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"delivery_portal/internal/domain/models"
	redisapp "delivery_portal/internal/storage/redis"

	"github.com/redis/go-redis/v9"
)

type RedisGrantRepo struct {
	Client *redisapp.Client
}

func NewRedisGrantRepo(client *redisapp.Client) *RedisGrantRepo {
	return &RedisGrantRepo{Client: client}
}

func (r *RedisGrantRepo) SaveGrant(ctx context.Context, grant models.AccessGrant, ttl time.Duration) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, grantKey(grant.Token), data, ttl).Err()
}

func (r *RedisGrantRepo) GetGrant(ctx context.Context, token string) (models.AccessGrant, error) {
	const op = "repository.RedisGrantRepo.GetGrant"

	val, err := r.Client.Get(ctx, grantKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	var grant models.AccessGrant
	if err := json.Unmarshal(val, &grant); err != nil {
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	return grant, nil
}

func (r *RedisGrantRepo) DeleteGrant(ctx context.Context, token string) error {
	return r.Client.Del(ctx, grantKey(token)).Err()
}

func grantKey(token string) string {
	return "grant:" + token
}
