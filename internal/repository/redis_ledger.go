package repository

import (
	"context"
	"fmt"
	"time"

	"delivery_portal/internal/domain/models"
	redisapp "delivery_portal/internal/storage/redis"

	"github.com/redis/go-redis/v9"
)

// recordScript открывает окно при первом скачивании и увеличивает счётчик,
// пока он не достиг лимита. ARGV: now ms, window ms, limit, email, ip, user agent.
// Возвращает {allowed, count, accessed_at ms, last_download ms, email, ip, user agent};
// поля окна читаются внутри скрипта, чтобы не смешать два окна.
var recordScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local accessed = tonumber(redis.call("HGET", KEYS[1], "accessed_at") or "0")
if accessed == 0 or accessed + window <= now then
  redis.call("DEL", KEYS[1])
  redis.call("HSET", KEYS[1], "accessed_at", ARGV[1], "count", 0, "email", ARGV[4], "ip", ARGV[5], "ua", ARGV[6])
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  accessed = now
end
local email = redis.call("HGET", KEYS[1], "email") or ""
local ip = redis.call("HGET", KEYS[1], "ip") or ""
local ua = redis.call("HGET", KEYS[1], "ua") or ""
local count = tonumber(redis.call("HGET", KEYS[1], "count"))
if limit > 0 and count >= limit then
  local last = tonumber(redis.call("HGET", KEYS[1], "last_download") or "0")
  return {0, count, accessed, last, email, ip, ua}
end
count = redis.call("HINCRBY", KEYS[1], "count", 1)
redis.call("HSET", KEYS[1], "last_download", ARGV[1])
return {1, count, accessed, now, email, ip, ua}
`)

// RedisLedger хранит только текущее окно каждой галереи; ключ истекает вместе с окном.
type RedisLedger struct {
	Client *redisapp.Client
	Prefix string
}

func NewRedisLedger(client *redisapp.Client) *RedisLedger {
	return &RedisLedger{Client: client, Prefix: "ledger:"}
}

func (l *RedisLedger) RecordDownload(
	ctx context.Context,
	galleryID string,
	req models.RequesterContext,
	now time.Time,
	window time.Duration,
	limit int,
) (models.GalleryAccess, error) {
	const op = "repository.RedisLedger.RecordDownload"

	key := l.Prefix + galleryID
	res, err := recordScript.Run(ctx, l.Client, []string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		req.ClientEmail,
		req.IPAddress,
		req.UserAgent,
	).Slice()
	if err != nil {
		return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) < 7 {
		return models.GalleryAccess{}, fmt.Errorf("%s: unexpected script reply %v", op, res)
	}

	var nums [4]int64
	for i := range nums {
		n, ok := res[i].(int64)
		if !ok {
			return models.GalleryAccess{}, fmt.Errorf("%s: unexpected script reply %v", op, res)
		}
		nums[i] = n
	}

	entry := models.GalleryAccess{
		GalleryID:      galleryID,
		ClientEmail:    replyString(res, 4),
		AccessedAt:     time.UnixMilli(nums[2]).UTC(),
		IPAddress:      replyString(res, 5),
		UserAgent:      replyString(res, 6),
		DownloadsCount: int(nums[1]),
	}
	if nums[3] > 0 {
		last := time.UnixMilli(nums[3]).UTC()
		entry.LastDownloadAt = &last
	}

	if nums[0] == 0 {
		return entry, fmt.Errorf("%s: %w", op, models.ErrRateLimited)
	}

	return entry, nil
}

// PruneBefore ничего не делает: ключи удаляются по TTL
func (l *RedisLedger) PruneBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func replyString(vals []interface{}, i int) string {
	if i >= len(vals) {
		return ""
	}
	s, _ := vals[i].(string)
	return s
}
