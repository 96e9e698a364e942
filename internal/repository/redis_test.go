package repository_test

import (
	"encoding/json"
	"testing"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/repository"
	redisapp "delivery_portal/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewMockClient() (*redisapp.Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &redisapp.Client{Client: db}, mock
}

func setupGrantRepo() (*repository.RedisGrantRepo, redismock.ClientMock) {
	db, mock := NewMockClient()
	return repository.NewRedisGrantRepo(db), mock
}

func TestRedisGrantRepo(t *testing.T) {
	grant := models.AccessGrant{
		Token:     "tok-1",
		EntityID:  "anna-1",
		Kind:      models.EntityGallery,
		IssuedAt:  baseNow,
		ExpiresAt: baseNow.Add(12 * time.Hour),
	}
	data, err := json.Marshal(grant)
	require.NoError(t, err)

	t.Run("save", func(t *testing.T) {
		repo, mock := setupGrantRepo()
		mock.ExpectSet("grant:tok-1", data, 12*time.Hour).SetVal("OK")

		err := repo.SaveGrant(testCtx, grant, 12*time.Hour)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("save error", func(t *testing.T) {
		repo, mock := setupGrantRepo()
		mock.ExpectSet("grant:tok-1", data, time.Hour).SetErr(redis.ErrClosed)

		err := repo.SaveGrant(testCtx, grant, time.Hour)
		assert.ErrorIs(t, err, redis.ErrClosed)
	})

	t.Run("get", func(t *testing.T) {
		repo, mock := setupGrantRepo()
		mock.ExpectGet("grant:tok-1").SetVal(string(data))

		got, err := repo.GetGrant(testCtx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, grant.EntityID, got.EntityID)
		assert.True(t, grant.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("get missing", func(t *testing.T) {
		repo, mock := setupGrantRepo()
		mock.ExpectGet("grant:nope").RedisNil()

		_, err := repo.GetGrant(testCtx, "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		repo, mock := setupGrantRepo()
		mock.ExpectDel("grant:tok-1").SetVal(1)

		assert.NoError(t, repo.DeleteGrant(testCtx, "tok-1"))
	})
}

func setupRedisLedger(t *testing.T) (*repository.RedisLedger, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &redisapp.Client{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })

	return repository.NewRedisLedger(client), mr
}

func TestRedisLedger_RecordDownload(t *testing.T) {
	ledger, mr := setupRedisLedger(t)
	req := models.RequesterContext{ClientEmail: "anna@example.com", IPAddress: "10.0.0.1", UserAgent: "ua"}
	window := 30 * time.Minute

	first, err := ledger.RecordDownload(testCtx, "g1", req, baseNow, window, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DownloadsCount)
	assert.True(t, first.AccessedAt.Equal(baseNow))
	assert.Equal(t, "anna@example.com", first.ClientEmail)
	assert.Equal(t, "10.0.0.1", first.IPAddress)

	ttl := mr.TTL("ledger:g1")
	assert.Equal(t, window, ttl)

	second, err := ledger.RecordDownload(testCtx, "g1", req, baseNow.Add(time.Minute), window, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, second.DownloadsCount)
	assert.True(t, second.AccessedAt.Equal(baseNow))
	require.NotNil(t, second.LastDownloadAt)
	assert.True(t, second.LastDownloadAt.Equal(baseNow.Add(time.Minute)))

	blocked, err := ledger.RecordDownload(testCtx, "g1", req, baseNow.Add(2*time.Minute), window, 2)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 2, blocked.DownloadsCount)

	assert.Equal(t, "10.0.0.1", blocked.IPAddress)

	other := models.RequesterContext{ClientEmail: "ivan@example.com", IPAddress: "10.0.0.2", UserAgent: "other"}
	fresh, err := ledger.RecordDownload(testCtx, "g1", other, baseNow.Add(window), window, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.DownloadsCount)
	assert.True(t, fresh.AccessedAt.Equal(baseNow.Add(window)))
	assert.Equal(t, "ivan@example.com", fresh.ClientEmail)
	assert.Equal(t, "10.0.0.2", fresh.IPAddress)
	assert.Equal(t, "other", fresh.UserAgent)
}

func TestRedisLedger_Unlimited(t *testing.T) {
	ledger, _ := setupRedisLedger(t)
	req := models.RequesterContext{}

	var last models.GalleryAccess
	for i := 0; i < 10; i++ {
		entry, err := ledger.RecordDownload(testCtx, "g2", req, baseNow.Add(time.Duration(i)*time.Second), time.Hour, 0)
		require.NoError(t, err)
		last = entry
	}
	assert.Equal(t, 10, last.DownloadsCount)

	n, err := ledger.PruneBefore(testCtx, baseNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
