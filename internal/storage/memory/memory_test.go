package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"delivery_portal/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx = context.Background()
	now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func gallery(id string, createdAt time.Time) models.ClientGallery {
	return models.ClientGallery{
		ID:         id,
		ClientName: "Anna",
		EventName:  "Wedding",
		Photos: []models.MediaReference{{
			ID: "m1", URL: "https://cdn.example.com/m1.jpg", Comments: []models.MediaComment{},
		}},
		Settings:   models.DefaultGallerySettings(),
		AccessCode: "CODE",
		CreatedAt:  createdAt,
	}
}

func TestStorage_GalleryIsolation(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGallery(ctx, gallery("g1", now)))

	got, err := s.GetGallery(ctx, "g1")
	require.NoError(t, err)
	got.Photos[0].Likes = 10

	again, err := s.GetGallery(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, again.Photos[0].Likes)
}

func TestStorage_UpdateVersion(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateGallery(ctx, gallery("g1", now)))

	g, err := s.GetGallery(ctx, "g1")
	require.NoError(t, err)

	g.EventName = "Reception"
	require.NoError(t, s.UpdateGallery(ctx, g))

	err = s.UpdateGallery(ctx, g)
	assert.ErrorIs(t, err, models.ErrConflict)

	stored, err := s.GetGallery(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, "Reception", stored.EventName)

	assert.ErrorIs(t, s.UpdateGallery(ctx, gallery("nope", now)), models.ErrNotFound)
	assert.ErrorIs(t, s.CreateGallery(ctx, gallery("g1", now)), models.ErrAlreadyExists)
}

func TestStorage_ListGalleriesPaged(t *testing.T) {
	s := New()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateGallery(ctx, gallery(id, now.Add(time.Duration(i)*time.Hour))))
	}

	page, total, err := s.ListGalleries(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	page, _, err = s.ListGalleries(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	page, _, err = s.ListGalleries(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStorage_ListProjectsByStatus(t *testing.T) {
	s := New()
	for _, st := range []models.ProjectStatus{models.StatusDraft, models.StatusSent, models.StatusViewed} {
		p := models.NewClientProject("p-"+string(st), now)
		p.Status = st
		require.NoError(t, s.CreateProject(ctx, p))
	}

	list, total, err := s.ListProjects(ctx, []models.ProjectStatus{models.StatusSent, models.StatusViewed}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)

	_, total, err = s.ListProjects(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.NoError(t, s.DeleteProject(ctx, "p-draft"))
	assert.ErrorIs(t, s.DeleteProject(ctx, "p-draft"), models.ErrNotFound)
}

func TestLedger_Window(t *testing.T) {
	l := NewLedger()
	req := models.RequesterContext{ClientEmail: "anna@example.com"}
	window := 30 * time.Minute

	for i := 1; i <= 3; i++ {
		e, err := l.RecordDownload(ctx, "g1", req, now.Add(time.Duration(i)*time.Minute), window, 3)
		require.NoError(t, err)
		assert.Equal(t, i, e.DownloadsCount)
	}

	e, err := l.RecordDownload(ctx, "g1", req, now.Add(10*time.Minute), window, 3)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 3, e.DownloadsCount)

	// окно открыто в now+1m и закрывается ровно через 30 минут
	e, err = l.RecordDownload(ctx, "g1", req, now.Add(31*time.Minute), window, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, e.DownloadsCount)

	entries := l.Entries("g1")
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].DownloadsCount)

	removed, err := l.PruneBefore(ctx, now.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, l.Entries("g1"), 1)
}

func TestLedger_ConcurrentRequestsNeverExceedLimit(t *testing.T) {
	l := NewLedger()

	const limit = 7
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		limited int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordDownload(ctx, "g1", models.RequesterContext{}, now, time.Hour, limit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				limited++
				return
			}
			allowed++
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
	assert.Equal(t, 50-limit, limited)

	entries := l.Entries("g1")
	require.Len(t, entries, 1)
	assert.Equal(t, limit, entries[0].DownloadsCount)
}

func TestGrantStore(t *testing.T) {
	g := NewGrantStore(time.Hour)
	grant := models.AccessGrant{Token: "t1", EntityID: "g1", Kind: models.EntityGallery}

	require.NoError(t, g.SaveGrant(ctx, grant, time.Hour))

	got, err := g.GetGrant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.EntityID)

	require.NoError(t, g.DeleteGrant(ctx, "t1"))
	_, err = g.GetGrant(ctx, "t1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
