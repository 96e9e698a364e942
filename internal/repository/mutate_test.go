package repository_test

import (
	"context"
	"errors"
	"testing"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/repository"
	"delivery_portal/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingRepo подменяет версию перед первыми n записями, имитируя конкурентного писателя
type racingRepo struct {
	*memory.Storage
	races int
}

func (r *racingRepo) UpdateGallery(ctx context.Context, g models.ClientGallery) error {
	if r.races > 0 {
		r.races--
		current, err := r.Storage.GetGallery(ctx, g.ID)
		if err != nil {
			return err
		}
		current.Description += "+"
		if err := r.Storage.UpdateGallery(ctx, current); err != nil {
			return err
		}
	}
	return r.Storage.UpdateGallery(ctx, g)
}

func TestMutateGallery_RetriesOnConflict(t *testing.T) {
	repo := &racingRepo{Storage: memory.New(), races: 2}
	require.NoError(t, repo.CreateGallery(testCtx, newGallery("g1")))

	calls := 0
	got, err := repository.MutateGallery(testCtx, repo, "g1", 5, baseNow, func(g *models.ClientGallery) error {
		calls++
		g.Photos[0].Likes++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, got.Photos[0].Likes)

	stored, err := repo.GetGallery(testCtx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "++", stored.Description)
	assert.Equal(t, 1, stored.Photos[0].Likes)
	assert.Equal(t, got.Version, stored.Version)
}

func TestMutateGallery_GivesUp(t *testing.T) {
	repo := &racingRepo{Storage: memory.New(), races: 10}
	require.NoError(t, repo.CreateGallery(testCtx, newGallery("g1")))

	_, err := repository.MutateGallery(testCtx, repo, "g1", 3, baseNow, func(g *models.ClientGallery) error {
		return nil
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMutateGallery_CallbackErrorLeavesRecord(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateGallery(testCtx, newGallery("g1")))

	boom := errors.New("boom")
	_, err := repository.MutateGallery(testCtx, store, "g1", 3, baseNow, func(g *models.ClientGallery) error {
		g.EventName = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := store.GetGallery(testCtx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Wedding", stored.EventName)
	assert.Equal(t, int64(0), stored.Version)
}

func TestMutateProject_ValidatesResult(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateProject(testCtx, newProject("p1", models.StatusDraft)))

	_, err := repository.MutateProject(testCtx, store, "p1", 3, baseNow, func(p *models.ClientProject) error {
		p.ClientEmail = "not-an-email"
		return nil
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = repository.MutateProject(testCtx, store, "missing", 3, baseNow, func(p *models.ClientProject) error {
		return nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
