package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivery_portal/internal/domain/models"
)

const defaultAttempts = 5

// MutateGallery читает галерею, применяет fn к копии и записывает результат
// с проверкой версии. При конкурентной записи цикл повторяется.
func MutateGallery(
	ctx context.Context,
	repo GalleryRepository,
	id string,
	attempts int,
	now time.Time,
	fn func(g *models.ClientGallery) error,
) (models.ClientGallery, error) {
	const op = "repository.MutateGallery"

	if attempts <= 0 {
		attempts = defaultAttempts
	}

	for i := 0; i < attempts; i++ {
		current, err := repo.GetGallery(ctx, id)
		if err != nil {
			return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
		}

		next := current.Clone()
		if err := fn(&next); err != nil {
			return models.ClientGallery{}, err
		}
		next.ID = current.ID
		next.Version = current.Version
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now.UTC()

		if err := next.Validate(); err != nil {
			return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
		}

		err = repo.UpdateGallery(ctx, next)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
		}

		next.Version++
		return next, nil
	}

	return models.ClientGallery{}, fmt.Errorf("%s: %w", op, models.ErrConflict)
}

// MutateProject аналог MutateGallery для проектов
func MutateProject(
	ctx context.Context,
	repo ProjectRepository,
	id string,
	attempts int,
	now time.Time,
	fn func(p *models.ClientProject) error,
) (models.ClientProject, error) {
	const op = "repository.MutateProject"

	if attempts <= 0 {
		attempts = defaultAttempts
	}

	for i := 0; i < attempts; i++ {
		current, err := repo.GetProject(ctx, id)
		if err != nil {
			return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
		}

		next := current.Clone()
		if err := fn(&next); err != nil {
			return models.ClientProject{}, err
		}
		next.ID = current.ID
		next.Version = current.Version
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now.UTC()

		if err := next.Validate(); err != nil {
			return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
		}

		err = repo.UpdateProject(ctx, next)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
		}

		next.Version++
		return next, nil
	}

	return models.ClientProject{}, fmt.Errorf("%s: %w", op, models.ErrConflict)
}
