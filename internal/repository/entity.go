package repository

import (
	"context"
	"errors"
	"fmt"

	"delivery_portal/internal/domain/models"
)

// LoadEntity ищет id сначала среди галерей, затем среди проектов
func LoadEntity(ctx context.Context, galleries GalleryRepository, projects ProjectRepository, id string) (models.PortalEntity, error) {
	const op = "repository.LoadEntity"

	g, err := galleries.GetGallery(ctx, id)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := projects.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}
