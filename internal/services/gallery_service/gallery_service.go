package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/lib/sanitize"
	"delivery_portal/internal/repository"
	"delivery_portal/internal/transport/http/dto"
)

const idAttempts = 3

type GalleryService struct {
	log     *slog.Logger
	repo    repository.GalleryRepository
	retries int

	Now func() time.Time
}

func NewGalleryService(log *slog.Logger, repo repository.GalleryRepository, retries int) *GalleryService {
	return &GalleryService{
		log:     log,
		repo:    repo,
		retries: retries,
		Now:     time.Now,
	}
}

// CreateGallery создает галерею. Id строится из имени клиента и времени создания
// и больше не меняется.
func (s *GalleryService) CreateGallery(ctx context.Context, req dto.CreateGalleryRequest) (models.ClientGallery, error) {
	const op = "service.GalleryService.CreateGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_name", req.EventName),
	)

	log.Info("creating gallery")

	now := s.Now().UTC()

	settings := models.DefaultGallerySettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	gallery := models.ClientGallery{
		ClientName:  sanitize.Text(req.ClientName),
		ClientEmail: strings.TrimSpace(req.ClientEmail),
		EventName:   sanitize.Text(req.EventName),
		EventDate:   req.EventDate.UTC(),
		Description: sanitize.Markdown(req.Description),
		Photos:      newMediaRefs(req.Photos, now),
		Settings:    settings,
		AccessCode:  strings.TrimSpace(req.AccessCode),
		ExpiresAt:   utcPtr(req.ExpiresAt),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var err error
	for i := 0; i < idAttempts; i++ {
		gallery.ID = models.NewGalleryID(gallery.ClientName, now.Add(time.Duration(i)*time.Millisecond))

		if err = gallery.Validate(); err != nil {
			log.Warn("invalid gallery", sl.Err(err))
			return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
		}

		err = s.repo.CreateGallery(ctx, gallery)
		if !errors.Is(err, models.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		log.Error("failed to create gallery", sl.Err(err))
		return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery created", slog.String("gallery_id", gallery.ID))

	return gallery, nil
}

func (s *GalleryService) GetGallery(ctx context.Context, id string) (models.ClientGallery, error) {
	const op = "service.GalleryService.GetGallery"

	gallery, err := s.repo.GetGallery(ctx, id)
	if err != nil {
		return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
	}

	return gallery, nil
}

func (s *GalleryService) ListGalleries(ctx context.Context, page, perPage int) ([]models.ClientGallery, int, error) {
	const op = "service.GalleryService.ListGalleries"

	galleries, total, err := s.repo.ListGalleries(ctx, page, perPage)
	if err != nil {
		s.log.Error("failed to list galleries", slog.String("op", op), sl.Err(err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, total, nil
}

// UpdateGallery меняет описание, настройки, код доступа и срок действия галереи
func (s *GalleryService) UpdateGallery(ctx context.Context, id string, req dto.UpdateGalleryRequest) (models.ClientGallery, error) {
	const op = "service.GalleryService.UpdateGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", id),
	)

	log.Info("updating gallery")

	gallery, err := repository.MutateGallery(ctx, s.repo, id, s.retries, s.Now(), func(g *models.ClientGallery) error {
		if req.ClientName != nil {
			g.ClientName = sanitize.Text(*req.ClientName)
		}
		if req.ClientEmail != nil {
			g.ClientEmail = strings.TrimSpace(*req.ClientEmail)
		}
		if req.EventName != nil {
			g.EventName = sanitize.Text(*req.EventName)
		}
		if req.EventDate != nil {
			g.EventDate = req.EventDate.UTC()
		}
		if req.Description != nil {
			g.Description = sanitize.Markdown(*req.Description)
		}
		if req.Settings != nil {
			g.Settings = *req.Settings
		}
		if req.AccessCode != nil {
			g.AccessCode = strings.TrimSpace(*req.AccessCode)
		}
		if req.ExpiresAt != nil {
			g.ExpiresAt = utcPtr(req.ExpiresAt)
		}
		if req.ClearExpiry {
			g.ExpiresAt = nil
		}
		return nil
	})
	if err != nil {
		log.Error("failed to update gallery", sl.Err(err))
		return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery updated", slog.Int64("version", gallery.Version))

	return gallery, nil
}

// AddGalleryMedia добавляет загруженные ассеты в конец списка фотографий
func (s *GalleryService) AddGalleryMedia(ctx context.Context, id string, items []models.UploadResult) ([]models.MediaReference, error) {
	const op = "service.GalleryService.AddGalleryMedia"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", id),
		slog.Int("count", len(items)),
	)

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidInput)
	}

	now := s.Now()
	added := newMediaRefs(items, now)

	_, err := repository.MutateGallery(ctx, s.repo, id, s.retries, now, func(g *models.ClientGallery) error {
		g.Photos = append(g.Photos, added...)
		return nil
	})
	if err != nil {
		log.Error("failed to add media", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("media added")

	return added, nil
}

func (s *GalleryService) DeleteGallery(ctx context.Context, id string) error {
	const op = "service.GalleryService.DeleteGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", id),
	)

	if err := s.repo.DeleteGallery(ctx, id); err != nil {
		log.Error("failed to delete gallery", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery deleted")

	return nil
}

func newMediaRefs(items []models.UploadResult, now time.Time) []models.MediaReference {
	refs := make([]models.MediaReference, 0, len(items))
	for _, item := range items {
		item.Title = sanitize.Text(item.Title)
		item.Description = sanitize.Text(item.Description)
		refs = append(refs, models.NewMediaReference(item, now))
	}
	return refs
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
