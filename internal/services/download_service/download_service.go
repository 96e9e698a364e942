package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/mediastore"
	"delivery_portal/internal/metrics"
	"delivery_portal/internal/repository"
)

// MediaFetcher открывает поток ассета во внешнем медиахранилище
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*mediastore.Asset, error)
}

// LimitError отказ по лимиту скачиваний; ResetAt время закрытия текущего окна
type LimitError struct {
	ResetAt time.Time
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s until %s", models.ErrRateLimited, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *LimitError) Unwrap() error {
	return models.ErrRateLimited
}

type DownloadService struct {
	log       *slog.Logger
	galleries repository.GalleryRepository
	projects  repository.ProjectRepository
	ledger    repository.AccessLedger
	fetcher   MediaFetcher
	window    time.Duration

	Now func() time.Time
}

func NewDownloadService(
	log *slog.Logger,
	galleries repository.GalleryRepository,
	projects repository.ProjectRepository,
	ledger repository.AccessLedger,
	fetcher MediaFetcher,
	window time.Duration,
) *DownloadService {
	return &DownloadService{
		log:       log,
		galleries: galleries,
		projects:  projects,
		ledger:    ledger,
		fetcher:   fetcher,
		window:    window,
		Now:       time.Now,
	}
}

// RequestDownload решает, можно ли скачать медиафайл, и записывает скачивание в журнал.
// Проверки идут до любых побочных эффектов: настройки, наличие файла, срок действия, лимит окна.
func (s *DownloadService) RequestDownload(ctx context.Context, entityID, mediaID string, req models.RequesterContext) (models.DownloadDecision, error) {
	const op = "service.DownloadService.RequestDownload"
	log := s.log.With(
		slog.String("op", op),
		slog.String("entity_id", entityID),
		slog.String("media_id", mediaID),
	)

	entity, err := repository.LoadEntity(ctx, s.galleries, s.projects, entityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.DownloadDecisions.WithLabelValues("not_found").Inc()
		} else {
			log.Error("failed to load entity", sl.Err(err))
		}
		return models.DownloadDecision{}, fmt.Errorf("%s: %w", op, err)
	}

	settings := entity.DownloadSettings()
	if !settings.AllowDownloads {
		metrics.DownloadDecisions.WithLabelValues("disabled").Inc()
		return models.DownloadDecision{}, fmt.Errorf("%s: %w", op, models.ErrDownloadsDisabled)
	}

	media, ok := models.FindMedia(entity.Media(), mediaID)
	if !ok {
		metrics.DownloadDecisions.WithLabelValues("not_found").Inc()
		return models.DownloadDecision{}, fmt.Errorf("%s: media %s: %w", op, mediaID, models.ErrNotFound)
	}

	now := s.Now().UTC()
	if models.IsExpired(entity, now) {
		metrics.DownloadDecisions.WithLabelValues("expired").Inc()
		return models.DownloadDecision{}, fmt.Errorf("%s: %w", op, models.ErrExpired)
	}

	variant, url := models.VariantThumbnail, media.ThumbnailURL
	if settings.AllowFullSize {
		variant, url = models.VariantOriginal, media.URL
	}

	if req.ClientEmail == "" {
		req.ClientEmail = entity.Owner()
	}

	limit := settings.DownloadLimit()
	entry, err := s.ledger.RecordDownload(ctx, entity.EntityID(), req, now, s.window, limit)
	if err != nil {
		if errors.Is(err, models.ErrRateLimited) {
			metrics.DownloadDecisions.WithLabelValues("rate_limited").Inc()
			log.Info("download rate limited", slog.Int("count", entry.DownloadsCount), slog.Int("limit", limit))
			return models.DownloadDecision{}, fmt.Errorf("%s: %w", op, &LimitError{ResetAt: entry.AccessedAt.Add(s.window)})
		}
		log.Error("failed to record download", sl.Err(err))
		return models.DownloadDecision{}, fmt.Errorf("%s: %w", op, err)
	}

	decision := models.DownloadDecision{
		EntityID:       entity.EntityID(),
		MediaID:        media.ID,
		URL:            url,
		Variant:        variant,
		Filename:       DownloadFilename(entity.Title(), media),
		MimeType:       media.MimeType,
		DownloadsCount: entry.DownloadsCount,
		WindowResetsAt: entry.AccessedAt.Add(s.window),
		Window:         entry,
	}
	if limit > 0 {
		remaining := max(limit-entry.DownloadsCount, 0)
		decision.Remaining = &remaining
	}

	metrics.DownloadDecisions.WithLabelValues("allowed").Inc()
	log.Info("download allowed",
		slog.String("variant", string(variant)),
		slog.Int("count", entry.DownloadsCount),
	)

	return decision, nil
}

// StreamDownload выполняет RequestDownload и открывает поток ассета.
// Ошибка получения не откатывает запись в журнале.
func (s *DownloadService) StreamDownload(ctx context.Context, entityID, mediaID string, req models.RequesterContext) (models.DownloadDecision, *mediastore.Asset, error) {
	const op = "service.DownloadService.StreamDownload"

	decision, err := s.RequestDownload(ctx, entityID, mediaID, req)
	if err != nil {
		return models.DownloadDecision{}, nil, err
	}

	asset, err := s.fetcher.Fetch(ctx, decision.URL)
	if err != nil {
		metrics.DownloadDecisions.WithLabelValues("upstream_failed").Inc()
		s.log.Warn("asset fetch failed",
			slog.String("op", op),
			slog.String("entity_id", entityID),
			slog.String("media_id", mediaID),
			sl.Err(err),
		)
		if !errors.Is(err, models.ErrUpstreamFetch) {
			err = fmt.Errorf("%w: %v", models.ErrUpstreamFetch, err)
		}
		return decision, nil, fmt.Errorf("%s: %w", op, err)
	}

	if asset.ContentType == "" {
		asset.ContentType = decision.MimeType
	}

	return decision, asset, nil
}

// DownloadFilename имя файла вида "<slug названия>-<slug медиа>.<ext>"
func DownloadFilename(title string, media models.MediaReference) string {
	name := models.MakeSlug(title)
	if part := models.MakeSlug(media.DisplayName()); part != "" {
		if name != "" {
			name += "-"
		}
		name += part
	}
	if name == "" {
		name = "download"
	}
	if ext := media.Extension(); ext != "" {
		name += "." + ext
	}
	return name
}
