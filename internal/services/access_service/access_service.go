package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/lib/sanitize"
	"delivery_portal/internal/metrics"
	"delivery_portal/internal/repository"
	"delivery_portal/internal/transport/http/dto"

	"github.com/google/uuid"
)

const maxCommentLen = 2000

// AccessService проверяет коды доступа, выдаёт клиенту grant и
// выполняет действия клиента над медиафайлами.
type AccessService struct {
	log       *slog.Logger
	galleries repository.GalleryRepository
	projects  repository.ProjectRepository
	grants    repository.GrantStore
	grantTTL  time.Duration
	retries   int

	Now func() time.Time
}

func NewAccessService(
	log *slog.Logger,
	galleries repository.GalleryRepository,
	projects repository.ProjectRepository,
	grants repository.GrantStore,
	grantTTL time.Duration,
	retries int,
) *AccessService {
	return &AccessService{
		log:       log,
		galleries: galleries,
		projects:  projects,
		grants:    grants,
		grantTTL:  grantTTL,
		retries:   retries,
		Now:       time.Now,
	}
}

// Authenticate сверяет код с кодом галереи или проекта. Отсутствующая сущность
// и неверный код дают одинаковую ErrUnauthorized. Истёкшая сущность проходит
// проверку, но её представление отдаётся без медиа.
func (s *AccessService) Authenticate(ctx context.Context, entityID, code string) (models.AuthResult, error) {
	const op = "service.AccessService.Authenticate"
	log := s.log.With(
		slog.String("op", op),
		slog.String("entity_id", entityID),
	)

	entity, err := repository.LoadEntity(ctx, s.galleries, s.projects, entityID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error("failed to load entity", sl.Err(err))
			return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
		}
		metrics.AuthAttempts.WithLabelValues("unknown", "denied").Inc()
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	kind := string(entity.Kind())
	stored := entity.Code()

	if stored == "" {
		if entity.DownloadSettings().RequirePassword {
			log.Warn("password required but no access code configured")
		}
		metrics.AuthAttempts.WithLabelValues(kind, "denied").Inc()
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		metrics.AuthAttempts.WithLabelValues(kind, "denied").Inc()
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	res, err := s.issue(ctx, entity)
	if err != nil {
		log.Error("failed to issue grant", sl.Err(err))
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.AuthAttempts.WithLabelValues(kind, "granted").Inc()

	return res, nil
}

// OpenAccess вход без кода, только для сущностей с require_password = false
func (s *AccessService) OpenAccess(ctx context.Context, entityID string) (models.AuthResult, error) {
	const op = "service.AccessService.OpenAccess"
	log := s.log.With(
		slog.String("op", op),
		slog.String("entity_id", entityID),
	)

	entity, err := repository.LoadEntity(ctx, s.galleries, s.projects, entityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.AuthResult{}, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
		}
		log.Error("failed to load entity", sl.Err(err))
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if entity.DownloadSettings().RequirePassword {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	res, err := s.issue(ctx, entity)
	if err != nil {
		log.Error("failed to issue grant", sl.Err(err))
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.AuthAttempts.WithLabelValues(string(entity.Kind()), "open").Inc()

	return res, nil
}

func (s *AccessService) issue(ctx context.Context, entity models.PortalEntity) (models.AuthResult, error) {
	now := s.Now().UTC()

	grant := models.AccessGrant{
		Token:     uuid.NewString(),
		EntityID:  entity.EntityID(),
		Kind:      entity.Kind(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.grantTTL),
	}
	if err := s.grants.SaveGrant(ctx, grant, s.grantTTL); err != nil {
		return models.AuthResult{}, err
	}

	view := models.NewClientView(entity, now)
	if view.Expired {
		view.Media = []models.MediaReference{}
		if view.Project != nil {
			view.Project.Proposal = nil
		}
	}

	return models.AuthResult{Grant: grant, View: view}, nil
}

// Resolve проверяет grant и возвращает сущность. Срок действия сущности не проверяется.
func (s *AccessService) Resolve(ctx context.Context, token, entityID string) (models.PortalEntity, error) {
	const op = "service.AccessService.Resolve"

	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	grant, err := s.grants.GetGrant(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if grant.EntityID != entityID || !s.Now().Before(grant.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	entity, err := repository.LoadEntity(ctx, s.galleries, s.projects, entityID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entity, nil
}

// View клиентское представление; для истёкшей сущности ErrExpired
func (s *AccessService) View(ctx context.Context, token, entityID string) (models.ClientSafeView, error) {
	const op = "service.AccessService.View"

	entity, err := s.Resolve(ctx, token, entityID)
	if err != nil {
		return models.ClientSafeView{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.Now()
	if models.IsExpired(entity, now) {
		return models.ClientSafeView{}, fmt.Errorf("%s: %w", op, models.ErrExpired)
	}

	return models.NewClientView(entity, now), nil
}

// Logout отзывает grant
func (s *AccessService) Logout(ctx context.Context, token string) error {
	const op = "service.AccessService.Logout"

	if err := s.grants.DeleteGrant(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *AccessService) ToggleFavorite(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error) {
	const op = "service.AccessService.ToggleFavorite"

	m, err := s.mutateMedia(ctx, entity, mediaID, nil, func(m *models.MediaReference) error {
		m.Favorite = !m.Favorite
		return nil
	})
	if err != nil {
		return models.MediaReference{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

func (s *AccessService) LikeMedia(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error) {
	const op = "service.AccessService.LikeMedia"

	m, err := s.mutateMedia(ctx, entity, mediaID, nil, func(m *models.MediaReference) error {
		m.Likes++
		return nil
	})
	if err != nil {
		return models.MediaReference{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

// AddComment комментарий клиента; для проектов нужен allow_comments
func (s *AccessService) AddComment(ctx context.Context, entity models.PortalEntity, mediaID string, req dto.CommentRequest) (models.MediaReference, error) {
	const op = "service.AccessService.AddComment"

	text := sanitize.Text(req.Text)
	if text == "" || len(text) > maxCommentLen {
		return models.MediaReference{}, fmt.Errorf("%s: %w: comment must be 1..%d characters", op, models.ErrInvalidInput, maxCommentLen)
	}

	author := sanitize.Text(req.Author)
	if author == "" {
		author = entity.Owner()
	}

	allowComments := func(p *models.ClientProject) error {
		if !p.Settings.AllowComments {
			return models.ErrNotPermitted
		}
		return nil
	}

	now := s.Now().UTC()
	m, err := s.mutateMedia(ctx, entity, mediaID, allowComments, func(m *models.MediaReference) error {
		m.Comments = append(m.Comments, models.MediaComment{
			Text:      text,
			CreatedAt: now,
			Author:    author,
		})
		return nil
	})
	if err != nil {
		return models.MediaReference{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

// mutateMedia меняет один медиафайл внутри галереи или проекта одной записью.
// projectCheck вызывается только для проектов.
func (s *AccessService) mutateMedia(
	ctx context.Context,
	entity models.PortalEntity,
	mediaID string,
	projectCheck func(p *models.ClientProject) error,
	fn func(m *models.MediaReference) error,
) (models.MediaReference, error) {
	log := s.log.With(
		slog.String("entity_id", entity.EntityID()),
		slog.String("media_id", mediaID),
	)

	now := s.Now()

	apply := func(e models.PortalEntity, list []models.MediaReference) error {
		if models.IsExpired(e, now) {
			return models.ErrExpired
		}
		for i := range list {
			if list[i].ID == mediaID {
				return fn(&list[i])
			}
		}
		return models.ErrNotFound
	}

	var (
		media    []models.MediaReference
		settings models.GallerySettings
	)

	switch entity.Kind() {
	case models.EntityGallery:
		g, err := repository.MutateGallery(ctx, s.galleries, entity.EntityID(), s.retries, now, func(g *models.ClientGallery) error {
			return apply(*g, g.Photos)
		})
		if err != nil {
			log.Warn("media update rejected", sl.Err(err))
			return models.MediaReference{}, err
		}
		media, settings = g.Photos, g.Settings
	case models.EntityProject:
		p, err := repository.MutateProject(ctx, s.projects, entity.EntityID(), s.retries, now, func(p *models.ClientProject) error {
			if projectCheck != nil {
				if err := projectCheck(p); err != nil {
					return err
				}
			}
			return apply(*p, p.MediaItems)
		})
		if err != nil {
			log.Warn("media update rejected", sl.Err(err))
			return models.MediaReference{}, err
		}
		media, settings = p.MediaItems, p.Settings.GallerySettings
	default:
		return models.MediaReference{}, models.ErrNotFound
	}

	m, _ := models.FindMedia(media, mediaID)

	return models.ClientSafeMedia(m, settings), nil
}

// RequesterFor контекст запроса клиента с email владельца сущности
func RequesterFor(entity models.PortalEntity, ip, userAgent string) models.RequesterContext {
	return models.RequesterContext{
		ClientEmail: strings.TrimSpace(entity.Owner()),
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
}
