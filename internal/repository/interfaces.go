package repository

import (
	"context"
	"time"

	"delivery_portal/internal/domain/models"
)

// GalleryRepository хранилище галерей. UpdateGallery применяет оптимистическую
// блокировку: запись проходит только при совпадении Version, иначе ErrConflict.
type GalleryRepository interface {
	CreateGallery(ctx context.Context, gallery models.ClientGallery) error
	GetGallery(ctx context.Context, id string) (models.ClientGallery, error)
	ListGalleries(ctx context.Context, page, perPage int) ([]models.ClientGallery, int, error)
	UpdateGallery(ctx context.Context, gallery models.ClientGallery) error
	DeleteGallery(ctx context.Context, id string) error
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, project models.ClientProject) error
	GetProject(ctx context.Context, id string) (models.ClientProject, error)
	ListProjects(ctx context.Context, statuses []models.ProjectStatus, page, perPage int) ([]models.ClientProject, int, error)
	UpdateProject(ctx context.Context, project models.ClientProject) error
	DeleteProject(ctx context.Context, id string) error
}

// AccessLedger журнал скачиваний. RecordDownload атомарно находит или создаёт
// окно для galleryID и увеличивает счётчик; при превышении limit (> 0)
// возвращает текущее окно и ErrRateLimited без увеличения.
type AccessLedger interface {
	RecordDownload(ctx context.Context, galleryID string, req models.RequesterContext, now time.Time, window time.Duration, limit int) (models.GalleryAccess, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GrantStore хранит выданные клиенту токены доступа
type GrantStore interface {
	SaveGrant(ctx context.Context, grant models.AccessGrant, ttl time.Duration) error
	GetGrant(ctx context.Context, token string) (models.AccessGrant, error)
	DeleteGrant(ctx context.Context, token string) error
}
