// Package memory хранит галереи, проекты и журнал скачиваний в памяти процесса.
// Используется в тестах и в режиме storage: memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"delivery_portal/internal/domain/models"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

type Storage struct {
	mu        sync.RWMutex
	galleries map[string]models.ClientGallery
	projects  map[string]models.ClientProject
}

func New() *Storage {
	return &Storage{
		galleries: make(map[string]models.ClientGallery),
		projects:  make(map[string]models.ClientProject),
	}
}

func (s *Storage) CreateGallery(_ context.Context, gallery models.ClientGallery) error {
	const op = "storage.memory.CreateGallery"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.galleries[gallery.ID]; ok {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	}
	s.galleries[gallery.ID] = gallery.Clone()

	return nil
}

func (s *Storage) GetGallery(_ context.Context, id string) (models.ClientGallery, error) {
	const op = "storage.memory.GetGallery"

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.galleries[id]
	if !ok {
		return models.ClientGallery{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	return g.Clone(), nil
}

func (s *Storage) ListGalleries(_ context.Context, page, perPage int) ([]models.ClientGallery, int, error) {
	s.mu.RLock()
	all := lo.MapToSlice(s.galleries, func(_ string, g models.ClientGallery) models.ClientGallery {
		return g.Clone()
	})
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, page, perPage), len(all), nil
}

func (s *Storage) UpdateGallery(_ context.Context, gallery models.ClientGallery) error {
	const op = "storage.memory.UpdateGallery"

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.galleries[gallery.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if current.Version != gallery.Version {
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	}

	next := gallery.Clone()
	next.Version++
	s.galleries[gallery.ID] = next

	return nil
}

func (s *Storage) DeleteGallery(_ context.Context, id string) error {
	const op = "storage.memory.DeleteGallery"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.galleries[id]; !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	delete(s.galleries, id)

	return nil
}

func (s *Storage) CreateProject(_ context.Context, project models.ClientProject) error {
	const op = "storage.memory.CreateProject"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; ok {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	}
	s.projects[project.ID] = project.Clone()

	return nil
}

func (s *Storage) GetProject(_ context.Context, id string) (models.ClientProject, error) {
	const op = "storage.memory.GetProject"

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	return p.Clone(), nil
}

func (s *Storage) ListProjects(
	_ context.Context,
	statuses []models.ProjectStatus,
	page int,
	perPage int,
) ([]models.ClientProject, int, error) {
	s.mu.RLock()
	all := make([]models.ClientProject, 0, len(s.projects))
	for _, p := range s.projects {
		if len(statuses) > 0 && !lo.Contains(statuses, p.Status) {
			continue
		}
		all = append(all, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, page, perPage), len(all), nil
}

func (s *Storage) UpdateProject(_ context.Context, project models.ClientProject) error {
	const op = "storage.memory.UpdateProject"

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.projects[project.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if current.Version != project.Version {
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	}

	next := project.Clone()
	next.Version++
	s.projects[project.ID] = next

	return nil
}

func (s *Storage) DeleteProject(_ context.Context, id string) error {
	const op = "storage.memory.DeleteProject"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	delete(s.projects, id)

	return nil
}

func paginate[T any](items []T, page, perPage int) []T {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}

	return items[start:min(start+perPage, len(items))]
}

// Ledger журнал скачиваний в памяти. Весь RecordDownload выполняется под одним мьютексом.
type Ledger struct {
	mu      sync.Mutex
	entries map[string][]models.GalleryAccess
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string][]models.GalleryAccess)}
}

func (l *Ledger) RecordDownload(
	_ context.Context,
	galleryID string,
	req models.RequesterContext,
	now time.Time,
	window time.Duration,
	limit int,
) (models.GalleryAccess, error) {
	const op = "storage.memory.Ledger.RecordDownload"

	now = now.UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.entries[galleryID]
	for i := len(list) - 1; i >= 0; i-- {
		entry := &list[i]
		if entry.AccessedAt.After(now) || !entry.Live(now, window) {
			continue
		}
		if limit > 0 && entry.DownloadsCount >= limit {
			return copyAccess(*entry), fmt.Errorf("%s: %w", op, models.ErrRateLimited)
		}
		entry.DownloadsCount++
		entry.LastDownloadAt = &now
		return copyAccess(*entry), nil
	}

	entry := models.GalleryAccess{
		GalleryID:      galleryID,
		ClientEmail:    req.ClientEmail,
		AccessedAt:     now,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		DownloadsCount: 1,
		LastDownloadAt: &now,
	}
	l.entries[galleryID] = append(list, entry)

	return copyAccess(entry), nil
}

func (l *Ledger) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int64
	for id, list := range l.entries {
		kept := lo.Filter(list, func(e models.GalleryAccess, _ int) bool {
			return !e.AccessedAt.Before(cutoff)
		})
		removed += int64(len(list) - len(kept))
		if len(kept) == 0 {
			delete(l.entries, id)
			continue
		}
		l.entries[id] = kept
	}

	return removed, nil
}

// Entries копия всех окон галереи в порядке открытия
func (l *Ledger) Entries(galleryID string) []models.GalleryAccess {
	l.mu.Lock()
	defer l.mu.Unlock()

	return lo.Map(l.entries[galleryID], func(e models.GalleryAccess, _ int) models.GalleryAccess {
		return copyAccess(e)
	})
}

func copyAccess(e models.GalleryAccess) models.GalleryAccess {
	if e.LastDownloadAt != nil {
		t := *e.LastDownloadAt
		e.LastDownloadAt = &t
	}
	return e
}

// GrantStore токены доступа в go-cache
type GrantStore struct {
	cache *cache.Cache
}

func NewGrantStore(defaultTTL time.Duration) *GrantStore {
	return &GrantStore{cache: cache.New(defaultTTL, 10*time.Minute)}
}

func (g *GrantStore) SaveGrant(_ context.Context, grant models.AccessGrant, ttl time.Duration) error {
	g.cache.Set(grant.Token, grant, ttl)
	return nil
}

func (g *GrantStore) GetGrant(_ context.Context, token string) (models.AccessGrant, error) {
	const op = "storage.memory.GrantStore.GetGrant"

	v, ok := g.cache.Get(token)
	if !ok {
		return models.AccessGrant{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	return v.(models.AccessGrant), nil
}

func (g *GrantStore) DeleteGrant(_ context.Context, token string) error {
	g.cache.Delete(token)
	return nil
}
