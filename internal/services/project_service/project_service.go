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

type ProjectService struct {
	log     *slog.Logger
	repo    repository.ProjectRepository
	retries int

	Now func() time.Time
}

func NewProjectService(log *slog.Logger, repo repository.ProjectRepository, retries int) *ProjectService {
	return &ProjectService{
		log:     log,
		repo:    repo,
		retries: retries,
		Now:     time.Now,
	}
}

// CreateProject создает проект в статусе draft с первой записью истории
func (s *ProjectService) CreateProject(ctx context.Context, req dto.CreateProjectRequest) (models.ClientProject, error) {
	const op = "service.ProjectService.CreateProject"
	log := s.log.With(
		slog.String("op", op),
		slog.String("service_category", string(req.ServiceCategory)),
	)

	log.Info("creating project")

	now := s.Now().UTC()

	project := models.NewClientProject("", now)
	if req.Type != "" {
		project.Type = req.Type
	}
	project.ClientName = sanitize.Text(req.ClientName)
	project.ClientEmail = strings.TrimSpace(req.ClientEmail)
	project.ProjectName = sanitize.Text(req.ProjectName)
	project.Description = sanitize.Markdown(req.Description)
	project.ServiceCategory = req.ServiceCategory
	project.AccessCode = strings.TrimSpace(req.AccessCode)
	project.ExpiresAt = utcPtr(req.ExpiresAt)
	if req.Settings != nil {
		project.Settings = *req.Settings
	}
	for _, item := range req.Media {
		item.Title = sanitize.Text(item.Title)
		item.Description = sanitize.Text(item.Description)
		project.MediaItems = append(project.MediaItems, models.NewMediaReference(item, now))
	}
	if req.Proposal != nil {
		proposal := req.Proposal.Clone()
		proposal.MapText(sanitize.Text, sanitize.Markdown)
		proposal.Normalize()
		project.Proposal = proposal
	}

	var err error
	for i := 0; i < idAttempts; i++ {
		project.ID = models.NewProjectID(project.ClientName, now.Add(time.Duration(i)*time.Millisecond))

		if err = project.Validate(); err != nil {
			log.Warn("invalid project", sl.Err(err))
			return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
		}

		err = s.repo.CreateProject(ctx, project)
		if !errors.Is(err, models.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		log.Error("failed to create project", sl.Err(err))
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("project created", slog.String("project_id", project.ID))

	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (models.ClientProject, error) {
	const op = "service.ProjectService.GetProject"

	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}

	return project, nil
}

// ListProjects фильтрует по статусам; пустой список означает все
func (s *ProjectService) ListProjects(
	ctx context.Context,
	statuses []models.ProjectStatus,
	page int,
	perPage int,
) ([]models.ClientProject, int, error) {
	const op = "service.ProjectService.ListProjects"

	for _, st := range statuses {
		if !st.Valid() {
			return nil, 0, fmt.Errorf("%s: %w: unknown status '%s'", op, models.ErrInvalidInput, st)
		}
	}

	projects, total, err := s.repo.ListProjects(ctx, statuses, page, perPage)
	if err != nil {
		s.log.Error("failed to list projects", slog.String("op", op), sl.Err(err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return projects, total, nil
}

func (s *ProjectService) UpdateProjectSettings(
	ctx context.Context,
	id string,
	req dto.UpdateProjectSettingsRequest,
) (models.ClientProject, error) {
	const op = "service.ProjectService.UpdateProjectSettings"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", id),
	)

	project, err := repository.MutateProject(ctx, s.repo, id, s.retries, s.Now(), func(p *models.ClientProject) error {
		if req.Settings != nil {
			p.Settings = *req.Settings
		}
		if req.AccessCode != nil {
			p.AccessCode = strings.TrimSpace(*req.AccessCode)
		}
		if req.ExpiresAt != nil {
			p.ExpiresAt = utcPtr(req.ExpiresAt)
		}
		if req.ClearExpiry {
			p.ExpiresAt = nil
		}
		return nil
	})
	if err != nil {
		log.Error("failed to update project settings", sl.Err(err))
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("project settings updated")

	return project, nil
}

func (s *ProjectService) AddProjectMedia(ctx context.Context, id string, items []models.UploadResult) ([]models.MediaReference, error) {
	const op = "service.ProjectService.AddProjectMedia"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", id),
	)

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidInput)
	}

	now := s.Now()
	added := make([]models.MediaReference, 0, len(items))
	for _, item := range items {
		item.Title = sanitize.Text(item.Title)
		item.Description = sanitize.Text(item.Description)
		added = append(added, models.NewMediaReference(item, now))
	}

	_, err := repository.MutateProject(ctx, s.repo, id, s.retries, now, func(p *models.ClientProject) error {
		p.MediaItems = append(p.MediaItems, added...)
		return nil
	})
	if err != nil {
		log.Error("failed to add media", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("media added", slog.Int("count", len(added)))

	return added, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	const op = "service.ProjectService.DeleteProject"

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		s.log.Error("failed to delete project", slog.String("op", op), slog.String("project_id", id), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
