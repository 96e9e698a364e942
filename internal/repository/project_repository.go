package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"delivery_portal/internal/domain/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const projectsTable = "client_projects"

var projectColumns = []string{
	"id",
	"type",
	"client_name",
	"client_email",
	"project_name",
	"description",
	"service_category",
	"media",
	"proposal",
	"settings",
	"access_code",
	"expires_at",
	"status",
	"status_history",
	"created_at",
	"updated_at",
	"version",
}

type ProjectRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewProjectRepo(db *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type projectDocs struct {
	media    []byte
	proposal []byte
	settings []byte
	history  []byte
}

func (r *ProjectRepo) CreateProject(ctx context.Context, project models.ClientProject) error {
	const op = "repository.ProjectRepo.CreateProject"

	docs, err := marshalProjectDocs(project)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Insert(projectsTable).
		Columns(projectColumns...).
		Values(
			project.ID,
			project.Type,
			project.ClientName,
			project.ClientEmail,
			project.ProjectName,
			project.Description,
			project.ServiceCategory,
			docs.media,
			docs.proposal,
			docs.settings,
			project.AccessCode,
			project.ExpiresAt,
			project.Status,
			docs.history,
			project.CreatedAt,
			project.UpdatedAt,
			project.Version,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *ProjectRepo) GetProject(ctx context.Context, id string) (models.ClientProject, error) {
	const op = "repository.ProjectRepo.GetProject"

	query, args, err := r.sb.Select(projectColumns...).
		From(projectsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}

	project, err := scanProject(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ClientProject{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}

	return project, nil
}

// ListProjects возвращает страницу проектов; пустой statuses означает все статусы
func (r *ProjectRepo) ListProjects(
	ctx context.Context,
	statuses []models.ProjectStatus,
	page int,
	perPage int,
) ([]models.ClientProject, int, error) {
	const op = "repository.ProjectRepo.ListProjects"

	page, perPage = normalizePage(page, perPage)

	selectQ := r.sb.Select(projectColumns...).From(projectsTable)
	countQ := r.sb.Select("COUNT(*)").From(projectsTable)
	if len(statuses) > 0 {
		filter := pq.Array(lo.Map(statuses, func(s models.ProjectStatus, _ int) string {
			return string(s)
		}))
		selectQ = selectQ.Where("status = ANY(?)", filter)
		countQ = countQ.Where("status = ANY(?)", filter)
	}

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err = selectQ.
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	projects := make([]models.ClientProject, 0, perPage)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return projects, total, nil
}

// UpdateProject перезаписывает проект с проверкой версии
func (r *ProjectRepo) UpdateProject(ctx context.Context, project models.ClientProject) error {
	const op = "repository.ProjectRepo.UpdateProject"

	docs, err := marshalProjectDocs(project)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Update(projectsTable).
		Set("type", project.Type).
		Set("client_name", project.ClientName).
		Set("client_email", project.ClientEmail).
		Set("project_name", project.ProjectName).
		Set("description", project.Description).
		Set("service_category", project.ServiceCategory).
		Set("media", docs.media).
		Set("proposal", docs.proposal).
		Set("settings", docs.settings).
		Set("access_code", project.AccessCode).
		Set("expires_at", project.ExpiresAt).
		Set("status", project.Status).
		Set("status_history", docs.history).
		Set("updated_at", project.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": project.ID, "version": project.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, rowMissingOrConflict(ctx, r.db, r.sb, projectsTable, project.ID))
	}

	return nil
}

func (r *ProjectRepo) DeleteProject(ctx context.Context, id string) error {
	const op = "repository.ProjectRepo.DeleteProject"

	query, args, err := r.sb.Delete(projectsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	return nil
}

func marshalProjectDocs(p models.ClientProject) (projectDocs, error) {
	var (
		docs projectDocs
		err  error
	)

	if p.MediaItems == nil {
		p.MediaItems = []models.MediaReference{}
	}
	if docs.media, err = json.Marshal(p.MediaItems); err != nil {
		return projectDocs{}, err
	}
	if p.Proposal != nil {
		if docs.proposal, err = json.Marshal(p.Proposal); err != nil {
			return projectDocs{}, err
		}
	}
	if docs.settings, err = json.Marshal(p.Settings); err != nil {
		return projectDocs{}, err
	}
	if docs.history, err = json.Marshal(p.StatusHistory); err != nil {
		return projectDocs{}, err
	}

	return docs, nil
}

func scanProject(row pgx.Row) (models.ClientProject, error) {
	var (
		p        models.ClientProject
		media    []byte
		proposal []byte
		settings []byte
		history  []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Type,
		&p.ClientName,
		&p.ClientEmail,
		&p.ProjectName,
		&p.Description,
		&p.ServiceCategory,
		&media,
		&proposal,
		&settings,
		&p.AccessCode,
		&p.ExpiresAt,
		&p.Status,
		&history,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
	if err != nil {
		return models.ClientProject{}, err
	}

	if err := json.Unmarshal(media, &p.MediaItems); err != nil {
		return models.ClientProject{}, fmt.Errorf("decode media: %w", err)
	}
	if len(proposal) > 0 {
		p.Proposal = &models.ProposalContent{}
		if err := json.Unmarshal(proposal, p.Proposal); err != nil {
			return models.ClientProject{}, fmt.Errorf("decode proposal: %w", err)
		}
	}
	if err := json.Unmarshal(settings, &p.Settings); err != nil {
		return models.ClientProject{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal(history, &p.StatusHistory); err != nil {
		return models.ClientProject{}, fmt.Errorf("decode status history: %w", err)
	}
	if p.MediaItems == nil {
		p.MediaItems = []models.MediaReference{}
	}

	return p, nil
}
