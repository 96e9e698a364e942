package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"delivery_portal/internal/domain/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const galleriesTable = "client_galleries"

var galleryColumns = []string{
	"id",
	"client_name",
	"client_email",
	"event_name",
	"event_date",
	"description",
	"photos",
	"settings",
	"access_code",
	"expires_at",
	"created_at",
	"updated_at",
	"version",
}

type GalleryRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewGalleryRepo(db *pgxpool.Pool) *GalleryRepo {
	return &GalleryRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateGallery сохраняет новую галерею, id должен быть уникальным
func (r *GalleryRepo) CreateGallery(ctx context.Context, gallery models.ClientGallery) error {
	const op = "repository.GalleryRepo.CreateGallery"

	photos, settings, err := marshalGalleryDocs(gallery)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Insert(galleriesTable).
		Columns(galleryColumns...).
		Values(
			gallery.ID,
			gallery.ClientName,
			gallery.ClientEmail,
			gallery.EventName,
			gallery.EventDate,
			gallery.Description,
			photos,
			settings,
			gallery.AccessCode,
			gallery.ExpiresAt,
			gallery.CreatedAt,
			gallery.UpdatedAt,
			gallery.Version,
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

// GetGallery возвращает галерею по id
func (r *GalleryRepo) GetGallery(ctx context.Context, id string) (models.ClientGallery, error) {
	const op = "repository.GalleryRepo.GetGallery"

	query, args, err := r.sb.Select(galleryColumns...).
		From(galleriesTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
	}

	gallery, err := scanGallery(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ClientGallery{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return models.ClientGallery{}, fmt.Errorf("%s: %w", op, err)
	}

	return gallery, nil
}

func (r *GalleryRepo) ListGalleries(ctx context.Context, page, perPage int) ([]models.ClientGallery, int, error) {
	const op = "repository.GalleryRepo.ListGalleries"

	page, perPage = normalizePage(page, perPage)

	total, err := r.count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Select(galleryColumns...).
		From(galleriesTable).
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

	galleries := make([]models.ClientGallery, 0, perPage)
	for rows.Next() {
		gallery, err := scanGallery(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		galleries = append(galleries, gallery)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, total, nil
}

// UpdateGallery перезаписывает галерею, если версия в базе совпадает с gallery.Version
func (r *GalleryRepo) UpdateGallery(ctx context.Context, gallery models.ClientGallery) error {
	const op = "repository.GalleryRepo.UpdateGallery"

	photos, settings, err := marshalGalleryDocs(gallery)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := r.sb.Update(galleriesTable).
		Set("client_name", gallery.ClientName).
		Set("client_email", gallery.ClientEmail).
		Set("event_name", gallery.EventName).
		Set("event_date", gallery.EventDate).
		Set("description", gallery.Description).
		Set("photos", photos).
		Set("settings", settings).
		Set("access_code", gallery.AccessCode).
		Set("expires_at", gallery.ExpiresAt).
		Set("updated_at", gallery.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": gallery.ID, "version": gallery.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, r.missingOrConflict(ctx, gallery.ID))
	}

	return nil
}

func (r *GalleryRepo) DeleteGallery(ctx context.Context, id string) error {
	const op = "repository.GalleryRepo.DeleteGallery"

	query, args, err := r.sb.Delete(galleriesTable).
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

func (r *GalleryRepo) count(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From(galleriesTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("error build query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error execute query: %w (SQL: %s)", err, query)
	}

	return count, nil
}

func (r *GalleryRepo) missingOrConflict(ctx context.Context, id string) error {
	return rowMissingOrConflict(ctx, r.db, r.sb, galleriesTable, id)
}

func marshalGalleryDocs(g models.ClientGallery) (photos, settings []byte, err error) {
	if g.Photos == nil {
		g.Photos = []models.MediaReference{}
	}
	if photos, err = json.Marshal(g.Photos); err != nil {
		return nil, nil, err
	}
	if settings, err = json.Marshal(g.Settings); err != nil {
		return nil, nil, err
	}
	return photos, settings, nil
}

func scanGallery(row pgx.Row) (models.ClientGallery, error) {
	var (
		g        models.ClientGallery
		photos   []byte
		settings []byte
	)

	err := row.Scan(
		&g.ID,
		&g.ClientName,
		&g.ClientEmail,
		&g.EventName,
		&g.EventDate,
		&g.Description,
		&photos,
		&settings,
		&g.AccessCode,
		&g.ExpiresAt,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.Version,
	)
	if err != nil {
		return models.ClientGallery{}, err
	}

	if err := json.Unmarshal(photos, &g.Photos); err != nil {
		return models.ClientGallery{}, fmt.Errorf("decode photos: %w", err)
	}
	if err := json.Unmarshal(settings, &g.Settings); err != nil {
		return models.ClientGallery{}, fmt.Errorf("decode settings: %w", err)
	}
	if g.Photos == nil {
		g.Photos = []models.MediaReference{}
	}

	return g, nil
}

func rowMissingOrConflict(ctx context.Context, db *pgxpool.Pool, sb squirrel.StatementBuilderType, table, id string) error {
	query, args, err := sb.Select("1").From(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	var one int
	err = db.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}

	return models.ErrConflict
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
