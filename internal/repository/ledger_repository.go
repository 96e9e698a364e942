package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivery_portal/internal/domain/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const ledgerTable = "gallery_access"

// LedgerRepo журнал скачиваний в Postgres. Запросы по одной галерее
// сериализуются транзакционной advisory-блокировкой.
type LedgerRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewLedgerRepo(db *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *LedgerRepo) RecordDownload(
	ctx context.Context,
	galleryID string,
	req models.RequesterContext,
	now time.Time,
	window time.Duration,
	limit int,
) (models.GalleryAccess, error) {
	const op = "repository.LedgerRepo.RecordDownload"

	now = now.UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", galleryID); err != nil {
		return models.GalleryAccess{}, fmt.Errorf("%s: lock: %w", op, err)
	}

	query, args, err := r.sb.Select(
		"gallery_id",
		"client_email",
		"accessed_at",
		"ip_address",
		"user_agent",
		"downloads_count",
		"last_download_at",
	).
		From(ledgerTable).
		Where(squirrel.Eq{"gallery_id": galleryID}).
		Where(squirrel.Gt{"accessed_at": now.Add(-window)}).
		Where(squirrel.LtOrEq{"accessed_at": now}).
		OrderBy("accessed_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
	}

	var entry models.GalleryAccess
	err = tx.QueryRow(ctx, query, args...).Scan(
		&entry.GalleryID,
		&entry.ClientEmail,
		&entry.AccessedAt,
		&entry.IPAddress,
		&entry.UserAgent,
		&entry.DownloadsCount,
		&entry.LastDownloadAt,
	)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		entry = models.GalleryAccess{
			GalleryID:      galleryID,
			ClientEmail:    req.ClientEmail,
			AccessedAt:     now,
			IPAddress:      req.IPAddress,
			UserAgent:      req.UserAgent,
			DownloadsCount: 1,
			LastDownloadAt: &now,
		}

		query, args, err = r.sb.Insert(ledgerTable).
			Columns(
				"gallery_id",
				"client_email",
				"accessed_at",
				"ip_address",
				"user_agent",
				"downloads_count",
				"last_download_at",
			).
			Values(
				entry.GalleryID,
				entry.ClientEmail,
				entry.AccessedAt,
				entry.IPAddress,
				entry.UserAgent,
				entry.DownloadsCount,
				entry.LastDownloadAt,
			).
			ToSql()
		if err != nil {
			return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
		}
	case err != nil:
		return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
	default:
		if limit > 0 && entry.DownloadsCount >= limit {
			return entry, fmt.Errorf("%s: %w", op, models.ErrRateLimited)
		}

		entry.DownloadsCount++
		entry.LastDownloadAt = &now

		query, args, err = r.sb.Update(ledgerTable).
			Set("downloads_count", entry.DownloadsCount).
			Set("last_download_at", now).
			Where(squirrel.Eq{"gallery_id": galleryID, "accessed_at": entry.AccessedAt}).
			ToSql()
		if err != nil {
			return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.GalleryAccess{}, fmt.Errorf("%s: %w", op, err)
	}

	return entry, nil
}

// PruneBefore удаляет окна, открытые раньше cutoff
func (r *LedgerRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "repository.LedgerRepo.PruneBefore"

	query, args, err := r.sb.Delete(ledgerTable).
		Where(squirrel.Lt{"accessed_at": cutoff.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
