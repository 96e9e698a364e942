package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

type Storage struct {
	db *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS client_galleries (
	id           TEXT PRIMARY KEY,
	client_name  TEXT NOT NULL,
	client_email TEXT NOT NULL DEFAULT '',
	event_name   TEXT NOT NULL,
	event_date   TIMESTAMPTZ NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	photos       JSONB NOT NULL DEFAULT '[]',
	settings     JSONB NOT NULL,
	access_code  TEXT NOT NULL DEFAULT '',
	expires_at   TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	version      BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS client_projects (
	id               TEXT PRIMARY KEY,
	type             TEXT NOT NULL,
	client_name      TEXT NOT NULL,
	client_email     TEXT NOT NULL,
	project_name     TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	service_category TEXT NOT NULL,
	media            JSONB NOT NULL DEFAULT '[]',
	proposal         JSONB,
	settings         JSONB NOT NULL,
	access_code      TEXT NOT NULL DEFAULT '',
	expires_at       TIMESTAMPTZ,
	status           TEXT NOT NULL,
	status_history   JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	version          BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS client_projects_status_idx ON client_projects (status);

CREATE TABLE IF NOT EXISTS gallery_access (
	id               BIGSERIAL PRIMARY KEY,
	gallery_id       TEXT NOT NULL,
	client_email     TEXT NOT NULL DEFAULT '',
	accessed_at      TIMESTAMPTZ NOT NULL,
	ip_address       TEXT NOT NULL DEFAULT '',
	user_agent       TEXT NOT NULL DEFAULT '',
	downloads_count  INTEGER NOT NULL DEFAULT 0,
	last_download_at TIMESTAMPTZ,
	UNIQUE (gallery_id, accessed_at)
);
`

func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) DB() *pgxpool.Pool {
	return s.db
}

// Migrate создаёт таблицы портала, если их ещё нет
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgresql.Migrate"

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Stop() {
	s.db.Close()
}
