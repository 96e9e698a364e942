package storage

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/mediastore"
)

// LocalFileStorage медиахранилище в локальном каталоге, для локального запуска
// без внешнего сервиса. Ссылки вида baseURL/<путь> отображаются в baseDir/<путь>.
type LocalFileStorage struct {
	baseDir string // Базовый каталог с ассетами (например: "./media")
	baseURL string // Префикс ссылок на ассеты (например: "http://localhost:8080/media")
}

func NewLocalFileStorage(baseDir, baseURL string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: abs,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Fetch открывает файл ассета. Ссылки за пределами baseDir и отсутствующие
// файлы дают ErrUpstreamFetch, как и у HTTP-клиента.
func (s *LocalFileStorage) Fetch(ctx context.Context, rawURL string) (*mediastore.Asset, error) {
	const op = "filestorage.LocalFileStorage.Fetch"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrUpstreamFetch, err)
	}

	fullPath, err := s.GetFullPath(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrUpstreamFetch, err)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrUpstreamFetch, err)
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: not a file", op, models.ErrUpstreamFetch)
	}

	return &mediastore.Asset{
		Body:          f,
		ContentType:   mime.TypeByExtension(filepath.Ext(fullPath)),
		ContentLength: info.Size(),
	}, nil
}

// GetFullPath путь на диске для ссылки на ассет
func (s *LocalFileStorage) GetFullPath(rawURL string) (string, error) {
	rel := rawURL
	if s.baseURL != "" {
		rel = strings.TrimPrefix(rel, s.baseURL)
	}
	if u, err := url.Parse(rel); err == nil && u.Scheme == "" {
		rel = u.Path
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	if fullPath != s.baseDir && !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes media directory", rawURL)
	}

	return fullPath, nil
}

// BaseURL префикс ссылок на ассеты
func (s *LocalFileStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalFileStorage) GetBaseDir() string {
	return s.baseDir
}
