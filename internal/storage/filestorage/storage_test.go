package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"delivery_portal/internal/domain/models"
	storage "delivery_portal/internal/storage/filestorage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileStorage(t *testing.T) (*storage.LocalFileStorage, string) {
	t.Helper()

	tempDir := t.TempDir()

	fs, err := storage.NewLocalFileStorage(tempDir, "http://test.local/media")
	require.NoError(t, err)

	return fs, tempDir
}

func createTestFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLocalFileStorage_Fetch(t *testing.T) {
	fs, dir := setupFileStorage(t)
	createTestFile(t, dir, "weddings/anna/photo-1.jpg", "jpeg bytes")

	tests := []struct {
		name string
		url  string
	}{
		{name: "absolute url", url: "http://test.local/media/weddings/anna/photo-1.jpg"},
		{name: "relative path", url: "/weddings/anna/photo-1.jpg"},
		{name: "query ignored", url: "weddings/anna/photo-1.jpg?v=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := fs.Fetch(context.Background(), tt.url)
			require.NoError(t, err)
			defer asset.Body.Close()

			body, err := io.ReadAll(asset.Body)
			require.NoError(t, err)
			assert.Equal(t, "jpeg bytes", string(body))
			assert.Equal(t, int64(len("jpeg bytes")), asset.ContentLength)
			assert.Equal(t, "image/jpeg", asset.ContentType)
		})
	}
}

func TestLocalFileStorage_FetchErrors(t *testing.T) {
	fs, dir := setupFileStorage(t)
	createTestFile(t, dir, "folder/file.png", "png")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		url  string
	}{
		{name: "missing file", ctx: context.Background(), url: "/nope.jpg"},
		{name: "directory", ctx: context.Background(), url: "/folder"},
		{name: "traversal", ctx: context.Background(), url: "/../../etc/passwd"},
		{name: "cancelled", ctx: cancelled, url: "/folder/file.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fs.Fetch(tt.ctx, tt.url)
			assert.ErrorIs(t, err, models.ErrUpstreamFetch)
		})
	}
}

func TestLocalFileStorage_GetFullPath(t *testing.T) {
	fs, _ := setupFileStorage(t)

	path, err := fs.GetFullPath("http://test.local/media/a/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.GetBaseDir(), "a", "b.jpg"), path)
	assert.Equal(t, "http://test.local/media", fs.BaseURL())
}
