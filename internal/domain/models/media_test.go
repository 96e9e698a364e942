package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaReference_DefaultsToImage(t *testing.T) {
	raw := `{"id":"m1","url":"https://cdn.example.com/a.jpg","thumbnail_url":"https://cdn.example.com/t/a.jpg"}`

	var m MediaReference
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, MediaKindImage, m.MediaType)
	assert.NotNil(t, m.Comments)
}

func TestMediaReference_KeepsExplicitType(t *testing.T) {
	raw := `[{"id":"v1","url":"https://cdn/v.mp4","media_type":"video"},{"id":"d1","url":"https://cdn/d.pdf","media_type":"document"}]`

	var list []MediaReference
	require.NoError(t, json.Unmarshal([]byte(raw), &list))

	assert.Equal(t, MediaKindVideo, list[0].MediaType)
	assert.Equal(t, MediaKindDocument, list[1].MediaType)
}

func TestNewMediaReference(t *testing.T) {
	now := time.Now()
	pages := 12

	tests := []struct {
		name string
		res  UploadResult
		want MediaKind
	}{
		{name: "image", res: UploadResult{SecureURL: "https://cdn/a.jpg", ResourceType: "image", MimeType: "image/jpeg"}, want: MediaKindImage},
		{name: "video", res: UploadResult{SecureURL: "https://cdn/a.mp4", ResourceType: "video"}, want: MediaKindVideo},
		{name: "pdf", res: UploadResult{SecureURL: "https://cdn/a.pdf", ResourceType: "image", MimeType: "application/pdf", Pages: &pages}, want: MediaKindDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMediaReference(tt.res, now)

			assert.Equal(t, tt.want, m.MediaType)
			assert.NotEmpty(t, m.ID)
			assert.Equal(t, tt.res.SecureURL, m.ThumbnailURL, "thumbnail falls back to original")
			assert.NoError(t, m.Validate())
		})
	}
}

func TestMediaReference_Extension(t *testing.T) {
	assert.Equal(t, "png", MediaReference{Metadata: &MediaMetadata{Format: "PNG"}}.Extension())
	assert.Equal(t, "jpg", MediaReference{MimeType: "image/jpeg"}.Extension())
	assert.Equal(t, "mp4", MediaReference{URL: "https://cdn/x/clip.mp4?sig=1"}.Extension())
	assert.Equal(t, "", MediaReference{URL: "https://cdn/x/clip"}.Extension())
}
