package models

import (
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindImage, MediaKindVideo, MediaKindDocument:
		return true
	}
	return false
}

// MediaComment комментарий клиента или администратора к медиафайлу
type MediaComment struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author,omitempty"`
}

// MediaMetadata описывает ассет так, как его вернуло медиахранилище
type MediaMetadata struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Format   string   `json:"format"`
	Bytes    int64    `json:"bytes"`
	Duration *float64 `json:"duration,omitempty"`
	Pages    *int     `json:"pages,omitempty"`
}

// MediaReference представляет загруженный во внешнее медиахранилище ассет.
// Хранится внутри галереи или проекта по значению.
type MediaReference struct {
	ID           string         `json:"id"`
	StoreID      string         `json:"store_id,omitempty"`
	URL          string         `json:"url"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	MediaType    MediaKind      `json:"media_type"`
	ResourceType string         `json:"resource_type,omitempty"`
	MimeType     string         `json:"mime_type,omitempty"`
	Favorite     bool           `json:"favorite"`
	Likes        int            `json:"likes"`
	Comments     []MediaComment `json:"comments"`
	Metadata     *MediaMetadata `json:"metadata,omitempty"`
	UploadedAt   time.Time      `json:"uploaded_at"`
}

// UnmarshalJSON заполняет media_type значением image для старых записей,
// созданных до появления видео и документов.
func (m *MediaReference) UnmarshalJSON(data []byte) error {
	type plain MediaReference

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*m = MediaReference(p)
	m.Normalize()

	return nil
}

func (m *MediaReference) Normalize() {
	if m.MediaType == "" {
		m.MediaType = MediaKindImage
	}
	if m.Comments == nil {
		m.Comments = []MediaComment{}
	}
}

func (m MediaReference) Validate() error {
	var errs []string

	if strings.TrimSpace(m.ID) == "" {
		errs = append(errs, "media id is required")
	}
	if strings.TrimSpace(m.URL) == "" {
		errs = append(errs, "media url is required")
	}
	if m.MediaType != "" && !m.MediaType.Valid() {
		errs = append(errs, "invalid media type '"+string(m.MediaType)+"'")
	}
	if m.Likes < 0 {
		errs = append(errs, "likes must not be negative")
	}

	return invalid(errs)
}

// DisplayName название файла для Content-Disposition
func (m MediaReference) DisplayName() string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return m.ID
}

// Extension расширение файла без точки: формат из метаданных, затем mime, затем путь URL.
func (m MediaReference) Extension() string {
	if m.Metadata != nil && m.Metadata.Format != "" {
		return strings.ToLower(m.Metadata.Format)
	}
	if _, sub, ok := strings.Cut(m.MimeType, "/"); ok && sub != "" {
		switch sub {
		case "jpeg":
			return "jpg"
		case "quicktime":
			return "mov"
		}
		return sub
	}
	if ext := path.Ext(strings.SplitN(m.URL, "?", 2)[0]); len(ext) > 1 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

func (m MediaReference) Clone() MediaReference {
	c := m
	c.Comments = append([]MediaComment(nil), m.Comments...)
	if c.Comments == nil {
		c.Comments = []MediaComment{}
	}
	if m.Metadata != nil {
		md := *m.Metadata
		if m.Metadata.Duration != nil {
			d := *m.Metadata.Duration
			md.Duration = &d
		}
		if m.Metadata.Pages != nil {
			p := *m.Metadata.Pages
			md.Pages = &p
		}
		c.Metadata = &md
	}
	return c
}

func cloneMedia(list []MediaReference) []MediaReference {
	out := make([]MediaReference, 0, len(list))
	for _, m := range list {
		out = append(out, m.Clone())
	}
	return out
}

// FindMedia ищет медиафайл по id
func FindMedia(list []MediaReference, id string) (MediaReference, bool) {
	for _, m := range list {
		if m.ID == id {
			return m, true
		}
	}
	return MediaReference{}, false
}

// UploadResult ответ медиахранилища после загрузки ассета
type UploadResult struct {
	PublicID     string   `json:"public_id"`
	SecureURL    string   `json:"secure_url" validate:"required,url"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"omitempty,url"`
	ResourceType string   `json:"resource_type"`
	MimeType     string   `json:"mime_type"`
	Format       string   `json:"format"`
	Width        int      `json:"width" validate:"min=0"`
	Height       int      `json:"height" validate:"min=0"`
	Bytes        int64    `json:"bytes" validate:"min=0"`
	Duration     *float64 `json:"duration,omitempty"`
	Pages        *int     `json:"pages,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
}

// NewMediaReference строит ссылку на медиа из результата загрузки.
func NewMediaReference(res UploadResult, now time.Time) MediaReference {
	thumb := res.ThumbnailURL
	if thumb == "" {
		thumb = res.SecureURL
	}

	ref := MediaReference{
		ID:           uuid.NewString(),
		StoreID:      res.PublicID,
		URL:          res.SecureURL,
		ThumbnailURL: thumb,
		Title:        res.Title,
		Description:  res.Description,
		MediaType:    inferKind(res.ResourceType, res.MimeType),
		ResourceType: res.ResourceType,
		MimeType:     res.MimeType,
		Comments:     []MediaComment{},
		Metadata: &MediaMetadata{
			Width:    res.Width,
			Height:   res.Height,
			Format:   res.Format,
			Bytes:    res.Bytes,
			Duration: res.Duration,
			Pages:    res.Pages,
		},
		UploadedAt: now.UTC(),
	}

	return ref
}

func inferKind(resourceType, mime string) MediaKind {
	switch {
	case resourceType == "video" || strings.HasPrefix(mime, "video/"):
		return MediaKindVideo
	case resourceType == "raw" || mime == "application/pdf" || strings.HasPrefix(mime, "application/"):
		return MediaKindDocument
	default:
		return MediaKindImage
	}
}
