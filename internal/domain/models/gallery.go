package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Layout string

const (
	LayoutGrid      Layout = "grid"
	LayoutMasonry   Layout = "masonry"
	LayoutSlideshow Layout = "slideshow"
)

// GallerySettings настройки отображения и скачивания
type GallerySettings struct {
	AllowDownloads      bool   `json:"allow_downloads"`
	AllowFullSize       bool   `json:"allow_full_size"`
	AllowSocialSharing  bool   `json:"allow_social_sharing"`
	RequirePassword     bool   `json:"require_password"`
	ShowMetadata        bool   `json:"show_metadata"`
	Layout              Layout `json:"layout"`
	DownloadsPerSession *int   `json:"downloads_per_session,omitempty"`
}

func DefaultGallerySettings() GallerySettings {
	return GallerySettings{
		AllowDownloads:  true,
		AllowFullSize:   true,
		RequirePassword: true,
		Layout:          LayoutGrid,
	}
}

func (s GallerySettings) Validate() error {
	var errs []string

	switch s.Layout {
	case LayoutGrid, LayoutMasonry, LayoutSlideshow:
	default:
		errs = append(errs, "invalid layout '"+string(s.Layout)+"'")
	}
	if s.DownloadsPerSession != nil && *s.DownloadsPerSession < 1 {
		errs = append(errs, "downloads_per_session must be at least 1")
	}

	return invalid(errs)
}

// DownloadLimit 0 означает отсутствие лимита
func (s GallerySettings) DownloadLimit() int {
	if s.DownloadsPerSession == nil {
		return 0
	}
	return *s.DownloadsPerSession
}

func (s GallerySettings) clone() GallerySettings {
	c := s
	if s.DownloadsPerSession != nil {
		n := *s.DownloadsPerSession
		c.DownloadsPerSession = &n
	}
	return c
}

// ClientGallery галерея, доступная одному клиенту по коду доступа
type ClientGallery struct {
	ID          string           `json:"gallery_id"`
	ClientName  string           `json:"client_name"`
	ClientEmail string           `json:"client_email"`
	EventName   string           `json:"event_name"`
	EventDate   time.Time        `json:"event_date"`
	Description string           `json:"description,omitempty"`
	Photos      []MediaReference `json:"photos"`
	Settings    GallerySettings  `json:"settings"`
	AccessCode  string           `json:"access_code,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Version     int64            `json:"-"`
}

func (g ClientGallery) Validate() error {
	var errs []string

	if strings.TrimSpace(g.ID) == "" {
		errs = append(errs, "gallery id is required")
	}
	if strings.TrimSpace(g.ClientName) == "" {
		errs = append(errs, "client name is required")
	}
	if strings.TrimSpace(g.EventName) == "" {
		errs = append(errs, "event name is required")
	}
	errs = collect(errs, g.Settings.Validate())
	if g.Settings.RequirePassword && strings.TrimSpace(g.AccessCode) == "" {
		errs = append(errs, "access code is required when password is required")
	}
	for _, m := range g.Photos {
		errs = collect(errs, m.Validate())
	}

	return invalid(errs)
}

func (g ClientGallery) Clone() ClientGallery {
	c := g
	c.Photos = cloneMedia(g.Photos)
	c.Settings = g.Settings.clone()
	if g.ExpiresAt != nil {
		t := *g.ExpiresAt
		c.ExpiresAt = &t
	}
	return c
}

func (g ClientGallery) EntityID() string                  { return g.ID }
func (g ClientGallery) Kind() EntityKind                  { return EntityGallery }
func (g ClientGallery) Code() string                      { return g.AccessCode }
func (g ClientGallery) Expiry() *time.Time                { return g.ExpiresAt }
func (g ClientGallery) Media() []MediaReference           { return g.Photos }
func (g ClientGallery) DownloadSettings() GallerySettings { return g.Settings }
func (g ClientGallery) Title() string                     { return g.EventName }
func (g ClientGallery) Owner() string                     { return g.ClientEmail }

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// MakeSlug приводит строку к URL-безопасному виду: "Anna & Ivan" -> "anna-ivan"
func MakeSlug(s string) string {
	base := strings.ToLower(strings.TrimSpace(s))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "-")
	base = multiDash.ReplaceAllString(base, "-")
	return strings.Trim(base, "-")
}

// NewGalleryID строит id галереи из имени клиента и времени создания.
// После создания id не меняется.
func NewGalleryID(clientName string, createdAt time.Time) string {
	return entityID("gallery", clientName, createdAt)
}

// ProjectIDPrefix отделяет id проектов от id галерей: слаг галереи
// состоит только из [a-z0-9-] и не может содержать "_".
const ProjectIDPrefix = "p_"

// NewProjectID аналог NewGalleryID для проектов
func NewProjectID(clientName string, createdAt time.Time) string {
	return ProjectIDPrefix + entityID("project", clientName, createdAt)
}

func entityID(fallback, clientName string, createdAt time.Time) string {
	base := MakeSlug(clientName)
	if base == "" {
		base = fallback
	}
	return base + "-" + strconv.FormatInt(createdAt.UnixMilli(), 36)
}
