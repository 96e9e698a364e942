package models

import "time"

// GalleryAccess запись журнала скачиваний в пределах одного окна.
// Окно начинается в AccessedAt; новое окно создаёт новую запись.
type GalleryAccess struct {
	GalleryID      string     `json:"gallery_id"`
	ClientEmail    string     `json:"client_email"`
	AccessedAt     time.Time  `json:"accessed_at"`
	IPAddress      string     `json:"ip_address"`
	UserAgent      string     `json:"user_agent"`
	DownloadsCount int        `json:"downloads_count"`
	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`
}

// Live истинно, пока окно записи не истекло
func (a GalleryAccess) Live(now time.Time, window time.Duration) bool {
	return now.Before(a.AccessedAt.Add(window))
}

// RequesterContext сведения о клиенте, запросившем скачивание
type RequesterContext struct {
	ClientEmail string
	IPAddress   string
	UserAgent   string
}

type AssetVariant string

const (
	VariantOriginal  AssetVariant = "original"
	VariantThumbnail AssetVariant = "thumbnail"
)

// DownloadDecision результат проверки скачивания.
// Запись журнала общая для всех посетителей и клиенту не отдаётся.
type DownloadDecision struct {
	EntityID       string        `json:"entity_id"`
	MediaID        string        `json:"media_id"`
	URL            string        `json:"url"`
	Variant        AssetVariant  `json:"variant"`
	Filename       string        `json:"filename"`
	MimeType       string        `json:"mime_type,omitempty"`
	DownloadsCount int           `json:"downloads_count"`
	WindowResetsAt time.Time     `json:"window_resets_at"`
	Remaining      *int          `json:"remaining,omitempty"`
	Window         GalleryAccess `json:"-"`
}

// AccessGrant выдаётся после успешной проверки кода доступа
type AccessGrant struct {
	Token     string     `json:"token"`
	EntityID  string     `json:"entity_id"`
	Kind      EntityKind `json:"kind"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// AuthResult ответ на аутентификацию клиента
type AuthResult struct {
	Grant AccessGrant    `json:"grant"`
	View  ClientSafeView `json:"view"`
}
