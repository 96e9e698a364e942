package models

import "time"

type EntityKind string

const (
	EntityGallery EntityKind = "gallery"
	EntityProject EntityKind = "project"
)

// PortalEntity общее поведение галереи и проекта для контроля доступа и скачивания
type PortalEntity interface {
	EntityID() string
	Kind() EntityKind
	Code() string
	Expiry() *time.Time
	Media() []MediaReference
	DownloadSettings() GallerySettings
	Title() string
	Owner() string
}

// IsExpired истинно, если срок задан и now >= expiresAt.
func IsExpired(e PortalEntity, now time.Time) bool {
	exp := e.Expiry()
	if exp == nil {
		return false
	}
	return !now.Before(*exp)
}
