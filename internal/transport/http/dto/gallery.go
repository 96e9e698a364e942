package dto

import (
	"time"

	"delivery_portal/internal/domain/models"
)

// CreateGalleryRequest данные для создания галереи клиента
type CreateGalleryRequest struct {
	ClientName  string                  `json:"client_name" validate:"required,max=200"`
	ClientEmail string                  `json:"client_email" validate:"omitempty,email"`
	EventName   string                  `json:"event_name" validate:"required,max=200"`
	EventDate   time.Time               `json:"event_date" validate:"required"`
	Description string                  `json:"description" validate:"max=5000"`
	Settings    *models.GallerySettings `json:"settings"`                         // по умолчанию DefaultGallerySettings
	AccessCode  string                  `json:"access_code" validate:"max=128"`   // обязателен при require_password
	ExpiresAt   *time.Time              `json:"expires_at"`                       // без срока галерея не истекает
	Photos      []models.UploadResult   `json:"photos" validate:"omitempty,dive"` // результаты загрузки в медиахранилище
}

// UpdateGalleryRequest частичное обновление: nil поля не меняются
type UpdateGalleryRequest struct {
	ClientName  *string                 `json:"client_name" validate:"omitempty,max=200"`
	ClientEmail *string                 `json:"client_email" validate:"omitempty,email"`
	EventName   *string                 `json:"event_name" validate:"omitempty,max=200"`
	EventDate   *time.Time              `json:"event_date"`
	Description *string                 `json:"description" validate:"omitempty,max=5000"`
	Settings    *models.GallerySettings `json:"settings"`
	AccessCode  *string                 `json:"access_code" validate:"omitempty,max=128"`
	ExpiresAt   *time.Time              `json:"expires_at"`
	ClearExpiry bool                    `json:"clear_expiry"`
}

type AddMediaRequest struct {
	Items []models.UploadResult `json:"items" validate:"required,min=1,dive"`
}

type ListResponse[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}
