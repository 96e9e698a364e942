package dto

import (
	"time"

	"delivery_portal/internal/domain/models"
)

type CreateProjectRequest struct {
	Type            models.ProjectType      `json:"type" validate:"omitempty,oneof=gallery proposal deliverable mixed"`
	ClientName      string                  `json:"client_name" validate:"required,max=200"`
	ClientEmail     string                  `json:"client_email" validate:"required,email"`
	ProjectName     string                  `json:"project_name" validate:"required,max=200"`
	Description     string                  `json:"description" validate:"max=5000"`
	ServiceCategory models.ServiceCategory  `json:"service_category" validate:"required"`
	Settings        *models.ProjectSettings `json:"settings"`
	AccessCode      string                  `json:"access_code" validate:"max=128"`
	ExpiresAt       *time.Time              `json:"expires_at"`
	Media           []models.UploadResult   `json:"media" validate:"omitempty,dive"`
	Proposal        *models.ProposalContent `json:"proposal"`
}

type UpdateProjectSettingsRequest struct {
	Settings    *models.ProjectSettings `json:"settings"`
	AccessCode  *string                 `json:"access_code" validate:"omitempty,max=128"`
	ExpiresAt   *time.Time              `json:"expires_at"`
	ClearExpiry bool                    `json:"clear_expiry"`
}

type LineItemRequest struct {
	ID          string  `json:"id"`
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type ReorderSectionsRequest struct {
	SectionIDs []string `json:"section_ids" validate:"required,min=1"`
}

type StatusChangeRequest struct {
	Status models.ProjectStatus `json:"status" validate:"required"`
	Note   string               `json:"note" validate:"max=1000"`
}

// PricingResponse строка и пересчитанный ценовой блок
type PricingResponse struct {
	Item    *models.LineItem       `json:"item,omitempty"`
	Pricing *models.PricingSection `json:"pricing"`
}
