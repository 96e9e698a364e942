package models

import (
	"strings"
	"time"
)

type ProjectType string

const (
	ProjectGallery     ProjectType = "gallery"
	ProjectProposal    ProjectType = "proposal"
	ProjectDeliverable ProjectType = "deliverable"
	ProjectMixed       ProjectType = "mixed"
)

func (t ProjectType) Valid() bool {
	switch t {
	case ProjectGallery, ProjectProposal, ProjectDeliverable, ProjectMixed:
		return true
	}
	return false
}

// ServiceCategory услуга, по которой ведётся проект
type ServiceCategory string

const (
	ServicePhotography    ServiceCategory = "photography"
	ServiceVideography    ServiceCategory = "videography"
	ServiceWebDevelopment ServiceCategory = "web-development"
	ServiceGraphicDesign  ServiceCategory = "graphic-design"
	ServiceBranding       ServiceCategory = "branding"
	ServiceConsulting     ServiceCategory = "consulting"
	ServiceOther          ServiceCategory = "other"
)

func (c ServiceCategory) Valid() bool {
	switch c {
	case ServicePhotography, ServiceVideography, ServiceWebDevelopment,
		ServiceGraphicDesign, ServiceBranding, ServiceConsulting, ServiceOther:
		return true
	}
	return false
}

// ProjectSettings настройки галереи плюс настройки предложения и брендинга
type ProjectSettings struct {
	GallerySettings
	AllowComments bool   `json:"allow_comments"`
	AllowApproval bool   `json:"allow_approval"`
	ShowPricing   bool   `json:"show_pricing"`
	ShowTimeline  bool   `json:"show_timeline"`
	BrandColor    string `json:"brand_color,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
}

func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		GallerySettings: DefaultGallerySettings(),
		AllowComments:   true,
		AllowApproval:   true,
		ShowPricing:     true,
		ShowTimeline:    true,
	}
}

func (s ProjectSettings) Validate() error {
	var errs []string

	errs = collect(errs, s.GallerySettings.Validate())
	if s.BrandColor != "" {
		if err := validate.Var(s.BrandColor, "hexcolor"); err != nil {
			errs = append(errs, "brand color must be a hex color")
		}
	}
	if s.LogoURL != "" {
		if err := validate.Var(s.LogoURL, "url"); err != nil {
			errs = append(errs, "logo url is invalid")
		}
	}

	return invalid(errs)
}

// ClientProject проект клиента: галерея, предложение и история статусов
type ClientProject struct {
	ID              string           `json:"project_id"`
	Type            ProjectType      `json:"type"`
	ClientName      string           `json:"client_name"`
	ClientEmail     string           `json:"client_email"`
	ProjectName     string           `json:"project_name"`
	Description     string           `json:"description,omitempty"`
	ServiceCategory ServiceCategory  `json:"service_category"`
	MediaItems      []MediaReference `json:"media"`
	Proposal        *ProposalContent `json:"proposal,omitempty"`
	Settings        ProjectSettings  `json:"settings"`
	AccessCode      string           `json:"access_code,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	Status          ProjectStatus    `json:"status"`
	StatusHistory   []StatusChange   `json:"status_history"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Version         int64            `json:"-"`
}

func (p ClientProject) Validate() error {
	var errs []string

	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, "project id is required")
	}
	if !p.Type.Valid() {
		errs = append(errs, "invalid project type '"+string(p.Type)+"'")
	}
	if strings.TrimSpace(p.ClientName) == "" {
		errs = append(errs, "client name is required")
	}
	if err := validate.Var(p.ClientEmail, "required,email"); err != nil {
		errs = append(errs, "client email is invalid")
	}
	if strings.TrimSpace(p.ProjectName) == "" {
		errs = append(errs, "project name is required")
	}
	if !p.ServiceCategory.Valid() {
		errs = append(errs, "invalid service category '"+string(p.ServiceCategory)+"'")
	}
	errs = collect(errs, p.Settings.Validate())
	if p.Settings.RequirePassword && strings.TrimSpace(p.AccessCode) == "" {
		errs = append(errs, "access code is required when password is required")
	}
	for _, m := range p.MediaItems {
		errs = collect(errs, m.Validate())
	}
	if p.Proposal != nil {
		errs = collect(errs, p.Proposal.Validate(p.MediaItems))
	}
	if !historyConsistent(p.Status, p.StatusHistory) {
		errs = append(errs, "status history must end with the current status")
	}

	return invalid(errs)
}

func (p ClientProject) Clone() ClientProject {
	c := p
	c.MediaItems = cloneMedia(p.MediaItems)
	c.Proposal = p.Proposal.Clone()
	c.Settings.GallerySettings = p.Settings.GallerySettings.clone()
	c.StatusHistory = append([]StatusChange{}, p.StatusHistory...)
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		c.ExpiresAt = &t
	}
	return c
}

func (p ClientProject) EntityID() string                  { return p.ID }
func (p ClientProject) Kind() EntityKind                  { return EntityProject }
func (p ClientProject) Code() string                      { return p.AccessCode }
func (p ClientProject) Expiry() *time.Time                { return p.ExpiresAt }
func (p ClientProject) Media() []MediaReference           { return p.MediaItems }
func (p ClientProject) DownloadSettings() GallerySettings { return p.Settings.GallerySettings }
func (p ClientProject) Title() string                     { return p.ProjectName }
func (p ClientProject) Owner() string                     { return p.ClientEmail }

// NewClientProject создаёт черновик с первой записью истории
func NewClientProject(id string, now time.Time) ClientProject {
	now = now.UTC()
	return ClientProject{
		ID:         id,
		Type:       ProjectProposal,
		MediaItems: []MediaReference{},
		Settings:   DefaultProjectSettings(),
		Status:     StatusDraft,
		StatusHistory: []StatusChange{{
			Status:    StatusDraft,
			ChangedAt: now,
			ChangedBy: ActorAdmin,
			Note:      "created",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
