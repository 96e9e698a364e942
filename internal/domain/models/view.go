package models

import "time"

// ClientSafeView проекция галереи или проекта для клиента.
// Код доступа, email клиента и история статусов сюда не попадают.
type ClientSafeView struct {
	EntityID    string           `json:"id"`
	Kind        EntityKind       `json:"kind"`
	ClientName  string           `json:"client_name"`
	Title       string           `json:"title"`
	EventDate   *time.Time       `json:"event_date,omitempty"`
	Description string           `json:"description,omitempty"`
	Media       []MediaReference `json:"media"`
	Settings    GallerySettings  `json:"settings"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	Expired     bool             `json:"expired"`

	Project *ProjectView `json:"project,omitempty"`
}

// ProjectView поля, которые есть только у проекта
type ProjectView struct {
	Type            ProjectType      `json:"type"`
	ServiceCategory ServiceCategory  `json:"service_category"`
	Status          ProjectStatus    `json:"status"`
	AllowComments   bool             `json:"allow_comments"`
	AllowApproval   bool             `json:"allow_approval"`
	BrandColor      string           `json:"brand_color,omitempty"`
	LogoURL         string           `json:"logo_url,omitempty"`
	CompanyName     string           `json:"company_name,omitempty"`
	Proposal        *ProposalContent `json:"proposal,omitempty"`
}

// NewGalleryView строит клиентскую проекцию галереи
func NewGalleryView(g ClientGallery, now time.Time) ClientSafeView {
	eventDate := g.EventDate
	settings := g.Settings.clone()

	return ClientSafeView{
		EntityID:    g.ID,
		Kind:        EntityGallery,
		ClientName:  g.ClientName,
		Title:       g.EventName,
		EventDate:   &eventDate,
		Description: g.Description,
		Media:       clientMedia(g.Photos, settings),
		Settings:    settings,
		ExpiresAt:   g.ExpiresAt,
		Expired:     IsExpired(g, now),
	}
}

// NewProjectView строит клиентскую проекцию проекта.
// Цены и сроки отдаются только при включённых show_pricing/show_timeline.
func NewProjectView(p ClientProject, now time.Time) ClientSafeView {
	settings := p.Settings.GallerySettings.clone()

	var proposal *ProposalContent
	if p.Proposal != nil {
		proposal = p.Proposal.Clone()
		if !p.Settings.ShowPricing {
			proposal.Pricing = nil
		}
		if !p.Settings.ShowTimeline {
			proposal.Timeline = nil
		}
	}

	return ClientSafeView{
		EntityID:    p.ID,
		Kind:        EntityProject,
		ClientName:  p.ClientName,
		Title:       p.ProjectName,
		Description: p.Description,
		Media:       clientMedia(p.MediaItems, settings),
		Settings:    settings,
		ExpiresAt:   p.ExpiresAt,
		Expired:     IsExpired(p, now),
		Project: &ProjectView{
			Type:            p.Type,
			ServiceCategory: p.ServiceCategory,
			Status:          p.Status,
			AllowComments:   p.Settings.AllowComments,
			AllowApproval:   p.Settings.AllowApproval,
			BrandColor:      p.Settings.BrandColor,
			LogoURL:         p.Settings.LogoURL,
			CompanyName:     p.Settings.CompanyName,
			Proposal:        proposal,
		},
	}
}

// NewClientView выбирает проекцию по типу сущности
func NewClientView(e PortalEntity, now time.Time) ClientSafeView {
	switch v := e.(type) {
	case ClientGallery:
		return NewGalleryView(v, now)
	case *ClientGallery:
		return NewGalleryView(*v, now)
	case ClientProject:
		return NewProjectView(v, now)
	case *ClientProject:
		return NewProjectView(*v, now)
	}
	return ClientSafeView{EntityID: e.EntityID(), Kind: e.Kind(), Title: e.Title()}
}

// clientMedia скрывает оригиналы без allow_full_size и метаданные без show_metadata
func clientMedia(list []MediaReference, s GallerySettings) []MediaReference {
	out := make([]MediaReference, 0, len(list))
	for _, m := range list {
		out = append(out, ClientSafeMedia(m, s))
	}
	return out
}

// ClientSafeMedia копия медиафайла в том виде, в каком её видит клиент
func ClientSafeMedia(m MediaReference, s GallerySettings) MediaReference {
	out := m.Clone()
	if !s.AllowFullSize {
		out.URL = out.ThumbnailURL
	}
	if !s.ShowMetadata {
		out.Metadata = nil
	}
	out.StoreID = ""
	return out
}
