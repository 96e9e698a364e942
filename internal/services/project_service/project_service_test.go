package services

import (
	"context"
	"testing"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/handlers/slogdiscard"
	"delivery_portal/internal/repository"
	"delivery_portal/internal/storage/memory"
	"delivery_portal/internal/transport/http/dto"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ProjectServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Storage
	service *ProjectService
	now     time.Time
}

func (s *ProjectServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.service = NewProjectService(slogdiscard.NewDiscardLogger(), s.store, 5)
	s.service.Now = func() time.Time { return s.now }
}

func TestProjectServiceSuite(t *testing.T) {
	suite.Run(t, new(ProjectServiceSuite))
}

func fakeRequest() dto.CreateProjectRequest {
	return dto.CreateProjectRequest{
		ClientName:      gofakeit.Company(),
		ClientEmail:     gofakeit.Email(),
		ProjectName:     gofakeit.AppName(),
		Description:     "Spring <em>campaign</em>",
		ServiceCategory: models.ServicePhotography,
		AccessCode:      " spring-2024 ",
	}
}

func (s *ProjectServiceSuite) TestCreateProject() {
	req := fakeRequest()
	req.Media = []models.UploadResult{
		{SecureURL: "https://cdn.example.com/p/1.jpg", Title: "Hero"},
	}
	req.Proposal = &models.ProposalContent{
		ScopeOfWork: &models.RichTextBlock{Title: "Scope", Content: "Two days of shooting"},
		Pricing: &models.PricingSection{
			LineItems: []models.LineItem{{Description: "Day rate", Quantity: 2, UnitPrice: 900}},
		},
	}

	project, err := s.service.CreateProject(s.ctx, req)
	s.Require().NoError(err)

	s.NotEmpty(project.ID)
	s.Equal(models.ProjectProposal, project.Type)
	s.Equal(models.StatusDraft, project.Status)
	s.Require().Len(project.StatusHistory, 1)
	s.Equal(models.StatusDraft, project.StatusHistory[0].Status)
	s.Equal("spring-2024", project.AccessCode)
	s.Require().Len(project.MediaItems, 1)
	s.Equal("Hero", project.MediaItems[0].Title)
	s.Require().NotNil(project.Proposal)
	s.Equal(1800.0, project.Proposal.Pricing.Total)
	s.Equal(models.DefaultCurrency, project.Proposal.Pricing.Currency)

	stored, err := s.service.GetProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Equal(project.ID, stored.ID)
	s.Equal(req.ClientEmail, stored.ClientEmail)
}

func (s *ProjectServiceSuite) TestCreateProjectRejectsInvalidInput() {
	tests := []struct {
		name   string
		mutate func(r *dto.CreateProjectRequest)
	}{
		{
			name:   "unknown category",
			mutate: func(r *dto.CreateProjectRequest) { r.ServiceCategory = "catering" },
		},
		{
			name:   "bad email",
			mutate: func(r *dto.CreateProjectRequest) { r.ClientEmail = "not-an-email" },
		},
		{
			name:   "password required without code",
			mutate: func(r *dto.CreateProjectRequest) { r.AccessCode = "  " },
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := fakeRequest()
			tt.mutate(&req)

			_, err := s.service.CreateProject(s.ctx, req)
			s.ErrorIs(err, models.ErrInvalidInput)
		})
	}

	projects, total, err := s.service.ListProjects(s.ctx, nil, 1, 20)
	s.Require().NoError(err)
	s.Empty(projects)
	s.Zero(total)
}

func (s *ProjectServiceSuite) TestListProjectsByStatus() {
	first, err := s.service.CreateProject(s.ctx, fakeRequest())
	s.Require().NoError(err)
	_, err = s.service.CreateProject(s.ctx, fakeRequest())
	s.Require().NoError(err)

	_, err = repository.MutateProject(s.ctx, s.store, first.ID, 1, s.now, func(p *models.ClientProject) error {
		return p.AppendStatusChange(models.StatusSent, models.ActorAdmin, "", s.now)
	})
	s.Require().NoError(err)

	all, total, err := s.service.ListProjects(s.ctx, nil, 1, 20)
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal(2, total)

	sent, total, err := s.service.ListProjects(s.ctx, []models.ProjectStatus{models.StatusSent}, 1, 20)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(sent, 1)
	s.Equal(first.ID, sent[0].ID)

	_, _, err = s.service.ListProjects(s.ctx, []models.ProjectStatus{"archived"}, 1, 20)
	s.ErrorIs(err, models.ErrInvalidInput)
}

func (s *ProjectServiceSuite) TestUpdateProjectSettings() {
	project, err := s.service.CreateProject(s.ctx, fakeRequest())
	s.Require().NoError(err)

	expires := time.Date(2024, 4, 1, 0, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	settings := models.DefaultProjectSettings()
	settings.AllowComments = false
	limit := 5
	settings.DownloadsPerSession = &limit

	updated, err := s.service.UpdateProjectSettings(s.ctx, project.ID, dto.UpdateProjectSettingsRequest{
		Settings:  &settings,
		ExpiresAt: &expires,
	})
	s.Require().NoError(err)
	s.False(updated.Settings.AllowComments)
	s.Equal(5, updated.Settings.DownloadLimit())
	s.Require().NotNil(updated.ExpiresAt)
	s.Equal("UTC", updated.ExpiresAt.Location().String())
	s.Equal(project.Version+1, updated.Version)

	cleared, err := s.service.UpdateProjectSettings(s.ctx, project.ID, dto.UpdateProjectSettingsRequest{ClearExpiry: true})
	s.Require().NoError(err)
	s.Nil(cleared.ExpiresAt)

	empty := ""
	_, err = s.service.UpdateProjectSettings(s.ctx, project.ID, dto.UpdateProjectSettingsRequest{AccessCode: &empty})
	s.ErrorIs(err, models.ErrInvalidInput)

	_, err = s.service.UpdateProjectSettings(s.ctx, "missing", dto.UpdateProjectSettingsRequest{ClearExpiry: true})
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *ProjectServiceSuite) TestAddMediaAndDelete() {
	project, err := s.service.CreateProject(s.ctx, fakeRequest())
	s.Require().NoError(err)

	added, err := s.service.AddProjectMedia(s.ctx, project.ID, []models.UploadResult{
		{SecureURL: "https://cdn.example.com/p/clip.mp4", ResourceType: "video", Title: "Teaser"},
		{SecureURL: "https://cdn.example.com/p/brief.pdf", MimeType: "application/pdf"},
	})
	s.Require().NoError(err)
	s.Require().Len(added, 2)
	s.Equal(models.MediaKindVideo, added[0].MediaType)
	s.Equal(models.MediaKindDocument, added[1].MediaType)

	_, err = s.service.AddProjectMedia(s.ctx, project.ID, nil)
	s.ErrorIs(err, models.ErrInvalidInput)

	stored, err := s.service.GetProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Len(stored.MediaItems, 2)

	s.Require().NoError(s.service.DeleteProject(s.ctx, project.ID))
	s.ErrorIs(s.service.DeleteProject(s.ctx, project.ID), models.ErrNotFound)

	_, err = s.service.GetProject(s.ctx, project.ID)
	s.ErrorIs(err, models.ErrNotFound)
}

func TestUtcPtr(t *testing.T) {
	assert.Nil(t, utcPtr(nil))

	local := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	got := utcPtr(&local)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Hour())
	assert.True(t, got.Equal(local))
}
