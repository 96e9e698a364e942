package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"delivery_portal/internal/config"
	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/jwt"
	"delivery_portal/internal/lib/logger/handlers/slogdiscard"
	"delivery_portal/internal/mediastore"
	access "delivery_portal/internal/services/access_service"
	download "delivery_portal/internal/services/download_service"
	gallery "delivery_portal/internal/services/gallery_service"
	project "delivery_portal/internal/services/project_service"
	proposal "delivery_portal/internal/services/proposal_service"
	"delivery_portal/internal/storage/memory"
	httprouters "delivery_portal/internal/transport/http"

	"github.com/stretchr/testify/suite"
)

const adminSecret = "test-admin-secret"

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (*mediastore.Asset, error) {
	body := "bytes of " + url
	return &mediastore.Asset{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}, nil
}

type PortalSuite struct {
	suite.Suite
	store   *memory.Storage
	handler http.Handler
	admin   string
}

func TestPortalSuite(t *testing.T) {
	suite.Run(t, new(PortalSuite))
}

func (s *PortalSuite) SetupTest() {
	log := slogdiscard.NewDiscardLogger()

	s.store = memory.New()
	ledger := memory.NewLedger()
	grants := memory.NewGrantStore(time.Hour)

	routers := httprouters.NewRouter(
		log,
		gallery.NewGalleryService(log, s.store, 3),
		project.NewProjectService(log, s.store, 3),
		proposal.NewProposalService(log, s.store, 3),
		access.NewAccessService(log, s.store, s.store, grants, time.Hour, 3),
		download.NewDownloadService(log, s.store, s.store, ledger, stubFetcher{}, 24*time.Hour),
		false,
	)

	srv := New(log, config.HTTPConfig{SessionSecret: "session-secret"}, adminSecret, routers)
	srv.BuildRouters()
	s.handler = srv.Handler()

	token, err := jwt.NewAdminToken("owner@studio.test", adminSecret, time.Hour)
	s.Require().NoError(err)
	s.admin = token
}

func (s *PortalSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func (s *PortalSuite) adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.admin}
}

func (s *PortalSuite) decode(rec *httptest.ResponseRecorder, data any) {
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &envelope))
	s.Require().Equal("success", envelope.Status)
	s.Require().NoError(json.Unmarshal(envelope.Data, data))
}

func (s *PortalSuite) seedGallery(id string, mutate func(g *models.ClientGallery)) {
	g := models.ClientGallery{
		ID:          id,
		ClientName:  "Lena",
		ClientEmail: "lena@example.com",
		EventName:   "Family Session",
		EventDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Settings:    models.DefaultGallerySettings(),
		AccessCode:  "family",
		Photos: []models.MediaReference{
			{
				ID:           "ph1",
				URL:          "https://cdn.example.com/full/ph1.jpg",
				ThumbnailURL: "https://cdn.example.com/thumb/ph1.jpg",
				Title:        "Picnic",
				MimeType:     "image/jpeg",
				MediaType:    models.MediaKindImage,
			},
		},
	}
	if mutate != nil {
		mutate(&g)
	}
	s.Require().NoError(s.store.CreateGallery(context.Background(), g))
}

func (s *PortalSuite) login(id, code string) string {
	rec := s.do(http.MethodPost, "/api/v1/portal/"+id+"/auth", map[string]string{"access_code": code}, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var res models.AuthResult
	s.decode(rec, &res)
	s.Require().NotEmpty(res.Grant.Token)

	return res.Grant.Token
}

func (s *PortalSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *PortalSuite) TestAdminRequiresToken() {
	rec := s.do(http.MethodGet, "/api/v1/admin/galleries", nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/admin/galleries", nil, map[string]string{"Authorization": "Bearer garbage"})
	s.Equal(http.StatusUnauthorized, rec.Code)

	foreign, err := jwt.NewAdminToken("owner@studio.test", "another-secret", time.Hour)
	s.Require().NoError(err)
	rec = s.do(http.MethodGet, "/api/v1/admin/galleries", nil, map[string]string{"Authorization": "Bearer " + foreign})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *PortalSuite) TestAdminCreateGalleryAndClientLogin() {
	rec := s.do(http.MethodPost, "/api/v1/admin/galleries", map[string]any{
		"client_name":  "Olga",
		"client_email": "olga@example.com",
		"event_name":   "Graduation",
		"event_date":   "2024-06-20T12:00:00Z",
		"access_code":  "grad2024",
		"photos": []map[string]any{
			{"secure_url": "https://cdn.example.com/full/g1.jpg", "thumbnail_url": "https://cdn.example.com/thumb/g1.jpg"},
		},
	}, s.adminHeaders())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created models.ClientGallery
	s.decode(rec, &created)
	s.NotEmpty(created.ID)
	s.Require().Len(created.Photos, 1)

	rec = s.do(http.MethodPost, "/api/v1/admin/galleries", map[string]any{"client_name": "No event"}, s.adminHeaders())
	s.Equal(http.StatusBadRequest, rec.Code)

	token := s.login(created.ID, "grad2024")

	rec = s.do(http.MethodGet, "/api/v1/portal/"+created.ID, nil, map[string]string{httprouters.GrantHeader: token})
	s.Require().Equal(http.StatusOK, rec.Code)

	var view models.ClientSafeView
	s.decode(rec, &view)
	s.Equal("Graduation", view.Title)
	s.NotContains(rec.Body.String(), "grad2024")
	s.NotContains(rec.Body.String(), "olga@example.com")
}

func (s *PortalSuite) TestSessionCookieCarriesGrant() {
	s.seedGallery("family", nil)

	rec := s.do(http.MethodPost, "/api/v1/portal/family/auth", map[string]string{"access_code": "family"}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	s.Require().NotEmpty(cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portal/family", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	view := httptest.NewRecorder()
	s.handler.ServeHTTP(view, req)
	s.Equal(http.StatusOK, view.Code)
}

func (s *PortalSuite) TestFailedLoginsAreIndistinguishable() {
	s.seedGallery("family", nil)

	wrong := s.do(http.MethodPost, "/api/v1/portal/family/auth", map[string]string{"access_code": "nope"}, nil)
	missing := s.do(http.MethodPost, "/api/v1/portal/ghost/auth", map[string]string{"access_code": "nope"}, nil)
	open := s.do(http.MethodPost, "/api/v1/portal/family/auth", map[string]string{}, nil)

	s.Equal(http.StatusUnauthorized, wrong.Code)
	s.Equal(http.StatusUnauthorized, missing.Code)
	s.Equal(http.StatusUnauthorized, open.Code)
	s.Equal(wrong.Body.String(), missing.Body.String())
	s.Equal(wrong.Body.String(), open.Body.String())

	noGrant := s.do(http.MethodGet, "/api/v1/portal/family", nil, nil)
	s.Equal(http.StatusUnauthorized, noGrant.Code)
	s.Equal(wrong.Body.String(), noGrant.Body.String())
}

func (s *PortalSuite) TestDownloadLimit() {
	s.seedGallery("family", func(g *models.ClientGallery) {
		limit := 2
		g.Settings.AllowFullSize = false
		g.Settings.DownloadsPerSession = &limit
	})
	token := s.login("family", "family")
	headers := map[string]string{httprouters.GrantHeader: token}

	rec := s.do(http.MethodGet, "/api/v1/portal/family/media/ph1/download?mode=link", nil, headers)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var decision models.DownloadDecision
	s.decode(rec, &decision)
	s.Equal(models.VariantThumbnail, decision.Variant)
	s.Equal("https://cdn.example.com/thumb/ph1.jpg", decision.URL)

	rec = s.do(http.MethodGet, "/api/v1/portal/family/media/ph1/download", nil, headers)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("bytes of https://cdn.example.com/thumb/ph1.jpg", rec.Body.String())
	s.Equal("0", rec.Header().Get("X-Downloads-Remaining"))
	s.Contains(rec.Header().Get("Content-Disposition"), "family-session-picnic.jpg")

	rec = s.do(http.MethodGet, "/api/v1/portal/family/media/ph1/download", nil, headers)
	s.Equal(http.StatusTooManyRequests, rec.Code)

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	s.Require().NoError(err)
	s.Greater(retry, 0)
	s.LessOrEqual(retry, int((24 * time.Hour).Seconds()))
}

func (s *PortalSuite) TestDownloadLinkHidesOtherVisitors() {
	s.seedGallery("family", nil)
	token := s.login("family", "family")

	first := map[string]string{
		httprouters.GrantHeader: token,
		"X-Forwarded-For":       "203.0.113.7",
		"User-Agent":            "FirstVisitor/1.0",
	}
	rec := s.do(http.MethodGet, "/api/v1/portal/family/media/ph1/download?mode=link", nil, first)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	second := map[string]string{
		httprouters.GrantHeader: token,
		"X-Forwarded-For":       "198.51.100.20",
		"User-Agent":            "SecondVisitor/2.0",
	}
	rec = s.do(http.MethodGet, "/api/v1/portal/family/media/ph1/download?mode=link", nil, second)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	for _, leaked := range []string{"ip_address", "user_agent", "client_email", "203.0.113.7", "FirstVisitor", "lena@example.com"} {
		s.NotContains(body, leaked)
	}

	var decision models.DownloadDecision
	s.decode(rec, &decision)
	s.Equal(2, decision.DownloadsCount)
	s.False(decision.WindowResetsAt.IsZero())
}

func (s *PortalSuite) TestDownloadErrors() {
	s.seedGallery("locked", func(g *models.ClientGallery) {
		g.Settings.AllowDownloads = false
	})
	token := s.login("locked", "family")

	rec := s.do(http.MethodGet, "/api/v1/portal/locked/media/ph1/download", nil, map[string]string{httprouters.GrantHeader: token})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/portal/locked/media/ph1/download", nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *PortalSuite) TestExpiredGallery() {
	past := time.Now().Add(-time.Hour)
	s.seedGallery("old", func(g *models.ClientGallery) {
		g.ExpiresAt = &past
	})

	rec := s.do(http.MethodPost, "/api/v1/portal/old/auth", map[string]string{"access_code": "family"}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var res models.AuthResult
	s.decode(rec, &res)
	s.True(res.View.Expired)
	s.Empty(res.View.Media)

	headers := map[string]string{httprouters.GrantHeader: res.Grant.Token}

	rec = s.do(http.MethodGet, "/api/v1/portal/old", nil, headers)
	s.Equal(http.StatusGone, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/portal/old/media/ph1/download?mode=link", nil, headers)
	s.Equal(http.StatusGone, rec.Code)
}

func (s *PortalSuite) TestProposalFlow() {
	rec := s.do(http.MethodPost, "/api/v1/admin/projects", map[string]any{
		"client_name":      "Northwind",
		"client_email":     "buyer@northwind.test",
		"project_name":     "Website Redesign",
		"service_category": "web-development",
		"access_code":      "nw",
	}, s.adminHeaders())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created models.ClientProject
	s.decode(rec, &created)
	base := "/api/v1/admin/projects/" + created.ID

	rec = s.do(http.MethodPut, base+"/pricing/items", map[string]any{
		"description": "Design system",
		"quantity":    1,
		"unit_price":  4000,
	}, s.adminHeaders())
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/status", map[string]any{"status": "approved"}, s.adminHeaders())
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, base+"/status", map[string]any{"status": "sent"}, s.adminHeaders())
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	token := s.login(created.ID, "nw")
	headers := map[string]string{httprouters.GrantHeader: token}

	rec = s.do(http.MethodPost, "/api/v1/portal/"+created.ID+"/approve", nil, headers)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/portal/"+created.ID+"/viewed", nil, headers)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/portal/"+created.ID+"/approve", map[string]string{"note": "Ship it"}, headers)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var view models.ClientSafeView
	s.decode(rec, &view)
	s.Require().NotNil(view.Project)
	s.Equal(models.StatusApproved, view.Project.Status)
	s.Require().NotNil(view.Project.Proposal)
	s.Equal(4000.0, view.Project.Proposal.Pricing.Total)
}
