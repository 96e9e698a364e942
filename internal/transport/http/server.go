package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/mediastore"
	download "delivery_portal/internal/services/download_service"
	"delivery_portal/internal/transport/http/dto"
	"delivery_portal/internal/transport/http/dto/response"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	_ "delivery_portal/docs"
)

const (
	// SessionName cookie-сессия клиента с токенами доступа
	SessionName = "portal"
	// GrantHeader альтернатива cookie для клиентов без сессии
	GrantHeader = "X-Portal-Token"

	grantKeyPrefix = "grant:"
)

type GalleryService interface {
	CreateGallery(ctx context.Context, req dto.CreateGalleryRequest) (models.ClientGallery, error)
	GetGallery(ctx context.Context, id string) (models.ClientGallery, error)
	ListGalleries(ctx context.Context, page, perPage int) ([]models.ClientGallery, int, error)
	UpdateGallery(ctx context.Context, id string, req dto.UpdateGalleryRequest) (models.ClientGallery, error)
	AddGalleryMedia(ctx context.Context, id string, items []models.UploadResult) ([]models.MediaReference, error)
	DeleteGallery(ctx context.Context, id string) error
}

type ProjectService interface {
	CreateProject(ctx context.Context, req dto.CreateProjectRequest) (models.ClientProject, error)
	GetProject(ctx context.Context, id string) (models.ClientProject, error)
	ListProjects(ctx context.Context, statuses []models.ProjectStatus, page, perPage int) ([]models.ClientProject, int, error)
	UpdateProjectSettings(ctx context.Context, id string, req dto.UpdateProjectSettingsRequest) (models.ClientProject, error)
	AddProjectMedia(ctx context.Context, id string, items []models.UploadResult) ([]models.MediaReference, error)
	DeleteProject(ctx context.Context, id string) error
}

type ProposalService interface {
	UpdateProposal(ctx context.Context, projectID string, content models.ProposalContent) (*models.ProposalContent, error)
	UpsertLineItem(ctx context.Context, projectID string, req dto.LineItemRequest) (models.LineItem, models.PricingSection, error)
	RemoveLineItem(ctx context.Context, projectID, itemID string) (models.PricingSection, error)
	ReorderSections(ctx context.Context, projectID string, sectionIDs []string) ([]string, error)
	AppendStatusChange(ctx context.Context, projectID string, to models.ProjectStatus, note string) (models.ClientProject, error)
	MarkViewed(ctx context.Context, projectID, note string) (models.ClientProject, error)
	Decide(ctx context.Context, projectID string, approve bool, note string) (models.ClientProject, error)
}

type AccessService interface {
	Authenticate(ctx context.Context, entityID, code string) (models.AuthResult, error)
	OpenAccess(ctx context.Context, entityID string) (models.AuthResult, error)
	Resolve(ctx context.Context, token, entityID string) (models.PortalEntity, error)
	View(ctx context.Context, token, entityID string) (models.ClientSafeView, error)
	Logout(ctx context.Context, token string) error
	ToggleFavorite(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error)
	LikeMedia(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error)
	AddComment(ctx context.Context, entity models.PortalEntity, mediaID string, req dto.CommentRequest) (models.MediaReference, error)
}

type DownloadService interface {
	RequestDownload(ctx context.Context, entityID, mediaID string, req models.RequesterContext) (models.DownloadDecision, error)
	StreamDownload(ctx context.Context, entityID, mediaID string, req models.RequesterContext) (models.DownloadDecision, *mediastore.Asset, error)
}

type Routers struct {
	log             *slog.Logger
	GalleryService  GalleryService
	ProjectService  ProjectService
	ProposalService ProposalService
	AccessService   AccessService
	DownloadService DownloadService
	secureCookies   bool

	Now func() time.Time
}

func NewRouter(
	log *slog.Logger,
	galleryService GalleryService,
	projectService ProjectService,
	proposalService ProposalService,
	accessService AccessService,
	downloadService DownloadService,
	secureCookies bool,
) *Routers {
	return &Routers{
		log:             log,
		GalleryService:  galleryService,
		ProjectService:  projectService,
		ProposalService: proposalService,
		AccessService:   accessService,
		DownloadService: downloadService,
		secureCookies:   secureCookies,
		Now:             time.Now,
	}
}

// Health godoc
// @Summary Проверка доступности
// @Tags ops
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "ok"})
}

// adminError переводит ошибку сервиса в ответ админского API
func (r *Routers) adminError(c echo.Context, log *slog.Logger, err error) error {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(strings.Join(verr.Errors, "; ")))
	case errors.Is(err, models.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, models.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, response.ErrConflict.WithDetails(models.ErrInvalidTransition.Error()))
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrAlreadyExists):
		return c.JSON(http.StatusConflict, response.ErrConflict.WithDetails(err.Error()))
	}

	log.Error("request failed", sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.ErrInternal)
}

// clientError переводит ошибку в ответ клиентского портала. Unauthorized и
// NotFound дают одинаковый ответ.
func (r *Routers) clientError(c echo.Context, log *slog.Logger, err error) error {
	var limitErr *download.LimitError

	switch {
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusUnauthorized, response.ErrAccessDenied)
	case errors.Is(err, models.ErrExpired):
		return c.JSON(http.StatusGone, response.ErrExpired)
	case errors.Is(err, models.ErrDownloadsDisabled):
		return c.JSON(http.StatusForbidden, response.ErrDownloadsDisabled)
	case errors.As(err, &limitErr):
		retry := int(math.Ceil(limitErr.ResetAt.Sub(r.Now()).Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		return c.JSON(http.StatusTooManyRequests, response.ErrRateLimited)
	case errors.Is(err, models.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, response.ErrRateLimited)
	case errors.Is(err, models.ErrNotPermitted):
		return c.JSON(http.StatusForbidden, response.ErrNotPermitted)
	case errors.Is(err, models.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrConflict):
		return c.JSON(http.StatusConflict, response.ErrConflict)
	case errors.Is(err, models.ErrUpstreamFetch):
		log.Warn("upstream fetch failed", sl.Err(err))
		return c.JSON(http.StatusBadGateway, response.ErrUpstreamFetch)
	}

	log.Error("request failed", sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.ErrInternal)
}

// grantToken токен из заголовка или из cookie-сессии для entityID
func grantToken(c echo.Context, entityID string) string {
	if token := strings.TrimSpace(c.Request().Header.Get(GrantHeader)); token != "" {
		return token
	}

	sess, err := session.Get(SessionName, c)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[grantKeyPrefix+entityID].(string)

	return token
}

func (r *Routers) saveGrant(c echo.Context, grant models.AccessGrant) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}

	sess.Options.Path = "/"
	sess.Options.HttpOnly = true
	sess.Options.Secure = r.secureCookies
	sess.Options.SameSite = http.SameSiteLaxMode
	sess.Options.MaxAge = int(time.Until(grant.ExpiresAt).Seconds())
	sess.Values[grantKeyPrefix+grant.EntityID] = grant.Token

	return sess.Save(c.Request(), c.Response())
}

func pagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func statusFilter(c echo.Context) []models.ProjectStatus {
	raw := strings.TrimSpace(c.QueryParam("status"))
	if raw == "" {
		return nil
	}

	var out []models.ProjectStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, models.ProjectStatus(s))
		}
	}
	return out
}
