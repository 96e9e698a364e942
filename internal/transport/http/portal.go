package http

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	access "delivery_portal/internal/services/access_service"
	"delivery_portal/internal/transport/http/dto"
	"delivery_portal/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// Authenticate godoc
// @Summary Вход клиента по коду доступа
// @Description Для галерей без пароля код можно не передавать. Токен сохраняется в cookie-сессии и возвращается в ответе.
// @Tags portal
// @Accept json
// @Produce json
// @Param id path string true "ID галереи или проекта"
// @Param request body dto.AuthRequest true "Код доступа"
// @Success 200 {object} response.Response{data=models.AuthResult}
// @Failure 401 {object} response.ErrorResponse "Неверный код или ссылка"
// @Router /api/v1/portal/{id}/auth [post]
func (r *Routers) Authenticate(c echo.Context) error {
	const op = "http.routers.Authenticate"

	log := r.log.With(
		slog.String("op", op),
		slog.String("entity_id", c.Param("id")),
	)

	var req dto.AuthRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	ctx := c.Request().Context()

	var (
		res models.AuthResult
		err error
	)
	if req.AccessCode == "" {
		res, err = r.AccessService.OpenAccess(ctx, c.Param("id"))
	} else {
		res, err = r.AccessService.Authenticate(ctx, c.Param("id"), req.AccessCode)
	}
	if err != nil {
		return r.clientError(c, log, err)
	}

	if err := r.saveGrant(c, res.Grant); err != nil {
		log.Warn("failed to save portal session", sl.Err(err))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(res))
}

func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	log := r.log.With(
		slog.String("op", op),
	)

	token := grantToken(c, c.Param("id"))
	if token == "" {
		return c.NoContent(http.StatusNoContent)
	}

	if err := r.AccessService.Logout(c.Request().Context(), token); err != nil {
		return r.clientError(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// View godoc
// @Summary Клиентское представление галереи или проекта
// @Tags portal
// @Produce json
// @Param id path string true "ID галереи или проекта"
// @Success 200 {object} response.Response{data=models.ClientSafeView}
// @Failure 401 {object} response.ErrorResponse
// @Failure 410 {object} response.ErrorResponse "Срок действия истёк"
// @Router /api/v1/portal/{id} [get]
func (r *Routers) View(c echo.Context) error {
	const op = "http.routers.View"

	log := r.log.With(
		slog.String("op", op),
		slog.String("entity_id", c.Param("id")),
	)

	view, err := r.AccessService.View(c.Request().Context(), grantToken(c, c.Param("id")), c.Param("id"))
	if err != nil {
		return r.clientError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(view))
}

// Download godoc
// @Summary Скачивание медиафайла
// @Description Отдаёт оригинал или превью в зависимости от allow_full_size. С mode=link возвращает решение без потока.
// @Tags portal
// @Produce octet-stream
// @Param id path string true "ID галереи или проекта"
// @Param media_id path string true "ID медиафайла"
// @Param mode query string false "link"
// @Success 200 {file} binary
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Скачивание отключено"
// @Failure 410 {object} response.ErrorResponse "Срок действия истёк"
// @Failure 429 {object} response.ErrorResponse "Лимит скачиваний"
// @Failure 502 {object} response.ErrorResponse "Медиахранилище недоступно"
// @Router /api/v1/portal/{id}/media/{media_id}/download [get]
func (r *Routers) Download(c echo.Context) error {
	const op = "http.routers.Download"

	entityID, mediaID := c.Param("id"), c.Param("media_id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("entity_id", entityID),
		slog.String("media_id", mediaID),
	)

	ctx := c.Request().Context()

	entity, err := r.AccessService.Resolve(ctx, grantToken(c, entityID), entityID)
	if err != nil {
		return r.clientError(c, log, err)
	}

	requester := access.RequesterFor(entity, c.RealIP(), c.Request().UserAgent())

	if c.QueryParam("mode") == "link" {
		decision, err := r.DownloadService.RequestDownload(ctx, entityID, mediaID, requester)
		if err != nil {
			return r.clientError(c, log, err)
		}
		return c.JSON(http.StatusOK, response.SuccessResponse(decision))
	}

	decision, asset, err := r.DownloadService.StreamDownload(ctx, entityID, mediaID, requester)
	if err != nil {
		return r.clientError(c, log, err)
	}
	defer asset.Body.Close()

	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": decision.Filename}))
	if asset.ContentLength > 0 {
		h.Set(echo.HeaderContentLength, strconv.FormatInt(asset.ContentLength, 10))
	}
	if decision.Remaining != nil {
		h.Set("X-Downloads-Remaining", strconv.Itoa(*decision.Remaining))
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	return c.Stream(http.StatusOK, contentType, asset.Body)
}

func (r *Routers) ToggleFavorite(c echo.Context) error {
	return r.mediaAction(c, "http.routers.ToggleFavorite", http.StatusOK, func(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error) {
		return r.AccessService.ToggleFavorite(ctx, entity, mediaID)
	})
}

func (r *Routers) LikeMedia(c echo.Context) error {
	return r.mediaAction(c, "http.routers.LikeMedia", http.StatusOK, func(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error) {
		return r.AccessService.LikeMedia(ctx, entity, mediaID)
	})
}

// AddComment godoc
// @Summary Комментарий клиента к медиафайлу
// @Tags portal
// @Accept json
// @Produce json
// @Param id path string true "ID галереи или проекта"
// @Param media_id path string true "ID медиафайла"
// @Param request body dto.CommentRequest true "Комментарий"
// @Success 201 {object} response.Response{data=models.MediaReference}
// @Failure 403 {object} response.ErrorResponse "Комментарии отключены"
// @Router /api/v1/portal/{id}/media/{media_id}/comments [post]
func (r *Routers) AddComment(c echo.Context) error {
	var req dto.CommentRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	return r.mediaAction(c, "http.routers.AddComment", http.StatusCreated, func(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error) {
		return r.AccessService.AddComment(ctx, entity, mediaID, req)
	})
}

func (r *Routers) mediaAction(
	c echo.Context,
	op string,
	status int,
	action func(ctx context.Context, entity models.PortalEntity, mediaID string) (models.MediaReference, error),
) error {
	entityID, mediaID := c.Param("id"), c.Param("media_id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("entity_id", entityID),
		slog.String("media_id", mediaID),
	)

	ctx := c.Request().Context()

	entity, err := r.AccessService.Resolve(ctx, grantToken(c, entityID), entityID)
	if err != nil {
		return r.clientError(c, log, err)
	}

	media, err := action(ctx, entity, mediaID)
	if err != nil {
		return r.clientError(c, log, err)
	}

	return c.JSON(status, response.SuccessResponse(media))
}

// MarkViewed godoc
// @Summary Клиент открыл предложение
// @Tags portal
// @Produce json
// @Param id path string true "ID проекта"
// @Success 200 {object} response.Response{data=models.ClientSafeView}
// @Router /api/v1/portal/{id}/viewed [post]
func (r *Routers) MarkViewed(c echo.Context) error {
	return r.decision(c, "http.routers.MarkViewed", func(ctx context.Context, id, note string) (models.ClientProject, error) {
		return r.ProposalService.MarkViewed(ctx, id, note)
	})
}

// Approve godoc
// @Summary Клиент одобряет предложение
// @Tags portal
// @Accept json
// @Produce json
// @Param id path string true "ID проекта"
// @Param request body dto.DecisionRequest false "Комментарий"
// @Success 200 {object} response.Response{data=models.ClientSafeView}
// @Failure 403 {object} response.ErrorResponse "Одобрение отключено"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Router /api/v1/portal/{id}/approve [post]
func (r *Routers) Approve(c echo.Context) error {
	return r.decision(c, "http.routers.Approve", func(ctx context.Context, id, note string) (models.ClientProject, error) {
		return r.ProposalService.Decide(ctx, id, true, note)
	})
}

func (r *Routers) Reject(c echo.Context) error {
	return r.decision(c, "http.routers.Reject", func(ctx context.Context, id, note string) (models.ClientProject, error) {
		return r.ProposalService.Decide(ctx, id, false, note)
	})
}

func (r *Routers) decision(
	c echo.Context,
	op string,
	apply func(ctx context.Context, id, note string) (models.ClientProject, error),
) error {
	entityID := c.Param("id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("entity_id", entityID),
	)

	var req dto.DecisionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
		}
		if err := c.Validate(req); err != nil {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
		}
	}

	ctx := c.Request().Context()

	entity, err := r.AccessService.Resolve(ctx, grantToken(c, entityID), entityID)
	if err != nil {
		return r.clientError(c, log, err)
	}
	if entity.Kind() != models.EntityProject {
		return r.clientError(c, log, models.ErrNotFound)
	}

	project, err := apply(ctx, entityID, req.Note)
	if err != nil {
		return r.clientError(c, log, err)
	}

	log.Info("client decision recorded", slog.String("status", string(project.Status)))

	return c.JSON(http.StatusOK, response.SuccessResponse(models.NewClientView(project, r.Now())))
}
