package http

import (
	"log/slog"
	"net/http"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/transport/http/dto"
	"delivery_portal/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// CreateGallery godoc
// @Summary Создание галереи клиента
// @Description Создаёт галерею с медиа из медиахранилища, настройками и кодом доступа
// @Tags admin-galleries
// @Accept json
// @Produce json
// @Param request body dto.CreateGalleryRequest true "Данные галереи"
// @Success 201 {object} response.Response{data=models.ClientGallery}
// @Failure 400 {object} response.ErrorResponse "Неверные данные"
// @Failure 401 {object} response.ErrorResponse "Нужен токен администратора"
// @Failure 409 {object} response.ErrorResponse "Галерея уже существует"
// @Security ApiKeyAuth
// @Router /api/v1/admin/galleries [post]
func (r *Routers) CreateGallery(c echo.Context) error {
	const op = "http.routers.CreateGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateGalleryRequest

	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	gallery, err := r.GalleryService.CreateGallery(c.Request().Context(), req)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(gallery))
}

// ListGalleries godoc
// @Summary Список галерей
// @Tags admin-galleries
// @Produce json
// @Param page query int false "Страница"
// @Param per_page query int false "Размер страницы (до 100)"
// @Success 200 {object} response.Response{data=dto.ListResponse[models.ClientGallery]}
// @Security ApiKeyAuth
// @Router /api/v1/admin/galleries [get]
func (r *Routers) ListGalleries(c echo.Context) error {
	const op = "http.routers.ListGalleries"

	log := r.log.With(
		slog.String("op", op),
	)

	page, perPage := pagination(c)

	galleries, total, err := r.GalleryService.ListGalleries(c.Request().Context(), page, perPage)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.ListResponse[models.ClientGallery]{
		Items:   galleries,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}))
}

// GetGallery godoc
// @Summary Галерея по id
// @Tags admin-galleries
// @Produce json
// @Param id path string true "ID галереи"
// @Success 200 {object} response.Response{data=models.ClientGallery}
// @Failure 404 {object} response.ErrorResponse "Галерея не найдена"
// @Security ApiKeyAuth
// @Router /api/v1/admin/galleries/{id} [get]
func (r *Routers) GetGallery(c echo.Context) error {
	const op = "http.routers.GetGallery"

	log := r.log.With(
		slog.String("op", op),
		slog.String("gallery_id", c.Param("id")),
	)

	gallery, err := r.GalleryService.GetGallery(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(gallery))
}

// UpdateGallery godoc
// @Summary Обновление галереи
// @Description Частичное обновление: переданные поля заменяются, остальные не меняются
// @Tags admin-galleries
// @Accept json
// @Produce json
// @Param id path string true "ID галереи"
// @Param request body dto.UpdateGalleryRequest true "Изменения"
// @Success 200 {object} response.Response{data=models.ClientGallery}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Параллельное изменение"
// @Security ApiKeyAuth
// @Router /api/v1/admin/galleries/{id}/settings [put]
func (r *Routers) UpdateGallery(c echo.Context) error {
	const op = "http.routers.UpdateGallery"

	log := r.log.With(
		slog.String("op", op),
		slog.String("gallery_id", c.Param("id")),
	)

	var req dto.UpdateGalleryRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	gallery, err := r.GalleryService.UpdateGallery(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(gallery))
}

// AddGalleryMedia godoc
// @Summary Добавление медиа в галерею
// @Tags admin-galleries
// @Accept json
// @Produce json
// @Param id path string true "ID галереи"
// @Param request body dto.AddMediaRequest true "Результаты загрузки"
// @Success 201 {object} response.Response{data=[]models.MediaReference}
// @Security ApiKeyAuth
// @Router /api/v1/admin/galleries/{id}/media [post]
func (r *Routers) AddGalleryMedia(c echo.Context) error {
	const op = "http.routers.AddGalleryMedia"

	log := r.log.With(
		slog.String("op", op),
		slog.String("gallery_id", c.Param("id")),
	)

	var req dto.AddMediaRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	added, err := r.GalleryService.AddGalleryMedia(c.Request().Context(), c.Param("id"), req.Items)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(added))
}

// DeleteGallery godoc
// @Summary Удаление галереи
// @Tags admin-galleries
// @Param id path string true "ID галереи"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/galleries/{id} [delete]
func (r *Routers) DeleteGallery(c echo.Context) error {
	const op = "http.routers.DeleteGallery"

	log := r.log.With(
		slog.String("op", op),
		slog.String("gallery_id", c.Param("id")),
	)

	if err := r.GalleryService.DeleteGallery(c.Request().Context(), c.Param("id")); err != nil {
		return r.adminError(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateProject godoc
// @Summary Создание проекта с предложением
// @Tags admin-projects
// @Accept json
// @Produce json
// @Param request body dto.CreateProjectRequest true "Данные проекта"
// @Success 201 {object} response.Response{data=models.ClientProject}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects [post]
func (r *Routers) CreateProject(c echo.Context) error {
	const op = "http.routers.CreateProject"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateProjectRequest

	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	project, err := r.ProjectService.CreateProject(c.Request().Context(), req)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(project))
}

// ListProjects godoc
// @Summary Список проектов
// @Tags admin-projects
// @Produce json
// @Param status query string false "Статусы через запятую: draft,sent,viewed,approved,rejected,revised"
// @Param page query int false "Страница"
// @Param per_page query int false "Размер страницы (до 100)"
// @Success 200 {object} response.Response{data=dto.ListResponse[models.ClientProject]}
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects [get]
func (r *Routers) ListProjects(c echo.Context) error {
	const op = "http.routers.ListProjects"

	log := r.log.With(
		slog.String("op", op),
	)

	page, perPage := pagination(c)

	projects, total, err := r.ProjectService.ListProjects(c.Request().Context(), statusFilter(c), page, perPage)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.ListResponse[models.ClientProject]{
		Items:   projects,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}))
}

// GetProject godoc
// @Summary Проект по id
// @Tags admin-projects
// @Produce json
// @Param id path string true "ID проекта"
// @Success 200 {object} response.Response{data=models.ClientProject}
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id} [get]
func (r *Routers) GetProject(c echo.Context) error {
	const op = "http.routers.GetProject"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	project, err := r.ProjectService.GetProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(project))
}

func (r *Routers) UpdateProjectSettings(c echo.Context) error {
	const op = "http.routers.UpdateProjectSettings"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var req dto.UpdateProjectSettingsRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	project, err := r.ProjectService.UpdateProjectSettings(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(project))
}

// UpdateProposal godoc
// @Summary Замена содержимого предложения
// @Description Содержимое заменяется целиком; итоги цен и порядок разделов пересчитываются
// @Tags admin-proposals
// @Accept json
// @Produce json
// @Param id path string true "ID проекта"
// @Param request body models.ProposalContent true "Предложение"
// @Success 200 {object} response.Response{data=models.ProposalContent}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id}/proposal [put]
func (r *Routers) UpdateProposal(c echo.Context) error {
	const op = "http.routers.UpdateProposal"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var content models.ProposalContent

	if err := c.Bind(&content); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	proposal, err := r.ProposalService.UpdateProposal(c.Request().Context(), c.Param("id"), content)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(proposal))
}

func (r *Routers) AddProjectMedia(c echo.Context) error {
	const op = "http.routers.AddProjectMedia"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var req dto.AddMediaRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	added, err := r.ProjectService.AddProjectMedia(c.Request().Context(), c.Param("id"), req.Items)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(added))
}

// UpsertLineItem godoc
// @Summary Добавление или изменение строки цены
// @Description Без id строка добавляется, с id заменяется. Возвращает строку и пересчитанный блок цен.
// @Tags admin-proposals
// @Accept json
// @Produce json
// @Param id path string true "ID проекта"
// @Param request body dto.LineItemRequest true "Строка"
// @Success 200 {object} response.Response{data=dto.PricingResponse}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id}/pricing/items [put]
func (r *Routers) UpsertLineItem(c echo.Context) error {
	const op = "http.routers.UpsertLineItem"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var req dto.LineItemRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	item, pricing, err := r.ProposalService.UpsertLineItem(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.PricingResponse{Item: &item, Pricing: &pricing}))
}

// RemoveLineItem godoc
// @Summary Удаление строки цены
// @Tags admin-proposals
// @Produce json
// @Param id path string true "ID проекта"
// @Param item_id path string true "ID строки"
// @Success 200 {object} response.Response{data=dto.PricingResponse}
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id}/pricing/items/{item_id} [delete]
func (r *Routers) RemoveLineItem(c echo.Context) error {
	const op = "http.routers.RemoveLineItem"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
		slog.String("item_id", c.Param("item_id")),
	)

	pricing, err := r.ProposalService.RemoveLineItem(c.Request().Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.PricingResponse{Pricing: &pricing}))
}

// ReorderSections godoc
// @Summary Порядок разделов предложения
// @Description section_ids должен быть перестановкой всех текущих разделов
// @Tags admin-proposals
// @Accept json
// @Produce json
// @Param id path string true "ID проекта"
// @Param request body dto.ReorderSectionsRequest true "Новый порядок"
// @Success 200 {object} response.Response{data=[]string}
// @Failure 400 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id}/sections/order [put]
func (r *Routers) ReorderSections(c echo.Context) error {
	const op = "http.routers.ReorderSections"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var req dto.ReorderSectionsRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	order, err := r.ProposalService.ReorderSections(c.Request().Context(), c.Param("id"), req.SectionIDs)
	if err != nil {
		return r.adminError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(order))
}

// ChangeStatus godoc
// @Summary Смена статуса проекта администратором
// @Tags admin-projects
// @Accept json
// @Produce json
// @Param id path string true "ID проекта"
// @Param request body dto.StatusChangeRequest true "Новый статус"
// @Success 200 {object} response.Response{data=models.ClientProject}
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход"
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id}/status [post]
func (r *Routers) ChangeStatus(c echo.Context) error {
	const op = "http.routers.ChangeStatus"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var req dto.StatusChangeRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat.WithDetails(err.Error()))
	}

	project, err := r.ProposalService.AppendStatusChange(c.Request().Context(), c.Param("id"), req.Status, req.Note)
	if err != nil {
		return r.adminError(c, log, err)
	}

	log.Info("status changed", slog.String("status", string(project.Status)))

	return c.JSON(http.StatusOK, response.SuccessResponse(project))
}

// DeleteProject godoc
// @Summary Удаление проекта
// @Tags admin-projects
// @Param id path string true "ID проекта"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/admin/projects/{id} [delete]
func (r *Routers) DeleteProject(c echo.Context) error {
	const op = "http.routers.DeleteProject"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	if err := r.ProjectService.DeleteProject(c.Request().Context(), c.Param("id")); err != nil {
		return r.adminError(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}
