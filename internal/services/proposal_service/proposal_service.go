package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/lib/sanitize"
	"delivery_portal/internal/repository"
	"delivery_portal/internal/transport/http/dto"
)

// ProposalService редактирует содержимое предложения и ведёт статус проекта.
// Каждая операция это одна запись проекта с проверкой версии.
type ProposalService struct {
	log     *slog.Logger
	repo    repository.ProjectRepository
	retries int

	Now func() time.Time
}

func NewProposalService(log *slog.Logger, repo repository.ProjectRepository, retries int) *ProposalService {
	return &ProposalService{
		log:     log,
		repo:    repo,
		retries: retries,
		Now:     time.Now,
	}
}

// UpdateProposal заменяет содержимое предложения целиком
func (s *ProposalService) UpdateProposal(ctx context.Context, projectID string, content models.ProposalContent) (*models.ProposalContent, error) {
	const op = "service.ProposalService.UpdateProposal"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", projectID),
	)

	next := content.Clone()
	next.MapText(sanitize.Text, sanitize.Markdown)
	next.Normalize()

	project, err := repository.MutateProject(ctx, s.repo, projectID, s.retries, s.Now(), func(p *models.ClientProject) error {
		p.Proposal = next.Clone()
		return nil
	})
	if err != nil {
		log.Error("failed to update proposal", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("proposal updated")

	return project.Proposal, nil
}

// UpsertLineItem добавляет или заменяет строку цены и пересчитывает итоги
func (s *ProposalService) UpsertLineItem(ctx context.Context, projectID string, req dto.LineItemRequest) (models.LineItem, models.PricingSection, error) {
	const op = "service.ProposalService.UpsertLineItem"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", projectID),
		slog.String("item_id", req.ID),
	)

	var saved models.LineItem
	project, err := repository.MutateProject(ctx, s.repo, projectID, s.retries, s.Now(), func(p *models.ClientProject) error {
		if p.Proposal == nil {
			p.Proposal = &models.ProposalContent{}
			p.Proposal.Normalize()
		}
		if p.Proposal.Pricing == nil {
			p.Proposal.Pricing = models.NewPricingSection("")
		}

		item, err := p.Proposal.Pricing.UpsertLineItem(models.LineItem{
			ID:          req.ID,
			Description: sanitize.Text(req.Description),
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		})
		if err != nil {
			return err
		}
		saved = item
		return nil
	})
	if err != nil {
		log.Warn("line item rejected", sl.Err(err))
		return models.LineItem{}, models.PricingSection{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("line item saved", slog.String("item_id", saved.ID))

	return saved, *project.Proposal.Pricing, nil
}

func (s *ProposalService) RemoveLineItem(ctx context.Context, projectID, itemID string) (models.PricingSection, error) {
	const op = "service.ProposalService.RemoveLineItem"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", projectID),
		slog.String("item_id", itemID),
	)

	project, err := repository.MutateProject(ctx, s.repo, projectID, s.retries, s.Now(), func(p *models.ClientProject) error {
		if p.Proposal == nil || p.Proposal.Pricing == nil {
			return models.ErrNotFound
		}
		return p.Proposal.Pricing.RemoveLineItem(itemID)
	})
	if err != nil {
		log.Warn("failed to remove line item", sl.Err(err))
		return models.PricingSection{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("line item removed")

	return *project.Proposal.Pricing, nil
}

// ReorderSections возвращает id секций в новом порядке
func (s *ProposalService) ReorderSections(ctx context.Context, projectID string, sectionIDs []string) ([]string, error) {
	const op = "service.ProposalService.ReorderSections"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", projectID),
	)

	project, err := repository.MutateProject(ctx, s.repo, projectID, s.retries, s.Now(), func(p *models.ClientProject) error {
		if p.Proposal == nil {
			return models.ErrNotFound
		}
		return p.Proposal.ReorderSections(sectionIDs)
	})
	if err != nil {
		log.Warn("failed to reorder sections", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return project.Proposal.SectionIDs(), nil
}

// AppendStatusChange переход статуса от имени администратора
func (s *ProposalService) AppendStatusChange(ctx context.Context, projectID string, to models.ProjectStatus, note string) (models.ClientProject, error) {
	const op = "service.ProposalService.AppendStatusChange"

	return s.changeStatus(ctx, op, projectID, to, models.ActorAdmin, note, nil)
}

// MarkViewed отмечает отправленное предложение просмотренным клиентом.
// Повторный вызов для просмотренного проекта ничего не меняет.
func (s *ProposalService) MarkViewed(ctx context.Context, projectID, note string) (models.ClientProject, error) {
	const op = "service.ProposalService.MarkViewed"

	current, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}
	if models.IsExpired(current, s.Now()) {
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, models.ErrExpired)
	}
	if current.Status == models.StatusViewed {
		return current, nil
	}

	return s.changeStatus(ctx, op, projectID, models.StatusViewed, "", note, s.clientGuard(false))
}

// Decide одобрение или отклонение предложения клиентом
func (s *ProposalService) Decide(ctx context.Context, projectID string, approve bool, note string) (models.ClientProject, error) {
	const op = "service.ProposalService.Decide"

	to := models.StatusRejected
	if approve {
		to = models.StatusApproved
	}

	return s.changeStatus(ctx, op, projectID, to, "", note, s.clientGuard(true))
}

// clientGuard проверки для действий клиента; пустой actor заменяется email клиента
func (s *ProposalService) clientGuard(needApproval bool) func(p *models.ClientProject) error {
	return func(p *models.ClientProject) error {
		if models.IsExpired(*p, s.Now()) {
			return models.ErrExpired
		}
		if needApproval && !p.Settings.AllowApproval {
			return models.ErrNotPermitted
		}
		return nil
	}
}

func (s *ProposalService) changeStatus(
	ctx context.Context,
	op string,
	projectID string,
	to models.ProjectStatus,
	actor string,
	note string,
	guard func(p *models.ClientProject) error,
) (models.ClientProject, error) {
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_id", projectID),
		slog.String("to", string(to)),
	)

	now := s.Now()
	note = sanitize.Text(note)

	project, err := repository.MutateProject(ctx, s.repo, projectID, s.retries, now, func(p *models.ClientProject) error {
		if guard != nil {
			if err := guard(p); err != nil {
				return err
			}
		}
		who := actor
		if who == "" {
			who = p.ClientEmail
		}
		return p.AppendStatusChange(to, who, note, now)
	})
	if err != nil {
		log.Warn("status change rejected", sl.Err(err))
		return models.ClientProject{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("status changed")

	return project, nil
}
