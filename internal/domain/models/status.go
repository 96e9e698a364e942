package models

import (
	"fmt"
	"time"
)

type ProjectStatus string

const (
	StatusDraft    ProjectStatus = "draft"
	StatusSent     ProjectStatus = "sent"
	StatusViewed   ProjectStatus = "viewed"
	StatusApproved ProjectStatus = "approved"
	StatusRejected ProjectStatus = "rejected"
	StatusRevised  ProjectStatus = "revised"
)

// ActorAdmin автор изменений со стороны администратора
const ActorAdmin = "admin"

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusViewed, StatusApproved, StatusRejected, StatusRevised:
		return true
	}
	return false
}

// CanTransition описывает жизненный цикл предложения.
// Одобрить или отклонить можно только отправленное и просмотренное предложение.
func CanTransition(from, to ProjectStatus) bool {
	switch from {
	case StatusDraft:
		return to == StatusSent
	case StatusSent:
		return to == StatusViewed
	case StatusViewed:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved, StatusRejected:
		return to == StatusRevised
	case StatusRevised:
		return to == StatusSent
	default:
		return false
	}
}

func Transition(from, to ProjectStatus) (ProjectStatus, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// StatusChange запись в истории статусов проекта
type StatusChange struct {
	Status    ProjectStatus `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
	ChangedBy string        `json:"changed_by"`
	Note      string        `json:"note,omitempty"`
}

// AppendStatusChange проверяет переход, дописывает историю и меняет статус.
// При ошибке проект не меняется.
func (p *ClientProject) AppendStatusChange(to ProjectStatus, actor, note string, now time.Time) error {
	if !to.Valid() {
		return invalidf("unknown status '%s'", to)
	}
	if err := validateActor(actor); err != nil {
		return err
	}

	next, err := Transition(p.Status, to)
	if err != nil {
		return err
	}

	p.StatusHistory = append(p.StatusHistory, StatusChange{
		Status:    next,
		ChangedAt: now.UTC(),
		ChangedBy: actor,
		Note:      note,
	})
	p.Status = next
	p.UpdatedAt = now.UTC()

	return nil
}

func validateActor(actor string) error {
	if actor == ActorAdmin {
		return nil
	}
	if err := validate.Var(actor, "required,email"); err != nil {
		return invalidf("actor must be %q or a client email", ActorAdmin)
	}
	return nil
}

// historyConsistent проверяет, что последний элемент истории совпадает с текущим статусом
func historyConsistent(status ProjectStatus, history []StatusChange) bool {
	if len(history) == 0 {
		return false
	}
	return history[len(history)-1].Status == status
}
