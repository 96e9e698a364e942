package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Фиксированные id встроенных текстовых секций
const (
	SectionCoverLetter = "cover_letter"
	SectionScopeOfWork = "scope_of_work"
	SectionTerms       = "terms"
)

// RichTextBlock озаглавленный markdown-блок предложения
type RichTextBlock struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

type SectionType string

const (
	SectionText         SectionType = "text"
	SectionMediaGallery SectionType = "media-gallery"
	SectionChecklist    SectionType = "checklist"
)

type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// CustomSection произвольная секция. Attributes открытый словарь строк,
// типизированные данные хранятся в явных полях.
type CustomSection struct {
	ID         string            `json:"id"`
	Type       SectionType       `json:"type"`
	Title      string            `json:"title"`
	Content    string            `json:"content,omitempty"`
	Order      int               `json:"order"`
	MediaIDs   []string          `json:"media_ids,omitempty"`
	Items      []ChecklistItem   `json:"items,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type DeliverableStatus string

const (
	DeliverablePending    DeliverableStatus = "pending"
	DeliverableInProgress DeliverableStatus = "in-progress"
	DeliverableCompleted  DeliverableStatus = "completed"
	DeliverableDelivered  DeliverableStatus = "delivered"
)

type DeliverableItem struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Status      DeliverableStatus `json:"status"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	MediaIDs    []string          `json:"media_ids,omitempty"`
}

type TimelineStatus string

const (
	TimelineUpcoming  TimelineStatus = "upcoming"
	TimelineActive    TimelineStatus = "active"
	TimelineCompleted TimelineStatus = "completed"
)

// TimelineItem этап проекта. Статус выставляет администратор, по датам он не вычисляется.
type TimelineItem struct {
	ID          string         `json:"id"`
	Phase       string         `json:"phase"`
	Description string         `json:"description"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Status      TimelineStatus `json:"status"`
}

// ProposalContent структурированное коммерческое предложение
type ProposalContent struct {
	CoverLetter    *RichTextBlock    `json:"cover_letter,omitempty"`
	ScopeOfWork    *RichTextBlock    `json:"scope_of_work,omitempty"`
	Deliverables   []DeliverableItem `json:"deliverables"`
	Pricing        *PricingSection   `json:"pricing,omitempty"`
	Timeline       []TimelineItem    `json:"timeline"`
	Terms          *RichTextBlock    `json:"terms,omitempty"`
	CustomSections []CustomSection   `json:"custom_sections"`
}

// sectionRef указатель на поле order секции
type sectionRef struct {
	id    string
	order *int
}

// sections возвращает все упорядочиваемые секции в текущем порядке
func (c *ProposalContent) sections() []sectionRef {
	var refs []sectionRef

	if c.CoverLetter != nil {
		c.CoverLetter.ID = SectionCoverLetter
		refs = append(refs, sectionRef{id: SectionCoverLetter, order: &c.CoverLetter.Order})
	}
	if c.ScopeOfWork != nil {
		c.ScopeOfWork.ID = SectionScopeOfWork
		refs = append(refs, sectionRef{id: SectionScopeOfWork, order: &c.ScopeOfWork.Order})
	}
	if c.Terms != nil {
		c.Terms.ID = SectionTerms
		refs = append(refs, sectionRef{id: SectionTerms, order: &c.Terms.Order})
	}
	for i := range c.CustomSections {
		refs = append(refs, sectionRef{id: c.CustomSections[i].ID, order: &c.CustomSections[i].Order})
	}

	sort.SliceStable(refs, func(i, j int) bool { return *refs[i].order < *refs[j].order })

	return refs
}

// SectionIDs id секций в порядке отображения
func (c *ProposalContent) SectionIDs() []string {
	return lo.Map(c.sections(), func(r sectionRef, _ int) string { return r.id })
}

// ReorderSections назначает order по переданной последовательности.
// orderedIDs должен быть перестановкой всех существующих секций.
func (c *ProposalContent) ReorderSections(orderedIDs []string) error {
	refs := c.sections()

	if len(orderedIDs) != len(refs) {
		return invalidf("expected %d section ids, got %d", len(refs), len(orderedIDs))
	}
	if len(lo.Uniq(orderedIDs)) != len(orderedIDs) {
		return invalidf("duplicate section ids")
	}

	byID := lo.KeyBy(refs, func(r sectionRef) string { return r.id })
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return invalidf("unknown section id '%s'", id)
		}
	}

	for i, id := range orderedIDs {
		*byID[id].order = i
	}

	return nil
}

// AssignDefaultOrder нумерует секции в каноническом порядке, если порядок ещё не задан.
func (c *ProposalContent) AssignDefaultOrder() {
	refs := c.sections()
	if len(refs) < 2 {
		for _, r := range refs {
			*r.order = 0
		}
		return
	}
	if lo.SomeBy(refs, func(r sectionRef) bool { return *r.order != 0 }) {
		return
	}
	for i, r := range refs {
		*r.order = i
	}
}

func (c *ProposalContent) checkSectionOrder() []string {
	var errs []string

	refs := c.sections()
	ids := lo.Map(refs, func(r sectionRef, _ int) string { return r.id })
	if lo.SomeBy(ids, func(id string) bool { return strings.TrimSpace(id) == "" }) {
		errs = append(errs, "custom section id is required")
	}
	if len(lo.Uniq(ids)) != len(ids) {
		errs = append(errs, "section ids must be unique")
	}
	for i, r := range refs {
		if *r.order != i {
			errs = append(errs, "section order must be a dense zero-based sequence")
			break
		}
	}

	return errs
}

// Validate проверяет содержимое предложения. media список медиа проекта,
// на которые могут ссылаться результаты работ и медиасекции.
func (c *ProposalContent) Validate(media []MediaReference) error {
	var errs []string

	known := lo.SliceToMap(media, func(m MediaReference) (string, struct{}) { return m.ID, struct{}{} })
	checkRefs := func(owner string, ids []string) {
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				errs = append(errs, owner+" references unknown media '"+id+"'")
			}
		}
	}

	for _, d := range c.Deliverables {
		if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Name) == "" {
			errs = append(errs, "deliverable id and name are required")
		}
		switch d.Status {
		case DeliverablePending, DeliverableInProgress, DeliverableCompleted, DeliverableDelivered:
		default:
			errs = append(errs, "invalid deliverable status '"+string(d.Status)+"'")
		}
		checkRefs("deliverable "+d.ID, d.MediaIDs)
	}

	for _, t := range c.Timeline {
		if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Phase) == "" {
			errs = append(errs, "timeline item id and phase are required")
		}
		switch t.Status {
		case TimelineUpcoming, TimelineActive, TimelineCompleted:
		default:
			errs = append(errs, "invalid timeline status '"+string(t.Status)+"'")
		}
		if t.EndDate.Before(t.StartDate) {
			errs = append(errs, "timeline item "+t.ID+" ends before it starts")
		}
	}

	for _, s := range c.CustomSections {
		switch s.Type {
		case SectionText, SectionMediaGallery, SectionChecklist:
		default:
			errs = append(errs, "invalid custom section type '"+string(s.Type)+"'")
		}
		checkRefs("section "+s.ID, s.MediaIDs)
	}

	if c.Pricing != nil {
		errs = collect(errs, c.Pricing.Validate())
	}

	errs = append(errs, c.checkSectionOrder()...)

	return invalid(errs)
}

// Normalize достраивает производные поля перед записью: id элементов,
// итоги цен, порядок секций и пустые списки вместо nil.
func (c *ProposalContent) Normalize() {
	if c.Deliverables == nil {
		c.Deliverables = []DeliverableItem{}
	}
	if c.Timeline == nil {
		c.Timeline = []TimelineItem{}
	}
	if c.CustomSections == nil {
		c.CustomSections = []CustomSection{}
	}

	for i := range c.Deliverables {
		if c.Deliverables[i].ID == "" {
			c.Deliverables[i].ID = uuid.NewString()
		}
		if c.Deliverables[i].Status == "" {
			c.Deliverables[i].Status = DeliverablePending
		}
	}
	for i := range c.Timeline {
		if c.Timeline[i].ID == "" {
			c.Timeline[i].ID = uuid.NewString()
		}
		if c.Timeline[i].Status == "" {
			c.Timeline[i].Status = TimelineUpcoming
		}
	}
	for i := range c.CustomSections {
		if c.CustomSections[i].ID == "" {
			c.CustomSections[i].ID = uuid.NewString()
		}
	}

	if c.Pricing != nil {
		if c.Pricing.Currency == "" {
			c.Pricing.Currency = DefaultCurrency
		}
		c.Pricing.Currency = strings.ToUpper(c.Pricing.Currency)
		if c.Pricing.LineItems == nil {
			c.Pricing.LineItems = []LineItem{}
		}
		for i := range c.Pricing.LineItems {
			if c.Pricing.LineItems[i].ID == "" {
				c.Pricing.LineItems[i].ID = uuid.NewString()
			}
		}
		c.Pricing.Recalculate()
	}

	c.AssignDefaultOrder()
}

// MapText применяет text к заголовкам и коротким полям, markdown к содержимому блоков
func (c *ProposalContent) MapText(text, markdown func(string) string) {
	for _, b := range []*RichTextBlock{c.CoverLetter, c.ScopeOfWork, c.Terms} {
		if b == nil {
			continue
		}
		b.Title = text(b.Title)
		b.Content = markdown(b.Content)
	}
	for i := range c.Deliverables {
		c.Deliverables[i].Name = text(c.Deliverables[i].Name)
		c.Deliverables[i].Description = markdown(c.Deliverables[i].Description)
	}
	for i := range c.Timeline {
		c.Timeline[i].Phase = text(c.Timeline[i].Phase)
		c.Timeline[i].Description = markdown(c.Timeline[i].Description)
	}
	for i := range c.CustomSections {
		s := &c.CustomSections[i]
		s.Title = text(s.Title)
		s.Content = markdown(s.Content)
		for j := range s.Items {
			s.Items[j].Text = text(s.Items[j].Text)
		}
		for k, v := range s.Attributes {
			s.Attributes[k] = text(v)
		}
	}
	if c.Pricing != nil {
		c.Pricing.Notes = markdown(c.Pricing.Notes)
		for i := range c.Pricing.LineItems {
			c.Pricing.LineItems[i].Description = text(c.Pricing.LineItems[i].Description)
		}
	}
}

// Clone глубокая копия
func (c *ProposalContent) Clone() *ProposalContent {
	if c == nil {
		return nil
	}

	out := &ProposalContent{
		CoverLetter:    cloneBlock(c.CoverLetter),
		ScopeOfWork:    cloneBlock(c.ScopeOfWork),
		Terms:          cloneBlock(c.Terms),
		Deliverables:   make([]DeliverableItem, 0, len(c.Deliverables)),
		Timeline:       append([]TimelineItem{}, c.Timeline...),
		CustomSections: make([]CustomSection, 0, len(c.CustomSections)),
	}

	for _, d := range c.Deliverables {
		d.MediaIDs = append([]string(nil), d.MediaIDs...)
		if d.DueDate != nil {
			t := *d.DueDate
			d.DueDate = &t
		}
		out.Deliverables = append(out.Deliverables, d)
	}
	for _, s := range c.CustomSections {
		s.MediaIDs = append([]string(nil), s.MediaIDs...)
		s.Items = append([]ChecklistItem(nil), s.Items...)
		if s.Attributes != nil {
			attrs := make(map[string]string, len(s.Attributes))
			for k, v := range s.Attributes {
				attrs[k] = v
			}
			s.Attributes = attrs
		}
		out.CustomSections = append(out.CustomSections, s)
	}
	if c.Pricing != nil {
		p := c.Pricing.clone()
		out.Pricing = &p
	}

	return out
}

func cloneBlock(b *RichTextBlock) *RichTextBlock {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
