package models

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultCurrency = "USD"

// LineItem строка ценового предложения. Total всегда равен Quantity * UnitPrice.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

func (li LineItem) validate() error {
	var errs []string

	if strings.TrimSpace(li.Description) == "" {
		errs = append(errs, "line item description is required")
	}
	if li.Quantity < 0 || math.IsNaN(li.Quantity) || math.IsInf(li.Quantity, 0) {
		errs = append(errs, "line item quantity must be >= 0")
	}
	if li.UnitPrice < 0 || math.IsNaN(li.UnitPrice) || math.IsInf(li.UnitPrice, 0) {
		errs = append(errs, "line item unit price must be >= 0")
	}
	if len(errs) == 0 && !finite(round2(li.Quantity*li.UnitPrice)) {
		errs = append(errs, "line item total is out of range")
	}

	return invalid(errs)
}

// PricingSection ценовой блок предложения.
// Tax и Discount задаются суммой в валюте предложения, не процентом.
type PricingSection struct {
	LineItems []LineItem `json:"line_items"`
	Subtotal  float64    `json:"subtotal"`
	Tax       *float64   `json:"tax,omitempty"`
	Discount  *float64   `json:"discount,omitempty"`
	Total     float64    `json:"total"`
	Currency  string     `json:"currency"`
	Notes     string     `json:"notes,omitempty"`
}

func NewPricingSection(currency string) *PricingSection {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &PricingSection{LineItems: []LineItem{}, Currency: strings.ToUpper(currency)}
}

// Recalculate пересчитывает итоги строк, subtotal и total.
func (p *PricingSection) Recalculate() {
	items := make([]LineItem, len(p.LineItems))
	for i, li := range p.LineItems {
		li.Total = round2(li.Quantity * li.UnitPrice)
		items[i] = li
	}

	subtotal := round2(lo.SumBy(items, func(li LineItem) float64 { return li.Total }))

	total := subtotal
	if p.Tax != nil {
		total += *p.Tax
	}
	if p.Discount != nil {
		total -= *p.Discount
	}

	p.LineItems = items
	p.Subtotal = subtotal
	p.Total = math.Max(0, round2(total))
}

// UpsertLineItem добавляет строку или заменяет строку с тем же id.
// Новое состояние секции собирается целиком и подменяет старое одним присваиванием.
func (p *PricingSection) UpsertLineItem(item LineItem) (LineItem, error) {
	if err := item.validate(); err != nil {
		return LineItem{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Total = round2(item.Quantity * item.UnitPrice)

	next := p.clone()
	if _, idx, ok := lo.FindIndexOf(next.LineItems, func(li LineItem) bool { return li.ID == item.ID }); ok {
		next.LineItems[idx] = item
	} else {
		next.LineItems = append(next.LineItems, item)
	}
	next.Recalculate()
	if !finite(next.Subtotal) || !finite(next.Total) {
		return LineItem{}, invalidf("pricing totals are out of range")
	}

	*p = next

	return item, nil
}

func (p *PricingSection) RemoveLineItem(id string) error {
	if !lo.ContainsBy(p.LineItems, func(li LineItem) bool { return li.ID == id }) {
		return ErrNotFound
	}

	next := p.clone()
	next.LineItems = lo.Reject(next.LineItems, func(li LineItem, _ int) bool { return li.ID == id })
	next.Recalculate()

	*p = next

	return nil
}

// Validate проверяет входные значения и согласованность итогов.
func (p PricingSection) Validate() error {
	var errs []string

	if err := validate.Var(p.Currency, "required,iso4217"); err != nil {
		errs = append(errs, "currency must be an ISO 4217 code")
	}
	if p.Tax != nil && *p.Tax < 0 {
		errs = append(errs, "tax must be >= 0")
	}
	if p.Discount != nil && *p.Discount < 0 {
		errs = append(errs, "discount must be >= 0")
	}

	seen := make(map[string]struct{}, len(p.LineItems))
	for _, li := range p.LineItems {
		errs = collect(errs, li.validate())
		if _, dup := seen[li.ID]; dup || li.ID == "" {
			errs = append(errs, "line item ids must be unique and non-empty")
		}
		seen[li.ID] = struct{}{}
	}
	if len(errs) > 0 {
		return invalid(errs)
	}

	expected := p.clone()
	expected.Recalculate()
	if !finite(expected.Subtotal) || !finite(expected.Total) {
		return invalid([]string{"pricing totals are out of range"})
	}
	if !sameAmount(expected.Subtotal, p.Subtotal) || !sameAmount(expected.Total, p.Total) {
		errs = append(errs, "pricing totals are stale")
	}
	for i := range p.LineItems {
		if !sameAmount(expected.LineItems[i].Total, p.LineItems[i].Total) {
			errs = append(errs, "line item total must equal quantity * unit price")
			break
		}
	}

	return invalid(errs)
}

func (p PricingSection) clone() PricingSection {
	c := p
	c.LineItems = append([]LineItem{}, p.LineItems...)
	if p.Tax != nil {
		t := *p.Tax
		c.Tax = &t
	}
	if p.Discount != nil {
		d := *p.Discount
		c.Discount = &d
	}
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sameAmount(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
