package models

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func assertPricingConsistent(t *testing.T, p PricingSection) {
	t.Helper()

	var sum float64
	for _, li := range p.LineItems {
		assert.InDelta(t, round2(li.Quantity*li.UnitPrice), li.Total, 0.001, "item %s", li.ID)
		sum += li.Total
	}
	assert.InDelta(t, sum, p.Subtotal, 0.005)
	require.NoError(t, p.Validate())
}

func TestPricingSection_UpsertLineItem(t *testing.T) {
	tests := []struct {
		name      string
		item      LineItem
		wantError bool
	}{
		{
			name: "valid item",
			item: LineItem{Description: "Wedding coverage", Quantity: 8, UnitPrice: 150},
		},
		{
			name: "zero quantity allowed",
			item: LineItem{Description: "Travel", Quantity: 0, UnitPrice: 40},
		},
		{
			name:      "negative quantity",
			item:      LineItem{Description: "Prints", Quantity: -1, UnitPrice: 10},
			wantError: true,
		},
		{
			name:      "negative unit price",
			item:      LineItem{Description: "Album", Quantity: 1, UnitPrice: -5},
			wantError: true,
		},
		{
			name:      "missing description",
			item:      LineItem{Quantity: 1, UnitPrice: 5},
			wantError: true,
		},
		{
			name:      "total overflows",
			item:      LineItem{Description: "Licensing", Quantity: 1e200, UnitPrice: 1e200},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPricingSection("usd")

			saved, err := p.UpsertLineItem(tt.item)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Empty(t, p.LineItems)
				assert.Zero(t, p.Subtotal)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, saved.ID)
			assert.Equal(t, tt.item.Quantity*tt.item.UnitPrice, saved.Total)
			assert.Equal(t, "USD", p.Currency)
			assertPricingConsistent(t, *p)
		})
	}
}

func TestPricingSection_OutOfRange(t *testing.T) {
	li := LineItem{Description: "Licensing", Quantity: 1e200, UnitPrice: 1e200}
	err := li.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line item total is out of range")
	assert.NotContains(t, err.Error(), "stale")

	p := NewPricingSection("usd")
	_, err = p.UpsertLineItem(LineItem{Description: "Buyout", Quantity: 1, UnitPrice: 1.5e306})
	require.NoError(t, err)

	_, err = p.UpsertLineItem(LineItem{Description: "Second buyout", Quantity: 1, UnitPrice: 1.5e306})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "pricing totals are out of range")
	assert.Len(t, p.LineItems, 1)
	assert.InEpsilon(t, 1.5e306, p.Subtotal, 1e-9)
}

func TestPricingSection_ReplaceAndRemove(t *testing.T) {
	p := NewPricingSection("")
	p.Tax = ptr(20.0)
	p.Discount = ptr(50.0)

	a, err := p.UpsertLineItem(LineItem{Description: "Shoot", Quantity: 2, UnitPrice: 300})
	require.NoError(t, err)
	_, err = p.UpsertLineItem(LineItem{Description: "Editing", Quantity: 5, UnitPrice: 40})
	require.NoError(t, err)

	assert.Equal(t, 800.0, p.Subtotal)
	assert.Equal(t, 770.0, p.Total)

	a.Quantity = 3
	_, err = p.UpsertLineItem(a)
	require.NoError(t, err)
	assert.Len(t, p.LineItems, 2)
	assert.Equal(t, 1100.0, p.Subtotal)
	assert.Equal(t, 1070.0, p.Total)

	require.NoError(t, p.RemoveLineItem(a.ID))
	assert.Len(t, p.LineItems, 1)
	assert.Equal(t, 200.0, p.Subtotal)
	assert.Equal(t, 170.0, p.Total)

	assert.ErrorIs(t, p.RemoveLineItem("missing"), ErrNotFound)
}

func TestPricingSection_TotalNeverNegative(t *testing.T) {
	p := NewPricingSection("EUR")
	p.Discount = ptr(1000.0)

	_, err := p.UpsertLineItem(LineItem{Description: "Consult", Quantity: 1, UnitPrice: 100})
	require.NoError(t, err)

	assert.Equal(t, 100.0, p.Subtotal)
	assert.Equal(t, 0.0, p.Total)
}

func TestPricingSection_RandomSequencesStayConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		p := NewPricingSection("USD")
		var ids []string

		for step := 0; step < 40; step++ {
			switch op := rng.Intn(3); {
			case op == 0 && len(ids) > 0:
				idx := rng.Intn(len(ids))
				require.NoError(t, p.RemoveLineItem(ids[idx]))
				ids = append(ids[:idx], ids[idx+1:]...)
			case op == 1 && len(ids) > 0:
				_, err := p.UpsertLineItem(LineItem{
					ID:          ids[rng.Intn(len(ids))],
					Description: "updated",
					Quantity:    float64(rng.Intn(20)),
					UnitPrice:   float64(rng.Intn(100000)) / 100,
				})
				require.NoError(t, err)
			default:
				item, err := p.UpsertLineItem(LineItem{
					Description: "item " + strconv.Itoa(step),
					Quantity:    float64(rng.Intn(10)) + 0.5,
					UnitPrice:   float64(rng.Intn(50000)) / 100,
				})
				require.NoError(t, err)
				ids = append(ids, item.ID)
			}

			assertPricingConsistent(t, *p)
		}
	}
}

func TestPricingSection_ValidateDetectsStaleTotals(t *testing.T) {
	p := PricingSection{
		Currency: "USD",
		LineItems: []LineItem{
			{ID: "a", Description: "x", Quantity: 2, UnitPrice: 10, Total: 20},
		},
		Subtotal: 15,
		Total:    15,
	}

	assert.ErrorIs(t, p.Validate(), ErrInvalidInput)

	p.Recalculate()
	assert.NoError(t, p.Validate())
}
