package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignStateOn(t *testing.T) {
	c := Campaign{
		StartDate: NewDate(2025, time.March, 1),
		EndDate:   NewDate(2025, time.March, 30),
	}

	assert.Equal(t, CampaignUpcoming, c.StateOn(NewDate(2025, time.February, 28)))
	assert.Equal(t, CampaignCurrent, c.StateOn(NewDate(2025, time.March, 1)))
	assert.Equal(t, CampaignCurrent, c.StateOn(NewDate(2025, time.March, 30)))
	assert.Equal(t, CampaignEnded, c.StateOn(NewDate(2025, time.March, 31)))

	c.Deleted = true
	assert.Equal(t, CampaignTrashed, c.StateOn(NewDate(2025, time.March, 15)))
}

func TestNewCampaignCard(t *testing.T) {
	c := Campaign{
		StartDate: NewDate(2025, time.March, 1),
		EndDate:   NewDate(2025, time.March, 30),
	}

	current := NewCampaignCard(c, NewDate(2025, time.March, 15))
	assert.Equal(t, 15, current.DaysRemaining)
	assert.Zero(t, current.DaysUntilStart)

	upcoming := NewCampaignCard(c, NewDate(2025, time.February, 20))
	assert.Equal(t, 9, upcoming.DaysUntilStart)
	assert.Equal(t, CampaignUpcoming, upcoming.State)
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-09-01"`), &d))
	assert.Equal(t, NewDate(2025, time.September, 1), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-09-01"`, string(out))

	err = json.Unmarshal([]byte(`"01/09/2025"`), &d)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSummarizeMonth(t *testing.T) {
	m := Month{
		Name: "2025-09",
		Expenses: []Expense{
			{Type: "ads", Value: dec("1000")},
		},
		Revenues: []Revenue{
			{Type: "store", Value: dec("1500"), ROI: dec("1.5"), Orders: 20},
		},
	}

	s := m.Summarize()
	assert.True(t, s.TotalExpenses.Equal(dec("1000")))
	assert.True(t, s.TotalRevenue.Equal(dec("1500")))
	assert.True(t, s.NetProfit.Equal(dec("500")))
	assert.True(t, s.ROIPct.Equal(dec("50")), "roi %s", s.ROIPct)
	assert.Equal(t, "33.33", s.ProfitMarginPct.StringFixed(2))
	assert.Equal(t, 20, s.TotalOrders)
}

func TestSummarizeWithoutExpensesOrRevenue(t *testing.T) {
	s := Summarize(nil, []Revenue{{Type: "store", Value: dec("200")}})
	assert.True(t, s.ROIPct.IsZero())
	assert.True(t, s.NetProfit.Equal(dec("200")))

	s = Summarize([]Expense{{Type: "ads", Value: dec("50")}}, nil)
	assert.True(t, s.ProfitMarginPct.IsZero())
	assert.True(t, s.ROIPct.Equal(dec("-100")))

	s = Summarize(nil, nil)
	assert.True(t, s.NetProfit.IsZero())
}

func TestValidateLineItems(t *testing.T) {
	assert.NoError(t, ValidateExpense("ads", dec("0")))
	assert.True(t, errors.Is(ValidateExpense("", dec("1")), ErrValidation))
	assert.True(t, errors.Is(ValidateExpense("ads", dec("-1")), ErrValidation))

	assert.NoError(t, ValidateRevenue("store", dec("10"), dec("1.5"), 3))
	assert.True(t, errors.Is(ValidateRevenue("store", dec("10"), dec("-1"), 3), ErrValidation))
	assert.True(t, errors.Is(ValidateRevenue("store", dec("10"), dec("1"), -1), ErrValidation))
}

func TestPlanSummarize(t *testing.T) {
	addedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := NewProductLine(ProductSpec{Name: "a", BasePrice: dec("100"), DiscountMode: DiscountPercentage, DiscountValue: dec("30"), Cost: dec("50")}, addedAt)
	require.NoError(t, err)
	b, err := NewProductLine(ProductSpec{Name: "b", BasePrice: dec("100"), DiscountMode: DiscountFixedAmount, DiscountValue: dec("40"), Cost: dec("50")}, addedAt)
	require.NoError(t, err)

	minMargin := dec("20")
	plan := PricingPlan{ID: "p1", MinProfitMargin: &minMargin, Products: []ProductLine{a, b}}
	s := plan.Summarize()

	assert.Equal(t, 2, s.TotalProducts)
	assert.True(t, s.TotalRevenue.Equal(dec("130")))
	assert.True(t, s.TotalCost.Equal(dec("100")))
	assert.True(t, s.TotalProfit.Equal(dec("30")))
	assert.Equal(t, "22.62", s.AvgProfitMargin.StringFixed(2))
	assert.True(t, s.AvgDiscount.Equal(dec("35")))
	assert.Equal(t, 1, s.BelowMinMargin)

	empty := PricingPlan{ID: "p2"}.Summarize()
	assert.Zero(t, empty.TotalProducts)
	assert.True(t, empty.AvgProfitMargin.IsZero())
}

func TestCatalogEntry(t *testing.T) {
	e := CatalogEntry{
		Name:          "Rose Serum",
		BasePrice:     dec("200"),
		AfterDiscount: dec("160"),
		AfterCode:     dec("150"),
	}

	assert.True(t, e.DefaultCost().Equal(dec("75")))
	assert.True(t, e.TotalDiscountPercent().Equal(dec("25")))

	spec := e.ProductSpec(nil)
	assert.Equal(t, DiscountPercentage, spec.DiscountMode)
	assert.True(t, spec.Cost.Equal(dec("75")))

	p, err := ComputePricing(spec.BasePrice, spec.DiscountMode, spec.DiscountValue, spec.Cost)
	require.NoError(t, err)
	assert.True(t, p.FinalPrice.Equal(dec("150")))

	cost := decimal.NewFromInt(90)
	assert.True(t, e.ProductSpec(&cost).Cost.Equal(cost))

	assert.True(t, CatalogEntry{}.TotalDiscountPercent().IsZero())
}
