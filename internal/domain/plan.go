package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingPlan is a named what-if pricing scenario built from product lines.
type PricingPlan struct {
	ID              string           `json:"id"`
	Name            string           `json:"plan_name"`
	Description     string           `json:"description"`
	CreatedAt       time.Time        `json:"created_at"`
	CampaignID      string           `json:"campaign_id,omitempty"`
	MinProfitMargin *decimal.Decimal `json:"min_profit_margin,omitempty"`
	Products        []ProductLine    `json:"products"`
}

// ProductIndex returns the position of the named product, or -1.
func (p PricingPlan) ProductIndex(name string) int {
	return productIndex(p.Products, name)
}

// PlanSummary aggregates a plan's product lines. Averages are unweighted
// means over the unrounded per-line percentages.
type PlanSummary struct {
	PlanID          string          `json:"plan_id"`
	TotalProducts   int             `json:"total_products"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	AvgProfitMargin decimal.Decimal `json:"avg_profit_margin"`
	AvgDiscount     decimal.Decimal `json:"avg_discount"`
	BelowMinMargin  int             `json:"below_min_margin"`
}

// Summarize computes the plan summary.
func (p PricingPlan) Summarize() PlanSummary {
	s := PlanSummary{PlanID: p.ID, TotalProducts: len(p.Products)}
	var marginSum, discountSum decimal.Decimal
	for _, line := range p.Products {
		s.TotalRevenue = s.TotalRevenue.Add(line.FinalPrice)
		s.TotalCost = s.TotalCost.Add(line.Cost)
		marginSum = marginSum.Add(line.ProfitMarginPct)
		discountSum = discountSum.Add(line.TotalDiscountPct)
		if p.MinProfitMargin != nil && line.ProfitMarginPct.LessThan(*p.MinProfitMargin) {
			s.BelowMinMargin++
		}
	}
	s.TotalProfit = s.TotalRevenue.Sub(s.TotalCost)
	if n := len(p.Products); n > 0 {
		count := decimal.NewFromInt(int64(n))
		s.AvgProfitMargin = marginSum.Div(count)
		s.AvgDiscount = discountSum.Div(count)
	}
	return s
}
