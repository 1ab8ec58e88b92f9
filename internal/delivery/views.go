package delivery

import (
	"campaignledger/internal/domain"

	"github.com/shopspring/decimal"
)

// Response views carry the exact decimals plus a "display" block rounded for
// presentation: amounts to whole units (half to even), percentages to two
// places.

type pricingDisplay struct {
	FinalPrice       decimal.Decimal `json:"final_price"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	ProfitMarginPct  decimal.Decimal `json:"profit_margin_pct"`
	TotalDiscountPct decimal.Decimal `json:"total_discount_pct"`
}

type productView struct {
	domain.ProductLine
	Display pricingDisplay `json:"display"`
}

func newProductView(line domain.ProductLine) productView {
	return productView{
		ProductLine: line,
		Display: pricingDisplay{
			FinalPrice:       domain.DisplayAmount(line.FinalPrice),
			NetProfit:        domain.DisplayAmount(line.NetProfit),
			ProfitMarginPct:  domain.DisplayPercent(line.ProfitMarginPct),
			TotalDiscountPct: domain.DisplayPercent(line.TotalDiscountPct),
		},
	}
}

func newProductViews(lines []domain.ProductLine) []productView {
	out := make([]productView, len(lines))
	for i, line := range lines {
		out[i] = newProductView(line)
	}
	return out
}

type campaignView struct {
	domain.Campaign
	Products []productView `json:"products"`
}

func newCampaignView(c domain.Campaign) campaignView {
	return campaignView{Campaign: c, Products: newProductViews(c.Products)}
}

func newCampaignViews(campaigns []domain.Campaign) []campaignView {
	out := make([]campaignView, len(campaigns))
	for i, c := range campaigns {
		out[i] = newCampaignView(c)
	}
	return out
}

type cardView struct {
	domain.CampaignCard
	Campaign campaignView `json:"campaign"`
}

func newCardView(card *domain.CampaignCard) *cardView {
	if card == nil {
		return nil
	}
	return &cardView{CampaignCard: *card, Campaign: newCampaignView(card.Campaign)}
}

type dashboardView struct {
	domain.Dashboard
	Current  *cardView `json:"current"`
	Upcoming *cardView `json:"upcoming"`
}

func newDashboardView(d *domain.Dashboard) dashboardView {
	return dashboardView{Dashboard: *d, Current: newCardView(d.Current), Upcoming: newCardView(d.Upcoming)}
}

type planView struct {
	domain.PricingPlan
	Products []productView `json:"products"`
}

func newPlanView(p domain.PricingPlan) planView {
	return planView{PricingPlan: p, Products: newProductViews(p.Products)}
}

func newPlanViews(plans []domain.PricingPlan) []planView {
	out := make([]planView, len(plans))
	for i, p := range plans {
		out[i] = newPlanView(p)
	}
	return out
}

type planSummaryDisplay struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	AvgProfitMargin decimal.Decimal `json:"avg_profit_margin"`
	AvgDiscount     decimal.Decimal `json:"avg_discount"`
}

type planSummaryView struct {
	domain.PlanSummary
	Display planSummaryDisplay `json:"display"`
}

func newPlanSummaryView(s *domain.PlanSummary) planSummaryView {
	return planSummaryView{
		PlanSummary: *s,
		Display: planSummaryDisplay{
			TotalRevenue:    domain.DisplayAmount(s.TotalRevenue),
			TotalCost:       domain.DisplayAmount(s.TotalCost),
			TotalProfit:     domain.DisplayAmount(s.TotalProfit),
			AvgProfitMargin: domain.DisplayPercent(s.AvgProfitMargin),
			AvgDiscount:     domain.DisplayPercent(s.AvgDiscount),
		},
	}
}

type summaryDisplay struct {
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	ROIPct          decimal.Decimal `json:"roi_pct"`
	ProfitMarginPct decimal.Decimal `json:"profit_margin_pct"`
}

func newSummaryDisplay(s domain.Summary) summaryDisplay {
	return summaryDisplay{
		TotalExpenses:   domain.DisplayAmount(s.TotalExpenses),
		TotalRevenue:    domain.DisplayAmount(s.TotalRevenue),
		NetProfit:       domain.DisplayAmount(s.NetProfit),
		ROIPct:          domain.DisplayPercent(s.ROIPct),
		ProfitMarginPct: domain.DisplayPercent(s.ProfitMarginPct),
	}
}

type summaryView struct {
	domain.Summary
	Display summaryDisplay `json:"display"`
}

func newSummaryView(s *domain.Summary) summaryView {
	return summaryView{Summary: *s, Display: newSummaryDisplay(*s)}
}

type totalSummaryDisplay struct {
	summaryDisplay
	AvgRevenuePerMonth decimal.Decimal `json:"avg_revenue_per_month"`
}

type totalSummaryView struct {
	domain.TotalSummary
	Display totalSummaryDisplay `json:"display"`
}

func newTotalSummaryView(s *domain.TotalSummary) totalSummaryView {
	return totalSummaryView{
		TotalSummary: *s,
		Display: totalSummaryDisplay{
			summaryDisplay:     newSummaryDisplay(s.Summary),
			AvgRevenuePerMonth: domain.DisplayAmount(s.AvgRevenuePerMonth),
		},
	}
}
