package domain

import (
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID      string          `json:"id" db:"id"`
	MonthID string          `json:"month_id" db:"month_id"`
	Type    string          `json:"type" db:"expense_type"`
	Value   decimal.Decimal `json:"value" db:"value"`
}

type Revenue struct {
	ID      string          `json:"id" db:"id"`
	MonthID string          `json:"month_id" db:"month_id"`
	Type    string          `json:"type" db:"revenue_type"`
	Value   decimal.Decimal `json:"value" db:"value"`
	ROI     decimal.Decimal `json:"roi" db:"roi"`
	Orders  int             `json:"orders" db:"orders"`
}

// Month is one reporting period of the revenue ledger.
type Month struct {
	ID          string    `json:"id"`
	Name        string    `json:"month_name"`
	Year        int       `json:"year"`
	MonthNumber int       `json:"month_number"`
	LastUpdate  Date      `json:"last_update"`
	Expenses    []Expense `json:"expenses"`
	Revenues    []Revenue `json:"revenues"`
}

// Summary aggregates the line items of one or more months.
type Summary struct {
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	ROIPct          decimal.Decimal `json:"roi_pct"`
	ProfitMarginPct decimal.Decimal `json:"profit_margin_pct"`
	TotalOrders     int             `json:"total_orders"`
}

// TotalSummary is the summary over every month in the ledger.
type TotalSummary struct {
	Summary
	MonthsCount        int             `json:"months_count"`
	AvgRevenuePerMonth decimal.Decimal `json:"avg_revenue_per_month"`
}

// TrendPoint is one month on the chronological chart.
type TrendPoint struct {
	MonthID     string          `json:"month_id"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
	MonthNumber int             `json:"month_number"`
	Expenses    decimal.Decimal `json:"expenses"`
	Revenues    decimal.Decimal `json:"revenues"`
	Profit      decimal.Decimal `json:"profit"`
}

// ChannelROI aggregates revenue entries sharing a type.
type ChannelROI struct {
	AvgROI       decimal.Decimal `json:"avg_roi"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalOrders  int             `json:"total_orders"`
	Entries      int             `json:"entries"`
}

// TypeTotal is a sum of line items grouped by type. Orders is only counted
// for revenues.
type TypeTotal struct {
	Type   string          `json:"type"`
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders,omitempty"`
}

// Summarize aggregates the month's line items.
func (m Month) Summarize() Summary {
	return Summarize(m.Expenses, m.Revenues)
}

// Summarize aggregates arbitrary expense and revenue items. ROI is zero when
// there are no expenses and margin is zero when there is no revenue.
func Summarize(expenses []Expense, revenues []Revenue) Summary {
	var s Summary
	for _, e := range expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Value)
	}
	for _, r := range revenues {
		s.TotalRevenue = s.TotalRevenue.Add(r.Value)
		s.TotalOrders += r.Orders
	}
	s.NetProfit = s.TotalRevenue.Sub(s.TotalExpenses)
	if s.TotalExpenses.IsPositive() {
		s.ROIPct = s.NetProfit.Div(s.TotalExpenses).Mul(hundred)
	}
	if s.TotalRevenue.IsPositive() {
		s.ProfitMarginPct = s.NetProfit.Div(s.TotalRevenue).Mul(hundred)
	}
	return s
}

// ValidateExpense checks caller input for an expense line.
func ValidateExpense(expenseType string, value decimal.Decimal) error {
	if expenseType == "" {
		return Validationf("expense type is required")
	}
	if value.IsNegative() {
		return Validationf("expense value must not be negative")
	}
	return nil
}

// ValidateRevenue checks caller input for a revenue line.
func ValidateRevenue(revenueType string, value, roi decimal.Decimal, orders int) error {
	if revenueType == "" {
		return Validationf("revenue type is required")
	}
	if value.IsNegative() {
		return Validationf("revenue value must not be negative")
	}
	if roi.IsNegative() {
		return Validationf("roi must not be negative")
	}
	if orders < 0 {
		return Validationf("orders must not be negative")
	}
	return nil
}
