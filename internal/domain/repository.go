package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// interface for campaign persistence. Update runs fn as one read-modify-write
// of the whole collection; returning an error leaves storage untouched.
type CampaignRepository interface {
	List(ctx context.Context) ([]Campaign, error)
	Update(ctx context.Context, fn func(campaigns []Campaign) ([]Campaign, error)) error
}

// interface for pricing plan persistence, same contract as CampaignRepository
type PlanRepository interface {
	List(ctx context.Context) ([]PricingPlan, error)
	Update(ctx context.Context, fn func(plans []PricingPlan) ([]PricingPlan, error)) error
}

// interface for the read-only product catalog
type CatalogRepository interface {
	List(ctx context.Context) ([]CatalogEntry, error)
}

// interface for revenue ledger storage. Every write refreshes the parent
// month's last_update to today.
type RevenueRepository interface {
	CreateMonth(ctx context.Context, month *Month) error
	GetMonth(ctx context.Context, id string) (*Month, error)
	ListMonths(ctx context.Context) ([]Month, error)

	AddExpense(ctx context.Context, expense *Expense, today Date) error
	UpdateExpense(ctx context.Context, id string, value decimal.Decimal, today Date) (*Expense, error)
	DeleteExpense(ctx context.Context, id string, today Date) (*Expense, error)

	AddRevenue(ctx context.Context, revenue *Revenue, today Date) error
	UpdateRevenue(ctx context.Context, id string, value, roi decimal.Decimal, orders int, today Date) (*Revenue, error)
	DeleteRevenue(ctx context.Context, id string, today Date) (*Revenue, error)

	ExpensesByType(ctx context.Context) ([]TypeTotal, error)
	RevenuesByType(ctx context.Context) ([]TypeTotal, error)
}

// interface for binary assets referenced by path from ledger records
type AssetStore interface {
	// Delete removes the asset. A missing asset is not an error.
	Delete(ctx context.Context, path string) error
}

// interface for cached report values
type SummaryCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}
