package infrastructure

import (
	"context"
	"errors"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
)

// implements domain.PlanRepository on a JSON collection
type PlanRepository struct {
	collection *Collection[[]planRecord]
	logger     *logger.Logger
}

func NewPlanRepository(store *JSONStore, name string, logger *logger.Logger) *PlanRepository {
	return &PlanRepository{
		collection: NewCollection(store, name, func() []planRecord { return []planRecord{} }),
		logger:     logger,
	}
}

func (r *PlanRepository) List(ctx context.Context) ([]domain.PricingPlan, error) {
	var loaded []planRecord
	err := r.collection.Update(ctx, func(records []planRecord) ([]planRecord, error) {
		loaded = records
		for _, rec := range records {
			if rec.migrated {
				return records, nil
			}
		}
		return nil, errUnchanged
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}
	if err == nil {
		r.logger.WithContext(ctx).WithField("count", len(loaded)).Info("Normalized legacy pricing plans")
	}
	return unwrapPlans(loaded), nil
}

func (r *PlanRepository) Update(ctx context.Context, fn func([]domain.PricingPlan) ([]domain.PricingPlan, error)) error {
	return r.collection.Update(ctx, func(records []planRecord) ([]planRecord, error) {
		next, err := fn(unwrapPlans(records))
		if err != nil {
			return nil, err
		}
		out := make([]planRecord, len(next))
		for i, p := range next {
			out[i] = planRecord{PricingPlan: p}
		}
		return out, nil
	})
}

func unwrapPlans(records []planRecord) []domain.PricingPlan {
	plans := make([]domain.PricingPlan, len(records))
	for i, r := range records {
		plans[i] = r.PricingPlan
	}
	return plans
}
