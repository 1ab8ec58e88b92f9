package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const pricingLedger = "pricing"

// PricingService manages named pricing plans.
type PricingService struct {
	repo    domain.PlanRepository
	catalog *CatalogService
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPricingService(
	repo domain.PlanRepository,
	catalog *CatalogService,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *PricingService {
	return &PricingService{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *PricingService) WithClock(now func() time.Time) *PricingService {
	s.now = now
	return s
}

// CreatePlanInput carries the optional fields of a new plan.
type CreatePlanInput struct {
	Name            string
	Description     string
	CampaignID      string
	MinProfitMargin *decimal.Decimal
}

func (s *PricingService) CreatePlan(ctx context.Context, in CreatePlanInput) (plan *domain.PricingPlan, err error) {
	defer s.observe("create_plan", time.Now(), &err)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validationf("plan name is required")
	}
	if m := in.MinProfitMargin; m != nil && (m.IsNegative() || m.GreaterThan(decimal.NewFromInt(100))) {
		return nil, domain.Validationf("minimum profit margin must be between 0 and 100")
	}

	p := domain.PricingPlan{
		ID:              uuid.New().String(),
		Name:            name,
		Description:     in.Description,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
		CampaignID:      in.CampaignID,
		MinProfitMargin: in.MinProfitMargin,
		Products:        []domain.ProductLine{},
	}

	err = s.repo.Update(ctx, func(plans []domain.PricingPlan) ([]domain.PricingPlan, error) {
		for _, existing := range plans {
			if existing.Name == name {
				return nil, fmt.Errorf("%w: plan %q", domain.ErrDuplicateName, name)
			}
		}
		return append(plans, p), nil
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("plan", name).Warn("Failed to create pricing plan")
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"plan_id": p.ID,
		"plan":    p.Name,
	}).Info("Created pricing plan")
	return &p, nil
}

func (s *PricingService) ListPlans(ctx context.Context) ([]domain.PricingPlan, error) {
	return s.repo.List(ctx)
}

func (s *PricingService) GetPlan(ctx context.Context, planID string) (*domain.PricingPlan, error) {
	plans, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	i := findPlan(plans, planID)
	if i < 0 {
		return nil, domain.NotFoundf("plan %s", planID)
	}
	return &plans[i], nil
}

// AddProduct prices spec and appends it to the plan.
func (s *PricingService) AddProduct(ctx context.Context, planID string, spec domain.ProductSpec) (line *domain.ProductLine, err error) {
	defer s.observe("add_product", time.Now(), &err)

	spec.Name = strings.TrimSpace(spec.Name)
	newLine, err := domain.NewProductLine(spec, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return nil, err
	}

	err = s.repo.Update(ctx, func(plans []domain.PricingPlan) ([]domain.PricingPlan, error) {
		i := findPlan(plans, planID)
		if i < 0 {
			return nil, domain.NotFoundf("plan %s", planID)
		}
		if plans[i].ProductIndex(newLine.Name) >= 0 {
			return nil, fmt.Errorf("%w: %q already in plan", domain.ErrDuplicateProduct, newLine.Name)
		}
		plans[i].Products = append(plans[i].Products, newLine)
		return plans, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"plan_id":       planID,
		"product":       newLine.Name,
		"margin_status": newLine.Status,
	}).Info("Added product to pricing plan")
	return &newLine, nil
}

// AddCatalogProduct adds a catalog product at its catalog discount. A nil
// cost uses the catalog default.
func (s *PricingService) AddCatalogProduct(ctx context.Context, planID, productName string, cost *decimal.Decimal) (*domain.ProductLine, error) {
	entry, err := s.catalog.Lookup(ctx, productName)
	if err != nil {
		return nil, err
	}
	return s.AddProduct(ctx, planID, entry.ProductSpec(cost))
}

// UpdateProduct replaces the product at index. Renaming onto another
// product's name is rejected.
func (s *PricingService) UpdateProduct(ctx context.Context, planID string, index int, spec domain.ProductSpec) (line *domain.ProductLine, err error) {
	defer s.observe("update_product", time.Now(), &err)

	spec.Name = strings.TrimSpace(spec.Name)
	newLine, err := domain.NewProductLine(spec, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return nil, err
	}

	err = s.repo.Update(ctx, func(plans []domain.PricingPlan) ([]domain.PricingPlan, error) {
		i := findPlan(plans, planID)
		if i < 0 {
			return nil, domain.NotFoundf("plan %s", planID)
		}
		if index < 0 || index >= len(plans[i].Products) {
			return nil, domain.Validationf("product index %d out of range", index)
		}
		if j := plans[i].ProductIndex(newLine.Name); j >= 0 && j != index {
			return nil, fmt.Errorf("%w: %q already in plan", domain.ErrDuplicateProduct, newLine.Name)
		}
		newLine.AddedAt = plans[i].Products[index].AddedAt
		plans[i].Products[index] = newLine
		return plans, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"plan_id": planID,
		"index":   index,
		"product": newLine.Name,
	}).Info("Updated pricing plan product")
	return &newLine, nil
}

func (s *PricingService) RemoveProduct(ctx context.Context, planID string, index int) (err error) {
	defer s.observe("remove_product", time.Now(), &err)

	err = s.repo.Update(ctx, func(plans []domain.PricingPlan) ([]domain.PricingPlan, error) {
		i := findPlan(plans, planID)
		if i < 0 {
			return nil, domain.NotFoundf("plan %s", planID)
		}
		if index < 0 || index >= len(plans[i].Products) {
			return nil, domain.Validationf("product index %d out of range", index)
		}
		plans[i].Products = append(plans[i].Products[:index], plans[i].Products[index+1:]...)
		return plans, nil
	})
	if err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"plan_id": planID,
		"index":   index,
	}).Info("Removed product from pricing plan")
	return nil
}

func (s *PricingService) PlanSummary(ctx context.Context, planID string) (*domain.PlanSummary, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	summary := plan.Summarize()
	return &summary, nil
}

// DeletePlan removes the plan permanently.
func (s *PricingService) DeletePlan(ctx context.Context, planID string) (err error) {
	defer s.observe("delete_plan", time.Now(), &err)

	err = s.repo.Update(ctx, func(plans []domain.PricingPlan) ([]domain.PricingPlan, error) {
		i := findPlan(plans, planID)
		if i < 0 {
			return nil, domain.NotFoundf("plan %s", planID)
		}
		return append(plans[:i], plans[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithField("plan_id", planID).Info("Deleted pricing plan")
	return nil
}

func (s *PricingService) observe(op string, start time.Time, err *error) {
	s.metrics.RecordOperation(pricingLedger, op, *err, time.Since(start))
}

func findPlan(plans []domain.PricingPlan, id string) int {
	for i, p := range plans {
		if p.ID == id {
			return i
		}
	}
	return -1
}
