package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/google/uuid"
)

const campaignLedger = "campaign"

// CampaignService owns the campaign lifecycle: creation, product lines,
// soft delete, restore and purge.
type CampaignService struct {
	repo    domain.CampaignRepository
	assets  domain.AssetStore
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewCampaignService(
	repo domain.CampaignRepository,
	assets domain.AssetStore,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *CampaignService {
	return &CampaignService{
		repo:    repo,
		assets:  assets,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *CampaignService) WithClock(now func() time.Time) *CampaignService {
	s.now = now
	return s
}

// CreateCampaignInput carries the optional fields of a new campaign.
type CreateCampaignInput struct {
	Name         string
	StartDate    domain.Date
	EndDate      domain.Date
	CreatedBy    string
	CalendarType domain.CalendarType
	LogoPath     string
}

func (s *CampaignService) Create(ctx context.Context, in CreateCampaignInput) (campaign *domain.Campaign, err error) {
	defer s.observe("create", time.Now(), &err)
	log := s.logger.WithContext(ctx)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		log.Warn("Rejected campaign without name")
		return nil, domain.Validationf("campaign name is required")
	}
	if err := domain.ValidateCampaignDates(in.StartDate, in.EndDate); err != nil {
		log.WithFields(map[string]any{
			"start_date": in.StartDate.String(),
			"end_date":   in.EndDate.String(),
		}).Warn("Rejected campaign with invalid date range")
		return nil, err
	}
	calendar := in.CalendarType
	switch calendar {
	case "":
		calendar = domain.CalendarGregorian
	case domain.CalendarGregorian, domain.CalendarHijri:
	default:
		return nil, domain.Validationf("unknown calendar type %q", calendar)
	}

	c := domain.Campaign{
		ID:           uuid.New().String(),
		Name:         name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		CalendarType: calendar,
		LogoPath:     in.LogoPath,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
		Products:     []domain.ProductLine{},
	}

	err = s.repo.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		return append(campaigns, c), nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to store campaign")
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	log.WithFields(map[string]any{
		"campaign_id": c.ID,
		"name":        c.Name,
		"start_date":  c.StartDate.String(),
		"end_date":    c.EndDate.String(),
	}).Info("Created campaign")
	return &c, nil
}

func (s *CampaignService) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	campaigns, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	i := findCampaign(campaigns, id)
	if i < 0 {
		return nil, domain.NotFoundf("campaign %s", id)
	}
	return &campaigns[i], nil
}

// ListActive returns non-deleted campaigns in storage order.
func (s *CampaignService) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	return s.list(ctx, false)
}

// ListTrashed returns soft-deleted campaigns in storage order.
func (s *CampaignService) ListTrashed(ctx context.Context) ([]domain.Campaign, error) {
	return s.list(ctx, true)
}

func (s *CampaignService) list(ctx context.Context, deleted bool) ([]domain.Campaign, error) {
	campaigns, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	out := make([]domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Deleted == deleted {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddProduct prices spec and appends it to an active campaign.
func (s *CampaignService) AddProduct(ctx context.Context, campaignID string, spec domain.ProductSpec) (line *domain.ProductLine, err error) {
	defer s.observe("add_product", time.Now(), &err)
	log := s.logger.WithContext(ctx).WithField("campaign_id", campaignID)

	spec.Name = strings.TrimSpace(spec.Name)
	if spec.DiscountSource == "" && spec.DiscountCode != "" {
		spec.DiscountSource = domain.SourceDiscountCode
	}
	newLine, err := domain.NewProductLine(spec, s.now().UTC().Truncate(time.Second))
	if err != nil {
		log.WithError(err).Warn("Rejected campaign product")
		return nil, err
	}

	err = s.repo.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		i := findCampaign(campaigns, campaignID)
		if i < 0 || campaigns[i].Deleted {
			return nil, domain.NotFoundf("campaign %s", campaignID)
		}
		if campaigns[i].ProductIndex(newLine.Name) >= 0 {
			return nil, fmt.Errorf("%w: %q already in campaign", domain.ErrDuplicateProduct, newLine.Name)
		}
		campaigns[i].Products = append(campaigns[i].Products, newLine)
		return campaigns, nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to add campaign product")
		return nil, err
	}

	log.WithFields(map[string]any{
		"product":       newLine.Name,
		"final_price":   newLine.FinalPrice.String(),
		"margin_status": newLine.Status,
	}).Info("Added product to campaign")
	return &newLine, nil
}

// RemoveProduct deletes the named product from an active campaign. Removing
// a product that is not on the campaign succeeds without change.
func (s *CampaignService) RemoveProduct(ctx context.Context, campaignID, productName string) (err error) {
	defer s.observe("remove_product", time.Now(), &err)

	productName = strings.TrimSpace(productName)
	removed := false
	err = s.repo.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		i := findCampaign(campaigns, campaignID)
		if i < 0 || campaigns[i].Deleted {
			return nil, domain.NotFoundf("campaign %s", campaignID)
		}
		j := campaigns[i].ProductIndex(productName)
		if j < 0 {
			return campaigns, nil
		}
		campaigns[i].Products = append(campaigns[i].Products[:j], campaigns[i].Products[j+1:]...)
		removed = true
		return campaigns, nil
	})
	if err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"campaign_id": campaignID,
		"product":     productName,
		"removed":     removed,
	}).Info("Removed product from campaign")
	return nil
}

// SoftDelete moves an active campaign to the trash.
func (s *CampaignService) SoftDelete(ctx context.Context, campaignID, by string) (campaign *domain.Campaign, err error) {
	defer s.observe("soft_delete", time.Now(), &err)

	now := s.now().UTC().Truncate(time.Second)
	var out domain.Campaign
	err = s.repo.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		i := findCampaign(campaigns, campaignID)
		if i < 0 {
			return nil, domain.NotFoundf("campaign %s", campaignID)
		}
		if campaigns[i].Deleted {
			return nil, fmt.Errorf("%w: campaign %s", domain.ErrAlreadyDeleted, campaignID)
		}
		campaigns[i].Deleted = true
		campaigns[i].DeletedAt = &now
		campaigns[i].DeletedBy = by
		out = campaigns[i]
		return campaigns, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"campaign_id": campaignID,
		"deleted_by":  by,
	}).Info("Moved campaign to trash")
	return &out, nil
}

// Restore brings a trashed campaign back to active.
func (s *CampaignService) Restore(ctx context.Context, campaignID string) (campaign *domain.Campaign, err error) {
	defer s.observe("restore", time.Now(), &err)

	var out domain.Campaign
	err = s.repo.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		i := findCampaign(campaigns, campaignID)
		if i < 0 {
			return nil, domain.NotFoundf("campaign %s", campaignID)
		}
		if !campaigns[i].Deleted {
			return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotDeleted, campaignID)
		}
		campaigns[i].Deleted = false
		campaigns[i].DeletedAt = nil
		campaigns[i].DeletedBy = ""
		out = campaigns[i]
		return campaigns, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithField("campaign_id", campaignID).Info("Restored campaign")
	return &out, nil
}

// Purge permanently removes a trashed campaign, then releases its logo. A
// failed asset release is logged; the campaign stays removed.
func (s *CampaignService) Purge(ctx context.Context, campaignID string) error {
	_, err := s.purge(ctx, campaignID)
	return err
}

// purge returns the asset release error separately from the state change.
func (s *CampaignService) purge(ctx context.Context, campaignID string) (assetErr error, err error) {
	defer s.observe("purge", time.Now(), &err)

	var purged domain.Campaign
	err = s.repo.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		i := findCampaign(campaigns, campaignID)
		if i < 0 {
			return nil, domain.NotFoundf("campaign %s", campaignID)
		}
		if !campaigns[i].Deleted {
			return nil, fmt.Errorf("%w: campaign %s must be in trash before purge", domain.ErrInvalidState, campaignID)
		}
		purged = campaigns[i]
		return append(campaigns[:i], campaigns[i+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithField("campaign_id", campaignID).Info("Purged campaign")
	return s.releaseAsset(ctx, purged), nil
}

func (s *CampaignService) releaseAsset(ctx context.Context, c domain.Campaign) error {
	if c.LogoPath == "" || s.assets == nil {
		return nil
	}
	if err := s.assets.Delete(ctx, c.LogoPath); err != nil {
		s.metrics.RecordAssetReleaseFailure("logo")
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"campaign_id": c.ID,
			"logo_path":   c.LogoPath,
		}).Error("Failed to release campaign logo")
		return err
	}
	return nil
}

// PurgeAllTrashed purges every trashed campaign independently. The report
// lists each outcome; the returned error joins the per-campaign failures.
func (s *CampaignService) PurgeAllTrashed(ctx context.Context) (*domain.PurgeReport, error) {
	trashed, err := s.ListTrashed(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.PurgeReport{
		Purged:        []string{},
		Failed:        map[string]string{},
		AssetFailures: map[string]string{},
	}
	var errs []error
	for _, c := range trashed {
		assetErr, err := s.purge(ctx, c.ID)
		if err != nil {
			report.Failed[c.ID] = err.Error()
			errs = append(errs, fmt.Errorf("campaign %s: %w", c.ID, err))
			continue
		}
		report.Purged = append(report.Purged, c.ID)
		if assetErr != nil {
			report.AssetFailures[c.ID] = assetErr.Error()
		}
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"purged":         len(report.Purged),
		"failed":         len(report.Failed),
		"asset_failures": len(report.AssetFailures),
	}).Info("Emptied campaign trash")
	return report, errors.Join(errs...)
}

// CurrentAndUpcoming resolves the dashboard campaigns for today. Deleted
// campaigns never qualify. The current campaign is the first running one in
// storage order; the upcoming one has the earliest start date, ties going to
// storage order.
func (s *CampaignService) CurrentAndUpcoming(ctx context.Context, today domain.Date) (current, upcoming *domain.Campaign, err error) {
	campaigns, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	current, upcoming = ResolveCurrentAndUpcoming(campaigns, today)
	return current, upcoming, nil
}

// ResolveCurrentAndUpcoming is the pure part of CurrentAndUpcoming.
func ResolveCurrentAndUpcoming(campaigns []domain.Campaign, today domain.Date) (current, upcoming *domain.Campaign) {
	for i := range campaigns {
		c := &campaigns[i]
		switch c.StateOn(today) {
		case domain.CampaignCurrent:
			if current == nil {
				current = c
			}
		case domain.CampaignUpcoming:
			if upcoming == nil || c.StartDate.Before(upcoming.StartDate.Time) {
				upcoming = c
			}
		}
	}
	return current, upcoming
}

// Dashboard returns the current and upcoming campaign cards for today.
func (s *CampaignService) Dashboard(ctx context.Context, today domain.Date) (*domain.Dashboard, error) {
	current, upcoming, err := s.CurrentAndUpcoming(ctx, today)
	if err != nil {
		return nil, err
	}
	d := &domain.Dashboard{Today: today}
	if current != nil {
		d.Current = domain.NewCampaignCard(*current, today)
	}
	if upcoming != nil {
		d.Upcoming = domain.NewCampaignCard(*upcoming, today)
	}
	return d, nil
}

// Today is the service clock's calendar day.
func (s *CampaignService) Today() domain.Date {
	return domain.DateOf(s.now())
}

func (s *CampaignService) observe(op string, start time.Time, err *error) {
	s.metrics.RecordOperation(campaignLedger, op, *err, time.Since(start))
}

func findCampaign(campaigns []domain.Campaign, id string) int {
	for i, c := range campaigns {
		if c.ID == id {
			return i
		}
	}
	return -1
}
