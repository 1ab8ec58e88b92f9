package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/internal/infrastructure"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingCampaignRepo rejects any Update that would remove a campaign listed
// in failIDs; everything else goes to the wrapped repository.
type failingCampaignRepo struct {
	domain.CampaignRepository
	failIDs map[string]bool
}

func (r *failingCampaignRepo) Update(ctx context.Context, fn func([]domain.Campaign) ([]domain.Campaign, error)) error {
	return r.CampaignRepository.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		before := make([]string, len(campaigns))
		for i, c := range campaigns {
			before[i] = c.ID
		}
		next, err := fn(campaigns)
		if err != nil {
			return nil, err
		}
		for _, id := range before {
			if r.failIDs[id] && findCampaign(next, id) < 0 {
				return nil, fmt.Errorf("%w: disk full", domain.ErrPersistence)
			}
		}
		return next, nil
	})
}

// fakeAssets records deletions and fails for paths listed in failures.
type fakeAssets struct {
	mu       sync.Mutex
	deleted  []string
	failures map[string]error
}

func (f *fakeAssets) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[path]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, path)
	return nil
}

var fixedNow = time.Date(2025, time.February, 20, 9, 30, 0, 0, time.UTC)

func newTestJSONStore(t *testing.T) (*infrastructure.JSONStore, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	store, err := infrastructure.NewJSONStore(t.TempDir(), logger.NewDiscard(), m)
	require.NoError(t, err)
	return store, m
}

func newCampaignService(t *testing.T, assets domain.AssetStore) *CampaignService {
	t.Helper()
	store, m := newTestJSONStore(t)
	repo := infrastructure.NewCampaignRepository(store, "campaigns", logger.NewDiscard())
	return NewCampaignService(repo, assets, logger.NewDiscard(), m).
		WithClock(func() time.Time { return fixedNow })
}

func createCampaign(t *testing.T, s *CampaignService, name string, start, end domain.Date) *domain.Campaign {
	t.Helper()
	c, err := s.Create(context.Background(), CreateCampaignInput{Name: name, StartDate: start, EndDate: end, CreatedBy: "sara"})
	require.NoError(t, err)
	return c
}

func argan(mode domain.DiscountMode, value int64) domain.ProductSpec {
	return domain.ProductSpec{
		Name:          "Argan Oil 100ml",
		BasePrice:     decimal.NewFromInt(100),
		DiscountMode:  mode,
		DiscountValue: decimal.NewFromInt(value),
		Cost:          decimal.NewFromInt(50),
	}
}

func TestCampaignCreateValidation(t *testing.T) {
	s := newCampaignService(t, nil)
	ctx := context.Background()
	start := domain.NewDate(2025, time.March, 1)

	_, err := s.Create(ctx, CreateCampaignInput{Name: "  ", StartDate: start, EndDate: domain.NewDate(2025, time.March, 6)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create(ctx, CreateCampaignInput{Name: "Same day", StartDate: start, EndDate: start})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create(ctx, CreateCampaignInput{Name: "No start", EndDate: domain.NewDate(2025, time.March, 30)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Create(ctx, CreateCampaignInput{Name: "No end", StartDate: start})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create(ctx, CreateCampaignInput{Name: "Lunar", StartDate: start, EndDate: domain.NewDate(2025, time.March, 2), CalendarType: "LUNAR"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	c, err := s.Create(ctx, CreateCampaignInput{Name: "Ramadan 2025", StartDate: start, EndDate: domain.NewDate(2025, time.March, 30)})
	require.NoError(t, err)
	assert.Equal(t, domain.CalendarGregorian, c.CalendarType)
	assert.Equal(t, fixedNow, c.CreatedAt)
	assert.False(t, c.Deleted)
}

func TestCampaignProductPricing(t *testing.T) {
	s := newCampaignService(t, nil)
	ctx := context.Background()
	c := createCampaign(t, s, "Ramadan 2025", domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30))

	line, err := s.AddProduct(ctx, c.ID, argan(domain.DiscountPercentage, 30))
	require.NoError(t, err)
	assert.True(t, line.FinalPrice.Equal(decimal.NewFromInt(70)))
	assert.True(t, line.NetProfit.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "28.57", line.ProfitMarginPct.StringFixed(2))
	assert.Equal(t, domain.StatusGood, line.Status)

	_, err = s.AddProduct(ctx, c.ID, argan(domain.DiscountFixedAmount, 40))
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)

	require.NoError(t, s.RemoveProduct(ctx, c.ID, "Argan Oil 100ml"))
	line, err = s.AddProduct(ctx, c.ID, argan(domain.DiscountFixedAmount, 40))
	require.NoError(t, err)
	assert.True(t, line.FinalPrice.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "16.67", line.ProfitMarginPct.StringFixed(2))
	assert.Equal(t, domain.StatusGood, line.Status)

	require.NoError(t, s.RemoveProduct(ctx, c.ID, "not there"))

	_, err = s.AddProduct(ctx, c.ID, argan(domain.DiscountPercentage, 120))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.AddProduct(ctx, "missing", argan(domain.DiscountPercentage, 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	coded := argan(domain.DiscountPercentage, 10)
	coded.Name = "Rose Serum"
	coded.DiscountCode = "ROSE10"
	line, err = s.AddProduct(ctx, c.ID, coded)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDiscountCode, line.DiscountSource)

	stored, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Products, 2)
}

func TestCampaignSoftDeleteHidesFromDashboard(t *testing.T) {
	s := newCampaignService(t, nil)
	ctx := context.Background()
	c := createCampaign(t, s, "Ramadan 2025", domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30))
	mid := domain.NewDate(2025, time.March, 15)

	current, _, err := s.CurrentAndUpcoming(ctx, mid)
	require.NoError(t, err)
	require.NotNil(t, current)

	trashed, err := s.SoftDelete(ctx, c.ID, "omar")
	require.NoError(t, err)
	assert.True(t, trashed.Deleted)
	require.NotNil(t, trashed.DeletedAt)
	assert.Equal(t, "omar", trashed.DeletedBy)

	current, upcoming, err := s.CurrentAndUpcoming(ctx, mid)
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Nil(t, upcoming)

	_, err = s.SoftDelete(ctx, c.ID, "omar")
	assert.ErrorIs(t, err, domain.ErrAlreadyDeleted)

	_, err = s.AddProduct(ctx, c.ID, argan(domain.DiscountPercentage, 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	inTrash, err := s.ListTrashed(ctx)
	require.NoError(t, err)
	assert.Len(t, inTrash, 1)
}

func TestCampaignRestore(t *testing.T) {
	s := newCampaignService(t, nil)
	ctx := context.Background()
	c := createCampaign(t, s, "Ramadan 2025", domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30))

	_, err := s.Restore(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotDeleted)

	_, err = s.SoftDelete(ctx, c.ID, "omar")
	require.NoError(t, err)
	restored, err := s.Restore(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, restored.Deleted)
	assert.Nil(t, restored.DeletedAt)
	assert.Empty(t, restored.DeletedBy)

	current, _, err := s.CurrentAndUpcoming(ctx, domain.NewDate(2025, time.March, 15))
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, c.ID, current.ID)
}

func TestCampaignPurge(t *testing.T) {
	assets := &fakeAssets{}
	s := newCampaignService(t, assets)
	ctx := context.Background()

	c, err := s.Create(ctx, CreateCampaignInput{
		Name:      "Ramadan 2025",
		StartDate: domain.NewDate(2025, time.March, 1),
		EndDate:   domain.NewDate(2025, time.March, 30),
		LogoPath:  "ramadan.png",
	})
	require.NoError(t, err)

	err = s.Purge(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = s.SoftDelete(ctx, c.ID, "omar")
	require.NoError(t, err)
	require.NoError(t, s.Purge(ctx, c.ID))
	assert.Equal(t, []string{"ramadan.png"}, assets.deleted)

	_, err = s.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Restore(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Purge(ctx, c.ID), domain.ErrNotFound)
}

func TestCampaignPurgeAllTrashedReportsAssetFailures(t *testing.T) {
	assets := &fakeAssets{failures: map[string]error{"broken.png": errors.New("permission denied")}}
	s := newCampaignService(t, assets)
	ctx := context.Background()
	start, end := domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30)

	var ids []string
	for _, logo := range []string{"a.png", "broken.png", ""} {
		c, err := s.Create(ctx, CreateCampaignInput{Name: "Campaign " + logo, StartDate: start, EndDate: end, LogoPath: logo})
		require.NoError(t, err)
		_, err = s.SoftDelete(ctx, c.ID, "omar")
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	kept := createCampaign(t, s, "Kept", start, end)

	report, err := s.PurgeAllTrashed(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, report.Purged)
	assert.Empty(t, report.Failed)
	assert.Contains(t, report.AssetFailures, ids[1])
	assert.Equal(t, []string{"a.png"}, assets.deleted)

	trashed, err := s.ListTrashed(ctx)
	require.NoError(t, err)
	assert.Empty(t, trashed)
	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)
}

func TestResolveCurrentAndUpcomingTieBreaks(t *testing.T) {
	today := domain.NewDate(2025, time.March, 15)
	campaigns := []domain.Campaign{
		{ID: "ended", StartDate: domain.NewDate(2025, time.January, 1), EndDate: domain.NewDate(2025, time.January, 31)},
		{ID: "running-1", StartDate: domain.NewDate(2025, time.March, 1), EndDate: domain.NewDate(2025, time.March, 30)},
		{ID: "running-2", StartDate: domain.NewDate(2025, time.March, 10), EndDate: domain.NewDate(2025, time.March, 20)},
		{ID: "later", StartDate: domain.NewDate(2025, time.May, 1), EndDate: domain.NewDate(2025, time.May, 5)},
		{ID: "soon-1", StartDate: domain.NewDate(2025, time.April, 1), EndDate: domain.NewDate(2025, time.April, 5)},
		{ID: "soon-2", StartDate: domain.NewDate(2025, time.April, 1), EndDate: domain.NewDate(2025, time.April, 9)},
		{ID: "trashed", StartDate: domain.NewDate(2025, time.March, 20), EndDate: domain.NewDate(2025, time.March, 25), Deleted: true},
	}

	current, upcoming := ResolveCurrentAndUpcoming(campaigns, today)
	require.NotNil(t, current)
	require.NotNil(t, upcoming)
	assert.Equal(t, "running-1", current.ID)
	assert.Equal(t, "soon-1", upcoming.ID)

	current, upcoming = ResolveCurrentAndUpcoming(nil, today)
	assert.Nil(t, current)
	assert.Nil(t, upcoming)
}

func TestCampaignDashboard(t *testing.T) {
	s := newCampaignService(t, nil)
	ctx := context.Background()
	createCampaign(t, s, "Ramadan 2025", domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30))

	assert.Equal(t, domain.NewDate(2025, time.February, 20), s.Today())

	d, err := s.Dashboard(ctx, s.Today())
	require.NoError(t, err)
	assert.Nil(t, d.Current)
	require.NotNil(t, d.Upcoming)
	assert.Equal(t, 9, d.Upcoming.DaysUntilStart)
	assert.Equal(t, domain.CampaignUpcoming, d.Upcoming.State)
}

func TestCampaignRemoveProductMatchesAddRules(t *testing.T) {
	s := newCampaignService(t, nil)
	ctx := context.Background()
	c := createCampaign(t, s, "Ramadan 2025", domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30))

	_, err := s.AddProduct(ctx, c.ID, argan(domain.DiscountPercentage, 30))
	require.NoError(t, err)
	require.NoError(t, s.RemoveProduct(ctx, c.ID, "  Argan Oil 100ml "))
	stored, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Products)

	_, err = s.AddProduct(ctx, c.ID, argan(domain.DiscountPercentage, 30))
	require.NoError(t, err)
	_, err = s.SoftDelete(ctx, c.ID, "omar")
	require.NoError(t, err)

	err = s.RemoveProduct(ctx, c.ID, "Argan Oil 100ml")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	trashed, err := s.ListTrashed(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Len(t, trashed[0].Products, 1)
}

func TestCampaignPurgeAllTrashedReportsFailedItems(t *testing.T) {
	store, m := newTestJSONStore(t)
	repo := &failingCampaignRepo{
		CampaignRepository: infrastructure.NewCampaignRepository(store, "campaigns", logger.NewDiscard()),
		failIDs:            map[string]bool{},
	}
	s := NewCampaignService(repo, &fakeAssets{}, logger.NewDiscard(), m).
		WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()
	start, end := domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 30)

	var ids []string
	for _, name := range []string{"first", "stuck", "last"} {
		c := createCampaign(t, s, name, start, end)
		_, err := s.SoftDelete(ctx, c.ID, "omar")
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	repo.failIDs[ids[1]] = true

	report, err := s.PurgeAllTrashed(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	require.NotNil(t, report)
	assert.Equal(t, []string{ids[0], ids[2]}, report.Purged)
	require.Contains(t, report.Failed, ids[1])
	assert.Contains(t, report.Failed[ids[1]], "disk full")

	trashed, err := s.ListTrashed(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, ids[1], trashed[0].ID)
}
