package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/shopspring/decimal"
)

const revenueLedger = "revenue"

// Cache keys for report values.
const (
	cacheKeyTotal = "summary:total"
	cacheKeyTrend = "summary:trend"
	cacheKeyROI   = "summary:roi_by_channel"
)

func monthCacheKey(id string) string {
	return "summary:month:" + id
}

// RevenueService manages monthly expenses and revenues and derives the
// summary reports.
type RevenueService struct {
	repo    domain.RevenueRepository
	cache   domain.SummaryCache
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// cacheGen counts invalidations. A report computed before one is not
	// stored; cacheMu orders stores against invalidations in this process.
	cacheMu  sync.RWMutex
	cacheGen uint64
}

func NewRevenueService(
	repo domain.RevenueRepository,
	cache domain.SummaryCache,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *RevenueService {
	return &RevenueService{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *RevenueService) WithClock(now func() time.Time) *RevenueService {
	s.now = now
	return s
}

func (s *RevenueService) today() domain.Date {
	return domain.DateOf(s.now())
}

func (s *RevenueService) AddMonth(ctx context.Context, name string, year, monthNumber int) (month *domain.Month, err error) {
	defer s.observe("add_month", time.Now(), &err)
	log := s.logger.WithContext(ctx)

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, domain.Validationf("month name is required")
	case year <= 0:
		return nil, domain.Validationf("year must be positive")
	case monthNumber < 1 || monthNumber > 12:
		return nil, domain.Validationf("month number must be between 1 and 12")
	}

	m := &domain.Month{
		Name:        name,
		Year:        year,
		MonthNumber: monthNumber,
		LastUpdate:  s.today(),
		Expenses:    []domain.Expense{},
		Revenues:    []domain.Revenue{},
	}
	if err := s.repo.CreateMonth(ctx, m); err != nil {
		log.WithError(err).WithField("month", name).Warn("Failed to add month")
		return nil, err
	}

	s.invalidate(ctx, m.ID)
	log.WithFields(map[string]any{
		"month_id": m.ID,
		"month":    m.Name,
	}).Info("Added month")
	return m, nil
}

func (s *RevenueService) GetMonth(ctx context.Context, id string) (*domain.Month, error) {
	return s.repo.GetMonth(ctx, id)
}

// ListMonths returns every month, newest first.
func (s *RevenueService) ListMonths(ctx context.Context) ([]domain.Month, error) {
	return s.repo.ListMonths(ctx)
}

func (s *RevenueService) AddExpense(ctx context.Context, monthID, expenseType string, value decimal.Decimal) (expense *domain.Expense, err error) {
	defer s.observe("add_expense", time.Now(), &err)

	expenseType = strings.TrimSpace(expenseType)
	if err := domain.ValidateExpense(expenseType, value); err != nil {
		return nil, err
	}
	e := &domain.Expense{MonthID: monthID, Type: expenseType, Value: value}
	if err := s.repo.AddExpense(ctx, e, s.today()); err != nil {
		return nil, err
	}

	s.invalidate(ctx, monthID)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"month_id":   monthID,
		"expense_id": e.ID,
		"type":       e.Type,
		"value":      e.Value.String(),
	}).Info("Added expense")
	return e, nil
}

func (s *RevenueService) AddRevenue(ctx context.Context, monthID, revenueType string, value, roi decimal.Decimal, orders int) (revenue *domain.Revenue, err error) {
	defer s.observe("add_revenue", time.Now(), &err)

	revenueType = strings.TrimSpace(revenueType)
	if err := domain.ValidateRevenue(revenueType, value, roi, orders); err != nil {
		return nil, err
	}
	r := &domain.Revenue{MonthID: monthID, Type: revenueType, Value: value, ROI: roi, Orders: orders}
	if err := s.repo.AddRevenue(ctx, r, s.today()); err != nil {
		return nil, err
	}

	s.invalidate(ctx, monthID)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"month_id":   monthID,
		"revenue_id": r.ID,
		"type":       r.Type,
		"value":      r.Value.String(),
		"orders":     r.Orders,
	}).Info("Added revenue")
	return r, nil
}

func (s *RevenueService) UpdateExpense(ctx context.Context, id string, value decimal.Decimal) (expense *domain.Expense, err error) {
	defer s.observe("update_expense", time.Now(), &err)

	if value.IsNegative() {
		return nil, domain.Validationf("expense value must not be negative")
	}
	e, err := s.repo.UpdateExpense(ctx, id, value, s.today())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, e.MonthID)
	s.logger.WithContext(ctx).WithField("expense_id", id).Info("Updated expense")
	return e, nil
}

func (s *RevenueService) UpdateRevenue(ctx context.Context, id string, value, roi decimal.Decimal, orders int) (revenue *domain.Revenue, err error) {
	defer s.observe("update_revenue", time.Now(), &err)

	if value.IsNegative() || roi.IsNegative() || orders < 0 {
		return nil, domain.Validationf("revenue value, roi and orders must not be negative")
	}
	r, err := s.repo.UpdateRevenue(ctx, id, value, roi, orders, s.today())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.MonthID)
	s.logger.WithContext(ctx).WithField("revenue_id", id).Info("Updated revenue")
	return r, nil
}

func (s *RevenueService) DeleteExpense(ctx context.Context, id string) (err error) {
	defer s.observe("delete_expense", time.Now(), &err)

	e, err := s.repo.DeleteExpense(ctx, id, s.today())
	if err != nil {
		return err
	}
	s.invalidate(ctx, e.MonthID)
	s.logger.WithContext(ctx).WithField("expense_id", id).Info("Deleted expense")
	return nil
}

func (s *RevenueService) DeleteRevenue(ctx context.Context, id string) (err error) {
	defer s.observe("delete_revenue", time.Now(), &err)

	r, err := s.repo.DeleteRevenue(ctx, id, s.today())
	if err != nil {
		return err
	}
	s.invalidate(ctx, r.MonthID)
	s.logger.WithContext(ctx).WithField("revenue_id", id).Info("Deleted revenue")
	return nil
}

// MonthSummary aggregates one month.
func (s *RevenueService) MonthSummary(ctx context.Context, monthID string) (*domain.Summary, error) {
	var summary domain.Summary
	if s.cached(ctx, monthCacheKey(monthID), &summary) {
		return &summary, nil
	}

	gen := s.generation()
	m, err := s.repo.GetMonth(ctx, monthID)
	if err != nil {
		return nil, err
	}
	summary = m.Summarize()
	s.store(ctx, gen, monthCacheKey(monthID), summary)
	return &summary, nil
}

// TotalSummary aggregates every month's line items together.
func (s *RevenueService) TotalSummary(ctx context.Context) (*domain.TotalSummary, error) {
	var total domain.TotalSummary
	if s.cached(ctx, cacheKeyTotal, &total) {
		return &total, nil
	}

	gen := s.generation()
	months, err := s.repo.ListMonths(ctx)
	if err != nil {
		return nil, err
	}
	var expenses []domain.Expense
	var revenues []domain.Revenue
	for _, m := range months {
		expenses = append(expenses, m.Expenses...)
		revenues = append(revenues, m.Revenues...)
	}
	total = domain.TotalSummary{
		Summary:     domain.Summarize(expenses, revenues),
		MonthsCount: len(months),
	}
	if len(months) > 0 {
		total.AvgRevenuePerMonth = total.TotalRevenue.Div(decimal.NewFromInt(int64(len(months))))
	}

	s.store(ctx, gen, cacheKeyTotal, total)
	return &total, nil
}

// MonthlyTrend returns one point per month in chronological order.
func (s *RevenueService) MonthlyTrend(ctx context.Context) ([]domain.TrendPoint, error) {
	var trend []domain.TrendPoint
	if s.cached(ctx, cacheKeyTrend, &trend) {
		return trend, nil
	}

	gen := s.generation()
	months, err := s.repo.ListMonths(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year < months[j].Year
		}
		return months[i].MonthNumber < months[j].MonthNumber
	})

	trend = make([]domain.TrendPoint, 0, len(months))
	for _, m := range months {
		sum := m.Summarize()
		trend = append(trend, domain.TrendPoint{
			MonthID:     m.ID,
			Month:       m.Name,
			Year:        m.Year,
			MonthNumber: m.MonthNumber,
			Expenses:    sum.TotalExpenses,
			Revenues:    sum.TotalRevenue,
			Profit:      sum.NetProfit,
		})
	}

	s.store(ctx, gen, cacheKeyTrend, trend)
	return trend, nil
}

// ROIByChannel groups revenue entries by type. AvgROI is the unweighted mean
// of the entries' roi values.
func (s *RevenueService) ROIByChannel(ctx context.Context) (map[string]domain.ChannelROI, error) {
	var channels map[string]domain.ChannelROI
	if s.cached(ctx, cacheKeyROI, &channels) {
		return channels, nil
	}

	gen := s.generation()
	months, err := s.repo.ListMonths(ctx)
	if err != nil {
		return nil, err
	}

	roiSums := make(map[string]decimal.Decimal)
	channels = make(map[string]domain.ChannelROI)
	for _, m := range months {
		for _, r := range m.Revenues {
			c := channels[r.Type]
			c.TotalRevenue = c.TotalRevenue.Add(r.Value)
			c.TotalOrders += r.Orders
			c.Entries++
			channels[r.Type] = c
			roiSums[r.Type] = roiSums[r.Type].Add(r.ROI)
		}
	}
	for t, c := range channels {
		c.AvgROI = roiSums[t].Div(decimal.NewFromInt(int64(c.Entries)))
		channels[t] = c
	}

	s.store(ctx, gen, cacheKeyROI, channels)
	return channels, nil
}

func (s *RevenueService) ExpensesByType(ctx context.Context) ([]domain.TypeTotal, error) {
	return s.repo.ExpensesByType(ctx)
}

func (s *RevenueService) RevenuesByType(ctx context.Context) ([]domain.TypeTotal, error) {
	return s.repo.RevenuesByType(ctx)
}

// cached reads a report from the cache. Cache errors count as misses.
func (s *RevenueService) cached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Summary cache read failed")
		hit = false
	}
	s.metrics.RecordCacheLookup(hit)
	return hit
}

func (s *RevenueService) generation() uint64 {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cacheGen
}

// store caches value unless an invalidation happened since gen was read.
func (s *RevenueService) store(ctx context.Context, gen uint64, key string, value any) {
	if s.cache == nil {
		return
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if s.cacheGen != gen {
		s.logger.WithContext(ctx).WithField("key", key).Debug("Skipped caching report computed before a write")
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Summary cache write failed")
	}
}

// invalidate drops the month's summary and every cross-month report.
func (s *RevenueService) invalidate(ctx context.Context, monthID string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	if err := s.cache.Delete(ctx, monthCacheKey(monthID), cacheKeyTotal, cacheKeyTrend, cacheKeyROI); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("month_id", monthID).Warn("Summary cache invalidation failed")
	}
}

func (s *RevenueService) observe(op string, start time.Time, err *error) {
	s.metrics.RecordOperation(revenueLedger, op, *err, time.Since(start))
}

