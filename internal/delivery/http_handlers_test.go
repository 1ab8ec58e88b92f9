package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/internal/infrastructure"
	"campaignledger/internal/usecase"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, opts RouterOptions) *gin.Engine {
	t.Helper()
	return newTestRouterWithCampaigns(t, opts, nil)
}

// newTestRouterWithCampaigns lets a test wrap the campaign repository.
func newTestRouterWithCampaigns(t *testing.T, opts RouterOptions, wrap func(domain.CampaignRepository) domain.CampaignRepository) *gin.Engine {
	t.Helper()
	log := logger.NewDiscard()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	dir := t.TempDir()

	store, err := infrastructure.NewJSONStore(dir, log, m)
	require.NoError(t, err)
	db, err := infrastructure.OpenDatabase(context.Background(), "sqlite", filepath.Join(dir, "revenue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var campaignRepo domain.CampaignRepository = infrastructure.NewCampaignRepository(store, "campaigns", log)
	if wrap != nil {
		campaignRepo = wrap(campaignRepo)
	}

	clock := func() time.Time { return testNow }
	catalog := usecase.NewCatalogService(infrastructure.NewCatalogRepository(store, "products_pricing"))
	handlers := NewHTTPHandlers(
		usecase.NewCampaignService(campaignRepo, infrastructure.NewLocalAssetStore(dir), log, m).WithClock(clock),
		usecase.NewRevenueService(infrastructure.NewRevenueRepository(db, log, m), infrastructure.NewMemorySummaryCache(time.Minute), log, m).WithClock(clock),
		usecase.NewPricingService(infrastructure.NewPlanRepository(store, "pricing_plans", log), catalog, log, m).WithClock(clock),
		catalog,
		log,
	)
	opts.Gatherer = reg
	return NewHTTPRouter(handlers, log, m, opts).SetupRoutes()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"request_id":"req-123"`)
}

func TestCampaignEndpoints(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"campaign_name": "Ramadan 2025",
		"start_date":    "2025-03-01",
		"end_date":      "2025-03-30",
		"created_by":    "sara",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := body["campaign"].(map[string]any)["id"].(string)

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/products", map[string]any{
		"name":           "Argan Oil 100ml",
		"base_price":     "100",
		"discount_mode":  "PERCENTAGE",
		"discount_value": "30",
		"cost":           "50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := body["product"].(map[string]any)
	assert.Equal(t, "70", product["final_price"])
	assert.Equal(t, "GOOD", product["status"])
	assert.Equal(t, "28.57142857142857", product["profit_margin_pct"])
	display := product["display"].(map[string]any)
	assert.Equal(t, "28.57", display["profit_margin_pct"])
	assert.Equal(t, "20", display["net_profit"])

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/products", map[string]any{
		"name": "Argan Oil 100ml", "base_price": "100", "discount_mode": "FIXED_AMOUNT", "discount_value": "40", "cost": "50",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_PRODUCT", body["error"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/dashboard?date=2025-03-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dashboard := body["dashboard"].(map[string]any)
	require.NotNil(t, dashboard["current"])
	assert.Equal(t, float64(15), dashboard["current"].(map[string]any)["days_remaining"])

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/dashboard?date=15-03-2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/campaigns/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "active campaigns cannot be purged")

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/trash", map[string]any{"deleted_by": "omar"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["campaign"].(map[string]any)["deleted"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/dashboard?date=2025-03-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["dashboard"].(map[string]any)["current"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/campaigns?status=trashed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["campaigns"], 1)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, body = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/restore", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_DELETED", body["error"])

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/trash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, body = doJSON(t, router, http.MethodDelete, "/api/v1/campaigns/trash", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{id}, body["report"].(map[string]any)["purged"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["error"])
}

func TestCampaignCreateRejectsBadDates(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	for _, payload := range []map[string]any{
		{"campaign_name": "No start", "end_date": "2025-03-30"},
		{"campaign_name": "No end", "start_date": "2025-03-01"},
		{"campaign_name": "Zero start", "start_date": "0001-01-01", "end_date": "2025-03-30"},
	} {
		w, body := doJSON(t, router, http.MethodPost, "/api/v1/campaigns", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload["campaign_name"])
		assert.Equal(t, "VALIDATION_ERROR", body["error"])
	}

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"campaign_name": "Backwards",
		"start_date":    "2025-03-30",
		"end_date":      "2025-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
}

func TestRevenueEndpoints(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/revenue/months", map[string]any{
		"month_name": "2025-09", "year": 2025, "month_number": 9,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	monthID := body["month"].(map[string]any)["id"].(string)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/revenue/months", map[string]any{
		"month_name": "2025-09", "year": 2025, "month_number": 9,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/revenue/months/"+monthID+"/expenses", map[string]any{"type": "ads", "value": 1000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	expenseID := body["expense"].(map[string]any)["id"].(string)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/revenue/months/"+monthID+"/revenues", map[string]any{
		"type": "store", "value": 1500, "roi": 1.5, "orders": 20,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/revenue/months/"+monthID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "500", summary["net_profit"])
	assert.Equal(t, "50", summary["roi_pct"])
	assert.Equal(t, float64(20), summary["total_orders"])

	w, _ = doJSON(t, router, http.MethodPut, "/api/v1/revenue/expenses/"+expenseID, map[string]any{"value": 1200})
	require.Equal(t, http.StatusOK, w.Code)

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/revenue/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1200", body["summary"].(map[string]any)["total_expenses"])

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/revenue/expenses/"+expenseID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/revenue/expenses/"+expenseID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/revenue/reports/roi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["channels"], "store")

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/revenue/reports/trend", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/revenue/months/"+monthID+"/expenses", map[string]any{"type": "ads", "value": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanEndpoints(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/plans", map[string]any{"plan_name": "Q4", "min_profit_margin": "20"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	planID := body["plan"].(map[string]any)["id"].(string)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/plans/"+planID+"/products", map[string]any{
		"name": "Argan Oil 100ml", "base_price": "100", "discount_mode": "FIXED_AMOUNT", "discount_value": "40", "cost": "50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/plans/"+planID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["summary"].(map[string]any)["below_min_margin"])

	w, _ = doJSON(t, router, http.MethodPut, "/api/v1/plans/"+planID+"/products/abc", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/plans/"+planID+"/products/0", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/plans/"+planID+"/catalog-products", map[string]any{"name": "Unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["error"])

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/plans/"+planID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, RouterOptions{RateLimitPerSecond: 0.001, RateLimitBurst: 1})

	w, _ := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	doJSON(t, router, http.MethodGet, "/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

// removalFailingRepo fails any write that would drop a campaign in failIDs.
type removalFailingRepo struct {
	domain.CampaignRepository
	failIDs map[string]bool
}

func (r *removalFailingRepo) Update(ctx context.Context, fn func([]domain.Campaign) ([]domain.Campaign, error)) error {
	return r.CampaignRepository.Update(ctx, func(campaigns []domain.Campaign) ([]domain.Campaign, error) {
		before := make(map[string]bool, len(campaigns))
		for _, c := range campaigns {
			before[c.ID] = true
		}
		next, err := fn(campaigns)
		if err != nil {
			return nil, err
		}
		for _, c := range next {
			delete(before, c.ID)
		}
		for id := range before {
			if r.failIDs[id] {
				return nil, fmt.Errorf("%w: disk full", domain.ErrPersistence)
			}
		}
		return next, nil
	})
}

func TestEmptyTrashReportsPartialFailure(t *testing.T) {
	repo := &removalFailingRepo{failIDs: map[string]bool{}}
	router := newTestRouterWithCampaigns(t, RouterOptions{}, func(inner domain.CampaignRepository) domain.CampaignRepository {
		repo.CampaignRepository = inner
		return repo
	})

	var ids []string
	for _, name := range []string{"first", "stuck"} {
		w, body := doJSON(t, router, http.MethodPost, "/api/v1/campaigns", map[string]any{
			"campaign_name": name, "start_date": "2025-03-01", "end_date": "2025-03-30",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		id := body["campaign"].(map[string]any)["id"].(string)
		w, _ = doJSON(t, router, http.MethodPost, "/api/v1/campaigns/"+id+"/trash", nil)
		require.Equal(t, http.StatusOK, w.Code)
		ids = append(ids, id)
	}
	repo.failIDs[ids[1]] = true

	w, body := doJSON(t, router, http.MethodDelete, "/api/v1/campaigns/trash", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	report := body["report"].(map[string]any)
	assert.Equal(t, []any{ids[0]}, report["purged"])
	assert.Contains(t, report["failed"], ids[1])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/campaigns?status=trashed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["campaigns"], 1)
}

func TestSummariesCarryRoundedDisplay(t *testing.T) {
	router := newTestRouter(t, RouterOptions{})

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/revenue/months", map[string]any{
		"month_name": "2025-09", "year": 2025, "month_number": 9,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	monthID := body["month"].(map[string]any)["id"].(string)
	doJSON(t, router, http.MethodPost, "/api/v1/revenue/months/"+monthID+"/expenses", map[string]any{"type": "ads", "value": 300})
	doJSON(t, router, http.MethodPost, "/api/v1/revenue/months/"+monthID+"/revenues", map[string]any{
		"type": "store", "value": 700.5, "roi": 2, "orders": 3,
	})

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/revenue/months/"+monthID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "400.5", summary["net_profit"])
	display := summary["display"].(map[string]any)
	assert.Equal(t, "400", display["net_profit"], "half to even")
	assert.Equal(t, "133.5", display["roi_pct"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/revenue/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	total := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), total["months_count"])
	assert.Equal(t, "700", total["display"].(map[string]any)["avg_revenue_per_month"])
}
