package delivery

import (
	"campaignledger/internal/delivery/middleware"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	Gatherer           prometheus.Gatherer
}

type HTTPRouter struct {
	handlers *HTTPHandlers
	logger   *logger.Logger
	metrics  *metrics.Metrics
	opts     RouterOptions
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics, opts RouterOptions) *HTTPRouter {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &HTTPRouter{
		handlers: handlers,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	if r.opts.RateLimitPerSecond > 0 {
		router.Use(middleware.RateLimit(r.opts.RateLimitPerSecond, r.opts.RateLimitBurst))
	}

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/", r.handlers.GetAPIInfo)
		v1.GET("", r.handlers.GetAPIInfo)

		campaigns := v1.Group("/campaigns")
		{
			campaigns.GET("", r.handlers.ListCampaigns)
			campaigns.POST("", r.handlers.CreateCampaign)
			campaigns.GET("/dashboard", r.handlers.GetDashboard)
			campaigns.DELETE("/trash", r.handlers.EmptyTrash)
			campaigns.GET("/:id", r.handlers.GetCampaign)
			campaigns.POST("/:id/products", r.handlers.AddCampaignProduct)
			campaigns.DELETE("/:id/products/:name", r.handlers.RemoveCampaignProduct)
			campaigns.POST("/:id/trash", r.handlers.SoftDeleteCampaign)
			campaigns.POST("/:id/restore", r.handlers.RestoreCampaign)
			campaigns.DELETE("/:id", r.handlers.PurgeCampaign)
		}

		revenue := v1.Group("/revenue")
		{
			revenue.GET("/months", r.handlers.ListMonths)
			revenue.POST("/months", r.handlers.AddMonth)
			revenue.GET("/months/:id", r.handlers.GetMonth)
			revenue.GET("/months/:id/summary", r.handlers.GetMonthSummary)
			revenue.POST("/months/:id/expenses", r.handlers.AddExpense)
			revenue.POST("/months/:id/revenues", r.handlers.AddRevenue)
			revenue.PUT("/expenses/:id", r.handlers.UpdateExpense)
			revenue.DELETE("/expenses/:id", r.handlers.DeleteExpense)
			revenue.PUT("/revenues/:id", r.handlers.UpdateRevenue)
			revenue.DELETE("/revenues/:id", r.handlers.DeleteRevenue)

			reports := revenue.Group("/reports")
			{
				reports.GET("/summary", r.handlers.GetTotalSummary)
				reports.GET("/trend", r.handlers.GetMonthlyTrend)
				reports.GET("/roi", r.handlers.GetROIByChannel)
				reports.GET("/expenses-by-type", r.handlers.GetExpensesByType)
				reports.GET("/revenues-by-type", r.handlers.GetRevenuesByType)
			}
		}

		plans := v1.Group("/plans")
		{
			plans.GET("", r.handlers.ListPlans)
			plans.POST("", r.handlers.CreatePlan)
			plans.GET("/:id", r.handlers.GetPlan)
			plans.DELETE("/:id", r.handlers.DeletePlan)
			plans.GET("/:id/summary", r.handlers.GetPlanSummary)
			plans.POST("/:id/products", r.handlers.AddPlanProduct)
			plans.POST("/:id/catalog-products", r.handlers.AddPlanCatalogProduct)
			plans.PUT("/:id/products/:index", r.handlers.UpdatePlanProduct)
			plans.DELETE("/:id/products/:index", r.handlers.RemovePlanProduct)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("", r.handlers.ListCatalog)
			catalog.GET("/:name", r.handlers.GetCatalogProduct)
		}
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler(r.opts.Gatherer))

	return router
}
