package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaignledger/internal/delivery"
	"campaignledger/internal/domain"
	"campaignledger/internal/infrastructure"
	"campaignledger/internal/usecase"
	"campaignledger/pkg/config"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(cfg.Logging.Level, logger.Options{Format: cfg.Logging.Format})
	log.Info("Starting campaign ledger server")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	store, err := infrastructure.NewJSONStore(cfg.Storage.DataDir, log, m)
	if err != nil {
		return err
	}
	campaignRepo := infrastructure.NewCampaignRepository(store, "campaigns", log)
	planRepo := infrastructure.NewPlanRepository(store, "pricing_plans", log)
	catalogRepo := infrastructure.NewCatalogRepository(store, "products_pricing")

	db, err := infrastructure.OpenDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	revenueRepo := infrastructure.NewRevenueRepository(db, log, m)

	assets, err := newAssetStore(ctx, cfg.Assets)
	if err != nil {
		return err
	}

	cache, closeCache, err := newSummaryCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	catalogService := usecase.NewCatalogService(catalogRepo)
	handlers := delivery.NewHTTPHandlers(
		usecase.NewCampaignService(campaignRepo, assets, log, m),
		usecase.NewRevenueService(revenueRepo, cache, log, m),
		usecase.NewPricingService(planRepo, catalogService, log, m),
		catalogService,
		log,
	)
	router := delivery.NewHTTPRouter(handlers, log, m, delivery.RouterOptions{
		RateLimitPerSecond: float64(cfg.Server.RateLimitPerSecond),
		RateLimitBurst:     cfg.Server.RateLimitBurst,
		Gatherer:           prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]any{
			"port":     cfg.Server.Port,
			"data_dir": cfg.Storage.DataDir,
			"database": cfg.Database.Driver,
			"assets":   cfg.Assets.Backend,
			"cache":    cfg.Cache.Backend,
		}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func newAssetStore(ctx context.Context, cfg config.AssetConfig) (domain.AssetStore, error) {
	if cfg.Backend == "s3" {
		return infrastructure.NewS3AssetStore(ctx, infrastructure.S3AssetConfig{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
	}
	return infrastructure.NewLocalAssetStore(cfg.Dir), nil
}

func newSummaryCache(ctx context.Context, cfg config.CacheConfig) (domain.SummaryCache, func(), error) {
	if cfg.Backend == "redis" {
		cache, err := infrastructure.NewRedisSummaryCache(ctx, infrastructure.RedisCacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	}
	return infrastructure.NewMemorySummaryCache(cfg.TTL), func() {}, nil
}
