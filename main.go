package main

import (
	"context"
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"adscope/internal/analytics"
	"adscope/internal/cache"
	"adscope/internal/collector"
	"adscope/internal/config"
	"adscope/internal/db"
	"adscope/internal/http/handlers"
	appmw "adscope/internal/http/middleware"
	"adscope/internal/telemetry"
	"adscope/internal/trending"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}
	if cfg.BootstrapAPIKey != "" {
		if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
			log.Printf("warning: failed to ensure bootstrap API key: %v", err)
		} else {
			log.Printf("bootstrap API key configured and associated with admin user")
		}
	}

	var redisCache *cache.Client
	if cfg.RedisAddr != "" {
		redisCache, err = cache.New(context.Background(), cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			log.Printf("warning: redis unavailable, caching disabled: %v", err)
			redisCache = nil
		}
	}

	telemetry.InitPrometheusMetrics()

	db.StartAdExpiryWorker(sqlDB, cfg.AdStaleDays)
	analytics.StartDailyCalculationWorker(sqlDB)

	fetcher := collector.New(sqlDB, cfg)
	trendingSvc := trending.NewFromConfig(cfg)
	metricsCalc := analytics.NewMetricsCalculator(sqlDB)
	targetingCalc := analytics.NewTargetingCalculator(sqlDB)
	summaryCalc := analytics.NewSummaryCalculator(sqlDB, redisCache)

	r := router.New()
	auth := appmw.BearerAuth(sqlDB)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})
	r.GET("/metrics", handlers.PrometheusMetricsHandler())

	r.GET("/v1/competitors", auth(handlers.ListCompetitors(sqlDB)))
	r.POST("/v1/competitors", auth(handlers.CreateCompetitor(sqlDB)))
	r.GET("/v1/competitors/{id}", auth(handlers.GetCompetitor(sqlDB)))
	r.PATCH("/v1/competitors/{id}", auth(handlers.UpdateCompetitor(sqlDB)))
	r.DELETE("/v1/competitors/{id}", auth(handlers.DeleteCompetitor(sqlDB)))

	r.POST("/v1/competitors/{id}/collect", auth(handlers.CollectCompetitor(fetcher)))
	r.POST("/v1/collect", auth(handlers.CollectAll(fetcher)))

	r.GET("/v1/competitors/{id}/ads", auth(handlers.ListCompetitorAds(sqlDB)))
	r.GET("/v1/ads", auth(handlers.ListAllAds(sqlDB)))
	r.GET("/v1/fetches", auth(handlers.ListFetchJobs(sqlDB)))

	r.POST("/v1/trending/search", auth(handlers.SearchTrending(trendingSvc)))
	r.GET("/v1/trending/platforms", auth(handlers.TrendingPlatforms(trendingSvc)))

	r.POST("/v1/metrics/calculate", auth(handlers.CalculateMetrics(sqlDB, metricsCalc)))
	r.GET("/v1/metrics/{id}", auth(handlers.LatestMetrics(sqlDB)))

	r.POST("/v1/targeting/calculate", auth(handlers.CalculateTargeting(sqlDB, targetingCalc)))
	r.GET("/v1/targeting/{id}", auth(handlers.LatestTargeting(sqlDB)))

	r.POST("/v1/summary/calculate", auth(handlers.CalculateSummary(summaryCalc)))
	r.GET("/v1/summary/dashboard", auth(handlers.SummaryDashboard(summaryCalc)))

	r.POST("/v1/apikeys", auth(handlers.CreateAPIKey(sqlDB)))
	r.GET("/v1/apikeys", auth(handlers.ListAPIKeys(sqlDB)))
	r.DELETE("/v1/apikeys/{id}", auth(handlers.DeleteAPIKey(sqlDB, cfg)))

	r.POST("/v1/users", auth(handlers.CreateUser(sqlDB)))
	r.GET("/v1/users", auth(handlers.ListUsers(sqlDB)))
	r.POST("/v1/users/{id}/deactivate", auth(handlers.DeactivateUser(sqlDB, cfg)))

	handler := handlers.RequestLogger(r.Handler)

	log.Printf("adscope listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
