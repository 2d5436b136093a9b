package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	AdminEmail    string
	AdminPassword string

	DatabaseURL string

	ListenAddr string

	// ScrapeAPIKey authenticates calls to the upstream ad-scraping API
	// that all six platform adapters go through. If empty, collection
	// endpoints will fail fast with a config error.
	ScrapeAPIKey string

	// ScrapeBaseURL lets tests and self-hosted proxies redirect adapter
	// traffic. Default is the hosted scraping API.
	ScrapeBaseURL string

	// FetchTimeoutSec is the per-request hard timeout for adapter calls.
	FetchTimeoutSec int

	// MaxAdsPerCompetitor caps how many ads one platform fetch may return.
	MaxAdsPerCompetitor int

	// AdStaleDays is the number of days after which an ad that has not
	// been re-observed is flipped inactive by the expiry worker.
	AdStaleDays int

	// RedisAddr enables the optional dashboard cache when non-empty.
	RedisAddr     string
	RedisPassword string

	// BootstrapAPIKey, when set, is created on startup as an active API
	// key owned by the bootstrap admin so headless deployments can call
	// the API without a manual key-creation step.
	BootstrapAPIKey string
}

// Load reads configuration from environment variables and applies
// defaults for anything unset.
func Load() *Config {
	cfg := &Config{
		AdminEmail:          getenv("APP_ADMIN_EMAIL", "admin@localhost"),
		AdminPassword:       getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:         os.Getenv("APP_DATABASE_URL"),
		ListenAddr:          getenv("APP_LISTEN_ADDR", ":8080"),
		ScrapeAPIKey:        os.Getenv("APP_SCRAPE_API_KEY"),
		ScrapeBaseURL:       getenv("APP_SCRAPE_BASE_URL", "https://api.scrapecreators.com"),
		FetchTimeoutSec:     30,
		MaxAdsPerCompetitor: 50,
		AdStaleDays:         30,
		RedisAddr:           os.Getenv("APP_REDIS_ADDR"),
		RedisPassword:       os.Getenv("APP_REDIS_PASSWORD"),
		BootstrapAPIKey:     os.Getenv("APP_API_KEY"),
	}

	if v := os.Getenv("APP_FETCH_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeoutSec = n
		}
	}
	if v := os.Getenv("APP_MAX_ADS_PER_COMPETITOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAdsPerCompetitor = n
		}
	}
	if v := os.Getenv("APP_AD_STALE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdStaleDays = n
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
