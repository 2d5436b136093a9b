package collector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adscope/internal/config"
	dbpkg "adscope/internal/db"
	"adscope/internal/platforms"
	"adscope/internal/telemetry"
)

// Per-platform caps on one fetch. Google uses the configurable cap
// since its discovery endpoint returns the most.
const (
	metaCap      = 20
	linkedinCap  = 20
	youtubeCap   = 15
	instagramCap = 15
)

// Collector runs competitor ad fetches: it queries every platform
// adapter, deduplicates against stored ads, and records the run as a
// FetchJob row.
type Collector struct {
	db       *gorm.DB
	adapters []platforms.Adapter
	caps     map[string]int

	// bulkDelay spaces competitor fetches in bulk runs so the upstream
	// API rate limit is not tripped. Tests set it to zero.
	bulkDelay time.Duration
}

// New builds a collector with the six production adapters sharing one
// retrying upstream client.
func New(db *gorm.DB, cfg *config.Config) *Collector {
	httpc := platforms.NewHTTPClient(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	client := platforms.NewClient(httpc, cfg.ScrapeBaseURL, cfg.ScrapeAPIKey)

	return NewWithAdapters(db, cfg.MaxAdsPerCompetitor,
		platforms.NewGoogle(client),
		platforms.NewMeta(client),
		platforms.NewReddit(client),
		platforms.NewLinkedIn(client),
		platforms.NewYouTube(client),
		platforms.NewInstagram(client),
	)
}

// NewWithAdapters wires an explicit adapter set; tests use it to
// substitute scripted adapters.
func NewWithAdapters(db *gorm.DB, googleCap int, adapters ...platforms.Adapter) *Collector {
	return &Collector{
		db:       db,
		adapters: adapters,
		caps: map[string]int{
			platforms.Google:    googleCap,
			platforms.Meta:      metaCap,
			platforms.Reddit:    0, // no upstream cap
			platforms.LinkedIn:  linkedinCap,
			platforms.YouTube:   youtubeCap,
			platforms.Instagram: instagramCap,
		},
		bulkDelay: 2 * time.Second,
	}
}

// FetchResult is the outcome of one competitor fetch. On failure only
// Success, Error, FetchID and the competitor identifiers are set.
type FetchResult struct {
	Success         bool           `json:"success"`
	FetchID         uuid.UUID      `json:"fetch_id"`
	CompetitorID    uuid.UUID      `json:"competitor_id"`
	CompetitorName  string         `json:"competitor_name,omitempty"`
	TotalAdsFetched int            `json:"total_ads_fetched"`
	NewAds          int            `json:"new_ads"`
	UpdatedAds      int            `json:"updated_ads"`
	TotalActiveAds  int            `json:"total_active_ads"`
	Platforms       map[string]int `json:"platforms,omitempty"`

	// FailedPlatforms maps platforms whose fetch errored to the error
	// text; their failure does not fail the run.
	FailedPlatforms map[string]string `json:"failed_platforms,omitempty"`

	Error string `json:"error,omitempty"`
}

// FetchCompetitorAds runs one full fetch for a competitor. The FetchJob
// row is committed as "running" before any upstream call so an
// in-flight run is observable; on failure the job and competitor are
// marked failed outside the rolled-back transaction and a structured
// failure result is returned with a nil error.
func (c *Collector) FetchCompetitorAds(ctx context.Context, competitorID, userID uuid.UUID, only []string) (*FetchResult, error) {
	started := time.Now()

	job := &dbpkg.FetchJob{
		UserID:       userID,
		CompetitorID: competitorID,
		Status:       dbpkg.FetchStatusRunning,
		StartedAt:    started,
	}
	if err := c.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("create fetch job: %w", err)
	}

	result, err := c.runFetch(ctx, job, competitorID, userID, only)
	if err != nil {
		log.Printf("fetch failed for competitor %s: %v", competitorID, err)
		c.markFailed(job, competitorID, userID, err)
		telemetry.ObserveFetchJob(dbpkg.FetchStatusFailed, time.Since(started))
		return &FetchResult{
			Success:      false,
			FetchID:      job.ID,
			CompetitorID: competitorID,
			Error:        err.Error(),
		}, nil
	}

	telemetry.ObserveFetchJob(dbpkg.FetchStatusCompleted, time.Since(started))
	return result, nil
}

func (c *Collector) runFetch(ctx context.Context, job *dbpkg.FetchJob, competitorID, userID uuid.UUID, only []string) (*FetchResult, error) {
	competitor, err := dbpkg.CompetitorForUser(c.db, competitorID, userID)
	if err != nil {
		return nil, fmt.Errorf("competitor not found")
	}

	wanted := map[string]bool{}
	for _, p := range only {
		wanted[p] = true
	}
	selected := func(p string) bool { return len(wanted) == 0 || wanted[p] }

	// Per-platform failures are isolated: the platform contributes no
	// ads but the fetch as a whole continues.
	results := map[string][]platforms.NormalizedAd{}
	failed := map[string]string{}
	for _, adapter := range c.adapters {
		platform := adapter.Platform()
		if !selected(platform) {
			continue
		}

		query := competitor.Name
		if platform == platforms.Google {
			if competitor.Domain == "" {
				continue
			}
			query = competitor.Domain
		}

		ads, err := adapter.Search(ctx, query, c.caps[platform])
		if err != nil {
			log.Printf("%s fetch error for %s: %v", platform, competitor.Name, err)
			failed[platform] = err.Error()
			continue
		}
		results[platform] = ads
		telemetry.ObserveAdsFetched(platform, len(ads))
		log.Printf("fetched %d %s ads for %s", len(ads), platform, competitor.Name)
	}

	var (
		totalProcessed int
		newAds         int
		updatedAds     int
		activeAds      int64
	)

	err = c.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		for platform, ads := range results {
			for _, ad := range ads {
				inserted, err := upsertAd(tx, competitor.ID, platform, ad, now)
				if err != nil {
					return err
				}
				if inserted {
					newAds++
				} else {
					updatedAds++
				}
				totalProcessed++
			}
		}

		n, err := dbpkg.CountActiveAds(tx, competitor.ID)
		if err != nil {
			return err
		}
		activeAds = n

		if err := tx.Model(competitor).Updates(map[string]any{
			"last_fetched_at":   now,
			"ads_count":         activeAds,
			"last_fetch_status": dbpkg.FetchStatusCompleted,
		}).Error; err != nil {
			return err
		}

		queried := make([]string, 0, len(results))
		for _, adapter := range c.adapters {
			if len(results[adapter.Platform()]) > 0 {
				queried = append(queried, adapter.Platform())
			}
		}
		queriedJSON, err := json.Marshal(queried)
		if err != nil {
			return err
		}

		completed := time.Now()
		return tx.Model(job).Updates(map[string]any{
			"status":            dbpkg.FetchStatusCompleted,
			"completed_at":      completed,
			"total_ads_fetched": totalProcessed,
			"platforms_queried": string(queriedJSON),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("ads saved for %s: %d new, %d updated, %d total active",
		competitor.Name, newAds, updatedAds, activeAds)

	platformCounts := map[string]int{}
	for platform, ads := range results {
		if len(ads) > 0 {
			platformCounts[platform] = len(ads)
		}
	}

	return &FetchResult{
		Success:         true,
		FetchID:         job.ID,
		CompetitorID:    competitor.ID,
		CompetitorName:  competitor.Name,
		TotalAdsFetched: totalProcessed,
		NewAds:          newAds,
		UpdatedAds:      updatedAds,
		TotalActiveAds:  int(activeAds),
		Platforms:       platformCounts,
		FailedPlatforms: failed,
	}, nil
}

// upsertAd inserts or refreshes one stored ad. Returns true when a new
// row was inserted.
func upsertAd(tx *gorm.DB, competitorID uuid.UUID, platform string, ad platforms.NormalizedAd, now time.Time) (bool, error) {
	platformAdID := ad.ID
	if platformAdID == "" {
		platformAdID = contentHash(ad)
	}

	var existing dbpkg.Ad
	err := tx.Where("competitor_id = ? AND platform = ? AND platform_ad_id = ?",
		competitorID, platform, platformAdID).
		Limit(1).Find(&existing).Error
	if err != nil {
		return false, err
	}

	if existing.ID != uuid.Nil {
		updates := map[string]any{
			"last_seen": now,
			"is_active": true,
		}
		if ad.Impressions != "" {
			updates["impressions"] = ad.Impressions
		}
		if ad.Spend != "" {
			updates["spend"] = ad.Spend
		}
		if ad.Headline != "" && ad.Headline != existing.Headline {
			updates["headline"] = ad.Headline
		}
		if ad.Description != "" && ad.Description != existing.Description {
			updates["description"] = ad.Description
		}
		if ad.DestinationURL != "" && ad.DestinationURL != existing.DestinationURL {
			updates["destination_url"] = ad.DestinationURL
		}
		return false, tx.Model(&existing).Updates(updates).Error
	}

	fullText := ad.FullText
	if fullText == "" {
		fullText = ad.Description
	}

	var rawData string
	if ad.Raw != nil {
		if b, err := json.Marshal(ad.Raw); err == nil {
			rawData = string(b)
		}
	}

	row := &dbpkg.Ad{
		CompetitorID:   competitorID,
		Platform:       platform,
		PlatformAdID:   platformAdID,
		Headline:       ad.Headline,
		Description:    ad.Description,
		FullText:       fullText,
		DestinationURL: ad.DestinationURL,
		ImageURL:       ad.ImageURL,
		VideoURL:       ad.VideoURL,
		Format:         ad.Format,
		Impressions:    ad.Impressions,
		Spend:          ad.Spend,
		IsActive:       true,
		FirstSeen:      now,
		LastSeen:       now,
		RawData:        rawData,
	}
	return true, tx.Create(row).Error
}

// contentHash derives a stable identifier for ads whose source exposes
// no native id. Hashing the normalized fields (not the raw payload)
// keeps the id stable across upstream payload reordering.
func contentHash(ad platforms.NormalizedAd) string {
	b, _ := json.Marshal(ad)
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// markFailed records a failed run. It runs outside the fetch
// transaction so the failure state survives the rollback.
func (c *Collector) markFailed(job *dbpkg.FetchJob, competitorID, userID uuid.UUID, cause error) {
	completed := time.Now()
	if err := c.db.Model(job).Updates(map[string]any{
		"status":        dbpkg.FetchStatusFailed,
		"completed_at":  completed,
		"error_message": cause.Error(),
	}).Error; err != nil {
		log.Printf("failed to record fetch failure: %v", err)
	}

	if err := c.db.Model(&dbpkg.Competitor{}).
		Where("id = ? AND user_id = ?", competitorID, userID).
		Update("last_fetch_status", dbpkg.FetchStatusFailed).Error; err != nil {
		log.Printf("failed to mark competitor failed: %v", err)
	}
}

// FetchAllForUser fetches every active competitor of a user in
// sequence, spacing runs to respect upstream rate limits. Failures are
// isolated per competitor.
func (c *Collector) FetchAllForUser(ctx context.Context, userID uuid.UUID, only []string) []*FetchResult {
	competitors, err := dbpkg.ActiveCompetitors(c.db, userID, nil)
	if err != nil {
		log.Printf("list competitors for %s: %v", userID, err)
		return nil
	}

	results := make([]*FetchResult, 0, len(competitors))
	for i, competitor := range competitors {
		if i > 0 && c.bulkDelay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(c.bulkDelay):
			}
		}

		result, err := c.FetchCompetitorAds(ctx, competitor.ID, userID, only)
		if err != nil {
			log.Printf("bulk fetch error for %s: %v", competitor.Name, err)
			result = &FetchResult{
				Success:        false,
				CompetitorID:   competitor.ID,
				CompetitorName: competitor.Name,
				Error:          err.Error(),
			}
		}
		results = append(results, result)
	}
	return results
}
