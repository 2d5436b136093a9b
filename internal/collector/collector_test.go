package collector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "adscope/internal/db"
	"adscope/internal/platforms"
)

type fakeAdapter struct {
	platform string
	ads      []platforms.NormalizedAd
	err      error
	queries  []string
}

func (f *fakeAdapter) Platform() string { return f.platform }

func (f *fakeAdapter) Search(ctx context.Context, query string, maxResults int) ([]platforms.NormalizedAd, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.ads, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := dbpkg.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCompetitor(t *testing.T, db *gorm.DB, name, domain string) (*dbpkg.User, *dbpkg.Competitor) {
	t.Helper()
	user := &dbpkg.User{Email: name + "@example.com", PasswordHash: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	competitor := &dbpkg.Competitor{UserID: user.ID, Name: name, Domain: domain, IsActive: true}
	if err := db.Create(competitor).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}
	return user, competitor
}

func newTestCollector(db *gorm.DB, adapters ...platforms.Adapter) *Collector {
	c := NewWithAdapters(db, 50, adapters...)
	c.bulkDelay = 0
	return c
}

func TestFetchInsertsNewAds(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com")

	meta := &fakeAdapter{platform: platforms.Meta, ads: []platforms.NormalizedAd{
		{ID: "m-1", Headline: "Sale", Description: "Big sale"},
		{ID: "m-2", Headline: "New product"},
	}}
	c := newTestCollector(db, meta)

	result, err := c.FetchCompetitorAds(context.Background(), competitor.ID, user.ID, nil)
	if err != nil {
		t.Fatalf("FetchCompetitorAds: %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %+v", result)
	}
	if result.NewAds != 2 || result.UpdatedAds != 0 || result.TotalActiveAds != 2 {
		t.Errorf("counts = %+v", result)
	}

	var refreshed dbpkg.Competitor
	if err := db.First(&refreshed, "id = ?", competitor.ID).Error; err != nil {
		t.Fatalf("reload competitor: %v", err)
	}
	if refreshed.AdsCount != 2 || refreshed.LastFetchStatus != dbpkg.FetchStatusCompleted {
		t.Errorf("competitor not updated: %+v", refreshed)
	}
	if refreshed.LastFetchedAt == nil {
		t.Error("LastFetchedAt not set")
	}
}

func TestRefetchUpdatesInsteadOfDuplicating(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com")

	meta := &fakeAdapter{platform: platforms.Meta, ads: []platforms.NormalizedAd{
		{ID: "m-1", Headline: "Sale", Description: "Big sale", Impressions: "10k"},
	}}
	c := newTestCollector(db, meta)
	ctx := context.Background()

	if _, err := c.FetchCompetitorAds(ctx, competitor.ID, user.ID, nil); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// Second run observes the same ad with a changed headline and empty
	// description; the headline updates, the description stays.
	meta.ads = []platforms.NormalizedAd{
		{ID: "m-1", Headline: "Bigger Sale", Impressions: "20k"},
	}
	result, err := c.FetchCompetitorAds(ctx, competitor.ID, user.ID, nil)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if result.NewAds != 0 || result.UpdatedAds != 1 {
		t.Errorf("counts = %+v", result)
	}

	var ads []dbpkg.Ad
	if err := db.Find(&ads, "competitor_id = ?", competitor.ID).Error; err != nil {
		t.Fatalf("load ads: %v", err)
	}
	if len(ads) != 1 {
		t.Fatalf("ads = %d, want 1 (deduplicated)", len(ads))
	}
	ad := ads[0]
	if ad.Headline != "Bigger Sale" {
		t.Errorf("headline = %q, want updated", ad.Headline)
	}
	if ad.Description != "Big sale" {
		t.Errorf("description = %q, want preserved when new value empty", ad.Description)
	}
	if ad.Impressions != "20k" {
		t.Errorf("impressions = %q, want refreshed", ad.Impressions)
	}
	if !ad.LastSeen.After(ad.FirstSeen) {
		t.Error("last_seen not advanced past first_seen")
	}
}

func TestMissingNativeIDGetsStableHash(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "")

	reddit := &fakeAdapter{platform: platforms.Reddit, ads: []platforms.NormalizedAd{
		{Headline: "No id here", Description: "Same payload"},
	}}
	c := newTestCollector(db, reddit)
	ctx := context.Background()

	if _, err := c.FetchCompetitorAds(ctx, competitor.ID, user.ID, nil); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	result, err := c.FetchCompetitorAds(ctx, competitor.ID, user.ID, nil)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if result.NewAds != 0 || result.UpdatedAds != 1 {
		t.Errorf("hash dedup failed: %+v", result)
	}

	var ad dbpkg.Ad
	if err := db.First(&ad, "competitor_id = ?", competitor.ID).Error; err != nil {
		t.Fatalf("load ad: %v", err)
	}
	if len(ad.PlatformAdID) != 32 {
		t.Errorf("platform_ad_id = %q, want md5 hex", ad.PlatformAdID)
	}
}

func TestOnePlatformFailureIsIsolated(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com")

	meta := &fakeAdapter{platform: platforms.Meta, err: errors.New("upstream 500")}
	linkedin := &fakeAdapter{platform: platforms.LinkedIn, ads: []platforms.NormalizedAd{
		{ID: "li-1", Headline: "Hire"},
	}}
	c := newTestCollector(db, meta, linkedin)

	result, err := c.FetchCompetitorAds(context.Background(), competitor.ID, user.ID, nil)
	if err != nil {
		t.Fatalf("FetchCompetitorAds: %v", err)
	}
	if !result.Success || result.NewAds != 1 {
		t.Fatalf("fetch should succeed with remaining platforms: %+v", result)
	}
	if result.FailedPlatforms[platforms.Meta] == "" {
		t.Errorf("FailedPlatforms = %v, want meta recorded", result.FailedPlatforms)
	}

	var job dbpkg.FetchJob
	if err := db.First(&job, "id = ?", result.FetchID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != dbpkg.FetchStatusCompleted {
		t.Errorf("job status = %q", job.Status)
	}

	var queried []string
	if err := json.Unmarshal([]byte(job.PlatformsQueried), &queried); err != nil {
		t.Fatalf("platforms_queried not JSON: %v", err)
	}
	if len(queried) != 1 || queried[0] != platforms.LinkedIn {
		t.Errorf("platforms_queried = %v, want only linkedin", queried)
	}
}

func TestGoogleSkippedWithoutDomain(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "")

	google := &fakeAdapter{platform: platforms.Google, ads: []platforms.NormalizedAd{{ID: "g-1"}}}
	c := newTestCollector(db, google)

	result, err := c.FetchCompetitorAds(context.Background(), competitor.ID, user.ID, nil)
	if err != nil {
		t.Fatalf("FetchCompetitorAds: %v", err)
	}
	if result.TotalAdsFetched != 0 {
		t.Errorf("google should be skipped without a domain: %+v", result)
	}
	if len(google.queries) != 0 {
		t.Errorf("google adapter was queried: %v", google.queries)
	}
}

func TestGoogleQueriedByDomainOthersByName(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com")

	google := &fakeAdapter{platform: platforms.Google}
	meta := &fakeAdapter{platform: platforms.Meta}
	c := newTestCollector(db, google, meta)

	if _, err := c.FetchCompetitorAds(context.Background(), competitor.ID, user.ID, nil); err != nil {
		t.Fatalf("FetchCompetitorAds: %v", err)
	}
	if len(google.queries) != 1 || google.queries[0] != "acme.com" {
		t.Errorf("google queries = %v, want domain", google.queries)
	}
	if len(meta.queries) != 1 || meta.queries[0] != "Acme" {
		t.Errorf("meta queries = %v, want name", meta.queries)
	}
}

func TestPlatformFilterRestrictsAdapters(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com")

	meta := &fakeAdapter{platform: platforms.Meta, ads: []platforms.NormalizedAd{{ID: "m-1"}}}
	linkedin := &fakeAdapter{platform: platforms.LinkedIn, ads: []platforms.NormalizedAd{{ID: "li-1"}}}
	c := newTestCollector(db, meta, linkedin)

	result, err := c.FetchCompetitorAds(context.Background(), competitor.ID, user.ID, []string{platforms.Meta})
	if err != nil {
		t.Fatalf("FetchCompetitorAds: %v", err)
	}
	if result.TotalAdsFetched != 1 {
		t.Errorf("total = %d, want 1", result.TotalAdsFetched)
	}
	if len(linkedin.queries) != 0 {
		t.Errorf("linkedin should not be queried: %v", linkedin.queries)
	}
}

func TestUnknownCompetitorFailsJob(t *testing.T) {
	db := openTestDB(t)
	user, _ := seedCompetitor(t, db, "Acme", "acme.com")

	c := newTestCollector(db, &fakeAdapter{platform: platforms.Meta})

	result, err := c.FetchCompetitorAds(context.Background(), uuid.New(), user.ID, nil)
	if err != nil {
		t.Fatalf("FetchCompetitorAds: %v", err)
	}
	if result.Success {
		t.Fatal("expected structured failure")
	}
	if result.Error == "" {
		t.Error("failure carries no error message")
	}

	var job dbpkg.FetchJob
	if err := db.First(&job, "id = ?", result.FetchID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != dbpkg.FetchStatusFailed || job.ErrorMessage == "" {
		t.Errorf("job = %+v, want failed with message", job)
	}
	if job.CompletedAt == nil {
		t.Error("failed job has no completed_at")
	}
}

func TestFetchAllForUserIsolatesCompetitors(t *testing.T) {
	db := openTestDB(t)
	user, _ := seedCompetitor(t, db, "Acme", "acme.com")

	second := &dbpkg.Competitor{UserID: user.ID, Name: "Globex", IsActive: true}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}
	inactive := &dbpkg.Competitor{UserID: user.ID, Name: "Initech", IsActive: false}
	if err := db.Create(inactive).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}

	meta := &fakeAdapter{platform: platforms.Meta, ads: []platforms.NormalizedAd{{ID: "m-1"}}}
	c := newTestCollector(db, meta)

	results := c.FetchAllForUser(context.Background(), user.ID, nil)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (inactive skipped)", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("fetch failed for %s: %s", r.CompetitorID, r.Error)
		}
	}
}
