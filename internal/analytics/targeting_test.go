package analytics

import (
	"math"
	"testing"
	"time"

	"gorm.io/datatypes"

	dbpkg "adscope/internal/db"
)

func TestZeroDataTargetingUsesDefaults(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")

	c := NewTargetingCalculator(db)
	intel, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("CalculateForCompetitor: %v", err)
	}
	if intel == nil {
		t.Fatal("no intel returned")
	}

	if intel.AgeRange != "25-34" || intel.AgeMin != 25 || intel.AgeMax != 34 {
		t.Errorf("age = %s (%d-%d), want default 25-34", intel.AgeRange, intel.AgeMin, intel.AgeMax)
	}
	if intel.PrimaryGender != "balanced" {
		t.Errorf("gender = %s, want balanced", intel.PrimaryGender)
	}
	if intel.PrimaryLocation != "United States" {
		t.Errorf("location = %s", intel.PrimaryLocation)
	}
	if math.Abs(intel.OverallConfidence-0.1) > 1e-9 {
		t.Errorf("overall confidence = %v, want 0.1", intel.OverallConfidence)
	}
	if len(intel.InterestClusters) != 2 {
		t.Errorf("interest clusters = %v", intel.InterestClusters)
	}
	if intel.LastCalculatedAt == nil {
		t.Error("LastCalculatedAt not set")
	}
}

func TestCachedIntelServedWithinTTL(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")

	base := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	c := NewTargetingCalculator(db)
	c.now = fixedClock(base)

	first, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// One hour later: still inside the 24h TTL, same row comes back.
	c.now = fixedClock(base.Add(time.Hour))
	second, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.LastCalculatedAt.Equal(*first.LastCalculatedAt) {
		t.Error("cached row was recalculated inside TTL")
	}

	// Force bypasses the cache.
	forced, err := c.CalculateForCompetitor(competitor.ID, user.ID, true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if forced.LastCalculatedAt.Equal(*first.LastCalculatedAt) {
		t.Error("force did not recalculate")
	}

	var count int64
	db.Model(&dbpkg.TargetingIntel{}).Where("competitor_id = ?", competitor.ID).Count(&count)
	if count != 1 {
		t.Errorf("intel rows = %d, want 1", count)
	}
}

func TestGenderInferredFromAdCopy(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Glow", "glow.com", "")

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedAd(t, db, competitor.ID, "instagram", "Radiant looks", now, func(ad *dbpkg.Ad) {
			ad.Description = "she will love it, a gift made for her"
		})
	}

	c := NewTargetingCalculator(db)
	intel, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("CalculateForCompetitor: %v", err)
	}
	if intel.PrimaryGender != "female" {
		t.Errorf("gender = %s, want female", intel.PrimaryGender)
	}
	female, _ := intel.GenderRatio["female"].(float64)
	if female <= 0.6 {
		t.Errorf("female ratio = %v, want > 0.6", female)
	}
}

func TestAgeInferredFromCompetitorName(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Sunrise Senior Living", "sunrise.com", "")

	// One contentless ad so the calculator takes the inference path
	// instead of writing the all-defaults row.
	seedAd(t, db, competitor.ID, "google", "", time.Now().UTC(), nil)

	c := NewTargetingCalculator(db)
	intel, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("CalculateForCompetitor: %v", err)
	}
	if intel.AgeRange != "55+" || intel.AgeMin != 55 || intel.AgeMax != 75 {
		t.Errorf("age = %s (%d-%d), want 55+ (55-75)", intel.AgeRange, intel.AgeMin, intel.AgeMax)
	}
}

func TestFunnelStageFromMetricsDistribution(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")

	m := &dbpkg.PeriodMetrics{
		CompetitorID: competitor.ID,
		TimePeriod:   dbpkg.PeriodDaily,
		StartDate:    time.Now().UTC(),
		EndDate:      time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create metrics: %v", err)
	}
	if err := db.Model(m).Updates(map[string]any{
		"calculated_at": time.Now().UTC(),
		"funnel_stage_distribution": datatypes.JSONMap{
			"purchase":  0.8,
			"awareness": 0.2,
		},
	}).Error; err != nil {
		t.Fatalf("update metrics: %v", err)
	}

	c := NewTargetingCalculator(db)
	intel, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("CalculateForCompetitor: %v", err)
	}

	// "purchase" maps onto the conversion stage.
	if intel.FunnelStage != "conversion" {
		t.Errorf("funnel stage = %s, want conversion", intel.FunnelStage)
	}
	if math.Abs(intel.FunnelScore-0.8) > 1e-9 {
		t.Errorf("funnel score = %v, want 0.8", intel.FunnelScore)
	}
}

func TestConfidenceScalesWithDataQuality(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")

	now := time.Now().UTC()
	for i := 0; i < 10; i++ {
		seedAd(t, db, competitor.ID, "meta", "Buy now", now, func(ad *dbpkg.Ad) {
			ad.Format = "video"
		})
	}

	m := &dbpkg.PeriodMetrics{
		CompetitorID: competitor.ID,
		TimePeriod:   dbpkg.PeriodDaily,
		StartDate:    now,
		EndDate:      now,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create metrics: %v", err)
	}
	if err := db.Model(m).Updates(map[string]any{"calculated_at": now}).Error; err != nil {
		t.Fatalf("update metrics: %v", err)
	}

	c := NewTargetingCalculator(db)
	intel, err := c.CalculateForCompetitor(competitor.ID, user.ID, false)
	if err != nil {
		t.Fatalf("CalculateForCompetitor: %v", err)
	}

	// Metrics present and 10 ads: full data quality, so the content
	// dimension (10 ads / 10) stays at 1.0 after scaling.
	content, _ := intel.ConfidenceScores["content"].(float64)
	if content != 1.0 {
		t.Errorf("content confidence = %v, want 1.0", content)
	}
	if intel.OverallConfidence <= 0.1 {
		t.Errorf("overall confidence = %v, want above default", intel.OverallConfidence)
	}
	if intel.ContentType != "video" {
		t.Errorf("content type = %s, want video", intel.ContentType)
	}
}

func TestBulkCalculationIsolatesCompetitors(t *testing.T) {
	db := openTestDB(t)
	user, a := seedCompetitor(t, db, "Alpha", "alpha.com", "")
	b := &dbpkg.Competitor{UserID: user.ID, Name: "Beta", Domain: "beta.io", IsActive: true}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("create second competitor: %v", err)
	}
	inactive := &dbpkg.Competitor{UserID: user.ID, Name: "Gone", IsActive: false}
	if err := db.Create(inactive).Error; err != nil {
		t.Fatalf("create inactive competitor: %v", err)
	}

	c := NewTargetingCalculator(db)
	result := c.CalculateForUser(user.ID, nil, false)

	if !result.Success {
		t.Fatalf("bulk run failed: %s", result.Message)
	}
	if result.TotalCompetitors != 2 || result.Calculated != 2 || result.Failed != 0 {
		t.Errorf("bulk counts = %+v", result)
	}
	for _, r := range result.Results {
		if r.CompetitorID != a.ID && r.CompetitorID != b.ID {
			t.Errorf("unexpected competitor in results: %s", r.CompetitorName)
		}
	}
}

func TestBulkCalculationWithNoCompetitors(t *testing.T) {
	db := openTestDB(t)
	user := &dbpkg.User{Email: "empty@example.com", PasswordHash: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	c := NewTargetingCalculator(db)
	result := c.CalculateForUser(user.ID, nil, false)
	if result.Success {
		t.Error("bulk run reported success with no competitors")
	}
	if result.Message != "No active competitors found" {
		t.Errorf("message = %q", result.Message)
	}
}
