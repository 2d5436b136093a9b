package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "adscope/internal/db"
)

func seedMetricsRow(t *testing.T, db *gorm.DB, competitorID uuid.UUID, period string, fields map[string]any) {
	t.Helper()
	now := time.Now().UTC()
	m := &dbpkg.PeriodMetrics{
		CompetitorID: competitorID,
		TimePeriod:   period,
		StartDate:    now,
		EndDate:      now,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create metrics: %v", err)
	}
	fields["calculated_at"] = now
	if err := db.Model(m).Updates(fields).Error; err != nil {
		t.Fatalf("update metrics: %v", err)
	}
}

func TestWeightedAverageCTR(t *testing.T) {
	db := openTestDB(t)
	user, big := seedCompetitor(t, db, "BigSpender", "big.com", "")
	small := &dbpkg.Competitor{UserID: user.ID, Name: "SmallFry", Domain: "small.io", IsActive: true}
	if err := db.Create(small).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}

	seedMetricsRow(t, db, big.ID, dbpkg.PeriodMonthly, map[string]any{
		"estimated_monthly_spend": 1000.0,
		"avg_ctr":                 0.03,
	})
	seedMetricsRow(t, db, small.ID, dbpkg.PeriodMonthly, map[string]any{
		"estimated_monthly_spend": 0.0,
		"avg_ctr":                 0.05,
	})

	c := NewSummaryCalculator(db, nil)
	summary, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("CalculateForUser: %v", err)
	}

	// Spend-weighted: the spendless competitor counts with weight 1.
	want := (1000*0.03 + 1*0.05) / 1001
	if math.Abs(summary.AvgCTR-want) > 1e-9 {
		t.Errorf("AvgCTR = %v, want %v", summary.AvgCTR, want)
	}
	if summary.TotalCompetitors != 2 {
		t.Errorf("TotalCompetitors = %d, want 2", summary.TotalCompetitors)
	}
	if summary.TotalCompetitorSpend != 1000 {
		t.Errorf("TotalCompetitorSpend = %v, want 1000", summary.TotalCompetitorSpend)
	}
}

func TestImpressionsDerivedFromSpendAndCPM(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")

	seedMetricsRow(t, db, competitor.ID, dbpkg.PeriodMonthly, map[string]any{
		"estimated_monthly_spend": 5000.0,
		"avg_cpm":                 2.5,
	})

	c := NewSummaryCalculator(db, nil)
	summary, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("CalculateForUser: %v", err)
	}

	// 5000 / 2.5 * 1000 impressions.
	if summary.TotalImpressions != 2000000 {
		t.Errorf("TotalImpressions = %d, want 2000000", summary.TotalImpressions)
	}
}

func TestImpressionsUseDefaultCPMWhenMissing(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")

	seedMetricsRow(t, db, competitor.ID, dbpkg.PeriodMonthly, map[string]any{
		"estimated_monthly_spend": 1000.0,
	})

	c := NewSummaryCalculator(db, nil)
	summary, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("CalculateForUser: %v", err)
	}

	// 1000 / 10.0 * 1000 with the default CPM.
	if summary.TotalImpressions != 100000 {
		t.Errorf("TotalImpressions = %d, want 100000", summary.TotalImpressions)
	}
}

func TestSpendFallsBackToCompetitorEstimate(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme", "acme.com", "")
	if err := db.Model(competitor).Update("estimated_monthly_spend", 750.0).Error; err != nil {
		t.Fatalf("set spend: %v", err)
	}

	c := NewSummaryCalculator(db, nil)
	summary, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("CalculateForUser: %v", err)
	}
	if summary.TotalCompetitorSpend != 750 {
		t.Errorf("TotalCompetitorSpend = %v, want 750", summary.TotalCompetitorSpend)
	}
}

func TestEmptySummaryForUserWithoutCompetitors(t *testing.T) {
	db := openTestDB(t)
	user := &dbpkg.User{Email: "nobody@example.com", PasswordHash: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	c := NewSummaryCalculator(db, nil)
	summary, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("CalculateForUser: %v", err)
	}
	if summary.TotalCompetitors != 0 || summary.TotalCompetitorSpend != 0 ||
		summary.ActiveCampaigns != 0 || summary.TotalImpressions != 0 || summary.AvgCTR != 0 {
		t.Errorf("expected all-zeros summary, got %+v", summary)
	}
	if !summary.IsActive {
		t.Error("summary not active")
	}
}

func TestSummaryCacheTTL(t *testing.T) {
	db := openTestDB(t)
	user, _ := seedCompetitor(t, db, "Acme", "acme.com", "")

	base := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	c := NewSummaryCalculator(db, nil)
	c.now = fixedClock(base)

	first, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Two hours later the cached row is still fresh.
	c.now = fixedClock(base.Add(2 * time.Hour))
	second, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.CalculatedAt.Equal(first.CalculatedAt) {
		t.Error("summary recalculated inside TTL")
	}

	// Seven hours later it is stale.
	c.now = fixedClock(base.Add(7 * time.Hour))
	third, err := c.CalculateForUser(user.ID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.CalculatedAt.Equal(first.CalculatedAt) {
		t.Error("stale summary not recalculated")
	}

	var count int64
	db.Model(&dbpkg.UserSummary{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("summary rows = %d, want 1", count)
	}
}

func TestDashboardAggregates(t *testing.T) {
	db := openTestDB(t)
	user, alpha := seedCompetitor(t, db, "Alpha", "alpha.com", "")
	beta := &dbpkg.Competitor{UserID: user.ID, Name: "Beta", Domain: "beta.io", IsActive: true}
	if err := db.Create(beta).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}
	if err := db.Model(alpha).Update("estimated_monthly_spend", 900.0).Error; err != nil {
		t.Fatalf("set spend: %v", err)
	}
	if err := db.Model(beta).Update("estimated_monthly_spend", 300.0).Error; err != nil {
		t.Fatalf("set spend: %v", err)
	}

	now := time.Now().UTC()
	seedAd(t, db, alpha.ID, "google", "One", now, nil)
	seedAd(t, db, alpha.ID, "google", "Two", now, nil)
	seedAd(t, db, alpha.ID, "meta", "Three", now, nil)
	seedAd(t, db, beta.ID, "meta", "Four", now, nil)

	c := NewSummaryCalculator(db, nil)
	dashboard, err := c.GetDashboard(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}

	if dashboard.PlatformDistribution["google"] != 50 {
		t.Errorf("google share = %v, want 50", dashboard.PlatformDistribution["google"])
	}
	if dashboard.PlatformDistribution["meta"] != 50 {
		t.Errorf("meta share = %v, want 50", dashboard.PlatformDistribution["meta"])
	}

	if len(dashboard.TopCompetitors) != 2 {
		t.Fatalf("top competitors = %v", dashboard.TopCompetitors)
	}
	if dashboard.TopCompetitors[0].Name != "Alpha" || dashboard.TopCompetitors[0].MonthlySpend != 900 {
		t.Errorf("leaderboard head = %+v", dashboard.TopCompetitors[0])
	}
	if dashboard.TopCompetitors[1].ActiveAds != 1 {
		t.Errorf("beta active ads = %d, want 1", dashboard.TopCompetitors[1].ActiveAds)
	}

	if dashboard.ActiveCampaigns != 4 {
		t.Errorf("active campaigns = %d, want 4", dashboard.ActiveCampaigns)
	}
	if dashboard.TotalCompetitorSpend != 1200 {
		t.Errorf("total spend = %v, want 1200", dashboard.TotalCompetitorSpend)
	}
}
