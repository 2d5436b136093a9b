package analytics

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adscope/internal/cache"
	dbpkg "adscope/internal/db"
	"adscope/internal/telemetry"
)

// defaultSummaryCPM prices impression estimates when a competitor's
// metrics carry no CPM.
const defaultSummaryCPM = 10.0

const dashboardCacheTTL = 5 * time.Minute

// SummaryCalculator rolls all of a user's competitors into one
// UserSummary row per time period. Cache may be nil.
type SummaryCalculator struct {
	db       *gorm.DB
	cache    *cache.Client
	now      func() time.Time
	cacheTTL time.Duration
}

func NewSummaryCalculator(db *gorm.DB, c *cache.Client) *SummaryCalculator {
	return &SummaryCalculator{db: db, cache: c, now: time.Now, cacheTTL: 6 * time.Hour}
}

// CalculateForUser computes (or returns the cached) summary for one
// user and period. A row fresher than the TTL short-circuits unless
// force is set. A user with no active competitors gets an all-zeros row.
func (c *SummaryCalculator) CalculateForUser(userID uuid.UUID, period string, competitorIDs []uuid.UUID, force bool) (*dbpkg.UserSummary, error) {
	started := time.Now()
	defer func() { telemetry.ObserveCalculation("user_summary", time.Since(started)) }()

	startDate, endDate := c.summaryDateRange(period)

	if !force {
		var cached dbpkg.UserSummary
		err := c.db.Where("user_id = ? AND time_period = ? AND is_active = ? AND calculated_at >= ?",
			userID, period, true, c.now().Add(-c.cacheTTL)).
			Limit(1).Find(&cached).Error
		if err != nil {
			return nil, err
		}
		if cached.ID != uuid.Nil {
			log.Printf("using cached summary for user %s, period %s", userID, period)
			return &cached, nil
		}
	}

	competitors, err := dbpkg.ActiveCompetitors(c.db, userID, competitorIDs)
	if err != nil {
		return nil, err
	}
	if len(competitors) == 0 {
		log.Printf("no active competitors for user %s, writing empty summary", userID)
		return c.upsertSummary(userID, period, startDate, endDate, summaryTotals{})
	}

	var totals summaryTotals
	totals.competitors = len(competitors)

	var ctrValues []float64
	for _, competitor := range competitors {
		metrics, err := c.latestMetrics(competitor.ID, period)
		if err != nil {
			return nil, err
		}

		monthlySpend := 0.0
		if metrics != nil && metrics.EstimatedMonthlySpend > 0 {
			monthlySpend = metrics.EstimatedMonthlySpend
		} else if competitor.EstimatedMonthlySpend > 0 {
			monthlySpend = competitor.EstimatedMonthlySpend
		}
		totals.spend += monthlySpend

		activeAds, err := dbpkg.CountActiveAds(c.db, competitor.ID)
		if err != nil {
			return nil, err
		}
		totals.activeCampaigns += int(activeAds)

		if metrics != nil {
			ctr := metrics.AvgCTR
			ctrValues = append(ctrValues, ctr)

			// CTR averages weighted by spend so a high-spend competitor
			// dominates; spendless competitors count with weight 1.
			weight := monthlySpend
			if weight <= 0 {
				weight = 1
			}
			totals.weightedCTR += ctr * weight
			totals.ctrWeight += weight

			totals.impressions += estimateSummaryImpressions(metrics, monthlySpend)
		}
	}

	if totals.ctrWeight > 0 {
		totals.avgCTR = totals.weightedCTR / totals.ctrWeight
	} else if len(ctrValues) > 0 {
		sum := 0.0
		for _, v := range ctrValues {
			sum += v
		}
		totals.avgCTR = sum / float64(len(ctrValues))
	}

	log.Printf("summary for user %s: $%.0f spend, %d active ads, %d competitors, %.4f avg CTR",
		userID, totals.spend, totals.activeCampaigns, totals.competitors, totals.avgCTR)

	return c.upsertSummary(userID, period, startDate, endDate, totals)
}

type summaryTotals struct {
	competitors     int
	spend           float64
	activeCampaigns int
	impressions     int64
	avgCTR          float64

	weightedCTR float64
	ctrWeight   float64
}

func (c *SummaryCalculator) upsertSummary(userID uuid.UUID, period string, startDate, endDate *time.Time, totals summaryTotals) (*dbpkg.UserSummary, error) {
	var summary dbpkg.UserSummary
	err := c.db.Where("user_id = ? AND time_period = ?", userID, period).
		Limit(1).Find(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.ID == uuid.Nil {
		summary = dbpkg.UserSummary{
			UserID:     userID,
			TimePeriod: period,
			StartDate:  startDate,
			EndDate:    endDate,
		}
		if err := c.db.Create(&summary).Error; err != nil {
			return nil, err
		}
	}

	if err := c.db.Model(&summary).Updates(map[string]any{
		"total_competitors":      totals.competitors,
		"total_competitor_spend": totals.spend,
		"active_campaigns":       totals.activeCampaigns,
		"total_impressions":      totals.impressions,
		"avg_ctr":                totals.avgCTR,
		"is_active":              true,
		"calculated_at":          c.now(),
	}).Error; err != nil {
		return nil, err
	}

	var result dbpkg.UserSummary
	if err := c.db.First(&result, "id = ?", summary.ID).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *SummaryCalculator) summaryDateRange(period string) (*time.Time, *time.Time) {
	now := c.now().UTC()
	end := now

	var start time.Time
	switch period {
	case dbpkg.PeriodDaily:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case dbpkg.PeriodWeekly:
		start = now.AddDate(0, 0, -7)
	case dbpkg.PeriodAllTime:
		return nil, &end
	default:
		// monthly and anything unrecognized
		start = now.AddDate(0, 0, -30)
	}
	return &start, &end
}

func (c *SummaryCalculator) latestMetrics(competitorID uuid.UUID, period string) (*dbpkg.PeriodMetrics, error) {
	var metrics dbpkg.PeriodMetrics
	err := c.db.Where("competitor_id = ? AND time_period = ?", competitorID, period).
		Order("calculated_at DESC").
		Limit(1).Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	if metrics.ID == uuid.Nil {
		return nil, nil
	}
	return &metrics, nil
}

// estimateSummaryImpressions back-derives impressions from spend and
// the competitor's observed CPM.
func estimateSummaryImpressions(metrics *dbpkg.PeriodMetrics, monthlySpend float64) int64 {
	if monthlySpend <= 0 {
		return 0
	}
	cpm := defaultSummaryCPM
	if metrics.AvgCPM > 0 {
		cpm = metrics.AvgCPM
	}
	return int64(monthlySpend / cpm * 1000)
}

// Dashboard is the cross-competitor overview payload.
type Dashboard struct {
	TotalCompetitorSpend  float64            `json:"total_competitor_spend"`
	ActiveCampaigns       int                `json:"active_campaigns"`
	TotalImpressions      int64              `json:"total_impressions"`
	AvgCTR                float64            `json:"avg_ctr"`
	TotalCompetitors      int                `json:"total_competitors"`
	SpendChangePercentage float64            `json:"spend_change_percentage"`
	PlatformDistribution  map[string]float64 `json:"platform_distribution"`
	TopCompetitors        []TopCompetitor    `json:"top_competitors"`
}

// TopCompetitor is one row of the dashboard's spend leaderboard.
type TopCompetitor struct {
	Name         string  `json:"name"`
	MonthlySpend float64 `json:"monthly_spend"`
	ActiveAds    int     `json:"active_ads"`
	Domain       string  `json:"domain"`
}

// GetDashboard builds the monthly overview, served from Redis when a
// fresh copy exists.
func (c *SummaryCalculator) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	cacheKey := "adscope:dashboard:" + userID.String()

	var cached Dashboard
	if hit, err := c.cache.GetJSON(ctx, cacheKey, &cached); err != nil {
		log.Printf("dashboard cache read failed: %v", err)
	} else if hit {
		return &cached, nil
	}

	current, err := c.CalculateForUser(userID, dbpkg.PeriodMonthly, nil, false)
	if err != nil {
		return nil, err
	}

	platforms, err := c.platformDistribution(userID)
	if err != nil {
		return nil, err
	}

	top, err := c.topCompetitors(userID, 5)
	if err != nil {
		return nil, err
	}

	spendChange := 0.0
	var prev dbpkg.UserSummary
	err = c.db.Where("user_id = ? AND time_period = ? AND is_active = ? AND id <> ?",
		userID, dbpkg.PeriodMonthly, true, current.ID).
		Order("calculated_at DESC").
		Limit(1).Find(&prev).Error
	if err != nil {
		return nil, err
	}
	if prev.ID != uuid.Nil && prev.TotalCompetitorSpend > 0 {
		spendChange = round1((current.TotalCompetitorSpend - prev.TotalCompetitorSpend) /
			prev.TotalCompetitorSpend * 100)
	}

	dashboard := &Dashboard{
		TotalCompetitorSpend:  current.TotalCompetitorSpend,
		ActiveCampaigns:       current.ActiveCampaigns,
		TotalImpressions:      current.TotalImpressions,
		AvgCTR:                current.AvgCTR,
		TotalCompetitors:      current.TotalCompetitors,
		SpendChangePercentage: spendChange,
		PlatformDistribution:  platforms,
		TopCompetitors:        top,
	}

	if err := c.cache.SetJSON(ctx, cacheKey, dashboard, dashboardCacheTTL); err != nil {
		log.Printf("dashboard cache write failed: %v", err)
	}
	return dashboard, nil
}

// platformDistribution returns each platform's share of the user's
// active ads as a percentage.
func (c *SummaryCalculator) platformDistribution(userID uuid.UUID) (map[string]float64, error) {
	type row struct {
		Platform string
		Count    int64
	}
	var rows []row
	err := c.db.Model(&dbpkg.Ad{}).
		Select("ads.platform AS platform, COUNT(ads.id) AS count").
		Joins("JOIN competitors ON competitors.id = ads.competitor_id").
		Where("competitors.user_id = ? AND competitors.is_active = ? AND ads.is_active = ?", userID, true, true).
		Group("ads.platform").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	total := int64(0)
	for _, r := range rows {
		total += r.Count
	}

	distribution := map[string]float64{}
	if total > 0 {
		for _, r := range rows {
			distribution[r.Platform] = float64(r.Count) / float64(total) * 100
		}
	}
	return distribution, nil
}

func (c *SummaryCalculator) topCompetitors(userID uuid.UUID, limit int) ([]TopCompetitor, error) {
	var competitors []dbpkg.Competitor
	err := c.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("estimated_monthly_spend DESC").
		Limit(limit).Find(&competitors).Error
	if err != nil {
		return nil, err
	}

	top := make([]TopCompetitor, 0, len(competitors))
	for _, competitor := range competitors {
		activeAds, err := dbpkg.CountActiveAds(c.db, competitor.ID)
		if err != nil {
			return nil, err
		}
		top = append(top, TopCompetitor{
			Name:         competitor.Name,
			MonthlySpend: competitor.EstimatedMonthlySpend,
			ActiveAds:    int(activeAds),
			Domain:       competitor.Domain,
		})
	}
	return top, nil
}
