package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"adscope/internal/analytics"
	dbpkg "adscope/internal/db"
)

func viewMetrics(m *dbpkg.PeriodMetrics) map[string]any {
	return map[string]any{
		"id":            m.ID.String(),
		"competitor_id": m.CompetitorID.String(),
		"time_period":   m.TimePeriod,
		"start_date":    m.StartDate.UTC().Format("2006-01-02"),
		"end_date":      m.EndDate.UTC().Format("2006-01-02"),
		"calculated_at": m.CalculatedAt.UTC().Format(time.RFC3339),

		"total_ads":        m.TotalAds,
		"active_ads":       m.ActiveAds,
		"ads_per_platform": m.AdsPerPlatform,

		"estimated_daily_spend":   m.EstimatedDailySpend,
		"estimated_weekly_spend":  m.EstimatedWeeklySpend,
		"estimated_monthly_spend": m.EstimatedMonthlySpend,
		"total_spend":             m.TotalSpend,

		"avg_cpm":                m.AvgCPM,
		"avg_cpc":                m.AvgCPC,
		"avg_ctr":                m.AvgCTR,
		"avg_frequency":          m.AvgFrequency,
		"conversion_probability": m.ConversionProbability,

		"creative_performance":     m.CreativePerformance,
		"top_performing_creatives": m.TopPerformingCreatives,

		"funnel_stage_distribution": m.FunnelStageDistribution,
		"audience_clusters":         m.AudienceClusters,

		"geo_penetration":     m.GeoPenetration,
		"device_distribution": m.DeviceDistribution,

		"time_of_day_heatmap": m.TimeOfDayHeatmap,
		"ad_timeline":         m.AdTimeline,

		"trends":            m.Trends,
		"recommendations":   m.Recommendations,
		"risk_score":        m.RiskScore,
		"opportunity_score": m.OpportunityScore,
	}
}

type calculateMetricsRequest struct {
	CompetitorID string `json:"competitor_id,omitempty"`
	TimePeriod   string `json:"time_period,omitempty"`
}

// CalculateMetrics recomputes period metrics for one competitor, or for
// all of the user's competitors when competitor_id is omitted.
func CalculateMetrics(db *gorm.DB, calc *analytics.MetricsCalculator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var payload calculateMetricsRequest
		if !decodeBody(ctx, &payload) {
			return
		}

		period := payload.TimePeriod
		if period == "" {
			period = dbpkg.PeriodMonthly
		}
		if !validPeriod(period) {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid time_period")
			return
		}

		if payload.CompetitorID == "" {
			results, err := calc.CalculateForUser(user.ID, period)
			if err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "calculation failed")
				return
			}
			views := make([]map[string]any, 0, len(results))
			for i := range results {
				views = append(views, viewMetrics(&results[i]))
			}
			jsonResponse(ctx, map[string]any{"calculated": len(views), "metrics": views})
			return
		}

		competitorID, err := uuid.Parse(payload.CompetitorID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid competitor_id")
			return
		}
		if _, err := dbpkg.CompetitorForUser(db, competitorID, user.ID); err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}

		m, err := calc.CalculateForCompetitor(competitorID, period)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "calculation failed")
			return
		}
		if m == nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}
		jsonResponse(ctx, viewMetrics(m))
	}
}

// LatestMetrics returns the most recent snapshot for a competitor and
// period (?time_period=, default monthly).
func LatestMetrics(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}
		period := string(ctx.QueryArgs().Peek("time_period"))
		if period == "" {
			period = dbpkg.PeriodMonthly
		}
		if !validPeriod(period) {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid time_period")
			return
		}

		if _, err := dbpkg.CompetitorForUser(db, id, user.ID); err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}

		var m dbpkg.PeriodMetrics
		err := db.Where("competitor_id = ? AND time_period = ?", id, period).
			Order("calculated_at DESC").
			Limit(1).Find(&m).Error
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load metrics")
			return
		}
		if m.ID == uuid.Nil {
			errResponse(ctx, fasthttp.StatusNotFound, "no metrics calculated yet")
			return
		}
		jsonResponse(ctx, viewMetrics(&m))
	}
}
