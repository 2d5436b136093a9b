package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"adscope/internal/analytics"
	dbpkg "adscope/internal/db"
)

func viewSummary(s *dbpkg.UserSummary) map[string]any {
	view := map[string]any{
		"id":          s.ID.String(),
		"time_period": s.TimePeriod,

		"total_competitors":      s.TotalCompetitors,
		"total_competitor_spend": s.TotalCompetitorSpend,
		"active_campaigns":       s.ActiveCampaigns,
		"total_impressions":      s.TotalImpressions,
		"avg_ctr":                s.AvgCTR,

		"calculated_at": s.CalculatedAt.UTC().Format(time.RFC3339),
	}
	if s.StartDate != nil {
		view["start_date"] = s.StartDate.UTC().Format(time.RFC3339)
	}
	if s.EndDate != nil {
		view["end_date"] = s.EndDate.UTC().Format(time.RFC3339)
	}
	return view
}

type calculateSummaryRequest struct {
	TimePeriod    string   `json:"time_period,omitempty"`
	CompetitorIDs []string `json:"competitor_ids,omitempty"`
	Force         bool     `json:"force,omitempty"`
}

// CalculateSummary recomputes the cross-competitor rollup for one period.
func CalculateSummary(calc *analytics.SummaryCalculator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var payload calculateSummaryRequest
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

		var ids []uuid.UUID
		for _, raw := range payload.CompetitorIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid competitor id "+raw)
				return
			}
			ids = append(ids, id)
		}

		summary, err := calc.CalculateForUser(user.ID, period, ids, payload.Force)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "calculation failed")
			return
		}
		jsonResponse(ctx, viewSummary(summary))
	}
}

// SummaryDashboard returns the monthly cross-competitor overview.
func SummaryDashboard(calc *analytics.SummaryCalculator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dashboard, err := calc.GetDashboard(ctx, user.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to build dashboard")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true, "dashboard": dashboard})
	}
}
