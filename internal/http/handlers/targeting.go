package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"adscope/internal/analytics"
	dbpkg "adscope/internal/db"
)

func viewTargeting(t *dbpkg.TargetingIntel) map[string]any {
	view := map[string]any{
		"id":            t.ID.String(),
		"competitor_id": t.CompetitorID.String(),

		"age_min":        t.AgeMin,
		"age_max":        t.AgeMax,
		"age_range":      t.AgeRange,
		"gender_ratio":   t.GenderRatio,
		"primary_gender": t.PrimaryGender,

		"geography":        t.Geography,
		"primary_location": t.PrimaryLocation,

		"interest_clusters": t.InterestClusters,
		"primary_interests": t.PrimaryInterests,

		"income_level": t.IncomeLevel,
		"income_score": t.IncomeScore,

		"device_distribution": t.DeviceDistribution,
		"primary_device":      t.PrimaryDevice,

		"funnel_stage": t.FunnelStage,
		"funnel_score": t.FunnelScore,

		"audience_type": t.AudienceType,
		"audience_size": t.AudienceSize,

		"bidding_strategy":   t.BiddingStrategy,
		"bidding_confidence": t.BiddingConfidence,

		"content_type":   t.ContentType,
		"call_to_action": t.CallToAction,

		"estimated_cpm":   t.EstimatedCPM,
		"estimated_cpc":   t.EstimatedCPC,
		"estimated_roas":  t.EstimatedROAS,
		"engagement_rate": t.EngagementRate,

		"confidence_scores":  t.ConfidenceScores,
		"overall_confidence": t.OverallConfidence,
	}
	if t.LastCalculatedAt != nil {
		view["last_calculated_at"] = t.LastCalculatedAt.UTC().Format(time.RFC3339)
	}
	return view
}

type calculateTargetingRequest struct {
	CompetitorID  string   `json:"competitor_id,omitempty"`
	CompetitorIDs []string `json:"competitor_ids,omitempty"`
	Force         bool     `json:"force,omitempty"`
}

// CalculateTargeting recomputes targeting intel for one competitor, a
// subset, or all of the user's competitors.
func CalculateTargeting(db *gorm.DB, calc *analytics.TargetingCalculator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var payload calculateTargetingRequest
		if !decodeBody(ctx, &payload) {
			return
		}

		if payload.CompetitorID != "" {
			competitorID, err := uuid.Parse(payload.CompetitorID)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid competitor_id")
				return
			}
			intel, err := calc.CalculateForCompetitor(competitorID, user.ID, payload.Force)
			if err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "calculation failed")
				return
			}
			if intel == nil {
				errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
				return
			}
			jsonResponse(ctx, viewTargeting(intel))
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

		result := calc.CalculateForUser(user.ID, ids, payload.Force)
		if !result.Success {
			ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
		}
		jsonResponse(ctx, result)
	}
}

// LatestTargeting returns the stored targeting profile for a competitor.
func LatestTargeting(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}

		var intel dbpkg.TargetingIntel
		err := db.Where("competitor_id = ? AND user_id = ? AND is_active = ?", id, user.ID, true).
			Limit(1).Find(&intel).Error
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load targeting intel")
			return
		}
		if intel.ID == uuid.Nil {
			errResponse(ctx, fasthttp.StatusNotFound, "no targeting intel calculated yet")
			return
		}
		jsonResponse(ctx, viewTargeting(&intel))
	}
}
