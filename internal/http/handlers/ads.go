package handlers

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "adscope/internal/db"
)

func viewAd(a *dbpkg.Ad) map[string]any {
	return map[string]any{
		"id":             a.ID.String(),
		"competitor_id":  a.CompetitorID.String(),
		"platform":       a.Platform,
		"platform_ad_id": a.PlatformAdID,

		"headline":        a.Headline,
		"description":     a.Description,
		"full_text":       a.FullText,
		"destination_url": a.DestinationURL,
		"image_url":       a.ImageURL,
		"video_url":       a.VideoURL,
		"format":          a.Format,

		"impressions": a.Impressions,
		"spend":       a.Spend,

		"is_active":  a.IsActive,
		"first_seen": a.FirstSeen.UTC().Format(time.RFC3339),
		"last_seen":  a.LastSeen.UTC().Format(time.RFC3339),
	}
}

func viewFetchJob(j *dbpkg.FetchJob) map[string]any {
	view := map[string]any{
		"id":                j.ID.String(),
		"competitor_id":     j.CompetitorID.String(),
		"status":            j.Status,
		"started_at":        j.StartedAt.UTC().Format(time.RFC3339),
		"total_ads_fetched": j.TotalAdsFetched,
		"platforms_queried": j.PlatformsQueried,
	}
	if j.CompletedAt != nil {
		view["completed_at"] = j.CompletedAt.UTC().Format(time.RFC3339)
	}
	if j.ErrorMessage != "" {
		view["error_message"] = j.ErrorMessage
	}
	return view
}

// queryLimit reads ?limit= clamped to [1, max], falling back to def.
func queryLimit(ctx *fasthttp.RequestCtx, def, max int) int {
	raw := string(ctx.QueryArgs().Peek("limit"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ListCompetitorAds returns a competitor's stored ads, newest sighting
// first. ?platform= narrows to one platform, ?limit= caps the page.
func ListCompetitorAds(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}
		if _, err := dbpkg.CompetitorForUser(db, id, user.ID); err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}

		query := db.Where("competitor_id = ?", id)
		if platform := string(ctx.QueryArgs().Peek("platform")); platform != "" {
			query = query.Where("platform = ?", platform)
		}

		var ads []dbpkg.Ad
		if err := query.Order("last_seen DESC").Limit(queryLimit(ctx, 50, 200)).Find(&ads).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list ads")
			return
		}
		views := make([]map[string]any, 0, len(ads))
		for i := range ads {
			views = append(views, viewAd(&ads[i]))
		}
		jsonResponse(ctx, map[string]any{"ads": views, "total": len(views)})
	}
}

// ListAllAds returns stored ads across every active competitor of the
// user, newest sighting first.
func ListAllAds(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		competitors, err := dbpkg.ActiveCompetitors(db, user.ID, nil)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list competitors")
			return
		}
		if len(competitors) == 0 {
			jsonResponse(ctx, map[string]any{"ads": []map[string]any{}, "total": 0})
			return
		}

		ids := make([]uuid.UUID, 0, len(competitors))
		for _, c := range competitors {
			ids = append(ids, c.ID)
		}

		var ads []dbpkg.Ad
		err = db.Where("competitor_id IN ?", ids).
			Order("last_seen DESC").
			Limit(queryLimit(ctx, 100, 500)).
			Find(&ads).Error
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list ads")
			return
		}
		views := make([]map[string]any, 0, len(ads))
		for i := range ads {
			views = append(views, viewAd(&ads[i]))
		}
		jsonResponse(ctx, map[string]any{"ads": views, "total": len(views)})
	}
}

// ListFetchJobs returns the user's collection-run history, newest
// first. ?status= narrows to one job status.
func ListFetchJobs(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		query := db.Where("user_id = ?", user.ID)
		if status := string(ctx.QueryArgs().Peek("status")); status != "" {
			query = query.Where("status = ?", status)
		}

		var jobs []dbpkg.FetchJob
		if err := query.Order("started_at DESC").Limit(queryLimit(ctx, 20, 100)).Find(&jobs).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list fetch jobs")
			return
		}
		views := make([]map[string]any, 0, len(jobs))
		for i := range jobs {
			views = append(views, viewFetchJob(&jobs[i]))
		}
		jsonResponse(ctx, map[string]any{"fetches": views, "total": len(views)})
	}
}
