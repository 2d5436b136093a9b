package handlers

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "adscope/internal/db"
)

type competitorPayload struct {
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
	Industry string `json:"industry,omitempty"`
}

type competitorView struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Domain                string  `json:"domain,omitempty"`
	Industry              string  `json:"industry,omitempty"`
	EstimatedMonthlySpend float64 `json:"estimated_monthly_spend"`
	AdsCount              int     `json:"ads_count"`
	LastFetchStatus       string  `json:"last_fetch_status"`
	LastFetchedAt         string  `json:"last_fetched_at,omitempty"`
	CreatedAt             string  `json:"created_at"`
}

func viewCompetitor(c *dbpkg.Competitor) competitorView {
	v := competitorView{
		ID:                    c.ID.String(),
		Name:                  c.Name,
		Domain:                c.Domain,
		Industry:              c.Industry,
		EstimatedMonthlySpend: c.EstimatedMonthlySpend,
		AdsCount:              c.AdsCount,
		LastFetchStatus:       c.LastFetchStatus,
		CreatedAt:             c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.LastFetchedAt != nil {
		v.LastFetchedAt = c.LastFetchedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func ListCompetitors(db *gorm.DB) fasthttp.RequestHandler {
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
		views := make([]competitorView, 0, len(competitors))
		for i := range competitors {
			views = append(views, viewCompetitor(&competitors[i]))
		}
		jsonResponse(ctx, map[string]any{"competitors": views, "total": len(views)})
	}
}

func CreateCompetitor(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var payload competitorPayload
		if !decodeBody(ctx, &payload) {
			return
		}
		payload.Name = strings.TrimSpace(payload.Name)
		if payload.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "name required")
			return
		}

		competitor := &dbpkg.Competitor{
			UserID:   user.ID,
			Name:     payload.Name,
			Domain:   strings.TrimSpace(payload.Domain),
			Industry: strings.TrimSpace(payload.Industry),
			IsActive: true,
		}
		if err := db.Create(competitor).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create competitor")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, viewCompetitor(competitor))
	}
}

func GetCompetitor(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}
		competitor, err := dbpkg.CompetitorForUser(db, id, user.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}
		jsonResponse(ctx, viewCompetitor(competitor))
	}
}

func UpdateCompetitor(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}
		competitor, err := dbpkg.CompetitorForUser(db, id, user.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}

		var payload competitorPayload
		if !decodeBody(ctx, &payload) {
			return
		}
		updates := map[string]any{}
		if name := strings.TrimSpace(payload.Name); name != "" {
			updates["name"] = name
		}
		if payload.Domain != "" {
			updates["domain"] = strings.TrimSpace(payload.Domain)
		}
		if payload.Industry != "" {
			updates["industry"] = strings.TrimSpace(payload.Industry)
		}
		if len(updates) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "nothing to update")
			return
		}
		if err := db.Model(competitor).Updates(updates).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update competitor")
			return
		}
		jsonResponse(ctx, viewCompetitor(competitor))
	}
}

// DeleteCompetitor deactivates a competitor. Rows are kept so historic
// metrics stay queryable; the collector and calculators skip inactive
// competitors.
func DeleteCompetitor(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}
		competitor, err := dbpkg.CompetitorForUser(db, id, user.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "competitor not found")
			return
		}
		if err := db.Model(competitor).Update("is_active", false).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete competitor")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true})
	}
}
