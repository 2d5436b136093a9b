package handlers

import (
	"strings"

	"github.com/valyala/fasthttp"

	"adscope/internal/trending"
)

type trendingSearchRequest struct {
	Keyword          string   `json:"keyword"`
	Platforms        []string `json:"platforms,omitempty"`
	LimitPerPlatform int      `json:"limit_per_platform,omitempty"`
}

// SearchTrending runs a cross-platform keyword search and returns the
// scored, ranked results.
func SearchTrending(svc *trending.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}
		var payload trendingSearchRequest
		if !decodeBody(ctx, &payload) {
			return
		}

		payload.Keyword = strings.TrimSpace(payload.Keyword)
		if len(payload.Keyword) < 2 {
			errResponse(ctx, fasthttp.StatusBadRequest, "keyword must be at least 2 characters long")
			return
		}

		searchable := map[string]bool{}
		for _, p := range svc.Searchable() {
			searchable[p] = true
		}
		for _, p := range payload.Platforms {
			if !searchable[p] {
				errResponse(ctx, fasthttp.StatusBadRequest, "unknown platform "+p)
				return
			}
		}

		result := svc.Search(ctx, payload.Keyword, payload.Platforms, payload.LimitPerPlatform)
		jsonResponse(ctx, result)
	}
}

// TrendingPlatforms describes the networks the trending search covers.
func TrendingPlatforms(svc *trending.Service) fasthttp.RequestHandler {
	descriptions := map[string]string{
		"meta":      "Search Facebook/Instagram ads",
		"reddit":    "Search Reddit ads and posts",
		"linkedin":  "Search LinkedIn ads and posts",
		"youtube":   "Search YouTube videos and shorts",
		"instagram": "Search Instagram posts and reels",
	}
	return func(ctx *fasthttp.RequestCtx) {
		list := make([]map[string]any, 0, len(svc.Searchable()))
		for _, p := range svc.Searchable() {
			list = append(list, map[string]any{
				"id":          p,
				"name":        p,
				"description": descriptions[p],
			})
		}
		jsonResponse(ctx, map[string]any{"platforms": list})
	}
}
