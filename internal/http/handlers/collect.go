package handlers

import (
	"strings"

	"github.com/valyala/fasthttp"

	"adscope/internal/collector"
	"adscope/internal/platforms"
)

// parsePlatformFilter reads the optional ?platforms= comma list and
// rejects unknown platform names.
func parsePlatformFilter(ctx *fasthttp.RequestCtx) ([]string, bool) {
	raw := string(ctx.QueryArgs().Peek("platforms"))
	if raw == "" {
		return nil, true
	}

	known := map[string]bool{}
	for _, p := range platforms.All() {
		known[p] = true
	}

	var selected []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !known[p] {
			errResponse(ctx, fasthttp.StatusBadRequest, "unknown platform "+p)
			return nil, false
		}
		selected = append(selected, p)
	}
	return selected, true
}

// CollectCompetitor triggers a fetch for one competitor. The run is
// synchronous; the response is the full FetchResult.
func CollectCompetitor(c *collector.Collector) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}
		only, ok := parsePlatformFilter(ctx)
		if !ok {
			return
		}

		result, err := c.FetchCompetitorAds(ctx, id, user.ID, only)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "fetch failed")
			return
		}
		if !result.Success {
			ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
		}
		jsonResponse(ctx, result)
	}
}

// CollectAll triggers a fetch for every active competitor of the user.
func CollectAll(c *collector.Collector) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		only, ok := parsePlatformFilter(ctx)
		if !ok {
			return
		}

		results := c.FetchAllForUser(ctx, user.ID, only)
		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		jsonResponse(ctx, map[string]any{
			"total":     len(results),
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
			"results":   results,
		})
	}
}
