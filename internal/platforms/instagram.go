package platforms

import (
	"context"
	"net/url"
	"strconv"
)

// InstagramAdapter searches Instagram reels by brand name. Reels carry
// no headline of their own, so the caption (trimmed to 200 chars)
// doubles as one, and play counts map onto impressions.
type InstagramAdapter struct {
	c *Client
}

func NewInstagram(c *Client) *InstagramAdapter { return &InstagramAdapter{c: c} }

func (a *InstagramAdapter) Platform() string { return Instagram }

func (a *InstagramAdapter) Search(ctx context.Context, query string, maxResults int) ([]NormalizedAd, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")

	var resp struct {
		Reels []map[string]any `json:"reels"`
	}
	if err := a.c.getJSON(ctx, "/v2/instagram/reels/search", params, &resp); err != nil {
		return nil, err
	}

	items := resp.Reels
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	ads := make([]NormalizedAd, 0, len(items))
	for _, item := range items {
		caption := getString(item, "caption")
		if len(caption) > 200 {
			caption = caption[:200] + "..."
		}
		headline := caption
		if headline == "" {
			headline = "Instagram Reel"
		}

		var impressions string
		if views, ok := getNumber(item, "video_view_count", "video_play_count"); ok {
			impressions = strconv.FormatInt(int64(views), 10)
		}

		ads = append(ads, NormalizedAd{
			ID:             stringify(item["id"]),
			Headline:       headline,
			Description:    caption,
			DestinationURL: getString(item, "url"),
			ImageURL:       getString(item, "thumbnail_src"),
			VideoURL:       getString(item, "video_url"),
			Format:         "reel",
			Impressions:    impressions,
			Raw:            item,
		})
	}
	return ads, nil
}
