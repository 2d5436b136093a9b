package platforms

import (
	"context"
	"net/url"
	"strconv"
)

// YouTubeAdapter searches YouTube by brand name and treats the videos
// and shorts that come back as organic ad placements. View counts map
// onto impressions so the spend estimator has something to work with.
type YouTubeAdapter struct {
	c *Client
}

func NewYouTube(c *Client) *YouTubeAdapter { return &YouTubeAdapter{c: c} }

func (a *YouTubeAdapter) Platform() string { return YouTube }

func (a *YouTubeAdapter) Search(ctx context.Context, query string, maxResults int) ([]NormalizedAd, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("includeExtras", "true")

	var resp struct {
		Videos []map[string]any `json:"videos"`
		Shorts []map[string]any `json:"shorts"`
	}
	if err := a.c.getJSON(ctx, "/v1/youtube/search", params, &resp); err != nil {
		return nil, err
	}

	items := append(resp.Videos, resp.Shorts...)
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	ads := make([]NormalizedAd, 0, len(items))
	for _, item := range items {
		title := getString(item, "title")
		description := getString(item, "description")
		if description == "" {
			description = title
		}

		format := "video"
		if getString(item, "type") == "short" {
			format = "short"
		}

		var impressions string
		if views, ok := getNumber(item, "viewCountInt"); ok {
			impressions = strconv.FormatInt(int64(views), 10)
		}

		ads = append(ads, NormalizedAd{
			ID:             stringify(item["id"]),
			Headline:       title,
			Description:    description,
			DestinationURL: getString(item, "url"),
			ImageURL:       getString(item, "thumbnail"),
			Format:         format,
			Impressions:    impressions,
			Raw:            item,
		})
	}
	return ads, nil
}
