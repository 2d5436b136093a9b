package platforms

import (
	"context"
	"net/url"
)

// RedditAdapter searches the Reddit ad library by query. Creative
// fields live under a nested "creative" object.
type RedditAdapter struct {
	c *Client
}

func NewReddit(c *Client) *RedditAdapter { return &RedditAdapter{c: c} }

func (a *RedditAdapter) Platform() string { return Reddit }

func (a *RedditAdapter) Search(ctx context.Context, query string, maxResults int) ([]NormalizedAd, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp struct {
		Ads []map[string]any `json:"ads"`
	}
	if err := a.c.getJSON(ctx, "/v1/reddit/ads/search", params, &resp); err != nil {
		return nil, err
	}

	items := resp.Ads
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}

	ads := make([]NormalizedAd, 0, len(items))
	for _, item := range items {
		creative := getMap(item, "creative")
		ads = append(ads, NormalizedAd{
			ID:             stringify(item["id"]),
			Headline:       getString(creative, "headline"),
			Description:    getString(creative, "body"),
			DestinationURL: getString(creative, "destinationUrl"),
			ImageURL:       getString(creative, "imageUrl"),
			Format:         getString(creative, "format"),
			Raw:            item,
		})
	}
	return ads, nil
}
