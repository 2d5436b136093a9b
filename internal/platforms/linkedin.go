package platforms

import (
	"context"
	"net/url"
)

// LinkedInAdapter searches the LinkedIn ad library by company name.
type LinkedInAdapter struct {
	c *Client
}

func NewLinkedIn(c *Client) *LinkedInAdapter { return &LinkedInAdapter{c: c} }

func (a *LinkedInAdapter) Platform() string { return LinkedIn }

func (a *LinkedInAdapter) Search(ctx context.Context, company string, maxResults int) ([]NormalizedAd, error) {
	params := url.Values{}
	params.Set("company", company)

	var resp struct {
		Ads []map[string]any `json:"ads"`
	}
	if err := a.c.getJSON(ctx, "/v1/linkedin/ads/search", params, &resp); err != nil {
		return nil, err
	}

	items := resp.Ads
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	ads := make([]NormalizedAd, 0, len(items))
	for _, item := range items {
		ads = append(ads, NormalizedAd{
			ID:             stringify(item["id"]),
			Headline:       getString(item, "headline"),
			Description:    getString(item, "description"),
			DestinationURL: getString(item, "destinationUrl"),
			ImageURL:       getString(item, "imageUrl"),
			Format:         getString(item, "format"),
			Raw:            item,
		})
	}
	return ads, nil
}
