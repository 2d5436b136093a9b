package platforms

import (
	"context"
	"net/url"
)

// GoogleAdapter lists a company's ads from the Google transparency
// center. Unlike the other adapters it is queried by domain, so the
// collector skips it for competitors without one.
type GoogleAdapter struct {
	c *Client
}

func NewGoogle(c *Client) *GoogleAdapter { return &GoogleAdapter{c: c} }

func (a *GoogleAdapter) Platform() string { return Google }

func (a *GoogleAdapter) Search(ctx context.Context, domain string, maxResults int) ([]NormalizedAd, error) {
	params := url.Values{}
	params.Set("domain", domain)
	params.Set("get_ad_details", "false")

	var resp struct {
		Ads []map[string]any `json:"ads"`
	}
	if err := a.c.getJSON(ctx, "/v1/google/company/ads", params, &resp); err != nil {
		return nil, err
	}

	items := resp.Ads
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	ads := make([]NormalizedAd, 0, len(items))
	for _, item := range items {
		ads = append(ads, NormalizedAd{
			ID:             getString(item, "creativeId"),
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
