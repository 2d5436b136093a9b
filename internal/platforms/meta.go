package platforms

import (
	"context"
	"fmt"
	"net/url"
)

// MetaAdapter searches the Meta ad library by keyword. Listings arrive
// wrapped in a "snapshot" object that carries the creative fields.
type MetaAdapter struct {
	c *Client
}

func NewMeta(c *Client) *MetaAdapter { return &MetaAdapter{c: c} }

func (a *MetaAdapter) Platform() string { return Meta }

func (a *MetaAdapter) Search(ctx context.Context, keyword string, maxResults int) ([]NormalizedAd, error) {
	params := url.Values{}
	params.Set("query", keyword)
	params.Set("search_type", "keyword_unordered")
	params.Set("ad_type", "all")
	params.Set("country", "US")
	params.Set("status", "ALL")
	params.Set("media_type", "ALL")
	params.Set("trim", "false")

	var resp struct {
		SearchResults []map[string]any `json:"searchResults"`
	}
	if err := a.c.getJSON(ctx, "/v1/facebook/adLibrary/search/ads", params, &resp); err != nil {
		return nil, err
	}

	items := resp.SearchResults
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	ads := make([]NormalizedAd, 0, len(items))
	for _, item := range items {
		snapshot := getMap(item, "snapshot")

		// body is either {"text": ...} or a bare string.
		var body string
		if b, ok := snapshot["body"]; ok {
			switch v := b.(type) {
			case map[string]any:
				body = getString(v, "text")
			case string:
				body = v
			}
		}

		var imageURL string
		if images := getSlice(snapshot, "images"); len(images) > 0 {
			if img, ok := images[0].(map[string]any); ok {
				imageURL = getString(img, "resized_image_url", "original_image_url")
			}
		}

		var impressions string
		if iwi := getMap(item, "impressions_with_index"); iwi != nil {
			impressions = getString(iwi, "impressions_text")
		}

		ads = append(ads, NormalizedAd{
			ID:             stringify(item["ad_archive_id"]),
			Headline:       getString(snapshot, "title"),
			Description:    body,
			DestinationURL: getString(snapshot, "link_url"),
			ImageURL:       imageURL,
			Impressions:    impressions,
			Spend:          stringify(item["spend"]),
			Raw:            item,
		})
	}
	return ads, nil
}

// stringify renders a JSON scalar as its string form. Upstream payloads
// flip between strings and numbers for ids and spend.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
