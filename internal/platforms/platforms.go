package platforms

import "context"

// Platform identifiers as stored on Ad rows. The calculator constant
// tables also know "facebook" and "tiktok" so imported historical data
// keeps working, but the collector only drives these six.
const (
	Google    = "google"
	Meta      = "meta"
	Reddit    = "reddit"
	LinkedIn  = "linkedin"
	YouTube   = "youtube"
	Instagram = "instagram"
)

// All returns the default platform set, in fetch order.
func All() []string {
	return []string{Google, Meta, Reddit, LinkedIn, YouTube, Instagram}
}

// NormalizedAd is the common shape every adapter maps its platform's
// payload into. Only ID is special: when a source exposes no native
// creative id the collector derives one by hashing the rest.
type NormalizedAd struct {
	ID             string `json:"id"`
	Headline       string `json:"headline"`
	Description    string `json:"description"`
	FullText       string `json:"full_text"`
	DestinationURL string `json:"destination_url"`
	ImageURL       string `json:"image_url"`
	VideoURL       string `json:"video_url"`
	Format         string `json:"format"`
	Impressions    string `json:"impressions"`
	Spend          string `json:"spend"`

	// Raw keeps the upstream item for the Ad.RawData audit column.
	Raw map[string]any `json:"-"`
}

// Adapter fetches raw listings for one platform and returns them in the
// normalized shape. Adapters own their retry policy; any error they
// return is treated by the collector as that single platform failing.
type Adapter interface {
	Platform() string
	Search(ctx context.Context, query string, maxResults int) ([]NormalizedAd, error)
}

// getString pulls the first non-empty string value for any of the keys.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// getNumber pulls the first numeric value for any of the keys. JSON
// numbers decode as float64.
func getNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return n, true
			case int:
				return float64(n), true
			}
		}
	}
	return 0, false
}

func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key]; ok {
		if mm, ok := v.(map[string]any); ok {
			return mm
		}
	}
	return nil
}

func getSlice(m map[string]any, key string) []any {
	if v, ok := m[key]; ok {
		if s, ok := v.([]any); ok {
			return s
		}
	}
	return nil
}
