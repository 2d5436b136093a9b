package trending

import (
	"context"
	"log"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"adscope/internal/config"
	"adscope/internal/platforms"
)

// DefaultLimitPerPlatform caps one platform's share of a search when
// the request does not set its own limit.
const DefaultLimitPerPlatform = 5

const topTrendingSize = 10

// Item is one piece of trending content with its cross-platform score.
type Item struct {
	Platform    string  `json:"platform"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
	Format      string  `json:"format,omitempty"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}

type Summary struct {
	TotalResults      int      `json:"total_results"`
	PlatformsSearched []string `json:"platforms_searched"`
	TopScore          float64  `json:"top_score"`
	AverageScore      float64  `json:"average_score"`
}

// Result is one completed trending search. Results holds every scored
// item per platform; TopTrending is the cross-platform top slice.
type Result struct {
	Status              string             `json:"status"`
	Keyword             string             `json:"keyword"`
	Results             map[string][]*Item `json:"results"`
	Summary             Summary            `json:"summary"`
	TopTrending         []*Item            `json:"top_trending"`
	PlatformPerformance map[string]float64 `json:"platform_performance"`
}

// Service fans a keyword search out across the searchable platform
// adapters and ranks everything that comes back on one score scale.
type Service struct {
	order    []string
	adapters map[string]platforms.Adapter
	now      func() time.Time
}

func New(adapters ...platforms.Adapter) *Service {
	s := &Service{adapters: map[string]platforms.Adapter{}, now: time.Now}
	for _, a := range adapters {
		s.order = append(s.order, a.Platform())
		s.adapters[a.Platform()] = a
	}
	return s
}

// NewFromConfig builds the service over the five keyword-searchable
// networks. Google is absent on purpose: its endpoint only resolves
// company domains, not free-text keywords.
func NewFromConfig(cfg *config.Config) *Service {
	client := platforms.NewClient(
		platforms.NewHTTPClient(time.Duration(cfg.FetchTimeoutSec)*time.Second),
		cfg.ScrapeBaseURL,
		cfg.ScrapeAPIKey,
	)
	return New(
		platforms.NewMeta(client),
		platforms.NewReddit(client),
		platforms.NewLinkedIn(client),
		platforms.NewYouTube(client),
		platforms.NewInstagram(client),
	)
}

// Searchable lists the platform names this service can query, in
// search order.
func (s *Service) Searchable() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Search queries the selected platforms concurrently and returns every
// result scored, ranked across platforms, and summarized. A platform
// whose adapter errors contributes an empty list instead of failing
// the search.
func (s *Service) Search(ctx context.Context, keyword string, selected []string, limitPerPlatform int) *Result {
	if len(selected) == 0 {
		selected = s.Searchable()
	}
	if limitPerPlatform <= 0 {
		limitPerPlatform = DefaultLimitPerPlatform
	}

	wanted := map[string]bool{}
	for _, p := range selected {
		wanted[p] = true
	}

	results := map[string][]*Item{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range s.order {
		adapter := s.adapters[name]
		if !wanted[name] {
			mu.Lock()
			results[name] = []*Item{}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(name string, adapter platforms.Adapter) {
			defer wg.Done()
			ads, err := adapter.Search(ctx, keyword, limitPerPlatform)
			if err != nil {
				log.Printf("trending search error on %s: %v", name, err)
				ads = nil
			}
			if len(ads) > limitPerPlatform {
				ads = ads[:limitPerPlatform]
			}
			items := make([]*Item, 0, len(ads))
			for i := range ads {
				items = append(items, s.scoreItem(name, &ads[i]))
			}
			mu.Lock()
			results[name] = items
			mu.Unlock()
		}(name, adapter)
	}
	wg.Wait()

	var all []*Item
	for _, items := range results {
		all = append(all, items...)
	}
	sortByScore(all)
	for i, item := range all {
		item.Rank = i + 1
	}

	performance := map[string]float64{}
	for name, items := range results {
		if len(items) == 0 {
			performance[name] = 0
			continue
		}
		sum := 0.0
		for _, item := range items {
			sum += item.Score
		}
		performance[name] = round2(sum / float64(len(items)))
	}

	summary := Summary{
		TotalResults:      len(all),
		PlatformsSearched: selected,
	}
	if len(all) > 0 {
		summary.TopScore = all[0].Score
		sum := 0.0
		for _, item := range all {
			sum += item.Score
		}
		summary.AverageScore = round2(sum / float64(len(all)))
	}

	top := all
	if len(top) > topTrendingSize {
		top = top[:topTrendingSize]
	}

	return &Result{
		Status:              "completed",
		Keyword:             keyword,
		Results:             results,
		Summary:             summary,
		TopTrending:         top,
		PlatformPerformance: performance,
	}
}

func (s *Service) scoreItem(platform string, ad *platforms.NormalizedAd) *Item {
	item := &Item{
		Platform:    platform,
		Title:       itemTitle(platform, ad),
		Description: ad.Description,
		URL:         ad.DestinationURL,
		ImageURL:    ad.ImageURL,
		VideoURL:    ad.VideoURL,
		Format:      ad.Format,
	}
	item.Score = round2(s.score(platform, ad))
	return item
}

func itemTitle(platform string, ad *platforms.NormalizedAd) string {
	if ad.Headline != "" {
		return truncate(ad.Headline, 100)
	}
	if ad.Description != "" {
		return truncate(ad.Description, 100)
	}
	return platform + " content"
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// score weighs engagement first (comments 5x likes, shares 3x), then
// layers view, recency, platform and content-quality bonuses, clamped
// to 0-100. Impression figures are ignored as too unreliable.
func (s *Service) score(platform string, ad *platforms.NormalizedAd) float64 {
	likes := rawInt(ad.Raw, "likes", "upvotes", "like_count")
	comments := rawInt(ad.Raw, "comments", "comment_count")
	shares := rawInt(ad.Raw, "shares", "share_count")
	views := rawInt(ad.Raw, "views", "video_view_count", "viewCountInt")

	engagement := likes + comments*5 + shares*3

	score := 10.0
	if engagement > 0 {
		score = math.Min(70, math.Pow(float64(engagement), 0.4)*3)
	}
	if views > 100 {
		score += math.Min(15, math.Pow(float64(views), 0.3))
	}

	score += s.recencyBonus(ad.Raw)
	score += platformBonus(platform, ad.Format)
	score += qualityBonus(ad)

	return math.Min(100, math.Max(0, score))
}

func (s *Service) recencyBonus(raw map[string]any) float64 {
	created := rawString(raw, "created_at", "published_at", "taken_at")
	if created == "" {
		return 0
	}
	dt, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return 0
	}
	hoursAgo := s.now().Sub(dt).Hours()
	switch {
	case hoursAgo < 1:
		return 15
	case hoursAgo < 24:
		return 10
	case hoursAgo < 168:
		return 5
	case hoursAgo < 720:
		return 2
	}
	return 0
}

var platformBonuses = map[string]float64{
	"youtube":   5,
	"instagram": 8,
	"tiktok":    10,
	"meta":      3,
	"facebook":  3,
	"reddit":    6,
	"linkedin":  2,
}

func platformBonus(platform, format string) float64 {
	bonus := platformBonuses[strings.ToLower(platform)]
	switch format {
	case "video", "reel", "short":
		bonus += 3
	}
	return bonus
}

func qualityBonus(ad *platforms.NormalizedAd) float64 {
	bonus := 0.0
	if len(ad.Headline) > 10 {
		bonus += 2
	}
	if len(ad.Description) > 50 {
		bonus += 3
	}
	if ad.ImageURL != "" {
		bonus += 2
	}
	if ad.VideoURL != "" {
		bonus += 3
	}
	if ad.DestinationURL != "" {
		bonus += 1
	}
	if rawString(ad.Raw, "channel", "owner") != "" {
		bonus += 2
	}
	return bonus
}

func sortByScore(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
}

func rawString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var nonNumericRe = regexp.MustCompile(`[^\d.]`)

// rawInt reads the first usable count for any of the keys. Platforms
// hand these back as numbers or as strings like "1,234", "1.2K" or
// "<100"; a "<N" bound counts as half of N.
func rawInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case string:
			if parsed, ok := parseCount(n); ok {
				return parsed
			}
		}
	}
	return 0
}

func parseCount(value string) (int, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return 0, false
	}

	if strings.HasPrefix(value, "<") {
		if n, ok := parseCount(value[1:]); ok {
			return n / 2, true
		}
		return 0, false
	}
	value = strings.TrimPrefix(value, ">")

	if parts := strings.SplitN(value, "-", 2); len(parts) == 2 {
		lo, okLo := parseCount(parts[0])
		hi, okHi := parseCount(parts[1])
		if okLo && okHi {
			return (lo + hi) / 2, true
		}
	}

	multiplier := 1.0
	switch {
	case strings.Contains(value, "k"):
		multiplier = 1_000
	case strings.Contains(value, "m"):
		multiplier = 1_000_000
	case strings.Contains(value, "b"):
		multiplier = 1_000_000_000
	}

	cleaned := nonNumericRe.ReplaceAllString(value, "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return int(n * multiplier), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
