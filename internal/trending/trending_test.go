package trending

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"adscope/internal/platforms"
)

type fakeAdapter struct {
	platform string
	ads      []platforms.NormalizedAd
	err      error
	queries  []string
}

func (f *fakeAdapter) Platform() string { return f.platform }

func (f *fakeAdapter) Search(ctx context.Context, query string, maxResults int) ([]platforms.NormalizedAd, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.ads, nil
}

func TestSearchRanksAcrossPlatforms(t *testing.T) {
	meta := &fakeAdapter{platform: platforms.Meta, ads: []platforms.NormalizedAd{
		{ID: "m-1", Headline: "Quiet launch", Raw: map[string]any{"likes": float64(2)}},
	}}
	reddit := &fakeAdapter{platform: platforms.Reddit, ads: []platforms.NormalizedAd{
		{ID: "r-1", Headline: "Front page post", Raw: map[string]any{"upvotes": float64(50000), "comments": float64(2000)}},
	}}
	svc := New(meta, reddit)

	result := svc.Search(context.Background(), "crm software", nil, 5)

	if result.Status != "completed" {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.Summary.TotalResults != 2 {
		t.Fatalf("total results = %d, want 2", result.Summary.TotalResults)
	}
	if len(result.TopTrending) != 2 {
		t.Fatalf("top trending = %d items, want 2", len(result.TopTrending))
	}
	if got := result.TopTrending[0].Platform; got != platforms.Reddit {
		t.Errorf("top item platform = %q, want reddit", got)
	}
	if result.TopTrending[0].Rank != 1 || result.TopTrending[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", result.TopTrending[0].Rank, result.TopTrending[1].Rank)
	}
	// Rank is assigned on the same items the per-platform map holds.
	if result.Results[platforms.Reddit][0].Rank != 1 {
		t.Errorf("reddit item rank = %d, want 1", result.Results[platforms.Reddit][0].Rank)
	}
	if result.Summary.TopScore != result.TopTrending[0].Score {
		t.Errorf("top score = %v, want %v", result.Summary.TopScore, result.TopTrending[0].Score)
	}
	if len(meta.queries) != 1 || meta.queries[0] != "crm software" {
		t.Errorf("meta queries = %v", meta.queries)
	}
}

func TestSearchPlatformFailureIsIsolated(t *testing.T) {
	meta := &fakeAdapter{platform: platforms.Meta, err: errors.New("upstream 500")}
	youtube := &fakeAdapter{platform: platforms.YouTube, ads: []platforms.NormalizedAd{
		{ID: "y-1", Headline: "Product demo walkthrough", Format: "video"},
	}}
	svc := New(meta, youtube)

	result := svc.Search(context.Background(), "demo", nil, 5)

	if len(result.Results[platforms.Meta]) != 0 {
		t.Errorf("meta results = %d, want 0", len(result.Results[platforms.Meta]))
	}
	if len(result.Results[platforms.YouTube]) != 1 {
		t.Fatalf("youtube results = %d, want 1", len(result.Results[platforms.YouTube]))
	}
	if result.PlatformPerformance[platforms.Meta] != 0 {
		t.Errorf("meta performance = %v, want 0", result.PlatformPerformance[platforms.Meta])
	}
}

func TestSearchSkipsUnselectedPlatforms(t *testing.T) {
	meta := &fakeAdapter{platform: platforms.Meta, ads: []platforms.NormalizedAd{{ID: "m-1", Headline: "Ad"}}}
	reddit := &fakeAdapter{platform: platforms.Reddit, ads: []platforms.NormalizedAd{{ID: "r-1", Headline: "Post"}}}
	svc := New(meta, reddit)

	result := svc.Search(context.Background(), "keyword", []string{platforms.Reddit}, 5)

	if len(meta.queries) != 0 {
		t.Errorf("meta was queried: %v", meta.queries)
	}
	if len(result.Results[platforms.Meta]) != 0 {
		t.Errorf("meta results = %d, want 0", len(result.Results[platforms.Meta]))
	}
	if len(result.Results[platforms.Reddit]) != 1 {
		t.Errorf("reddit results = %d, want 1", len(result.Results[platforms.Reddit]))
	}
}

func TestItemTitleFallbacks(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "headline! "
	}

	tests := []struct {
		name string
		ad   platforms.NormalizedAd
		want string
	}{
		{"headline wins", platforms.NormalizedAd{Headline: "Big Sale", Description: "desc"}, "Big Sale"},
		{"description fallback", platforms.NormalizedAd{Description: "Only a description"}, "Only a description"},
		{"platform fallback", platforms.NormalizedAd{}, "reddit content"},
		{"long headline truncated", platforms.NormalizedAd{Headline: long}, long[:100]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemTitle("reddit", &tt.ad); got != tt.want {
				t.Errorf("itemTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScoreWeighsEngagement(t *testing.T) {
	svc := New()

	// No engagement at all floors at the base score.
	bare := &platforms.NormalizedAd{Raw: map[string]any{}}
	if got := svc.score("linkedin", bare); got != 12 { // base 10 + linkedin 2
		t.Errorf("bare score = %v, want 12", got)
	}

	// Comments are worth five likes.
	commented := &platforms.NormalizedAd{Raw: map[string]any{"comments": float64(100)}}
	liked := &platforms.NormalizedAd{Raw: map[string]any{"likes": float64(100)}}
	if sc, sl := svc.score("meta", commented), svc.score("meta", liked); sc <= sl {
		t.Errorf("commented score %v not above liked score %v", sc, sl)
	}

	// Engagement alone caps at 70 before bonuses.
	viral := &platforms.NormalizedAd{Raw: map[string]any{"likes": float64(10_000_000)}}
	want := 70.0 + platformBonuses["meta"]
	if got := svc.score("meta", viral); math.Abs(got-want) > 1e-9 {
		t.Errorf("viral score = %v, want %v", got, want)
	}
}

func TestScoreRecencyBonusDecays(t *testing.T) {
	now := time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC)
	svc := New()
	svc.now = func() time.Time { return now }

	tests := []struct {
		name      string
		createdAt time.Time
		want      float64
	}{
		{"under an hour", now.Add(-30 * time.Minute), 15},
		{"under a day", now.Add(-5 * time.Hour), 10},
		{"under a week", now.Add(-3 * 24 * time.Hour), 5},
		{"under a month", now.Add(-20 * 24 * time.Hour), 2},
		{"older", now.Add(-60 * 24 * time.Hour), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{"created_at": tt.createdAt.Format(time.RFC3339)}
			if got := svc.recencyBonus(raw); got != tt.want {
				t.Errorf("recencyBonus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1,234", 1234},
		{"1.5K", 1500},
		{"2M", 2000000},
		{"<100", 50},
		{">1000", 1000},
		{"1,000-5,000", 3000},
		{"garbage", 0},
	}
	for _, tt := range tests {
		got, _ := parseCount(tt.in)
		if got != tt.want {
			t.Errorf("parseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
