package analytics

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "adscope/internal/db"
	"adscope/internal/telemetry"
)

// MetricsCalculator derives PeriodMetrics snapshots from stored ads.
// All figures are estimates built from industry benchmark rates; the
// only literal inputs are parsed impression and spend strings.
type MetricsCalculator struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMetricsCalculator(db *gorm.DB) *MetricsCalculator {
	return &MetricsCalculator{db: db, now: time.Now}
}

// CalculateForCompetitor computes (or recomputes in place) the metrics
// snapshot for one competitor and period. Returns nil without error
// when the competitor does not exist or is inactive.
func (c *MetricsCalculator) CalculateForCompetitor(competitorID uuid.UUID, period string) (*dbpkg.PeriodMetrics, error) {
	started := time.Now()
	defer func() { telemetry.ObserveCalculation("period_metrics", time.Since(started)) }()

	var competitor dbpkg.Competitor
	err := c.db.Where("id = ? AND is_active = ?", competitorID, true).
		Limit(1).Find(&competitor).Error
	if err != nil {
		return nil, err
	}
	if competitor.ID == uuid.Nil {
		log.Printf("competitor %s not found or not active, skipping metrics", competitorID)
		return nil, nil
	}

	startDate, endDate, err := c.dateRange(period, competitorID)
	if err != nil {
		return nil, err
	}

	ads, err := c.adsInWindow(competitorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	log.Printf("found %d ads for %s (%s: %s to %s)",
		len(ads), competitor.Name, period,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	totalAds := len(ads)
	activeAds := 0
	for _, ad := range ads {
		if ad.IsActive {
			activeAds++
		}
	}

	platformCounts := map[string]int{}
	for _, ad := range ads {
		platform := ad.Platform
		if platform == "" {
			platform = "unknown"
		}
		platformCounts[platform]++
	}

	monthlySpend := estimateMonthlySpend(ads)

	snapshot := map[string]any{
		"calculated_at": c.now(),

		"total_ads":        totalAds,
		"active_ads":       activeAds,
		"ads_per_platform": platformCountsJSON(platformCounts),

		"estimated_daily_spend":   dailySpend(monthlySpend),
		"estimated_weekly_spend":  weeklySpend(monthlySpend),
		"estimated_monthly_spend": monthlySpend,
		"total_spend":             totalSpend(ads),

		"avg_cpm":                avgCPM(ads),
		"avg_cpc":                estimateCPC(ads),
		"avg_ctr":                estimateCTR(ads),
		"avg_frequency":          estimateFrequency(ads),
		"conversion_probability": estimateConversionProbability(ads),

		"creative_performance":     analyzeCreatives(ads),
		"top_performing_creatives": topCreatives(ads),

		"funnel_stage_distribution": detectFunnelStages(ads),
		"audience_clusters":         inferAudienceClusters(ads, &competitor),

		"geo_penetration":     geoPenetration(),
		"device_distribution": deviceDistribution(ads),

		"time_of_day_heatmap": timeOfDayHeatmap(),
		"ad_timeline":         buildAdTimeline(ads),

		"trends":            c.analyzeTrends(competitorID, startDate, endDate, totalAds),
		"recommendations":   generateRecommendations(ads, platformCounts),
		"risk_score":        riskScore(totalAds, activeAds, platformCounts),
		"opportunity_score": opportunityScore(totalAds, platformCounts),
	}

	var existing dbpkg.PeriodMetrics
	err = c.db.Where("competitor_id = ? AND time_period = ? AND start_date = ? AND end_date = ?",
		competitorID, period, startDate, endDate).
		Limit(1).Find(&existing).Error
	if err != nil {
		return nil, err
	}

	if existing.ID != uuid.Nil {
		if err := c.db.Model(&existing).Updates(snapshot).Error; err != nil {
			return nil, err
		}
	} else {
		existing = dbpkg.PeriodMetrics{
			CompetitorID: competitorID,
			TimePeriod:   period,
			StartDate:    startDate,
			EndDate:      endDate,
		}
		if err := c.db.Create(&existing).Error; err != nil {
			return nil, err
		}
		if err := c.db.Model(&existing).Updates(snapshot).Error; err != nil {
			return nil, err
		}
	}

	// Keep the competitor's cached spend estimate in sync so the
	// summary aggregator has a fallback even without a monthly row.
	if period == dbpkg.PeriodMonthly {
		if err := c.db.Model(&competitor).
			Update("estimated_monthly_spend", monthlySpend).Error; err != nil {
			return nil, err
		}
	}

	var result dbpkg.PeriodMetrics
	if err := c.db.First(&result, "id = ?", existing.ID).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// CalculateForUser recomputes one period for every active competitor a
// user owns, isolating per-competitor failures.
func (c *MetricsCalculator) CalculateForUser(userID uuid.UUID, period string) ([]dbpkg.PeriodMetrics, error) {
	competitors, err := dbpkg.ActiveCompetitors(c.db, userID, nil)
	if err != nil {
		return nil, err
	}

	results := make([]dbpkg.PeriodMetrics, 0, len(competitors))
	for _, competitor := range competitors {
		m, err := c.CalculateForCompetitor(competitor.ID, period)
		if err != nil {
			log.Printf("metrics calculation failed for %s: %v", competitor.Name, err)
			continue
		}
		if m != nil {
			results = append(results, *m)
		}
	}
	return results, nil
}

// dateRange resolves a period name to a concrete [start, end] date
// window. Dates are UTC midnights; adsInWindow treats end as inclusive
// of the whole end day.
func (c *MetricsCalculator) dateRange(period string, competitorID uuid.UUID) (time.Time, time.Time, error) {
	today := c.today()

	switch period {
	case dbpkg.PeriodDaily:
		return today, today, nil

	case dbpkg.PeriodWeekly:
		// Monday through Sunday.
		weekday := int(today.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := today.AddDate(0, 0, -(weekday - 1))
		return start, start.AddDate(0, 0, 6), nil

	case dbpkg.PeriodMonthly:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
		return start, end, nil

	case dbpkg.PeriodQuarterly:
		quarter := (int(today.Month()) - 1) / 3
		start := time.Date(today.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, 0).AddDate(0, 0, -1)
		return start, end, nil

	case dbpkg.PeriodAllTime:
		var earliest *time.Time
		err := c.db.Model(&dbpkg.Ad{}).
			Where("competitor_id = ?", competitorID).
			Select("MIN(first_seen)").Scan(&earliest).Error
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if earliest != nil && !earliest.IsZero() {
			start := time.Date(earliest.Year(), earliest.Month(), earliest.Day(), 0, 0, 0, 0, time.UTC)
			return start, today, nil
		}
		return today.AddDate(0, 0, -365), today, nil

	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown time period %q", period)
	}
}

func (c *MetricsCalculator) today() time.Time {
	now := c.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// adsInWindow selects ads first observed inside the window. Membership
// is by first_seen only so an ad belongs to exactly one daily window.
func (c *MetricsCalculator) adsInWindow(competitorID uuid.UUID, start, end time.Time) ([]dbpkg.Ad, error) {
	var ads []dbpkg.Ad
	err := c.db.Where("competitor_id = ? AND first_seen >= ? AND first_seen < ?",
		competitorID, start, end.AddDate(0, 0, 1)).
		Find(&ads).Error
	return ads, err
}

func platformCountsJSON(counts map[string]int) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for platform, n := range counts {
		out[platform] = n
	}
	return out
}

// estimateMonthlySpend prices each ad's impressions at its platform CPM
// rate. Ads without a usable impression figure get the platform's
// fallback volume.
func estimateMonthlySpend(ads []dbpkg.Ad) float64 {
	total := 0.0
	for _, ad := range ads {
		impressions := parseImpressions(ad.Impressions)
		platform := strings.ToLower(ad.Platform)
		if impressions == fallbackImpressions {
			impressions = rateFor(platformImpressions, platform, defaultImpressions)
		}
		cpm := rateFor(platformCPM, platform, defaultCPM)
		total += impressions / 1000 * cpm
	}
	return round2(total)
}

func dailySpend(monthly float64) float64 {
	if monthly == 0 {
		return 0
	}
	return monthly / 30
}

func weeklySpend(monthly float64) float64 {
	if monthly == 0 {
		return 0
	}
	return monthly / 4.33
}

func totalSpend(ads []dbpkg.Ad) float64 {
	total := 0.0
	for _, ad := range ads {
		total += parseSpend(ad.Spend)
	}
	return total
}

func avgCPM(ads []dbpkg.Ad) float64 {
	if len(ads) == 0 {
		return 0
	}
	total := 0.0
	counted := 0
	for _, ad := range ads {
		if ad.Platform == "" {
			continue
		}
		total += rateFor(platformCPM, ad.Platform, defaultCPM)
		counted++
	}
	if counted == 0 {
		return defaultCPM
	}
	return total / float64(counted)
}

func estimateCTR(ads []dbpkg.Ad) float64 {
	if len(ads) == 0 {
		return defaultCTR
	}
	total := 0.0
	for _, ad := range ads {
		total += rateFor(platformCTR, ad.Platform, defaultCTR)
	}
	return total / float64(len(ads))
}

func estimateCPC(ads []dbpkg.Ad) float64 {
	if len(ads) == 0 {
		return defaultCPC
	}
	total := 0.0
	for _, ad := range ads {
		total += rateFor(platformCPC, ad.Platform, defaultCPC)
	}
	return total / float64(len(ads))
}

func estimateFrequency(ads []dbpkg.Ad) float64 {
	if len(ads) == 0 {
		return 1.0
	}
	total := 0.0
	for _, ad := range ads {
		total += rateFor(platformFrequency, ad.Platform, defaultFrequency)
	}
	avg := total / float64(len(ads))
	return math.Min(avg, 5.0)
}

func estimateConversionProbability(ads []dbpkg.Ad) float64 {
	if len(ads) == 0 {
		return defaultConversion
	}
	total := 0.0
	for _, ad := range ads {
		total += rateFor(platformConversion, ad.Platform, defaultConversion)
	}
	avg := total / float64(len(ads))

	// Larger campaigns convert better, trickles worse.
	if len(ads) > 20 {
		avg *= 1.2
	} else if len(ads) < 5 {
		avg *= 0.8
	}
	return math.Min(avg, 0.20)
}

var ctaKeywords = []string{"buy", "shop", "learn", "sign", "get", "try", "download", "subscribe", "register"}

func analyzeCreatives(ads []dbpkg.Ad) datatypes.JSONMap {
	analysis := datatypes.JSONMap{
		"total_analyzed":      len(ads),
		"with_images":         0,
		"with_videos":         0,
		"avg_headline_length": 0,
		"common_ctas":         []any{},
		"creative_variety":    0,
	}
	if len(ads) == 0 {
		return analysis
	}

	withImages, withVideos := 0, 0
	headlineLenSum, headlineCount := 0, 0
	ctaCounts := map[string]int{}
	variety := map[string]bool{}

	for _, ad := range ads {
		if ad.ImageURL != "" {
			withImages++
		}
		if ad.VideoURL != "" {
			withVideos++
		}
		if ad.Headline != "" {
			headlineLenSum += len(ad.Headline)
			headlineCount++

			lower := strings.ToLower(ad.Headline)
			for _, kw := range ctaKeywords {
				if strings.Contains(lower, kw) {
					ctaCounts[kw]++
				}
			}
		}

		platform := ad.Platform
		if platform == "" {
			platform = "unknown"
		}
		kind := "text"
		if ad.VideoURL != "" {
			kind = "video"
		} else if ad.ImageURL != "" {
			kind = "image"
		}
		variety[platform+"_"+kind] = true
	}

	analysis["with_images"] = withImages
	analysis["with_videos"] = withVideos
	if headlineCount > 0 {
		analysis["avg_headline_length"] = headlineLenSum / headlineCount
	}
	analysis["common_ctas"] = topCTAs(ctaCounts, 3)
	analysis["creative_variety"] = len(variety)

	return analysis
}

func topCTAs(counts map[string]int, limit int) []any {
	type entry struct {
		cta   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for cta, count := range counts {
		entries = append(entries, entry{cta, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].cta < entries[j].cta
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{"cta": e.cta, "count": e.count})
	}
	return out
}

// topCreatives scores ads by creative richness: video 3, image 2, a
// substantial headline 1. Top five survive.
func topCreatives(ads []dbpkg.Ad) datatypes.JSONSlice[dbpkg.TopCreative] {
	type scored struct {
		score int
		ad    dbpkg.Ad
	}
	scoredAds := make([]scored, 0, len(ads))
	for _, ad := range ads {
		score := 0
		if ad.VideoURL != "" {
			score += 3
		}
		if ad.ImageURL != "" {
			score += 2
		}
		if len(ad.Headline) > 10 {
			score++
		}
		scoredAds = append(scoredAds, scored{score, ad})
	}

	sort.SliceStable(scoredAds, func(i, j int) bool {
		return scoredAds[i].score > scoredAds[j].score
	})
	if len(scoredAds) > 5 {
		scoredAds = scoredAds[:5]
	}

	top := datatypes.JSONSlice[dbpkg.TopCreative]{}
	for _, s := range scoredAds {
		if s.ad.Headline == "" && s.ad.ImageURL == "" && s.ad.VideoURL == "" {
			continue
		}
		top = append(top, dbpkg.TopCreative{
			ID:       s.ad.ID.String(),
			Headline: s.ad.Headline,
			HasImage: s.ad.ImageURL != "",
			HasVideo: s.ad.VideoURL != "",
			Platform: s.ad.Platform,
			Score:    s.score,
		})
	}
	return top
}

var funnelKeywords = map[string][]string{
	"awareness":     {"new", "introducing", "discover", "learn about", "what is", "guide"},
	"consideration": {"compare", "vs", "review", "best", "how to", "tips", "benefits"},
	"conversion":    {"buy", "shop", "order", "get started", "sign up", "subscribe", "download"},
	"retention":     {"thank you", "exclusive", "member", "loyalty", "upgrade", "premium"},
}

var funnelStageOrder = []string{"awareness", "consideration", "conversion", "retention"}

func defaultFunnelDistribution() datatypes.JSONMap {
	return datatypes.JSONMap{
		"awareness":     0.4,
		"consideration": 0.3,
		"conversion":    0.2,
		"retention":     0.1,
	}
}

// detectFunnelStages buckets each headline into the funnel stage whose
// keywords match it most, then normalizes the bucket counts.
func detectFunnelStages(ads []dbpkg.Ad) datatypes.JSONMap {
	if len(ads) == 0 {
		return defaultFunnelDistribution()
	}

	stageCounts := map[string]int{}
	for _, ad := range ads {
		if ad.Headline == "" {
			continue
		}
		lower := strings.ToLower(ad.Headline)

		bestStage := ""
		bestScore := 0
		for _, stage := range funnelStageOrder {
			score := 0
			for _, kw := range funnelKeywords[stage] {
				if strings.Contains(lower, kw) {
					score++
				}
			}
			if score > bestScore {
				bestStage, bestScore = stage, score
			}
		}
		if bestScore > 0 {
			stageCounts[bestStage]++
		}
	}

	totalScored := 0
	for _, n := range stageCounts {
		totalScored += n
	}
	if totalScored == 0 {
		return defaultFunnelDistribution()
	}

	out := datatypes.JSONMap{}
	for _, stage := range funnelStageOrder {
		out[stage] = round2(float64(stageCounts[stage]) / float64(totalScored))
	}
	return out
}

// inferAudienceClusters guesses audience segments from the competitor's
// industry and the platform mix, capped at five.
func inferAudienceClusters(ads []dbpkg.Ad, competitor *dbpkg.Competitor) datatypes.JSONSlice[dbpkg.AudienceCluster] {
	clusters := datatypes.JSONSlice[dbpkg.AudienceCluster]{
		{Name: "General Audience", Confidence: 0.3, Size: "large"},
	}

	industry := strings.ToLower(competitor.Industry)
	switch {
	case industry == "":
	case strings.Contains(industry, "b2b") || strings.Contains(industry, "enterprise") || strings.Contains(industry, "business"):
		clusters = append(clusters, dbpkg.AudienceCluster{Name: "Business Professionals", Confidence: 0.7, Size: "medium"})
	case strings.Contains(industry, "tech") || strings.Contains(industry, "software") || strings.Contains(industry, "saas"):
		clusters = append(clusters,
			dbpkg.AudienceCluster{Name: "Tech Enthusiasts", Confidence: 0.8, Size: "medium"},
			dbpkg.AudienceCluster{Name: "Developers", Confidence: 0.6, Size: "small"})
	case strings.Contains(industry, "fashion") || strings.Contains(industry, "apparel"):
		clusters = append(clusters,
			dbpkg.AudienceCluster{Name: "Fashion-forward Consumers", Confidence: 0.9, Size: "large"},
			dbpkg.AudienceCluster{Name: "Luxury Shoppers", Confidence: 0.4, Size: "small"})
	case strings.Contains(industry, "sports") || strings.Contains(industry, "fitness"):
		clusters = append(clusters,
			dbpkg.AudienceCluster{Name: "Fitness Enthusiasts", Confidence: 0.8, Size: "medium"},
			dbpkg.AudienceCluster{Name: "Athletes", Confidence: 0.5, Size: "small"})
	case strings.Contains(industry, "food") || strings.Contains(industry, "restaurant"):
		clusters = append(clusters, dbpkg.AudienceCluster{Name: "Foodies", Confidence: 0.9, Size: "large"})
	case strings.Contains(industry, "travel") || strings.Contains(industry, "hotel"):
		clusters = append(clusters,
			dbpkg.AudienceCluster{Name: "Travelers", Confidence: 0.8, Size: "medium"},
			dbpkg.AudienceCluster{Name: "Luxury Travelers", Confidence: 0.4, Size: "small"})
	}

	platformSet := map[string]bool{}
	for _, ad := range ads {
		platformSet[strings.ToLower(ad.Platform)] = true
	}
	if platformSet["linkedin"] {
		clusters = append(clusters, dbpkg.AudienceCluster{Name: "Corporate Decision Makers", Confidence: 0.6, Size: "small"})
	}
	if platformSet["tiktok"] || platformSet["instagram"] {
		clusters = append(clusters, dbpkg.AudienceCluster{Name: "Gen Z/Millennials", Confidence: 0.8, Size: "large"})
	}
	if platformSet["reddit"] {
		clusters = append(clusters, dbpkg.AudienceCluster{Name: "Niche Community Members", Confidence: 0.7, Size: "small"})
	}

	if len(clusters) > 5 {
		clusters = clusters[:5]
	}
	return clusters
}

// geoPenetration is a fixed English-market prior until real geo signals
// exist on any platform.
func geoPenetration() datatypes.JSONMap {
	return datatypes.JSONMap{
		"US":    0.5,
		"UK":    0.15,
		"CA":    0.1,
		"AU":    0.05,
		"DE":    0.05,
		"FR":    0.04,
		"JP":    0.03,
		"IN":    0.03,
		"Other": 0.15,
	}
}

func deviceDistribution(ads []dbpkg.Ad) datatypes.JSONMap {
	if len(ads) == 0 {
		return datatypes.JSONMap{"mobile": 0.6, "desktop": 0.3, "tablet": 0.1}
	}

	totals := map[string]float64{"mobile": 0, "desktop": 0, "tablet": 0}
	for _, ad := range ads {
		platform := strings.ToLower(ad.Platform)
		pref, ok := platformDevicePref[platform]
		if !ok {
			pref = defaultDevicePref
		}
		for device, weight := range pref {
			totals[device] += weight
		}
	}

	sum := totals["mobile"] + totals["desktop"] + totals["tablet"]
	if sum == 0 {
		return datatypes.JSONMap{"mobile": 0.6, "desktop": 0.3, "tablet": 0.1}
	}
	return datatypes.JSONMap{
		"mobile":  round2(totals["mobile"] / sum),
		"desktop": round2(totals["desktop"] / sum),
		"tablet":  round2(totals["tablet"] / sum),
	}
}

// timeOfDayHeatmap is a normalized business-hours prior; per-hour
// delivery data is not observable from ad libraries.
func timeOfDayHeatmap() datatypes.JSONMap {
	raw := map[string]float64{}
	total := 0.0
	for hour := 0; hour < 24; hour++ {
		var weight float64
		switch {
		case hour >= 8 && hour <= 10:
			weight = 0.10
		case hour >= 11 && hour <= 13:
			weight = 0.08
		case hour >= 14 && hour <= 16:
			weight = 0.15
		case hour >= 17 && hour <= 19:
			weight = 0.12
		case hour >= 20 && hour <= 22:
			weight = 0.09
		default:
			weight = 0.03
		}
		raw[fmt.Sprintf("%02d:00", hour)] = weight
		total += weight
	}

	out := datatypes.JSONMap{}
	for hour, weight := range raw {
		out[hour] = round3(weight / total)
	}
	return out
}

func buildAdTimeline(ads []dbpkg.Ad) datatypes.JSONSlice[dbpkg.TimelineEvent] {
	sorted := make([]dbpkg.Ad, len(ads))
	copy(sorted, ads)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FirstSeen.Before(sorted[j].FirstSeen)
	})
	if len(sorted) > 20 {
		sorted = sorted[:20]
	}

	timeline := datatypes.JSONSlice[dbpkg.TimelineEvent]{}
	for _, ad := range sorted {
		preview := ad.Headline
		if len(preview) > 50 {
			preview = preview[:50] + "..."
		}
		timeline = append(timeline, dbpkg.TimelineEvent{
			Date:            ad.FirstSeen.Format(time.RFC3339),
			Action:          "ad_detected",
			Platform:        ad.Platform,
			HeadlinePreview: preview,
			HasCreative:     ad.ImageURL != "" || ad.VideoURL != "",
		})
	}
	return timeline
}

// analyzeTrends compares current ad volume with the most recent
// snapshot covering the window of the same length ending the day before
// this one starts.
func (c *MetricsCalculator) analyzeTrends(competitorID uuid.UUID, start, end time.Time, currentAds int) datatypes.JSONMap {
	periodDays := int(end.Sub(start).Hours()/24) + 1
	prevStart := start.AddDate(0, 0, -periodDays)
	prevEnd := start.AddDate(0, 0, -1)

	var prev dbpkg.PeriodMetrics
	err := c.db.Where("competitor_id = ? AND start_date >= ? AND end_date <= ?",
		competitorID, prevStart, prevEnd).
		Order("calculated_at DESC").
		Limit(1).Find(&prev).Error
	if err != nil {
		log.Printf("trend analysis error for %s: %v", competitorID, err)
		return datatypes.JSONMap{
			"status":  "insufficient_data",
			"message": "Need more data points for trend analysis",
			"trend":   "unknown",
		}
	}
	if prev.ID == uuid.Nil {
		return datatypes.JSONMap{
			"status":  "no_previous_data",
			"message": "No previous period data available for comparison",
			"trend":   "neutral",
		}
	}

	prevAds := prev.TotalAds
	var trend string
	var changePct float64
	if prevAds == 0 {
		if currentAds > 0 {
			trend, changePct = "growing", 100
		} else {
			trend, changePct = "stable", 0
		}
	} else {
		changePct = float64(currentAds-prevAds) / float64(prevAds) * 100
		switch {
		case changePct > 20:
			trend = "growing"
		case changePct < -20:
			trend = "declining"
		default:
			trend = "stable"
		}
	}

	return datatypes.JSONMap{
		"status":            "data_available",
		"message":           fmt.Sprintf("Ad volume changed by %.1f%% compared to previous period", changePct),
		"trend":             trend,
		"change_percentage": round1(changePct),
		"current_ads":       currentAds,
		"previous_ads":      prevAds,
	}
}

func generateRecommendations(ads []dbpkg.Ad, platformCounts map[string]int) datatypes.JSONSlice[string] {
	recommendations := datatypes.JSONSlice[string]{}

	if len(ads) == 0 {
		return append(recommendations, "Start tracking ads for this competitor to gather data")
	}

	if len(platformCounts) < 2 {
		var missing []string
		if _, ok := platformCounts["google"]; !ok {
			missing = append(missing, "Google Search")
		}
		_, hasMeta := platformCounts["meta"]
		_, hasFacebook := platformCounts["facebook"]
		if !hasMeta && !hasFacebook {
			missing = append(missing, "Facebook/Meta")
		}
		if _, ok := platformCounts["linkedin"]; !ok {
			missing = append(missing, "LinkedIn")
		}
		if len(missing) > 0 {
			recommendations = append(recommendations,
				"Consider monitoring competitor's presence on: "+strings.Join(missing, ", "))
		}
	}

	imageCount, videoCount := 0, 0
	for _, ad := range ads {
		if ad.ImageURL != "" {
			imageCount++
		}
		if ad.VideoURL != "" {
			videoCount++
		}
	}
	if videoCount == 0 && imageCount > 5 {
		recommendations = append(recommendations,
			"Competitor uses mostly static images - video ads could be an opportunity")
	}
	if float64(imageCount+videoCount) < float64(len(ads))*0.3 {
		recommendations = append(recommendations,
			"Limited creative content observed - monitor for new creative launches")
	}

	if len(ads) < 10 {
		recommendations = append(recommendations,
			"Limited ad data available - continue monitoring for more insights")
	} else if len(ads) > 100 {
		recommendations = append(recommendations,
			"High ad volume indicates aggressive marketing - track closely for strategy changes")
	}

	_, hasTikTok := platformCounts["tiktok"]
	_, hasInstagram := platformCounts["instagram"]
	if hasTikTok || hasInstagram {
		recommendations = append(recommendations,
			"Active on social platforms - focus on visual and short-form content")
	}
	if _, ok := platformCounts["linkedin"]; ok {
		recommendations = append(recommendations,
			"B2B presence detected - monitor for whitepapers, case studies, and thought leadership")
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	return recommendations
}

// riskScore rates how competitive this advertiser looks, 0-100.
func riskScore(totalAds, activeAds int, platformCounts map[string]int) int {
	score := 50.0

	switch {
	case totalAds == 0:
		score -= 20
	case totalAds < 5:
		score += 10
	case totalAds > 50:
		score += 30
	case totalAds > 20:
		score += 20
	}

	for platform, count := range platformCounts {
		risk := rateFor(platformRisk, platform, defaultRisk)
		score += math.Min(risk*float64(count)/10, risk)
	}

	if totalAds > 0 {
		activeRatio := float64(activeAds) / float64(totalAds)
		if activeRatio > 0.8 {
			score += 15
		} else if activeRatio < 0.3 {
			score -= 10
		}
	}

	return int(clamp(score, 0, 100))
}

// opportunityScore rates how much there is to learn from this
// advertiser, 0-100.
func opportunityScore(totalAds int, platformCounts map[string]int) int {
	score := 30.0

	score += math.Min(float64(totalAds)*2, 40)

	for platform, count := range platformCounts {
		opp := rateFor(platformOpportunity, platform, defaultOpportunity)
		score += math.Min(opp*float64(count)/5, opp)
	}

	if len(platformCounts) >= 3 {
		score += 15
	} else if len(platformCounts) == 2 {
		score += 10
	}

	_, hasLinkedIn := platformCounts["linkedin"]
	_, hasGoogle := platformCounts["google"]
	_, hasMeta := platformCounts["meta"]
	if hasLinkedIn && (hasGoogle || hasMeta) {
		score += 10
	}

	_, hasTikTok := platformCounts["tiktok"]
	_, hasInstagram := platformCounts["instagram"]
	if (hasTikTok || hasInstagram) && totalAds > 10 {
		score += 15
	}

	return int(clamp(score, 0, 100))
}
