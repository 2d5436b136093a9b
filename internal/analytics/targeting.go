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

// targetingDefaults are the tier-four fallbacks used when neither
// metrics, ad content nor the competitor profile yields a signal.
var targetingDefaults = struct {
	ageMin, ageMax     int
	ageRange           string
	genderRatio        map[string]float64
	primaryGender      string
	geography          map[string]any
	primaryLocation    string
	incomeLevel        string
	incomeScore        float64
	deviceDistribution map[string]float64
	primaryDevice      string
	funnelStage        string
	funnelScore        float64
	audienceType       string
	audienceSize       string
	biddingStrategy    string
	biddingConfidence  float64
	contentType        string
	callToAction       string
	cpm, cpc, roas     float64
	engagementRate     float64
}{
	ageMin: 25, ageMax: 34,
	ageRange:           "25-34",
	genderRatio:        map[string]float64{"male": 0.5, "female": 0.5, "other": 0.0},
	primaryGender:      "balanced",
	geography:          map[string]any{"countries": []string{"US"}, "states": []string{}, "cities": []string{}},
	primaryLocation:    "United States",
	incomeLevel:        "middle",
	incomeScore:        0.5,
	deviceDistribution: map[string]float64{"mobile": 0.6, "desktop": 0.35, "tablet": 0.05},
	primaryDevice:      "mobile",
	funnelStage:        "awareness",
	funnelScore:        0.5,
	audienceType:       "broad",
	audienceSize:       "medium",
	biddingStrategy:    "cpc",
	biddingConfidence:  0.5,
	contentType:        "image",
	callToAction:       "learn_more",
	cpm:                10.0,
	cpc:                1.5,
	roas:               2.0,
	engagementRate:     0.02,
}

var confidenceDimensions = []string{
	"age", "gender", "geography", "interests", "income",
	"device", "funnel", "audience", "bidding", "content", "performance",
}

// TargetingCalculator infers a competitor's targeting profile from its
// latest metrics snapshot and active ads. Each dimension cascades:
// metrics snapshot, then ad content, then the competitor profile, then
// a default with low confidence.
type TargetingCalculator struct {
	db       *gorm.DB
	now      func() time.Time
	cacheTTL time.Duration
}

func NewTargetingCalculator(db *gorm.DB) *TargetingCalculator {
	return &TargetingCalculator{db: db, now: time.Now, cacheTTL: 24 * time.Hour}
}

// CalculateForCompetitor computes (or returns the cached) targeting
// profile for one competitor. A row fresher than the TTL short-circuits
// unless force is set. Returns nil without error when the competitor
// does not belong to the user.
func (c *TargetingCalculator) CalculateForCompetitor(competitorID, userID uuid.UUID, force bool) (*dbpkg.TargetingIntel, error) {
	started := time.Now()
	defer func() { telemetry.ObserveCalculation("targeting_intel", time.Since(started)) }()

	if !force {
		var cached dbpkg.TargetingIntel
		err := c.db.Where("competitor_id = ? AND user_id = ? AND is_active = ? AND last_calculated_at >= ?",
			competitorID, userID, true, c.now().Add(-c.cacheTTL)).
			Limit(1).Find(&cached).Error
		if err != nil {
			return nil, err
		}
		if cached.ID != uuid.Nil {
			log.Printf("using cached targeting intel for competitor %s", competitorID)
			return &cached, nil
		}
	}

	competitor, err := dbpkg.CompetitorForUser(c.db, competitorID, userID)
	if err != nil {
		log.Printf("competitor %s not found for targeting intel: %v", competitorID, err)
		return nil, nil
	}

	var metrics *dbpkg.PeriodMetrics
	var latest dbpkg.PeriodMetrics
	err = c.db.Where("competitor_id = ?", competitorID).
		Order("calculated_at DESC").
		Limit(1).Find(&latest).Error
	if err != nil {
		return nil, err
	}
	if latest.ID != uuid.Nil {
		metrics = &latest
	}

	var ads []dbpkg.Ad
	if err := c.db.Where("competitor_id = ? AND is_active = ?", competitorID, true).Find(&ads).Error; err != nil {
		return nil, err
	}

	if metrics == nil && len(ads) == 0 {
		log.Printf("no metrics or ads for %s, writing default targeting intel", competitor.Name)
		return c.writeBasicIntel(competitor, userID)
	}

	age := calcAgeTargeting(metrics, ads, competitor)
	gender := calcGenderTargeting(metrics, ads, competitor)
	geo := calcGeographyTargeting(metrics, competitor)
	interests := calcInterestClusters(metrics, ads, competitor)
	income := calcIncomeLevel(metrics, ads, competitor)
	device := calcDeviceTargeting(metrics, ads)
	funnel := calcFunnelStage(metrics, ads)
	audience := calcAudienceType(metrics, ads)
	bidding := calcBiddingStrategy(metrics, ads)
	content := calcContentAnalysis(ads)
	performance := calcPerformance(metrics)

	confidences := calcConfidenceScores(metrics, ads, map[string]float64{
		"age":       age.confidence,
		"gender":    gender.confidence,
		"geography": geo.confidence,
		"interests": interests.confidence,
		"income":    income.confidence,
		"device":    device.confidence,
		"funnel":    funnel.confidence,
		"audience":  audience.confidence,
		"bidding":   bidding.confidence,
	})

	overall := 0.0
	for _, v := range confidences {
		overall += v.(float64)
	}
	overall /= float64(len(confidences))

	var intel dbpkg.TargetingIntel
	err = c.db.Where("competitor_id = ? AND user_id = ?", competitorID, userID).
		Limit(1).Find(&intel).Error
	if err != nil {
		return nil, err
	}
	if intel.ID == uuid.Nil {
		intel = dbpkg.TargetingIntel{CompetitorID: competitorID, UserID: userID}
		if err := c.db.Create(&intel).Error; err != nil {
			return nil, err
		}
	}

	now := c.now()
	updates := map[string]any{
		"age_min":             age.minAge,
		"age_max":             age.maxAge,
		"age_range":           age.ageRange,
		"gender_ratio":        toJSONMap(gender.ratio),
		"primary_gender":      gender.primary,
		"geography":           datatypes.JSONMap(geo.locations),
		"primary_location":    geo.primaryLocation,
		"interest_clusters":   datatypes.JSONSlice[string](interests.clusters),
		"primary_interests":   datatypes.JSONSlice[string](interests.primary),
		"income_level":        income.level,
		"income_score":        income.score,
		"device_distribution": toJSONMap(device.distribution),
		"primary_device":      device.primary,
		"funnel_stage":        funnel.stage,
		"funnel_score":        funnel.score,
		"audience_type":       audience.audienceType,
		"audience_size":       audience.size,
		"bidding_strategy":    bidding.strategy,
		"bidding_confidence":  bidding.confidence,
		"content_type":        content.contentType,
		"call_to_action":      content.cta,
		"estimated_cpm":       performance.cpm,
		"estimated_cpc":       performance.cpc,
		"estimated_roas":      performance.roas,
		"engagement_rate":     performance.engagementRate,
		"confidence_scores":   confidences,
		"overall_confidence":  overall,
		"last_calculated_at":  now,
		"is_active":           true,
		"raw_analysis": datatypes.JSONMap{
			"metrics_available":     metrics != nil,
			"ads_count":             len(ads),
			"calculation_timestamp": now.Format(time.RFC3339),
		},
	}
	if err := c.db.Model(&intel).Updates(updates).Error; err != nil {
		return nil, err
	}

	var result dbpkg.TargetingIntel
	if err := c.db.First(&result, "id = ?", intel.ID).Error; err != nil {
		return nil, err
	}
	log.Printf("calculated targeting intel for %s with confidence %.2f", competitor.Name, overall)
	return &result, nil
}

// writeBasicIntel persists an all-defaults profile with uniformly low
// confidence when there is nothing to infer from.
func (c *TargetingCalculator) writeBasicIntel(competitor *dbpkg.Competitor, userID uuid.UUID) (*dbpkg.TargetingIntel, error) {
	scores := datatypes.JSONMap{}
	for _, dim := range confidenceDimensions {
		scores[dim] = 0.1
	}

	var intel dbpkg.TargetingIntel
	err := c.db.Where("competitor_id = ? AND user_id = ?", competitor.ID, userID).
		Limit(1).Find(&intel).Error
	if err != nil {
		return nil, err
	}
	if intel.ID == uuid.Nil {
		intel = dbpkg.TargetingIntel{CompetitorID: competitor.ID, UserID: userID}
		if err := c.db.Create(&intel).Error; err != nil {
			return nil, err
		}
	}

	now := c.now()
	updates := map[string]any{
		"age_min":             targetingDefaults.ageMin,
		"age_max":             targetingDefaults.ageMax,
		"age_range":           targetingDefaults.ageRange,
		"gender_ratio":        toJSONMap(targetingDefaults.genderRatio),
		"primary_gender":      targetingDefaults.primaryGender,
		"geography":           datatypes.JSONMap(targetingDefaults.geography),
		"primary_location":    targetingDefaults.primaryLocation,
		"interest_clusters":   datatypes.JSONSlice[string]{"general", "business"},
		"primary_interests":   datatypes.JSONSlice[string]{"general", "business"},
		"income_level":        targetingDefaults.incomeLevel,
		"income_score":        targetingDefaults.incomeScore,
		"device_distribution": toJSONMap(targetingDefaults.deviceDistribution),
		"primary_device":      targetingDefaults.primaryDevice,
		"funnel_stage":        targetingDefaults.funnelStage,
		"funnel_score":        targetingDefaults.funnelScore,
		"audience_type":       targetingDefaults.audienceType,
		"audience_size":       targetingDefaults.audienceSize,
		"bidding_strategy":    targetingDefaults.biddingStrategy,
		"bidding_confidence":  targetingDefaults.biddingConfidence,
		"content_type":        targetingDefaults.contentType,
		"call_to_action":      targetingDefaults.callToAction,
		"estimated_cpm":       targetingDefaults.cpm,
		"estimated_cpc":       targetingDefaults.cpc,
		"estimated_roas":      targetingDefaults.roas,
		"engagement_rate":     targetingDefaults.engagementRate,
		"confidence_scores":   scores,
		"overall_confidence":  0.1,
		"last_calculated_at":  now,
		"is_active":           true,
	}
	if err := c.db.Model(&intel).Updates(updates).Error; err != nil {
		return nil, err
	}

	var result dbpkg.TargetingIntel
	if err := c.db.First(&result, "id = ?", intel.ID).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// IntelSummary is the per-competitor outcome of a bulk calculation.
type IntelSummary struct {
	CompetitorID      uuid.UUID `json:"competitor_id"`
	CompetitorName    string    `json:"competitor_name"`
	Success           bool      `json:"success"`
	OverallConfidence float64   `json:"overall_confidence,omitempty"`
	LastCalculated    string    `json:"last_calculated,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// BulkIntelResult summarizes a multi-competitor calculation run.
type BulkIntelResult struct {
	Success          bool           `json:"success"`
	Message          string         `json:"message"`
	TotalCompetitors int            `json:"total_competitors"`
	Calculated       int            `json:"calculated"`
	Failed           int            `json:"failed"`
	Results          []IntelSummary `json:"results"`
}

// CalculateForUser recalculates targeting intel for some or all of a
// user's active competitors, isolating per-competitor failures.
func (c *TargetingCalculator) CalculateForUser(userID uuid.UUID, competitorIDs []uuid.UUID, force bool) *BulkIntelResult {
	competitors, err := dbpkg.ActiveCompetitors(c.db, userID, competitorIDs)
	if err != nil {
		return &BulkIntelResult{Success: false, Message: err.Error(), Results: []IntelSummary{}}
	}
	if len(competitors) == 0 {
		return &BulkIntelResult{
			Success: false,
			Message: "No active competitors found",
			Results: []IntelSummary{},
		}
	}

	result := &BulkIntelResult{Success: true, TotalCompetitors: len(competitors)}
	for _, competitor := range competitors {
		intel, err := c.CalculateForCompetitor(competitor.ID, userID, force)
		if err != nil || intel == nil {
			msg := "Calculation failed"
			if err != nil {
				msg = err.Error()
			}
			result.Failed++
			result.Results = append(result.Results, IntelSummary{
				CompetitorID:   competitor.ID,
				CompetitorName: competitor.Name,
				Success:        false,
				Error:          msg,
			})
			continue
		}

		summary := IntelSummary{
			CompetitorID:      competitor.ID,
			CompetitorName:    competitor.Name,
			Success:           true,
			OverallConfidence: intel.OverallConfidence,
		}
		if intel.LastCalculatedAt != nil {
			summary.LastCalculated = intel.LastCalculatedAt.Format(time.RFC3339)
		}
		result.Calculated++
		result.Results = append(result.Results, summary)
	}

	result.Message = bulkMessage(result.Calculated, result.Failed)
	return result
}

func bulkMessage(calculated, failed int) string {
	return fmt.Sprintf("Calculated targeting intel for %d competitors, %d failed", calculated, failed)
}

func toJSONMap(m map[string]float64) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- age ---

type ageResult struct {
	minAge, maxAge int
	ageRange       string
	confidence     float64
}

var clusterAgeKeywords = map[string]string{
	"teen": "18-24", "teenager": "18-24", "college": "18-24", "student": "18-24",
	"young": "18-34", "youth": "18-34", "millennial": "25-40",
	"adult": "25-54", "professional": "25-54", "working": "25-54",
	"middle": "35-54", "family": "25-44", "parent": "25-44",
	"senior": "55+", "retired": "55+", "retirement": "55+",
}

var adAgeKeywords = map[string]int{
	"teen": 13, "teenager": 13, "college": 18, "university": 18,
	"young": 18, "youth": 18, "adult": 25, "professional": 30,
	"middle": 40, "senior": 55, "retirement": 60, "family": 35,
}

func calcAgeTargeting(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad, competitor *dbpkg.Competitor) ageResult {
	if metrics != nil {
		var patterns []string
		for _, cluster := range metrics.AudienceClusters {
			lower := strings.ToLower(cluster.Name)
			for keyword, ageRange := range clusterAgeKeywords {
				if strings.Contains(lower, keyword) {
					patterns = append(patterns, ageRange)
				}
			}
		}
		if len(patterns) > 0 {
			return processAgePatterns(patterns)
		}
	}

	var ages []int
	for _, ad := range ads {
		if ad.Description == "" {
			continue
		}
		lower := strings.ToLower(ad.Description)
		for keyword, age := range adAgeKeywords {
			if strings.Contains(lower, keyword) {
				ages = append(ages, age)
			}
		}
	}
	if len(ages) > 0 {
		return processAgeData(ages)
	}

	if r, ok := inferAgeFromCompetitor(competitor); ok {
		return r
	}

	return ageResult{minAge: 25, maxAge: 34, ageRange: "25-34", confidence: 0.3}
}

func processAgePatterns(patterns []string) ageResult {
	counts := map[string]int{}
	for _, p := range patterns {
		counts[p]++
	}
	best, bestCount := "", 0
	for p, n := range counts {
		if n > bestCount || (n == bestCount && p < best) {
			best, bestCount = p, n
		}
	}

	minAge, maxAge := 25, 34
	if strings.Contains(best, "-") {
		parts := strings.SplitN(best, "-", 2)
		minAge, maxAge = atoiSafe(parts[0], 25), atoiSafe(parts[1], 34)
	} else if strings.Contains(best, "+") {
		minAge = atoiSafe(strings.TrimSuffix(best, "+"), 55)
		maxAge = 75
	}

	return ageResult{
		minAge:     minAge,
		maxAge:     maxAge,
		ageRange:   best,
		confidence: math.Min(float64(len(patterns))/3, 1.0),
	}
}

func processAgeData(ages []int) ageResult {
	minAge, maxAge := ages[0], ages[0]
	buckets := map[string]int{}
	for _, age := range ages {
		if age < minAge {
			minAge = age
		}
		if age > maxAge {
			maxAge = age
		}
		switch {
		case age >= 18 && age <= 24:
			buckets["18-24"]++
		case age >= 25 && age <= 34:
			buckets["25-34"]++
		case age >= 35 && age <= 44:
			buckets["35-44"]++
		case age >= 45 && age <= 54:
			buckets["45-54"]++
		case age >= 55:
			buckets["55+"]++
		}
	}

	best, bestCount := "25-34", 0
	for _, rng := range []string{"18-24", "25-34", "35-44", "45-54", "55+"} {
		if buckets[rng] > bestCount {
			best, bestCount = rng, buckets[rng]
		}
	}

	return ageResult{
		minAge:     minAge,
		maxAge:     maxAge,
		ageRange:   best,
		confidence: math.Min(float64(len(ages))/5, 1.0),
	}
}

func inferAgeFromCompetitor(competitor *dbpkg.Competitor) (ageResult, bool) {
	name := strings.ToLower(competitor.Name)
	switch {
	case containsAny(name, "kid", "child", "toy", "baby", "toddler"):
		return ageResult{0, 12, "0-12", 0.6}, true
	case containsAny(name, "teen", "youth", "college", "student"):
		return ageResult{13, 24, "13-24", 0.6}, true
	case containsAny(name, "luxury", "premium", "wealth", "elite"):
		return ageResult{35, 65, "35-65", 0.5}, true
	case containsAny(name, "retirement", "senior", "elder"):
		return ageResult{55, 75, "55+", 0.7}, true
	}
	return ageResult{}, false
}

// --- gender ---

type genderResult struct {
	ratio      map[string]float64
	primary    string
	confidence float64
}

var clusterMaleKeywords = []string{"male", "men", "guy", "father", "dad", "brother", "boy"}
var clusterFemaleKeywords = []string{"female", "women", "girl", "mother", "mom", "sister"}

var adMaleKeywords = []string{"men", "male", "guy", "father", "dad", "brother", "son", "he", "him", "his"}
var adFemaleKeywords = []string{"women", "female", "girl", "lady", "mother", "mom", "sister", "daughter", "she", "her", "hers"}

func calcGenderTargeting(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad, competitor *dbpkg.Competitor) genderResult {
	if metrics != nil {
		maleCount, femaleCount := 0, 0
		for _, cluster := range metrics.AudienceClusters {
			lower := strings.ToLower(cluster.Name)
			for _, kw := range clusterMaleKeywords {
				if strings.Contains(lower, kw) {
					maleCount++
				}
			}
			for _, kw := range clusterFemaleKeywords {
				if strings.Contains(lower, kw) {
					femaleCount++
				}
			}
		}
		if maleCount > 0 || femaleCount > 0 {
			return genderFromCounts(maleCount, femaleCount, 3)
		}
	}

	maleCount, femaleCount := 0, 0
	for _, ad := range ads {
		if ad.Description == "" {
			continue
		}
		lower := strings.ToLower(ad.Description)
		for _, kw := range adMaleKeywords {
			if strings.Contains(lower, kw) {
				maleCount++
			}
		}
		for _, kw := range adFemaleKeywords {
			if strings.Contains(lower, kw) {
				femaleCount++
			}
		}
	}
	if maleCount > 0 || femaleCount > 0 {
		return genderFromCounts(maleCount, femaleCount, 10)
	}

	name := strings.ToLower(competitor.Name)
	if containsAny(name, "men", "groom", "shave", "barber", "male") {
		return genderResult{
			ratio:      map[string]float64{"male": 0.8, "female": 0.2, "other": 0.0},
			primary:    "male",
			confidence: 0.7,
		}
	}
	if containsAny(name, "women", "beauty", "cosmetic", "makeup", "female") {
		return genderResult{
			ratio:      map[string]float64{"male": 0.2, "female": 0.8, "other": 0.0},
			primary:    "female",
			confidence: 0.7,
		}
	}

	return genderResult{
		ratio:      targetingDefaults.genderRatio,
		primary:    targetingDefaults.primaryGender,
		confidence: 0.3,
	}
}

func genderFromCounts(male, female, confidenceDiv int) genderResult {
	total := float64(male + female)
	ratio := map[string]float64{
		"male":   round2(float64(male) / total),
		"female": round2(float64(female) / total),
		"other":  0.0,
	}
	primary := "balanced"
	if ratio["male"] > 0.6 {
		primary = "male"
	} else if ratio["female"] > 0.6 {
		primary = "female"
	}
	return genderResult{
		ratio:      ratio,
		primary:    primary,
		confidence: math.Min(total/float64(confidenceDiv), 1.0),
	}
}

// --- geography ---

type geoResult struct {
	locations       map[string]any
	primaryLocation string
	confidence      float64
}

var domainCountryTLDs = []struct {
	tld     string
	country string
}{
	{".co.uk", "UK"}, {".uk", "UK"},
	{".ca", "Canada"}, {".au", "Australia"},
	{".de", "Germany"}, {".fr", "France"},
	{".jp", "Japan"}, {".cn", "China"},
	{".in", "India"}, {".br", "Brazil"}, {".mx", "Mexico"},
	{".com", "US"}, {".org", "US"}, {".net", "US"},
}

func calcGeographyTargeting(metrics *dbpkg.PeriodMetrics, competitor *dbpkg.Competitor) geoResult {
	if metrics != nil && len(metrics.GeoPenetration) > 0 {
		var countries []string
		for key := range metrics.GeoPenetration {
			if len(key) == 2 {
				countries = append(countries, strings.ToUpper(key))
			} else if len(key) > 2 {
				countries = append(countries, titleCase(key))
			}
		}
		sort.Strings(countries)
		if len(countries) > 10 {
			countries = countries[:10]
		}
		if len(countries) > 0 {
			return geoResult{
				locations: map[string]any{
					"countries": countries,
					"states":    []string{},
					"cities":    []string{},
				},
				primaryLocation: countries[0],
				confidence:      math.Min(float64(len(countries))/3, 1.0),
			}
		}
	}

	if competitor.Domain != "" {
		lower := strings.ToLower(competitor.Domain)
		for _, entry := range domainCountryTLDs {
			if strings.Contains(lower, entry.tld) {
				return geoResult{
					locations: map[string]any{
						"countries": []string{entry.country},
						"states":    []string{},
						"cities":    []string{},
					},
					primaryLocation: entry.country,
					confidence:      0.5,
				}
			}
		}
	}

	return geoResult{
		locations:       targetingDefaults.geography,
		primaryLocation: targetingDefaults.primaryLocation,
		confidence:      0.3,
	}
}

// --- interests ---

type interestResult struct {
	clusters   []string
	primary    []string
	confidence float64
}

var interestMapping = map[string][]string{
	"fitness":       {"fitness", "workout", "gym", "exercise", "health", "wellness"},
	"technology":    {"tech", "software", "app", "digital", "coding", "programming", "gadget", "innovation"},
	"fashion":       {"fashion", "style", "clothing", "wear", "outfit", "apparel"},
	"travel":        {"travel", "vacation", "tour", "destination", "hotel", "flight"},
	"food":          {"food", "restaurant", "recipe", "cooking", "meal", "dining"},
	"finance":       {"finance", "investment", "banking", "money", "stock", "saving", "wealth"},
	"education":     {"education", "learning", "course", "study", "school", "university"},
	"entertainment": {"entertainment", "movie", "music", "game", "streaming"},
	"sports":        {"sports", "athletic", "team", "player", "competition"},
	"business":      {"business", "enterprise", "corporate", "office", "work", "professional"},
	"luxury":        {"luxury", "premium", "exclusive", "high-end", "designer", "elite"},
}

func calcInterestClusters(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad, competitor *dbpkg.Competitor) interestResult {
	var interests []string

	if metrics != nil {
		for _, cluster := range metrics.AudienceClusters {
			lower := strings.ToLower(cluster.Name)
			for category, keywords := range interestMapping {
				if containsAny(lower, keywords...) {
					interests = append(interests, category)
				}
			}
		}
	}

	for _, ad := range ads {
		text := strings.ToLower(ad.Headline + " " + ad.Description + " " + ad.FullText)
		for category, keywords := range interestMapping {
			if containsAny(text, keywords...) {
				interests = append(interests, category)
			}
		}
	}

	name := strings.ToLower(competitor.Name)
	if containsAny(name, "tech", "software", "app", "digital", "cloud") {
		interests = append(interests, "technology")
	}
	if containsAny(name, "fit", "gym", "health", "wellness", "exercise") {
		interests = append(interests, "fitness")
	}
	if containsAny(name, "style", "wear", "fashion", "clothing", "apparel") {
		interests = append(interests, "fashion")
	}
	if containsAny(name, "travel", "tour", "hotel", "flight", "vacation") {
		interests = append(interests, "travel")
	}
	if containsAny(name, "food", "restaurant", "cafe", "kitchen", "meal") {
		interests = append(interests, "food")
	}
	if containsAny(name, "bank", "finance", "money", "capital", "investment") {
		interests = append(interests, "finance")
	}
	if containsAny(name, "edu", "learn", "school", "academy", "course") {
		interests = append(interests, "education")
	}
	if containsAny(name, "luxury", "premium", "exclusive", "elite") {
		interests = append(interests, "luxury")
	}

	if len(interests) == 0 {
		return interestResult{
			clusters:   []string{"technology", "business"},
			primary:    []string{"technology", "business"},
			confidence: 0.3,
		}
	}

	counts := map[string]int{}
	for _, interest := range interests {
		counts[interest]++
	}
	unique := make([]string, 0, len(counts))
	for interest := range counts {
		unique = append(unique, interest)
	}
	sort.Strings(unique)

	top := make([]string, len(unique))
	copy(top, unique)
	sort.SliceStable(top, func(i, j int) bool { return counts[top[i]] > counts[top[j]] })
	if len(top) > 5 {
		top = top[:5]
	}

	return interestResult{
		clusters:   unique,
		primary:    top,
		confidence: math.Min(float64(len(unique))/5, 1.0),
	}
}

// --- income ---

type incomeResult struct {
	level      string
	score      float64
	confidence float64
}

var luxuryKeywords = []string{"luxury", "premium", "exclusive", "high-end", "designer",
	"bespoke", "custom", "elite", "prestigious", "expensive"}
var affordableKeywords = []string{"affordable", "budget", "cheap", "discount", "sale",
	"value", "economical", "low-cost", "bargain"}

func calcIncomeLevel(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad, competitor *dbpkg.Competitor) incomeResult {
	if metrics != nil && metrics.EstimatedMonthlySpend > 0 {
		spend := metrics.EstimatedMonthlySpend
		var level string
		var score float64
		switch {
		case spend > 100000:
			level, score = "luxury", 0.9
		case spend > 50000:
			level, score = "high", 0.7
		case spend > 10000:
			level, score = "middle", 0.5
		default:
			level, score = "low", 0.3
		}
		return incomeResult{level: level, score: score, confidence: 0.8}
	}

	luxuryCount, affordableCount := 0, 0
	for _, ad := range ads {
		text := strings.ToLower(ad.Headline + " " + ad.Description)
		for _, kw := range luxuryKeywords {
			if strings.Contains(text, kw) {
				luxuryCount++
			}
		}
		for _, kw := range affordableKeywords {
			if strings.Contains(text, kw) {
				affordableCount++
			}
		}
	}
	if luxuryCount > 0 || affordableCount > 0 {
		var level string
		var score float64
		switch {
		case luxuryCount > affordableCount:
			score = 0.8 + math.Min(float64(luxuryCount), 5)*0.04
			level = "high"
			if score >= 0.9 {
				level = "luxury"
			}
		case affordableCount > luxuryCount:
			score = 0.2 + math.Min(float64(affordableCount), 5)*0.04
			level = "low"
			if score >= 0.4 {
				level = "middle"
			}
		default:
			score, level = 0.5, "middle"
		}
		return incomeResult{
			level:      level,
			score:      round2(score),
			confidence: math.Min(float64(luxuryCount+affordableCount)/10, 1.0),
		}
	}

	name := strings.ToLower(competitor.Name)
	industry := strings.ToLower(competitor.Industry)
	switch {
	case containsAny(name, "luxury", "premium", "exclusive", "designer", "elite"):
		return incomeResult{level: "luxury", score: 0.9, confidence: 0.7}
	case containsAny(name, "discount", "budget", "cheap", "value", "affordable"):
		return incomeResult{level: "low", score: 0.3, confidence: 0.7}
	case containsAny(industry, "finance", "banking", "investment", "consulting"):
		return incomeResult{level: "high", score: 0.7, confidence: 0.6}
	}

	return incomeResult{
		level:      targetingDefaults.incomeLevel,
		score:      targetingDefaults.incomeScore,
		confidence: 0.3,
	}
}

// --- devices ---

type deviceResult struct {
	distribution map[string]float64
	primary      string
	confidence   float64
}

func calcDeviceTargeting(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad) deviceResult {
	if metrics != nil && len(metrics.DeviceDistribution) > 0 {
		distribution := normalizeDeviceDistribution(metrics.DeviceDistribution)
		return deviceResult{
			distribution: distribution,
			primary:      primaryDevice(distribution),
			confidence:   0.8,
		}
	}

	counts := map[string]float64{"mobile": 0, "desktop": 0, "tablet": 0}
	for _, ad := range ads {
		if ad.Format == "" {
			continue
		}
		lower := strings.ToLower(ad.Format)
		switch {
		case containsAny(lower, "story", "reel", "short", "vertical", "tiktok"):
			counts["mobile"]++
		case containsAny(lower, "carousel", "image", "display", "banner"):
			counts["desktop"] += 0.5
			counts["mobile"] += 0.5
		case containsAny(lower, "video", "youtube"):
			counts["desktop"] += 0.7
			counts["mobile"] += 0.3
		}
	}
	total := counts["mobile"] + counts["desktop"] + counts["tablet"]
	if total > 0 {
		distribution := map[string]float64{
			"mobile":  round2(counts["mobile"] / total),
			"desktop": round2(counts["desktop"] / total),
			"tablet":  round2(counts["tablet"] / total),
		}
		return deviceResult{
			distribution: distribution,
			primary:      primaryDevice(distribution),
			confidence:   math.Min(float64(len(ads))/10, 1.0),
		}
	}

	return deviceResult{
		distribution: targetingDefaults.deviceDistribution,
		primary:      targetingDefaults.primaryDevice,
		confidence:   0.3,
	}
}

var deviceNameMapping = map[string][]string{
	"mobile":  {"mobile", "phone", "smartphone", "android", "ios"},
	"desktop": {"desktop", "computer", "pc", "mac", "laptop"},
	"tablet":  {"tablet", "ipad"},
}

func normalizeDeviceDistribution(raw datatypes.JSONMap) map[string]float64 {
	distribution := map[string]float64{"mobile": 0, "desktop": 0, "tablet": 0}
	total := 0.0

	for device, v := range raw {
		pct, ok := v.(float64)
		if !ok {
			continue
		}
		lower := strings.ToLower(device)
		assigned := false
		for category, keywords := range deviceNameMapping {
			if containsAny(lower, keywords...) {
				distribution[category] += pct
				total += pct
				assigned = true
				break
			}
		}
		if !assigned {
			distribution["desktop"] += pct
			total += pct
		}
	}

	if total > 0 {
		for category := range distribution {
			distribution[category] = round2(distribution[category] / total)
		}
	}
	return distribution
}

func primaryDevice(distribution map[string]float64) string {
	for _, device := range []string{"mobile", "desktop", "tablet"} {
		if distribution[device] >= 0.5 {
			return device
		}
	}
	best, bestValue := "mobile", -1.0
	for _, device := range []string{"mobile", "desktop", "tablet"} {
		if distribution[device] > bestValue {
			best, bestValue = device, distribution[device]
		}
	}
	return best
}

// --- funnel ---

type funnelResult struct {
	stage      string
	score      float64
	confidence float64
}

var funnelStageAliases = map[string]string{
	"awareness": "awareness", "consideration": "consideration",
	"conversion": "conversion", "retention": "retention",
	"acquisition": "awareness", "engagement": "consideration",
	"purchase": "conversion", "loyalty": "retention",
}

func calcFunnelStage(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad) funnelResult {
	if metrics != nil && len(metrics.FunnelStageDistribution) > 0 {
		best, bestValue, total := "", -1.0, 0.0
		for stage, v := range metrics.FunnelStageDistribution {
			value, ok := v.(float64)
			if !ok {
				continue
			}
			total += value
			if value > bestValue {
				best, bestValue = stage, value
			}
		}
		if best != "" {
			score := 0.5
			if total > 0 {
				score = bestValue / total
			}
			mapped, ok := funnelStageAliases[strings.ToLower(best)]
			if !ok {
				mapped = "awareness"
			}
			return funnelResult{stage: mapped, score: round2(score), confidence: 0.8}
		}
	}

	stageScores := map[string]int{"awareness": 0, "consideration": 0, "conversion": 0, "retention": 0}
	adFunnelKeywords := map[string][]string{
		"awareness":     {"new", "introducing", "discover", "learn", "what is", "about", "awareness"},
		"consideration": {"compare", "features", "benefits", "why choose", "review", "guide", "how to"},
		"conversion":    {"buy", "purchase", "order", "shop", "get", "deal", "offer", "sale", "discount", "limited"},
		"retention":     {"thank you", "loyal", "member", "exclusive", "update", "newsletter", "community"},
	}
	for _, ad := range ads {
		text := strings.ToLower(ad.Headline + " " + ad.Description)
		for stage, keywords := range adFunnelKeywords {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					stageScores[stage]++
				}
			}
		}
	}

	totalScore := 0
	best, bestScore := "awareness", -1
	for _, stage := range funnelStageOrder {
		totalScore += stageScores[stage]
		if stageScores[stage] > bestScore {
			best, bestScore = stage, stageScores[stage]
		}
	}
	if totalScore > 0 {
		return funnelResult{
			stage:      best,
			score:      round2(float64(bestScore) / float64(totalScore)),
			confidence: math.Min(float64(len(ads))/10, 1.0),
		}
	}

	return funnelResult{
		stage:      targetingDefaults.funnelStage,
		score:      targetingDefaults.funnelScore,
		confidence: 0.3,
	}
}

// --- audience ---

type audienceResult struct {
	audienceType string
	size         string
	confidence   float64
}

func calcAudienceType(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad) audienceResult {
	if metrics != nil && len(metrics.AudienceClusters) > 0 {
		audienceType := "broad"
		for _, cluster := range metrics.AudienceClusters {
			lower := strings.ToLower(cluster.Name)
			switch {
			case containsAny(lower, "retarget", "remarket", "existing", "previous", "returning"):
				audienceType = "retargeting"
			case containsAny(lower, "lookalike", "similar", "alike", "match"):
				audienceType = "lookalike"
			case containsAny(lower, "custom", "specific", "targeted", "niche"):
				audienceType = "custom"
			}
		}
		return audienceResult{
			audienceType: audienceType,
			size:         audienceSize(len(ads)),
			confidence:   0.7,
		}
	}

	scores := map[string]int{"retargeting": 0, "broad": 0, "lookalike": 0}
	for _, ad := range ads {
		text := strings.ToLower(ad.Headline + " " + ad.Description)
		for _, kw := range []string{"existing", "previous", "returning", "again", "back", "reminder"} {
			if strings.Contains(text, kw) {
				scores["retargeting"]++
			}
		}
		for _, kw := range []string{"everyone", "all", "anyone", "public", "general", "wide"} {
			if strings.Contains(text, kw) {
				scores["broad"]++
			}
		}
		for _, kw := range []string{"similar", "like you", "alike", "match", "compatible"} {
			if strings.Contains(text, kw) {
				scores["lookalike"]++
			}
		}
	}
	if scores["retargeting"]+scores["broad"]+scores["lookalike"] > 0 {
		best, bestScore := "broad", -1
		for _, t := range []string{"retargeting", "broad", "lookalike"} {
			if scores[t] > bestScore {
				best, bestScore = t, scores[t]
			}
		}
		return audienceResult{
			audienceType: best,
			size:         audienceSize(len(ads)),
			confidence:   math.Min(float64(len(ads))/10, 1.0),
		}
	}

	return audienceResult{
		audienceType: targetingDefaults.audienceType,
		size:         targetingDefaults.audienceSize,
		confidence:   0.3,
	}
}

func audienceSize(adCount int) string {
	switch {
	case adCount < 3:
		return "small"
	case adCount < 10:
		return "medium"
	case adCount < 20:
		return "large"
	default:
		return "very_large"
	}
}

// --- bidding ---

type biddingResult struct {
	strategy   string
	confidence float64
}

func calcBiddingStrategy(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad) biddingResult {
	if metrics != nil {
		if metrics.AvgCPC > 2.0 {
			return biddingResult{strategy: "cpc", confidence: 0.8}
		}
		if metrics.AvgCPM >= 5.0 && metrics.AvgCPM <= 20.0 {
			return biddingResult{strategy: "cpm", confidence: 0.7}
		}
		if metrics.ConversionProbability > 0.1 {
			return biddingResult{strategy: "tROAS", confidence: 0.6}
		}
	}

	indicatorSets := map[string][]string{
		"cpc":           {"click", "ctr", "engagement", "action", "visit"},
		"cpm":           {"impression", "view", "awareness", "brand"},
		"tROAS":         {"roas", "return", "revenue", "sales", "conversion", "purchase"},
		"reach":         {"reach", "audience", "people", "users", "followers"},
		"frequency_cap": {"frequency", "limit", "cap", "maximum", "times"},
	}
	scores := map[string]int{}
	total := 0
	for _, ad := range ads {
		text := strings.ToLower(ad.Headline + " " + ad.Description)
		for strategy, keywords := range indicatorSets {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					scores[strategy]++
					total++
				}
			}
		}
	}
	if total > 0 {
		best, bestScore := "", -1
		for _, strategy := range []string{"cpc", "cpm", "tROAS", "reach", "frequency_cap"} {
			if scores[strategy] > bestScore {
				best, bestScore = strategy, scores[strategy]
			}
		}
		return biddingResult{
			strategy:   best,
			confidence: round2(math.Min(float64(bestScore)/float64(total), 1.0)),
		}
	}

	return biddingResult{
		strategy:   targetingDefaults.biddingStrategy,
		confidence: targetingDefaults.biddingConfidence,
	}
}

// --- content ---

type contentResult struct {
	contentType string
	cta         string
	confidence  float64
}

var ctaPhraseSets = map[string][]string{
	"shop_now":    {"shop now", "buy now", "purchase", "order", "get it", "buy today"},
	"learn_more":  {"learn more", "find out", "discover", "read more", "see how"},
	"sign_up":     {"sign up", "register", "join", "enroll", "become a member"},
	"contact_us":  {"contact us", "get in touch", "call us", "email us", "message us"},
	"download":    {"download", "get the app", "install", "get your copy"},
	"subscribe":   {"subscribe", "follow", "stay updated", "get updates"},
	"book_now":    {"book now", "reserve", "schedule", "make appointment"},
	"get_started": {"get started", "start now", "begin", "try free"},
}

func calcContentAnalysis(ads []dbpkg.Ad) contentResult {
	typeCounts := map[string]int{"video": 0, "image": 0, "carousel": 0, "story": 0, "text": 0}
	for _, ad := range ads {
		if ad.Format == "" {
			typeCounts["image"]++
			continue
		}
		lower := strings.ToLower(ad.Format)
		switch {
		case containsAny(lower, "video", "reel", "short", "youtube"):
			typeCounts["video"]++
		case containsAny(lower, "image", "photo", "picture"):
			typeCounts["image"]++
		case strings.Contains(lower, "carousel"):
			typeCounts["carousel"]++
		case strings.Contains(lower, "story"):
			typeCounts["story"]++
		default:
			typeCounts["text"]++
		}
	}

	contentType := targetingDefaults.contentType
	totalTyped := 0
	bestCount := -1
	for _, t := range []string{"video", "image", "carousel", "story", "text"} {
		totalTyped += typeCounts[t]
		if typeCounts[t] > bestCount {
			contentType, bestCount = t, typeCounts[t]
		}
	}
	if totalTyped == 0 {
		contentType = targetingDefaults.contentType
	}

	ctaCounts := map[string]int{}
	for _, ad := range ads {
		if ad.Description == "" {
			continue
		}
		lower := strings.ToLower(ad.Description)
		for cta, phrases := range ctaPhraseSets {
			if containsAny(lower, phrases...) {
				ctaCounts[cta]++
			}
		}
	}
	cta := targetingDefaults.callToAction
	bestCTA := 0
	for _, candidate := range []string{"shop_now", "learn_more", "sign_up", "contact_us", "download", "subscribe", "book_now", "get_started"} {
		if ctaCounts[candidate] > bestCTA {
			cta, bestCTA = candidate, ctaCounts[candidate]
		}
	}

	return contentResult{
		contentType: contentType,
		cta:         cta,
		confidence:  math.Min(float64(len(ads))/10, 1.0),
	}
}

// --- performance ---

type performanceResult struct {
	cpm, cpc, roas float64
	engagementRate float64
}

func calcPerformance(metrics *dbpkg.PeriodMetrics) performanceResult {
	result := performanceResult{
		cpm:            targetingDefaults.cpm,
		cpc:            targetingDefaults.cpc,
		roas:           targetingDefaults.roas,
		engagementRate: targetingDefaults.engagementRate,
	}
	if metrics == nil {
		return result
	}

	if metrics.AvgCPM > 0 {
		result.cpm = round2(metrics.AvgCPM)
	}
	if metrics.AvgCPC > 0 {
		result.cpc = round2(metrics.AvgCPC)
	}

	// ROAS estimate assumes a $50 average order value.
	if metrics.EstimatedMonthlySpend > 0 && metrics.ConversionProbability > 0 && result.cpc > 0 {
		conversions := metrics.EstimatedMonthlySpend * metrics.ConversionProbability / result.cpc
		revenue := conversions * 50
		result.roas = round2(revenue / metrics.EstimatedMonthlySpend)
	}

	if metrics.AvgCTR > 0 {
		result.engagementRate = math.Round(metrics.AvgCTR*1.5*10000) / 10000
	}

	return result
}

// --- confidence ---

// calcConfidenceScores applies the metrics-presence boosts, then scales
// every dimension by overall data quality.
func calcConfidenceScores(metrics *dbpkg.PeriodMetrics, ads []dbpkg.Ad, base map[string]float64) datatypes.JSONMap {
	scores := map[string]float64{}
	for dim, v := range base {
		scores[dim] = v
	}

	hasMetrics := metrics != nil
	adsCount := len(ads)

	if hasMetrics && len(metrics.GeoPenetration) > 0 {
		scores["geography"] = math.Max(scores["geography"], 0.7)
	}
	if hasMetrics && metrics.EstimatedMonthlySpend > 0 {
		scores["income"] = math.Max(scores["income"], 0.7)
	}
	if hasMetrics && len(metrics.DeviceDistribution) > 0 {
		scores["device"] = math.Max(scores["device"], 0.8)
	}
	if hasMetrics && len(metrics.FunnelStageDistribution) > 0 {
		scores["funnel"] = math.Max(scores["funnel"], 0.8)
	}
	if hasMetrics && len(metrics.AudienceClusters) > 0 {
		scores["audience"] = math.Max(scores["audience"], 0.7)
	}
	if hasMetrics && (metrics.AvgCPC > 0 || metrics.AvgCPM > 0 || metrics.ConversionProbability > 0) {
		scores["bidding"] = math.Max(scores["bidding"], 0.6)
	}

	if adsCount > 0 {
		scores["content"] = math.Min(float64(adsCount)/10, 1.0)
	} else {
		scores["content"] = 0.1
	}

	performanceConfidence := 0.1
	if hasMetrics {
		populated := 0
		if metrics.AvgCPM > 0 {
			populated++
		}
		if metrics.AvgCPC > 0 {
			populated++
		}
		if metrics.AvgCTR > 0 {
			populated++
		}
		if metrics.EstimatedMonthlySpend > 0 {
			populated++
		}
		performanceConfidence = math.Min(float64(populated)/4, 1.0)
	}
	scores["performance"] = performanceConfidence

	dataQuality := 0.0
	if hasMetrics {
		dataQuality += 0.5
	}
	if adsCount >= 5 {
		dataQuality += 0.3
	}
	if adsCount >= 10 {
		dataQuality += 0.2
	}

	out := datatypes.JSONMap{}
	for _, dim := range confidenceDimensions {
		out[dim] = round2(math.Min(scores[dim]*(0.5+0.5*dataQuality), 1.0))
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func atoiSafe(s string, def int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if s == "" {
		return def
	}
	return n
}
