package analytics

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Industry benchmark tables keyed by platform. "facebook" and "tiktok"
// appear alongside the fetched platforms so imported historical ads
// still price correctly.

var platformCPM = map[string]float64{
	"google":    2.50,
	"meta":      5.00,
	"facebook":  5.00,
	"linkedin":  8.00,
	"reddit":    1.50,
	"youtube":   3.50,
	"instagram": 4.50,
	"tiktok":    3.00,
}

const defaultCPM = 3.00

// Fallback impression volumes used when an ad carries no usable
// impression figure.
var platformImpressions = map[string]float64{
	"google":    50000,
	"meta":      30000,
	"facebook":  30000,
	"linkedin":  15000,
	"youtube":   25000,
	"instagram": 20000,
	"tiktok":    35000,
	"reddit":    10000,
}

const defaultImpressions = 20000

var platformCTR = map[string]float64{
	"google":    0.04,
	"meta":      0.02,
	"facebook":  0.02,
	"linkedin":  0.03,
	"reddit":    0.01,
	"youtube":   0.005,
	"instagram": 0.015,
	"tiktok":    0.008,
}

const defaultCTR = 0.02

var platformCPC = map[string]float64{
	"google":    2.50,
	"meta":      1.20,
	"facebook":  1.20,
	"linkedin":  5.00,
	"reddit":    0.80,
	"youtube":   0.30,
	"instagram": 0.90,
	"tiktok":    0.50,
}

const defaultCPC = 2.00

var platformFrequency = map[string]float64{
	"google":    1.2,
	"meta":      2.5,
	"facebook":  2.5,
	"linkedin":  1.8,
	"youtube":   1.5,
	"instagram": 2.0,
	"tiktok":    3.0,
	"reddit":    1.3,
}

const defaultFrequency = 1.5

var platformConversion = map[string]float64{
	"google":    0.08,
	"meta":      0.03,
	"facebook":  0.03,
	"linkedin":  0.06,
	"reddit":    0.02,
	"youtube":   0.01,
	"instagram": 0.025,
	"tiktok":    0.015,
}

const defaultConversion = 0.05

// Risk weight per platform: how much competitive pressure presence on
// that platform signals.
var platformRisk = map[string]float64{
	"google":    25,
	"meta":      20,
	"facebook":  20,
	"linkedin":  15,
	"youtube":   15,
	"instagram": 10,
	"tiktok":    10,
	"reddit":    5,
}

const defaultRisk = 5

var platformOpportunity = map[string]float64{
	"google":    25,
	"meta":      20,
	"facebook":  20,
	"linkedin":  30,
	"youtube":   15,
	"instagram": 20,
	"tiktok":    25,
	"reddit":    10,
}

const defaultOpportunity = 10

var platformDevicePref = map[string]map[string]float64{
	"instagram": {"mobile": 0.95, "desktop": 0.04, "tablet": 0.01},
	"tiktok":    {"mobile": 0.98, "desktop": 0.01, "tablet": 0.01},
	"facebook":  {"mobile": 0.80, "desktop": 0.15, "tablet": 0.05},
	"meta":      {"mobile": 0.80, "desktop": 0.15, "tablet": 0.05},
	"linkedin":  {"mobile": 0.60, "desktop": 0.35, "tablet": 0.05},
	"google":    {"mobile": 0.65, "desktop": 0.30, "tablet": 0.05},
	"youtube":   {"mobile": 0.70, "desktop": 0.25, "tablet": 0.05},
	"reddit":    {"mobile": 0.55, "desktop": 0.40, "tablet": 0.05},
}

var defaultDevicePref = map[string]float64{"mobile": 0.6, "desktop": 0.3, "tablet": 0.1}

func rateFor(table map[string]float64, platform string, def float64) float64 {
	if v, ok := table[strings.ToLower(platform)]; ok {
		return v
	}
	return def
}

var (
	decimalRe = regexp.MustCompile(`[\d\.]+`)
	integerRe = regexp.MustCompile(`\d+`)
)

// fallbackImpressions is the sentinel parseImpressions returns for
// missing or unparseable figures. Spend estimation replaces it with the
// platform fallback volume.
const fallbackImpressions = 1000

// parseImpressions extracts a numeric impression count from the
// free-form strings platforms report ("1.5K", "2.3M", "10,000+").
func parseImpressions(raw string) float64 {
	if raw == "" {
		return fallbackImpressions
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "k") {
		if m := decimalRe.FindString(raw); m != "" {
			if n, err := strconv.ParseFloat(m, 64); err == nil {
				return n * 1000
			}
		}
	} else if strings.Contains(lower, "m") {
		if m := decimalRe.FindString(raw); m != "" {
			if n, err := strconv.ParseFloat(m, 64); err == nil {
				return n * 1000000
			}
		}
	} else {
		matches := integerRe.FindAllString(raw, -1)
		if len(matches) > 0 {
			if n, err := strconv.ParseFloat(matches[len(matches)-1], 64); err == nil {
				return n
			}
		}
	}

	return fallbackImpressions
}

// parseSpend extracts a literal spend figure; non-numeric values
// (ranges like "$100-$199") count as zero.
func parseSpend(raw string) float64 {
	if raw == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
