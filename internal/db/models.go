package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Fetch-job / competitor fetch statuses. A FetchJob moves
// pending -> running -> completed | failed and is never touched again
// once it reaches a terminal state.
const (
	FetchStatusPending   = "pending"
	FetchStatusRunning   = "running"
	FetchStatusCompleted = "completed"
	FetchStatusFailed    = "failed"
)

// Time periods accepted by the metrics and summary calculators.
const (
	PeriodDaily     = "daily"
	PeriodWeekly    = "weekly"
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodAllTime   = "all_time"
)

// User is an account that owns competitors and API keys. The bootstrap
// admin user (from env) is created as a row in this table on startup.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255;not null"`

	// IsAdmin marks users that can manage other users. The bootstrap
	// admin will have IsAdmin=true.
	IsAdmin  bool `gorm:"default:false"`
	IsActive bool `gorm:"default:true"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// APIKey is a bearer token for the JSON API. Each key belongs to a user.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// UserID links this key to the user who owns it.
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`

	// Name is a user-friendly identifier for this key (e.g. "cli").
	Name string `gorm:"size:128;not null"`

	// Key is the actual bearer token value (stored as-is, unique).
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`

	// User is the owner of this API key.
	User User `gorm:"foreignKey:UserID"`
}

// Competitor is a tracked advertiser. Created by the API layer; the
// cached fields (AdsCount, LastFetchStatus, LastFetchedAt) are mutated
// only by the collector after each fetch.
type Competitor struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	UserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name     string `gorm:"size:255;not null"`
	Domain   string `gorm:"size:255"`
	Industry string `gorm:"size:100"`

	// EstimatedMonthlySpend is a cached estimate in USD, refreshed by
	// the metrics calculator; the summary aggregator falls back to it
	// when no PeriodMetrics row exists.
	EstimatedMonthlySpend float64 `gorm:"default:0"`

	IsActive bool `gorm:"default:true;index"`

	// AdsCount caches the number of active ads; recomputed as a fresh
	// count after every fetch, never incremented.
	AdsCount        int        `gorm:"default:0"`
	LastFetchStatus string     `gorm:"size:20;default:pending"`
	LastFetchedAt   *time.Time
}

func (c *Competitor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Ad is one observed creative, owned by exactly one competitor.
// Identity is (competitor_id, platform, platform_ad_id); repeated
// fetches of the same creative update the existing row.
type Ad struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CompetitorID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_ad_identity,priority:1;not null"`
	Platform     string    `gorm:"size:20;uniqueIndex:idx_ad_identity,priority:2;not null"`

	// PlatformAdID is the source's native creative id, or an md5 hash of
	// the normalized payload when the source does not expose one.
	PlatformAdID string `gorm:"size:255;uniqueIndex:idx_ad_identity,priority:3;not null"`

	Headline       string `gorm:"type:text"`
	Description    string `gorm:"type:text"`
	FullText       string `gorm:"type:text"`
	DestinationURL string `gorm:"type:text"`
	ImageURL       string `gorm:"type:text"`
	VideoURL       string `gorm:"type:text"`
	Format         string `gorm:"size:50"`

	// Impressions and Spend arrive as free-form strings from the
	// platforms ("1.2K", "$100-$199") and are parsed lazily by the
	// calculators.
	Impressions string `gorm:"size:64"`
	Spend       string `gorm:"size:64"`

	IsActive  bool      `gorm:"default:true;index"`
	FirstSeen time.Time // set once on insert, never changed
	LastSeen  time.Time // advanced on every re-observation

	// RawData keeps the serialized upstream payload for audit/debugging.
	RawData string `gorm:"type:text"`
}

func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// FetchJob records one collection run for a competitor. One row per
// run; terminal rows are never updated again.
type FetchJob struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID       uuid.UUID `gorm:"type:uuid;index;not null"`
	CompetitorID uuid.UUID `gorm:"type:uuid;index;not null"`

	Status      string     `gorm:"size:20;default:pending"`
	StartedAt   time.Time
	CompletedAt *time.Time

	TotalAdsFetched int `gorm:"default:0"`

	// PlatformsQueried is a JSON array of the platforms that returned ads.
	PlatformsQueried string `gorm:"type:text"`
	ErrorMessage     string `gorm:"type:text"`
}

func (f *FetchJob) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// PeriodMetrics is one derived-metrics snapshot for a competitor and a
// concrete time window. At most one live row per
// (competitor_id, time_period, start_date, end_date); recalculation
// overwrites the row in place.
type PeriodMetrics struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CompetitorID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_period_metrics_key,priority:1;not null"`
	TimePeriod   string    `gorm:"size:20;uniqueIndex:idx_period_metrics_key,priority:2;not null"`
	StartDate    time.Time `gorm:"uniqueIndex:idx_period_metrics_key,priority:3"`
	EndDate      time.Time `gorm:"uniqueIndex:idx_period_metrics_key,priority:4"`

	CalculatedAt time.Time

	// Volume
	TotalAds       int               `gorm:"default:0"`
	ActiveAds      int               `gorm:"default:0"`
	AdsPerPlatform datatypes.JSONMap `gorm:"type:json"` // {"google": 10, "meta": 5, ...}

	// Spend estimates (USD)
	EstimatedDailySpend   float64
	EstimatedWeeklySpend  float64
	EstimatedMonthlySpend float64
	TotalSpend            float64

	// Performance estimates
	AvgCPM                float64
	AvgCPC                float64
	AvgCTR                float64
	AvgFrequency          float64
	ConversionProbability float64

	// Creative analysis
	CreativePerformance   datatypes.JSONMap `gorm:"type:json"`
	TopPerformingCreatives datatypes.JSONSlice[TopCreative] `gorm:"type:json"`

	// Funnel & audience
	FunnelStageDistribution datatypes.JSONMap                  `gorm:"type:json"` // {"awareness": 0.4, ...}
	AudienceClusters        datatypes.JSONSlice[AudienceCluster] `gorm:"type:json"`

	// Geo & device
	GeoPenetration     datatypes.JSONMap `gorm:"type:json"` // {"US": 0.5, ...}
	DeviceDistribution datatypes.JSONMap `gorm:"type:json"` // {"mobile": 0.6, ...}

	// Time-based
	TimeOfDayHeatmap datatypes.JSONMap                  `gorm:"type:json"` // {"00:00": 0.1, ...}
	AdTimeline       datatypes.JSONSlice[TimelineEvent] `gorm:"type:json"`

	// Derived insights
	Trends           datatypes.JSONMap           `gorm:"type:json"`
	Recommendations  datatypes.JSONSlice[string] `gorm:"type:json"`
	RiskScore        int                         `gorm:"default:0"` // 0-100
	OpportunityScore int                         `gorm:"default:0"` // 0-100
}

func (m *PeriodMetrics) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TopCreative is one entry of PeriodMetrics.TopPerformingCreatives.
type TopCreative struct {
	ID       string `json:"id"`
	Headline string `json:"headline"`
	HasImage bool   `json:"has_image"`
	HasVideo bool   `json:"has_video"`
	Platform string `json:"platform"`
	Score    int    `json:"score"`
}

// AudienceCluster is one inferred audience segment.
type AudienceCluster struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Size       string  `json:"size"`
}

// TimelineEvent is one entry of PeriodMetrics.AdTimeline.
type TimelineEvent struct {
	Date            string `json:"date"`
	Action          string `json:"action"`
	Platform        string `json:"platform"`
	HeadlinePreview string `json:"headline_preview"`
	HasCreative     bool   `json:"has_creative"`
}

// TargetingIntel is the inferred targeting profile for one competitor.
// At most one live row per (user, competitor); recalculation overwrites
// in place unless a row fresher than 24h exists and force was not set.
type TargetingIntel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	CompetitorID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_targeting_key,priority:1;not null"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_targeting_key,priority:2;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Demographics
	AgeMin        int               `gorm:"default:0"`
	AgeMax        int               `gorm:"default:0"`
	AgeRange      string            `gorm:"size:16"` // e.g. "25-34", "55+"
	GenderRatio   datatypes.JSONMap `gorm:"type:json"` // {"male": 0.6, "female": 0.4, "other": 0.0}
	PrimaryGender string            `gorm:"size:16"` // "male", "female", "balanced"

	// Geography
	Geography       datatypes.JSONMap `gorm:"type:json"` // {"countries": [...], "states": [...], "cities": [...]}
	PrimaryLocation string            `gorm:"size:64"`

	// Interests
	InterestClusters datatypes.JSONSlice[string] `gorm:"type:json"`
	PrimaryInterests datatypes.JSONSlice[string] `gorm:"type:json"`

	// Income
	IncomeLevel string  `gorm:"size:16"` // "low", "middle", "high", "luxury"
	IncomeScore float64 `gorm:"default:0"`

	// Devices
	DeviceDistribution datatypes.JSONMap `gorm:"type:json"`
	PrimaryDevice      string            `gorm:"size:16"`

	// Funnel
	FunnelStage string  `gorm:"size:20"`
	FunnelScore float64 `gorm:"default:0"`

	// Audience
	AudienceType string `gorm:"size:20"` // "retargeting", "broad", "lookalike", "custom"
	AudienceSize string `gorm:"size:20"` // "small", "medium", "large", "very_large"

	// Bidding
	BiddingStrategy   string  `gorm:"size:20"` // "cpc", "cpm", "tROAS", "reach", "frequency_cap"
	BiddingConfidence float64 `gorm:"default:0"`

	// Content
	ContentType  string `gorm:"size:20"`
	CallToAction string `gorm:"size:20"`

	// Performance estimates
	EstimatedCPM   float64
	EstimatedCPC   float64
	EstimatedROAS  float64
	EngagementRate float64

	// ConfidenceScores maps each dimension to a confidence in [0,1];
	// OverallConfidence is their mean scaled by data quality.
	ConfidenceScores  datatypes.JSONMap `gorm:"type:json"`
	OverallConfidence float64           `gorm:"default:0"`

	IsActive         bool       `gorm:"default:true"`
	LastCalculatedAt *time.Time

	// RawAnalysis keeps intermediate inference data for debugging.
	RawAnalysis datatypes.JSONMap `gorm:"type:json"`
}

func (t *TargetingIntel) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// UserSummary is the rollup snapshot across all of a user's competitors.
// At most one live row per (user_id, time_period); TTL 6h unless forced.
type UserSummary struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_summary_key,priority:1;not null"`
	TimePeriod string    `gorm:"size:20;uniqueIndex:idx_user_summary_key,priority:2;not null"`

	StartDate *time.Time
	EndDate   *time.Time

	TotalCompetitors     int     `gorm:"default:0"`
	TotalCompetitorSpend float64 `gorm:"default:0"`
	ActiveCampaigns      int     `gorm:"default:0"`
	TotalImpressions     int64   `gorm:"default:0"`
	AvgCTR               float64 `gorm:"default:0"`

	IsActive     bool `gorm:"default:true"`
	CalculatedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *UserSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
