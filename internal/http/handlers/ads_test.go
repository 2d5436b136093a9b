package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "adscope/internal/db"
	httpctx "adscope/internal/http/ctx"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := dbpkg.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCompetitor(t *testing.T, db *gorm.DB, name string) (*dbpkg.User, *dbpkg.Competitor) {
	t.Helper()
	user := &dbpkg.User{Email: name + "@example.com", PasswordHash: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	competitor := &dbpkg.Competitor{UserID: user.ID, Name: name, IsActive: true}
	if err := db.Create(competitor).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}
	return user, competitor
}

func seedAd(t *testing.T, db *gorm.DB, competitorID uuid.UUID, platform string, lastSeen time.Time) *dbpkg.Ad {
	t.Helper()
	ad := &dbpkg.Ad{
		CompetitorID: competitorID,
		Platform:     platform,
		PlatformAdID: uuid.NewString(),
		Headline:     platform + " ad",
		IsActive:     true,
		FirstSeen:    lastSeen,
		LastSeen:     lastSeen,
	}
	if err := db.Create(ad).Error; err != nil {
		t.Fatalf("create ad: %v", err)
	}
	return ad
}

func authedCtx(user *dbpkg.User) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	httpctx.SetUser(ctx, user)
	return ctx
}

func decodeResponse(t *testing.T, ctx *fasthttp.RequestCtx) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestListCompetitorAdsFiltersByPlatform(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme")
	now := time.Now().UTC()
	seedAd(t, db, competitor.ID, "google", now.Add(-2*time.Hour))
	seedAd(t, db, competitor.ID, "meta", now.Add(-1*time.Hour))
	seedAd(t, db, competitor.ID, "meta", now)

	ctx := authedCtx(user)
	ctx.SetUserValue("id", competitor.ID.String())
	ctx.QueryArgs().Set("platform", "meta")
	ListCompetitorAds(db)(ctx)

	body := decodeResponse(t, ctx)
	if total := body["total"].(float64); total != 2 {
		t.Fatalf("total = %v, want 2", total)
	}
	ads := body["ads"].([]any)
	first := ads[0].(map[string]any)
	if first["platform"] != "meta" {
		t.Errorf("platform = %v, want meta", first["platform"])
	}
	// Newest sighting first.
	second := ads[1].(map[string]any)
	if first["last_seen"].(string) < second["last_seen"].(string) {
		t.Error("ads not ordered by last_seen desc")
	}
}

func TestListCompetitorAdsRejectsForeignCompetitor(t *testing.T) {
	db := openTestDB(t)
	_, competitor := seedCompetitor(t, db, "Acme")
	other, _ := seedCompetitor(t, db, "Rival")

	ctx := authedCtx(other)
	ctx.SetUserValue("id", competitor.ID.String())
	ListCompetitorAds(db)(ctx)

	if got := ctx.Response.StatusCode(); got != fasthttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestListAllAdsSpansCompetitors(t *testing.T) {
	db := openTestDB(t)
	user, first := seedCompetitor(t, db, "Acme")
	second := &dbpkg.Competitor{UserID: user.ID, Name: "Beta", IsActive: true}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("create competitor: %v", err)
	}
	now := time.Now().UTC()
	seedAd(t, db, first.ID, "google", now)
	seedAd(t, db, second.ID, "meta", now)

	// A third competitor belonging to someone else stays invisible.
	_, foreign := seedCompetitor(t, db, "Rival")
	seedAd(t, db, foreign.ID, "reddit", now)

	ctx := authedCtx(user)
	ListAllAds(db)(ctx)

	body := decodeResponse(t, ctx)
	if total := body["total"].(float64); total != 2 {
		t.Fatalf("total = %v, want 2", total)
	}
}

func TestListFetchJobsFiltersByStatus(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme")
	now := time.Now().UTC()

	jobs := []dbpkg.FetchJob{
		{UserID: user.ID, CompetitorID: competitor.ID, Status: dbpkg.FetchStatusCompleted, StartedAt: now.Add(-time.Hour), TotalAdsFetched: 4},
		{UserID: user.ID, CompetitorID: competitor.ID, Status: dbpkg.FetchStatusFailed, StartedAt: now, ErrorMessage: "upstream 500"},
	}
	for i := range jobs {
		if err := db.Create(&jobs[i]).Error; err != nil {
			t.Fatalf("create fetch job: %v", err)
		}
	}

	ctx := authedCtx(user)
	ListFetchJobs(db)(ctx)
	body := decodeResponse(t, ctx)
	if total := body["total"].(float64); total != 2 {
		t.Fatalf("total = %v, want 2", total)
	}
	newest := body["fetches"].([]any)[0].(map[string]any)
	if newest["status"] != dbpkg.FetchStatusFailed {
		t.Errorf("newest status = %v, want failed", newest["status"])
	}
	if newest["error_message"] != "upstream 500" {
		t.Errorf("error_message = %v", newest["error_message"])
	}

	filtered := authedCtx(user)
	filtered.QueryArgs().Set("status", dbpkg.FetchStatusCompleted)
	ListFetchJobs(db)(filtered)
	body = decodeResponse(t, filtered)
	if total := body["total"].(float64); total != 1 {
		t.Fatalf("filtered total = %v, want 1", total)
	}
}

func TestListFetchJobsScopedToUser(t *testing.T) {
	db := openTestDB(t)
	user, competitor := seedCompetitor(t, db, "Acme")
	other, otherComp := seedCompetitor(t, db, "Rival")

	mine := dbpkg.FetchJob{UserID: user.ID, CompetitorID: competitor.ID, Status: dbpkg.FetchStatusCompleted, StartedAt: time.Now()}
	theirs := dbpkg.FetchJob{UserID: other.ID, CompetitorID: otherComp.ID, Status: dbpkg.FetchStatusCompleted, StartedAt: time.Now()}
	if err := db.Create(&mine).Error; err != nil {
		t.Fatalf("create fetch job: %v", err)
	}
	if err := db.Create(&theirs).Error; err != nil {
		t.Fatalf("create fetch job: %v", err)
	}

	ctx := authedCtx(user)
	ListFetchJobs(db)(ctx)
	body := decodeResponse(t, ctx)
	if total := body["total"].(float64); total != 1 {
		t.Fatalf("total = %v, want 1", total)
	}
}
