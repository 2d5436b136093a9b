package middleware

import (
	"testing"

	"github.com/valyala/fasthttp"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "adscope/internal/db"
	httpctx "adscope/internal/http/ctx"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := dbpkg.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedKey(t *testing.T, db *gorm.DB, token string, active bool) *dbpkg.User {
	t.Helper()
	user := &dbpkg.User{Email: token + "@example.com", PasswordHash: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	key := &dbpkg.APIKey{UserID: user.ID, Name: "test", Key: token, Active: active}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("create key: %v", err)
	}
	return user
}

func invoke(db *gorm.DB, authHeader string) (*fasthttp.RequestCtx, bool) {
	called := false
	handler := BearerAuth(db)(func(ctx *fasthttp.RequestCtx) {
		called = true
	})
	ctx := &fasthttp.RequestCtx{}
	if authHeader != "" {
		ctx.Request.Header.Set("Authorization", authHeader)
	}
	handler(ctx)
	return ctx, called
}

func TestBearerAuthAcceptsValidKey(t *testing.T) {
	db := openTestDB(t)
	owner := seedKey(t, db, "as_valid-token", true)

	var userInCtx *dbpkg.User
	handler := BearerAuth(db)(func(ctx *fasthttp.RequestCtx) {
		userInCtx, _ = httpctx.UserFromCtx(ctx)
	})
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer as_valid-token")
	handler(ctx)

	if userInCtx == nil {
		t.Fatal("expected user in context")
	}
	if userInCtx.ID != owner.ID {
		t.Fatalf("user = %s, want %s", userInCtx.ID, owner.ID)
	}
}

func TestBearerAuthRejections(t *testing.T) {
	db := openTestDB(t)
	seedKey(t, db, "as_disabled-token", false)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"unknown key", "Bearer as_nope"},
		{"inactive key", "Bearer as_disabled-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, called := invoke(db, tt.header)
			if called {
				t.Fatal("handler should not run")
			}
			if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", got)
			}
		})
	}
}
