package handlers

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"adscope/internal/config"
	dbpkg "adscope/internal/db"
)

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func viewUser(u *dbpkg.User) userView {
	return userView{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// mustAdmin loads the authenticated user and rejects non-admins.
func mustAdmin(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := MustUser(ctx)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin {
		errResponse(ctx, fasthttp.StatusForbidden, "admin only")
		return nil, false
	}
	return user, true
}

// CreateUser provisions a new account. Admin only.
func CreateUser(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := mustAdmin(ctx); !ok {
			return
		}
		var payload struct {
			Email    string `json:"email"`
			Name     string `json:"name,omitempty"`
			Password string `json:"password"`
			IsAdmin  bool   `json:"is_admin,omitempty"`
		}
		if !decodeBody(ctx, &payload) {
			return
		}
		payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
		if payload.Email == "" || payload.Password == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "email and password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}

		user := &dbpkg.User{
			Email:        payload.Email,
			Name:         strings.TrimSpace(payload.Name),
			PasswordHash: string(hash),
			IsAdmin:      payload.IsAdmin,
			IsActive:     true,
		}
		if err := db.Create(user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "failed to create user (email may already exist)")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, viewUser(user))
	}
}

// ListUsers returns all accounts. Admin only.
func ListUsers(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := mustAdmin(ctx); !ok {
			return
		}
		var users []dbpkg.User
		if err := db.Order("created_at ASC").Find(&users).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list users")
			return
		}
		views := make([]userView, 0, len(users))
		for i := range users {
			views = append(views, viewUser(&users[i]))
		}
		jsonResponse(ctx, map[string]any{"users": views, "total": len(views)})
	}
}

// DeactivateUser disables an account. The bootstrap admin cannot be
// deactivated. Admin only.
func DeactivateUser(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := mustAdmin(ctx); !ok {
			return
		}
		id, ok := pathUUID(ctx, "id")
		if !ok {
			return
		}

		var user dbpkg.User
		if err := db.First(&user, "id = ?", id).Error; err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "user not found")
			return
		}
		if user.Email == cfg.AdminEmail {
			errResponse(ctx, fasthttp.StatusForbidden, "cannot deactivate bootstrap admin user")
			return
		}

		if err := db.Model(&user).Update("is_active", false).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to deactivate user")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true})
	}
}
