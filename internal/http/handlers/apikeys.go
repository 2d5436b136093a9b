package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"adscope/internal/config"
	dbpkg "adscope/internal/db"
)

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "as_" + base64.URLEncoding.EncodeToString(b), nil
}

type apiKeyView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	// Key is only populated in the create response.
	Key string `json:"key,omitempty"`
}

func viewAPIKey(k *dbpkg.APIKey, includeKey bool) apiKeyView {
	v := apiKeyView{
		ID:        k.ID,
		Name:      k.Name,
		Active:    k.Active,
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339),
	}
	if includeKey {
		v.Key = k.Key
	}
	return v
}

// CreateAPIKey mints a new bearer token for the caller. The token value
// is returned once and never again.
func CreateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var payload struct {
			Name string `json:"name"`
		}
		if !decodeBody(ctx, &payload) {
			return
		}
		payload.Name = strings.TrimSpace(payload.Name)
		if payload.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "name required")
			return
		}

		key, err := generateAPIKey()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to generate API key")
			return
		}

		apiKey := &dbpkg.APIKey{
			UserID: user.ID,
			Name:   payload.Name,
			Key:    key,
			Active: true,
		}
		if err := db.Create(apiKey).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create API key")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, viewAPIKey(apiKey, true))
	}
}

// ListAPIKeys returns the caller's keys. Token values are never echoed
// back after creation.
func ListAPIKeys(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var keys []dbpkg.APIKey
		if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&keys).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list API keys")
			return
		}
		views := make([]apiKeyView, 0, len(keys))
		for i := range keys {
			views = append(views, viewAPIKey(&keys[i], false))
		}
		jsonResponse(ctx, map[string]any{"api_keys": views, "total": len(views)})
	}
}

// DeleteAPIKey removes a key owned by the caller (admins may remove any
// key). The bootstrap key from config cannot be deleted.
func DeleteAPIKey(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		raw, _ := ctx.UserValue("id").(string)
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid id")
			return
		}

		var apiKey dbpkg.APIKey
		if err := db.First(&apiKey, id).Error; err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "API key not found")
			return
		}
		if apiKey.UserID != user.ID && !user.IsAdmin {
			errResponse(ctx, fasthttp.StatusForbidden, "forbidden")
			return
		}
		if cfg.BootstrapAPIKey != "" && apiKey.Key == cfg.BootstrapAPIKey {
			errResponse(ctx, fasthttp.StatusForbidden, "cannot delete bootstrap API key")
			return
		}

		if err := db.Delete(&apiKey).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete API key")
			return
		}
		jsonResponse(ctx, map[string]any{"success": true})
	}
}
