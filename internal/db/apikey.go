package db

import (
	"gorm.io/gorm"

	"adscope/internal/config"
)

// APIKeyByToken resolves an active API key (with its owner preloaded)
// from a bearer token value.
func APIKeyByToken(db *gorm.DB, token string) (*APIKey, error) {
	var key APIKey
	if err := db.Where("key = ? AND active = ?", token, true).Preload("User").First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// EnsureBootstrapAPIKey ensures the bootstrap admin user has an API key
// matching APP_API_KEY from config. If the key already exists but is
// owned by a different user, it will be updated to belong to admin.
func EnsureBootstrapAPIKey(db *gorm.DB, cfg *config.Config) error {
	if cfg.BootstrapAPIKey == "" {
		return nil
	}

	admin, err := UserByEmail(db, cfg.AdminEmail)
	if err != nil {
		return err
	}

	// Use Find so "not found" doesn't log as error.
	var existing APIKey
	if err := db.Where("key = ?", cfg.BootstrapAPIKey).Limit(1).Find(&existing).Error; err == nil && existing.ID != 0 {
		if existing.UserID != admin.ID {
			existing.UserID = admin.ID
			existing.Name = "adscope"
			existing.Active = true
			return db.Save(&existing).Error
		}
		return nil
	}

	key := &APIKey{
		UserID: admin.ID,
		Name:   "adscope",
		Key:    cfg.BootstrapAPIKey,
		Active: true,
	}

	return db.Create(key).Error
}
