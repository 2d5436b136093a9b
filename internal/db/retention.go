package db

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// runAdExpiryOnce flips ads inactive when they have not been re-observed
// for staleDays. first_seen and the row itself are untouched; only the
// active flag changes, so the competitor's cached ads_count converges on
// the next fetch.
func runAdExpiryOnce(db *gorm.DB, staleDays int) error {
	cutoff := time.Now().Add(-time.Duration(staleDays) * 24 * time.Hour)
	return db.Model(&Ad{}).
		Where("is_active = ? AND last_seen < ?", true, cutoff).
		Update("is_active", false).Error
}

// StartAdExpiryWorker launches a background goroutine that expires stale
// ads once at startup and then once per day.
func StartAdExpiryWorker(db *gorm.DB, staleDays int) {
	go func() {
		if err := runAdExpiryOnce(db, staleDays); err != nil {
			log.Printf("ad expiry error (startup): %v", err)
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := runAdExpiryOnce(db, staleDays); err != nil {
				log.Printf("ad expiry error: %v", err)
			}
		}
	}()
}
