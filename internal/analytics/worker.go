package analytics

import (
	"log"
	"time"

	"gorm.io/gorm"

	dbpkg "adscope/internal/db"
)

// runDailyCalculationsOnce recalculates daily metrics and targeting
// intel for every active user. Per-user failures are logged and
// skipped.
func runDailyCalculationsOnce(db *gorm.DB) error {
	var users []dbpkg.User
	if err := db.Where("is_active = ?", true).Find(&users).Error; err != nil {
		return err
	}
	log.Printf("starting daily metrics calculation for %d users", len(users))

	metrics := NewMetricsCalculator(db)
	targeting := NewTargetingCalculator(db)

	for _, user := range users {
		if _, err := metrics.CalculateForUser(user.ID, dbpkg.PeriodDaily); err != nil {
			log.Printf("daily metrics error for %s: %v", user.Email, err)
			continue
		}
		targeting.CalculateForUser(user.ID, nil, false)
		log.Printf("calculated daily metrics for %s", user.Email)
	}
	return nil
}

// StartDailyCalculationWorker runs the daily calculation pass once at
// startup and then every 24 hours.
func StartDailyCalculationWorker(db *gorm.DB) {
	go func() {
		if err := runDailyCalculationsOnce(db); err != nil {
			log.Printf("daily calculation error (startup): %v", err)
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := runDailyCalculationsOnce(db); err != nil {
				log.Printf("daily calculation error: %v", err)
			}
		}
	}()
}
