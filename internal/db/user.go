package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserByEmail looks up an active user by email. Returns
// gorm.ErrRecordNotFound when there is no such user.
func UserByEmail(db *gorm.DB, email string) (*User, error) {
	var u User
	if err := db.Where("email = ? AND is_active = ?", email, true).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ActiveCompetitors returns all active competitors owned by a user,
// optionally restricted to a subset of ids.
func ActiveCompetitors(db *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]Competitor, error) {
	q := db.Where("user_id = ? AND is_active = ?", userID, true)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var competitors []Competitor
	if err := q.Find(&competitors).Error; err != nil {
		return nil, err
	}
	return competitors, nil
}

// CompetitorForUser resolves a competitor by id, checking ownership.
func CompetitorForUser(db *gorm.DB, competitorID, userID uuid.UUID) (*Competitor, error) {
	var c Competitor
	if err := db.Where("id = ? AND user_id = ?", competitorID, userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountActiveAds is a fresh count of a competitor's active ads. The
// collector and summary aggregator use this instead of the cached
// Competitor.AdsCount to stay correct under concurrent runs.
func CountActiveAds(db *gorm.DB, competitorID uuid.UUID) (int64, error) {
	var n int64
	err := db.Model(&Ad{}).
		Where("competitor_id = ? AND is_active = ?", competitorID, true).
		Count(&n).Error
	return n, err
}
