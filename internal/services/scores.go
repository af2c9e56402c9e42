// Package services contains database-backed query services.
package services

import (
	"fmt"
	"time"

	"yakudo-bot/internal/models"

	"gorm.io/gorm"
)

// ScoresService handles yakudo score record persistence and queries
type ScoresService struct {
	db *gorm.DB
}

// NewScoresService creates a new scores service
func NewScoresService(db *gorm.DB) *ScoresService {
	return &ScoresService{db: db}
}

// Insert persists a new score record and returns it with its assigned id.
func (s *ScoresService) Insert(record *models.YakudoScore) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert yakudo score: %w", err)
	}
	return nil
}

// Since returns all records created at or after the given time, ordered by
// score descending.
func (s *ScoresService) Since(t time.Time) ([]models.YakudoScore, error) {
	var records []models.YakudoScore
	err := s.db.Where("created_at >= ?", t).
		Order("score DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query yakudo scores: %w", err)
	}
	return records, nil
}

// CountSince returns the number of records created at or after the given time.
func (s *ScoresService) CountSince(t time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.YakudoScore{}).
		Where("created_at >= ?", t).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count yakudo scores: %w", err)
	}
	return count, nil
}

// Delete removes a record by id.
func (s *ScoresService) Delete(id uint) error {
	if err := s.db.Delete(&models.YakudoScore{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete yakudo score %d: %w", id, err)
	}
	return nil
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
