package models

import (
	"time"
)

// YakudoScore records one processed note: who posted it, the note we quoted,
// the quote we created and the score we computed. Records are written once and
// deleted only by the cleanup job; they are never updated in place.
//
// Score 0.0 is the sentinel for "no valid photo" or "video detected". It is
// deliberately not distinguishable from a computed score of zero at the
// storage layer; report logic branches on score > 0.
type YakudoScore struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"not null"`
	NoteID    string    `json:"note_id" gorm:"not null;index"`
	QuoteID   string    `json:"quote_id" gorm:"not null"`
	Score     float64   `json:"score" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName sets the table name for the YakudoScore model
func (YakudoScore) TableName() string {
	return "yakudo_scores"
}
