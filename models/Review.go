package models

import (
	"time"

	"golang.org/x/exp/slices"
)

// Review is immutable once created; there is no edit or delete path.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"column:user_id;not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Type      string    `json:"type" gorm:"not null;index"`
	Rating    float64   `json:"rating" gorm:"not null"`
	Body      string    `json:"review" gorm:"column:review;type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingSteps are the ten valid half-star values, 0.5 through 5.0.
var RatingSteps = []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}

func ValidRatingStep(r float64) bool {
	return slices.Contains(RatingSteps, r)
}
