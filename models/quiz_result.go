package models

import (
	"time"
)

// QuizResult is one completed attempt. Rows are written once and never updated;
// QuizID and UserID are weak references so results survive a quiz deletion.
type QuizResult struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	QuizID          uint      `json:"quiz_id" gorm:"not null"`
	UserID          uint      `json:"user_id" gorm:"not null"`
	Score           int       `json:"score" gorm:"not null"`
	TotalQuestions  int       `json:"total_questions" gorm:"not null"`
	Percentage      int       `json:"percentage" gorm:"not null"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int       `json:"duration_seconds" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`

	// Relationships
	Quiz Quiz `json:"quiz,omitempty"`
}
