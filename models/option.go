package models

import (
	"time"
)

type Option struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	QuestionID uint      `json:"question_id" gorm:"not null"`
	Title      string    `json:"title" gorm:"not null"`
	IsCorrect  bool      `json:"is_correct" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relationships
	Question Question `json:"question,omitempty"`
}
