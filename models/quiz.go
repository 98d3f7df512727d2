package models

import (
	"time"
)

type Quiz struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"not null"`
	Description     string    `json:"description"`
	Code            string    `json:"code" gorm:"size:6;index"`
	UserID          uint      `json:"user_id" gorm:"not null"`
	RandomQuestions bool      `json:"random_questions"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relationships
	User      User       `json:"user,omitempty"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}
