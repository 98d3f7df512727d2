package models

import (
	"time"
)

type Question struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	QuizID        uint      `json:"quiz_id" gorm:"not null"`
	Title         string    `json:"title" gorm:"not null"`
	RandomOptions bool      `json:"random_options"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relationships
	Quiz    Quiz     `json:"quiz,omitempty"`
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}
