package models

import (
	"time"
)

type User struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	Username             string     `json:"username" gorm:"not null;uniqueIndex"`
	Email                string     `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash         string     `json:"-" gorm:"not null"`
	RefreshToken         string     `json:"-"`
	RefreshTokenExpireIn *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Relationships
	Quizzes []Quiz `json:"quizzes,omitempty" gorm:"foreignKey:UserID"`
}
