package model

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DisplayName  string    `gorm:"size:128;not null" json:"displayName"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
