package domain

import "time"

// User is the durable identity record. PasswordHash holds the bcrypt hash of
// the credential; read paths clear it before returning the record to callers.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Login        string    `gorm:"uniqueIndex;size:64;not null" json:"login"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Photo        string    `gorm:"size:255;not null;default:default.png" json:"photo"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
