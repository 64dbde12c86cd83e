package models

import (
	"time"
)

type User struct {
	ID             uint   `gorm:"primarykey"`
	Name           string `gorm:"not null"`
	Email          string `gorm:"unique;not null"`
	PasswordHash   string `gorm:"not null"`
	Phone          string
	LastLogin      *time.Time
	FailedAttempts int `gorm:"column:login_attempts;default:0"`
	LockedUntil    *time.Time
	CreatedAt      time.Time
	Contacts       []Contact `gorm:"constraint:OnDelete:CASCADE;"`
}

// IsLocked reports whether a lockout is still running at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
