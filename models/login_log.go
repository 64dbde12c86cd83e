package models

import (
	"time"
)

// LoginLog is the audit entry written for every login attempt.
type LoginLog struct {
	ID        uint  `gorm:"primarykey"`
	UserID    *uint `gorm:"index"`
	Email     string
	IPAddress string
	UserAgent string
	Success   bool
	Timestamp time.Time `gorm:"autoCreateTime"`
}
