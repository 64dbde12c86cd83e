package models

import (
	"time"
)

type Contact struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	Phone        string    `gorm:"not null" json:"phone"`
	Email        string    `json:"email"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"-"`
}
