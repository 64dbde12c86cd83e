package models

import (
	"time"
)

// DateLayout is the display format of Alert.Date.
const DateLayout = "02/01/2006 15:04:05"

type Alert struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Date      string    `gorm:"not null" json:"date"`
	Name      string    `gorm:"not null" json:"name"`
	Situation string    `gorm:"not null" json:"situation"`
	Message   string    `json:"message"`
	Lat       string    `json:"lat"`
	Lng       string    `json:"lng"`
	CreatedAt time.Time `json:"-"`
}
