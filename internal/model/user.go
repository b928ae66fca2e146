package model

import "time"

// User is a registered patient who receives reminders over WhatsApp.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserName        string    `gorm:"not null" json:"user_name"`
	PhoneNumber     string    `gorm:"uniqueIndex;not null" json:"phone_number"`
	Email           *string   `json:"email"`
	EmergencyNumber string    `gorm:"not null" json:"emergency_number"`
	Age             *int      `json:"age"`
	Language        string    `gorm:"default:English" json:"language"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
