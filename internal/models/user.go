package models

import "time"

// User is a contributor known to the ledger, created lazily on first contact.
type User struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Username    string    `gorm:"size:255;not null"`
	DisplayName string    `gorm:"size:255"`
	JoinedAt    time.Time `gorm:"not null"`
	Banned      bool      `gorm:"not null;default:false"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
