package models

import "time"

// Admin is an elevated-role grant. Membership is idempotent: the primary key
// on UserID makes a repeated grant a no-op.
type Admin struct {
	UserID  string    `gorm:"primaryKey;size:64"`
	AddedBy string    `gorm:"size:64;not null"`
	AddedAt time.Time `gorm:"not null"`
}

// TableName overrides the table name for Admin
func (Admin) TableName() string {
	return "admins"
}

// Setting is a single key/value row. The owner identity lives here as a
// write-once row: the first successful insert wins.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:255;not null"`
	UpdatedAt time.Time
}

// TableName overrides the table name for Setting
func (Setting) TableName() string {
	return "settings"
}
