package models

import "time"

// Work is a translatable title in the catalog. Works are soft-deleted by
// clearing Active; rows are never physically removed so task and chapter
// history keeps resolving.
type Work struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:255;not null"`
	Link      string `gorm:"size:512;not null"`
	AddedBy   string `gorm:"size:64;not null"`
	CreatedAt time.Time
	Active    bool `gorm:"not null;default:true;index"`
}

// TableName overrides the table name for Work
func (Work) TableName() string {
	return "works"
}
