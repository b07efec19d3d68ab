package models

import (
	"time"

	"gorm.io/datatypes"
)

// Log entry categories. Financial entries are durable and survive purges;
// admin entries are delivered with backpressure; normal entries are
// best-effort batched.
const (
	CategoryNormal    = "normal"
	CategoryAdmin     = "admin"
	CategoryFinancial = "financial"
)

// LogEntry is one append-only audit record.
type LogEntry struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Action    string         `gorm:"size:64;not null"`
	ActorID   string         `gorm:"size:64;not null"`
	TargetID  string         `gorm:"size:64"`
	Details   datatypes.JSON `gorm:"type:json"`
	Timestamp time.Time      `gorm:"not null;index:idx_logs_timestamp"`
	Category  string         `gorm:"size:16;not null;default:'normal';index:idx_logs_category"`
}

// TableName overrides the table name for LogEntry
func (LogEntry) TableName() string {
	return "logs"
}
