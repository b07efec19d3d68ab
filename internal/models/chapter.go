package models

import "time"

// Chapter is the immutable settlement record created when a task is approved.
// It carries the price locked in at assignment time. The unique index over
// (user_id, work, chapter) is what makes a duplicate concurrent approval roll
// back instead of settling twice.
type Chapter struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_chapters_key,priority:1;index:idx_chapters_user_date,priority:1"`
	Work       string    `gorm:"size:255;not null;uniqueIndex:idx_chapters_key,priority:2"`
	Chapter    int       `gorm:"not null;uniqueIndex:idx_chapters_key,priority:3"`
	Price      int       `gorm:"not null"`
	ApprovedBy string    `gorm:"size:64;not null"`
	CreatedAt  time.Time `gorm:"index:idx_chapters_user_date,priority:2"`
}

// TableName overrides the table name for Chapter
func (Chapter) TableName() string {
	return "chapters"
}
