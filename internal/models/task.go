package models

import "time"

// Task status values. Pending and Submitted are the non-terminal states
// covered by the partial uniqueness index; Approved and Rejected are terminal.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Task is one chapter of one work assigned to one user at a fixed price.
// The index on (user_id, work, chapter) is completed during migration with a
// partial unique index restricted to non-terminal statuses, which AutoMigrate
// cannot express.
type Task struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	UserID       string `gorm:"size:64;not null;index:idx_tasks_user_status,priority:1"`
	Work         string `gorm:"size:255;not null;index:idx_tasks_work_chapter,priority:1"`
	Chapter      int    `gorm:"not null;index:idx_tasks_work_chapter,priority:2"`
	Price        int    `gorm:"not null"`
	Status       string `gorm:"size:16;not null;index:idx_tasks_user_status,priority:2"`
	AssignedBy   string `gorm:"size:64;not null"`
	CreatedAt    time.Time
	SubmittedAt  *time.Time
	ApprovedAt   *time.Time
	RejectedAt   *time.Time
	ApprovedBy   string `gorm:"size:64"`
	RejectedBy   string `gorm:"size:64"`
	RejectReason string `gorm:"size:512"`
}

// TableName overrides the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// Terminal reports whether the task can no longer change state.
func (t *Task) Terminal() bool {
	return t.Status == StatusApproved || t.Status == StatusRejected
}
