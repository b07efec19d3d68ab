package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/hayat-scans/taskledger/internal/config"
	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/hayat-scans/taskledger/internal/models"
	"github.com/hayat-scans/taskledger/internal/types"
	"gorm.io/gorm"
)

// Ledger is the task state machine: assign → submit → approve/reject, with
// atomic settlement on approval.
//
// The non-terminal uniqueness invariant (at most one pending/submitted task
// per user, work, and chapter) is enforced by the partial unique index the
// migrator creates; a rejected task never blocks a fresh assignment for the
// same key.
type Ledger struct {
	db       *database.Manager
	works    *Catalog
	audit    *Audit
	maxPrice int
}

func NewLedger(db *database.Manager, works *Catalog, audit *Audit, cfg *config.Config) *Ledger {
	return &Ledger{db: db, works: works, audit: audit, maxPrice: cfg.MaxPrice}
}

// Assign creates a pending task for one chapter of a work. Price and chapter
// are validated before any storage access. The work must exist in the
// catalog; the user is created lazily in the same transaction as the task.
// An existing non-terminal task for the same key returns Conflict, with no
// mutation and no audit entry.
func (l *Ledger) Assign(userID, username, displayName, workName string, chapter, price int, by string) (*models.Task, error) {
	const op = "tasks.Assign"

	if price < 1 || price > l.maxPrice {
		return nil, types.E(types.KindValidation, op, fmt.Sprintf("price must be between 1 and %d", l.maxPrice))
	}
	if chapter < 1 {
		return nil, types.E(types.KindValidation, op, "chapter must be at least 1")
	}
	if userID == "" || username == "" {
		return nil, types.E(types.KindValidation, op, "user id and username are required")
	}

	work, err := l.works.Lookup(workName)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		UserID:     userID,
		Work:       work.Name,
		Chapter:    chapter,
		Price:      price,
		Status:     models.StatusPending,
		AssignedBy: by,
		CreatedAt:  time.Now().UTC(),
	}
	err = l.db.WriteTx(func(tx *gorm.DB) error {
		if err := getOrCreateUser(tx, userID, username, displayName); err != nil {
			return err
		}
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if user.Banned {
			return types.E(types.KindValidation, op, "user is banned")
		}
		if err := tx.Create(&task).Error; err != nil {
			if isDuplicate(err) {
				return types.E(types.KindConflict, op, "an active task already exists for this chapter")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage(op, "failed to create task", err)
	}

	l.audit.Append(Entry{
		Action:   "create_task",
		ActorID:  by,
		TargetID: userID,
		Details:  map[string]interface{}{"work": work.Name, "chapter": chapter, "price": price},
	})
	return &task, nil
}

// Submit moves the matching pending task to submitted. The conditional
// update makes concurrent duplicate submits affect at most one row; no
// matching pending task returns NotFound.
func (l *Ledger) Submit(userID, workName string, chapter int) error {
	const op = "tasks.Submit"

	now := time.Now().UTC()
	var affected int64
	err := l.db.RunWrite(func(db *gorm.DB) error {
		res := db.Model(&models.Task{}).
			Where("user_id = ? AND LOWER(work) = LOWER(?) AND chapter = ? AND status = ?",
				userID, workName, chapter, models.StatusPending).
			Updates(map[string]interface{}{"status": models.StatusSubmitted, "submitted_at": now})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return wrapStorage(op, "failed to submit task", err)
	}

	l.audit.Append(Entry{
		Action:  "submit_task",
		ActorID: userID,
		Details: map[string]interface{}{"work": workName, "chapter": chapter, "success": affected > 0},
	})
	if affected == 0 {
		return types.E(types.KindNotFound, op, "no pending task for this chapter")
	}
	return nil
}

// Approve settles a submitted task: the status flip, the immutable chapter
// record carrying the locked-in price, and the financial audit entry commit
// as a single transaction. If a concurrent approval already settled the same
// key, the chapter insert violates its unique index, the whole transaction
// rolls back, and the caller gets Conflict. Exactly one concurrent caller
// ever succeeds.
func (l *Ledger) Approve(userID, workName string, chapter int, by string) (*models.Task, error) {
	const op = "tasks.Approve"

	now := time.Now().UTC()
	var task models.Task
	err := l.db.WriteTx(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND LOWER(work) = LOWER(?) AND chapter = ? AND status = ? AND approved_at IS NULL",
			userID, workName, chapter, models.StatusSubmitted).
			First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Distinguish a key that was already settled from one that was
			// never submitted, so a late duplicate approval reads as the
			// conflict it is.
			var settled int64
			if cerr := tx.Model(&models.Chapter{}).
				Where("user_id = ? AND LOWER(work) = LOWER(?) AND chapter = ?", userID, workName, chapter).
				Count(&settled).Error; cerr != nil {
				return cerr
			}
			if settled > 0 {
				return types.E(types.KindConflict, op, "chapter already approved")
			}
			return types.E(types.KindNotFound, op, "no submitted task for this chapter")
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", task.ID, models.StatusSubmitted).
			Updates(map[string]interface{}{
				"status":      models.StatusApproved,
				"approved_by": by,
				"approved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.E(types.KindConflict, op, "task already approved")
		}

		settled := models.Chapter{
			UserID:     task.UserID,
			Work:       task.Work,
			Chapter:    task.Chapter,
			Price:      task.Price,
			ApprovedBy: by,
			CreatedAt:  now,
		}
		if err := tx.Create(&settled).Error; err != nil {
			if isDuplicate(err) {
				return types.E(types.KindConflict, op, "chapter already approved")
			}
			return err
		}

		return l.audit.AppendTx(tx, Entry{
			Action:   "financial_approve",
			ActorID:  by,
			TargetID: task.UserID,
			Details:  map[string]interface{}{"work": task.Work, "chapter": task.Chapter, "price": task.Price},
			Category: models.CategoryFinancial,
		})
	})
	if err != nil {
		return nil, wrapStorage(op, "failed to approve task", err)
	}

	task.Status = models.StatusApproved
	task.ApprovedBy = by
	task.ApprovedAt = &now
	return &task, nil
}

// Reject moves a submitted task to rejected with a reason. The key becomes
// free for a fresh assignment. No matching submitted task returns NotFound.
func (l *Ledger) Reject(userID, workName string, chapter int, by, reason string) error {
	const op = "tasks.Reject"

	now := time.Now().UTC()
	var affected int64
	err := l.db.RunWrite(func(db *gorm.DB) error {
		res := db.Model(&models.Task{}).
			Where("user_id = ? AND LOWER(work) = LOWER(?) AND chapter = ? AND status = ?",
				userID, workName, chapter, models.StatusSubmitted).
			Updates(map[string]interface{}{
				"status":        models.StatusRejected,
				"rejected_by":   by,
				"rejected_at":   now,
				"reject_reason": reason,
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return wrapStorage(op, "failed to reject task", err)
	}
	if affected == 0 {
		return types.E(types.KindNotFound, op, "no submitted task for this chapter")
	}

	l.audit.Append(Entry{
		Action:   "reject_task",
		ActorID:  by,
		TargetID: userID,
		Details:  map[string]interface{}{"work": workName, "chapter": chapter, "reason": reason},
	})
	return nil
}

// Tasks lists a user's tasks newest-first, optionally filtered by status.
// status "" means all.
func (l *Ledger) Tasks(userID, status string) ([]models.Task, error) {
	const op = "tasks.Tasks"

	q := l.db.Read().Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, wrapStorage(op, "failed to list tasks", err)
	}
	return tasks, nil
}
