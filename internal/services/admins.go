package services

import (
	"errors"
	"time"

	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/hayat-scans/taskledger/internal/models"
	"github.com/hayat-scans/taskledger/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ownerKey = "owner_id"

// Admins manages admin grants and the write-once owner setting.
type Admins struct {
	db    *database.Manager
	audit *Audit
}

func NewAdmins(db *database.Manager, audit *Audit) *Admins {
	return &Admins{db: db, audit: audit}
}

// Add grants admin to a user. Idempotent: a repeated grant is a no-op.
// Returns whether a new grant was created.
func (a *Admins) Add(userID, by string) (bool, error) {
	const op = "admins.Add"

	if userID == "" {
		return false, types.E(types.KindValidation, op, "user id is required")
	}

	grant := models.Admin{
		UserID:  userID,
		AddedBy: by,
		AddedAt: time.Now().UTC(),
	}
	var added bool
	err := a.db.RunWrite(func(db *gorm.DB) error {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
		added = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		return false, wrapStorage(op, "failed to add admin", err)
	}

	if added {
		a.audit.Append(Entry{
			Action:   "add_admin",
			ActorID:  by,
			TargetID: userID,
			Category: models.CategoryAdmin,
		})
	}
	return added, nil
}

// Remove revokes a grant. Returns whether a grant existed.
func (a *Admins) Remove(userID, by string) (bool, error) {
	const op = "admins.Remove"

	var removed bool
	err := a.db.RunWrite(func(db *gorm.DB) error {
		res := db.Where("user_id = ?", userID).Delete(&models.Admin{})
		removed = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		return false, wrapStorage(op, "failed to remove admin", err)
	}

	if removed {
		a.audit.Append(Entry{
			Action:   "remove_admin",
			ActorID:  by,
			TargetID: userID,
			Category: models.CategoryAdmin,
		})
	}
	return removed, nil
}

// IsAdmin reports whether the user holds a grant.
func (a *Admins) IsAdmin(userID string) (bool, error) {
	const op = "admins.IsAdmin"

	var count int64
	if err := a.db.Read().Model(&models.Admin{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, wrapStorage(op, "failed to check admin", err)
	}
	return count > 0, nil
}

// List returns all grants in grant order.
func (a *Admins) List() ([]models.Admin, error) {
	const op = "admins.List"

	var grants []models.Admin
	if err := a.db.Read().Order("added_at ASC").Find(&grants).Error; err != nil {
		return nil, wrapStorage(op, "failed to list admins", err)
	}
	return grants, nil
}

// SetOwner sets the owner exactly once. The first successful call wins; every
// later call returns Conflict regardless of the caller.
func (a *Admins) SetOwner(userID string) error {
	const op = "admins.SetOwner"

	if userID == "" {
		return types.E(types.KindValidation, op, "user id is required")
	}

	row := models.Setting{Key: ownerKey, Value: userID}
	var set bool
	err := a.db.RunWrite(func(db *gorm.DB) error {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		set = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		return wrapStorage(op, "failed to set owner", err)
	}
	if !set {
		return types.E(types.KindConflict, op, "owner already set")
	}

	a.audit.Append(Entry{
		Action:   "set_owner",
		ActorID:  userID,
		Category: models.CategoryAdmin,
	})
	return nil
}

// Owner returns the owner id, or NotFound when unset.
func (a *Admins) Owner() (string, error) {
	const op = "admins.Owner"

	var row models.Setting
	err := a.db.Read().Where("key = ?", ownerKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", types.E(types.KindNotFound, op, "owner not set")
	}
	if err != nil {
		return "", wrapStorage(op, "failed to read owner", err)
	}
	return row.Value, nil
}
