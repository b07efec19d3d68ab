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

// Directory registers users lazily and keeps display names in sync.
type Directory struct {
	db *database.Manager
}

func NewDirectory(db *database.Manager) *Directory {
	return &Directory{db: db}
}

// GetOrCreate inserts the user on first sight. If the user exists and
// displayName is non-empty and differs, the display name is updated. Safe
// under concurrent calls: the upsert is a single statement on the write path.
func (d *Directory) GetOrCreate(id, username, displayName string) (*models.User, error) {
	const op = "users.GetOrCreate"

	if id == "" {
		return nil, types.E(types.KindValidation, op, "user id is required")
	}
	if username == "" {
		return nil, types.E(types.KindValidation, op, "username is required")
	}

	var user models.User
	err := d.db.RunWrite(func(db *gorm.DB) error {
		if err := getOrCreateUser(db, id, username, displayName); err != nil {
			return err
		}
		return db.Where("id = ?", id).First(&user).Error
	})
	if err != nil {
		return nil, wrapStorage(op, "failed to upsert user", err)
	}
	return &user, nil
}

// getOrCreateUser is the transaction-scoped form used by the ledger so that
// user creation commits atomically with the assignment that triggered it.
func getOrCreateUser(tx *gorm.DB, id, username, displayName string) error {
	row := models.User{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		JoinedAt:    time.Now().UTC(),
	}
	if row.DisplayName == "" {
		row.DisplayName = username
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}
	if displayName != "" {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"display_name": displayName}),
		}
	}
	return tx.Clauses(conflict).Create(&row).Error
}

// Get returns the user or NotFound.
func (d *Directory) Get(id string) (*models.User, error) {
	const op = "users.Get"

	var user models.User
	err := d.db.Read().Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.E(types.KindNotFound, op, "user not found")
	}
	if err != nil {
		return nil, wrapStorage(op, "failed to read user", err)
	}
	return &user, nil
}

// SetBanned flips the ban flag. Banned users cannot receive new assignments.
func (d *Directory) SetBanned(id string, banned bool, by string) error {
	const op = "users.SetBanned"

	var affected int64
	err := d.db.RunWrite(func(db *gorm.DB) error {
		res := db.Model(&models.User{}).Where("id = ?", id).Update("banned", banned)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return wrapStorage(op, "failed to update ban flag", err)
	}
	if affected == 0 {
		return types.E(types.KindNotFound, op, "user not found")
	}
	return nil
}
