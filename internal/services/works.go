package services

import (
	"errors"

	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/hayat-scans/taskledger/internal/models"
	"github.com/hayat-scans/taskledger/internal/types"
	"gorm.io/gorm"
)

// Catalog is the named, soft-deletable catalog of translatable works.
type Catalog struct {
	db    *database.Manager
	audit *Audit
}

func NewCatalog(db *database.Manager, audit *Audit) *Catalog {
	return &Catalog{db: db, audit: audit}
}

// Register adds a work. Names are unique case-insensitively among active
// works; a duplicate returns Conflict. The check and the insert run under the
// serialized write path, so two concurrent registrations of the same name
// cannot both land.
func (c *Catalog) Register(name, link, by string) (*models.Work, error) {
	const op = "works.Register"

	if name == "" {
		return nil, types.E(types.KindValidation, op, "work name is required")
	}
	if link == "" {
		return nil, types.E(types.KindValidation, op, "work link is required")
	}

	work := models.Work{
		Name:    name,
		Link:    link,
		AddedBy: by,
		Active:  true,
	}
	err := c.db.WriteTx(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Work{}).
			Where("LOWER(name) = LOWER(?) AND active = ?", name, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.E(types.KindConflict, op, "an active work with this name already exists")
		}
		return tx.Create(&work).Error
	})
	if err != nil {
		return nil, wrapStorage(op, "failed to register work", err)
	}

	c.audit.Append(Entry{
		Action:  "add_work",
		ActorID: by,
		Details: map[string]interface{}{"name": name, "link": link},
	})
	return &work, nil
}

// Lookup returns the active work matching name case-insensitively.
func (c *Catalog) Lookup(name string) (*models.Work, error) {
	const op = "works.Lookup"

	var work models.Work
	err := c.db.Read().
		Where("LOWER(name) = LOWER(?) AND active = ?", name, true).
		First(&work).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.E(types.KindNotFound, op, "work not found")
	}
	if err != nil {
		return nil, wrapStorage(op, "failed to look up work", err)
	}
	return &work, nil
}

// Search returns up to 10 active works whose name contains q.
func (c *Catalog) Search(q string) ([]models.Work, error) {
	const op = "works.Search"

	var works []models.Work
	err := c.db.Read().
		Where("LOWER(name) LIKE LOWER(?) AND active = ?", "%"+q+"%", true).
		Limit(10).
		Find(&works).Error
	if err != nil {
		return nil, wrapStorage(op, "failed to search works", err)
	}
	return works, nil
}

// SoftDelete deactivates a work. Task and chapter history still references
// the name; nothing cascades.
func (c *Catalog) SoftDelete(name, by string) error {
	const op = "works.SoftDelete"

	var affected int64
	err := c.db.RunWrite(func(db *gorm.DB) error {
		res := db.Model(&models.Work{}).
			Where("LOWER(name) = LOWER(?) AND active = ?", name, true).
			Update("active", false)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return wrapStorage(op, "failed to delete work", err)
	}
	if affected == 0 {
		return types.E(types.KindNotFound, op, "work not found")
	}

	c.audit.Append(Entry{
		Action:  "delete_work",
		ActorID: by,
		Details: map[string]interface{}{"name": name},
	})
	return nil
}

// CountActive returns the number of active works.
func (c *Catalog) CountActive() (int64, error) {
	const op = "works.CountActive"

	var count int64
	if err := c.db.Read().Model(&models.Work{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return 0, wrapStorage(op, "failed to count works", err)
	}
	return count, nil
}
