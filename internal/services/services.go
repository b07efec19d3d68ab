// Package services implements the task ledger: user directory, work catalog,
// task state machine, audit log, stats aggregation, and admin registry. Every
// service takes its storage manager by injection; there is no package-level
// state.
package services

import (
	"errors"
	"strings"

	"github.com/hayat-scans/taskledger/internal/types"
	"gorm.io/gorm"
)

// isDuplicate recognizes a unique-constraint violation. GORM translates these
// to ErrDuplicatedKey when the dialector supports it; the string checks cover
// drivers that do not.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// wrapStorage converts a storage error into the boundary taxonomy. Errors
// already typed (including the manager's transient busy wrapping) pass
// through unchanged.
func wrapStorage(op, message string, err error) error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return typed
	}
	if isDuplicate(err) {
		return types.Wrap(types.KindConflict, op, message, err)
	}
	return types.Wrap(types.KindTransient, op, message, err)
}
