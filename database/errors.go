package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"pressroom/content"
)

// translate maps driver and gorm errors onto the content error taxonomy.
// Errors that are already domain errors pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, content.ErrDuplicate),
		errors.Is(err, content.ErrStorageUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return content.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", content.ErrDuplicate, err)
	case isTransient(err):
		return fmt.Errorf("%w: %v", content.ErrStorageUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	return code.ExtendedCode == sqlite3.ErrConstraintUnique ||
		code.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// isTransient reports lock contention that a retry can clear.
func isTransient(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	return code.Code == sqlite3.ErrBusy || code.Code == sqlite3.ErrLocked
}

func sqliteCode(err error) (sqlite3.Error, bool) {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se, true
	}
	var sp *sqlite3.Error
	if errors.As(err, &sp) && sp != nil {
		return *sp, true
	}
	return sqlite3.Error{}, false
}
