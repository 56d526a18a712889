// Package repository defines the persistence layer and the sentinel errors
// it reports. Handlers translate ErrNotFound into 404 and ErrEmailExists into
// a conflict; any other error is an unexpected store failure.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user write collides with the unique
// email index.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate recognises unique-key violations from MySQL (error 1062) and
// from SQLite, with or without gorm's error translation.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
