package database

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrExpressSlotExists = errors.New("express delivery slot already exists")
	ErrPhoneTaken        = errors.New("phone number is already registered")
	ErrExternalIDTaken   = errors.New("external id is already registered")
	ErrDuplicateName     = errors.New("name is already taken")
)

func isUniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	return column == "" || strings.Contains(sqliteErr.Error(), column)
}
