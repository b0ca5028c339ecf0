//go:build cgo

package sqlstore

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// sqliteUniqueKey matches "UNIQUE constraint failed: employees.email_key".
func sqliteUniqueKey(err error) (string, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return "", false
	}
	return se.Error(), true
}
