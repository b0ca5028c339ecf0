//go:build !cgo

package sqlstore

import (
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Without cgo the sqlite3 driver cannot open databases, so this only keeps
// the dialect table complete.
func sqliteUniqueKey(err error) (string, bool) {
	if err == nil || !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return "", false
	}
	return err.Error(), true
}
