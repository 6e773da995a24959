// ABOUTME: database/sql driver selection for the SQLite store
// ABOUTME: Builds per-driver DSNs and classifies driver errors into constraint/busy conditions

package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// Supported driver names
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// buildDSN returns a DSN that enables foreign keys, WAL journaling and a busy
// timeout on every pooled connection, and makes every transaction take the
// write lock when it begins.
func buildDSN(driver, path string, busyTimeout time.Duration) (string, error) {
	ms := busyTimeout.Milliseconds()
	switch driver {
	case DriverModernc:
		q := url.Values{}
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "busy_timeout("+fmt.Sprint(ms)+")")
		if path != ":memory:" {
			q.Add("_pragma", "journal_mode(WAL)")
		}
		q.Set("_txlock", "immediate")
		return path + "?" + q.Encode(), nil
	case DriverMattn:
		q := url.Values{}
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", fmt.Sprint(ms))
		if path != ":memory:" {
			q.Set("_journal_mode", "WAL")
		}
		q.Set("_txlock", "immediate")
		return "file:" + path + "?" + q.Encode(), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// isConstraintViolation checks if the error is a SQLite constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *sqlite.Error
	if errors.As(err, &me) {
		return me.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT
	}
	// mattn errors carry the sqlite message text
	return strings.Contains(err.Error(), "constraint failed")
}

// isUniqueViolation narrows isConstraintViolation to UNIQUE/PRIMARY KEY.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *sqlite.Error
	if errors.As(err, &me) {
		code := me.Code()
		if code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
