//go:build !cgo

package sqlitedriver

import (
	"database/sql"

	"modernc.org/sqlite"
)

func init() {
	sql.Register("sqlite3", &sqlite.Driver{})
}

// PureGo indicates whether the active SQLite driver is the pure-Go fallback.
// True when built without CGO.
const PureGo = true
