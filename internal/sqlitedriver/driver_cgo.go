//go:build cgo

package sqlitedriver

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" driver
)

// PureGo indicates whether the active SQLite driver is the pure-Go fallback.
// False when built with CGO.
const PureGo = false
