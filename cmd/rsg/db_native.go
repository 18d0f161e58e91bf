//go:build !cgo_sqlite

package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// initDB opens path with the pure Go modernc.org/sqlite driver, which takes
// its settings as _pragma parameters.
func initDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite", sqliteDSN(path, "_pragma=journal_mode(WAL)", "_pragma=busy_timeout(5000)"))
}
