//go:build cgo_sqlite

package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// initDB opens path with mattn/go-sqlite3, in WAL mode with a busy timeout so
// a second rsg process waits instead of failing.
func initDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", sqliteDSN(path, "_journal_mode=WAL", "_busy_timeout=5000"))
}
