// Package sqlite opens SQLite databases through whichever driver the build
// selected:
//
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// Use Open instead of sql.Open so the driver name and connection pragmas
// match the build. Every connection has foreign keys enabled and a busy
// timeout of five seconds.
package sqlite

import (
	"database/sql"
	"strings"

	"github.com/FocuswithJustin/CitableCorpus/core/errors"
)

// DriverName returns the SQL driver name registered by the build.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// uriEscaper percent-encodes the characters that would otherwise end the
// path part of a SQLite URI filename.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// DSN builds a file URI for path with the driver's connection pragmas and
// any extra query parameters.
func DSN(path string, params ...string) string {
	query := append([]string{pragmaParams}, params...)
	return "file:" + uriEscaper.Replace(path) + "?" + strings.Join(query, "&")
}

// Open opens (creating if needed) the SQLite database at path and checks
// that it is reachable.
func Open(path string) (*sql.DB, error) {
	return open(path, DSN(path))
}

// OpenReadOnly opens an existing SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return open(path, DSN(path, "mode=ro"))
}

func open(path, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	return db, nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
