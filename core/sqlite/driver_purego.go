//go:build !cgo_sqlite

package sqlite

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"

	// modernc applies each _pragma parameter on every new connection.
	pragmaParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
)
