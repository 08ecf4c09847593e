package db

import (
	// Registers the "sqlite3" driver with SQLCipher support.
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// SQLiteDriverName is the SQLCipher-enabled SQLite driver.
const SQLiteDriverName = "sqlite3"
