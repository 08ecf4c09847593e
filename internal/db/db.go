// Package db provides the encrypted SQLite storage layer.
// A single SQLCipher database holds user accounts, sessions, reset tokens,
// and every user's notes. The notes table is scoped by an owner column and
// all mutating queries filter on id AND owner in a single statement.
package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MaxOpenConns is the maximum number of open connections.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// AppDB wraps the sql.DB connection for the application database.
type AppDB struct {
	db *sql.DB
}

// NewAppDBFromSQL wraps an existing sql.DB as AppDB.
func NewAppDBFromSQL(sqlDB *sql.DB) *AppDB {
	return &AppDB{db: sqlDB}
}

// DB returns the underlying sql.DB for direct access when needed.
func (a *AppDB) DB() *sql.DB {
	return a.db
}

// Open opens the SQLCipher-encrypted application database at path.
// The masterKey must be 64 hex characters (a 32-byte key).
func Open(path, masterKey string) (*AppDB, error) {
	key, err := hex.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be exactly 32 bytes, got %d", len(key))
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Construct DSN with SQLCipher encryption parameters
	// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, hex.EncodeToString(key))
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	return open(dsn)
}

func open(dsn string) (*AppDB, error) {
	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxIdleConns)

	// Verify connection and encryption by executing a simple query.
	// If the encryption key is wrong, this will fail.
	var sqliteVersion string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(AppDBSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return NewAppDBFromSQL(db), nil
}

// Close closes the database connection.
func (a *AppDB) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// IsUniqueConstraintError reports whether err came from a UNIQUE constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func sqliteCommonParams() string {
	// Production-safe defaults: WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
