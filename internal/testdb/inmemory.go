// Package testdb provides in-memory database fixtures for tests.
package testdb

import (
	"database/sql"
	"fmt"

	"github.com/vedgupta/prenotebook/internal/db"
)

// TestMasterKey is a fixed 32-byte key (hex) for test databases.
const TestMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// NewAppDBInMemory creates an in-memory encrypted AppDB for tests.
// The name keeps shared-cache connections within one test isolated from
// other tests; pass a unique name per fixture.
func NewAppDBInMemory(name string) (*db.AppDB, error) {
	if name == "" {
		name = "test-app"
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", name, TestMasterKey)

	sqlDB, err := sql.Open(db.SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)

	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify in-memory database: %w", err)
	}

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(db.AppDBSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize in-memory schema: %w", err)
	}

	return db.NewAppDBFromSQL(sqlDB), nil
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA secure_delete=OFF",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
