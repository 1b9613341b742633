// Package sqlite opens SQLite databases for the persistence adapter and
// generates the DDL of mapped entity types. Both the cgo driver
// (github.com/mattn/go-sqlite3) and the pure Go driver (modernc.org/sqlite)
// are registered.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers "sqlite"
)

const (
	// DriverCGO is the database/sql name of github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is the database/sql name of modernc.org/sqlite.
	DriverPure = "sqlite"
)

// Open opens and pings a SQLite database and enables foreign keys. An
// in-memory database is limited to one connection, since every connection
// would otherwise see its own empty database.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver == "" {
		driver = DriverCGO
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logger.Debug("Opened SQLite database", zap.String("driver", driver), zap.String("dsn", dsn))
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
