package dialect

import (
	"database/sql"
	"database/sql/driver"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

// Detect chooses the dialect for a concrete driver. Unknown drivers get Generic.
func Detect(d driver.Driver) Dialect {
	switch d.(type) {
	case *mssql.Driver:
		return SQLServer{}
	case *mysql.MySQLDriver:
		return MySQL{}
	case *pq.Driver, *stdlib.Driver:
		return Postgres{}
	case *sqlite3.SQLiteDriver, *sqlite.Driver:
		return SQLite{}
	default:
		return Generic{}
	}
}

// ForDB is Detect applied to the driver behind db.
func ForDB(db *sql.DB) Dialect {
	if db == nil {
		return Generic{}
	}
	return Detect(db.Driver())
}

// ForName maps a registered database/sql driver name to its dialect.
func ForName(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlserver", "mssql", "azuresql":
		return SQLServer{}
	case "mysql":
		return MySQL{}
	case "postgres", "postgresql", "pgx", "pq":
		return Postgres{}
	case "sqlite3", "sqlite":
		return SQLite{}
	default:
		return Generic{}
	}
}
