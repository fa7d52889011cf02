package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlErrDuplicateEntry = 1062

var mysqlDialect = dialect{
	name:          "mysql",
	migrationsDir: "migrations/mysql",
	migrationsTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename VARCHAR(255) PRIMARY KEY,
		applied_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB`,
	lockSuffix:  " FOR UPDATE",
	isDuplicate: isMySQLDuplicate,
}

// NewMySQLStore opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/zeit
// parseTime and a UTC location are always enforced.
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return newSQLStore(db, mysqlDialect), nil
}

func isMySQLDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

// Open returns a store for the named driver: "sqlite" takes a file path,
// "mysql" a DSN.
func Open(ctx context.Context, driver, target string) (*SQLStore, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(target)
	case "mysql":
		return NewMySQLStore(ctx, target)
	default:
		return nil, fmt.Errorf("unknown database driver: %s (use: sqlite, mysql)", driver)
	}
}
