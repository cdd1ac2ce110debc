package store

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open connects to the database named by driver and dsn and applies the pool
// settings for that driver.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL:
		db, err := sqlx.Open(DriverMySQL, dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		return db, nil
	case DriverSQLite:
		db, err := sqlx.Open(DriverSQLite, SQLiteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// SQLiteDSN adds WAL and a busy timeout to every pooled connection unless the
// caller already chose pragmas. Concurrent writers then queue for the lock
// instead of failing with SQLITE_BUSY.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
