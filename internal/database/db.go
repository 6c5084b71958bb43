// Package database opens the MySQL pool shared by every repository.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config carries connection parameters plus pool sizing.  Zero pool
// values fall back to defaults sized for a single API instance.
type Config struct {
	User string
	Pass string // empty for passwordless local setups
	Host string
	Port string
	Name string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
)

// dsn renders the driver connection string.  parseTime maps DATETIME(6)
// columns onto time.Time and loc=UTC keeps every timestamp in UTC,
// which the keyset cursors depend on for a total order.
func dsn(cfg Config) string {
	auth := cfg.User
	if cfg.Pass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.User, cfg.Pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, cfg.Host, cfg.Port, cfg.Name)
}

// Open connects to MySQL, applies the pool settings and verifies the
// connection with a short ping.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnMaxLifetime
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
