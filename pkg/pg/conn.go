package pg

import (
	"database/sql"
	"fmt"
	"time"
)

// Config addresses one Postgres server. Read and write handles are configured
// separately so reads can go to a replica.
type Config struct {
	User     string
	Host     string
	Port     string
	Password string
	Database string
	// SSLMode defaults to "disable".
	SSLMode string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Database, c.Port, sslMode)
}

func (c Config) applyPool(db *sql.DB) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
}

// newSqlConnection opens a plain lib/pq handle for goose.
func newSqlConnection(config Config) (*sql.DB, error) {
	return sql.Open("postgres", config.DSN())
}
