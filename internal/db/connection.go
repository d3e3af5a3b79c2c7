package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/poolcare-ownerverify/internal/config"
)

// Connection holds the database connection
type Connection struct {
	DB *sql.DB
}

// NewConnection opens a connection to the verification database using
// standard PG* environment variables.
func NewConnection() (*Connection, error) {
	host := config.GetEnv("PGHOST", "localhost")
	port := config.GetEnv("PGPORT", "5432")
	user := config.GetEnv("PGUSER", "poolcare")
	password := config.GetEnv("PGPASSWORD", "poolcare")
	dbname := config.GetEnv("PGDATABASE", "ownerverify")
	sslmode := config.GetEnv("PGSSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(config.GetEnvInt("PGMAXCONNS", 20))
	db.SetMaxIdleConns(config.GetEnvInt("PGMAXCONNS", 20) / 2)

	return &Connection{DB: db}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
