package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// pgDriverName is the database/sql name registered by pgx/v5/stdlib
const pgDriverName = "pgx"

// NewPostgresStorage connects to PostgreSQL through pgx and applies migrations
func NewPostgresStorage(dsn string) (*SQLStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("failed to open database: empty PostgreSQL DSN")
	}
	db, err := sql.Open(pgDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newSQLStorage(db, dialectPostgres)
}
