package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration. Statements run one at a
// time and must be valid in both SQLite and PostgreSQL.
type Migration struct {
	Version string
	Up      []string
	Down    []string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

var migrationV1Up = []string{
	`CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    item_ids TEXT NOT NULL DEFAULT '[]',
    ship_full_name TEXT NOT NULL,
    ship_phone TEXT NOT NULL,
    ship_specific TEXT NOT NULL,
    ship_street TEXT NOT NULL,
    ship_city TEXT NOT NULL,
    ship_country TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    total_price BIGINT NOT NULL,
    discount BIGINT NOT NULL DEFAULT 0,
    payment_method TEXT NOT NULL,
    is_paid BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at BIGINT,
    is_delivered BOOLEAN NOT NULL DEFAULT FALSE,
    delivered_at BIGINT,
    created_by_id TEXT,
    created_by_email TEXT,
    updated_by_id TEXT,
    updated_by_email TEXT,
    deleted_by_id TEXT,
    deleted_by_email TEXT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    deleted_at BIGINT
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_deleted ON orders(deleted_at)`,

	// order_id is deferred so items can be written before the order row in one transaction
	`CREATE TABLE IF NOT EXISTS order_items (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    product_id TEXT NOT NULL,
    variant_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    price BIGINT NOT NULL,
    quantity INTEGER NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    created_by_id TEXT,
    created_by_email TEXT,
    updated_by_id TEXT,
    updated_by_email TEXT,
    deleted_by_id TEXT,
    deleted_by_email TEXT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    deleted_at BIGINT,
    FOREIGN KEY (order_id) REFERENCES orders(id) DEFERRABLE INITIALLY DEFERRED,
    CHECK (price >= 0),
    CHECK (quantity >= 1)
)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id, seq)`,
}

var migrationV1Down = []string{
	`DROP TABLE IF EXISTS order_items`,
	`DROP TABLE IF EXISTS orders`,
}

var migrationV11Up = []string{
	`CREATE TABLE IF NOT EXISTS outbox (
    event_id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    event_type TEXT NOT NULL,
    aggregate_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    occurred_at BIGINT NOT NULL,
    sent_at BIGINT,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at, occurred_at)`,
}

var migrationV11Down = []string{
	`DROP TABLE IF EXISTS outbox`,
}

const schemaVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// appliedVersion returns the highest recorded schema version, or 0.0.0
func appliedVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid current schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

func versionPlaceholder(d dialect) string {
	if d == dialectPostgres {
		return "$1"
	}
	return "?"
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB, d dialect) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	currentVersion, err := appliedVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range migration.Up {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
			}
		}
		insert := "INSERT INTO schema_version (version) VALUES (" + versionPlaceholder(d) + ")"
		if _, err := tx.ExecContext(ctx, insert, migration.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB, d dialect) error {
	current, err := appliedVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current.Original())
	}

	for _, stmt := range migration.Down {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
		}
	}

	del := "DELETE FROM schema_version WHERE version = " + versionPlaceholder(d)
	if _, err := db.ExecContext(ctx, del, migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}
