package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/shopadmin/pkg/types"
)

// dialect selects placeholder syntax and connection setup
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// SQLStorage implements the Storage interface on database/sql.
// The same queries run against SQLite and PostgreSQL.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection serialises writers; every statement inside a
	// transaction must go through the transaction or it will block.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLStorage(db, dialectSQLite)
}

func newSQLStorage(db *sql.DB, d dialect) (*SQLStorage, error) {
	if err := ApplyMigrations(context.Background(), db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return &SQLStorage{db: db, dialect: d}, nil
}

// Open returns storage for the named driver: "sqlite" (dsn is a file path) or "postgres" (dsn is a URL)
func Open(driver, dsn string) (*SQLStorage, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStorage(dsn)
	case "postgres", "postgresql":
		return NewPostgresStorage(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Dialect returns the SQL dialect name
func (s *SQLStorage) Dialect() string {
	return s.dialect.String()
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction
func (s *SQLStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyError(err)
	}
	return &sqlTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier
func (s *SQLStorage) querier() querier {
	return s.db
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStorage) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?,?,...,?" with n entries
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// Timestamps are stored as UTC unix nanoseconds so every driver round-trips them identically.

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func actorColumns(a *types.Actor) (sql.NullString, sql.NullString) {
	if a == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: a.ID, Valid: true}, sql.NullString{String: a.Email, Valid: true}
}

func actorPtr(id, email sql.NullString) *types.Actor {
	if !id.Valid {
		return nil
	}
	return &types.Actor{ID: id.String, Email: email.String}
}

// sqlTx wraps a SQL transaction
type sqlTx struct {
	tx      *sql.Tx
	storage *SQLStorage
}

func (t *sqlTx) Commit() error {
	return classifyError(t.tx.Commit())
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqlTx) querier() querier {
	return t.tx
}

func (t *sqlTx) CreateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.createOrderWithQuerier(ctx, t.querier(), order)
}

func (t *sqlTx) GetOrder(ctx context.Context, id string, opts ReadOptions) (*types.Order, error) {
	return t.storage.getOrderWithQuerier(ctx, t.querier(), id, opts)
}

func (t *sqlTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.updateOrderWithQuerier(ctx, t.querier(), order)
}

func (t *sqlTx) SoftDeleteOrder(ctx context.Context, id string, actor types.Actor, at time.Time) error {
	return t.storage.softDeleteOrderWithQuerier(ctx, t.querier(), id, actor, at)
}

func (t *sqlTx) ListOrders(ctx context.Context, filter ListFilter) ([]*types.Order, error) {
	return t.storage.listOrdersWithQuerier(ctx, t.querier(), filter)
}

func (t *sqlTx) CountOrders(ctx context.Context, filter ListFilter) (int, error) {
	return t.storage.countOrdersWithQuerier(ctx, t.querier(), filter)
}

func (t *sqlTx) InsertOrderItems(ctx context.Context, items []*types.OrderItem) error {
	return t.storage.insertOrderItemsWithQuerier(ctx, t.querier(), items)
}

func (t *sqlTx) ListOrderItems(ctx context.Context, orderIDs []string, includeDeleted bool) ([]*types.OrderItem, error) {
	return t.storage.listOrderItemsWithQuerier(ctx, t.querier(), orderIDs, includeDeleted)
}

func (t *sqlTx) DeleteOrderItems(ctx context.Context, ids []string) (int, error) {
	return t.storage.deleteOrderItemsWithQuerier(ctx, t.querier(), ids)
}

func (t *sqlTx) SoftDeleteOrderItems(ctx context.Context, ids []string, actor types.Actor, at time.Time) (int, error) {
	return t.storage.softDeleteOrderItemsWithQuerier(ctx, t.querier(), ids, actor, at)
}

func (t *sqlTx) InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	return t.storage.insertOutboxEventWithQuerier(ctx, t.querier(), event)
}

func (t *sqlTx) ListPendingOutbox(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	return t.storage.listPendingOutboxWithQuerier(ctx, t.querier(), limit)
}

func (t *sqlTx) MarkOutboxSent(ctx context.Context, eventID string, at time.Time) error {
	return t.storage.markOutboxSentWithQuerier(ctx, t.querier(), eventID, at)
}

func (t *sqlTx) MarkOutboxFailed(ctx context.Context, eventID string, cause string) error {
	return t.storage.markOutboxFailedWithQuerier(ctx, t.querier(), eventID, cause)
}

// Ping checks the transaction's own connection; the pool may have none to spare
func (t *sqlTx) Ping(ctx context.Context) error {
	var one int
	return t.tx.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (t *sqlTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqlTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
