// Package storage provides SQL persistence for orders, order items and the
// transactional outbox.
//
// SQLStorage runs the same queries against SQLite (modernc.org/sqlite by
// default, mattn/go-sqlite3 with the cgo_sqlite build tag) and PostgreSQL
// (pgx through database/sql). Placeholders are written as ? and rebound to $n
// for PostgreSQL.
//
// # Database Schema
//
// Tables:
//   - orders: order aggregate, shipping address columns and audit stamps
//   - order_items: line items owned by one order (order_id is a deferred FK)
//   - outbox: domain events awaiting publication
//   - schema_version: applied migrations (semver)
//
// Timestamps are stored as UTC unix nanoseconds. Soft-deleted rows carry a
// non-null deleted_at and are excluded from reads unless asked for.
//
// # Transactions
//
// Every write of one business operation goes through a single Tx. RunInTx
// owns the commit/rollback decision:
//
//	err := storage.RunInTx(ctx, db, func(tx storage.Tx) error {
//	    if err := tx.InsertOrderItems(ctx, items); err != nil {
//	        return err
//	    }
//	    return tx.CreateOrder(ctx, order)
//	})
//
// SQLite is opened with a single connection, so a statement issued on the
// Storage while a Tx is open blocks until the Tx finishes.
//
// # Errors
//
// Missing rows return ErrNotFound (the same value as types.ErrNotFound).
// Unique violations return ErrAlreadyExists, and serialization failures or
// lock timeouts return types.ErrConflict.
package storage
