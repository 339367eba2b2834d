package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dshills/shopadmin/pkg/types"
)

const itemColumns = `id, order_id, seq, product_id, variant_id, name, price, quantity, image_url,
	created_by_id, created_by_email, updated_by_id, updated_by_email, deleted_by_id,
	deleted_by_email, created_at, updated_at, deleted_at`

func scanItem(row rowScanner) (*types.OrderItem, error) {
	var (
		it                   types.OrderItem
		cbID, cbEmail        sql.NullString
		ubID, ubEmail        sql.NullString
		dbID, dbEmail        sql.NullString
		createdAt, updatedAt int64
		deletedAt            sql.NullInt64
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.Position, &it.ProductID, &it.VariantID, &it.Name,
		&it.Price, &it.Quantity, &it.ImageURL, &cbID, &cbEmail, &ubID, &ubEmail, &dbID, &dbEmail,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	it.CreatedBy = actorPtr(cbID, cbEmail)
	it.UpdatedBy = actorPtr(ubID, ubEmail)
	it.DeletedBy = actorPtr(dbID, dbEmail)
	it.CreatedAt = fromNanos(createdAt)
	it.UpdatedAt = fromNanos(updatedAt)
	it.DeletedAt = timePtr(deletedAt)
	return &it, nil
}

func derefItems(items []*types.OrderItem) []types.OrderItem {
	out := make([]types.OrderItem, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out
}

// Item operations

func (s *SQLStorage) InsertOrderItems(ctx context.Context, items []*types.OrderItem) error {
	return s.insertOrderItemsWithQuerier(ctx, s.querier(), items)
}

// insertOrderItemsWithQuerier inserts items one statement at a time, stopping at the first failure
func (s *SQLStorage) insertOrderItemsWithQuerier(ctx context.Context, q querier, items []*types.OrderItem) error {
	query := s.rebind(`
		INSERT INTO order_items (id, order_id, seq, product_id, variant_id, name, price, quantity,
			image_url, created_by_id, created_by_email, updated_by_id, updated_by_email,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, it := range items {
		cbID, cbEmail := actorColumns(it.CreatedBy)
		ubID, ubEmail := actorColumns(it.UpdatedBy)
		_, err := q.ExecContext(ctx, query,
			it.ID, it.OrderID, it.Position, it.ProductID, it.VariantID, it.Name, it.Price,
			it.Quantity, it.ImageURL, cbID, cbEmail, ubID, ubEmail,
			toNanos(it.CreatedAt), toNanos(it.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", classifyError(err))
		}
	}
	return nil
}

func (s *SQLStorage) ListOrderItems(ctx context.Context, orderIDs []string, includeDeleted bool) ([]*types.OrderItem, error) {
	return s.listOrderItemsWithQuerier(ctx, s.querier(), orderIDs, includeDeleted)
}

// listOrderItemsWithQuerier loads the items of several orders in one query, grouped by order and in position order
func (s *SQLStorage) listOrderItemsWithQuerier(ctx context.Context, q querier, orderIDs []string, includeDeleted bool) ([]*types.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id IN (` + placeholders(len(orderIDs)) + `)`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY order_id, seq`

	rows, err := q.QueryContext(ctx, s.rebind(query), stringArgs(orderIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", classifyError(err))
	}
	defer rows.Close()

	var items []*types.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStorage) DeleteOrderItems(ctx context.Context, ids []string) (int, error) {
	return s.deleteOrderItemsWithQuerier(ctx, s.querier(), ids)
}

// deleteOrderItemsWithQuerier hard-deletes items in a single query
func (s *SQLStorage) deleteOrderItemsWithQuerier(ctx context.Context, q querier, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM order_items WHERE id IN (` + placeholders(len(ids)) + `)`
	result, err := q.ExecContext(ctx, s.rebind(query), stringArgs(ids)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order items: %w", classifyError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}

func (s *SQLStorage) SoftDeleteOrderItems(ctx context.Context, ids []string, actor types.Actor, at time.Time) (int, error) {
	return s.softDeleteOrderItemsWithQuerier(ctx, s.querier(), ids, actor, at)
}

// softDeleteOrderItemsWithQuerier marks live items deleted by actor; already-deleted items are left alone
func (s *SQLStorage) softDeleteOrderItemsWithQuerier(ctx context.Context, q querier, ids []string, actor types.Actor, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ts := toNanos(at)
	query := `UPDATE order_items SET deleted_by_id = ?, deleted_by_email = ?, deleted_at = ?, updated_at = ?
		WHERE deleted_at IS NULL AND id IN (` + placeholders(len(ids)) + `)`
	args := append([]interface{}{actor.ID, actor.Email, ts, ts}, stringArgs(ids)...)

	result, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order items: %w", classifyError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}
