package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/shopadmin/pkg/types"
)

const orderColumns = `id, user_id, item_ids, ship_full_name, ship_phone, ship_specific, ship_street,
	ship_city, ship_country, status, total_price, discount, payment_method, is_paid, paid_at,
	is_delivered, delivered_at, created_by_id, created_by_email, updated_by_id, updated_by_email,
	deleted_by_id, deleted_by_email, created_at, updated_at, deleted_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var (
		o                     types.Order
		itemIDs               string
		paidAt, deliveredAt   sql.NullInt64
		createdAt, updatedAt  int64
		deletedAt             sql.NullInt64
		cbID, cbEmail         sql.NullString
		ubID, ubEmail         sql.NullString
		dbID, dbEmail         sql.NullString
		status, paymentMethod string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemIDs,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Phone,
		&o.ShippingAddress.Address.Specific, &o.ShippingAddress.Address.Street,
		&o.ShippingAddress.Address.City, &o.ShippingAddress.Address.Country,
		&status, &o.TotalPrice, &o.Discount, &paymentMethod,
		&o.IsPaid, &paidAt, &o.IsDelivered, &deliveredAt,
		&cbID, &cbEmail, &ubID, &ubEmail, &dbID, &dbEmail,
		&createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(itemIDs), &o.ItemIDs); err != nil {
		return nil, fmt.Errorf("failed to decode item ids of order %s: %w", o.ID, err)
	}
	o.Status = types.OrderStatus(status)
	o.PaymentMethod = types.PaymentMethod(paymentMethod)
	o.PaidAt = timePtr(paidAt)
	o.DeliveredAt = timePtr(deliveredAt)
	o.CreatedBy = actorPtr(cbID, cbEmail)
	o.UpdatedBy = actorPtr(ubID, ubEmail)
	o.DeletedBy = actorPtr(dbID, dbEmail)
	o.CreatedAt = fromNanos(createdAt)
	o.UpdatedAt = fromNanos(updatedAt)
	o.DeletedAt = timePtr(deletedAt)
	return &o, nil
}

func encodeItemIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Order operations

func (s *SQLStorage) CreateOrder(ctx context.Context, order *types.Order) error {
	return s.createOrderWithQuerier(ctx, s.querier(), order)
}

// createOrderWithQuerier is the internal implementation that uses a querier
func (s *SQLStorage) createOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	itemIDs, err := encodeItemIDs(order.ItemIDs)
	if err != nil {
		return err
	}
	cbID, cbEmail := actorColumns(order.CreatedBy)
	ubID, ubEmail := actorColumns(order.UpdatedBy)

	query := `
		INSERT INTO orders (id, user_id, item_ids, ship_full_name, ship_phone, ship_specific,
			ship_street, ship_city, ship_country, status, total_price, discount, payment_method,
			is_paid, paid_at, is_delivered, delivered_at, created_by_id, created_by_email,
			updated_by_id, updated_by_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	a := order.ShippingAddress
	_, err = q.ExecContext(ctx, s.rebind(query),
		order.ID, order.UserID, itemIDs, a.FullName, a.Phone, a.Address.Specific,
		a.Address.Street, a.Address.City, a.Address.Country, string(order.Status),
		order.TotalPrice, order.Discount, string(order.PaymentMethod),
		order.IsPaid, nullNanos(order.PaidAt), order.IsDelivered, nullNanos(order.DeliveredAt),
		cbID, cbEmail, ubID, ubEmail, toNanos(order.CreatedAt), toNanos(order.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", classifyError(err))
	}
	return nil
}

func (s *SQLStorage) GetOrder(ctx context.Context, id string, opts ReadOptions) (*types.Order, error) {
	return s.getOrderWithQuerier(ctx, s.querier(), id, opts)
}

// getOrderWithQuerier loads one order and, when asked, its items in position order
func (s *SQLStorage) getOrderWithQuerier(ctx context.Context, q querier, id string, opts ReadOptions) (*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if !opts.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	order, err := scanOrder(q.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", classifyError(err))
	}

	if opts.WithItems {
		items, err := s.listOrderItemsWithQuerier(ctx, q, []string{order.ID}, opts.IncludeDeleted)
		if err != nil {
			return nil, err
		}
		order.Items = derefItems(items)
	}
	return order, nil
}

func (s *SQLStorage) UpdateOrder(ctx context.Context, order *types.Order) error {
	return s.updateOrderWithQuerier(ctx, s.querier(), order)
}

// updateOrderWithQuerier rewrites every mutable column of a live order. The owner and creation stamps are never changed.
func (s *SQLStorage) updateOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	itemIDs, err := encodeItemIDs(order.ItemIDs)
	if err != nil {
		return err
	}
	ubID, ubEmail := actorColumns(order.UpdatedBy)

	query := `
		UPDATE orders SET item_ids = ?, ship_full_name = ?, ship_phone = ?, ship_specific = ?,
			ship_street = ?, ship_city = ?, ship_country = ?, status = ?, total_price = ?,
			discount = ?, payment_method = ?, is_paid = ?, paid_at = ?, is_delivered = ?,
			delivered_at = ?, updated_by_id = ?, updated_by_email = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	a := order.ShippingAddress
	result, err := q.ExecContext(ctx, s.rebind(query),
		itemIDs, a.FullName, a.Phone, a.Address.Specific, a.Address.Street, a.Address.City,
		a.Address.Country, string(order.Status), order.TotalPrice, order.Discount,
		string(order.PaymentMethod), order.IsPaid, nullNanos(order.PaidAt), order.IsDelivered,
		nullNanos(order.DeliveredAt), ubID, ubEmail, toNanos(order.UpdatedAt), order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", classifyError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, order.ID)
	}
	return nil
}

func (s *SQLStorage) SoftDeleteOrder(ctx context.Context, id string, actor types.Actor, at time.Time) error {
	return s.softDeleteOrderWithQuerier(ctx, s.querier(), id, actor, at)
}

// softDeleteOrderWithQuerier stamps updatedBy and deletedBy and sets the soft-delete marker
func (s *SQLStorage) softDeleteOrderWithQuerier(ctx context.Context, q querier, id string, actor types.Actor, at time.Time) error {
	query := `
		UPDATE orders SET updated_by_id = ?, updated_by_email = ?, updated_at = ?,
			deleted_by_id = ?, deleted_by_email = ?, deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	ts := toNanos(at)
	result, err := q.ExecContext(ctx, s.rebind(query),
		actor.ID, actor.Email, ts, actor.ID, actor.Email, ts, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", classifyError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return nil
}

// whereClause builds the shared WHERE for list and count queries
func (f ListFilter) whereClause() (string, []interface{}) {
	var conds []string
	var args []interface{}
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLStorage) ListOrders(ctx context.Context, filter ListFilter) ([]*types.Order, error) {
	return s.listOrdersWithQuerier(ctx, s.querier(), filter)
}

// listOrdersWithQuerier returns one page of orders without items
func (s *SQLStorage) listOrdersWithQuerier(ctx context.Context, q querier, filter ListFilter) ([]*types.Order, error) {
	where, args := filter.whereClause()
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY ` + filter.Sort.clause()
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", classifyError(err))
	}
	defer rows.Close()

	var orders []*types.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *SQLStorage) CountOrders(ctx context.Context, filter ListFilter) (int, error) {
	return s.countOrdersWithQuerier(ctx, s.querier(), filter)
}

func (s *SQLStorage) countOrdersWithQuerier(ctx context.Context, q querier, filter ListFilter) (int, error) {
	where, args := filter.whereClause()
	var count int
	err := q.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM orders`+where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", classifyError(err))
	}
	return count, nil
}
