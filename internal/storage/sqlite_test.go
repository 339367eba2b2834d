package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/shopadmin/pkg/types"
)

var testActor = types.Actor{ID: "admin-1", Email: "admin@example.com"}

func setupTestDB(t *testing.T) *SQLStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func newTestOrder(id string, at time.Time, itemIDs ...string) *types.Order {
	o := &types.Order{
		ID:      id,
		UserID:  "user-1",
		ItemIDs: itemIDs,
		ShippingAddress: types.ShippingAddress{
			FullName: "Tran Thi B",
			Phone:    "0987654321",
			Address:  types.Address{Specific: "5", Street: "Hai Ba Trung", City: "Ha Noi"},
		},
		Status:        types.OrderPending,
		TotalPrice:    230,
		Discount:      20,
		PaymentMethod: types.PaymentCOD,
	}
	o.StampCreated(testActor, at)
	return o
}

func newTestItem(id, orderID string, pos int, at time.Time) *types.OrderItem {
	it := &types.OrderItem{
		ID:        id,
		OrderID:   orderID,
		Position:  pos,
		ProductID: "prod-" + id,
		Name:      "Item " + id,
		Price:     100,
		Quantity:  2,
	}
	it.StampCreated(testActor, at)
	return it
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
	assert.Equal(t, "sqlite", storage.Dialect())
	assert.NoError(t, storage.Ping(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, storage.db, dialectSQLite))

	v, err := appliedVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db, dialectSQLite))
	v, err := appliedVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, ApplyMigrations(ctx, storage.db, dialectSQLite))
	v, err = appliedVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestRebind(t *testing.T) {
	pg := &SQLStorage{dialect: dialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2,$3)", pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?,?)"))

	lite := &SQLStorage{dialect: dialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestCreateAndGetOrder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newTestOrder("order-1", now, "item-1", "item-2")
	require.NoError(t, storage.CreateOrder(ctx, order))
	require.NoError(t, storage.InsertOrderItems(ctx, []*types.OrderItem{
		newTestItem("item-1", "order-1", 0, now),
		newTestItem("item-2", "order-1", 1, now),
	}))

	got, err := storage.GetOrder(ctx, "order-1", ReadOptions{WithItems: true})
	require.NoError(t, err)
	assert.Equal(t, order.UserID, got.UserID)
	assert.Equal(t, []string{"item-1", "item-2"}, got.ItemIDs)
	assert.Equal(t, order.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, int64(230), got.TotalPrice)
	assert.Equal(t, int64(20), got.Discount)
	assert.Equal(t, types.PaymentCOD, got.PaymentMethod)
	assert.Equal(t, testActor, *got.CreatedBy)
	assert.Nil(t, got.UpdatedBy)
	assert.True(t, got.CreatedAt.Equal(now))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "item-1", got.Items[0].ID)
	assert.Equal(t, "item-2", got.Items[1].ID)
}

func TestCreateOrder_Duplicate(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, storage.CreateOrder(ctx, newTestOrder("order-1", now)))
	err := storage.CreateOrder(ctx, newTestOrder("order-1", now))
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestGetOrder_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetOrder(context.Background(), "missing", ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestUpdateOrder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	order := newTestOrder("order-1", now)
	require.NoError(t, storage.CreateOrder(ctx, order))

	paidAt := now.Add(time.Minute)
	order.Status = types.OrderProcessing
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.StampUpdated(testActor, paidAt)
	require.NoError(t, storage.UpdateOrder(ctx, order))

	got, err := storage.GetOrder(ctx, "order-1", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.OrderProcessing, got.Status)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paidAt))
	assert.Equal(t, testActor, *got.UpdatedBy)

	missing := newTestOrder("nope", now)
	assert.ErrorIs(t, storage.UpdateOrder(ctx, missing), ErrNotFound)
}

func TestSoftDeleteOrder(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, storage.CreateOrder(ctx, newTestOrder("order-1", now)))
	require.NoError(t, storage.SoftDeleteOrder(ctx, "order-1", testActor, now))

	_, err := storage.GetOrder(ctx, "order-1", ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := storage.GetOrder(ctx, "order-1", ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())
	assert.Equal(t, testActor, *got.DeletedBy)
	assert.Equal(t, testActor, *got.UpdatedBy)

	// Deleting twice reports not found
	assert.ErrorIs(t, storage.SoftDeleteOrder(ctx, "order-1", testActor, now), ErrNotFound)
	// Updates no longer apply to deleted orders
	assert.ErrorIs(t, storage.UpdateOrder(ctx, got), ErrNotFound)
}

func TestListAndCountOrders(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"a", "b", "c", "d"} {
		o := newTestOrder(id, base.Add(time.Duration(i)*time.Second))
		o.TotalPrice = int64(100 * (4 - i))
		if id == "d" {
			o.Status = types.OrderShipped
			o.UserID = "user-2"
		}
		require.NoError(t, storage.CreateOrder(ctx, o))
	}
	require.NoError(t, storage.SoftDeleteOrder(ctx, "c", testActor, base))

	orders, err := storage.ListOrders(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "d", orders[0].ID) // newest first

	orders, err = storage.ListOrders(ctx, ListFilter{Sort: SortTotalPriceAsc, Limit: 2})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "d", orders[0].ID)
	assert.Equal(t, "b", orders[1].ID)

	orders, err = storage.ListOrders(ctx, ListFilter{Sort: SortCreatedAtAsc, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].ID)

	n, err := storage.CountOrders(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = storage.CountOrders(ctx, ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = storage.CountOrders(ctx, ListFilter{Status: types.OrderShipped})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = storage.CountOrders(ctx, ListFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOrderItems(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, storage.CreateOrder(ctx, newTestOrder("o1", now)))
	require.NoError(t, storage.CreateOrder(ctx, newTestOrder("o2", now)))
	require.NoError(t, storage.InsertOrderItems(ctx, []*types.OrderItem{
		newTestItem("i1", "o1", 0, now),
		newTestItem("i2", "o1", 1, now),
		newTestItem("i3", "o2", 0, now),
	}))

	items, err := storage.ListOrderItems(ctx, []string{"o1", "o2"}, false)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	n, err := storage.SoftDeleteOrderItems(ctx, []string{"i1"}, testActor, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, err = storage.ListOrderItems(ctx, []string{"o1"}, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i2", items[0].ID)

	items, err = storage.ListOrderItems(ctx, []string{"o1"}, true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, testActor, *items[0].DeletedBy)

	n, err = storage.DeleteOrderItems(ctx, []string{"i1", "i2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err = storage.ListOrderItems(ctx, []string{"o1"}, true)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = storage.ListOrderItems(ctx, nil, false)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestInsertOrderItems_InvalidQuantity(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, storage.CreateOrder(ctx, newTestOrder("o1", now)))
	bad := newTestItem("i1", "o1", 0, now)
	bad.Quantity = 0
	assert.Error(t, storage.InsertOrderItems(ctx, []*types.OrderItem{bad}))
}

func TestOutbox(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"e1", "e2"} {
		require.NoError(t, storage.InsertOutboxEvent(ctx, &OutboxEvent{
			EventID:     id,
			Topic:       "orders",
			EventType:   "order.created",
			AggregateID: "o1",
			Payload:     []byte(`{"orderId":"o1"}`),
			OccurredAt:  now.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	pending, err := storage.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "e1", pending[0].EventID)
	assert.JSONEq(t, `{"orderId":"o1"}`, string(pending[0].Payload))

	require.NoError(t, storage.MarkOutboxFailed(ctx, "e1", "broker down"))
	require.NoError(t, storage.MarkOutboxSent(ctx, "e2", now))

	pending, err = storage.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker down", pending[0].LastError)

	assert.ErrorIs(t, storage.MarkOutboxSent(ctx, "missing", now), ErrNotFound)
}

func TestClassifyError(t *testing.T) {
	assert.Nil(t, classifyError(nil))
	assert.ErrorIs(t, classifyError(errors.New("UNIQUE constraint failed: orders.id")), ErrAlreadyExists)
	assert.ErrorIs(t, classifyError(errors.New("database is locked (5) (SQLITE_BUSY)")), types.ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, classifyError(other))
}
