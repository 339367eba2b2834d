package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

var (
	admin = types.Actor{ID: "admin-1", Email: "admin@example.com"}
	staff = types.Actor{ID: "staff-7", Email: "staff@example.com"}
)

// tickingClock advances one second on every call
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// sequentialIDs yields id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func setupStore(t *testing.T) *storage.SQLStorage {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestManager(t *testing.T, store storage.Storage) *Manager {
	clock := &tickingClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewManager(store, WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName: "Le Van C",
		Phone:    "0356789012",
		Address:  types.Address{Specific: "Apt 3", Street: "Nguyen Hue", City: "Da Nang", Country: "VN"},
	}
}

// sampleCreate totals (100*2 + 50*1) - 20 = 230
func sampleCreate() CreateInput {
	return CreateInput{
		UserID: "user-1",
		Items: []ItemInput{
			{ProductID: "prod-shirt", Name: "Shirt", Price: 100, Quantity: 2, ImageURL: "https://cdn.example.com/shirt.png"},
			{ProductID: "prod-hat", VariantID: "red", Name: "Hat", Price: 50, Quantity: 1},
		},
		ShippingAddress: sampleAddress(),
		TotalPrice:      dec(230),
		Discount:        20,
	}
}

func countOrders(t *testing.T, store storage.Storage) int {
	n, err := store.CountOrders(context.Background(), storage.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	return n
}

func pendingEvents(t *testing.T, store storage.Storage) []*storage.OutboxEvent {
	events, err := store.ListPendingOutbox(context.Background(), 100)
	require.NoError(t, err)
	return events
}

var errInjected = errors.New("injected fault")

// faultStore wraps a Storage and fails selected transactional writes
type faultStore struct {
	storage.Storage
	failCreateOrder bool
	failUpdateOrder bool
	failOutbox      bool
	failSoftDelete  bool
}

func (f *faultStore) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := f.Storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &faultTx{Tx: tx, store: f}, nil
}

type faultTx struct {
	storage.Tx
	store *faultStore
}

func (t *faultTx) CreateOrder(ctx context.Context, order *types.Order) error {
	if t.store.failCreateOrder {
		return errInjected
	}
	return t.Tx.CreateOrder(ctx, order)
}

func (t *faultTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	if t.store.failUpdateOrder {
		return errInjected
	}
	return t.Tx.UpdateOrder(ctx, order)
}

func (t *faultTx) SoftDeleteOrder(ctx context.Context, id string, actor types.Actor, at time.Time) error {
	if t.store.failSoftDelete {
		return errInjected
	}
	return t.Tx.SoftDeleteOrder(ctx, id, actor, at)
}

func (t *faultTx) InsertOutboxEvent(ctx context.Context, event *storage.OutboxEvent) error {
	if t.store.failOutbox {
		return errInjected
	}
	return t.Tx.InsertOutboxEvent(ctx, event)
}
