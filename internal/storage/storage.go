package storage

import (
	"context"
	"time"

	"github.com/dshills/shopadmin/pkg/types"
)

// Storage defines the interface for persisting orders, their items and outbox events
type Storage interface {
	// Order operations
	CreateOrder(ctx context.Context, order *types.Order) error
	GetOrder(ctx context.Context, id string, opts ReadOptions) (*types.Order, error)
	UpdateOrder(ctx context.Context, order *types.Order) error
	SoftDeleteOrder(ctx context.Context, id string, actor types.Actor, at time.Time) error
	ListOrders(ctx context.Context, filter ListFilter) ([]*types.Order, error)
	CountOrders(ctx context.Context, filter ListFilter) (int, error)

	// Item operations
	InsertOrderItems(ctx context.Context, items []*types.OrderItem) error
	ListOrderItems(ctx context.Context, orderIDs []string, includeDeleted bool) ([]*types.OrderItem, error)
	DeleteOrderItems(ctx context.Context, ids []string) (deletedCount int, err error)
	SoftDeleteOrderItems(ctx context.Context, ids []string, actor types.Actor, at time.Time) (deletedCount int, err error)

	// Outbox operations
	InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error
	ListPendingOutbox(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, eventID string, at time.Time) error
	MarkOutboxFailed(ctx context.Context, eventID string, cause string) error

	// Database operations
	Ping(ctx context.Context) error
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// ReadOptions controls how a single order is loaded
type ReadOptions struct {
	// IncludeDeleted returns soft-deleted orders (and items) instead of ErrNotFound
	IncludeDeleted bool
	// WithItems populates Order.Items
	WithItems bool
}

// SortField selects the ordering of ListOrders
type SortField int

const (
	SortCreatedAtDesc SortField = iota
	SortCreatedAtAsc
	SortTotalPriceDesc
	SortTotalPriceAsc
)

func (f SortField) clause() string {
	switch f {
	case SortCreatedAtAsc:
		return "created_at ASC, id ASC"
	case SortTotalPriceDesc:
		return "total_price DESC, id DESC"
	case SortTotalPriceAsc:
		return "total_price ASC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// ListFilter narrows ListOrders and CountOrders
type ListFilter struct {
	Status         types.OrderStatus // empty matches any
	UserID         string            // empty matches any
	IncludeDeleted bool
	Sort           SortField
	Limit          int // ignored by CountOrders; 0 means no limit
	Offset         int
}

// OutboxEvent is a domain event recorded in the same transaction as the change it describes
type OutboxEvent struct {
	EventID     string
	Topic       string
	EventType   string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
	SentAt      *time.Time // Nullable
	Attempts    int
	LastError   string
}
