package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/shopadmin/internal/logging"
	"github.com/dshills/shopadmin/internal/metrics"
	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

// Manager runs the order workflows. Each write opens exactly one transaction.
type Manager struct {
	store   storage.Storage
	items   *ItemMaterializer
	topic   string
	now     func() time.Time
	newID   func() string
	logger  *logging.Logger
	metrics *metrics.OrderMetrics
}

// Option configures a Manager
type Option func(*Manager)

// WithTopic sets the outbox topic for order events
func WithTopic(topic string) Option {
	return func(m *Manager) {
		if topic != "" {
			m.topic = topic
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the UUID generator used for orders, items and events
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithLogger sets the operation logger
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records operation outcomes
func WithMetrics(om *metrics.OrderMetrics) Option {
	return func(m *Manager) { m.metrics = om }
}

// NewManager creates a manager over store
func NewManager(store storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		topic:  DefaultTopic,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.items = NewItemMaterializer(m.newID)
	return m
}

// DeleteResult reports what Remove soft-deleted
type DeleteResult struct {
	OrderID      string    `json:"orderId"`
	ItemsDeleted int       `json:"itemsDeleted"`
	DeletedAt    time.Time `json:"deletedAt"`
}

func (m *Manager) observe(op, orderID string, actor types.Actor, start time.Time, err error) {
	m.metrics.Observe(op, err)
	f := logging.Fields{
		Op:         "orders." + op,
		OrderID:    orderID,
		ActorID:    actor.ID,
		Status:     "ok",
		DurationMS: logging.Since(start),
	}
	if err != nil {
		f.Status = "error"
		f.Error = err.Error()
	}
	m.logger.Log(f)
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

// Create validates the claimed total, then writes the items, the order and an
// order.created event in one transaction.
func (m *Manager) Create(ctx context.Context, in CreateInput, actor types.Actor) (order *types.Order, err error) {
	start := time.Now()
	defer func() {
		var id string
		if order != nil {
			id = order.ID
		}
		m.observe("create", id, actor, start, err)
	}()

	if err := actor.Validate(); err != nil {
		return nil, types.Invalid(err)
	}
	if len(in.Items) == 0 {
		return nil, types.Invalid(types.ErrNoItems)
	}
	gross, err := validateItems(in.Items)
	if err != nil {
		return nil, err
	}
	if err := checkTotal(gross, in.Discount, in.TotalPrice); err != nil {
		return nil, err
	}

	now := m.clock()
	draft := &types.Order{
		ID:              m.newID(),
		UserID:          in.UserID,
		ShippingAddress: in.ShippingAddress,
		Status:          in.Status,
		TotalPrice:      gross - in.Discount,
		Discount:        in.Discount,
		PaymentMethod:   in.PaymentMethod,
		IsPaid:          in.IsPaid,
		IsDelivered:     in.IsDelivered,
	}
	if draft.Status == "" {
		draft.Status = types.OrderPending
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = types.PaymentCOD
	}
	draft.PaidAt = settleFlag(in.IsPaid, in.PaidAt, nil, now)
	draft.DeliveredAt = settleFlag(in.IsDelivered, in.DeliveredAt, nil, now)
	draft.StampCreated(actor, now)
	if err := draft.Validate(); err != nil {
		return nil, types.Invalid(err)
	}

	err = storage.RunInTx(ctx, m.store, func(tx storage.Tx) error {
		items, err := m.items.Create(ctx, tx, draft.ID, in.Items, actor, now)
		if err != nil {
			return err
		}
		draft.ItemIDs = itemIDs(items)
		draft.Items = values(items)

		if err := tx.CreateOrder(ctx, draft); err != nil {
			return err
		}
		return m.recordEvent(ctx, tx, EventOrderCreated, draft, actor, now)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Update applies in to a live order. A non-empty item list replaces the
// current items wholesale; the total is always recomputed on the server.
func (m *Manager) Update(ctx context.Context, id string, in UpdateInput, actor types.Actor) (order *types.Order, err error) {
	start := time.Now()
	defer func() { m.observe("update", id, actor, start, err) }()

	if err := actor.Validate(); err != nil {
		return nil, types.Invalid(err)
	}
	replace := len(in.Items) > 0
	var newGross int64
	if replace {
		if newGross, err = validateItems(in.Items); err != nil {
			return nil, err
		}
	}

	now := m.clock()
	err = storage.RunInTx(ctx, m.store, func(tx storage.Tx) error {
		existing, err := tx.GetOrder(ctx, id, storage.ReadOptions{})
		if err != nil {
			return err
		}

		gross := existing.TotalPrice + existing.Discount
		if replace {
			gross = newGross
		}
		discount := existing.Discount
		if in.Discount != nil {
			discount = *in.Discount
		}

		if replace || in.Discount != nil || in.TotalPrice != nil {
			if err := checkTotal(gross, discount, in.TotalPrice); err != nil {
				return err
			}
		}

		applyUpdate(existing, in, now)
		existing.TotalPrice = gross - discount
		existing.Discount = discount
		existing.StampUpdated(actor, now)
		if err := existing.Validate(); err != nil {
			return types.Invalid(err)
		}

		if replace {
			items, err := m.items.Replace(ctx, tx, existing, in.Items, actor, now)
			if err != nil {
				return err
			}
			existing.ItemIDs = itemIDs(items)
			existing.Items = values(items)
		} else {
			items, err := tx.ListOrderItems(ctx, []string{existing.ID}, false)
			if err != nil {
				return err
			}
			existing.Items = values(items)
		}

		if err := tx.UpdateOrder(ctx, existing); err != nil {
			return err
		}
		if err := m.recordEvent(ctx, tx, EventOrderUpdated, existing, actor, now); err != nil {
			return err
		}
		order = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// applyUpdate copies the non-price fields of in onto order
func applyUpdate(order *types.Order, in UpdateInput, now time.Time) {
	if in.ShippingAddress != nil {
		order.ShippingAddress = *in.ShippingAddress
	}
	if in.Status != nil {
		order.Status = *in.Status
	}
	if in.PaymentMethod != nil {
		order.PaymentMethod = *in.PaymentMethod
	}
	if in.IsPaid != nil {
		order.IsPaid = *in.IsPaid
	}
	if in.IsPaid != nil || in.PaidAt != nil {
		order.PaidAt = settleFlag(order.IsPaid, in.PaidAt, order.PaidAt, now)
	}
	if in.IsDelivered != nil {
		order.IsDelivered = *in.IsDelivered
	}
	if in.IsDelivered != nil || in.DeliveredAt != nil {
		order.DeliveredAt = settleFlag(order.IsDelivered, in.DeliveredAt, order.DeliveredAt, now)
	}
}

// Remove soft-deletes an order and the items it references. Delivered or paid
// orders cannot be removed.
func (m *Manager) Remove(ctx context.Context, id string, actor types.Actor) (result *DeleteResult, err error) {
	start := time.Now()
	defer func() { m.observe("remove", id, actor, start, err) }()

	if err := actor.Validate(); err != nil {
		return nil, types.Invalid(err)
	}

	now := m.clock()
	err = storage.RunInTx(ctx, m.store, func(tx storage.Tx) error {
		order, err := tx.GetOrder(ctx, id, storage.ReadOptions{})
		if err != nil {
			return err
		}
		if err := order.Deletable(); err != nil {
			return types.Invalid(err)
		}

		n, err := tx.SoftDeleteOrderItems(ctx, order.ItemIDs, actor, now)
		if err != nil {
			return err
		}
		if err := tx.SoftDeleteOrder(ctx, id, actor, now); err != nil {
			return err
		}
		order.StampUpdated(actor, now)
		order.StampDeleted(actor, now)
		if err := m.recordEvent(ctx, tx, EventOrderDeleted, order, actor, now); err != nil {
			return err
		}
		result = &DeleteResult{OrderID: id, ItemsDeleted: n, DeletedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FindOne returns an order with its items. Soft-deleted orders are only
// returned when includeDeleted is set.
func (m *Manager) FindOne(ctx context.Context, id string, includeDeleted bool) (*types.Order, error) {
	order, err := m.store.GetOrder(ctx, id, storage.ReadOptions{IncludeDeleted: includeDeleted, WithItems: true})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool {
	return errors.Is(err, types.ErrValidation)
}

// IsNotFound reports whether err means the order does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}

// IsConflict reports whether err is a concurrent-write conflict
func IsConflict(err error) bool {
	return errors.Is(err, types.ErrConflict)
}
