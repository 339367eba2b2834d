package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

// Event types written to the outbox
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// DefaultTopic is the Kafka topic order events are published to
const DefaultTopic = "shopadmin.orders"

// OrderEvent is the published payload of every order change
type OrderEvent struct {
	EventID     string              `json:"eventId"`
	Type        string              `json:"type"`
	OrderID     string              `json:"orderId"`
	UserID      string              `json:"userId"`
	Status      types.OrderStatus   `json:"status"`
	TotalPrice  int64               `json:"totalPrice"`
	Discount    int64               `json:"discount"`
	Payment     types.PaymentMethod `json:"paymentMethod"`
	IsPaid      bool                `json:"isPaid"`
	IsDelivered bool                `json:"isDelivered"`
	ItemIDs     []string            `json:"itemIds"`
	Actor       types.Actor         `json:"actor"`
	OccurredAt  time.Time           `json:"occurredAt"`
}

// recordEvent writes the event for order into the outbox through tx
func (m *Manager) recordEvent(ctx context.Context, tx storage.Tx, eventType string, order *types.Order, actor types.Actor, at time.Time) error {
	ev := OrderEvent{
		EventID:     m.newID(),
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice,
		Discount:    order.Discount,
		Payment:     order.PaymentMethod,
		IsPaid:      order.IsPaid,
		IsDelivered: order.IsDelivered,
		ItemIDs:     order.ItemIDs,
		Actor:       actor,
		OccurredAt:  at,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return tx.InsertOutboxEvent(ctx, &storage.OutboxEvent{
		EventID:     ev.EventID,
		Topic:       m.topic,
		EventType:   eventType,
		AggregateID: order.ID,
		Payload:     payload,
		OccurredAt:  at,
	})
}
