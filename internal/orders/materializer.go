package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

// ItemMaterializer turns item inputs into persisted OrderItem records.
// It never diffs: an item set is either created or replaced wholesale.
type ItemMaterializer struct {
	newID func() string
}

// NewItemMaterializer returns a materializer that names records with newID
func NewItemMaterializer(newID func() string) *ItemMaterializer {
	return &ItemMaterializer{newID: newID}
}

func (m *ItemMaterializer) build(orderID string, inputs []ItemInput) []*types.OrderItem {
	items := make([]*types.OrderItem, len(inputs))
	for i, in := range inputs {
		it := in.toItem()
		it.ID = m.newID()
		it.OrderID = orderID
		it.Position = i
		items[i] = &it
	}
	return items
}

// Create inserts fresh items for orderID, stamped with actor as creator
func (m *ItemMaterializer) Create(ctx context.Context, tx storage.Tx, orderID string, inputs []ItemInput, actor types.Actor, at time.Time) ([]*types.OrderItem, error) {
	items := m.build(orderID, inputs)
	for _, it := range items {
		it.StampCreated(actor, at)
	}
	if err := tx.InsertOrderItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Replace deletes every item the order references and inserts a fresh set
// stamped with actor as both creator and updater. The caller must store the
// returned ids on the order in the same transaction.
func (m *ItemMaterializer) Replace(ctx context.Context, tx storage.Tx, order *types.Order, inputs []ItemInput, actor types.Actor, at time.Time) ([]*types.OrderItem, error) {
	if _, err := tx.DeleteOrderItems(ctx, order.ItemIDs); err != nil {
		return nil, fmt.Errorf("failed to remove previous items of order %s: %w", order.ID, err)
	}

	items := m.build(order.ID, inputs)
	for _, it := range items {
		it.StampCreated(actor, at)
		it.StampUpdated(actor, at)
	}
	if err := tx.InsertOrderItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func itemIDs(items []*types.OrderItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func values(items []*types.OrderItem) []types.OrderItem {
	out := make([]types.OrderItem, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out
}
