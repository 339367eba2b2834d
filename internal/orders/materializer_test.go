package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

func TestItemMaterializer_CreateAndReplace(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	m := NewItemMaterializer(sequentialIDs())
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	order := &types.Order{
		ID:              "order-1",
		UserID:          "user-1",
		ShippingAddress: sampleAddress(),
		Status:          types.OrderPending,
		PaymentMethod:   types.PaymentCOD,
	}
	order.StampCreated(admin, at)

	err := storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		items, err := m.Create(ctx, tx, order.ID, sampleCreate().Items, admin, at)
		if err != nil {
			return err
		}
		order.ItemIDs = itemIDs(items)
		return tx.CreateOrder(ctx, order)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-2"}, order.ItemIDs)

	err = storage.RunInTx(ctx, store, func(tx storage.Tx) error {
		items, err := m.Replace(ctx, tx, order, []ItemInput{{ProductID: "p", Name: "P", Price: 1, Quantity: 3}}, staff, at)
		if err != nil {
			return err
		}
		require.Len(t, items, 1)
		assert.Equal(t, "id-3", items[0].ID)
		assert.Equal(t, 0, items[0].Position)
		assert.Equal(t, staff, *items[0].CreatedBy)
		assert.Equal(t, staff, *items[0].UpdatedBy)
		return nil
	})
	require.NoError(t, err)

	items, err := store.ListOrderItems(ctx, []string{order.ID}, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "id-3", items[0].ID)
}
