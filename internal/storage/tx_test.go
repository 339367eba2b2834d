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

func TestRunInTx_Commit(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	err := RunInTx(ctx, storage, func(tx Tx) error {
		// Items before their order: the FK is checked at commit
		if err := tx.InsertOrderItems(ctx, []*types.OrderItem{newTestItem("i1", "o1", 0, now)}); err != nil {
			return err
		}
		return tx.CreateOrder(ctx, newTestOrder("o1", now, "i1"))
	})
	require.NoError(t, err)

	got, err := storage.GetOrder(ctx, "o1", ReadOptions{WithItems: true})
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()
	boom := errors.New("boom")

	err := RunInTx(ctx, storage, func(tx Tx) error {
		if err := tx.InsertOrderItems(ctx, []*types.OrderItem{newTestItem("i1", "o1", 0, now)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	items, err := storage.ListOrderItems(ctx, []string{"o1"}, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	assert.Panics(t, func() {
		_ = RunInTx(ctx, storage, func(tx Tx) error {
			_ = tx.CreateOrder(ctx, newTestOrder("o1", now))
			panic("boom")
		})
	})

	// The connection was released and the insert discarded
	_, err := storage.GetOrder(ctx, "o1", ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunInTx_OrphanItemsFailAtCommit(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	err := RunInTx(ctx, storage, func(tx Tx) error {
		return tx.InsertOrderItems(ctx, []*types.OrderItem{newTestItem("i1", "ghost", 0, now)})
	})
	assert.Error(t, err)

	items, err := storage.ListOrderItems(ctx, []string{"ghost"}, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTx_NestedBeginFails(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
}

func TestTx_PingUsesTxConnection(t *testing.T) {
	storage := setupTestDB(t)
	// The pool holds a single connection, which the open tx owns
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := RunInTx(ctx, storage, func(tx Tx) error {
		return tx.Ping(ctx)
	})
	require.NoError(t, err)
}
