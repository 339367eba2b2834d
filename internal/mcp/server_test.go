package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/shopadmin/internal/orders"
	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

var serviceActor = types.Actor{ID: "mcp-service", Email: "mcp@shopadmin.local"}

func setupServer(t *testing.T) *Server {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := NewServer(orders.NewManager(store), serviceActor, nil)
	require.NoError(t, err)
	return s
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

func createArgs(total float64) map[string]interface{} {
	return map[string]interface{}{
		"userId": "user-1",
		"items": []interface{}{
			map[string]interface{}{"productId": "p1", "name": "Shirt", "price": 100, "quantity": 2},
			map[string]interface{}{"productId": "p2", "name": "Hat", "price": 50, "quantity": 1},
		},
		"shippingAddress": map[string]interface{}{
			"fullName": "Le Van C",
			"phone":    "0912345678",
			"address":  map[string]interface{}{"specific": "12", "street": "Le Loi", "city": "Hue"},
		},
		"totalPrice": total,
		"discount":   20,
	}
}

func createOrder(t *testing.T, s *Server) types.Order {
	t.Helper()
	result, err := s.handleCreateOrder(context.Background(), call(createArgs(230)))
	require.NoError(t, err)
	var order types.Order
	decodeResult(t, result, &order)
	return order
}

func TestNewServer(t *testing.T) {
	s := setupServer(t)
	assert.NotNil(t, s.mcp)

	_, err := NewServer(nil, serviceActor, nil)
	assert.Error(t, err)

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()
	_, err = NewServer(orders.NewManager(store), types.Actor{}, nil)
	assert.Error(t, err)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := setupServer(t)
	stdin, stdinW := io.Pipe()
	t.Cleanup(func() { _ = stdinW.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, stdin, io.Discard) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_ReturnsOnEOF(t *testing.T) {
	s := setupServer(t)
	err := s.serve(context.Background(), strings.NewReader(""), io.Discard)
	assert.NoError(t, err)
}

func TestCreateOrderTool(t *testing.T) {
	s := setupServer(t)

	order := createOrder(t, s)
	assert.Equal(t, int64(230), order.TotalPrice)
	assert.Len(t, order.ItemIDs, 2)
	require.NotNil(t, order.CreatedBy)
	assert.Equal(t, serviceActor.ID, order.CreatedBy.ID)

	_, err := s.handleCreateOrder(context.Background(), call(createArgs(200)))
	requireCode(t, err, ErrorCodeInvalidParams)

	bad := createArgs(230)
	bad["items"] = "not-a-list"
	_, err = s.handleCreateOrder(context.Background(), call(bad))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestGetOrderTool(t *testing.T) {
	s := setupServer(t)
	created := createOrder(t, s)

	result, err := s.handleGetOrder(context.Background(), call(map[string]interface{}{"id": created.ID}))
	require.NoError(t, err)
	var order types.Order
	decodeResult(t, result, &order)
	assert.Equal(t, created.ID, order.ID)
	assert.Len(t, order.Items, 2)

	_, err = s.handleGetOrder(context.Background(), call(map[string]interface{}{"id": "missing"}))
	requireCode(t, err, ErrorCodeNotFound)

	_, err = s.handleGetOrder(context.Background(), call(map[string]interface{}{}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestListOrdersTool(t *testing.T) {
	s := setupServer(t)
	createOrder(t, s)
	createOrder(t, s)

	// Numbers arrive as float64 or strings depending on the client
	result, err := s.handleListOrders(context.Background(), call(map[string]interface{}{
		"current":   float64(1),
		"page_size": "1",
	}))
	require.NoError(t, err)
	var page orders.Page
	decodeResult(t, result, &page)
	assert.Equal(t, 2, page.Meta.Total)
	assert.Equal(t, 2, page.Meta.Pages)
	assert.Len(t, page.Result, 1)

	_, err = s.handleListOrders(context.Background(), call(map[string]interface{}{"page_size": "many"}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestUpdateOrderTool(t *testing.T) {
	s := setupServer(t)
	created := createOrder(t, s)

	result, err := s.handleUpdateOrder(context.Background(), call(map[string]interface{}{
		"id": created.ID,
		"changes": map[string]interface{}{
			"items":      []interface{}{map[string]interface{}{"productId": "p9", "name": "Bag", "price": 300, "quantity": 1}},
			"totalPrice": 280,
		},
	}))
	require.NoError(t, err)
	var order types.Order
	decodeResult(t, result, &order)
	assert.Equal(t, int64(280), order.TotalPrice)
	assert.Len(t, order.ItemIDs, 1)
	require.NotNil(t, order.UpdatedBy)
	assert.Equal(t, serviceActor.ID, order.UpdatedBy.ID)

	_, err = s.handleUpdateOrder(context.Background(), call(map[string]interface{}{"id": created.ID}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestDeleteOrderTool(t *testing.T) {
	s := setupServer(t)
	created := createOrder(t, s)

	result, err := s.handleDeleteOrder(context.Background(), call(map[string]interface{}{"id": created.ID}))
	require.NoError(t, err)
	var res orders.DeleteResult
	decodeResult(t, result, &res)
	assert.Equal(t, created.ID, res.OrderID)
	assert.Equal(t, 2, res.ItemsDeleted)

	_, err = s.handleDeleteOrder(context.Background(), call(map[string]interface{}{"id": created.ID}))
	requireCode(t, err, ErrorCodeNotFound)

	result, err = s.handleGetOrder(context.Background(), call(map[string]interface{}{"id": created.ID, "include_deleted": "true"}))
	require.NoError(t, err)
	var order types.Order
	decodeResult(t, result, &order)
	assert.NotNil(t, order.DeletedAt)
}

func TestDeleteOrderTool_PaidRejected(t *testing.T) {
	s := setupServer(t)
	created := createOrder(t, s)

	_, err := s.handleUpdateOrder(context.Background(), call(map[string]interface{}{
		"id":      created.ID,
		"changes": map[string]interface{}{"isPaid": true},
	}))
	require.NoError(t, err)

	_, err = s.handleDeleteOrder(context.Background(), call(map[string]interface{}{"id": created.ID}))
	requireCode(t, err, ErrorCodeInvalidParams)
}
