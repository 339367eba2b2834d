package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/dshills/shopadmin/internal/orders"
	"github.com/dshills/shopadmin/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Order does not exist or is deleted
	ErrorCodeConflict      = -32002 // Concurrent write or duplicate id
)

func (s *Server) handleCreateOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	var in orders.CreateInput
	if err := remarshal(args, &in); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid order", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	order, err := s.orders.Create(ctx, in, s.actor)
	if err != nil {
		return nil, operationError("create order failed", err)
	}
	return jsonResult(order)
}

func (s *Server) handleGetOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, err := requireID(args)
	if err != nil {
		return nil, err
	}
	includeDeleted, err := boolArg(args, "include_deleted")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindOne(ctx, id, includeDeleted)
	if err != nil {
		return nil, operationError("get order failed", err)
	}
	return jsonResult(order)
}

func (s *Server) handleListOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		// list_orders has no required arguments
		args = map[string]interface{}{}
	}

	var q orders.ListQuery
	var err error
	if q.Current, err = intArg(args, "current"); err != nil {
		return nil, err
	}
	if q.PageSize, err = intArg(args, "page_size"); err != nil {
		return nil, err
	}
	if q.IncludeDeleted, err = boolArg(args, "include_deleted"); err != nil {
		return nil, err
	}
	q.Status = types.OrderStatus(cast.ToString(args["status"]))
	q.UserID = cast.ToString(args["user_id"])
	q.Sort = cast.ToString(args["sort"])

	page, err := s.orders.FindAll(ctx, q)
	if err != nil {
		return nil, operationError("list orders failed", err)
	}
	return jsonResult(page)
}

func (s *Server) handleUpdateOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, err := requireID(args)
	if err != nil {
		return nil, err
	}
	changes, ok := args["changes"].(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "changes parameter is required", map[string]interface{}{
			"param":  "changes",
			"reason": "missing or not an object",
		})
	}

	var in orders.UpdateInput
	if err := remarshal(changes, &in); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid changes", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	order, err := s.orders.Update(ctx, id, in, s.actor)
	if err != nil {
		return nil, operationError("update order failed", err)
	}
	return jsonResult(order)
}

func (s *Server) handleDeleteOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, err := requireID(args)
	if err != nil {
		return nil, err
	}

	result, err := s.orders.Remove(ctx, id, s.actor)
	if err != nil {
		return nil, operationError("delete order failed", err)
	}
	return jsonResult(result)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// operationError maps an order operation failure onto an MCP error code
func operationError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case orders.IsValidation(err):
		code = ErrorCodeInvalidParams
	case orders.IsNotFound(err):
		code = ErrorCodeNotFound
	case orders.IsConflict(err):
		code = ErrorCodeConflict
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func requireID(args map[string]interface{}) (string, error) {
	id, err := cast.ToStringE(args["id"])
	if err != nil || id == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}
	return id, nil
}

// intArg returns 0 when key is absent so the manager's defaults apply
func intArg(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, newMCPError(ErrorCodeInvalidParams, key+" must be an integer", map[string]interface{}{
			"param": key,
			"value": v,
		})
	}
	return n, nil
}

func boolArg(args map[string]interface{}, key string) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return false, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, newMCPError(ErrorCodeInvalidParams, key+" must be a boolean", map[string]interface{}{
			"param": key,
			"value": v,
		})
	}
	return b, nil
}

// remarshal decodes loosely typed tool arguments into a typed input
func remarshal(args map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// jsonResult formats a value as indented JSON text
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode result", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(string(bytes)), nil
}
