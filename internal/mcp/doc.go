// Package mcp exposes the order workflow as Model Context Protocol tools.
//
// The server speaks JSON-RPC 2.0 over stdio (mark3labs/mcp-go) and registers:
//   - create_order: create an order with its line items
//   - get_order: fetch one order, optionally including soft-deleted ones
//   - list_orders: paginated listing with status, user and sort filters
//   - update_order: partial update; items replace the existing set
//   - delete_order: soft delete an unpaid, undelivered order
//
// Tools act as a single configured service actor, which is recorded in the
// createdBy/updatedBy/deletedBy stamps of every write.
//
// Failures are returned as *MCPError:
//
//	-32602  invalid parameters or a rejected order (validation, price mismatch)
//	-32001  order not found
//	-32002  conflicting concurrent write
//	-32603  internal error
//
// Stdout belongs to the protocol, so the binary logs to stderr when serving MCP.
package mcp
