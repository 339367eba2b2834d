package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func itemSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"productId": map[string]interface{}{"type": "string"},
			"variantId": map[string]interface{}{"type": "string"},
			"name":      map[string]interface{}{"type": "string"},
			"price":     map[string]interface{}{"type": "integer", "minimum": 0},
			"quantity":  map[string]interface{}{"type": "integer", "minimum": 1},
			"imageUrl":  map[string]interface{}{"type": "string"},
		},
		"required": []string{"productId", "name", "price", "quantity"},
	}
}

func shippingAddressSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fullName": map[string]interface{}{"type": "string"},
			"phone": map[string]interface{}{
				"type":        "string",
				"description": "Vietnamese mobile number, 10 digits",
			},
			"address": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"specific": map[string]interface{}{"type": "string"},
					"street":   map[string]interface{}{"type": "string"},
					"city":     map[string]interface{}{"type": "string"},
					"country":  map[string]interface{}{"type": "string"},
				},
				"required": []string{"specific", "street", "city"},
			},
		},
		"required": []string{"fullName", "phone", "address"},
	}
}

var (
	statusEnum  = []string{"PENDING", "PROCESSING", "SHIPPED", "DELIVERED", "CANCELED"}
	paymentEnum = []string{"COD", "VNPAY", "MOMO", "PAYPAL", "ZALOPAY"}
)

// createOrderTool returns the tool definition for create_order
func createOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_order",
		Description: "Create an order with its line items. totalPrice must equal sum(price*quantity) minus discount.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"userId": map[string]interface{}{
					"type":        "string",
					"description": "Customer the order belongs to",
				},
				"items": map[string]interface{}{
					"type":     "array",
					"items":    itemSchema(),
					"minItems": 1,
				},
				"shippingAddress": shippingAddressSchema(),
				"totalPrice": map[string]interface{}{
					"type":        "number",
					"description": "Claimed net total, checked against the items",
				},
				"discount": map[string]interface{}{
					"type":    "integer",
					"minimum": 0,
					"default": 0,
				},
				"status": map[string]interface{}{
					"type":    "string",
					"enum":    statusEnum,
					"default": "PENDING",
				},
				"paymentMethod": map[string]interface{}{
					"type":    "string",
					"enum":    paymentEnum,
					"default": "COD",
				},
				"isPaid":      map[string]interface{}{"type": "boolean", "default": false},
				"isDelivered": map[string]interface{}{"type": "boolean", "default": false},
			},
			Required: []string{"userId", "items", "shippingAddress", "totalPrice"},
		},
	}
}

// getOrderTool returns the tool definition for get_order
func getOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_order",
		Description: "Fetch one order with its items",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
				"include_deleted": map[string]interface{}{
					"type":        "boolean",
					"description": "Also return soft-deleted orders",
					"default":     false,
				},
			},
			Required: []string{"id"},
		},
	}
}

// listOrdersTool returns the tool definition for list_orders
func listOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_orders",
		Description: "List orders page by page",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"current": map[string]interface{}{
					"type":    "integer",
					"minimum": 1,
					"default": 1,
				},
				"page_size": map[string]interface{}{
					"type":    "integer",
					"minimum": 1,
					"maximum": 100,
					"default": 10,
				},
				"status":  map[string]interface{}{"type": "string", "enum": statusEnum},
				"user_id": map[string]interface{}{"type": "string"},
				"sort": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"createdAt", "-createdAt", "totalPrice", "-totalPrice"},
					"default": "-createdAt",
				},
				"include_deleted": map[string]interface{}{"type": "boolean", "default": false},
			},
		},
	}
}

// updateOrderTool returns the tool definition for update_order
func updateOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_order",
		Description: "Apply a partial update. Passing items replaces every existing line item; totalPrice is then required.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
				"changes": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"items": map[string]interface{}{
							"type":     "array",
							"items":    itemSchema(),
							"minItems": 1,
						},
						"shippingAddress": shippingAddressSchema(),
						"totalPrice":      map[string]interface{}{"type": "number"},
						"discount":        map[string]interface{}{"type": "integer", "minimum": 0},
						"status":          map[string]interface{}{"type": "string", "enum": statusEnum},
						"paymentMethod":   map[string]interface{}{"type": "string", "enum": paymentEnum},
						"isPaid":          map[string]interface{}{"type": "boolean"},
						"isDelivered":     map[string]interface{}{"type": "boolean"},
					},
				},
			},
			Required: []string{"id", "changes"},
		},
	}
}

// deleteOrderTool returns the tool definition for delete_order
func deleteOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_order",
		Description: "Soft-delete an order and its items. Paid or delivered orders are refused.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
			},
			Required: []string{"id"},
		},
	}
}
