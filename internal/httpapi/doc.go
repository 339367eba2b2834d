// Package httpapi is the HTTP surface of the order service, built on gin.
//
// Routes:
//
//	POST   /orders      create (201); honours Idempotency-Key
//	GET    /orders      paginated list: current, pageSize, status, userId, sort, withDeleted
//	GET    /orders/:id  one order with items; withDeleted=true includes soft-deleted
//	PATCH  /orders/:id  update
//	DELETE /orders/:id  soft delete
//	GET    /health      storage ping, no auth
//	GET    /metrics     Prometheus, no auth
//
// Successful responses use the envelope {statusCode, message, data}; errors use
// {statusCode, message, error}. Order routes require a bearer token. Metrics
// are labelled with the matched route pattern, e.g. "GET /orders/:id".
package httpapi
