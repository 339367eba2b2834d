// Package outbox publishes order events recorded by internal/orders.
//
// Events are written to the outbox table in the same transaction as the order
// change. Relay polls for unsent rows, publishes each through a Publisher and
// marks it sent. A failed publish is retried with exponential backoff; if it
// still fails the row keeps its pending state, with the attempt count and
// last error recorded, and is picked up again on the next poll.
//
// KafkaPublisher writes to Kafka keyed by order id so all events of one order
// land on the same partition. LogPublisher is used when no brokers are
// configured.
package outbox
