// Package orders owns the order aggregate: creating, updating and removing an
// order together with its line items inside one storage transaction.
//
// Every write goes through Manager. Totals are recomputed on the server from
// the submitted items and the client's claimed total is checked against them
// with pricing.ValidateTotal. Line items are never patched: ItemMaterializer
// deletes the old set and inserts a fresh one whenever the item list changes.
//
// Each successful write also records an OrderEvent in the outbox table within
// the same transaction; internal/outbox publishes it later.
package orders
