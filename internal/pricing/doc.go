// Package pricing computes order totals from line items and checks
// client-claimed totals against them. It performs no I/O.
package pricing
