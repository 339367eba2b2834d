// Package types provides the shared domain types of the shopadmin order service.
//
// Order is the aggregate root; it owns its OrderItem records exclusively and
// references them by id in ItemIDs. Both embed AuditEnvelope, which carries
// the created/updated/deleted actor stamps and the soft-delete marker.
//
// # Error kinds
//
// ErrValidation, ErrNotFound and ErrConflict classify every error the core
// returns. Field errors such as ErrTotalMismatch are wrapped with Invalid so
// they match both the specific error and ErrValidation:
//
//	err := types.Invalid(types.ErrTotalMismatch)
//	errors.Is(err, types.ErrValidation)    // true
//	errors.Is(err, types.ErrTotalMismatch) // true
package types
