package types

import "time"

// Actor is a snapshot of the identity that performed a mutating action
type Actor struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Validate checks that the actor carries both id and email
func (a Actor) Validate() error {
	if a.ID == "" || a.Email == "" {
		return ErrMissingActor
	}
	return nil
}

// AuditEnvelope holds the actor stamps and lifecycle timestamps shared by every
// persisted aggregate. Embed it rather than redeclaring the fields per entity.
type AuditEnvelope struct {
	CreatedBy *Actor     `json:"createdBy,omitempty"`
	UpdatedBy *Actor     `json:"updatedBy,omitempty"`
	DeletedBy *Actor     `json:"deletedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// StampCreated records the creator. UpdatedAt starts equal to CreatedAt.
func (a *AuditEnvelope) StampCreated(actor Actor, at time.Time) {
	a.CreatedBy = &actor
	a.CreatedAt = at
	a.UpdatedAt = at
}

// StampUpdated records the last updater
func (a *AuditEnvelope) StampUpdated(actor Actor, at time.Time) {
	a.UpdatedBy = &actor
	a.UpdatedAt = at
}

// StampDeleted marks the record soft-deleted by actor
func (a *AuditEnvelope) StampDeleted(actor Actor, at time.Time) {
	a.DeletedBy = &actor
	a.DeletedAt = &at
}

// IsDeleted reports whether the record carries a soft-delete marker
func (a AuditEnvelope) IsDeleted() bool {
	return a.DeletedAt != nil
}
