package types

import "errors"

// Error kinds. Callers wrap them with fmt.Errorf("%w: ...") and classify with errors.Is.
var (
	// ErrValidation covers malformed input, total-price mismatches and business-rule violations
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced order or item does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the database rejects a write because of a concurrent transaction
	ErrConflict = errors.New("conflict")
)

// Field validation errors
var (
	ErrMissingActor       = errors.New("actor id and email are required")
	ErrMissingUserID      = errors.New("userId is required")
	ErrNoItems            = errors.New("order must contain at least one item")
	ErrMissingProductID   = errors.New("item productId is required")
	ErrMissingItemName    = errors.New("item name is required")
	ErrNegativePrice      = errors.New("item price must be >= 0")
	ErrInvalidQuantity    = errors.New("item quantity must be >= 1")
	ErrMissingFullName    = errors.New("shipping fullName is required")
	ErrInvalidPhone       = errors.New("shipping phone has an invalid format")
	ErrIncompleteAddress  = errors.New("shipping address requires specific, street and city")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidPayment     = errors.New("invalid payment method")
	ErrNegativeDiscount   = errors.New("discount must be >= 0")
	ErrDiscountTooLarge   = errors.New("discount exceeds order total")
	ErrTotalPriceRequired = errors.New("totalPrice is required")
	ErrTotalMismatch      = errors.New("total price does not match item calculations")
	ErrTotalOverflow      = errors.New("order total is too large")
	ErrOrderDelivered     = errors.New("cannot delete a delivered order")
	ErrOrderPaid          = errors.New("cannot delete a paid order")
)

// Invalid wraps a field error so it classifies as ErrValidation.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: ErrValidation, err: err}
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }
