package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/shopadmin/internal/pricing"
	"github.com/dshills/shopadmin/pkg/types"
)

// ItemInput describes one line item as submitted by a caller
type ItemInput struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// CreateInput is the payload of Manager.Create
type CreateInput struct {
	UserID          string                `json:"userId"`
	Items           []ItemInput           `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	TotalPrice      *decimal.Decimal      `json:"totalPrice"`
	Discount        int64                 `json:"discount,omitempty"`
	Status          types.OrderStatus     `json:"status,omitempty"`
	PaymentMethod   types.PaymentMethod   `json:"paymentMethod,omitempty"`
	IsPaid          bool                  `json:"isPaid,omitempty"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered,omitempty"`
	DeliveredAt     *time.Time            `json:"deliveredAt,omitempty"`
}

// UpdateInput is the payload of Manager.Update. Nil fields are left unchanged.
// A nil or empty Items keeps the current line items.
type UpdateInput struct {
	Items           []ItemInput            `json:"items,omitempty"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
	TotalPrice      *decimal.Decimal       `json:"totalPrice,omitempty"`
	Discount        *int64                 `json:"discount,omitempty"`
	Status          *types.OrderStatus     `json:"status,omitempty"`
	PaymentMethod   *types.PaymentMethod   `json:"paymentMethod,omitempty"`
	IsPaid          *bool                  `json:"isPaid,omitempty"`
	PaidAt          *time.Time             `json:"paidAt,omitempty"`
	IsDelivered     *bool                  `json:"isDelivered,omitempty"`
	DeliveredAt     *time.Time             `json:"deliveredAt,omitempty"`
}

func (in ItemInput) toItem() types.OrderItem {
	return types.OrderItem{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Name:      in.Name,
		Price:     in.Price,
		Quantity:  in.Quantity,
		ImageURL:  in.ImageURL,
	}
}

// validateItems checks every item input and returns their gross total
func validateItems(items []ItemInput) (int64, error) {
	lines := make([]pricing.Line, len(items))
	for i, in := range items {
		it := in.toItem()
		if err := it.Validate(); err != nil {
			return 0, fmt.Errorf("items[%d]: %w", i, types.Invalid(err))
		}
		lines[i] = pricing.Line{Price: in.Price, Quantity: in.Quantity}
	}
	gross, err := pricing.ComputeTotal(lines)
	if err != nil {
		return 0, types.Invalid(err)
	}
	return gross, nil
}

// checkTotal applies the discount bounds and the claimed-total tolerance
func checkTotal(gross, discount int64, claimed *decimal.Decimal) error {
	if discount < 0 {
		return types.Invalid(types.ErrNegativeDiscount)
	}
	if discount > gross {
		return types.Invalid(types.ErrDiscountTooLarge)
	}
	if claimed == nil {
		return types.Invalid(types.ErrTotalPriceRequired)
	}
	if !pricing.ValidateTotal(gross, discount, *claimed) {
		return fmt.Errorf("%w: expected %d, got %s",
			types.Invalid(types.ErrTotalMismatch), pricing.NetTotal(gross, discount), claimed.String())
	}
	return nil
}

// settleFlag resolves a flag/timestamp pair. Setting the flag without a
// timestamp stamps it with now; clearing the flag clears the timestamp.
func settleFlag(flag bool, given, current *time.Time, now time.Time) *time.Time {
	if !flag {
		return nil
	}
	if given != nil {
		t := given.UTC()
		return &t
	}
	if current != nil {
		return current
	}
	return &now
}
