package types

import (
	"regexp"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCanceled   OrderStatus = "CANCELED"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCanceled:
		return true
	default:
		return false
	}
}

// PaymentMethod identifies how an order is paid
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentVNPay   PaymentMethod = "VNPAY"
	PaymentMomo    PaymentMethod = "MOMO"
	PaymentPaypal  PaymentMethod = "PAYPAL"
	PaymentZaloPay PaymentMethod = "ZALOPAY"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentVNPay, PaymentMomo, PaymentPaypal, PaymentZaloPay:
		return true
	default:
		return false
	}
}

// phonePattern matches Vietnamese mobile numbers
var phonePattern = regexp.MustCompile(`^(03[2-9]|05[2689]|07[06-9]|08[1-9]|09[0-9])\d{7}$`)

// Address is the free-form part of a shipping address
type Address struct {
	Specific string `json:"specific"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Country  string `json:"country,omitempty"`
}

// ShippingAddress identifies the recipient of an order
type ShippingAddress struct {
	FullName string  `json:"fullName"`
	Phone    string  `json:"phone"`
	Address  Address `json:"address"`
}

// Validate checks that the address is fully specified
func (s ShippingAddress) Validate() error {
	if strings.TrimSpace(s.FullName) == "" {
		return ErrMissingFullName
	}
	if !phonePattern.MatchString(s.Phone) {
		return ErrInvalidPhone
	}
	if strings.TrimSpace(s.Address.Specific) == "" ||
		strings.TrimSpace(s.Address.Street) == "" ||
		strings.TrimSpace(s.Address.City) == "" {
		return ErrIncompleteAddress
	}
	return nil
}

// OrderItem is a line item owned by exactly one order.
// Name, Price and ImageURL are snapshots taken when the order was placed.
type OrderItem struct {
	ID        string `json:"_id"`
	OrderID   string `json:"orderId"`
	Position  int    `json:"-"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl,omitempty"`

	AuditEnvelope
}

// Validate checks the line item fields
func (i *OrderItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrMissingProductID
	}
	if strings.TrimSpace(i.Name) == "" {
		return ErrMissingItemName
	}
	if i.Price < 0 {
		return ErrNegativePrice
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// Order is a customer purchase. TotalPrice is net of Discount, in integer currency units.
type Order struct {
	ID              string          `json:"_id"`
	UserID          string          `json:"userId"`
	ItemIDs         []string        `json:"itemIds"`
	Items           []OrderItem     `json:"items,omitempty"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Status          OrderStatus     `json:"status"`
	TotalPrice      int64           `json:"totalPrice"`
	Discount        int64           `json:"discount"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`

	AuditEnvelope
}

// Validate checks the order-level fields. Line items are validated separately.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return ErrMissingUserID
	}
	if err := o.ShippingAddress.Validate(); err != nil {
		return err
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	if !o.PaymentMethod.Valid() {
		return ErrInvalidPayment
	}
	if o.Discount < 0 {
		return ErrNegativeDiscount
	}
	return nil
}

// Deletable returns the business-rule error that blocks soft-deleting the order, if any
func (o *Order) Deletable() error {
	if o.Status == OrderDelivered {
		return ErrOrderDelivered
	}
	if o.IsPaid {
		return ErrOrderPaid
	}
	return nil
}
