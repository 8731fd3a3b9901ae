package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending               OrderStatus = "PENDING"
	OrderStatusAccepted              OrderStatus = "ACCEPTED"
	OrderStatusReadyForPickup        OrderStatus = "READY_FOR_PICKUP"
	OrderStatusCompleted             OrderStatus = "COMPLETED"
	OrderStatusCancelledByCustomer   OrderStatus = "CANCELLED_BY_CUSTOMER"
	OrderStatusCancelledByRestaurant OrderStatus = "CANCELLED_BY_RESTAURANT"
	OrderStatusExpired               OrderStatus = "EXPIRED"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:               {},
	OrderStatusAccepted:              {},
	OrderStatusReadyForPickup:        {},
	OrderStatusCompleted:             {},
	OrderStatusCancelledByCustomer:   {},
	OrderStatusCancelledByRestaurant: {},
	OrderStatusExpired:               {},
}

// ToOrderStatus parses a stored status string, rejecting unknown values.
func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", NewDomainError(ErrCodeInternalError, "invalid order status: "+s, 500)
}

// IsTerminal reports whether no further transition is allowed out of the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelledByCustomer, OrderStatusCancelledByRestaurant, OrderStatusExpired:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCashOnPickup PaymentMethod = "CASH_ON_PICKUP"
	// PaymentOnline is accepted but not captured; online payment is a stub.
	PaymentOnline PaymentMethod = "ONLINE"
)

// CancelActor identifies who cancelled or expired an order.
type CancelActor string

const (
	CancelledByCustomer   CancelActor = "customer"
	CancelledByRestaurant CancelActor = "restaurant"
	CancelledBySystem     CancelActor = "system"
)

// Order represents one customer purchase attempt. Orders are never deleted;
// they are retained for audit and invoicing.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"userId" db:"user_id"`
	RestaurantID  uuid.UUID       `json:"restaurantId" db:"restaurant_id"`
	Status        OrderStatus     `json:"status" db:"status"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	TotalAmount   decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`

	CommissionRate   *decimal.Decimal `json:"commissionRate,omitempty" db:"commission_rate"`
	CommissionAmount *decimal.Decimal `json:"commissionAmount,omitempty" db:"commission_amount"`

	PickupWindowStart    *time.Time `json:"pickupWindowStart,omitempty" db:"pickup_window_start"`
	PickupWindowEnd      *time.Time `json:"pickupWindowEnd,omitempty" db:"pickup_window_end"`
	PickupCodeEncrypted  *string    `json:"-" db:"pickup_code_encrypted"`
	PickupCodeAttempts   int        `json:"-" db:"pickup_code_attempts"`
	PickupCodeLastSentAt *time.Time `json:"-" db:"pickup_code_last_sent_at"`

	ClaimCodeEncrypted *string    `json:"-" db:"claim_code_encrypted"`
	ClaimCodeExpiresAt *time.Time `json:"-" db:"claim_code_expires_at"`
	ClaimCodeUsedAt    *time.Time `json:"-" db:"claim_code_used_at"`

	CancelReason *string      `json:"cancelReason,omitempty" db:"cancel_reason"`
	CancelledBy  *CancelActor `json:"cancelledBy,omitempty" db:"cancelled_by"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty" db:"accepted_at"`
	ReadyAt     *time.Time `json:"readyAt,omitempty" db:"ready_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	ExpiredAt   *time.Time `json:"expiredAt,omitempty" db:"expired_at"`
	InvoicedAt  *time.Time `json:"-" db:"invoiced_at"`
	InvoiceID   *uuid.UUID `json:"-" db:"invoice_id"`
	// RestockedAt guards against double-restocking under concurrent
	// cancel/expire transitions.
	RestockedAt *time.Time `json:"-" db:"restocked_at"`
}

// OrderItem is a line item. Price is snapshotted at order creation and is
// immutable afterwards, independent of later meal price changes.
type OrderItem struct {
	ID        uuid.UUID       `json:"-" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	MealID    uuid.UUID       `json:"mealId" db:"meal_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
}

// OrderRequest represents the request payload for creating an order.
// PickupTime is the customer's preferred pickup time; the provider-chosen
// window set at acceptance stays authoritative.
type OrderRequest struct {
	Items         []OrderItemRequest `json:"items"`
	PaymentMethod *PaymentMethod     `json:"paymentMethod,omitempty"`
	PickupTime    *time.Time         `json:"pickupTime,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	MealID   uuid.UUID `json:"mealId"`
	Quantity int       `json:"quantity"`
}

// AcceptRequest carries the pickup window chosen by the provider.
type AcceptRequest struct {
	PickupWindowStart time.Time `json:"pickupWindowStart"`
	PickupWindowEnd   time.Time `json:"pickupWindowEnd"`
}

// CompleteRequest carries the code presented at handoff.
type CompleteRequest struct {
	Code string `json:"code"`
}

// CancelRequest carries the reason for a cancellation.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}

// CodeResponse returns a decrypted code to the owning customer.
type CodeResponse struct {
	Code string `json:"code"`
}

// ClaimCodeResponse returns a freshly generated short-lived claim code.
type ClaimCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProviderStats summarises order counts across the caller's restaurants.
type ProviderStats struct {
	Pending        int `json:"pending"`
	Accepted       int `json:"accepted"`
	Ready          int `json:"ready"`
	CompletedToday int `json:"completedToday"`
	Cancelled      int `json:"cancelled"`
}
