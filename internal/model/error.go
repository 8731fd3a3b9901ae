package model

import "net/http"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeEmptyOrder             = "EMPTY_ORDER"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeMealNotFound           = "MEAL_NOT_FOUND"
	ErrCodeMealUnavailable        = "MEAL_UNAVAILABLE"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeMixedRestaurants       = "MIXED_RESTAURANTS"
	ErrCodeInvalidPickupWindow    = "INVALID_PICKUP_WINDOW"
	ErrCodeMalformedCode          = "MALFORMED_CODE"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodeInvoiceNotFound        = "INVOICE_NOT_FOUND"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeAlreadyAccepted        = "ALREADY_ACCEPTED"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
	ErrCodeTerminalState          = "TERMINAL_STATE"
	ErrCodeInvalidCode            = "INVALID_CODE"
	ErrCodeCodeExpired            = "CODE_EXPIRED"
	ErrCodeCodeAlreadyUsed        = "CODE_ALREADY_USED"
	ErrCodeMaxAttemptsExceeded    = "MAX_ATTEMPTS_EXCEEDED"
	ErrCodeRateLimited            = "RATE_LIMITED"
	ErrCodeConcurrentModification = "CONCURRENT_MODIFICATION"
	ErrCodeInvalidInvoiceState    = "INVALID_INVOICE_STATE"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure that maps onto a fixed HTTP status.
type DomainError struct {
	Code    string
	Message string
	Status  int
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, status int) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common domain errors
var (
	ErrEmptyOrder        = NewDomainError(ErrCodeEmptyOrder, "Order must contain at least one item", http.StatusUnprocessableEntity)
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero", http.StatusUnprocessableEntity)
	ErrMealNotFound      = NewDomainError(ErrCodeMealNotFound, "One or more meals not found", http.StatusUnprocessableEntity)
	ErrMealUnavailable   = NewDomainError(ErrCodeMealUnavailable, "One or more meals are outside their availability window", http.StatusUnprocessableEntity)
	ErrInsufficientStock = NewDomainError(ErrCodeInsufficientStock, "One or more meals do not have enough portions left", http.StatusUnprocessableEntity)
	ErrMixedRestaurants  = NewDomainError(ErrCodeMixedRestaurants, "All items in an order must come from the same restaurant", http.StatusUnprocessableEntity)

	ErrInvalidPaymentMethod = NewDomainError(ErrCodeValidation, "Payment method must be CASH_ON_PICKUP or ONLINE", http.StatusUnprocessableEntity)
	ErrInvalidPickupTime    = NewDomainError(ErrCodeValidation, "Preferred pickup time must be in the future", http.StatusUnprocessableEntity)

	ErrInvalidPickupWindow = NewDomainError(ErrCodeInvalidPickupWindow, "Pickup window must start in the future and last between 30 minutes and 24 hours", http.StatusUnprocessableEntity)
	ErrMalformedCode       = NewDomainError(ErrCodeMalformedCode, "Code must be exactly 6 digits", http.StatusUnprocessableEntity)

	ErrOrderNotFound   = NewDomainError(ErrCodeOrderNotFound, "Order not found", http.StatusNotFound)
	ErrInvoiceNotFound = NewDomainError(ErrCodeInvoiceNotFound, "Invoice not found", http.StatusNotFound)
	ErrForbidden       = NewDomainError(ErrCodeForbidden, "You are not allowed to act on this order", http.StatusForbidden)

	ErrAlreadyAccepted   = NewDomainError(ErrCodeAlreadyAccepted, "Order has already been accepted; the pickup window cannot change", http.StatusBadRequest)
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Order is not in a state that allows this action", http.StatusBadRequest)
	ErrAlreadyPickedUp   = NewDomainError(ErrCodeTerminalState, "Order has already been picked up", http.StatusBadRequest)
	ErrOrderCancelled    = NewDomainError(ErrCodeTerminalState, "Order has been cancelled", http.StatusBadRequest)
	ErrOrderExpired      = NewDomainError(ErrCodeTerminalState, "Order expired because it was not picked up in time", http.StatusBadRequest)

	ErrInvalidCode         = NewDomainError(ErrCodeInvalidCode, "Incorrect code", http.StatusBadRequest)
	ErrCodeExpired         = NewDomainError(ErrCodeCodeExpired, "Claim code has expired, request a new one or use your pickup code", http.StatusBadRequest)
	ErrCodeAlreadyUsed     = NewDomainError(ErrCodeCodeAlreadyUsed, "Claim code has already been used", http.StatusBadRequest)
	ErrMaxAttemptsExceeded = NewDomainError(ErrCodeMaxAttemptsExceeded, "Too many incorrect attempts for this order", http.StatusBadRequest)

	ErrRateLimited            = NewDomainError(ErrCodeRateLimited, "Code was sent recently, please wait before requesting it again", http.StatusTooManyRequests)
	ErrConcurrentModification = NewDomainError(ErrCodeConcurrentModification, "Order was modified concurrently, please retry", http.StatusConflict)
	ErrInvalidInvoiceState    = NewDomainError(ErrCodeInvalidInvoiceState, "Invoice is not in a state that allows this transition", http.StatusBadRequest)
)

// TerminalStateError returns the terminal-state error matching the order status,
// so callers get an actionable message ("picked up" vs "cancelled" vs "expired").
func TerminalStateError(status OrderStatus) *DomainError {
	switch status {
	case OrderStatusCompleted:
		return ErrAlreadyPickedUp
	case OrderStatusExpired:
		return ErrOrderExpired
	default:
		return ErrOrderCancelled
	}
}
