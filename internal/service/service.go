package service

import (
	"context"
	"time"

	"lastbite/internal/model"

	"github.com/google/uuid"
)

// OrderService is the order lifecycle state machine. Every mutating
// operation checks the acting user's rights and runs inside a transaction
// guarded by a per-order row lock and an expected-status compare-and-swap.
type OrderService interface {
	// Create validates items and stock, decrements meal quantities and
	// creates the order in PENDING.
	Create(ctx context.Context, userID uuid.UUID, req *model.OrderRequest) (*model.OrderResponse, error)

	// GetByID retrieves an order visible to the caller. Returns nil when
	// not found.
	GetByID(ctx context.Context, actor model.Identity, orderID uuid.UUID) (*model.OrderResponse, error)

	// Accept transitions PENDING -> ACCEPTED, fixing the pickup window and
	// issuing the pickup code.
	Accept(ctx context.Context, actorID, orderID uuid.UUID, req *model.AcceptRequest) (*model.Order, error)

	// MarkReady transitions ACCEPTED -> READY_FOR_PICKUP.
	MarkReady(ctx context.Context, actorID, orderID uuid.UUID) (*model.Order, error)

	// Complete verifies the presented code and transitions
	// READY_FOR_PICKUP -> COMPLETED, computing the commission.
	Complete(ctx context.Context, actorID, orderID uuid.UUID, code string) (*model.Order, error)

	// CancelByCustomer cancels a PENDING or ACCEPTED order owned by the caller.
	CancelByCustomer(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*model.Order, error)

	// CancelByProvider cancels an ACCEPTED or READY_FOR_PICKUP order of the
	// caller's restaurant.
	CancelByProvider(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*model.Order, error)

	// ShowCode returns the decrypted pickup code to the owning customer.
	ShowCode(ctx context.Context, actorID, orderID uuid.UUID) (string, error)

	// ResendCode re-sends the pickup code, subject to a cooldown.
	ResendCode(ctx context.Context, actorID, orderID uuid.UUID) error

	// GenerateClaimCode issues a short-lived single-use code for handoff.
	GenerateClaimCode(ctx context.Context, actorID, orderID uuid.UUID) (*model.ClaimCodeResponse, error)

	// ProviderStats summarises order counts across the caller's restaurants.
	ProviderStats(ctx context.Context, actorID uuid.UUID) (*model.ProviderStats, error)

	// ListEvents returns the order's audit trail, oldest first.
	ListEvents(ctx context.Context, actor model.Identity, orderID uuid.UUID) ([]model.OrderEvent, error)
}

// ExpiryService force-expires stale accepted/ready orders.
type ExpiryService interface {
	// Sweep expires every order whose pickup window ended before
	// now - grace, restocking meals. Returns the number of orders expired.
	Sweep(ctx context.Context) (int, error)

	// Run sweeps on the configured interval until ctx is cancelled.
	Run(ctx context.Context)
}

// InvoiceService aggregates completed cash-on-pickup orders into weekly
// settlement invoices and manages invoice status transitions.
type InvoiceService interface {
	// GenerateWeeklyInvoices creates one draft invoice per restaurant with
	// settleable orders in the period. Re-running the same period is a no-op.
	GenerateWeeklyInvoices(ctx context.Context, periodStart, periodEnd time.Time) (*model.GenerationSummary, error)

	// GetByID retrieves an invoice. Returns nil when not found.
	GetByID(ctx context.Context, invoiceID uuid.UUID) (*model.RestaurantInvoice, error)

	// MarkSent transitions draft -> sent. Admins act on any invoice,
	// providers only on invoices of restaurants they own.
	MarkSent(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error)

	// MarkPaid transitions sent/overdue -> paid.
	MarkPaid(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error)

	// MarkOverdue transitions sent -> overdue.
	MarkOverdue(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error)

	// Void transitions any non-terminal status -> void.
	Void(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error)

	// Run generates invoices for the previous week on a weekly schedule
	// until ctx is cancelled.
	Run(ctx context.Context)
}

// Notifier dispatches pickup codes to customers. Delivery (SMS, email) is an
// external collaborator; the core only hands off.
type Notifier interface {
	SendPickupCode(ctx context.Context, order *model.Order, code string) error
}
