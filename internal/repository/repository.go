package repository

import (
	"context"
	"time"

	"lastbite/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AcceptParams carries everything stamped onto an order when a provider
// accepts it. The pickup window and commission rate never change afterwards.
type AcceptParams struct {
	OrderID        uuid.UUID
	WindowStart    time.Time
	WindowEnd      time.Time
	CodeEncrypted  string
	CommissionRate decimal.Decimal
	AcceptedAt     time.Time
}

// CancelParams carries a cancellation by a customer or a restaurant.
type CancelParams struct {
	OrderID      uuid.UUID
	FromStatuses []model.OrderStatus
	ToStatus     model.OrderStatus
	CancelledBy  model.CancelActor
	Reason       string
	At           time.Time
}

// OrderRepository defines the interface for order data access operations.
// All conditional updates return false when the expected-status guard did not
// match, which callers surface as a concurrent modification.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order's line items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate retrieves an order with a row lock held for the
	// duration of the transaction. Returns nil when not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// GetItems retrieves the order's line items.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// AcceptOrder transitions PENDING -> ACCEPTED, stamping the pickup window,
	// encrypted code, commission rate and accepted_at.
	AcceptOrder(ctx context.Context, tx pgx.Tx, p AcceptParams) (bool, error)

	// MarkReady transitions ACCEPTED -> READY_FOR_PICKUP.
	MarkReady(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error)

	// CompleteOrder transitions READY_FOR_PICKUP -> COMPLETED, stamping the
	// commission amount and completed_at.
	CompleteOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID, commissionAmount decimal.Decimal, at time.Time) (bool, error)

	// CancelOrder transitions to a cancellation state, stamping cancelled_at,
	// cancelled_by and the reason.
	CancelOrder(ctx context.Context, tx pgx.Tx, p CancelParams) (bool, error)

	// ExpireOrder transitions ACCEPTED/READY_FOR_PICKUP -> EXPIRED, stamping
	// expired_at and the fixed system cancellation fields.
	ExpireOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error)

	// MarkRestocked records that the order's meal quantities have been
	// returned to stock, guarding against a second restock.
	MarkRestocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error

	// IncrementCodeAttempts bumps the failed-verification counter and returns
	// the new value.
	IncrementCodeAttempts(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)

	// SetCodeResent stamps pickup_code_last_sent_at.
	SetCodeResent(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error

	// SetClaimCode stores a freshly generated claim code, replacing any
	// previous one.
	SetClaimCode(ctx context.Context, tx pgx.Tx, id uuid.UUID, encrypted string, expiresAt time.Time) error

	// SetClaimCodeUsed stamps the single-use claim code as consumed.
	SetClaimCodeUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error

	// ExpiryCandidates lists orders in ACCEPTED or READY_FOR_PICKUP whose
	// pickup window ended before the cutoff.
	ExpiryCandidates(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// ProviderStats counts orders per status across the given restaurants.
	ProviderStats(ctx context.Context, restaurantIDs []uuid.UUID, dayStart time.Time) (*model.ProviderStats, error)

	// SettleableOrders lists and row-locks the restaurant's completed
	// cash-on-pickup orders not yet attached to an invoice, completed within
	// the period.
	SettleableOrders(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, periodStart, periodEnd time.Time) ([]model.Order, error)

	// RestaurantsToInvoice lists restaurants with at least one settleable
	// order in the period.
	RestaurantsToInvoice(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error)

	// StampInvoiced atomically attaches the orders to an invoice.
	StampInvoiced(ctx context.Context, tx pgx.Tx, orderIDs []uuid.UUID, invoiceID uuid.UUID, at time.Time) error
}

// EventRepository defines the append-only order audit log.
type EventRepository interface {
	// Append inserts an event within the provided transaction.
	Append(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error

	// ListByOrder retrieves all events of an order, oldest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderEvent, error)
}

// InvoiceRepository defines the interface for settlement invoices.
type InvoiceRepository interface {
	// Create inserts a new invoice within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, invoice *model.RestaurantInvoice) error

	// GetByID retrieves an invoice by its ID. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.RestaurantInvoice, error)

	// UpdateStatus transitions the invoice status only when the current
	// status is one of the expected ones.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []model.InvoiceStatus, to model.InvoiceStatus, at time.Time) (bool, error)
}

// MealRepository is the order core's capability over the externally managed
// meal catalog: read availability and price, mutate stock, resolve the
// meal -> restaurant -> owner chain for authorization.
type MealRepository interface {
	// GetByIDs retrieves meals by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Meal, error)

	// DecrementStock atomically subtracts qty portions, failing when fewer
	// are left.
	DecrementStock(ctx context.Context, tx pgx.Tx, mealID uuid.UUID, qty int) (bool, error)

	// RestockStock returns qty portions to the meal.
	RestockStock(ctx context.Context, tx pgx.Tx, mealID uuid.UUID, qty int) error

	// GetRestaurant retrieves a restaurant by its ID. Returns nil when not found.
	GetRestaurant(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)

	// RestaurantIDsByOwner lists the restaurants owned by a user.
	RestaurantIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}
