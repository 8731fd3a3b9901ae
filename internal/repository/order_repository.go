package repository

import (
	"context"
	"fmt"
	"time"

	"lastbite/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const orderColumns = `
	id, user_id, restaurant_id, status, payment_method, total_amount, notes,
	commission_rate, commission_amount,
	pickup_window_start, pickup_window_end, pickup_code_encrypted,
	pickup_code_attempts, pickup_code_last_sent_at,
	claim_code_encrypted, claim_code_expires_at, claim_code_used_at,
	cancel_reason, cancelled_by,
	created_at, accepted_at, ready_at, completed_at, cancelled_at, expired_at,
	invoiced_at, invoice_id, restocked_at
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, restaurant_id, status, payment_method, total_amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.UserID, order.RestaurantID, string(order.Status),
		string(order.PaymentMethod), order.TotalAmount, order.Notes, order.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, meal_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.MealID, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("meal_id", items[i].MealID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves an order holding a row lock until the transaction ends.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.scanOrder(tx.QueryRow(ctx, query, id))
}

func (r *orderRepository) scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order       model.Order
		status      string
		payment     string
		cancelledBy *string
	)

	err := row.Scan(
		&order.ID, &order.UserID, &order.RestaurantID, &status, &payment,
		&order.TotalAmount, &order.Notes,
		&order.CommissionRate, &order.CommissionAmount,
		&order.PickupWindowStart, &order.PickupWindowEnd, &order.PickupCodeEncrypted,
		&order.PickupCodeAttempts, &order.PickupCodeLastSentAt,
		&order.ClaimCodeEncrypted, &order.ClaimCodeExpiresAt, &order.ClaimCodeUsedAt,
		&order.CancelReason, &cancelledBy,
		&order.CreatedAt, &order.AcceptedAt, &order.ReadyAt, &order.CompletedAt,
		&order.CancelledAt, &order.ExpiredAt,
		&order.InvoicedAt, &order.InvoiceID, &order.RestockedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orderStatus, err := model.ToOrderStatus(status)
	if err != nil {
		return nil, err
	}
	order.Status = orderStatus
	order.PaymentMethod = model.PaymentMethod(payment)
	if cancelledBy != nil {
		actor := model.CancelActor(*cancelledBy)
		order.CancelledBy = &actor
	}

	return &order, nil
}

// GetItems retrieves the order's line items.
func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, meal_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MealID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// AcceptOrder transitions PENDING -> ACCEPTED. The status guard in the WHERE
// clause is the compare-and-swap: zero rows affected means another transition
// won the race.
func (r *orderRepository) AcceptOrder(ctx context.Context, tx pgx.Tx, p AcceptParams) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2,
		    pickup_window_start = $3,
		    pickup_window_end = $4,
		    pickup_code_encrypted = $5,
		    commission_rate = $6,
		    accepted_at = $7,
		    pickup_code_last_sent_at = $7
		WHERE id = $1 AND status = $8
	`

	tag, err := tx.Exec(ctx, query,
		p.OrderID, string(model.OrderStatusAccepted),
		p.WindowStart, p.WindowEnd, p.CodeEncrypted, p.CommissionRate, p.AcceptedAt,
		string(model.OrderStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to accept order: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkReady transitions ACCEPTED -> READY_FOR_PICKUP.
func (r *orderRepository) MarkReady(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, ready_at = $3
		WHERE id = $1 AND status = $4
	`

	tag, err := tx.Exec(ctx, query, id,
		string(model.OrderStatusReadyForPickup), at, string(model.OrderStatusAccepted))
	if err != nil {
		return false, fmt.Errorf("failed to mark order ready: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CompleteOrder transitions READY_FOR_PICKUP -> COMPLETED.
func (r *orderRepository) CompleteOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID, commissionAmount decimal.Decimal, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, commission_amount = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`

	tag, err := tx.Exec(ctx, query, id,
		string(model.OrderStatusCompleted), commissionAmount, at,
		string(model.OrderStatusReadyForPickup))
	if err != nil {
		return false, fmt.Errorf("failed to complete order: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CancelOrder transitions to a cancellation state.
func (r *orderRepository) CancelOrder(ctx context.Context, tx pgx.Tx, p CancelParams) (bool, error) {
	from := make([]string, len(p.FromStatuses))
	for i, s := range p.FromStatuses {
		from[i] = string(s)
	}

	query := `
		UPDATE orders
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancel_reason = $5
		WHERE id = $1 AND status = ANY($6)
	`

	tag, err := tx.Exec(ctx, query,
		p.OrderID, string(p.ToStatus), p.At, string(p.CancelledBy), p.Reason, from)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ExpireOrder force-transitions a stale order to EXPIRED.
func (r *orderRepository) ExpireOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, expired_at = $3, cancelled_by = $4, cancel_reason = $5
		WHERE id = $1 AND status = ANY($6)
	`

	tag, err := tx.Exec(ctx, query,
		id, string(model.OrderStatusExpired), at, string(model.CancelledBySystem), reason,
		[]string{string(model.OrderStatusAccepted), string(model.OrderStatusReadyForPickup)})
	if err != nil {
		return false, fmt.Errorf("failed to expire order: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkRestocked records that the order's meal quantities went back to stock.
func (r *orderRepository) MarkRestocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE orders SET restocked_at = $2 WHERE id = $1 AND restocked_at IS NULL`

	if _, err := tx.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark order restocked: %w", err)
	}
	return nil
}

// IncrementCodeAttempts bumps the failed-verification counter.
func (r *orderRepository) IncrementCodeAttempts(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	query := `
		UPDATE orders
		SET pickup_code_attempts = pickup_code_attempts + 1
		WHERE id = $1
		RETURNING pickup_code_attempts
	`

	var attempts int
	if err := tx.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to increment code attempts: %w", err)
	}
	return attempts, nil
}

// SetCodeResent stamps pickup_code_last_sent_at.
func (r *orderRepository) SetCodeResent(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE orders SET pickup_code_last_sent_at = $2 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to stamp code resend: %w", err)
	}
	return nil
}

// SetClaimCode stores a freshly generated claim code.
func (r *orderRepository) SetClaimCode(ctx context.Context, tx pgx.Tx, id uuid.UUID, encrypted string, expiresAt time.Time) error {
	query := `
		UPDATE orders
		SET claim_code_encrypted = $2, claim_code_expires_at = $3, claim_code_used_at = NULL
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, encrypted, expiresAt); err != nil {
		return fmt.Errorf("failed to store claim code: %w", err)
	}
	return nil
}

// SetClaimCodeUsed stamps the claim code as consumed.
func (r *orderRepository) SetClaimCodeUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE orders SET claim_code_used_at = $2 WHERE id = $1 AND claim_code_used_at IS NULL`

	if _, err := tx.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to stamp claim code used: %w", err)
	}
	return nil
}

// ExpiryCandidates lists stale accepted/ready orders past the cutoff.
func (r *orderRepository) ExpiryCandidates(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM orders
		WHERE status = ANY($1) AND pickup_window_end < $2
		ORDER BY pickup_window_end
	`

	rows, err := r.pool.Query(ctx, query,
		[]string{string(model.OrderStatusAccepted), string(model.OrderStatusReadyForPickup)}, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiry candidates: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expiry candidate: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expiry candidates: %w", err)
	}

	return ids, nil
}

// ProviderStats counts orders per status across the given restaurants.
func (r *orderRepository) ProviderStats(ctx context.Context, restaurantIDs []uuid.UUID, dayStart time.Time) (*model.ProviderStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'ACCEPTED'),
			COUNT(*) FILTER (WHERE status = 'READY_FOR_PICKUP'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED' AND completed_at >= $2),
			COUNT(*) FILTER (WHERE status IN ('CANCELLED_BY_CUSTOMER', 'CANCELLED_BY_RESTAURANT'))
		FROM orders
		WHERE restaurant_id = ANY($1)
	`

	var stats model.ProviderStats
	err := r.pool.QueryRow(ctx, query, restaurantIDs, dayStart).Scan(
		&stats.Pending, &stats.Accepted, &stats.Ready, &stats.CompletedToday, &stats.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider stats: %w", err)
	}

	return &stats, nil
}

// SettleableOrders lists and row-locks the restaurant's completed
// cash-on-pickup orders not yet invoiced within the period.
func (r *orderRepository) SettleableOrders(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, periodStart, periodEnd time.Time) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE restaurant_id = $1
		  AND status = $2
		  AND payment_method = $3
		  AND invoiced_at IS NULL
		  AND completed_at >= $4 AND completed_at <= $5
		ORDER BY completed_at
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, restaurantID,
		string(model.OrderStatusCompleted), string(model.PaymentCashOnPickup),
		periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query settleable orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settleable orders: %w", err)
	}

	return orders, nil
}

// RestaurantsToInvoice lists restaurants with at least one settleable order
// in the period.
func (r *orderRepository) RestaurantsToInvoice(ctx context.Context, periodStart, periodEnd time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT restaurant_id
		FROM orders
		WHERE status = $1
		  AND payment_method = $2
		  AND invoiced_at IS NULL
		  AND completed_at >= $3 AND completed_at <= $4
		ORDER BY restaurant_id
	`

	rows, err := r.pool.Query(ctx, query,
		string(model.OrderStatusCompleted), string(model.PaymentCashOnPickup),
		periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants to invoice: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restaurants to invoice: %w", err)
	}

	return ids, nil
}

// StampInvoiced attaches the orders to an invoice. The invoiced_at IS NULL
// guard enforces that an order joins at most one invoice.
func (r *orderRepository) StampInvoiced(ctx context.Context, tx pgx.Tx, orderIDs []uuid.UUID, invoiceID uuid.UUID, at time.Time) error {
	query := `
		UPDATE orders
		SET invoiced_at = $2, invoice_id = $3
		WHERE id = ANY($1) AND invoiced_at IS NULL
	`

	tag, err := tx.Exec(ctx, query, orderIDs, at, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to stamp invoiced orders: %w", err)
	}

	if tag.RowsAffected() != int64(len(orderIDs)) {
		return fmt.Errorf("stamped %d of %d orders, one was invoiced concurrently", tag.RowsAffected(), len(orderIDs))
	}

	return nil
}
