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
)

// invoiceRepository implements InvoiceRepository using PostgreSQL.
type invoiceRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewInvoiceRepository creates a new PostgreSQL-backed invoice repository.
func NewInvoiceRepository(pool *pgxpool.Pool, logger zerolog.Logger) InvoiceRepository {
	return &invoiceRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "invoice").Logger(),
	}
}

// Create inserts a new invoice within the provided transaction.
func (r *invoiceRepository) Create(ctx context.Context, tx pgx.Tx, invoice *model.RestaurantInvoice) error {
	query := `
		INSERT INTO restaurant_invoices (
			id, restaurant_id, period_start, period_end, status,
			subtotal_sales, commission_rate, commission_total, orders_count,
			pdf_path, metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	metadata := invoice.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := tx.Exec(ctx, query,
		invoice.ID, invoice.RestaurantID, invoice.PeriodStart, invoice.PeriodEnd,
		string(invoice.Status), invoice.SubtotalSales, invoice.CommissionRate,
		invoice.CommissionTotal, invoice.OrdersCount, invoice.PDFPath, metadata,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("invoice_id", invoice.ID.String()).
			Str("restaurant_id", invoice.RestaurantID.String()).
			Msg("failed to create invoice")
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice by its ID.
func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RestaurantInvoice, error) {
	query := `
		SELECT id, restaurant_id, period_start, period_end, status,
		       subtotal_sales, commission_rate, commission_total, orders_count,
		       pdf_path, metadata, created_at, updated_at
		FROM restaurant_invoices
		WHERE id = $1
	`

	var (
		invoice model.RestaurantInvoice
		status  string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&invoice.ID, &invoice.RestaurantID, &invoice.PeriodStart, &invoice.PeriodEnd,
		&status, &invoice.SubtotalSales, &invoice.CommissionRate,
		&invoice.CommissionTotal, &invoice.OrdersCount, &invoice.PDFPath,
		&invoice.Metadata, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query invoice: %w", err)
	}

	invoice.Status = model.InvoiceStatus(status)
	return &invoice, nil
}

// UpdateStatus transitions the invoice status. The expected-status guard in
// the WHERE clause makes each transition a hard compare-and-swap.
func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []model.InvoiceStatus, to model.InvoiceStatus, at time.Time) (bool, error) {
	fromStatuses := make([]string, len(from))
	for i, s := range from {
		fromStatuses[i] = string(s)
	}

	query := `
		UPDATE restaurant_invoices
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
	`

	tag, err := r.pool.Exec(ctx, query, id, string(to), at, fromStatuses)
	if err != nil {
		return false, fmt.Errorf("failed to update invoice status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
