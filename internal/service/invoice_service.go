package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lastbite/internal/commission"
	"lastbite/internal/config"
	"lastbite/internal/model"
	"lastbite/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// invoiceService aggregates completed cash-on-pickup orders into weekly
// settlement invoices.
type invoiceService struct {
	orderRepo   repository.OrderRepository
	invoiceRepo repository.InvoiceRepository
	mealRepo    repository.MealRepository
	cfg         config.SettlementConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewInvoiceService creates a new invoice service.
func NewInvoiceService(
	orderRepo repository.OrderRepository,
	invoiceRepo repository.InvoiceRepository,
	mealRepo repository.MealRepository,
	cfg config.SettlementConfig,
	logger zerolog.Logger,
) InvoiceService {
	return &invoiceService{
		orderRepo:   orderRepo,
		invoiceRepo: invoiceRepo,
		mealRepo:    mealRepo,
		cfg:         cfg,
		logger:      logger.With().Str("service", "invoice").Logger(),
		now:         time.Now,
	}
}

// GenerateWeeklyInvoices creates one draft invoice per restaurant that has
// settleable orders in the period. Each restaurant gets its own transaction,
// and orders already stamped with an invoice are never picked up again, so
// re-running the same period creates nothing new.
func (s *invoiceService) GenerateWeeklyInvoices(ctx context.Context, periodStart, periodEnd time.Time) (*model.GenerationSummary, error) {
	if !periodEnd.After(periodStart) {
		return nil, model.NewDomainError(model.ErrCodeValidation, "Period end must be after period start", http.StatusUnprocessableEntity)
	}

	restaurantIDs, err := s.orderRepo.RestaurantsToInvoice(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants to invoice: %w", err)
	}

	summary := &model.GenerationSummary{Errors: []string{}}
	for _, restaurantID := range restaurantIDs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		count, genErr := s.generateForRestaurant(ctx, restaurantID, periodStart, periodEnd)
		if genErr != nil {
			s.logger.Error().Err(genErr).
				Str("restaurant_id", restaurantID.String()).
				Msg("failed to generate invoice")
			summary.Errors = append(summary.Errors, fmt.Sprintf("restaurant %s: %v", restaurantID, genErr))
			continue
		}
		if count > 0 {
			summary.InvoicesCreated++
			summary.OrdersProcessed += count
		}
	}

	s.logger.Info().
		Int("invoices_created", summary.InvoicesCreated).
		Int("orders_processed", summary.OrdersProcessed).
		Int("failures", len(summary.Errors)).
		Time("period_start", periodStart).
		Time("period_end", periodEnd).
		Msg("invoice generation finished")

	return summary, nil
}

func (s *invoiceService) generateForRestaurant(ctx context.Context, restaurantID uuid.UUID, periodStart, periodEnd time.Time) (int, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	orders, err := s.orderRepo.SettleableOrders(ctx, tx, restaurantID, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}
	if len(orders) == 0 {
		err = tx.Rollback(ctx)
		return 0, err
	}

	subtotal := decimal.Zero
	commissionTotal := decimal.Zero
	for _, order := range orders {
		subtotal = subtotal.Add(order.TotalAmount)
		switch {
		case order.CommissionAmount != nil:
			commissionTotal = commissionTotal.Add(*order.CommissionAmount)
		case order.CommissionRate != nil:
			commissionTotal = commissionTotal.Add(commission.Calculate(order.TotalAmount, *order.CommissionRate))
		}
	}

	// Rates can differ between orders when the restaurant's rate changed
	// mid-period, so the invoice carries the effective rate over the period.
	effectiveRate := s.cfg.DefaultCommissionRate
	if subtotal.IsPositive() {
		effectiveRate = commissionTotal.Mul(decimal.NewFromInt(100)).Div(subtotal).Round(2)
	}

	now := s.now()
	invoice := &model.RestaurantInvoice{
		ID:              uuid.New(),
		RestaurantID:    restaurantID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		Status:          model.InvoiceStatusDraft,
		SubtotalSales:   subtotal,
		CommissionRate:  effectiveRate,
		CommissionTotal: commissionTotal,
		OrdersCount:     len(orders),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err = s.invoiceRepo.Create(ctx, tx, invoice); err != nil {
		return 0, err
	}

	orderIDs := lo.Map(orders, func(o model.Order, _ int) uuid.UUID { return o.ID })
	if err = s.orderRepo.StampInvoiced(ctx, tx, orderIDs, invoice.ID, now); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("restaurant_id", restaurantID.String()).
		Int("orders", len(orders)).
		Str("commission_total", commissionTotal.StringFixed(2)).
		Msg("invoice created")

	return len(orders), nil
}

// GetByID retrieves an invoice. Returns nil when not found.
func (s *invoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*model.RestaurantInvoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// MarkSent transitions draft -> sent.
func (s *invoiceService) MarkSent(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error) {
	return s.transition(ctx, actor, invoiceID, []model.InvoiceStatus{model.InvoiceStatusDraft}, model.InvoiceStatusSent)
}

// MarkPaid transitions sent or overdue -> paid.
func (s *invoiceService) MarkPaid(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error) {
	return s.transition(ctx, actor, invoiceID, []model.InvoiceStatus{model.InvoiceStatusSent, model.InvoiceStatusOverdue}, model.InvoiceStatusPaid)
}

// MarkOverdue transitions sent -> overdue.
func (s *invoiceService) MarkOverdue(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error) {
	return s.transition(ctx, actor, invoiceID, []model.InvoiceStatus{model.InvoiceStatusSent}, model.InvoiceStatusOverdue)
}

// Void transitions any non-terminal status -> void.
func (s *invoiceService) Void(ctx context.Context, actor model.Identity, invoiceID uuid.UUID) (*model.RestaurantInvoice, error) {
	return s.transition(ctx, actor, invoiceID, []model.InvoiceStatus{
		model.InvoiceStatusDraft,
		model.InvoiceStatusSent,
		model.InvoiceStatusOverdue,
	}, model.InvoiceStatusVoid)
}

func (s *invoiceService) transition(ctx context.Context, actor model.Identity, invoiceID uuid.UUID, from []model.InvoiceStatus, to model.InvoiceStatus) (*model.RestaurantInvoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice == nil {
		return nil, model.ErrInvoiceNotFound
	}

	// Admins act on any invoice, providers only on their own restaurants'.
	if actor.Role != model.RoleAdmin {
		restaurant, rErr := s.mealRepo.GetRestaurant(ctx, invoice.RestaurantID)
		if rErr != nil {
			return nil, fmt.Errorf("failed to load restaurant: %w", rErr)
		}
		if restaurant == nil || restaurant.OwnerUserID != actor.UserID {
			return nil, model.ErrForbidden
		}
	}

	if !lo.Contains(from, invoice.Status) {
		return nil, model.ErrInvalidInvoiceState
	}

	now := s.now()
	ok, err := s.invoiceRepo.UpdateStatus(ctx, invoiceID, from, to, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	if !ok {
		return nil, model.ErrInvalidInvoiceState
	}

	s.logger.Info().
		Str("invoice_id", invoiceID.String()).
		Str("from", string(invoice.Status)).
		Str("to", string(to)).
		Msg("invoice status changed")

	invoice.Status = to
	invoice.UpdatedAt = now
	return invoice, nil
}

// Run generates invoices for the previous week shortly after each week rolls
// over, until ctx is cancelled.
func (s *invoiceService) Run(ctx context.Context) {
	if !s.cfg.AutoGenerate {
		return
	}
	s.logger.Info().Msg("weekly invoice generation started")

	for {
		next := nextWeeklyRun(s.now())
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("weekly invoice generation stopped")
			return
		case <-timer.C:
		}

		periodStart, periodEnd := previousWeek(s.now())
		if _, err := s.GenerateWeeklyInvoices(ctx, periodStart, periodEnd); err != nil {
			s.logger.Error().Err(err).Msg("weekly invoice generation failed")
		}
	}
}

// weekStart truncates t to the preceding Monday 00:00 UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -daysSinceMonday)
}

// previousWeek returns the bounds of the last fully elapsed Monday-to-Monday
// week.
func previousWeek(now time.Time) (time.Time, time.Time) {
	end := weekStart(now)
	return end.AddDate(0, 0, -7), end
}

// nextWeeklyRun returns the next Monday 00:05 UTC, leaving a margin for
// clock skew around the week boundary.
func nextWeeklyRun(now time.Time) time.Time {
	run := weekStart(now).Add(5 * time.Minute)
	if !run.After(now) {
		run = run.AddDate(0, 0, 7)
	}
	return run
}
