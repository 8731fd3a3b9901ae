package service

import (
	"context"
	"fmt"
	"time"

	"lastbite/internal/config"
	"lastbite/internal/model"
	"lastbite/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const expiryReason = "pickup window elapsed"

// expiryService sweeps accepted and ready orders whose pickup window ended
// longer than the grace period ago, expiring them and restocking their meals.
type expiryService struct {
	orderRepo repository.OrderRepository
	eventRepo repository.EventRepository
	mealRepo  repository.MealRepository
	cfg       config.PickupConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewExpiryService creates a new expiry service.
func NewExpiryService(
	orderRepo repository.OrderRepository,
	eventRepo repository.EventRepository,
	mealRepo repository.MealRepository,
	cfg config.PickupConfig,
	logger zerolog.Logger,
) ExpiryService {
	return &expiryService{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		mealRepo:  mealRepo,
		cfg:       cfg,
		logger:    logger.With().Str("service", "expiry").Logger(),
		now:       time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *expiryService) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.cfg.SweepInterval).
		Dur("grace", s.cfg.ExpiryGrace).
		Msg("expiry sweeper started")

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

// Sweep expires every eligible order. Each order gets its own transaction so
// one failure never blocks the rest; the status compare-and-swap makes
// overlapping sweeps harmless.
func (s *expiryService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.ExpiryGrace)

	candidates, err := s.orderRepo.ExpiryCandidates(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiry candidates: %w", err)
	}

	expired := 0
	for _, orderID := range candidates {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if err := s.expireOne(ctx, orderID, cutoff); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to expire order")
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("expiry sweep finished")
	}

	return expired, nil
}

func (s *expiryService) expireOne(ctx context.Context, orderID uuid.UUID, cutoff time.Time) error {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	// The order may have been completed or cancelled between the candidate
	// query and this lock.
	if order.Status != model.OrderStatusAccepted && order.Status != model.OrderStatusReadyForPickup {
		err = tx.Rollback(ctx)
		return err
	}
	if order.PickupWindowEnd == nil || !order.PickupWindowEnd.Before(cutoff) {
		err = tx.Rollback(ctx)
		return err
	}

	now := s.now()
	ok, err := s.orderRepo.ExpireOrder(ctx, tx, order.ID, expiryReason, now)
	if err != nil {
		return err
	}
	if !ok {
		err = model.ErrConcurrentModification
		return err
	}

	if err = restockOrder(ctx, tx, order, s.orderRepo, s.mealRepo, now); err != nil {
		return err
	}

	if err = s.eventRepo.Append(ctx, tx, &model.OrderEvent{
		ID:      uuid.New(),
		OrderID: order.ID,
		Type:    model.EventExpired,
		Metadata: map[string]any{
			"window_end": order.PickupWindowEnd,
			"reason":     expiryReason,
		},
		CreatedAt: now,
	}); err != nil {
		return err
	}
	if err = s.eventRepo.Append(ctx, tx, &model.OrderEvent{
		ID:      uuid.New(),
		OrderID: order.ID,
		Type:    model.EventStatusChanged,
		Metadata: map[string]any{
			"from": string(order.Status),
			"to":   string(model.OrderStatusExpired),
		},
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("previous_status", string(order.Status)).
		Msg("order expired")

	return nil
}
