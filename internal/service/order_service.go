package service

import (
	"context"
	"fmt"
	"time"

	"lastbite/internal/commission"
	"lastbite/internal/config"
	"lastbite/internal/model"
	"lastbite/internal/pickupcode"
	"lastbite/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	minPickupWindow = 30 * time.Minute
	maxPickupWindow = 24 * time.Hour
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	eventRepo   repository.EventRepository
	mealRepo    repository.MealRepository
	codec       *pickupcode.Codec
	notifier    Notifier
	cfg         config.PickupConfig
	defaultRate decimal.Decimal
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	eventRepo repository.EventRepository,
	mealRepo repository.MealRepository,
	codec *pickupcode.Codec,
	notifier Notifier,
	cfg config.PickupConfig,
	defaultRate decimal.Decimal,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		eventRepo:   eventRepo,
		mealRepo:    mealRepo,
		codec:       codec,
		notifier:    notifier,
		cfg:         cfg,
		defaultRate: defaultRate,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         time.Now,
	}
}

// Create validates the request against the meal catalog, decrements stock and
// creates the order in PENDING. Stock decrement and order creation share one
// transaction: both succeed or both fail.
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	paymentMethod := model.PaymentCashOnPickup
	if req.PaymentMethod != nil {
		if *req.PaymentMethod != model.PaymentCashOnPickup && *req.PaymentMethod != model.PaymentOnline {
			return nil, model.ErrInvalidPaymentMethod
		}
		paymentMethod = *req.PaymentMethod
	}

	mealIDs := lo.Uniq(lo.Map(req.Items, func(item model.OrderItemRequest, _ int) uuid.UUID {
		return item.MealID
	}))

	meals, err := s.mealRepo.GetByIDs(ctx, mealIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load meals")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if len(meals) != len(mealIDs) {
		return nil, model.ErrMealNotFound
	}

	now := s.now()
	if req.PickupTime != nil && !req.PickupTime.After(now) {
		return nil, model.ErrInvalidPickupTime
	}

	mealsByID := lo.KeyBy(meals, func(m model.Meal) uuid.UUID { return m.ID })
	restaurantID := meals[0].RestaurantID
	for _, meal := range meals {
		if meal.RestaurantID != restaurantID {
			return nil, model.ErrMixedRestaurants
		}
		if !meal.AvailableAt(now) {
			return nil, model.ErrMealUnavailable
		}
	}

	// Snapshot prices and compute the total before touching storage.
	total := decimal.Zero
	order := &model.Order{
		ID:            uuid.New(),
		UserID:        userID,
		RestaurantID:  restaurantID,
		Status:        model.OrderStatusPending,
		PaymentMethod: paymentMethod,
		Notes:         req.Notes,
		CreatedAt:     now,
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		meal := mealsByID[item.MealID]
		items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			MealID:    item.MealID,
			Quantity:  item.Quantity,
			UnitPrice: meal.Price,
		}
		total = total.Add(meal.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	order.TotalAmount = total

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	for _, item := range items {
		ok, decErr := s.mealRepo.DecrementStock(ctx, tx, item.MealID, item.Quantity)
		if decErr != nil {
			err = fmt.Errorf("failed to create order: %w", decErr)
			return nil, err
		}
		if !ok {
			err = model.ErrInsufficientStock
			return nil, err
		}
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	createdMeta := map[string]any{
		"from": nil,
		"to":   string(model.OrderStatusPending),
	}
	// The preferred time is advisory, so it lives in the audit trail for the
	// provider to consult when choosing the window.
	if req.PickupTime != nil {
		createdMeta["requested_pickup_time"] = *req.PickupTime
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventStatusChanged, createdMeta); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("restaurant_id", restaurantID.String()).
		Int("item_count", len(items)).
		Str("total_amount", total.StringFixed(2)).
		Msg("order created")

	return &model.OrderResponse{Order: order, Items: items}, nil
}

// GetByID retrieves an order with its items, visible only to the owning
// customer, the fulfilling restaurant's owner or an admin.
func (s *orderService) GetByID(ctx context.Context, actor model.Identity, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, nil
	}

	if actor.Role != model.RoleAdmin && order.UserID != actor.UserID {
		restaurant, rErr := s.mealRepo.GetRestaurant(ctx, order.RestaurantID)
		if rErr != nil {
			return nil, fmt.Errorf("failed to get order: %w", rErr)
		}
		if restaurant == nil || restaurant.OwnerUserID != actor.UserID {
			return nil, model.ErrForbidden
		}
	}

	items, err := s.orderRepo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	return &model.OrderResponse{Order: order, Items: items}, nil
}

// Accept transitions PENDING -> ACCEPTED. The pickup window and commission
// rate are fixed here and never change afterwards.
func (s *orderService) Accept(ctx context.Context, actorID, orderID uuid.UUID, req *model.AcceptRequest) (*model.Order, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	restaurant, err := s.authorizeProvider(ctx, order, actorID)
	if err != nil {
		return nil, err
	}

	switch {
	case order.Status == model.OrderStatusAccepted:
		err = model.ErrAlreadyAccepted
		return nil, err
	case order.Status.IsTerminal():
		err = model.TerminalStateError(order.Status)
		return nil, err
	case order.Status != model.OrderStatusPending:
		err = model.ErrInvalidTransition
		return nil, err
	}

	now := s.now()
	if err = validatePickupWindow(now, req.PickupWindowStart, req.PickupWindowEnd); err != nil {
		return nil, err
	}

	code, err := s.codec.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}
	encrypted, err := s.codec.Encrypt(code)
	if err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}

	rate := commission.ResolveRate(restaurant.CommissionRate, s.defaultRate)

	ok, err := s.orderRepo.AcceptOrder(ctx, tx, repository.AcceptParams{
		OrderID:        order.ID,
		WindowStart:    req.PickupWindowStart,
		WindowEnd:      req.PickupWindowEnd,
		CodeEncrypted:  encrypted,
		CommissionRate: rate,
		AcceptedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}
	if !ok {
		err = model.ErrConcurrentModification
		return nil, err
	}

	if err = s.appendEvent(ctx, tx, order.ID, model.EventStatusChanged, map[string]any{
		"from": string(model.OrderStatusPending),
		"to":   string(model.OrderStatusAccepted),
	}); err != nil {
		return nil, err
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventCodeGenerated, map[string]any{
		"window_start": req.PickupWindowStart,
		"window_end":   req.PickupWindowEnd,
	}); err != nil {
		return nil, err
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventSMSSent, nil); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}

	order.Status = model.OrderStatusAccepted
	order.PickupWindowStart = &req.PickupWindowStart
	order.PickupWindowEnd = &req.PickupWindowEnd
	order.PickupCodeEncrypted = &encrypted
	order.CommissionRate = &rate
	order.AcceptedAt = &now
	order.PickupCodeLastSentAt = &now

	if nErr := s.notifier.SendPickupCode(ctx, order, code); nErr != nil {
		s.logger.Error().Err(nErr).Str("order_id", order.ID.String()).Msg("failed to dispatch pickup code")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Time("window_start", req.PickupWindowStart).
		Time("window_end", req.PickupWindowEnd).
		Msg("order accepted")

	return order, nil
}

// MarkReady transitions ACCEPTED -> READY_FOR_PICKUP.
func (s *orderService) MarkReady(ctx context.Context, actorID, orderID uuid.UUID) (*model.Order, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order ready: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err = s.authorizeProvider(ctx, order, actorID); err != nil {
		return nil, err
	}

	switch {
	case order.Status.IsTerminal():
		err = model.TerminalStateError(order.Status)
		return nil, err
	case order.Status != model.OrderStatusAccepted:
		err = model.ErrInvalidTransition
		return nil, err
	}

	now := s.now()
	ok, err := s.orderRepo.MarkReady(ctx, tx, order.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order ready: %w", err)
	}
	if !ok {
		err = model.ErrConcurrentModification
		return nil, err
	}

	if err = s.appendEvent(ctx, tx, order.ID, model.EventStatusChanged, map[string]any{
		"from": string(model.OrderStatusAccepted),
		"to":   string(model.OrderStatusReadyForPickup),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark order ready: %w", err)
	}

	order.Status = model.OrderStatusReadyForPickup
	order.ReadyAt = &now

	return order, nil
}

// Complete verifies the presented code and finishes the order. An unexpired,
// unused claim code takes priority; the pickup code remains valid as
// fallback. Failed attempts are counted and persisted even though the
// transition fails.
func (s *orderService) Complete(ctx context.Context, actorID, orderID uuid.UUID, code string) (*model.Order, error) {
	if !pickupcode.ValidFormat(code) {
		return nil, model.ErrMalformedCode
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err = s.authorizeProvider(ctx, order, actorID); err != nil {
		return nil, err
	}

	switch {
	case order.Status.IsTerminal():
		err = model.TerminalStateError(order.Status)
		return nil, err
	case order.Status != model.OrderStatusReadyForPickup:
		err = model.ErrInvalidTransition
		return nil, err
	}

	// The gate fires before any comparison, so even the correct code is
	// rejected once the counter is exhausted.
	if order.PickupCodeAttempts >= s.cfg.MaxCodeAttempts {
		err = model.ErrMaxAttemptsExceeded
		return nil, err
	}

	now := s.now()
	matched := false
	verifiedEvent := model.EventCodeVerified

	if order.ClaimCodeEncrypted != nil {
		claim, decErr := s.codec.Decrypt(*order.ClaimCodeEncrypted)
		if decErr == nil && s.codec.Matches(claim, code) {
			if order.ClaimCodeUsedAt != nil {
				err = model.ErrCodeAlreadyUsed
				return nil, err
			}
			if order.ClaimCodeExpiresAt != nil && now.After(*order.ClaimCodeExpiresAt) {
				err = model.ErrCodeExpired
				return nil, err
			}
			if err = s.orderRepo.SetClaimCodeUsed(ctx, tx, order.ID, now); err != nil {
				return nil, err
			}
			matched = true
			verifiedEvent = model.EventClaimCodeUsed
		}
	}

	if !matched && order.PickupCodeEncrypted != nil {
		// Decryption failures (key rotation, corruption) count as a
		// mismatch, never as a fault.
		plain, decErr := s.codec.Decrypt(*order.PickupCodeEncrypted)
		if decErr == nil && s.codec.Matches(plain, code) {
			matched = true
		}
	}

	if !matched {
		attempts, aErr := s.orderRepo.IncrementCodeAttempts(ctx, tx, order.ID)
		if aErr != nil {
			err = aErr
			return nil, err
		}
		if aErr = s.appendEvent(ctx, tx, order.ID, model.EventCodeAttempt, map[string]any{
			"attempts": attempts,
		}); aErr != nil {
			err = aErr
			return nil, err
		}
		// The counter must survive the failed verification, so this
		// path commits instead of rolling back.
		if aErr = tx.Commit(ctx); aErr != nil {
			err = aErr
			return nil, fmt.Errorf("failed to record code attempt: %w", aErr)
		}
		s.logger.Warn().
			Str("order_id", order.ID.String()).
			Int("attempts", attempts).
			Msg("incorrect code presented")
		return nil, model.ErrInvalidCode
	}

	if order.CommissionRate == nil {
		err = fmt.Errorf("order %s has no commission rate snapshot", order.ID)
		return nil, err
	}
	amount := commission.Calculate(order.TotalAmount, *order.CommissionRate)

	ok, err := s.orderRepo.CompleteOrder(ctx, tx, order.ID, amount, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}
	if !ok {
		err = model.ErrConcurrentModification
		return nil, err
	}

	if err = s.appendEvent(ctx, tx, order.ID, verifiedEvent, nil); err != nil {
		return nil, err
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventStatusChanged, map[string]any{
		"from": string(model.OrderStatusReadyForPickup),
		"to":   string(model.OrderStatusCompleted),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	order.Status = model.OrderStatusCompleted
	order.CommissionAmount = &amount
	order.CompletedAt = &now

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("commission_amount", amount.StringFixed(2)).
		Msg("order completed")

	return order, nil
}

// CancelByCustomer cancels a PENDING or ACCEPTED order owned by the caller.
func (s *orderService) CancelByCustomer(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*model.Order, error) {
	return s.cancel(ctx, orderID, cancelParams{
		actorID:      actorID,
		actor:        model.CancelledByCustomer,
		toStatus:     model.OrderStatusCancelledByCustomer,
		fromStatuses: []model.OrderStatus{model.OrderStatusPending, model.OrderStatusAccepted},
		reason:       reason,
	})
}

// CancelByProvider cancels an ACCEPTED or READY_FOR_PICKUP order of the
// caller's restaurant.
func (s *orderService) CancelByProvider(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*model.Order, error) {
	return s.cancel(ctx, orderID, cancelParams{
		actorID:      actorID,
		actor:        model.CancelledByRestaurant,
		toStatus:     model.OrderStatusCancelledByRestaurant,
		fromStatuses: []model.OrderStatus{model.OrderStatusAccepted, model.OrderStatusReadyForPickup},
		reason:       reason,
	})
}

type cancelParams struct {
	actorID      uuid.UUID
	actor        model.CancelActor
	toStatus     model.OrderStatus
	fromStatuses []model.OrderStatus
	reason       string
}

func (s *orderService) cancel(ctx context.Context, orderID uuid.UUID, p cancelParams) (*model.Order, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if p.actor == model.CancelledByCustomer {
		if order.UserID != p.actorID {
			err = model.ErrForbidden
			return nil, err
		}
	} else {
		if _, err = s.authorizeProvider(ctx, order, p.actorID); err != nil {
			return nil, err
		}
	}

	if order.Status.IsTerminal() {
		err = model.TerminalStateError(order.Status)
		return nil, err
	}
	if !lo.Contains(p.fromStatuses, order.Status) {
		err = model.ErrInvalidTransition
		return nil, err
	}

	now := s.now()
	ok, err := s.orderRepo.CancelOrder(ctx, tx, repository.CancelParams{
		OrderID:      order.ID,
		FromStatuses: p.fromStatuses,
		ToStatus:     p.toStatus,
		CancelledBy:  p.actor,
		Reason:       p.reason,
		At:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !ok {
		err = model.ErrConcurrentModification
		return nil, err
	}

	// Restock in the same transaction: the status CAS above guarantees only
	// one terminal transition can reach this point.
	if err = restockOrder(ctx, tx, order, s.orderRepo, s.mealRepo, now); err != nil {
		return nil, err
	}

	if err = s.appendEvent(ctx, tx, order.ID, model.EventCancelled, map[string]any{
		"cancelled_by": string(p.actor),
		"reason":       p.reason,
	}); err != nil {
		return nil, err
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventStatusChanged, map[string]any{
		"from": string(order.Status),
		"to":   string(p.toStatus),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	order.Status = p.toStatus
	order.CancelledAt = &now
	order.CancelledBy = &p.actor
	order.CancelReason = &p.reason

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("cancelled_by", string(p.actor)).
		Msg("order cancelled")

	return order, nil
}

// ShowCode returns the decrypted pickup code to the owning customer while
// the order is awaiting pickup.
func (s *orderService) ShowCode(ctx context.Context, actorID, orderID uuid.UUID) (string, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return "", model.ErrOrderNotFound
	}
	if order.UserID != actorID {
		return "", model.ErrForbidden
	}

	if order.Status.IsTerminal() {
		return "", model.TerminalStateError(order.Status)
	}
	if order.Status != model.OrderStatusAccepted && order.Status != model.OrderStatusReadyForPickup {
		return "", model.ErrInvalidTransition
	}
	if order.PickupCodeEncrypted == nil {
		return "", model.ErrInvalidCode
	}

	code, err := s.codec.Decrypt(*order.PickupCodeEncrypted)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to decrypt pickup code")
		return "", model.ErrInvalidCode
	}

	return code, nil
}

// ResendCode re-sends the pickup code, subject to the resend cooldown.
func (s *orderService) ResendCode(ctx context.Context, actorID, orderID uuid.UUID) error {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to resend code: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != actorID {
		err = model.ErrForbidden
		return err
	}

	if order.Status.IsTerminal() {
		err = model.TerminalStateError(order.Status)
		return err
	}
	if order.Status != model.OrderStatusAccepted && order.Status != model.OrderStatusReadyForPickup {
		err = model.ErrInvalidTransition
		return err
	}

	now := s.now()
	if order.PickupCodeLastSentAt != nil && now.Sub(*order.PickupCodeLastSentAt) < s.cfg.ResendCooldown {
		err = model.ErrRateLimited
		return err
	}
	if order.PickupCodeEncrypted == nil {
		err = model.ErrInvalidCode
		return err
	}

	code, err := s.codec.Decrypt(*order.PickupCodeEncrypted)
	if err != nil {
		err = model.ErrInvalidCode
		return err
	}

	if err = s.orderRepo.SetCodeResent(ctx, tx, order.ID, now); err != nil {
		return err
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventSMSSent, map[string]any{
		"resend": true,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to resend code: %w", err)
	}

	order.PickupCodeLastSentAt = &now
	if nErr := s.notifier.SendPickupCode(ctx, order, code); nErr != nil {
		s.logger.Error().Err(nErr).Str("order_id", order.ID.String()).Msg("failed to dispatch pickup code")
	}

	return nil
}

// GenerateClaimCode issues a fresh short-lived single-use code for the active
// order, replacing any previous claim code.
func (s *orderService) GenerateClaimCode(ctx context.Context, actorID, orderID uuid.UUID) (*model.ClaimCodeResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate claim code: %w", err)
	}
	defer func() {
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID {
		err = model.ErrForbidden
		return nil, err
	}

	if order.Status.IsTerminal() {
		err = model.TerminalStateError(order.Status)
		return nil, err
	}
	if order.Status != model.OrderStatusAccepted && order.Status != model.OrderStatusReadyForPickup {
		err = model.ErrInvalidTransition
		return nil, err
	}

	code, err := s.codec.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate claim code: %w", err)
	}
	encrypted, err := s.codec.Encrypt(code)
	if err != nil {
		return nil, fmt.Errorf("failed to generate claim code: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.ClaimCodeTTL)

	if err = s.orderRepo.SetClaimCode(ctx, tx, order.ID, encrypted, expiresAt); err != nil {
		return nil, err
	}
	if err = s.appendEvent(ctx, tx, order.ID, model.EventClaimCodeGenerated, map[string]any{
		"expires_at": expiresAt,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to generate claim code: %w", err)
	}

	return &model.ClaimCodeResponse{Code: code, ExpiresAt: expiresAt}, nil
}

// ProviderStats summarises order counts across the caller's restaurants.
func (s *orderService) ProviderStats(ctx context.Context, actorID uuid.UUID) (*model.ProviderStats, error) {
	restaurantIDs, err := s.mealRepo.RestaurantIDsByOwner(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider stats: %w", err)
	}
	if len(restaurantIDs) == 0 {
		return &model.ProviderStats{}, nil
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := s.orderRepo.ProviderStats(ctx, restaurantIDs, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider stats: %w", err)
	}

	return stats, nil
}

// ListEvents returns the order's audit trail, oldest first, with the same
// visibility rules as GetByID.
func (s *orderService) ListEvents(ctx context.Context, actor model.Identity, orderID uuid.UUID) ([]model.OrderEvent, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if actor.Role != model.RoleAdmin && order.UserID != actor.UserID {
		restaurant, rErr := s.mealRepo.GetRestaurant(ctx, order.RestaurantID)
		if rErr != nil {
			return nil, fmt.Errorf("failed to get order: %w", rErr)
		}
		if restaurant == nil || restaurant.OwnerUserID != actor.UserID {
			return nil, model.ErrForbidden
		}
	}

	events, err := s.eventRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order events: %w", err)
	}
	return events, nil
}

// lockOrder loads an order under a row lock held for the transaction.
func (s *orderService) lockOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// authorizeProvider resolves the order's restaurant and checks the acting
// user owns it.
func (s *orderService) authorizeProvider(ctx context.Context, order *model.Order, actorID uuid.UUID) (*model.Restaurant, error) {
	restaurant, err := s.mealRepo.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}
	if restaurant == nil || restaurant.OwnerUserID != actorID {
		return nil, model.ErrForbidden
	}
	return restaurant, nil
}

func (s *orderService) appendEvent(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, eventType model.EventType, metadata map[string]any) error {
	return s.eventRepo.Append(ctx, tx, &model.OrderEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Type:      eventType,
		Metadata:  metadata,
		CreatedAt: s.now(),
	})
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
		s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}

// restockOrder returns each item's quantity to its meal unless the order was
// already restocked. Shared by cancellation and the expiry sweep.
func restockOrder(ctx context.Context, tx pgx.Tx, order *model.Order, orderRepo repository.OrderRepository, mealRepo repository.MealRepository, at time.Time) error {
	if order.RestockedAt != nil {
		return nil
	}

	items, err := orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items for restock: %w", err)
	}

	for _, item := range items {
		if err := mealRepo.RestockStock(ctx, tx, item.MealID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restock meal %s: %w", item.MealID, err)
		}
	}

	if err := orderRepo.MarkRestocked(ctx, tx, order.ID, at); err != nil {
		return err
	}

	return nil
}

// validateOrderRequest validates the order request.
func validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.ErrEmptyOrder
	}

	for _, item := range req.Items {
		if item.MealID == uuid.Nil {
			return model.ErrMealNotFound
		}
		if item.Quantity < 1 {
			return model.ErrInvalidQuantity
		}
	}

	return nil
}

// validatePickupWindow enforces the window rules: starts in the future, ends
// after it starts, lasts between 30 minutes and 24 hours.
func validatePickupWindow(now, start, end time.Time) error {
	if !start.After(now) {
		return model.ErrInvalidPickupWindow
	}
	if !end.After(start) {
		return model.ErrInvalidPickupWindow
	}
	duration := end.Sub(start)
	if duration < minPickupWindow || duration > maxPickupWindow {
		return model.ErrInvalidPickupWindow
	}
	return nil
}
