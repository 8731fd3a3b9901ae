package service

import (
	"context"

	"lastbite/internal/model"

	"github.com/rs/zerolog"
)

// logNotifier is the in-process stand-in for the external SMS dispatcher.
// It records the handoff without ever logging the code itself.
type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a Notifier that only logs dispatches.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *logNotifier) SendPickupCode(ctx context.Context, order *model.Order, code string) error {
	n.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", order.UserID.String()).
		Int("code_length", len(code)).
		Msg("pickup code dispatched")
	return nil
}
