package router

import (
	"net/http"

	"lastbite/internal/handler"
	"lastbite/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	settlementHandler *handler.SettlementHandler,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)
	mux.HandleFunc("GET /api/orders/{id}/events", orderHandler.ListEvents)
	mux.HandleFunc("POST /api/orders/{id}/accept", orderHandler.Accept)
	mux.HandleFunc("POST /api/orders/{id}/ready", orderHandler.MarkReady)
	mux.HandleFunc("POST /api/orders/{id}/complete", orderHandler.Complete)
	mux.HandleFunc("POST /api/orders/{id}/cancel", orderHandler.Cancel)
	mux.HandleFunc("GET /api/orders/{id}/code", orderHandler.ShowCode)
	mux.HandleFunc("POST /api/orders/{id}/resend-code", orderHandler.ResendCode)
	mux.HandleFunc("POST /api/orders/{id}/claim-code", orderHandler.GenerateClaimCode)

	mux.HandleFunc("GET /api/provider/stats", orderHandler.ProviderStats)

	mux.HandleFunc("POST /api/admin/invoices/generate", settlementHandler.Generate)
	mux.HandleFunc("GET /api/admin/invoices/{id}", settlementHandler.GetByID)
	mux.HandleFunc("POST /api/admin/invoices/{id}/void", settlementHandler.Void)

	// Mark transitions are shared with providers, who advance invoices of
	// their own restaurants.
	mux.HandleFunc("POST /api/invoices/{id}/send", settlementHandler.MarkSent)
	mux.HandleFunc("POST /api/invoices/{id}/pay", settlementHandler.MarkPaid)
	mux.HandleFunc("POST /api/invoices/{id}/overdue", settlementHandler.MarkOverdue)

	// Apply middleware in order: Recovery -> Logging -> CORS -> Identity
	var h http.Handler = mux
	h = middleware.Identity(logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
