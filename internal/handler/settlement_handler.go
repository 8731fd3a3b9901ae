package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"lastbite/internal/model"
	"lastbite/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementHandler handles invoice-related HTTP requests. Generation,
// lookup and voiding are admin-only; the mark transitions are also open to
// the owning provider.
type SettlementHandler struct {
	service service.InvoiceService
	logger  zerolog.Logger
}

// NewSettlementHandler creates a new settlement handler.
func NewSettlementHandler(service service.InvoiceService, logger zerolog.Logger) *SettlementHandler {
	return &SettlementHandler{
		service: service,
		logger:  logger.With().Str("handler", "settlement").Logger(),
	}
}

// Generate handles POST /api/admin/invoices/generate requests.
func (h *SettlementHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !h.admin(w, r) {
		return
	}

	var req model.GenerateInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	summary, err := h.service.GenerateWeeklyInvoices(r.Context(), req.PeriodStart, req.PeriodEnd)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetByID handles GET /api/admin/invoices/{id} requests.
func (h *SettlementHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if !h.admin(w, r) {
		return
	}
	invoiceID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	invoice, err := h.service.GetByID(r.Context(), invoiceID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if invoice == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeInvoiceNotFound, "invoice not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, invoice)
}

// MarkSent handles POST /api/invoices/{id}/send requests.
func (h *SettlementHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkSent)
}

// MarkPaid handles POST /api/invoices/{id}/pay requests.
func (h *SettlementHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkPaid)
}

// MarkOverdue handles POST /api/invoices/{id}/overdue requests.
func (h *SettlementHandler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkOverdue)
}

// Void handles POST /api/admin/invoices/{id}/void requests. Voiding erases
// owed commission, so unlike the mark transitions it stays admin-only.
func (h *SettlementHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if id.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, model.ErrCodeForbidden, "admin role required", h.logger)
		return
	}
	invoiceID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	invoice, err := h.service.Void(r.Context(), id, invoiceID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, invoice)
}

// transition runs a mark transition on behalf of an admin or a provider.
// Ownership of the invoice's restaurant is checked in the service.
func (h *SettlementHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.RestaurantInvoice, error)) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleProvider) {
		return
	}
	invoiceID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	invoice, err := op(r.Context(), id, invoiceID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, invoice)
}

func (h *SettlementHandler) admin(w http.ResponseWriter, r *http.Request) bool {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return false
	}
	if id.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, model.ErrCodeForbidden, "admin role required", h.logger)
		return false
	}
	return true
}
