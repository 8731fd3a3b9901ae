package handler

import (
	"encoding/json"
	"net/http"

	"lastbite/internal/model"
	"lastbite/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleCustomer) {
		return
	}

	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Create(r.Context(), id.UserID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	resp, err := h.service.GetByID(r.Context(), id, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if resp == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, "order not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListEvents handles GET /api/orders/{id}/events requests.
func (h *OrderHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	events, err := h.service.ListEvents(r.Context(), id, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// Accept handles POST /api/orders/{id}/accept requests.
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleProvider) {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Accept(r.Context(), id.UserID, orderID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// MarkReady handles POST /api/orders/{id}/ready requests.
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleProvider) {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	order, err := h.service.MarkReady(r.Context(), id.UserID, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Complete handles POST /api/orders/{id}/complete requests.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleProvider) {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Complete(r.Context(), id.UserID, orderID, req.Code)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests. Customers cancel
// their own orders, providers cancel orders of their restaurants.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req model.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	var (
		order *model.Order
		err   error
	)
	switch id.Role {
	case model.RoleCustomer:
		order, err = h.service.CancelByCustomer(r.Context(), id.UserID, orderID, req.Reason)
	case model.RoleProvider:
		order, err = h.service.CancelByProvider(r.Context(), id.UserID, orderID, req.Reason)
	default:
		writeError(w, http.StatusForbidden, model.ErrCodeForbidden, "insufficient role for this action", h.logger)
		return
	}
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ShowCode handles GET /api/orders/{id}/code requests.
func (h *OrderHandler) ShowCode(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleCustomer) {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	code, err := h.service.ShowCode(r.Context(), id.UserID, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.CodeResponse{Code: code})
}

// ResendCode handles POST /api/orders/{id}/resend-code requests.
func (h *OrderHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleCustomer) {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.service.ResendCode(r.Context(), id.UserID, orderID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// GenerateClaimCode handles POST /api/orders/{id}/claim-code requests.
func (h *OrderHandler) GenerateClaimCode(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleCustomer) {
		return
	}
	orderID, ok := pathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	resp, err := h.service.GenerateClaimCode(r.Context(), id.UserID, orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ProviderStats handles GET /api/provider/stats requests.
func (h *OrderHandler) ProviderStats(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}
	if !requireRole(w, id, h.logger, model.RoleProvider) {
		return
	}

	stats, err := h.service.ProviderStats(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
