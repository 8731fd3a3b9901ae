package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"lastbite/internal/middleware"
	"lastbite/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service failure onto an HTTP response. Domain
// errors carry their own status and code; everything else is a 500 with the
// cause logged but not exposed.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, domainErr.Status, domainErr.Code, domainErr.Message, logger)
		return
	}

	logger.Error().Err(err).Msg("unexpected service error")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "something went wrong", logger)
}

// callerIdentity extracts the authenticated caller, responding 401 when the
// middleware did not store one.
func callerIdentity(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing user identity", logger)
		return model.Identity{}, false
	}
	return id, true
}

// requireRole responds 403 unless the caller holds one of the roles. Admins
// pass every gate.
func requireRole(w http.ResponseWriter, id model.Identity, logger zerolog.Logger, roles ...model.Role) bool {
	if id.Role == model.RoleAdmin {
		return true
	}
	for _, role := range roles {
		if id.Role == role {
			return true
		}
	}
	writeError(w, http.StatusForbidden, model.ErrCodeForbidden, "insufficient role for this action", logger)
	return false
}

// pathUUID parses a UUID path segment, responding 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string, logger zerolog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid "+name+" format", logger)
		return uuid.Nil, false
	}
	return id, true
}
