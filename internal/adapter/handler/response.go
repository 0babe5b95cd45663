package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsValidationError(err), domain.IsRejection(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStateConflict), errors.Is(err, domain.ErrIntentAlreadyLinked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error to its response. Unexpected errors
// are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	if status == http.StatusBadGateway {
		log.Warn("payment gateway call failed", zap.Error(err))
		writeError(w, status, domain.ErrGateway.Error())
		return
	}

	writeError(w, status, err.Error())
}

func parseID(raw string, invalid error) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}
