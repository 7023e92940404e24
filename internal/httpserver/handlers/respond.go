package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"itsaportal/internal/gateway"
	"itsaportal/internal/lifecycle"

	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondStatus(w, http.StatusOK, v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// errorBody is the dismissible banner payload.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError maps err onto a status code. Gateway messages pass through
// untouched.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	body := errorBody{Error: lifecycle.Message(err)}
	status := http.StatusBadGateway
	var verr *lifecycle.ValidationError
	switch {
	case errors.As(err, &verr):
		status, body.Field = http.StatusBadRequest, verr.Field
	case errors.Is(err, gateway.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrInvalidCredentials), errors.Is(err, gateway.ErrEmailNotConfirmed),
		errors.Is(err, gateway.ErrInvalidToken), errors.Is(err, gateway.ErrNoSession):
		status = http.StatusUnauthorized
	case errors.Is(err, gateway.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, gateway.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusBadGateway {
		lg.Warnw("gateway call failed", "error", err)
	}
	respondStatus(w, status, body)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &lifecycle.ValidationError{Field: "body", Message: "invalid request body"}
	}
	return nil
}
