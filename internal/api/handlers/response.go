package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/remitquote/internal/domain"
)

// errorEnvelope is the 400-response body shape §6 requires:
// {success:false, error:{code, message, details}}.
type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    domain.ErrorKind `json:"code"`
	Message string           `json:"message"`
	Details string           `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind domain.ErrorKind, message string) {
	respondJSON(w, status, errorEnvelope{
		Success: false,
		Error:   errorBody{Code: kind, Message: message},
	})
}

// statusForErrorKind maps an ErrorKind surfaced at the request-echo
// level (domain.AggregateResult.Errors["request"]) to an HTTP status.
// InvalidParameter maps to 400; any other kind recorded there (the
// coordinator's Internal fan-out failures) maps to 500. Per-provider
// failures never reach this level.
func statusForErrorKind(kind domain.ErrorKind) int {
	if kind == domain.ErrorKindInvalidParameter {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
