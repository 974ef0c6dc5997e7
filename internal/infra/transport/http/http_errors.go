package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkrupp/webgallery/internal/domain"
)

// StatusFromError maps the domain failure taxonomy to an HTTP status code.
// Unclassified errors are internal errors.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError answers with the status for err and its status text as body.
// Error details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	code := StatusFromError(err)
	http.Error(w, http.StatusText(code), code)
}

// WriteJSON answers with status and v encoded as JSON.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return errors.Join(domain.ErrStorage, err)
	}

	return nil
}
