package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kalambet/jobportal/internal/apperr"
)

const maxRequestBodySize = 1 << 20 // 1MB

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeErr maps domain errors to their status and kind; anything else is a 500.
func writeErr(w http.ResponseWriter, err error) {
	if e, ok := apperr.As(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(e.HTTPStatus())
		body := map[string]any{
			"message": e.Message,
			"type":    e.Kind.String(),
		}
		if e.Field != "" {
			body["field"] = e.Field
		}
		json.NewEncoder(w).Encode(map[string]any{"error": body})
		return
	}
	slog.Error("request failed", "error", err)
	httpError(w, http.StatusInternalServerError, "api_error", "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}
