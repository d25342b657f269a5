// Package shared centralizes JSON envelopes and domain error translation so
// every handler renders the same shapes.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "polledger/pkg/domain-errors"
)

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders a coded error as {"error": CODE, "message": ..., meta...}.
// Errors outside the taxonomy collapse to a single generic message; internal
// details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	envelope := map[string]any{
		"error":   string(code),
		"message": "unexpected error",
	}
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		envelope["message"] = de.Message
		for key, value := range de.Meta {
			envelope[key] = value
		}
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), envelope)
}
