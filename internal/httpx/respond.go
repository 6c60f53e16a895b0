package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ariefcatur/catering-orders/internal/apperr"
)

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

// writeError hides the text of errors without a kind; those are logged by the caller.
func writeError(w http.ResponseWriter, err error) {
	code := apperr.HTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, envelope{Status: "error", Message: msg, Kind: apperr.Kind(err)})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", apperr.ErrInvalidInput)
	}
	return nil
}
