package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(target)
}

// ledgerError maps a ledger or validation error to a response. Unknown errors
// are logged and reported as 500 with the generic message.
func ledgerError(w http.ResponseWriter, err error, message string) {
	var stock *ledger.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		jsonResponse(w, http.StatusConflict, map[string]any{
			"error":     err.Error(),
			"item_id":   stock.ItemID,
			"item_name": stock.ItemName,
			"available": stock.Available,
			"requested": stock.Requested,
		})
	case errors.Is(err, ledger.ErrUnknownBeneficiary):
		jsonError(w, http.StatusNotFound, "beneficiary not found")
	case errors.Is(err, ledger.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalid):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(message, "error", err)
		jsonError(w, http.StatusInternalServerError, message)
	}
}
