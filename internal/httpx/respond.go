package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/auth"
	"github.com/ariefcatur/shop-checkout/internal/orders"
)

type errorBody struct {
	Error    string                `json:"error"`
	Kind     string                `json:"kind,omitempty"`
	Details  []string              `json:"details,omitempty"`
	Shortage *orders.StockShortage `json:"shortage,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return false
	}
	return true
}

func statusFor(kind orders.Kind) int {
	switch kind {
	case orders.KindValidation:
		return http.StatusUnprocessableEntity
	case orders.KindInsufficientStock, orders.KindAlreadyProcessed:
		return http.StatusConflict
	case orders.KindForbidden:
		return http.StatusForbidden
	case orders.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError maps checkout and auth errors onto status codes. Internal errors
// are logged and answered with a generic message.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: string(orders.KindValidation)})
		return
	case errors.Is(err, auth.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "conflict"})
		return
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error(), Kind: "unauthorized"})
		return
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Kind: string(orders.KindNotFound)})
		return
	}

	kind := orders.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: string(kind)}
	var verrs *orders.ValidationErrors
	if errors.As(err, &verrs) {
		body.Error = "validation failed"
		body.Details = verrs.Messages
	}
	var short *orders.StockShortage
	if errors.As(err, &short) {
		body.Shortage = short
	}
	if kind == orders.KindInternal {
		log.Error("request failed", zap.Error(err))
		body.Error = "internal error"
	}
	writeJSON(w, statusFor(kind), body)
}
