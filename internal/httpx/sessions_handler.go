package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/sessions"
)

// LoginDurationHandler reports how long the caller has been logged in.
type LoginDurationHandler struct {
	Durations *sessions.Durations
	Log       *zap.Logger
}

func (h *LoginDurationHandler) Register(r chi.Router) {
	r.Get("/login-duration/total", h.total)
	r.Get("/login-duration/sessions", h.sessions)
	r.Get("/login-duration/current", h.current)
}

func (h *LoginDurationHandler) total(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.Durations.Total(ctx, userID(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *LoginDurationHandler) sessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Durations.Sessions(ctx, userID(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *LoginDurationHandler) current(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Durations.Current(ctx, userID(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
