package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/metrics"
)

func NewRouter(log *zap.Logger, m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, AccessLog(log), middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	return r
}

// API groups the handlers mounted by cmd/api.
type API struct {
	Products      *ProductsHandler
	Auth          *AuthHandler
	Orders        *OrdersHandler
	LoginDuration *LoginDurationHandler
}

// Mount registers public routes on r and the rest behind RequireAuth.
func (a *API) Mount(r chi.Router, log *zap.Logger) {
	a.Products.Register(r)
	a.Auth.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(a.Auth.Auth, log))
		a.Auth.Register(r)
		a.Orders.Register(r)
		a.LoginDuration.Register(r)
	})
}
