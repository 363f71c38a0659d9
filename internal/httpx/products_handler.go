package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/orders"
	"github.com/ariefcatur/shop-checkout/internal/redisx"
)

type ProductsHandler struct {
	Service *orders.Service
	Cache   *redisx.Cache // optional
	Log     *zap.Logger
}

type productView struct {
	orders.Product
	PriceFormatted string `json:"price_formatted"`
	Available      bool   `json:"available"`
}

func toProductView(p orders.Product) productView {
	return productView{Product: p, PriceFormatted: orders.FormatCents(p.PriceCents), Available: p.Stock > 0}
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Service.ListProducts(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if h.Cache != nil {
		if p, ok := h.Cache.Product(ctx, id); ok {
			writeJSON(w, http.StatusOK, toProductView(p))
			return
		}
	}

	// 2) store
	p, err := h.Service.GetProduct(ctx, id)
	if err != nil {
		// an unknown product on this route is a lookup miss, not a cart problem
		writeJSON(w, http.StatusNotFound, errorBody{Error: "product not found", Kind: string(orders.KindNotFound)})
		if orders.KindOf(err) == orders.KindInternal {
			h.Log.Error("get product", zap.String("product_id", id), zap.Error(err))
		}
		return
	}
	if h.Cache != nil {
		if err := h.Cache.SetProduct(ctx, p); err != nil {
			h.Log.Warn("product not cached", zap.String("product_id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}
