package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/shop-checkout/internal/metrics"
	"github.com/ariefcatur/shop-checkout/internal/orders"
	"github.com/ariefcatur/shop-checkout/internal/redisx"
)

// OrdersHandler serves checkout preview, order creation, payment capture and
// order lookup. Every route expects RequireAuth in front of it.
type OrdersHandler struct {
	Service *orders.Service
	Cache   *redisx.Cache // optional
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

type CheckoutReq struct {
	Items    []orders.Line `json:"items"`
	Currency string        `json:"currency"`
}

type quoteLineView struct {
	ProductID          string `json:"product_id"`
	Name               string `json:"name"`
	UnitPriceCents     int64  `json:"unit_price_cents"`
	Quantity           int    `json:"quantity"`
	LineTotalCents     int64  `json:"line_total_cents"`
	LineTotalFormatted string `json:"line_total_formatted"`
}

type quoteView struct {
	Items             []quoteLineView `json:"items"`
	SubtotalCents     int64           `json:"subtotal_cents"`
	SubtotalFormatted string          `json:"subtotal_formatted"`
	TaxCents          int64           `json:"tax_cents"`
	TaxFormatted      string          `json:"tax_formatted"`
	TotalCents        int64           `json:"total_cents"`
	TotalFormatted    string          `json:"total_formatted"`
	Currency          string          `json:"currency"`
}

type CreateOrderResp struct {
	Order          orders.Order   `json:"order"`
	Payment        orders.Payment `json:"payment"`
	TotalFormatted string         `json:"total_formatted"`
	Idempotent     bool           `json:"idempotent"`
}

type CaptureResp struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Order   orders.Order   `json:"order"`
	Payment orders.Payment `json:"payment"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/checkout/view", h.viewCheckout)
	r.Post("/checkout", h.createOrder)
	r.Post("/checkout/{order}/payment/simulate", h.simulatePayment)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func (h *OrdersHandler) viewCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Service.Preview(ctx, req.Items)
	if err != nil {
		h.failed("preview", err)
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteView(q))
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid := userID(r)
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.Cache != nil {
		// redis only short-circuits; the order row stays the source of truth
		if id, ok, err := h.Cache.IdempotentOrder(ctx, uid, idemKey); err == nil && ok {
			if o, err := h.Service.GetOrder(ctx, id, uid); err == nil {
				resp := CreateOrderResp{Order: o, TotalFormatted: orders.FormatCents(o.TotalCents), Idempotent: true}
				if o.Payment != nil {
					resp.Payment = *o.Payment
				}
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
	}

	co, err := h.Service.CreateOrder(ctx, uid, req.Items, req.Currency)
	if err != nil {
		h.failed("create_order", err)
		writeError(w, h.Log, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.OrdersCreated.WithLabelValues(co.Order.Currency).Inc()
	}

	if h.Cache != nil {
		if idemKey != "" {
			if _, err := h.Cache.RememberOrder(ctx, uid, idemKey, co.Order.ID); err != nil {
				h.Log.Warn("idempotency key not stored", zap.String("order_id", co.Order.ID), zap.Error(err))
			}
		}
		h.cacheStatus(ctx, co.Order, co.Payment.Status)
		ids := make([]string, 0, len(co.Order.Items))
		for _, it := range co.Order.Items {
			ids = append(ids, it.ProductID)
		}
		if err := h.Cache.InvalidateProducts(ctx, ids...); err != nil {
			h.Log.Warn("product cache invalidation failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		Order:          co.Order,
		Payment:        co.Payment,
		TotalFormatted: orders.FormatCents(co.Order.TotalCents),
	})
}

func (h *OrdersHandler) simulatePayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	co, err := h.Service.CapturePayment(ctx, orderID, userID(r))
	if err != nil {
		h.failed("capture_payment", err)
		writeError(w, h.Log, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.PaymentsCaptured.WithLabelValues(string(co.Payment.Status)).Inc()
	}
	if h.Cache != nil {
		h.cacheStatus(ctx, co.Order, co.Payment.Status)
	}

	if co.Payment.Status == orders.PaymentSucceeded {
		writeJSON(w, http.StatusOK, CaptureResp{Success: true, Message: "Payment successful", Order: co.Order, Payment: co.Payment})
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, CaptureResp{Success: false, Message: "Payment failed", Order: co.Order, Payment: co.Payment})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.GetOrder(ctx, orderID, userID(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus answers from the redis status cache when it can.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	uid := userID(r)
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if h.Cache != nil {
		if st, ok := h.Cache.OrderStatus(ctx, orderID); ok {
			if st.UserID != uid {
				writeError(w, h.Log, orders.ErrForbidden)
				return
			}
			writeJSON(w, http.StatusOK, st)
			return
		}
	}

	// 2) fallback store
	o, err := h.Service.GetOrder(ctx, orderID, uid)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var ps orders.PaymentStatus
	if o.Payment != nil {
		ps = o.Payment.Status
	}
	if h.Cache != nil {
		h.cacheStatus(ctx, o, ps)
	}
	writeJSON(w, http.StatusOK, redisx.OrderStatus{OrderID: o.ID, UserID: o.UserID, Status: o.Status, PaymentStatus: ps})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order, payment orders.PaymentStatus) {
	st := redisx.OrderStatus{OrderID: o.ID, UserID: o.UserID, Status: o.Status, PaymentStatus: payment}
	if err := h.Cache.SetOrderStatus(ctx, o.ID, st); err != nil {
		h.Log.Warn("order status not cached", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (h *OrdersHandler) failed(op string, err error) {
	if h.Metrics != nil {
		h.Metrics.CheckoutFailures.WithLabelValues(op, string(orders.KindOf(err))).Inc()
	}
}

func toQuoteView(q orders.Quote) quoteView {
	v := quoteView{
		Items:             make([]quoteLineView, 0, len(q.Lines)),
		SubtotalCents:     q.SubtotalCents,
		SubtotalFormatted: orders.FormatCents(q.SubtotalCents),
		TaxCents:          q.TaxCents,
		TaxFormatted:      orders.FormatCents(q.TaxCents),
		TotalCents:        q.TotalCents,
		TotalFormatted:    orders.FormatCents(q.TotalCents),
		Currency:          q.Currency,
	}
	for _, l := range q.Lines {
		v.Items = append(v.Items, quoteLineView{
			ProductID:          l.Product.ID,
			Name:               l.Product.Name,
			UnitPriceCents:     l.Product.PriceCents,
			Quantity:           l.Quantity,
			LineTotalCents:     l.LineTotalCents,
			LineTotalFormatted: orders.FormatCents(l.LineTotalCents),
		})
	}
	return v
}
