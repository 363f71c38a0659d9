package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Options struct {
	TaxRate    TaxRate
	Currencies Currencies
	Outcomes   OutcomeSource
	Events     Events
	Logger     *zap.Logger
	Now        func() time.Time
	NewID      func() string
	NewTxnRef  func() string
}

// Service is the checkout workflow: preview, order creation and payment capture.
type Service struct {
	store      Store
	pricer     Pricer
	currencies Currencies
	simulator  Simulator
	events     Events
	log        *zap.Logger
	now        func() time.Time
	newID      func() string
	tracer     trace.Tracer
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:      store,
		pricer:     Pricer{TaxRate: opts.TaxRate},
		currencies: opts.Currencies,
		simulator:  Simulator{Outcomes: opts.Outcomes, NewRef: opts.NewTxnRef},
		events:     opts.Events,
		log:        opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
		tracer:     otel.Tracer("github.com/ariefcatur/shop-checkout/internal/orders"),
	}
	if s.events == nil {
		s.events = noEvents{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.simulator.Outcomes == nil {
		s.simulator.Outcomes = NewRandomOutcome(0.9, time.Now().UnixNano())
	}
	if s.currencies.Base == "" {
		s.currencies = Currencies{Base: "USD", Allowed: []string{"USD", "EUR", "PKR"}}
	}
	return s
}

// Preview prices the cart in the base currency. Stock is read, never locked or changed.
func (s *Service) Preview(ctx context.Context, lines []Line) (Quote, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.preview", trace.WithAttributes(attribute.Int("lines", len(lines))))
	defer span.End()

	q, err := s.pricer.Preview(ctx, s.store, lines)
	if err != nil {
		s.fail(span, "preview", err)
		return Quote{}, err
	}
	q.Currency = s.currencies.Base
	return q, nil
}

// CreateOrder prices, persists and reserves stock for lines in one transaction.
func (s *Service) CreateOrder(ctx context.Context, userID string, lines []Line, currency string) (Checkout, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.create_order", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.Int("lines", len(lines)),
	))
	defer span.End()

	if len(lines) == 0 {
		s.fail(span, "create_order", ErrEmptyCart)
		return Checkout{}, ErrEmptyCart
	}
	for _, ln := range lines {
		if ln.Quantity < 1 {
			err := fmt.Errorf("%w: product %s", ErrInvalidQuantity, ln.ProductID)
			s.fail(span, "create_order", err)
			return Checkout{}, err
		}
	}
	cur, err := s.currencies.Normalize(currency)
	if err != nil {
		s.fail(span, "create_order", err)
		return Checkout{}, err
	}

	now := s.now()
	var out Checkout
	err = s.store.WithTx(ctx, func(tx Tx) error {
		quote, err := s.pricer.PriceLocked(ctx, tx, lines)
		if err != nil {
			return err
		}

		order := Order{
			ID:            s.newID(),
			UserID:        userID,
			SubtotalCents: quote.SubtotalCents,
			TaxCents:      quote.TaxCents,
			TotalCents:    quote.TotalCents,
			Currency:      cur,
			Status:        OrderPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, pl := range quote.Lines {
			prod := pl.Product
			item := OrderItem{
				ID:             s.newID(),
				OrderID:        order.ID,
				ProductID:      prod.ID,
				UnitPriceCents: prod.PriceCents,
				Quantity:       pl.Quantity,
				LineTotalCents: pl.LineTotalCents,
				Product:        &prod,
			}
			if err := tx.InsertOrderItem(ctx, &item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if err := tx.DecrementStock(ctx, prod.ID, pl.Quantity); err != nil {
				return fmt.Errorf("decrement stock of %s: %w", prod.ID, err)
			}
			order.Items = append(order.Items, item)
		}

		payment := Payment{
			ID:          s.newID(),
			OrderID:     order.ID,
			Provider:    ProviderSimulated,
			Status:      PaymentPending,
			AmountCents: order.TotalCents,
			Currency:    cur,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		order.Payment = &payment
		out = Checkout{Order: order, Payment: payment}
		return nil
	})
	if err != nil {
		s.fail(span, "create_order", err)
		return Checkout{}, err
	}

	span.SetAttributes(attribute.String("order_id", out.Order.ID), attribute.Int64("total_cents", out.Order.TotalCents))
	s.log.Info("order created",
		zap.String("order_id", out.Order.ID),
		zap.String("user_id", userID),
		zap.Int64("total_cents", out.Order.TotalCents),
		zap.String("currency", cur),
	)
	s.events.OrderCreated(ctx, out.Order)
	return out, nil
}

// CapturePayment resolves the pending payment of the caller's order exactly once.
func (s *Service) CapturePayment(ctx context.Context, orderID, userID string) (Checkout, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.capture_payment", trace.WithAttributes(
		attribute.String("order_id", orderID),
		attribute.String("user_id", userID),
	))
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		s.fail(span, "capture_payment", err)
		return Checkout{}, err
	}
	if order.UserID != userID {
		s.fail(span, "capture_payment", ErrForbidden)
		return Checkout{}, ErrForbidden
	}
	if order.Payment == nil {
		err := fmt.Errorf("order %s has no payment", orderID)
		s.fail(span, "capture_payment", err)
		return Checkout{}, err
	}
	if order.Payment.Status.Terminal() {
		s.fail(span, "capture_payment", ErrAlreadyProcessed)
		return Checkout{}, ErrAlreadyProcessed
	}

	now := s.now()
	result := s.simulator.Capture(now)
	orderStatus := OrderStatusFor(result.Status())
	err = s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.ResolvePayment(ctx, orderID, result, now); err != nil {
			return err
		}
		return tx.SetOrderStatus(ctx, orderID, orderStatus, now)
	})
	if err != nil {
		s.fail(span, "capture_payment", err)
		return Checkout{}, err
	}

	payment := *order.Payment
	payment.Status = result.Status()
	payment.Result = result
	payment.UpdatedAt = now
	order.Status = orderStatus
	order.UpdatedAt = now
	order.Payment = &payment

	span.SetAttributes(attribute.String("payment_status", string(payment.Status)))
	s.log.Info("payment captured",
		zap.String("order_id", orderID),
		zap.String("payment_status", string(payment.Status)),
	)
	s.events.PaymentResolved(ctx, order, payment)
	return Checkout{Order: order, Payment: payment}, nil
}

// GetOrder returns the order if it belongs to userID.
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.store.ListAvailableProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) fail(span trace.Span, op string, err error) {
	kind := KindOf(err)
	span.SetAttributes(attribute.String("error.kind", string(kind)))
	if kind != KindInternal {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.Error("checkout operation failed", zap.String("op", op), zap.Error(err))
}
