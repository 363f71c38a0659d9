package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/shop-checkout/internal/kafka"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Items      []ItemPrice `json:"items"`
	TotalCents int64       `json:"total_cents"`
	Currency   string      `json:"currency"`
}

type PaymentResolvedPayload struct {
	OrderID     string        `json:"order_id"`
	PaymentID   string        `json:"payment_id"`
	Status      PaymentStatus `json:"status"`
	AmountCents int64         `json:"amount_cents"`
	Currency    string        `json:"currency"`
	TxnRef      string        `json:"txn_ref,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// Events receives committed checkout facts. Implementations must not block.
type Events interface {
	OrderCreated(ctx context.Context, o Order)
	PaymentResolved(ctx context.Context, o Order, p Payment)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Notifier publishes checkout events as versioned envelopes, one producer per topic.
type Notifier struct {
	Created   Publisher // order.created
	Succeeded Publisher // order.payment.succeeded
	Failed    Publisher // order.payment.failed
	Service   string
	Now       func() time.Time
}

func (n *Notifier) OrderCreated(_ context.Context, o Order) {
	items := make([]ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPrice{ProductID: it.ProductID, Qty: it.Quantity, UnitPriceCents: it.UnitPriceCents})
	}
	n.publish(n.Created, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID: o.ID, UserID: o.UserID, Items: items, TotalCents: o.TotalCents, Currency: o.Currency,
	})
}

func (n *Notifier) PaymentResolved(_ context.Context, o Order, p Payment) {
	payload := PaymentResolvedPayload{
		OrderID: o.ID, PaymentID: p.ID, Status: p.Status, AmountCents: p.AmountCents, Currency: p.Currency,
	}
	switch r := p.Result.(type) {
	case PaymentApproved:
		payload.TxnRef = r.TxnRef
		n.publish(n.Succeeded, EventPaymentSucceeded, o.ID, payload)
	case PaymentDeclined:
		payload.Reason = r.Reason
		n.publish(n.Failed, EventPaymentFailed, o.ID, payload)
	}
}

func (n *Notifier) publish(p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now().UTC(),
		Producer:      n.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type noEvents struct{}

func (noEvents) OrderCreated(context.Context, Order)               {}
func (noEvents) PaymentResolved(context.Context, Order, Payment) {}
