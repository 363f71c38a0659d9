package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/shop-checkout/internal/kafka"
)

type sentMessage struct {
	key, value []byte
	headers    []kafkago.Header
}

type capturePublisher struct{ sent []sentMessage }

func (c *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	c.sent = append(c.sent, sentMessage{key: key, value: value, headers: headers})
}

func TestNotifierOrderCreated(t *testing.T) {
	created := &capturePublisher{}
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	n := &Notifier{Created: created, Service: "checkout-api", Now: func() time.Time { return at }}

	n.OrderCreated(context.Background(), Order{
		ID: "o-1", UserID: "u-1", TotalCents: 3240, Currency: "USD",
		Items: []OrderItem{{ProductID: "p-1", Quantity: 3, UnitPriceCents: 1000}},
	})

	require.Len(t, created.sent, 1)
	msg := created.sent[0]
	assert.Equal(t, PartitionKey("o-1"), msg.key)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.value, &env))
	assert.Equal(t, EventOrderCreated, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "checkout-api", env.Producer)
	assert.Equal(t, "o-1", env.CorrelationID)
	assert.True(t, at.Equal(env.OccurredAt))
	assert.NotEmpty(t, env.EventID)
	assert.JSONEq(t, `{"order_id":"o-1","user_id":"u-1","items":[{"product_id":"p-1","qty":3,"unit_price_cents":1000}],"total_cents":3240,"currency":"USD"}`, string(env.Payload))

	payload, err := kafkax.Decode[OrderCreatedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, []ItemPrice{{ProductID: "p-1", Qty: 3, UnitPriceCents: 1000}}, payload.Items)

	require.Len(t, msg.headers, 2)
	assert.Equal(t, "x-event-type", msg.headers[0].Key)
	assert.Equal(t, EventOrderCreated, string(msg.headers[0].Value))
}

func TestNotifierRoutesPaymentOutcomes(t *testing.T) {
	ok, failed := &capturePublisher{}, &capturePublisher{}
	n := &Notifier{Succeeded: ok, Failed: failed, Service: "checkout-api"}
	o := Order{ID: "o-2"}

	n.PaymentResolved(context.Background(), o, Payment{
		ID: "pay-1", Status: PaymentSucceeded, AmountCents: 100, Currency: "EUR",
		Result: PaymentApproved{TxnRef: "SIM_x"},
	})
	n.PaymentResolved(context.Background(), o, Payment{
		ID: "pay-1", Status: PaymentFailed, AmountCents: 100, Currency: "EUR",
		Result: PaymentDeclined{Reason: DeclineReason},
	})

	require.Len(t, ok.sent, 1)
	require.Len(t, failed.sent, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(ok.sent[0].value, &env))
	assert.Equal(t, EventPaymentSucceeded, env.EventType)
	assert.JSONEq(t, `{"order_id":"o-2","payment_id":"pay-1","status":"succeeded","amount_cents":100,"currency":"EUR","txn_ref":"SIM_x"}`, string(env.Payload))

	require.NoError(t, json.Unmarshal(failed.sent[0].value, &env))
	assert.Equal(t, EventPaymentFailed, env.EventType)
	assert.JSONEq(t, `{"order_id":"o-2","payment_id":"pay-1","status":"failed","amount_cents":100,"currency":"EUR","reason":"Insufficient funds"}`, string(env.Payload))
}

func TestNotifierSkipsMissingProducer(t *testing.T) {
	n := &Notifier{}
	n.OrderCreated(context.Background(), Order{ID: "o-3"})
	n.PaymentResolved(context.Background(), Order{ID: "o-3"}, Payment{Result: PaymentApproved{}})
}
