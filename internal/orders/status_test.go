package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentSucceeded))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentFailed))
	assert.False(t, CanTransitionPayment(PaymentSucceeded, PaymentFailed))
	assert.False(t, CanTransitionPayment(PaymentFailed, PaymentSucceeded))
	assert.False(t, CanTransitionPayment(PaymentFailed, PaymentPending))

	assert.True(t, CanTransitionOrder(OrderPending, OrderPaid))
	assert.False(t, CanTransitionOrder(OrderPaid, OrderPending))
	assert.False(t, CanTransitionOrder(OrderFailed, OrderPaid))

	assert.False(t, PaymentPending.Terminal())
	assert.True(t, PaymentFailed.Terminal())
	assert.Equal(t, OrderPaid, OrderStatusFor(PaymentSucceeded))
	assert.Equal(t, OrderFailed, OrderStatusFor(PaymentFailed))
	assert.Equal(t, OrderPending, OrderStatusFor(PaymentPending))
}
