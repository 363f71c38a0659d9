package orders

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePaymentResultShapes(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	b, err := EncodePaymentResult(PaymentApproved{TxnRef: "SIM_abc", ProcessedAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"simulated":true,"transaction_id":"SIM_abc","processed_at":"2025-03-01T12:00:00Z"}`, string(b))

	b, err = EncodePaymentResult(PaymentDeclined{Reason: DeclineReason, FailedAt: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"simulated":true,"error":"Insufficient funds","failed_at":"2025-03-01T12:00:00Z"}`, string(b))

	b, err = EncodePaymentResult(nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestDecodePaymentResult(t *testing.T) {
	r, err := DecodePaymentResult([]byte(`{"simulated":true,"error":"Insufficient funds","failed_at":"2025-03-01T12:00:00Z"}`))
	require.NoError(t, err)
	declined, ok := r.(PaymentDeclined)
	require.True(t, ok)
	assert.Equal(t, PaymentFailed, declined.Status())
	assert.Equal(t, DeclineReason, declined.Reason)

	r, err = DecodePaymentResult(nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = DecodePaymentResult([]byte(`{"simulated":true}`))
	assert.Error(t, err)
}

func TestPaymentJSONCarriesResultPayload(t *testing.T) {
	p := Payment{ID: "p1", Status: PaymentSucceeded, Result: PaymentApproved{TxnRef: "SIM_1", ProcessedAt: time.Unix(0, 0)}}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "succeeded", out["status"])
	payload, ok := out["result_payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SIM_1", payload["transaction_id"])

	b, err = json.Marshal(Payment{ID: "p2", Status: PaymentPending})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"result_payload":null`)
}

func TestSimulatorUsesOutcomeSource(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := Simulator{Outcomes: FixedOutcome(true), NewRef: func() string { return "SIM_fixed" }}.Capture(now)
	assert.Equal(t, PaymentApproved{TxnRef: "SIM_fixed", ProcessedAt: now}, ok)

	declined := Simulator{Outcomes: FixedOutcome(false)}.Capture(now)
	assert.Equal(t, PaymentDeclined{Reason: DeclineReason, FailedAt: now}, declined)

	ref := Simulator{Outcomes: FixedOutcome(true)}.Capture(now).(PaymentApproved).TxnRef
	assert.Regexp(t, `^SIM_[0-9a-f-]{36}$`, ref)
}

func TestRandomOutcomeIsSeeded(t *testing.T) {
	a, b := NewRandomOutcome(0.5, 42), NewRandomOutcome(0.5, 42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Approve(), b.Approve())
	}
	always := NewRandomOutcome(1, 7)
	never := NewRandomOutcome(0, 7)
	for i := 0; i < 20; i++ {
		assert.True(t, always.Approve())
		assert.False(t, never.Approve())
	}
}
