package orders

import (
	"encoding/json"
	"errors"
	"time"
)

// PaymentResult is the outcome attached to a captured payment: either
// PaymentApproved or PaymentDeclined.
type PaymentResult interface {
	Status() PaymentStatus
	isPaymentResult()
}

type PaymentApproved struct {
	TxnRef      string
	ProcessedAt time.Time
}

type PaymentDeclined struct {
	Reason   string
	FailedAt time.Time
}

func (PaymentApproved) Status() PaymentStatus { return PaymentSucceeded }
func (PaymentDeclined) Status() PaymentStatus { return PaymentFailed }
func (PaymentApproved) isPaymentResult()      {}
func (PaymentDeclined) isPaymentResult()      {}

// resultPayload is the on-disk shape of the payments.payload column.
type resultPayload struct {
	Simulated     bool       `json:"simulated"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
}

// EncodePaymentResult returns nil for a pending payment.
func EncodePaymentResult(r PaymentResult) ([]byte, error) {
	switch v := r.(type) {
	case nil:
		return nil, nil
	case PaymentApproved:
		at := v.ProcessedAt.UTC()
		return json.Marshal(resultPayload{Simulated: true, TransactionID: v.TxnRef, ProcessedAt: &at})
	case PaymentDeclined:
		at := v.FailedAt.UTC()
		return json.Marshal(resultPayload{Simulated: true, Error: v.Reason, FailedAt: &at})
	}
	return nil, errors.New("unknown payment result")
}

func DecodePaymentResult(b []byte) (PaymentResult, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var p resultPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	switch {
	case p.TransactionID != "":
		r := PaymentApproved{TxnRef: p.TransactionID}
		if p.ProcessedAt != nil {
			r.ProcessedAt = *p.ProcessedAt
		}
		return r, nil
	case p.Error != "":
		r := PaymentDeclined{Reason: p.Error}
		if p.FailedAt != nil {
			r.FailedAt = *p.FailedAt
		}
		return r, nil
	}
	return nil, errors.New("payment payload has neither transaction_id nor error")
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type alias Payment
	raw, err := EncodePaymentResult(p.Result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		ResultPayload json.RawMessage `json:"result_payload"`
	}{alias(p), raw})
}
