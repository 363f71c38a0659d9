package orders

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DeclineReason = "Insufficient funds"

// OutcomeSource decides whether a simulated capture succeeds.
type OutcomeSource interface {
	Approve() bool
}

// RandomOutcome approves with probability SuccessRate.
type RandomOutcome struct {
	SuccessRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomOutcome(successRate float64, seed int64) *RandomOutcome {
	return &RandomOutcome{SuccessRate: successRate, rng: rand.New(rand.NewSource(seed))}
}

func (o *RandomOutcome) Approve() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64() < o.SuccessRate
}

// FixedOutcome always returns the same decision.
type FixedOutcome bool

func (f FixedOutcome) Approve() bool { return bool(f) }

// Simulator turns an outcome decision into a payment result.
type Simulator struct {
	Outcomes OutcomeSource
	NewRef   func() string
}

func (s Simulator) Capture(now time.Time) PaymentResult {
	if !s.Outcomes.Approve() {
		return PaymentDeclined{Reason: DeclineReason, FailedAt: now}
	}
	ref := s.NewRef
	if ref == nil {
		ref = simulatedTxnRef
	}
	return PaymentApproved{TxnRef: ref(), ProcessedAt: now}
}

func simulatedTxnRef() string { return "SIM_" + uuid.NewString() }
