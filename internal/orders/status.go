package orders

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

var validOrderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending: {OrderPaid: true, OrderFailed: true},
	OrderPaid:    {},
	OrderFailed:  {},
}

var validPaymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentSucceeded: true, PaymentFailed: true},
	PaymentSucceeded: {},
	PaymentFailed:    {},
}

func CanTransitionOrder(from, to OrderStatus) bool {
	return validOrderNext[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return validPaymentNext[from][to]
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed
}

// OrderStatusFor is the order status that accompanies a terminal payment status.
func OrderStatusFor(p PaymentStatus) OrderStatus {
	switch p {
	case PaymentSucceeded:
		return OrderPaid
	case PaymentFailed:
		return OrderFailed
	}
	return OrderPending
}
