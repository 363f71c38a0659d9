package orders

const (
	TopicOrderCreated     = "order.created"
	TopicPaymentSucceeded = "order.payment.succeeded"
	TopicPaymentFailed    = "order.payment.failed"
)

// Partition key = order_id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
