package orders

import (
	"context"
	"time"
)

// Catalog is the read side of the product table. Reads take no locks.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListAvailableProducts(ctx context.Context) ([]Product, error)
}

// Store is the persistence boundary of the checkout workflow.
type Store interface {
	Catalog
	// GetOrder loads the order with its items (and product snapshots) and payment.
	GetOrder(ctx context.Context, id string) (Order, error)
	// WithTx runs fn in one transaction: committed if fn returns nil, rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	// LockProduct reads the product and holds an exclusive lock on it until the
	// transaction ends. Returns ErrProductNotFound for unknown ids.
	LockProduct(ctx context.Context, id string) (Product, error)
	// DecrementStock must only be called for a product locked in this transaction.
	DecrementStock(ctx context.Context, productID string, qty int) error

	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItem(ctx context.Context, it *OrderItem) error
	InsertPayment(ctx context.Context, p *Payment) error

	// ResolvePayment moves the order's payment from pending to the result's
	// status in a single conditional update. ErrAlreadyProcessed if the payment
	// is no longer pending.
	ResolvePayment(ctx context.Context, orderID string, result PaymentResult, at time.Time) error
	// SetOrderStatus moves a pending order to status.
	SetOrderStatus(ctx context.Context, orderID string, status OrderStatus, at time.Time) error
}
