package orders

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	SubtotalCents int64       `json:"subtotal_cents"`
	TaxCents      int64       `json:"tax_cents"`
	TotalCents    int64       `json:"total_cents"`
	Currency      string      `json:"currency"`
	Status        OrderStatus `json:"status"`
	Items         []OrderItem `json:"items"`
	Payment       *Payment    `json:"payment,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem keeps the unit price the product had when the order was placed.
type OrderItem struct {
	ID             string   `json:"id"`
	OrderID        string   `json:"order_id"`
	ProductID      string   `json:"product_id"`
	UnitPriceCents int64    `json:"unit_price_cents"`
	Quantity       int      `json:"quantity"`
	LineTotalCents int64    `json:"line_total_cents"`
	Product        *Product `json:"product,omitempty"`
}

type Payment struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	Provider    string        `json:"provider"`
	Status      PaymentStatus `json:"status"`
	AmountCents int64         `json:"amount_cents"`
	Currency    string        `json:"currency"`
	Result      PaymentResult `json:"-"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Line is one requested (product, quantity) pair.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PricedLine struct {
	Product        Product `json:"product"`
	Quantity       int     `json:"quantity"`
	LineTotalCents int64   `json:"line_total_cents"`
}

type Quote struct {
	Lines         []PricedLine `json:"items"`
	SubtotalCents int64        `json:"subtotal_cents"`
	TaxCents      int64        `json:"tax_cents"`
	TotalCents    int64        `json:"total_cents"`
	Currency      string       `json:"currency"`
}

type Checkout struct {
	Order   Order   `json:"order"`
	Payment Payment `json:"payment"`
}

const ProviderSimulated = "simulated"
