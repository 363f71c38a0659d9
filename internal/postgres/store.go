package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/shop-checkout/internal/orders"
)

//go:embed schema.sql
var schema string

// Store implements orders.Store, auth.UserStore and sessions.Store on Postgres.
type Store struct{ DB DB }

func New(db DB) *Store { return &Store{DB: db} }

// Migrate creates missing tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedProducts inserts products that are not there yet.
func (s *Store) SeedProducts(ctx context.Context, ps []orders.Product) error {
	for _, p := range ps {
		if _, err := s.DB.Exec(ctx, `
			INSERT INTO products(id, name, description, price_cents, stock, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

// invalidTextRepresentation is what Postgres answers when an id is not a UUID.
const invalidTextRepresentation = "22P02"

// noRow reports whether err means the id matches no row, including ids that
// cannot be a UUID at all.
func noRow(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

const productColumns = `id, name, description, price_cents, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if noRow(err) {
		return orders.Product{}, fmt.Errorf("%w: %s", orders.ErrProductNotFound, id)
	}
	return p, err
}

func (s *Store) ListAvailableProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE stock > 0 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	var o orders.Order
	var status string
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, subtotal_cents, tax_cents, total_cents, currency, status, created_at, updated_at
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.UserID, &o.SubtotalCents, &o.TaxCents, &o.TotalCents, &o.Currency, &status, &o.CreatedAt, &o.UpdatedAt)
	if noRow(err) {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrOrderNotFound, id)
	}
	if err != nil {
		return orders.Order{}, err
	}
	o.Status = orders.OrderStatus(status)

	rows, err := s.DB.Query(ctx, `
		SELECT i.id, i.product_id, i.unit_price_cents, i.quantity, i.line_total_cents,
		       p.id, p.name, p.description, p.price_cents, p.stock, p.created_at, p.updated_at
		FROM order_items i JOIN products p ON p.id = i.product_id
		WHERE i.order_id=$1 ORDER BY p.name`, id)
	if err != nil {
		return orders.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		it := orders.OrderItem{OrderID: id}
		var p orders.Product
		if err := rows.Scan(&it.ID, &it.ProductID, &it.UnitPriceCents, &it.Quantity, &it.LineTotalCents,
			&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return orders.Order{}, err
		}
		it.Product = &p
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return orders.Order{}, err
	}

	p, err := s.paymentFor(ctx, id)
	if err != nil {
		return orders.Order{}, err
	}
	o.Payment = p
	return o, nil
}

func (s *Store) paymentFor(ctx context.Context, orderID string) (*orders.Payment, error) {
	var p orders.Payment
	var status string
	var payload []byte
	err := s.DB.QueryRow(ctx, `
		SELECT id, order_id, provider, status, amount_cents, currency, payload, created_at, updated_at
		FROM payments WHERE order_id=$1`, orderID,
	).Scan(&p.ID, &p.OrderID, &p.Provider, &status, &p.AmountCents, &p.Currency, &payload, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if noRow(err) {
		return nil, fmt.Errorf("%w: %s", orders.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	p.Status = orders.PaymentStatus(status)
	if p.Result, err = orders.DecodePaymentResult(payload); err != nil {
		return nil, fmt.Errorf("payment %s payload: %w", p.ID, err)
	}
	return &p, nil
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct{ tx pgx.Tx }

func (t *txStore) LockProduct(ctx context.Context, id string) (orders.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id))
	if noRow(err) {
		return orders.Product{}, fmt.Errorf("%w: %s", orders.ErrProductNotFound, id)
	}
	return p, err
}

// DecrementStock re-checks the quantity in the UPDATE itself; zero affected
// rows means the stock is short.
func (t *txStore) DecrementStock(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1 AND stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return &orders.StockShortage{ProductID: productID, Required: qty}
	}
	return nil
}

func (t *txStore) InsertOrder(ctx context.Context, o *orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, subtotal_cents, tax_cents, total_cents, currency, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.UserID, o.SubtotalCents, o.TaxCents, o.TotalCents, o.Currency, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (t *txStore) InsertOrderItem(ctx context.Context, it *orders.OrderItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, unit_price_cents, quantity, line_total_cents)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		it.ID, it.OrderID, it.ProductID, it.UnitPriceCents, it.Quantity, it.LineTotalCents,
	)
	return err
}

func (t *txStore) InsertPayment(ctx context.Context, p *orders.Payment) error {
	payload, err := orders.EncodePaymentResult(p.Result)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO payments(id, order_id, provider, status, amount_cents, currency, payload, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.OrderID, p.Provider, string(p.Status), p.AmountCents, p.Currency, payload, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// ResolvePayment only matches a pending row, so of two concurrent captures
// exactly one updates and the other sees ErrAlreadyProcessed.
func (t *txStore) ResolvePayment(ctx context.Context, orderID string, result orders.PaymentResult, at time.Time) error {
	payload, err := orders.EncodePaymentResult(result)
	if err != nil {
		return err
	}
	ct, err := t.tx.Exec(ctx, `
		UPDATE payments SET status=$2, payload=$3, updated_at=$4
		WHERE order_id=$1 AND status='pending'`,
		orderID, string(result.Status()), payload, at,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrAlreadyProcessed
	}
	return nil
}

func (t *txStore) SetOrderStatus(ctx context.Context, orderID string, status orders.OrderStatus, at time.Time) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1 AND status='pending'`,
		orderID, string(status), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrAlreadyProcessed
	}
	return nil
}
