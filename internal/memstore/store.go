// Package memstore keeps products, orders, payments, users and login sessions
// in process memory. Product and order rows carry exclusive locks with the same
// lifetime as in Postgres: taken inside a transaction and released when it
// commits or rolls back.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/shop-checkout/internal/auth"
	"github.com/ariefcatur/shop-checkout/internal/orders"
	"github.com/ariefcatur/shop-checkout/internal/sessions"
)

type Store struct {
	mu       sync.Mutex
	products map[string]orders.Product
	orders   map[string]orders.Order
	items    map[string][]orders.OrderItem
	payments map[string]orders.Payment // keyed by order id
	users    map[string]auth.User
	sessions map[string][]sessions.Session // keyed by user id, oldest first

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

func New() *Store {
	return &Store{
		products: map[string]orders.Product{},
		orders:   map[string]orders.Order{},
		items:    map[string][]orders.OrderItem{},
		payments: map[string]orders.Payment{},
		users:    map[string]auth.User{},
		sessions: map[string][]sessions.Session{},
		locks:    map[string]chan struct{}{},
	}
}

var (
	_ orders.Store   = (*Store)(nil)
	_ auth.UserStore = (*Store)(nil)
	_ sessions.Store = (*Store)(nil)
)

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) GetProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, fmt.Errorf("%w: %s", orders.ErrProductNotFound, id)
	}
	return p, nil
}

func (s *Store) ListAvailableProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Stock > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrOrderNotFound, id)
	}
	for _, it := range s.items[id] {
		if p, ok := s.products[it.ProductID]; ok {
			it.Product = &p
		}
		o.Items = append(o.Items, it)
	}
	if p, ok := s.payments[id]; ok {
		o.Payment = &p
	}
	return o, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	t := &tx{s: s, held: map[string]bool{}, stock: map[string]int{}, payments: map[string]orders.Payment{}}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, op := range t.ops {
		op()
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) rowLock(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// tx stages writes in ops and applies them at commit.
type tx struct {
	s        *Store
	held     map[string]bool
	order    []string
	stock    map[string]int
	payments map[string]orders.Payment
	ops      []func()
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	select {
	case t.s.rowLock(key) <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.held[key] = true
	t.order = append(t.order, key)
	return nil
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		<-t.s.rowLock(t.order[i])
	}
	t.order = nil
	t.held = map[string]bool{}
}

func (t *tx) LockProduct(ctx context.Context, id string) (orders.Product, error) {
	if _, err := t.s.GetProduct(ctx, id); err != nil {
		return orders.Product{}, err
	}
	if err := t.lock(ctx, "product:"+id); err != nil {
		return orders.Product{}, err
	}
	p, err := t.s.GetProduct(ctx, id)
	if err != nil {
		return orders.Product{}, err
	}
	if st, ok := t.stock[id]; ok {
		p.Stock = st
	}
	return p, nil
}

func (t *tx) DecrementStock(ctx context.Context, productID string, qty int) error {
	if !t.held["product:"+productID] {
		return fmt.Errorf("product %s is not locked by this transaction", productID)
	}
	cur, ok := t.stock[productID]
	if !ok {
		p, err := t.s.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		cur = p.Stock
	}
	if cur < qty {
		return &orders.StockShortage{ProductID: productID, Required: qty, Available: cur}
	}
	t.stock[productID] = cur - qty
	left := cur - qty
	t.ops = append(t.ops, func() {
		p := t.s.products[productID]
		p.Stock = left
		t.s.products[productID] = p
	})
	return nil
}

func (t *tx) InsertOrder(_ context.Context, o *orders.Order) error {
	row := *o
	row.Items, row.Payment = nil, nil
	t.ops = append(t.ops, func() { t.s.orders[row.ID] = row })
	return nil
}

func (t *tx) InsertOrderItem(_ context.Context, it *orders.OrderItem) error {
	row := *it
	row.Product = nil
	t.ops = append(t.ops, func() { t.s.items[row.OrderID] = append(t.s.items[row.OrderID], row) })
	return nil
}

func (t *tx) InsertPayment(_ context.Context, p *orders.Payment) error {
	row := *p
	t.ops = append(t.ops, func() { t.s.payments[row.OrderID] = row })
	return nil
}

func (t *tx) ResolvePayment(ctx context.Context, orderID string, result orders.PaymentResult, at time.Time) error {
	if err := t.lock(ctx, "order:"+orderID); err != nil {
		return err
	}
	t.s.mu.Lock()
	p, ok := t.s.payments[orderID]
	t.s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", orders.ErrOrderNotFound, orderID)
	}
	if staged, ok := t.payments[orderID]; ok {
		p = staged
	}
	if !orders.CanTransitionPayment(p.Status, result.Status()) {
		return orders.ErrAlreadyProcessed
	}
	p.Status = result.Status()
	p.Result = result
	p.UpdatedAt = at
	t.payments[orderID] = p
	t.ops = append(t.ops, func() { t.s.payments[orderID] = p })
	return nil
}

func (t *tx) SetOrderStatus(ctx context.Context, orderID string, status orders.OrderStatus, at time.Time) error {
	if err := t.lock(ctx, "order:"+orderID); err != nil {
		return err
	}
	t.s.mu.Lock()
	o, ok := t.s.orders[orderID]
	t.s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", orders.ErrOrderNotFound, orderID)
	}
	if !orders.CanTransitionOrder(o.Status, status) {
		return orders.ErrAlreadyProcessed
	}
	t.ops = append(t.ops, func() {
		row := t.s.orders[orderID]
		row.Status = status
		row.UpdatedAt = at
		t.s.orders[orderID] = row
	})
	return nil
}
