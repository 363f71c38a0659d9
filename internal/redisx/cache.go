package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/shop-checkout/internal/orders"
)

// Cache wraps the redis shortcuts used around checkout. The database stays the
// source of truth; every method here is best-effort for callers.
type Cache struct {
	RDB *redis.Client
}

func (c *Cache) Product(ctx context.Context, id string) (orders.Product, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyProduct, id)).Bytes()
	if err != nil {
		return orders.Product{}, false
	}
	var p orders.Product
	if err := json.Unmarshal(b, &p); err != nil {
		return orders.Product{}, false
	}
	return p, true
}

func (c *Cache) SetProduct(ctx context.Context, p orders.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyProduct, p.ID), b, TTLProduct).Err()
}

func (c *Cache) InvalidateProducts(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(KeyProduct, id))
	}
	return c.RDB.Del(ctx, keys...).Err()
}

type OrderStatus struct {
	OrderID       string               `json:"order_id"`
	UserID        string               `json:"user_id"`
	Status        orders.OrderStatus   `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

func (c *Cache) SetOrderStatus(ctx context.Context, orderID string, st OrderStatus) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

func (c *Cache) OrderStatus(ctx context.Context, orderID string) (OrderStatus, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if err != nil {
		return OrderStatus{}, false
	}
	var st OrderStatus
	if err := json.Unmarshal(b, &st); err != nil {
		return OrderStatus{}, false
	}
	return st, true
}

// IdempotentOrder returns the order id stored for (userID, key).
func (c *Cache) IdempotentOrder(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := c.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// RememberOrder stores the first order created for (userID, key). It reports
// false when another request already claimed the key.
func (c *Cache) RememberOrder(ctx context.Context, userID, key, orderID string) (bool, error) {
	return c.RDB.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key), orderID, TTLIdempotency).Result()
}

// TokenRevocations implements auth.Revocations.
type TokenRevocations struct {
	RDB *redis.Client
}

func (r *TokenRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.RDB.Set(ctx, fmt.Sprintf(KeyRevokedToken, tokenID), "1", ttl).Err()
}

func (r *TokenRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return Exists(ctx, r.RDB, fmt.Sprintf(KeyRevokedToken, tokenID))
}
