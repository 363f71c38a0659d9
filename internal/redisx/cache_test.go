package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/shop-checkout/internal/orders"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestIdempotencyKeyIsClaimedOnce(t *testing.T) {
	rdb, mr := newTestClient(t)
	c := &Cache{RDB: rdb}
	ctx := context.Background()

	_, ok, err := c.IdempotentOrder(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := c.RememberOrder(ctx, "u1", "k1", "order-1")
	require.NoError(t, err)
	assert.True(t, first)
	again, err := c.RememberOrder(ctx, "u1", "k1", "order-2")
	require.NoError(t, err)
	assert.False(t, again)

	id, ok, err := c.IdempotentOrder(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", id)

	// keys are scoped per user
	_, ok, err = c.IdempotentOrder(ctx, "u2", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, TTLIdempotency, mr.TTL("idem:order:create:u1:k1"))
}

func TestOrderStatusCacheExpires(t *testing.T) {
	rdb, mr := newTestClient(t)
	c := &Cache{RDB: rdb}
	ctx := context.Background()

	want := OrderStatus{OrderID: "o1", UserID: "u1", Status: orders.OrderPaid, PaymentStatus: orders.PaymentSucceeded}
	require.NoError(t, c.SetOrderStatus(ctx, "o1", want))

	got, ok := c.OrderStatus(ctx, "o1")
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(TTLStatusCache + time.Second)
	_, ok = c.OrderStatus(ctx, "o1")
	assert.False(t, ok)
}

func TestProductCacheInvalidation(t *testing.T) {
	rdb, _ := newTestClient(t)
	c := &Cache{RDB: rdb}
	ctx := context.Background()

	p := orders.Product{ID: "p1", Name: "Mouse", PriceCents: 2999, Stock: 4}
	require.NoError(t, c.SetProduct(ctx, p))
	got, ok := c.Product(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, p.PriceCents, got.PriceCents)
	assert.Equal(t, p.Stock, got.Stock)

	require.NoError(t, c.InvalidateProducts(ctx, "p1", "p2"))
	_, ok = c.Product(ctx, "p1")
	assert.False(t, ok)
	require.NoError(t, c.InvalidateProducts(ctx))
}

func TestCorruptCacheEntryIsAMiss(t *testing.T) {
	rdb, mr := newTestClient(t)
	c := &Cache{RDB: rdb}
	require.NoError(t, mr.Set("order_status:o1", "{broken"))
	_, ok := c.OrderStatus(context.Background(), "o1")
	assert.False(t, ok)
}

func TestTokenRevocations(t *testing.T) {
	rdb, mr := newTestClient(t)
	r := &TokenRevocations{RDB: rdb}
	ctx := context.Background()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
