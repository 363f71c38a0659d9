package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{user_id}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "payment_status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Product read cache: product:{product_id} -> product JSON
	KeyProduct = "product:%s"

	// Logged-out token ids: revoked:{jti}
	KeyRevokedToken = "revoked:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLProduct     = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
