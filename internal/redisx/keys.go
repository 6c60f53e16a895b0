package redisx

import "time"

const (
	// Idempotent order creation: idem:order:create:{user_id}:{route}:{key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s:%s"

	// Dedup of callback processing: dedup:{service}:{id} (id = order_id:status)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
	// an in-flight claim must outlive the request that holds it
	TTLInFlight = 2 * time.Minute
)
