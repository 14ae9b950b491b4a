package redisx

import "time"

const (
	// Tracking page cache: track:{order_number} -> {"status":...,"payment_status":...}
	KeyTrack = "track:%s"

	// Event dedup for consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLTrack = 5 * time.Minute
	TTLDedup = 48 * time.Hour
)
