package redisx

import "time"

const (
	// Cache detail pool utk GET: pool:{pool_id} -> JSON
	KeyPoolCache = "pool:%s"

	// Dedup event processing di notifier: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Flood limiter per user per aksi: rl:{action}:{user_id}:{window}
	KeyRateLimit = "rl:%s:%s:%d"

	// In-app notification feed per user: list notif:{user_id}
	KeyUserNotif = "notif:%s"
)

var (
	TTLPoolCache = 30 * time.Second
	TTLDedup     = 48 * time.Hour
	TTLUserNotif = 14 * 24 * time.Hour
)

// MaxUserNotif caps the per-user notification list (LTRIM).
const MaxUserNotif = 100
