package cache

import "time"

// expiry evaluates write and idle TTLs. Expiration is derived at access time,
// never stored: an entry is expired once either configured TTL has elapsed.
type expiry struct {
	writeTTL int64 // 0 = disabled
	idleTTL  int64 // 0 = disabled
}

func newExpiry(writeTTL, idleTTL time.Duration) expiry {
	return expiry{writeTTL: int64(writeTTL), idleTTL: int64(idleTTL)}
}

func (x expiry) enabled() bool { return x.writeTTL > 0 || x.idleTTL > 0 }

func (x expiry) expired(writeTime, accessTime, now int64) bool {
	if x.writeTTL > 0 && now-writeTime > x.writeTTL {
		return true
	}
	return x.idleTTL > 0 && now-accessTime > x.idleTTL
}
