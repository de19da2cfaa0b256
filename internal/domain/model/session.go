package model

import "time"

// Session binds an opaque browser cookie to the node API credential that was
// accepted at login. Credential is plaintext at the domain boundary; the
// storage adapter encrypts it at rest.
type Session struct {
	ID         string
	Credential string
	View       View
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Expired reports whether the session has been idle longer than ttl.
// A non-positive ttl disables expiry.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.LastSeenAt) > ttl
}
