package session

import "time"

// Session is one ephemeral capability: an opaque token bound to a user with
// a fixed expiry. Multiple concurrent sessions per user are allowed.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now. Validity is
// a strict-future check on the expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
