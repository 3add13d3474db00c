package domain

import "time"

// Token is an opaque bearer credential. An account holds at most one.
type Token struct {
	Key       string    `db:"key"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the token is older than maxAge. A zero maxAge
// means tokens never expire.
func (t *Token) Expired(maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(t.CreatedAt) > maxAge
}
