package domain

import (
	"fmt"
	"time"
)

// ErrNoSession is returned when an operation requires a session and none was presented.
var ErrNoSession = fmt.Errorf("%w: no session", ErrUnauthorized)

// Session binds an opaque token to a username until ExpiresAt.
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
