package model

import "time"

// SessionID identifies a server-side session
type SessionID string

// Session is an issued login session. The bearer token handed to clients
// is a signed reference to it, so revoking the session revokes the token.
type Session struct {
	ID         SessionID
	IdentityID IdentityID
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session has passed its expiry at the given time
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SignOutScope selects which sessions a sign-out revokes
type SignOutScope string

const (
	SignOutLocal  SignOutScope = "local"
	SignOutGlobal SignOutScope = "global"
)
