package domain

import "time"

// TokenTTL is the lifetime of every issued bearer token.
const TokenTTL = 24 * time.Hour

// TokenClaims is the payload embedded in a bearer token. It carries neither the
// numeric user ID nor the role: the role is always re-read from the store.
type TokenClaims struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
