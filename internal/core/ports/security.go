package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// PasswordHasher produces and checks one-way salted password digests.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A malformed digest is a
	// mismatch, not an error; errors are reserved for cancellation.
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
	// NeedsRehash reports whether digest was produced with outdated parameters.
	NeedsRehash(digest string) bool
}

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	// Issue fails with domain.ErrConfiguration when secret is empty.
	Issue(claims domain.TokenClaims, secret string, ttl time.Duration) (string, error)
	// Verify fails with domain.ErrConfiguration when secret is empty and with
	// domain.ErrInvalidToken for every other failure.
	Verify(token, secret string) (domain.TokenClaims, error)
}
