package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// jwtClaims is the wire payload: the username plus registered iat/exp.
type jwtClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTCodec issues and verifies HS256 bearer tokens.
type JWTCodec struct {
	now func() time.Time
}

// CodecOption configures a JWTCodec.
type CodecOption func(*JWTCodec)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *JWTCodec) { c.now = now }
}

func NewJWTCodec(opts ...CodecOption) *JWTCodec {
	c := &JWTCodec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs claims. Only the username is taken from claims; issue and expiry
// times come from the codec clock and ttl. A ttl <= 0 means domain.TokenTTL.
func (c *JWTCodec) Issue(claims domain.TokenClaims, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", domain.ErrConfiguration
	}
	if ttl <= 0 {
		ttl = domain.TokenTTL
	}

	now := c.now()
	payload := jwtClaims{
		Username: claims.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature and expiry. Every failure other than a
// missing secret yields the same domain.ErrInvalidToken value so callers
// cannot tell which check rejected the token.
func (c *JWTCodec) Verify(token, secret string) (domain.TokenClaims, error) {
	if secret == "" {
		return domain.TokenClaims{}, domain.ErrConfiguration
	}

	var payload jwtClaims
	parsed, err := jwt.ParseWithClaims(token, &payload,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid || payload.Username == "" {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}

	claims := domain.TokenClaims{
		Username:  payload.Username,
		ExpiresAt: payload.ExpiresAt.Time,
	}
	if payload.IssuedAt != nil {
		claims.IssuedAt = payload.IssuedAt.Time
	}
	return claims, nil
}
