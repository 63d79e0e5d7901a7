package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/99minutos/identity-service/internal/infrastructure/metrics"
)

// Upper bounds accepted when decoding a stored digest, so a tampered row
// cannot make verification allocate unbounded memory.
const (
	maxArgon2Memory     = 1 << 22 // KiB, 4 GiB
	maxArgon2Iterations = 64
)

var errMalformedDigest = errors.New("malformed password digest")

// Argon2Params tunes the argon2id key derivation.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the parameters used when none are configured.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes passwords with argon2id and encodes them in the PHC
// string format, salt included. Digests produced by bcrypt are still
// accepted by Verify so older rows keep working until they are rehashed.
//
// Hashing is memory-hard, so the number of concurrent derivations is bounded
// by a semaphore; callers waiting for a slot give up when their context ends.
type Argon2Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

// NewArgon2Hasher builds a hasher. A concurrency <= 0 defaults to the number
// of CPUs.
func NewArgon2Hasher(params Argon2Params, concurrency int) *Argon2Hasher {
	def := DefaultArgon2Params()
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = def.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Argon2Hasher{params: params, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash derives a digest of plaintext under a fresh random salt.
func (h *Argon2Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	defer observe("hash", time.Now())

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hashing slot: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	h.sem.Release(1)

	return encodeArgon2(h.params, salt, key), nil
}

// Verify compares plaintext against digest in constant time with respect to
// the digest contents.
func (h *Argon2Hasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	defer observe("verify", time.Now())

	if isBcrypt(digest) {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return false, fmt.Errorf("acquire hashing slot: %w", err)
		}
		defer h.sem.Release(1)
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil, nil
	}

	params, salt, key, err := decodeArgon2(digest)
	if err != nil {
		return false, nil
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire hashing slot: %w", err)
	}
	other := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	h.sem.Release(1)

	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// NeedsRehash reports whether digest was not produced with the hasher's
// current parameters.
func (h *Argon2Hasher) NeedsRehash(digest string) bool {
	if isBcrypt(digest) {
		return true
	}
	params, salt, key, err := decodeArgon2(digest)
	if err != nil {
		return true
	}
	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		uint32(len(salt)) != h.params.SaltLength ||
		uint32(len(key)) != h.params.KeyLength
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// encodeArgon2 renders $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>.
func encodeArgon2(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeArgon2(digest string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, errMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2Params{}, nil, nil, errMalformedDigest
	}

	var p Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Argon2Params{}, nil, nil, errMalformedDigest
	}
	if p.Memory == 0 || p.Memory > maxArgon2Memory ||
		p.Iterations == 0 || p.Iterations > maxArgon2Iterations ||
		p.Parallelism == 0 {
		return Argon2Params{}, nil, nil, errMalformedDigest
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2Params{}, nil, nil, errMalformedDigest
	}
	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Argon2Params{}, nil, nil, errMalformedDigest
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

func observe(op string, start time.Time) {
	metrics.PasswordHashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
