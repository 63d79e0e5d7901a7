package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/infrastructure/metrics"
)

// CredentialService implements registration, login and token validation.
type CredentialService struct {
	users  ports.UserRepository
	tx     ports.TxCoordinator
	hasher ports.PasswordHasher
	codec  ports.TokenCodec
	secret string
	ttl    time.Duration
	logger zerolog.Logger

	dummyMu     sync.Mutex
	dummyDigest string
}

var _ ports.CredentialService = (*CredentialService)(nil)

// NewCredentialService fails with domain.ErrConfiguration when secret is empty.
func NewCredentialService(
	users ports.UserRepository,
	tx ports.TxCoordinator,
	hasher ports.PasswordHasher,
	codec ports.TokenCodec,
	secret string,
	logger zerolog.Logger,
) (*CredentialService, error) {
	if secret == "" {
		return nil, domain.ErrConfiguration
	}
	return &CredentialService{
		users:  users,
		tx:     tx,
		hasher: hasher,
		codec:  codec,
		secret: secret,
		ttl:    domain.TokenTTL,
		logger: logger,
	}, nil
}

// Register creates a USER account in its own top-level transaction and
// returns a token for it.
func (s *CredentialService) Register(ctx context.Context, username, password string) (domain.AuthResult, error) {
	return s.RegisterWithin(ctx, nil, username, password)
}

// RegisterWithin is Register run under parent: a save-point when parent is an
// active transaction, a top-level transaction otherwise. The token is issued
// before the unit of work returns, so a failed issue rolls the insert back.
func (s *CredentialService) RegisterWithin(ctx context.Context, parent ports.Executor, username, password string) (domain.AuthResult, error) {
	if err := validateCredentials(username, password); err != nil {
		return domain.AuthResult{}, s.fail("register", username, err)
	}

	var result domain.AuthResult
	err := s.tx.Run(ctx, parent, func(ctx context.Context, tx ports.Executor) error {
		_, err := s.users.FindByUsername(ctx, tx, username)
		switch {
		case err == nil:
			return domain.ErrConflict
		case !errors.Is(err, domain.ErrUserNotFound):
			return err
		}

		digest, err := s.hasher.Hash(ctx, password)
		if err != nil {
			return err
		}

		created, err := s.users.Create(ctx, tx, &domain.User{
			Username:     username,
			PasswordHash: digest,
			Role:         domain.RoleUser,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		token, err := s.codec.Issue(domain.TokenClaims{Username: created.Username}, s.secret, s.ttl)
		if err != nil {
			return err
		}

		result = domain.AuthResult{Token: token, User: created.Public()}
		return nil
	})
	if err != nil {
		return domain.AuthResult{}, s.fail("register", username, err)
	}

	s.logger.Info().Str("username", username).Msg("user registered")
	s.succeed("register")
	return result, nil
}

// Login checks the credentials and issues a token. An unknown username and a
// wrong password produce the same error.
func (s *CredentialService) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	if err := validateCredentials(username, password); err != nil {
		return domain.AuthResult{}, s.fail("login", username, err)
	}

	user, err := s.users.FindByUsername(ctx, s.tx.Ambient(), username)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Spend the same hashing effort as a real mismatch.
		_, _ = s.hasher.Verify(ctx, password, s.dummy(ctx))
		return domain.AuthResult{}, s.fail("login", username, domain.ErrInvalidCredentials)
	}
	if err != nil {
		return domain.AuthResult{}, s.fail("login", username, err)
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return domain.AuthResult{}, s.fail("login", username, err)
	}
	if !ok {
		return domain.AuthResult{}, s.fail("login", username, domain.ErrInvalidCredentials)
	}

	token, err := s.codec.Issue(domain.TokenClaims{Username: user.Username}, s.secret, s.ttl)
	if err != nil {
		return domain.AuthResult{}, s.fail("login", username, err)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.Username, password)
	}

	s.succeed("login")
	return domain.AuthResult{Token: token, User: user.Public()}, nil
}

// ValidateToken resolves token to the current state of its user. Role and
// existence are always re-read from the store.
func (s *CredentialService) ValidateToken(ctx context.Context, token string) (domain.PublicUser, error) {
	claims, err := s.codec.Verify(token, s.secret)
	if err != nil {
		return domain.PublicUser{}, s.fail("validate_token", "", err)
	}

	user, err := s.users.FindByUsername(ctx, s.tx.Ambient(), claims.Username)
	if err != nil {
		return domain.PublicUser{}, s.fail("validate_token", claims.Username, err)
	}

	s.succeed("validate_token")
	return user.Public(), nil
}

// rehash upgrades a digest made with outdated parameters. Failures are logged
// and never affect the login that triggered them.
func (s *CredentialService) rehash(ctx context.Context, username, password string) {
	digest, err := s.hasher.Hash(ctx, password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, s.tx.Ambient(), username, digest)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("username", username).Msg("password rehash failed")
		return
	}
	s.logger.Info().Str("username", username).Msg("password digest upgraded")
}

// dummy returns a digest of a random secret to verify unknown users against.
// It is built on first use and rebuilt on later calls until a hash succeeds.
func (s *CredentialService) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest != "" {
		return s.dummyDigest
	}

	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	digest, err := s.hasher.Hash(context.WithoutCancel(ctx), string(buf))
	if err != nil {
		s.logger.Warn().Err(err).Msg("dummy digest unavailable")
		return ""
	}
	s.dummyDigest = digest
	return digest
}

// fail logs the full cause, counts the outcome and returns the user-safe
// canonical error for its kind.
func (s *CredentialService) fail(op, username string, err error) error {
	kind := domain.KindOf(err)

	event := s.logger.Warn()
	if kind == domain.KindInternal || kind == domain.KindConfiguration {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("operation", op).
		Str("username", username).
		Str("kind", string(kind)).
		Msg("credential operation failed")

	metrics.AuthOperationsTotal.WithLabelValues(op, strings.ToLower(string(kind))).Inc()
	return domain.Sanitize(err)
}

func (s *CredentialService) succeed(op string) {
	metrics.AuthOperationsTotal.WithLabelValues(op, "ok").Inc()
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return domain.ErrInvalidInput
	}
	if utf8.RuneCountInString(username) > domain.MaxUsernameLength {
		return domain.ErrInvalidInput
	}
	return nil
}
