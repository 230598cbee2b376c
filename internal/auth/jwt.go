package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the shortest HS256 key NewTokenService accepts.
const MinKeyBytes = 32

// TokenConfig is the immutable signing configuration, loaded once at startup.
type TokenConfig struct {
	Key      []byte
	Validity time.Duration
}

// TokenService issues and verifies HS256 tokens carrying sub, iat and exp.
type TokenService struct {
	key      []byte
	validity time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService copies the key so later changes to cfg.Key have no effect.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Key) < MinKeyBytes {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrWeakSigningKey, MinKeyBytes, len(cfg.Key))
	}
	if cfg.Validity <= 0 {
		return nil, errors.New("token validity must be positive")
	}

	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)

	s := &TokenService{
		key:      key,
		validity: cfg.Validity,
		now:      time.Now,
		// Expiry is checked in Verify so that now == exp is still valid.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validity returns the configured token lifetime.
func (s *TokenService) Validity() time.Duration { return s.validity }

// Issue creates a signed token for subject.
func (s *TokenService) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the subject.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := s.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return "", ErrTokenInvalid
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	return claims.Subject, nil
}
