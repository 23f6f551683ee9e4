package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

const (
	DefaultAccessTokenTTL  = 60 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var errMissingSecret = errors.New("token service: access and refresh secrets are required")

// TokenService issues and verifies stateless HS256 session tokens. Access and
// refresh tokens are signed with distinct secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService fails when either secret is empty or both are the same.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errMissingSecret
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("token service: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	s := &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue returns a fresh access and refresh token for subject.
func (s *TokenService) Issue(subject string) (access, refresh string, err error) {
	access, err = s.sign(subject, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, err = s.sign(subject, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	return access, refresh, nil
}

// VerifyAccess returns the subject of a valid access token. Every failure is
// reported as domain.ErrTokenExpired or domain.ErrUnauthorized.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh is VerifyAccess for refresh tokens.
func (s *TokenService) VerifyRefresh(token string) (string, error) {
	return s.verify(token, s.refreshSecret)
}

// Rotate exchanges a valid refresh token for a new access token only.
func (s *TokenService) Rotate(refreshToken string) (string, error) {
	subject, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	access, err := s.sign(subject, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("rotate: %w", err)
	}
	return access, nil
}

func (s *TokenService) sign(subject string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) verify(token string, secret []byte) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrUnauthorized
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", domain.ErrUnauthorized
	}
	return claims.Subject, nil
}
