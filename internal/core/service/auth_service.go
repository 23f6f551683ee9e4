package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

// AuthService implements signup, login, token refresh and bearer resolution.
type AuthService struct {
	repo        ports.AccountRepository
	tokens      *TokenService
	adminEmails map[string]struct{}
	log         zerolog.Logger
	now         func() time.Time
}

// NewAuthService builds an AuthService. Accounts registering with an email in
// adminEmails get the Admin position.
func NewAuthService(repo ports.AccountRepository, tokens *TokenService, adminEmails []string, log zerolog.Logger) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AuthService{
		repo:        repo,
		tokens:      tokens,
		adminEmails: admins,
		log:         log,
		now:         time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Account, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || in.Password == "" {
		return nil, fmt.Errorf("signup: %w", domain.ErrInvalidInput)
	}

	// Fast path only; the unique indexes decide under concurrency.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("signup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	position := domain.PositionDoctor
	if _, ok := s.adminEmails[email]; ok {
		position = domain.PositionAdmin
	}

	created, err := s.repo.Create(ctx, &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Position:     position,
		CreatedAt:    storedTime(s.now()),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.log.Info().Uint("account_id", created.ID).Str("position", created.Position).Msg("account created")
	return created, nil
}

// Login does not distinguish an unknown email from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.TokenPair, *domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.Issue(account.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh}, account, nil
}

func (s *AuthService) Refresh(_ context.Context, refreshToken string) (string, error) {
	return s.tokens.Rotate(refreshToken)
}

// Authenticate fails with domain.ErrAccountNotFound when the subject was
// removed after the token was issued.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	email, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
