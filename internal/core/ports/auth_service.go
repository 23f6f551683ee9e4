package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// SignupInput carries the registration form.
type SignupInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*TokenPair, *domain.Account, error)
	// Refresh mints a new access token. The refresh token itself is not rotated.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Authenticate resolves a bearer access token to its live account.
	Authenticate(ctx context.Context, accessToken string) (*domain.Account, error)
}
