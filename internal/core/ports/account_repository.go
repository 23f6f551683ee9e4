package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// AccountRepository defines the credential store.
type AccountRepository interface {
	// Create inserts a new account. A unique violation on email or username
	// is reported as domain.ErrAccountExists.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	// FindByIDs returns the accounts that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Account, error)
}
