package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// AccountRepository implements ports.AccountRepository on the users table.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	row := accountRow{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		FullName:     a.FullName,
		Position:     a.Position,
		CreatedAt:    a.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if mapped := translateUnique(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	created := accountFromRow(row)
	return &created, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *AccountRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Account, error) {
	out := make(map[uint]domain.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []accountRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = accountFromRow(row)
	}
	return out, nil
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var row accountRow
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	a := accountFromRow(row)
	return &a, nil
}
