package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

type PatientService interface {
	// ResolveOrCreate looks up by name alone; an existing record is returned
	// unchanged even when age or sex differ.
	ResolveOrCreate(ctx context.Context, name string, age int, sex string) (*domain.Patient, error)
	Get(ctx context.Context, id uint) (*domain.Patient, error)
	ListForAccount(ctx context.Context, accountID uint) ([]domain.Patient, error)
	// Delete removes the patient with all scans, predictions and stored files.
	Delete(ctx context.Context, id uint, actor *domain.Account) error
}
