package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// PatientRepository persists patients. Deleting a patient cascades to its
// scans and their predictions at the store level.
type PatientRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Patient, error)
	FindByName(ctx context.Context, name string) (*domain.Patient, error)
	// Create returns domain.ErrPatientExists when the name is already taken.
	Create(ctx context.Context, patient *domain.Patient) (*domain.Patient, error)
	// ListByAccount returns the distinct patients the account has uploaded scans for.
	ListByAccount(ctx context.Context, accountID uint) ([]domain.Patient, error)
	Delete(ctx context.Context, id uint) error
}
