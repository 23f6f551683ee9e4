package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// PatientRepository implements ports.PatientRepository.
type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) FindByID(ctx context.Context, id uint) (*domain.Patient, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *PatientRepository) FindByName(ctx context.Context, name string) (*domain.Patient, error) {
	return r.findOne(ctx, "name = ?", name)
}

func (r *PatientRepository) Create(ctx context.Context, p *domain.Patient) (*domain.Patient, error) {
	row := patientRow{Name: p.Name, Age: p.Age, Sex: p.Sex, CreatedAt: p.CreatedAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if mapped := translateUnique(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	created := patientFromRow(row)
	return &created, nil
}

func (r *PatientRepository) ListByAccount(ctx context.Context, accountID uint) ([]domain.Patient, error) {
	var rows []patientRow
	err := r.db.WithContext(ctx).
		Model(&patientRow{}).
		Distinct("patients.*").
		Joins("JOIN scans ON scans.patient_id = patients.id").
		Where("scans.user_id = ?", accountID).
		Order("patients.name").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return lo.Map(rows, func(row patientRow, _ int) domain.Patient { return patientFromRow(row) }), nil
}

// Delete relies on ON DELETE CASCADE to remove scans and predictions.
func (r *PatientRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&patientRow{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete patient: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) findOne(ctx context.Context, query string, arg any) (*domain.Patient, error) {
	var row patientRow
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPatientNotFound
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	p := patientFromRow(row)
	return &p, nil
}
