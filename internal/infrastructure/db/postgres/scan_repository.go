package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// ScanRepository implements ports.ScanRepository.
type ScanRepository struct {
	db *gorm.DB
}

func NewScanRepository(db *gorm.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

func (r *ScanRepository) CreateBatch(ctx context.Context, scans []*domain.Scan) error {
	if len(scans) == 0 {
		return nil
	}
	rows := lo.Map(scans, func(s *domain.Scan, _ int) scanRow { return scanToRow(s) })

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("insert scans: %w", err)
	}
	for i := range rows {
		scans[i].ID = rows[i].ID
	}
	return nil
}

func (r *ScanRepository) FindByID(ctx context.Context, id uint) (*domain.Scan, error) {
	var row scanRow
	if err := r.db.WithContext(ctx).Take(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, fmt.Errorf("find scan: %w", err)
	}
	s := scanFromRow(row)
	return &s, nil
}

func (r *ScanRepository) ListByAccount(ctx context.Context, accountID uint, limit int) ([]domain.Scan, error) {
	return r.list(ctx, "user_id = ?", accountID, limit)
}

func (r *ScanRepository) ListByPatient(ctx context.Context, patientID uint, limit int) ([]domain.Scan, error) {
	return r.list(ctx, "patient_id = ?", patientID, limit)
}

// DeleteOwned locks the row, checks ownership and deletes it in one
// transaction. The prediction row goes with it through the foreign key.
func (r *ScanRepository) DeleteOwned(ctx context.Context, scanID, accountID uint) (*domain.Scan, error) {
	var row scanRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", scanID, accountID).
			Take(&row).Error; err != nil {
			return err
		}
		return tx.Delete(&scanRow{}, row.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, fmt.Errorf("delete scan: %w", err)
	}
	s := scanFromRow(row)
	return &s, nil
}

func (r *ScanRepository) list(ctx context.Context, query string, arg any, limit int) ([]domain.Scan, error) {
	q := r.db.WithContext(ctx).Where(query, arg).Order("uploaded_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []scanRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return lo.Map(rows, func(row scanRow, _ int) domain.Scan { return scanFromRow(row) }), nil
}
