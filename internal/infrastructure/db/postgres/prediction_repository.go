package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// PredictionRepository implements ports.PredictionRepository. The unique index
// on scan_id is the final arbiter when two requests compute the same scan.
type PredictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) FindByScanID(ctx context.Context, scanID uint) (*domain.Prediction, error) {
	var row predictionRow
	if err := r.db.WithContext(ctx).Where("scan_id = ?", scanID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("find prediction: %w", err)
	}
	p := predictionFromRow(row)
	return &p, nil
}

func (r *PredictionRepository) FindByScanIDs(ctx context.Context, scanIDs []uint) (map[uint]domain.Prediction, error) {
	out := make(map[uint]domain.Prediction, len(scanIDs))
	if len(scanIDs) == 0 {
		return out, nil
	}
	var rows []predictionRow
	if err := r.db.WithContext(ctx).Where("scan_id IN ?", scanIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find predictions: %w", err)
	}
	for _, row := range rows {
		out[row.ScanID] = predictionFromRow(row)
	}
	return out, nil
}

func (r *PredictionRepository) Create(ctx context.Context, p *domain.Prediction) (*domain.Prediction, error) {
	row := predictionRow{
		ScanID:     p.ScanID,
		ResultPath: p.ResultPath,
		TumorType:  p.TumorType,
		Status:     string(p.Status),
		Scores:     datatypes.NewJSONType(p.Scores),
		CreatedAt:  p.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		if mapped := translateUnique(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert prediction: %w", err)
	}
	created := predictionFromRow(row)
	return &created, nil
}
