package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// PredictionRepository persists predictions, at most one per scan.
type PredictionRepository interface {
	// FindByScanID returns domain.ErrPredictionNotFound when the scan has none.
	FindByScanID(ctx context.Context, scanID uint) (*domain.Prediction, error)
	FindByScanIDs(ctx context.Context, scanIDs []uint) (map[uint]domain.Prediction, error)
	// Create relies on the store's unique index on scan id and reports a
	// violation as domain.ErrDuplicatePrediction.
	Create(ctx context.Context, prediction *domain.Prediction) (*domain.Prediction, error)
}
