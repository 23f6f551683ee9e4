package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// PredictionOutcome tells how a prediction was obtained.
type PredictionOutcome string

const (
	OutcomeCacheHit      PredictionOutcome = "cache_hit"
	OutcomeComputed      PredictionOutcome = "computed"
	OutcomeRaceRecovered PredictionOutcome = "race_recovered"
)

// PredictionResult wraps the stored prediction with how it was served.
type PredictionResult struct {
	Prediction *domain.Prediction
	Outcome    PredictionOutcome
}

type PredictionService interface {
	Predict(ctx context.Context, scanID uint) (*PredictionResult, error)
}
