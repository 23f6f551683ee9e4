package domain

import (
	"errors"
	"time"
)

// PredictionStatus is the lifecycle state of a prediction row.
type PredictionStatus string

const (
	PredictionPending   PredictionStatus = "pending"
	PredictionCompleted PredictionStatus = "completed"
	// PredictionFailed is part of the stored vocabulary but the pipeline never
	// persists it: a failed inference leaves no row so the next request retries.
	PredictionFailed PredictionStatus = "failed"
)

const (
	TumorMeningioma = "Meningioma"
	TumorGlioma     = "Glioma"
	TumorPituitary  = "Pituitary Tumor"
)

// TumorLabels is the classifier output vocabulary indexed by class id.
var TumorLabels = []string{TumorMeningioma, TumorGlioma, TumorPituitary}

var (
	ErrInference           = errors.New("inference failed")
	ErrPredictionNotFound  = errors.New("prediction not found")
	ErrDuplicatePrediction = errors.New("prediction already exists for scan")
)

// Prediction is the cached result for exactly one scan.
type Prediction struct {
	ID         uint               `json:"id"`
	ScanID     uint               `json:"scan_id"`
	ResultPath string             `json:"result_path"`
	TumorType  string             `json:"tumor_type"`
	Status     PredictionStatus   `json:"status"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// IsTumorLabel reports whether label belongs to the classifier vocabulary.
func IsTumorLabel(label string) bool {
	for _, l := range TumorLabels {
		if l == label {
			return true
		}
	}
	return false
}
