package ports

import "context"

// ScoreInput is the source study handed to the scoring function.
type ScoreInput struct {
	ScanID   uint
	Filename string
	Data     []byte
}

// ScoreResult holds the segmentation overlay (PNG) and the classification.
type ScoreResult struct {
	Overlay   []byte
	TumorType string
	Scores    map[string]float64
}

// Scorer is the tumor segmentation and classification model. Implementations
// must be deterministic for the same input.
type Scorer interface {
	Score(ctx context.Context, in ScoreInput) (*ScoreResult, error)
}
